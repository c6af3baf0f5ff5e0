package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/efreitasn/stockmarket/internal/service"
)

// TraderHandler handles HTTP requests for trader and session endpoints.
type TraderHandler struct {
	traderSvc *service.TraderService
	orderSvc  *service.OrderService
	logger    *slog.Logger
}

// NewTraderHandler creates a new TraderHandler.
func NewTraderHandler(traderSvc *service.TraderService, orderSvc *service.OrderService, logger *slog.Logger) *TraderHandler {
	return &TraderHandler{
		traderSvc: traderSvc,
		orderSvc:  orderSvc,
		logger:    logger,
	}
}

// registerTraderRequest is the JSON request body for POST /traders.
type registerTraderRequest struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Tradername      string `json:"tradername"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// traderResponse is the JSON response for POST /traders (201 Created).
type traderResponse struct {
	TraderID   int64  `json:"trader_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Tradername string `json:"tradername"`
	CreatedAt  string `json:"created_at"`
}

// loginRequest is the JSON request body for POST /sessions.
type loginRequest struct {
	Tradername string `json:"tradername"`
	Password   string `json:"password"`
}

// sessionResponse is the JSON response for POST /sessions.
type sessionResponse struct {
	Token    string `json:"token"`
	TraderID int64  `json:"trader_id"`
	Name     string `json:"name"`
}

// Register handles POST /traders.
func (h *TraderHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerTraderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	trader, err := h.traderSvc.Register(r.Context(), service.RegisterTraderRequest{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Tradername:      req.Tradername,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusCreated, traderResponse{
		TraderID:   trader.TraderID,
		FirstName:  trader.FirstName,
		LastName:   trader.LastName,
		Tradername: trader.Tradername,
		CreatedAt:  formatTime(trader.CreatedAt),
	})
}

// Login handles POST /sessions.
func (h *TraderHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Tradername) == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "Tradername and password are required.")
		return
	}

	token, trader, err := h.traderSvc.Login(r.Context(), req.Tradername, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusCreated, sessionResponse{
		Token:    token,
		TraderID: trader.TraderID,
		Name:     trader.DisplayName(),
	})
}

// Logout handles DELETE /sessions.
func (h *TraderHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := bearerToken(r); ok {
		h.traderSvc.Logout(token)
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListOrders handles GET /traders/me/orders.
func (h *TraderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderSvc.ListTraderOrders(r.Context(), currentTrader(r).TraderID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponses(orders))
}
