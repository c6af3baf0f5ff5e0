package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/efreitasn/stockmarket/internal/domain"
	"github.com/efreitasn/stockmarket/internal/service"
)

// timeLayout is the wire format of every timestamp in responses.
const timeLayout = "2006-01-02T15:04:05Z"

// OrderHandler handles HTTP requests for order endpoints. Every route it
// serves sits behind requireTrader.
type OrderHandler struct {
	orderSvc *service.OrderService
	logger   *slog.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc, logger: logger}
}

// placeOrderRequest is the JSON request body for POST /orders. Price may be
// sent as a JSON number or a decimal string.
type placeOrderRequest struct {
	StockID  int64       `json:"stock_id"`
	Type     string      `json:"type"`
	Price    json.Number `json:"price"`
	Quantity int64       `json:"quantity"`
}

// modifyOrderRequest is the JSON request body for PATCH /orders/{order_id}.
type modifyOrderRequest struct {
	Delete   bool        `json:"delete"`
	Type     string      `json:"type"`
	Price    json.Number `json:"price"`
	Quantity int64       `json:"quantity"`
}

type placeOrderResponse struct {
	OrderID       int64  `json:"order_id"`
	TradeOccurred bool   `json:"trade_occurred"`
	Message       string `json:"message"`
}

type modifyOrderResponse struct {
	TradeOccurred bool   `json:"trade_occurred"`
	Message       string `json:"message"`
}

// orderResponse is the JSON representation of a resting order.
type orderResponse struct {
	OrderID   int64  `json:"order_id"`
	TraderID  int64  `json:"trader_id"`
	StockID   int64  `json:"stock_id"`
	Type      string `json:"type"`
	Price     string `json:"price"`
	Quantity  int64  `json:"quantity"`
	OrderDate string `json:"order_date"`
}

// PlaceOrder handles POST /orders.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.StockID <= 0 {
		WriteError(w, http.StatusBadRequest, "validation_error", "Stock is required.")
		return
	}

	result, err := h.orderSvc.PlaceOrder(r.Context(), service.PlaceOrderRequest{
		TraderID: currentTrader(r).TraderID,
		StockID:  req.StockID,
		Side:     domain.OrderSide(req.Type),
		Price:    req.Price.String(),
		Quantity: req.Quantity,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusCreated, placeOrderResponse{
		OrderID:       result.OrderID,
		TradeOccurred: result.TradeOccurred,
		Message:       result.Message(),
	})
}

// ModifyOrder handles PATCH /orders/{order_id}. A true delete flag removes
// the order whatever the other fields say.
func (h *OrderHandler) ModifyOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "order_id")
	if !ok {
		return
	}
	var req modifyOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	h.modify(w, r, service.ModifyOrderRequest{
		TraderID: currentTrader(r).TraderID,
		OrderID:  orderID,
		Delete:   req.Delete,
		Side:     domain.OrderSide(req.Type),
		Price:    req.Price.String(),
		Quantity: req.Quantity,
	})
}

// DeleteOrder handles DELETE /orders/{order_id}.
func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "order_id")
	if !ok {
		return
	}
	h.modify(w, r, service.ModifyOrderRequest{
		TraderID: currentTrader(r).TraderID,
		OrderID:  orderID,
		Delete:   true,
	})
}

func (h *OrderHandler) modify(w http.ResponseWriter, r *http.Request, req service.ModifyOrderRequest) {
	result, err := h.orderSvc.ModifyOrder(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, modifyOrderResponse{
		TradeOccurred: result.TradeOccurred,
		Message:       result.Message(),
	})
}

// GetOrder handles GET /orders/{order_id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "order_id")
	if !ok {
		return
	}

	order, err := h.orderSvc.GetOrder(r.Context(), currentTrader(r).TraderID, orderID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(order))
}

func buildOrderResponse(o *domain.Order) orderResponse {
	return orderResponse{
		OrderID:   o.OrderID,
		TraderID:  o.TraderID,
		StockID:   o.StockID,
		Type:      string(o.Side),
		Price:     domain.FormatCents(o.Price),
		Quantity:  o.Quantity,
		OrderDate: formatTime(o.OrderDate),
	}
}

func buildOrderResponses(orders []*domain.Order) []orderResponse {
	result := make([]orderResponse, len(orders))
	for i, o := range orders {
		result[i] = buildOrderResponse(o)
	}
	return result
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
