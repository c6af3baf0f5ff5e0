package handler

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/efreitasn/stockmarket/internal/events"
	"github.com/efreitasn/stockmarket/internal/service"
)

// NewRouter creates a chi router with all routes registered, request logging,
// and Content-Type validation middleware.
func NewRouter(
	traderSvc *service.TraderService,
	orderSvc *service.OrderService,
	stockSvc *service.StockService,
	hub *events.Hub,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger))
	r.Use(contentTypeJSON)

	// Create handlers.
	traderH := NewTraderHandler(traderSvc, orderSvc, logger)
	orderH := NewOrderHandler(orderSvc, logger)
	stockH := NewStockHandler(stockSvc, logger)
	streamH := NewTradeStreamHandler(hub, logger)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Trader and session routes.
	r.Post("/traders", traderH.Register)
	r.Post("/sessions", traderH.Login)

	// Stock routes.
	r.Get("/stocks", stockH.List)
	r.Route("/stocks/{stock_id}", func(r chi.Router) {
		r.Get("/", stockH.Get)
		r.Get("/bids", stockH.ListBids)
		r.Get("/offers", stockH.ListOffers)
		r.Get("/trades", stockH.ListTrades)
		r.Get("/book", stockH.GetBook)
	})
	r.Get("/trades", stockH.ListAllTrades)

	// Trade stream.
	r.Get("/ws/trades", streamH.Stream)

	// Authenticated routes.
	r.Group(func(r chi.Router) {
		r.Use(requireTrader(traderSvc, logger))

		r.Delete("/sessions", traderH.Logout)
		r.Get("/traders/me/orders", traderH.ListOrders)

		r.Post("/orders", orderH.PlaceOrder)
		r.Get("/orders/{order_id}", orderH.GetOrder)
		r.Patch("/orders/{order_id}", orderH.ModifyOrder)
		r.Delete("/orders/{order_id}", orderH.DeleteOrder)
	})

	return r
}

// requestLogging returns middleware that tags each request with an id and
// logs its method, path, status code, and duration using slog. An incoming
// X-Request-Id is kept.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get("X-Request-Id")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", reqID)

			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("request_id", reqID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// contentTypeJSON is middleware that validates Content-Type for POST, PUT, and
// PATCH requests. If the Content-Type header doesn't start with
// "application/json", it returns 400 Bad Request before the handler runs.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
