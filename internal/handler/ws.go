package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/efreitasn/stockmarket/internal/events"
)

const (
	streamBuffer     = 32
	streamWriteWait  = 10 * time.Second
	streamPingPeriod = 30 * time.Second
)

// TradeStreamHandler pushes committed trades to websocket clients.
type TradeStreamHandler struct {
	hub      *events.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewTradeStreamHandler creates a new TradeStreamHandler.
func NewTradeStreamHandler(hub *events.Hub, logger *slog.Logger) *TradeStreamHandler {
	return &TradeStreamHandler{
		hub:      hub,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		logger:   logger,
	}
}

// Stream handles GET /ws/trades. Each trade event is sent as one JSON text
// message. Clients are read-only; anything they send is discarded.
func (h *TradeStreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(streamBuffer)
	defer h.hub.Unsubscribe(sub)
	h.logger.Debug("trade stream opened", slog.String("remote", r.RemoteAddr))

	// The read loop only exists to notice the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}
