// Package events fans executed trades out to in-process subscribers and
// external brokers once the transaction that produced them has committed.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/efreitasn/stockmarket/internal/domain"
)

// EventTradeExecuted is the event type of every trade notification.
const EventTradeExecuted = "trade.executed"

// TradeEvent is the JSON payload published for one executed trade.
type TradeEvent struct {
	Event     string    `json:"event"`
	Timestamp string    `json:"timestamp"`
	Data      TradeData `json:"data"`
}

type TradeData struct {
	TradeID  int64  `json:"trade_id"`
	StockID  int64  `json:"stock_id"`
	Symbol   string `json:"symbol"`
	SellerID int64  `json:"seller_id"`
	BuyerID  int64  `json:"buyer_id"`
	Price    string `json:"price"`
	Quantity int64  `json:"quantity"`
}

// NewTradeEvent builds the event for t. symbol is the traded stock's symbol.
func NewTradeEvent(t *domain.Trade, symbol string) TradeEvent {
	return TradeEvent{
		Event:     EventTradeExecuted,
		Timestamp: t.TradeDate.UTC().Format(time.RFC3339Nano),
		Data: TradeData{
			TradeID:  t.TradeID,
			StockID:  t.StockID,
			Symbol:   symbol,
			SellerID: t.SellerID,
			BuyerID:  t.BuyerID,
			Price:    domain.FormatCents(t.Price),
			Quantity: t.Quantity,
		},
	}
}

// Publisher delivers trade events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, events []TradeEvent) error
}

// Multi publishes to every publisher in turn and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, events []TradeEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
