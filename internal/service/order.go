package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/efreitasn/stockmarket/internal/domain"
	"github.com/efreitasn/stockmarket/internal/engine"
	"github.com/efreitasn/stockmarket/internal/events"
	"github.com/efreitasn/stockmarket/internal/store"
)

// Outcome messages reported to the trader.
const (
	MessageTradeMade     = "trade made"
	MessageOrderPlaced   = "order placed"
	MessageOrderModified = "order modified"
	MessageOrderDeleted  = "order deleted"
)

// PlaceOrderRequest represents the input for order placement. Price is
// decimal text such as "183.09".
type PlaceOrderRequest struct {
	TraderID int64
	StockID  int64
	Side     domain.OrderSide
	Price    string
	Quantity int64
}

// PlaceOrderResult is the outcome of a placement.
type PlaceOrderResult struct {
	OrderID       int64
	TradeOccurred bool
	Trades        []*domain.Trade
}

func (r *PlaceOrderResult) Message() string {
	if r.TradeOccurred {
		return MessageTradeMade
	}
	return MessageOrderPlaced
}

// ModifyOrderRequest represents the input for modifying an order. When
// Delete is set the order is removed and the other fields are ignored.
type ModifyOrderRequest struct {
	TraderID int64
	OrderID  int64
	Delete   bool
	Side     domain.OrderSide
	Price    string
	Quantity int64
}

// ModifyOrderResult is the outcome of a modification.
type ModifyOrderResult struct {
	Deleted       bool
	TradeOccurred bool
	Trades        []*domain.Trade
}

func (r *ModifyOrderResult) Message() string {
	switch {
	case r.Deleted:
		return MessageOrderDeleted
	case r.TradeOccurred:
		return MessageTradeMade
	default:
		return MessageOrderModified
	}
}

// OrderService owns the order lifecycle: it validates requests, persists
// orders and runs the matcher on them. Every placement or modification of
// a stock's orders holds that stock's lock and runs in a single store
// transaction, so a failed match leaves nothing behind.
type OrderService struct {
	store       store.Store
	matcher     *engine.Matcher
	locks       *engine.StockLocks
	publisher   events.Publisher
	logger      *slog.Logger
	bandPercent int
	now         func() time.Time
}

// NewOrderService creates a new OrderService with the given dependencies.
// publisher may be nil.
func NewOrderService(
	st store.Store,
	matcher *engine.Matcher,
	locks *engine.StockLocks,
	publisher events.Publisher,
	logger *slog.Logger,
	bandPercent int,
) *OrderService {
	return &OrderService{
		store:       st,
		matcher:     matcher,
		locks:       locks,
		publisher:   publisher,
		logger:      logger,
		bandPercent: bandPercent,
		now:         time.Now,
	}
}

// orderFields holds the validated side, price and quantity of a request.
type orderFields struct {
	side     domain.OrderSide
	price    int64
	quantity int64
}

func validateOrderFields(side domain.OrderSide, price string, quantity int64) (orderFields, error) {
	if !side.Valid() {
		return orderFields{}, &domain.ValidationError{Message: "Order type must be 'Bid' or 'Offer'."}
	}
	if strings.TrimSpace(price) == "" {
		return orderFields{}, &domain.ValidationError{Message: "Price is required."}
	}
	cents, err := domain.ParseCents(price)
	if err != nil {
		return orderFields{}, &domain.ValidationError{Message: "Price must be a decimal number with at most 2 decimal places."}
	}
	if cents <= 0 {
		return orderFields{}, &domain.ValidationError{Message: "Price must be greater than 0."}
	}
	if quantity <= 0 {
		return orderFields{}, &domain.ValidationError{Message: "Quantity must be greater than 0."}
	}
	return orderFields{side: side, price: cents, quantity: quantity}, nil
}

// checkBand rejects prices outside the allowed band around the stock's last
// traded price. A stock that has never been priced accepts any price.
func (s *OrderService) checkBand(stock *domain.Stock, price int64) error {
	if stock.LastTradedPrice <= 0 {
		return nil
	}
	if !domain.WithinBand(price, stock.LastTradedPrice, s.bandPercent) {
		return &domain.ValidationError{
			Message: fmt.Sprintf("Price must be within %d%% of the last traded price.", s.bandPercent),
		}
	}
	return nil
}

// PlaceOrder validates the request, persists the new order and matches it
// against the opposite side of its stock.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	fields, err := validateOrderFields(req.Side, req.Price, req.Quantity)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(req.StockID)
	defer unlock()

	var (
		stock  *domain.Stock
		result = &PlaceOrderResult{}
	)
	err = s.store.Update(ctx, func(tx store.Tx) error {
		_, err := tx.GetTrader(req.TraderID)
		if err != nil {
			return err
		}
		if stock, err = tx.GetStock(req.StockID); err != nil {
			return err
		}
		if err := s.checkBand(stock, fields.price); err != nil {
			return err
		}

		id, err := tx.InsertOrder(&domain.Order{
			TraderID:  req.TraderID,
			StockID:   req.StockID,
			Side:      fields.side,
			Price:     fields.price,
			Quantity:  fields.quantity,
			OrderDate: s.now(),
		})
		if err != nil {
			return err
		}

		match, err := s.matcher.Match(tx, id)
		if err != nil {
			return fmt.Errorf("match order %d: %w", id, err)
		}
		result.OrderID = id
		result.TradeOccurred = match.TradeOccurred()
		result.Trades = match.Trades
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order placed",
		slog.Int64("order_id", result.OrderID),
		slog.Int64("stock_id", req.StockID),
		slog.Int64("trader_id", req.TraderID),
		slog.String("side", string(fields.side)),
		slog.Int("trades", len(result.Trades)),
	)
	s.publish(ctx, stock.Symbol, result.Trades)
	return result, nil
}

// ModifyOrder deletes the order or replaces its side, price and quantity
// and matches it again. Only the order's owner may modify it. A modified
// order keeps its id but takes a new order date, losing its time priority.
func (s *OrderService) ModifyOrder(ctx context.Context, req ModifyOrderRequest) (*ModifyOrderResult, error) {
	var fields orderFields
	if !req.Delete {
		var err error
		if fields, err = validateOrderFields(req.Side, req.Price, req.Quantity); err != nil {
			return nil, err
		}
	}

	// The stock id is needed to take the lock; ownership is checked again
	// inside the transaction.
	current, err := s.ownedOrder(ctx, req.TraderID, req.OrderID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(current.StockID)
	defer unlock()

	var (
		stock  *domain.Stock
		result = &ModifyOrderResult{Deleted: req.Delete}
	)
	err = s.store.Update(ctx, func(tx store.Tx) error {
		o, err := tx.GetOrder(req.OrderID)
		if err != nil {
			return err
		}
		if o.TraderID != req.TraderID {
			return domain.ErrNotOrderOwner
		}

		if req.Delete {
			return tx.DeleteOrder(o.OrderID)
		}

		if stock, err = tx.GetStock(o.StockID); err != nil {
			return err
		}
		if err := s.checkBand(stock, fields.price); err != nil {
			return err
		}
		if err := tx.UpdateOrder(o.OrderID, s.now(), fields.quantity, fields.side, fields.price); err != nil {
			return err
		}

		match, err := s.matcher.Match(tx, o.OrderID)
		if err != nil {
			return fmt.Errorf("match order %d: %w", o.OrderID, err)
		}
		result.TradeOccurred = match.TradeOccurred()
		result.Trades = match.Trades
		return nil
	})
	if err != nil {
		return nil, err
	}

	if req.Delete {
		s.logger.Info("order deleted",
			slog.Int64("order_id", req.OrderID),
			slog.Int64("stock_id", current.StockID),
		)
		return result, nil
	}

	s.logger.Info("order modified",
		slog.Int64("order_id", req.OrderID),
		slog.Int64("stock_id", current.StockID),
		slog.Int("trades", len(result.Trades)),
	)
	s.publish(ctx, stock.Symbol, result.Trades)
	return result, nil
}

// GetOrder returns one of the trader's own resting orders.
func (s *OrderService) GetOrder(ctx context.Context, traderID, orderID int64) (*domain.Order, error) {
	return s.ownedOrder(ctx, traderID, orderID)
}

// ListTraderOrders returns the trader's resting orders by ascending id.
func (s *OrderService) ListTraderOrders(ctx context.Context, traderID int64) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := s.store.View(ctx, func(r store.Reader) error {
		var err error
		orders, err = r.ListTraderOrders(traderID)
		return err
	})
	return orders, err
}

func (s *OrderService) ownedOrder(ctx context.Context, traderID, orderID int64) (*domain.Order, error) {
	var o *domain.Order
	err := s.store.View(ctx, func(r store.Reader) error {
		var err error
		o, err = r.GetOrder(orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if o.TraderID != traderID {
		return nil, domain.ErrNotOrderOwner
	}
	return o, nil
}

// publish hands committed trades to the publisher. Failures are logged;
// the trades are already durable.
func (s *OrderService) publish(ctx context.Context, symbol string, trades []*domain.Trade) {
	if s.publisher == nil || len(trades) == 0 {
		return
	}
	evs := make([]events.TradeEvent, len(trades))
	for i, t := range trades {
		evs[i] = events.NewTradeEvent(t, symbol)
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), evs); err != nil {
		s.logger.Error("failed to publish trades",
			slog.String("symbol", symbol),
			slog.Int("trades", len(evs)),
			slog.String("error", err.Error()),
		)
	}
}
