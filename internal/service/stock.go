package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/efreitasn/stockmarket/internal/domain"
	"github.com/efreitasn/stockmarket/internal/store"
)

// BookPriceLevel represents an aggregated price level in the book response.
type BookPriceLevel struct {
	Price         int64
	TotalQuantity int64
	OrderCount    int
}

// BookResponse represents the response for GET /stocks/{stock_id}/book.
type BookResponse struct {
	Stock      *domain.Stock
	Bids       []BookPriceLevel
	Offers     []BookPriceLevel
	Spread     *int64 // nil if either side empty
	SnapshotAt time.Time
}

// StockService handles stock, book and trade queries.
type StockService struct {
	store  store.Store
	logger *slog.Logger
}

// NewStockService creates a new StockService with the given dependencies.
func NewStockService(st store.Store, logger *slog.Logger) *StockService {
	return &StockService{store: st, logger: logger}
}

// SeedStocks inserts every stock whose symbol is not stored yet. Existing
// stocks are left untouched, so seeding is safe on every start.
func (s *StockService) SeedStocks(ctx context.Context, stocks []domain.Stock) error {
	return s.store.Update(ctx, func(tx store.Tx) error {
		for _, st := range stocks {
			_, err := tx.GetStockBySymbol(st.Symbol)
			if err == nil {
				continue
			}
			if !errors.Is(err, domain.ErrStockNotFound) {
				return err
			}
			seed := st
			if _, err := tx.InsertStock(&seed); err != nil {
				return err
			}
			s.logger.Info("stock seeded",
				slog.Int64("stock_id", seed.StockID),
				slog.String("symbol", seed.Symbol),
			)
		}
		return nil
	})
}

func (s *StockService) ListStocks(ctx context.Context) ([]*domain.Stock, error) {
	var stocks []*domain.Stock
	err := s.store.View(ctx, func(r store.Reader) error {
		var err error
		stocks, err = r.ListStocks()
		return err
	})
	return stocks, err
}

func (s *StockService) GetStock(ctx context.Context, stockID int64) (*domain.Stock, error) {
	var stock *domain.Stock
	err := s.store.View(ctx, func(r store.Reader) error {
		var err error
		stock, err = r.GetStock(stockID)
		return err
	})
	return stock, err
}

// ListOrders returns every resting order on one side of a stock, best
// first.
func (s *StockService) ListOrders(ctx context.Context, stockID int64, side domain.OrderSide) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := s.store.View(ctx, func(r store.Reader) error {
		if _, err := r.GetStock(stockID); err != nil {
			return err
		}
		var err error
		orders, err = r.ListOrders(stockID, side)
		return err
	})
	return orders, err
}

// ListTrades returns the trades of a stock newest first. A zero stockID
// lists the trades of every stock.
func (s *StockService) ListTrades(ctx context.Context, stockID int64) ([]*domain.Trade, error) {
	var trades []*domain.Trade
	err := s.store.View(ctx, func(r store.Reader) error {
		if stockID != 0 {
			if _, err := r.GetStock(stockID); err != nil {
				return err
			}
		}
		var err error
		trades, err = r.ListTrades(stockID)
		return err
	})
	return trades, err
}

// GetBook returns the top depth price levels of each side of a stock.
func (s *StockService) GetBook(ctx context.Context, stockID int64, depth int) (*BookResponse, error) {
	if depth < 1 || depth > 50 {
		return nil, &domain.ValidationError{
			Message: "depth must be between 1 and 50",
		}
	}

	resp := &BookResponse{}
	err := s.store.View(ctx, func(r store.Reader) error {
		var err error
		if resp.Stock, err = r.GetStock(stockID); err != nil {
			return err
		}
		bids, err := r.ListOrders(stockID, domain.OrderSideBid)
		if err != nil {
			return err
		}
		offers, err := r.ListOrders(stockID, domain.OrderSideOffer)
		if err != nil {
			return err
		}
		resp.Bids = topLevels(bids, depth)
		resp.Offers = topLevels(offers, depth)
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp.SnapshotAt = time.Now()

	// Compute spread = best_offer - best_bid (null if either side empty).
	if len(resp.Bids) > 0 && len(resp.Offers) > 0 {
		spread := resp.Offers[0].Price - resp.Bids[0].Price
		resp.Spread = &spread
	}
	return resp, nil
}

// topLevels aggregates orders already sorted best first into at most n
// price levels.
func topLevels(orders []*domain.Order, n int) []BookPriceLevel {
	levels := make([]BookPriceLevel, 0, n)
	for _, o := range orders {
		if last := len(levels) - 1; last >= 0 && levels[last].Price == o.Price {
			levels[last].TotalQuantity += o.Quantity
			levels[last].OrderCount++
			continue
		}
		if len(levels) == n {
			break
		}
		levels = append(levels, BookPriceLevel{Price: o.Price, TotalQuantity: o.Quantity, OrderCount: 1})
	}
	return levels
}

// UpdatePrice records a new last traded price observed at checked.
func (s *StockService) UpdatePrice(ctx context.Context, stockID, price int64, checked time.Time) error {
	return s.store.Update(ctx, func(tx store.Tx) error {
		return tx.UpdateStockPrice(stockID, price, checked)
	})
}
