package store

import (
	"context"
	"time"

	"github.com/efreitasn/stockmarket/internal/domain"
)

// Reader is the read side of the store. Every method returns copies; callers
// may modify the returned values freely.
type Reader interface {
	GetOrder(id int64) (*domain.Order, error)

	// CandidateBids returns the bids on stockID priced at or above minPrice
	// that do not belong to excludeTraderID, best first: price descending,
	// then order date ascending, then order id ascending.
	CandidateBids(stockID, excludeTraderID, minPrice int64) ([]*domain.Order, error)

	// CandidateOffers returns the offers on stockID priced at or below
	// maxPrice that do not belong to excludeTraderID, best first: price
	// ascending, then order date ascending, then order id ascending.
	CandidateOffers(stockID, excludeTraderID, maxPrice int64) ([]*domain.Order, error)

	// ListOrders returns every order on one side of a stock in the same
	// priority order as the candidate queries.
	ListOrders(stockID int64, side domain.OrderSide) ([]*domain.Order, error)
	ListTraderOrders(traderID int64) ([]*domain.Order, error)

	GetStock(id int64) (*domain.Stock, error)
	GetStockBySymbol(symbol string) (*domain.Stock, error)
	ListStocks() ([]*domain.Stock, error)

	GetTrader(id int64) (*domain.Trader, error)
	// GetTraderByName looks a trader up by tradername, ignoring case.
	GetTraderByName(name string) (*domain.Trader, error)

	// ListTrades returns trades newest first. A zero stockID lists the
	// trades of every stock.
	ListTrades(stockID int64) ([]*domain.Trade, error)
}

// Tx is a read-write view used inside Store.Update. Inserts assign the new
// id, store it on the argument and return it.
type Tx interface {
	Reader

	InsertOrder(o *domain.Order) (int64, error)
	UpdateOrder(id int64, date time.Time, quantity int64, side domain.OrderSide, price int64) error
	DeleteOrder(id int64) error

	InsertTrade(t *domain.Trade) (int64, error)

	InsertTrader(t *domain.Trader) (int64, error)

	InsertStock(s *domain.Stock) (int64, error)
	UpdateStockPrice(id, price int64, checked time.Time) error
}

// Store is the persistence collaborator of the exchange. Update calls are
// serialized and atomic: when fn returns an error none of its writes are
// applied.
type Store interface {
	View(ctx context.Context, fn func(r Reader) error) error
	Update(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
