package store

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/efreitasn/stockmarket/internal/domain"
)

// MemoryStore is a thread-safe in-memory Store. Orders are indexed per
// stock in price-time priority; Update keeps an undo log so a failed
// transaction leaves no trace.
type MemoryStore struct {
	mu sync.RWMutex

	orders  map[int64]*domain.Order
	books   map[int64]*bookIndex // stock_id → book
	trades  []*domain.Trade      // chronological
	stocks  map[int64]*domain.Stock
	symbols map[string]int64 // symbol → stock_id
	traders map[int64]*domain.Trader
	names   map[string]int64 // lower(tradername) → trader_id

	lastOrderID  int64
	lastTradeID  int64
	lastStockID  int64
	lastTraderID int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:  make(map[int64]*domain.Order),
		books:   make(map[int64]*bookIndex),
		stocks:  make(map[int64]*domain.Stock),
		symbols: make(map[string]int64),
		traders: make(map[int64]*domain.Trader),
		names:   make(map[string]int64),
	}
}

// View runs fn with shared read access.
func (s *MemoryStore) View(ctx context.Context, fn func(r Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(&memTx{s: s})
}

// Update runs fn with exclusive access. If fn returns an error every write
// it made is undone in reverse order.
func (s *MemoryStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{s: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) book(stockID int64) *bookIndex {
	b, ok := s.books[stockID]
	if !ok {
		b = newBookIndex()
		s.books[stockID] = b
	}
	return b
}

// memTx implements Tx over the store's maps. The caller holds s.mu.
type memTx struct {
	s    *MemoryStore
	undo []func()
}

func (tx *memTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func copyOrder(o *domain.Order) *domain.Order {
	c := *o
	return &c
}

func (tx *memTx) GetOrder(id int64) (*domain.Order, error) {
	o, ok := tx.s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (tx *memTx) CandidateBids(stockID, excludeTraderID, minPrice int64) ([]*domain.Order, error) {
	return tx.candidates(stockID, domain.OrderSideBid, excludeTraderID, func(price int64) bool {
		return price >= minPrice
	}), nil
}

func (tx *memTx) CandidateOffers(stockID, excludeTraderID, maxPrice int64) ([]*domain.Order, error) {
	return tx.candidates(stockID, domain.OrderSideOffer, excludeTraderID, func(price int64) bool {
		return price <= maxPrice
	}), nil
}

// candidates walks one side best first and stops at the first entry whose
// price fails the bound; every later entry is worse.
func (tx *memTx) candidates(stockID int64, side domain.OrderSide, excludeTraderID int64, priceOK func(int64) bool) []*domain.Order {
	result := make([]*domain.Order, 0)
	b, ok := tx.s.books[stockID]
	if !ok {
		return result
	}
	b.walk(side, func(e bookEntry) bool {
		if !priceOK(e.Price) {
			return false
		}
		o := tx.s.orders[e.OrderID]
		if o.TraderID != excludeTraderID {
			result = append(result, copyOrder(o))
		}
		return true
	})
	return result
}

func (tx *memTx) ListOrders(stockID int64, side domain.OrderSide) ([]*domain.Order, error) {
	return tx.candidates(stockID, side, 0, func(int64) bool { return true }), nil
}

func (tx *memTx) ListTraderOrders(traderID int64) ([]*domain.Order, error) {
	result := make([]*domain.Order, 0)
	for _, o := range tx.s.orders {
		if o.TraderID == traderID {
			result = append(result, copyOrder(o))
		}
	}
	slices.SortFunc(result, func(a, b *domain.Order) int {
		return cmp.Compare(a.OrderID, b.OrderID)
	})
	return result, nil
}

func (tx *memTx) InsertOrder(o *domain.Order) (int64, error) {
	if o.Quantity <= 0 {
		return 0, domain.ErrNonPositiveQuantity
	}
	s := tx.s
	s.lastOrderID++
	o.OrderID = s.lastOrderID

	stored := copyOrder(o)
	s.orders[stored.OrderID] = stored
	s.book(stored.StockID).insert(stored)

	tx.undo = append(tx.undo, func() {
		s.book(stored.StockID).remove(stored)
		delete(s.orders, stored.OrderID)
		s.lastOrderID--
	})
	return o.OrderID, nil
}

func (tx *memTx) UpdateOrder(id int64, date time.Time, quantity int64, side domain.OrderSide, price int64) error {
	if quantity <= 0 {
		return domain.ErrNonPositiveQuantity
	}
	s := tx.s
	o, ok := s.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	prev := *o

	b := s.book(o.StockID)
	b.remove(o)
	o.OrderDate = date
	o.Quantity = quantity
	o.Side = side
	o.Price = price
	b.insert(o)

	tx.undo = append(tx.undo, func() {
		b.remove(o)
		*o = prev
		b.insert(o)
	})
	return nil
}

func (tx *memTx) DeleteOrder(id int64) error {
	s := tx.s
	o, ok := s.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	b := s.book(o.StockID)
	b.remove(o)
	delete(s.orders, id)

	tx.undo = append(tx.undo, func() {
		s.orders[id] = o
		b.insert(o)
	})
	return nil
}

func (tx *memTx) InsertTrade(t *domain.Trade) (int64, error) {
	s := tx.s
	s.lastTradeID++
	t.TradeID = s.lastTradeID

	stored := *t
	s.trades = append(s.trades, &stored)

	tx.undo = append(tx.undo, func() {
		s.trades = s.trades[:len(s.trades)-1]
		s.lastTradeID--
	})
	return t.TradeID, nil
}

func (tx *memTx) ListTrades(stockID int64) ([]*domain.Trade, error) {
	trades := tx.s.trades
	result := make([]*domain.Trade, 0)
	for i := len(trades) - 1; i >= 0; i-- {
		if stockID != 0 && trades[i].StockID != stockID {
			continue
		}
		c := *trades[i]
		result = append(result, &c)
	}
	return result, nil
}

func (tx *memTx) GetStock(id int64) (*domain.Stock, error) {
	st, ok := tx.s.stocks[id]
	if !ok {
		return nil, domain.ErrStockNotFound
	}
	c := *st
	return &c, nil
}

func (tx *memTx) GetStockBySymbol(symbol string) (*domain.Stock, error) {
	id, ok := tx.s.symbols[symbol]
	if !ok {
		return nil, domain.ErrStockNotFound
	}
	return tx.GetStock(id)
}

func (tx *memTx) ListStocks() ([]*domain.Stock, error) {
	result := make([]*domain.Stock, 0, len(tx.s.stocks))
	for _, st := range tx.s.stocks {
		c := *st
		result = append(result, &c)
	}
	slices.SortFunc(result, func(a, b *domain.Stock) int {
		return cmp.Compare(a.StockID, b.StockID)
	})
	return result, nil
}

func (tx *memTx) InsertStock(st *domain.Stock) (int64, error) {
	s := tx.s
	s.lastStockID++
	st.StockID = s.lastStockID

	stored := *st
	s.stocks[stored.StockID] = &stored
	s.symbols[stored.Symbol] = stored.StockID

	tx.undo = append(tx.undo, func() {
		delete(s.symbols, stored.Symbol)
		delete(s.stocks, stored.StockID)
		s.lastStockID--
	})
	return st.StockID, nil
}

func (tx *memTx) UpdateStockPrice(id, price int64, checked time.Time) error {
	st, ok := tx.s.stocks[id]
	if !ok {
		return domain.ErrStockNotFound
	}
	prev := *st
	st.LastTradedPrice = price
	st.LastChecked = checked

	tx.undo = append(tx.undo, func() {
		*st = prev
	})
	return nil
}

func (tx *memTx) GetTrader(id int64) (*domain.Trader, error) {
	t, ok := tx.s.traders[id]
	if !ok {
		return nil, domain.ErrTraderNotFound
	}
	c := *t
	return &c, nil
}

func (tx *memTx) GetTraderByName(name string) (*domain.Trader, error) {
	id, ok := tx.s.names[strings.ToLower(name)]
	if !ok {
		return nil, domain.ErrTraderNotFound
	}
	return tx.GetTrader(id)
}

func (tx *memTx) InsertTrader(t *domain.Trader) (int64, error) {
	s := tx.s
	key := strings.ToLower(t.Tradername)
	if _, exists := s.names[key]; exists {
		return 0, domain.ErrTraderAlreadyExists
	}
	s.lastTraderID++
	t.TraderID = s.lastTraderID

	stored := *t
	s.traders[stored.TraderID] = &stored
	s.names[key] = stored.TraderID

	tx.undo = append(tx.undo, func() {
		delete(s.names, key)
		delete(s.traders, stored.TraderID)
		s.lastTraderID--
	})
	return t.TraderID, nil
}
