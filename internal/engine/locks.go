package engine

import "sync"

// StockLocks is a thread-safe map of stock_id → mutex. Holding a stock's
// lock serializes every persist-then-match sequence on that stock.
type StockLocks struct {
	mu    sync.RWMutex
	locks map[int64]*sync.Mutex
}

// NewStockLocks creates a new StockLocks.
func NewStockLocks() *StockLocks {
	return &StockLocks{
		locks: make(map[int64]*sync.Mutex),
	}
}

// GetOrCreate returns the mutex for the given stock, creating one if it
// doesn't already exist.
func (sl *StockLocks) GetOrCreate(stockID int64) *sync.Mutex {
	sl.mu.RLock()
	l, ok := sl.locks[stockID]
	sl.mu.RUnlock()
	if ok {
		return l
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	// Double-check after acquiring write lock.
	if l, ok = sl.locks[stockID]; ok {
		return l
	}
	l = &sync.Mutex{}
	sl.locks[stockID] = l
	return l
}

// Lock acquires the stock's lock and returns the function that releases it.
func (sl *StockLocks) Lock(stockID int64) (unlock func()) {
	l := sl.GetOrCreate(stockID)
	l.Lock()
	return l.Unlock
}
