package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/efreitasn/stockmarket/internal/domain"
)

// PebbleStore is a durable Store backed by a pebble database. Each Update
// runs against an indexed batch, so reads inside the transaction observe its
// own writes and the batch commits atomically with a synced write.
type PebbleStore struct {
	db *pebble.DB
	mu sync.Mutex // serializes Update
}

// OpenPebble opens (or creates) a pebble database in dir. A nil opts uses
// pebble's defaults.
func OpenPebble(dir string, opts *pebble.Options) (*PebbleStore, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, &domain.StorageError{Op: "open", Err: err}
	}
	return &PebbleStore{db: db}, nil
}

// View runs fn against a consistent snapshot of the database.
func (s *PebbleStore) View(ctx context.Context, fn func(r Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap := s.db.NewSnapshot()
	defer snap.Close()

	return fn(&pebbleTx{r: snap})
}

// Update runs fn against an indexed batch and commits it if fn succeeds.
func (s *PebbleStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.db.NewIndexedBatch()
	defer batch.Close()

	if err := fn(&pebbleTx{r: batch, w: batch}); err != nil {
		return err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return &domain.StorageError{Op: "commit", Err: err}
	}
	return nil
}

// Close closes the underlying database.
func (s *PebbleStore) Close() error {
	return s.db.Close()
}

// pebbleReader is satisfied by *pebble.Snapshot and indexed *pebble.Batch.
type pebbleReader interface {
	Get(key []byte) ([]byte, io.Closer, error)
	NewIter(o *pebble.IterOptions) (*pebble.Iterator, error)
}

// pebbleTx implements Tx. w is nil for read-only views.
type pebbleTx struct {
	r pebbleReader
	w *pebble.Batch
}

// get returns a copy of the value at key, or ok=false if it is absent.
func (tx *pebbleTx) get(op string, key []byte) (val []byte, ok bool, err error) {
	v, closer, err := tx.r.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &domain.StorageError{Op: op, Err: err}
	}
	defer closer.Close()
	return append([]byte(nil), v...), true, nil
}

func (tx *pebbleTx) set(op string, key, value []byte) error {
	if err := tx.w.Set(key, value, nil); err != nil {
		return &domain.StorageError{Op: op, Err: err}
	}
	return nil
}

func (tx *pebbleTx) del(op string, key []byte) error {
	if err := tx.w.Delete(key, nil); err != nil {
		return &domain.StorageError{Op: op, Err: err}
	}
	return nil
}

// scan iterates the keys under prefix in order (or reverse order) until fn
// returns false.
func (tx *pebbleTx) scan(op string, prefix []byte, reverse bool, fn func(key, value []byte) (bool, error)) error {
	iter, err := tx.r.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return &domain.StorageError{Op: op, Err: err}
	}
	defer iter.Close()

	valid := iter.First()
	if reverse {
		valid = iter.Last()
	}
	for ; valid; valid = next(iter, reverse) {
		more, err := fn(iter.Key(), iter.Value())
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return &domain.StorageError{Op: op, Err: err}
	}
	return nil
}

func next(iter *pebble.Iterator, reverse bool) bool {
	if reverse {
		return iter.Prev()
	}
	return iter.Next()
}

// nextID increments and returns the named sequence.
func (tx *pebbleTx) nextID(name string) (int64, error) {
	v, ok, err := tx.get("read sequence", seqKey(name))
	if err != nil {
		return 0, err
	}
	var last int64
	if ok {
		if last, err = decodeInt64(v); err != nil {
			return 0, &domain.StorageError{Op: "read sequence", Err: err}
		}
	}
	last++
	if err := tx.set("write sequence", seqKey(name), encodeInt64(last)); err != nil {
		return 0, err
	}
	return last, nil
}

func (tx *pebbleTx) GetOrder(id int64) (*domain.Order, error) {
	v, ok, err := tx.get("get order", orderKey(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	o, err := decodeOrder(id, v)
	if err != nil {
		return nil, &domain.StorageError{Op: "get order", Err: err}
	}
	return o, nil
}

func (tx *pebbleTx) CandidateBids(stockID, excludeTraderID, minPrice int64) ([]*domain.Order, error) {
	return tx.candidates(stockID, domain.OrderSideBid, excludeTraderID, func(price int64) bool {
		return price >= minPrice
	})
}

func (tx *pebbleTx) CandidateOffers(stockID, excludeTraderID, maxPrice int64) ([]*domain.Order, error) {
	return tx.candidates(stockID, domain.OrderSideOffer, excludeTraderID, func(price int64) bool {
		return price <= maxPrice
	})
}

func (tx *pebbleTx) candidates(stockID int64, side domain.OrderSide, excludeTraderID int64, priceOK func(int64) bool) ([]*domain.Order, error) {
	result := make([]*domain.Order, 0)
	err := tx.scan("scan book", bookPrefix(stockID, side), false, func(key, _ []byte) (bool, error) {
		price, orderID, err := parseBookKey(side, key)
		if err != nil {
			return false, &domain.StorageError{Op: "scan book", Err: err}
		}
		if !priceOK(price) {
			return false, nil
		}
		o, err := tx.GetOrder(orderID)
		if err != nil {
			return false, err
		}
		if o.TraderID != excludeTraderID {
			result = append(result, o)
		}
		return true, nil
	})
	return result, err
}

func (tx *pebbleTx) ListOrders(stockID int64, side domain.OrderSide) ([]*domain.Order, error) {
	return tx.candidates(stockID, side, 0, func(int64) bool { return true })
}

func (tx *pebbleTx) ListTraderOrders(traderID int64) ([]*domain.Order, error) {
	result := make([]*domain.Order, 0)
	err := tx.scan("scan trader orders", ownerPrefix(traderID), false, func(key, _ []byte) (bool, error) {
		id, err := parseIDSuffix(key)
		if err != nil {
			return false, &domain.StorageError{Op: "scan trader orders", Err: err}
		}
		o, err := tx.GetOrder(id)
		if err != nil {
			return false, err
		}
		result = append(result, o)
		return true, nil
	})
	return result, err
}

func (tx *pebbleTx) putOrder(op string, o *domain.Order) error {
	if err := tx.set(op, orderKey(o.OrderID), encodeOrder(o)); err != nil {
		return err
	}
	if err := tx.set(op, bookKey(o), nil); err != nil {
		return err
	}
	return tx.set(op, ownerKey(o.TraderID, o.OrderID), nil)
}

func (tx *pebbleTx) removeOrder(op string, o *domain.Order) error {
	if err := tx.del(op, orderKey(o.OrderID)); err != nil {
		return err
	}
	if err := tx.del(op, bookKey(o)); err != nil {
		return err
	}
	return tx.del(op, ownerKey(o.TraderID, o.OrderID))
}

func (tx *pebbleTx) InsertOrder(o *domain.Order) (int64, error) {
	if o.Quantity <= 0 {
		return 0, domain.ErrNonPositiveQuantity
	}
	id, err := tx.nextID("order")
	if err != nil {
		return 0, err
	}
	o.OrderID = id
	if err := tx.putOrder("insert order", o); err != nil {
		return 0, err
	}
	return id, nil
}

func (tx *pebbleTx) UpdateOrder(id int64, date time.Time, quantity int64, side domain.OrderSide, price int64) error {
	if quantity <= 0 {
		return domain.ErrNonPositiveQuantity
	}
	o, err := tx.GetOrder(id)
	if err != nil {
		return err
	}
	// The book key embeds price, side and date, so it is replaced.
	if err := tx.del("update order", bookKey(o)); err != nil {
		return err
	}
	o.OrderDate = date
	o.Quantity = quantity
	o.Side = side
	o.Price = price
	return tx.putOrder("update order", o)
}

func (tx *pebbleTx) DeleteOrder(id int64) error {
	o, err := tx.GetOrder(id)
	if err != nil {
		return err
	}
	return tx.removeOrder("delete order", o)
}

func (tx *pebbleTx) InsertTrade(t *domain.Trade) (int64, error) {
	id, err := tx.nextID("trade")
	if err != nil {
		return 0, err
	}
	t.TradeID = id
	if err := tx.set("insert trade", tradeKey(id), encodeTrade(t)); err != nil {
		return 0, err
	}
	return id, nil
}

func (tx *pebbleTx) ListTrades(stockID int64) ([]*domain.Trade, error) {
	result := make([]*domain.Trade, 0)
	err := tx.scan("scan trades", []byte("trade/"), true, func(key, value []byte) (bool, error) {
		id, err := parseIDSuffix(key)
		if err != nil {
			return false, &domain.StorageError{Op: "scan trades", Err: err}
		}
		t, err := decodeTrade(id, value)
		if err != nil {
			return false, &domain.StorageError{Op: "scan trades", Err: err}
		}
		if stockID == 0 || t.StockID == stockID {
			result = append(result, t)
		}
		return true, nil
	})
	return result, err
}

// getJSON decodes the JSON value at key into v, reporting whether it exists.
func (tx *pebbleTx) getJSON(op string, key []byte, v any) (bool, error) {
	raw, ok, err := tx.get(op, key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, &domain.StorageError{Op: op, Err: err}
	}
	return true, nil
}

func (tx *pebbleTx) setJSON(op string, key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return &domain.StorageError{Op: op, Err: err}
	}
	return tx.set(op, key, raw)
}

// getRef resolves a secondary key holding an encoded id.
func (tx *pebbleTx) getRef(op string, key []byte) (int64, bool, error) {
	raw, ok, err := tx.get(op, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	id, err := decodeInt64(raw)
	if err != nil {
		return 0, false, &domain.StorageError{Op: op, Err: err}
	}
	return id, true, nil
}

func (tx *pebbleTx) GetStock(id int64) (*domain.Stock, error) {
	var st domain.Stock
	ok, err := tx.getJSON("get stock", stockKey(id), &st)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrStockNotFound
	}
	return &st, nil
}

func (tx *pebbleTx) GetStockBySymbol(symbol string) (*domain.Stock, error) {
	id, ok, err := tx.getRef("get stock by symbol", symbolKey(symbol))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrStockNotFound
	}
	return tx.GetStock(id)
}

func (tx *pebbleTx) ListStocks() ([]*domain.Stock, error) {
	result := make([]*domain.Stock, 0)
	err := tx.scan("scan stocks", []byte("stock/"), false, func(_, value []byte) (bool, error) {
		var st domain.Stock
		if err := json.Unmarshal(value, &st); err != nil {
			return false, &domain.StorageError{Op: "scan stocks", Err: err}
		}
		result = append(result, &st)
		return true, nil
	})
	return result, err
}

func (tx *pebbleTx) InsertStock(st *domain.Stock) (int64, error) {
	id, err := tx.nextID("stock")
	if err != nil {
		return 0, err
	}
	st.StockID = id
	if err := tx.setJSON("insert stock", stockKey(id), st); err != nil {
		return 0, err
	}
	if err := tx.set("insert stock", symbolKey(st.Symbol), encodeInt64(id)); err != nil {
		return 0, err
	}
	return id, nil
}

func (tx *pebbleTx) UpdateStockPrice(id, price int64, checked time.Time) error {
	st, err := tx.GetStock(id)
	if err != nil {
		return err
	}
	st.LastTradedPrice = price
	st.LastChecked = checked
	return tx.setJSON("update stock price", stockKey(id), st)
}

func (tx *pebbleTx) GetTrader(id int64) (*domain.Trader, error) {
	var t domain.Trader
	ok, err := tx.getJSON("get trader", traderKey(id), &t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrTraderNotFound
	}
	return &t, nil
}

func (tx *pebbleTx) GetTraderByName(name string) (*domain.Trader, error) {
	id, ok, err := tx.getRef("get trader by name", tradernameKey(strings.ToLower(name)))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrTraderNotFound
	}
	return tx.GetTrader(id)
}

func (tx *pebbleTx) InsertTrader(t *domain.Trader) (int64, error) {
	nameKey := tradernameKey(strings.ToLower(t.Tradername))
	_, exists, err := tx.getRef("insert trader", nameKey)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, domain.ErrTraderAlreadyExists
	}
	id, err := tx.nextID("trader")
	if err != nil {
		return 0, err
	}
	t.TraderID = id
	if err := tx.setJSON("insert trader", traderKey(id), t); err != nil {
		return 0, err
	}
	if err := tx.set("insert trader", nameKey, encodeInt64(id)); err != nil {
		return 0, err
	}
	return id, nil
}
