package store

import (
	"time"

	"github.com/efreitasn/stockmarket/internal/domain"
	"github.com/google/btree"
)

// bookEntry is the index key of one resting order.
type bookEntry struct {
	Price     int64
	OrderDate time.Time
	OrderID   int64
}

func entryFor(o *domain.Order) bookEntry {
	return bookEntry{Price: o.Price, OrderDate: o.OrderDate, OrderID: o.OrderID}
}

// bidLess defines ordering for the bid side: price descending, then
// order date ascending, then order id ascending. Ascend visits the best
// bid first.
func bidLess(a, b bookEntry) bool {
	if a.Price != b.Price {
		return a.Price > b.Price
	}
	if !a.OrderDate.Equal(b.OrderDate) {
		return a.OrderDate.Before(b.OrderDate)
	}
	return a.OrderID < b.OrderID
}

// offerLess defines ordering for the offer side: price ascending, then
// order date ascending, then order id ascending.
func offerLess(a, b bookEntry) bool {
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	if !a.OrderDate.Equal(b.OrderDate) {
		return a.OrderDate.Before(b.OrderDate)
	}
	return a.OrderID < b.OrderID
}

// bookIndex keeps the bids and offers of a single stock in price-time
// priority using B-trees.
type bookIndex struct {
	bids   *btree.BTreeG[bookEntry]
	offers *btree.BTreeG[bookEntry]
}

func newBookIndex() *bookIndex {
	const degree = 32
	return &bookIndex{
		bids:   btree.NewG[bookEntry](degree, bidLess),
		offers: btree.NewG[bookEntry](degree, offerLess),
	}
}

func (b *bookIndex) side(s domain.OrderSide) *btree.BTreeG[bookEntry] {
	if s == domain.OrderSideBid {
		return b.bids
	}
	return b.offers
}

func (b *bookIndex) insert(o *domain.Order) {
	b.side(o.Side).ReplaceOrInsert(entryFor(o))
}

func (b *bookIndex) remove(o *domain.Order) {
	b.side(o.Side).Delete(entryFor(o))
}

// walk visits the entries of one side best first until fn returns false.
func (b *bookIndex) walk(s domain.OrderSide, fn func(bookEntry) bool) {
	b.side(s).Ascend(fn)
}
