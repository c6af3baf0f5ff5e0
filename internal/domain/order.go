package domain

import "time"

// OrderSide indicates whether an order is a bid (buy) or offer (sell).
type OrderSide string

const (
	OrderSideBid   OrderSide = "Bid"
	OrderSideOffer OrderSide = "Offer"
)

// Valid reports whether s is one of the known sides.
func (s OrderSide) Valid() bool {
	return s == OrderSideBid || s == OrderSideOffer
}

// Opposite returns the side an order of side s trades against.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBid {
		return OrderSideOffer
	}
	return OrderSideBid
}

// Order is a resting bid or offer placed by a trader. An order only exists
// in storage while its Quantity is positive; a fully consumed order is
// deleted rather than kept with a zero quantity.
type Order struct {
	OrderID   int64
	TraderID  int64
	StockID   int64
	Side      OrderSide
	Price     int64 // cents
	Quantity  int64
	OrderDate time.Time // creation or last modification
}

// Parties returns the selling and buying traders of a trade between o and
// counter. The side of o decides which is which.
func (o *Order) Parties(counter *Order) (sellerID, buyerID int64) {
	if o.Side == OrderSideOffer {
		return o.TraderID, counter.TraderID
	}
	return counter.TraderID, o.TraderID
}
