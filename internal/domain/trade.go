package domain

import "time"

// Trade is the immutable record of one execution between a bid and an
// offer. It deliberately carries no order ids: residual orders keep their
// ids across partial fills.
type Trade struct {
	TradeID   int64
	StockID   int64
	SellerID  int64
	BuyerID   int64
	TradeDate time.Time
	Price     int64 // cents
	Quantity  int64
}
