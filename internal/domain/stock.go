package domain

import "time"

// Stock is a tradable instrument. LastTradedPrice is refreshed by the
// external price feed and bounds the prices accepted for new orders.
type Stock struct {
	StockID         int64
	Symbol          string
	Name            string
	LastTradedPrice int64 // cents
	LastChecked     time.Time
}
