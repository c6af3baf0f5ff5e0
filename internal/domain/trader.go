package domain

import "time"

// Trader represents a registered participant on the exchange.
type Trader struct {
	TraderID     int64
	FirstName    string
	LastName     string
	Tradername   string
	PasswordHash []byte
	CreatedAt    time.Time
}

// DisplayName returns "First Last".
func (t *Trader) DisplayName() string {
	return t.FirstName + " " + t.LastName
}
