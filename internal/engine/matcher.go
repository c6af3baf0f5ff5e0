package engine

import (
	"time"

	"github.com/efreitasn/stockmarket/internal/domain"
	"github.com/efreitasn/stockmarket/internal/store"
)

// MatchResult holds the trades produced by one matching pass, in execution
// order.
type MatchResult struct {
	Trades []*domain.Trade
}

// TradeOccurred reports whether the pass produced at least one trade.
func (r *MatchResult) TradeOccurred() bool {
	return len(r.Trades) > 0
}

// Matcher implements the matching engine for limit orders. It holds no book
// of its own: every pass reads and writes through the transaction it is
// given, so the caller decides atomicity and locking.
type Matcher struct {
	now func() time.Time
}

// NewMatcher creates a new Matcher that stamps trades with the wall clock.
func NewMatcher() *Matcher {
	return &Matcher{now: time.Now}
}

// Match runs one matching pass for the order identified by triggerID, which
// must already be persisted.
//
// Candidates are the opposite-side orders on the same stock whose price
// crosses the trigger's, excluding orders of the trigger's own trader. They
// are visited in price-time priority. Each fill trades at the higher of the
// two prices and for the smaller of the two quantities. A fully consumed
// candidate is deleted, otherwise its quantity is reduced in place. When the
// trigger is fully consumed it is deleted and the pass stops.
//
// Any error from tx aborts the pass immediately and is returned unchanged;
// callers running inside Store.Update get the whole pass rolled back.
func (m *Matcher) Match(tx store.Tx, triggerID int64) (*MatchResult, error) {
	trigger, err := tx.GetOrder(triggerID)
	if err != nil {
		return nil, err
	}

	var candidates []*domain.Order
	if trigger.Side == domain.OrderSideOffer {
		candidates, err = tx.CandidateBids(trigger.StockID, trigger.TraderID, trigger.Price)
	} else {
		candidates, err = tx.CandidateOffers(trigger.StockID, trigger.TraderID, trigger.Price)
	}
	if err != nil {
		return nil, err
	}

	result := &MatchResult{Trades: make([]*domain.Trade, 0)}

	for _, candidate := range candidates {
		// The trigger's quantity changes every iteration.
		trigger, err = tx.GetOrder(triggerID)
		if err != nil {
			return nil, err
		}

		price := max(trigger.Price, candidate.Price)
		quantity := min(trigger.Quantity, candidate.Quantity)
		sellerID, buyerID := trigger.Parties(candidate)

		trade := &domain.Trade{
			StockID:   trigger.StockID,
			SellerID:  sellerID,
			BuyerID:   buyerID,
			TradeDate: m.now(),
			Price:     price,
			Quantity:  quantity,
		}
		if _, err := tx.InsertTrade(trade); err != nil {
			return nil, err
		}
		result.Trades = append(result.Trades, trade)

		if residual := candidate.Quantity - quantity; residual > 0 {
			err = tx.UpdateOrder(candidate.OrderID, candidate.OrderDate, residual, candidate.Side, candidate.Price)
		} else {
			err = tx.DeleteOrder(candidate.OrderID)
		}
		if err != nil {
			return nil, err
		}

		residual := trigger.Quantity - quantity
		if residual <= 0 {
			if err := tx.DeleteOrder(triggerID); err != nil {
				return nil, err
			}
			break
		}
		if err := tx.UpdateOrder(triggerID, trigger.OrderDate, residual, trigger.Side, trigger.Price); err != nil {
			return nil, err
		}
	}

	return result, nil
}
