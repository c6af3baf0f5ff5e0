package domain

import "testing"

func TestOrderSide_Opposite(t *testing.T) {
	if OrderSideBid.Opposite() != OrderSideOffer {
		t.Errorf("Bid.Opposite() = %q, want Offer", OrderSideBid.Opposite())
	}
	if OrderSideOffer.Opposite() != OrderSideBid {
		t.Errorf("Offer.Opposite() = %q, want Bid", OrderSideOffer.Opposite())
	}
}

func TestOrderSide_Valid(t *testing.T) {
	for _, s := range []OrderSide{OrderSideBid, OrderSideOffer} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []OrderSide{"", "bid", "ask", "Buy"} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestOrder_Parties(t *testing.T) {
	bid := &Order{TraderID: 2, Side: OrderSideBid}
	offer := &Order{TraderID: 1, Side: OrderSideOffer}

	seller, buyer := bid.Parties(offer)
	if seller != 1 || buyer != 2 {
		t.Errorf("bid.Parties(offer) = (%d, %d), want (1, 2)", seller, buyer)
	}

	seller, buyer = offer.Parties(bid)
	if seller != 1 || buyer != 2 {
		t.Errorf("offer.Parties(bid) = (%d, %d), want (1, 2)", seller, buyer)
	}
}
