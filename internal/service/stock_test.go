package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/efreitasn/stockmarket/internal/domain"
	"github.com/efreitasn/stockmarket/internal/store"
)

func newTestStockService(t *testing.T) (*StockService, *testOrderEnv) {
	t.Helper()
	env := newTestOrderEnv(t)
	return NewStockService(env.store, discardLogger()), env
}

func TestSeedStocks_Idempotent(t *testing.T) {
	svc := NewStockService(store.NewMemoryStore(), discardLogger())
	seeds := []domain.Stock{
		{Symbol: "AAPL", Name: "Apple", LastTradedPrice: 18309},
		{Symbol: "MSFT", Name: "Microsoft", LastTradedPrice: 40000},
	}

	for i := 0; i < 2; i++ {
		if err := svc.SeedStocks(context.Background(), seeds); err != nil {
			t.Fatalf("seed #%d: %v", i+1, err)
		}
	}

	stocks, err := svc.ListStocks(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stocks) != 2 {
		t.Fatalf("got %d stocks, want 2", len(stocks))
	}
	if stocks[0].Symbol != "AAPL" || stocks[0].LastTradedPrice != 18309 {
		t.Errorf("unexpected first stock %+v", stocks[0])
	}
}

func TestGetStock_NotFound(t *testing.T) {
	svc, _ := newTestStockService(t)
	if _, err := svc.GetStock(context.Background(), 42); !errors.Is(err, domain.ErrStockNotFound) {
		t.Fatalf("expected ErrStockNotFound, got %v", err)
	}
}

func TestListOrdersAndTrades(t *testing.T) {
	svc, env := newTestStockService(t)
	ctx := context.Background()

	env.place(t, 1, domain.OrderSideBid, "9.90", 5)
	env.place(t, 2, domain.OrderSideBid, "10.00", 5)
	env.place(t, 1, domain.OrderSideOffer, "10.50", 5)
	env.place(t, 3, domain.OrderSideOffer, "10.00", 2)

	bids, err := svc.ListOrders(ctx, env.stockID, domain.OrderSideBid)
	if err != nil {
		t.Fatalf("list bids: %v", err)
	}
	if len(bids) != 2 || bids[0].Price != 1000 || bids[0].Quantity != 3 || bids[1].Price != 990 {
		t.Errorf("unexpected bids %+v %+v", bids[0], bids[1])
	}

	offers, err := svc.ListOrders(ctx, env.stockID, domain.OrderSideOffer)
	if err != nil {
		t.Fatalf("list offers: %v", err)
	}
	if len(offers) != 1 || offers[0].Price != 1050 {
		t.Errorf("unexpected offers %+v", offers)
	}

	trades, err := svc.ListTrades(ctx, env.stockID)
	if err != nil {
		t.Fatalf("list trades: %v", err)
	}
	if len(trades) != 1 || trades[0].Quantity != 2 || trades[0].SellerID != 3 || trades[0].BuyerID != 2 {
		t.Errorf("unexpected trades %+v", trades)
	}

	all, err := svc.ListTrades(ctx, 0)
	if err != nil || len(all) != 1 {
		t.Errorf("expected 1 trade across stocks, got %d, %v", len(all), err)
	}

	if _, err := svc.ListOrders(ctx, 99, domain.OrderSideBid); !errors.Is(err, domain.ErrStockNotFound) {
		t.Errorf("expected ErrStockNotFound, got %v", err)
	}
	if _, err := svc.ListTrades(ctx, 99); !errors.Is(err, domain.ErrStockNotFound) {
		t.Errorf("expected ErrStockNotFound, got %v", err)
	}
}

func TestGetBook_AggregatesLevels(t *testing.T) {
	svc, env := newTestStockService(t)

	env.place(t, 1, domain.OrderSideBid, "9.90", 5)
	env.place(t, 2, domain.OrderSideBid, "9.90", 7)
	env.place(t, 1, domain.OrderSideBid, "9.80", 1)
	env.place(t, 3, domain.OrderSideOffer, "10.10", 4)

	book, err := svc.GetBook(context.Background(), env.stockID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(book.Bids) != 1 {
		t.Fatalf("got %d bid levels, want 1", len(book.Bids))
	}
	if book.Bids[0] != (BookPriceLevel{Price: 990, TotalQuantity: 12, OrderCount: 2}) {
		t.Errorf("unexpected bid level %+v", book.Bids[0])
	}
	if book.Spread == nil || *book.Spread != 20 {
		t.Errorf("expected spread 20, got %v", book.Spread)
	}
	if book.Stock.Symbol != "AAPL" {
		t.Errorf("got stock %q, want AAPL", book.Stock.Symbol)
	}

	deep, _ := svc.GetBook(context.Background(), env.stockID, 10)
	if len(deep.Bids) != 2 || len(deep.Offers) != 1 {
		t.Errorf("got %d/%d levels, want 2/1", len(deep.Bids), len(deep.Offers))
	}
}

func TestGetBook_Validation(t *testing.T) {
	svc, env := newTestStockService(t)

	for _, depth := range []int{0, 51} {
		_, err := svc.GetBook(context.Background(), env.stockID, depth)
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("depth %d: expected ValidationError, got %v", depth, err)
		}
	}

	book, err := svc.GetBook(context.Background(), env.stockID, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if book.Spread != nil {
		t.Errorf("expected nil spread for an empty book, got %d", *book.Spread)
	}
}

func TestUpdatePrice(t *testing.T) {
	svc, env := newTestStockService(t)
	checked := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	if err := svc.UpdatePrice(context.Background(), env.stockID, 1234, checked); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st, _ := svc.GetStock(context.Background(), env.stockID)
	if st.LastTradedPrice != 1234 || !st.LastChecked.Equal(checked) {
		t.Errorf("unexpected stock %+v", st)
	}
}
