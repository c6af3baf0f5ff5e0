package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/efreitasn/stockmarket/internal/domain"
	"github.com/efreitasn/stockmarket/internal/store"
)

// mockPriceSource returns fixed prices and fails for unknown symbols.
type mockPriceSource struct {
	mu     sync.Mutex
	prices map[string]int64
	calls  int
}

func (m *mockPriceSource) Price(_ context.Context, symbol string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	p, ok := m.prices[symbol]
	if !ok {
		return 0, errors.New("no quote")
	}
	return p, nil
}

func (m *mockPriceSource) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func seededStocks(t *testing.T) *StockService {
	t.Helper()
	svc := NewStockService(store.NewMemoryStore(), discardLogger())
	err := svc.SeedStocks(context.Background(), []domain.Stock{
		{Symbol: "AAPL", Name: "Apple", LastTradedPrice: 18309},
		{Symbol: "MSFT", Name: "Microsoft", LastTradedPrice: 40000},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return svc
}

func TestPriceFeed_RefreshSkipsFailures(t *testing.T) {
	stocks := seededStocks(t)
	src := &mockPriceSource{prices: map[string]int64{"AAPL": 19000}}
	feed := NewPriceFeed(time.Minute, src, stocks, discardLogger())
	checked := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	feed.now = func() time.Time { return checked }

	if n := feed.Refresh(context.Background()); n != 1 {
		t.Fatalf("got %d updated, want 1", n)
	}

	aapl, _ := stocks.GetStock(context.Background(), 1)
	if aapl.LastTradedPrice != 19000 || !aapl.LastChecked.Equal(checked) {
		t.Errorf("unexpected AAPL %+v", aapl)
	}
	msft, _ := stocks.GetStock(context.Background(), 2)
	if msft.LastTradedPrice != 40000 {
		t.Errorf("expected MSFT untouched, got %d", msft.LastTradedPrice)
	}
}

func TestPriceFeed_StartStopsOnCancel(t *testing.T) {
	stocks := seededStocks(t)
	src := &mockPriceSource{prices: map[string]int64{"AAPL": 19000, "MSFT": 41000}}
	feed := NewPriceFeed(10*time.Millisecond, src, stocks, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	feed.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for src.callCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if src.callCount() < 2 {
		t.Fatal("expected the feed to tick at least once")
	}

	// Let an in-flight tick finish, then verify no further calls.
	time.Sleep(30 * time.Millisecond)
	after := src.callCount()
	time.Sleep(50 * time.Millisecond)
	if src.callCount() != after {
		t.Errorf("expected no ticks after cancel, got %d more", src.callCount()-after)
	}
}

func TestHTTPPriceSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("symbol") {
		case "AAPL":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"price":"183.09"}`))
		case "BAD":
			w.Write([]byte(`{"price":"1.234"}`))
		case "ZERO":
			w.Write([]byte(`{"price":"0"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := NewHTTPPriceSource(srv.URL+"/quote", time.Second)

	got, err := src.Price(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 18309 {
		t.Errorf("got %d, want 18309", got)
	}

	for _, sym := range []string{"BAD", "ZERO", "NOPE"} {
		if _, err := src.Price(context.Background(), sym); err == nil {
			t.Errorf("%s: expected error", sym)
		}
	}
}
