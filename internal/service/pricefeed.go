package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/efreitasn/stockmarket/internal/domain"
)

// PriceSource quotes the current market price of a symbol in cents.
type PriceSource interface {
	Price(ctx context.Context, symbol string) (int64, error)
}

// HTTPPriceSource fetches prices from an HTTP endpoint answering
// GET <base>?symbol=SYM with {"price":"183.09"}.
type HTTPPriceSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPPriceSource creates a source querying baseURL with the given
// per-request timeout.
func NewHTTPPriceSource(baseURL string, timeout time.Duration) *HTTPPriceSource {
	return &HTTPPriceSource{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type priceQuote struct {
	Price string `json:"price"`
}

func (p *HTTPPriceSource) Price(ctx context.Context, symbol string) (int64, error) {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return 0, fmt.Errorf("parse price feed url: %w", err)
	}
	q := u.Query()
	q.Set("symbol", symbol)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price feed returned status %d for %s", resp.StatusCode, symbol)
	}

	var quote priceQuote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return 0, fmt.Errorf("decode price for %s: %w", symbol, err)
	}
	cents, err := domain.ParseCents(quote.Price)
	if err != nil {
		return 0, fmt.Errorf("price for %s: %w", symbol, err)
	}
	if cents <= 0 {
		return 0, fmt.Errorf("price for %s must be positive, got %s", symbol, quote.Price)
	}
	return cents, nil
}

// PriceFeed periodically refreshes the last traded price of every stock
// from a PriceSource.
type PriceFeed struct {
	interval time.Duration
	source   PriceSource
	stocks   *StockService
	logger   *slog.Logger
	now      func() time.Time
}

// NewPriceFeed creates a new PriceFeed with the given dependencies.
func NewPriceFeed(interval time.Duration, source PriceSource, stocks *StockService, logger *slog.Logger) *PriceFeed {
	return &PriceFeed{
		interval: interval,
		source:   source,
		stocks:   stocks,
		logger:   logger,
		now:      time.Now,
	}
}

// Start launches a background goroutine that refreshes prices at the
// configured interval. It stops when ctx is cancelled.
func (f *PriceFeed) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				f.Refresh(ctx)
			}
		}
	}()
}

// Refresh updates every stock once and returns how many were updated. A
// failing stock is logged and skipped.
func (f *PriceFeed) Refresh(ctx context.Context) int {
	stocks, err := f.stocks.ListStocks(ctx)
	if err != nil {
		f.logger.Error("price feed: list stocks", slog.String("error", err.Error()))
		return 0
	}

	updated := 0
	for _, st := range stocks {
		price, err := f.source.Price(ctx, st.Symbol)
		if err != nil {
			f.logger.Warn("price feed: fetch failed",
				slog.String("symbol", st.Symbol),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := f.stocks.UpdatePrice(ctx, st.StockID, price, f.now().UTC()); err != nil {
			f.logger.Error("price feed: update failed",
				slog.String("symbol", st.Symbol),
				slog.String("error", err.Error()),
			)
			continue
		}
		updated++
	}
	f.logger.Debug("price feed refreshed", slog.Int("updated", updated), slog.Int("stocks", len(stocks)))
	return updated
}
