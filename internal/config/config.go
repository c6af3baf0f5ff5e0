package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/efreitasn/stockmarket/internal/domain"
)

// DefaultSeedStocks is the stock list used when SEED_STOCKS is unset.
const DefaultSeedStocks = "AAPL:Apple:183.09"

// Config holds all runtime configuration for the stock market service.
type Config struct {
	Port            int
	LogLevel        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// DataDir selects the pebble store; empty keeps everything in memory.
	DataDir          string
	PriceBandPercent int
	SessionTTL       time.Duration
	SeedStocks       []domain.Stock

	// PriceFeedURL enables the price feed when set.
	PriceFeedURL      string
	PriceFeedInterval time.Duration
	PriceFeedTimeout  time.Duration

	// KafkaBrokers enables trade publishing to KafkaTopic when non-empty.
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	band, err := getInt("PRICE_BAND_PERCENT", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid PRICE_BAND_PERCENT: %w", err)
	}
	if band < 1 || band > 100 {
		return nil, fmt.Errorf("invalid PRICE_BAND_PERCENT: %d, must be between 1 and 100", band)
	}

	sessionTTL, err := getPositiveDuration("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	seeds, err := ParseSeedStocks(getStr("SEED_STOCKS", DefaultSeedStocks))
	if err != nil {
		return nil, fmt.Errorf("invalid SEED_STOCKS: %w", err)
	}

	feedInterval, err := getPositiveDuration("PRICE_FEED_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}

	feedTimeout, err := getPositiveDuration("PRICE_FEED_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:              port,
		LogLevel:          logLevel,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ShutdownTimeout:   shutdownTimeout,
		DataDir:           os.Getenv("DATA_DIR"),
		PriceBandPercent:  band,
		SessionTTL:        sessionTTL,
		SeedStocks:        seeds,
		PriceFeedURL:      os.Getenv("PRICE_FEED_URL"),
		PriceFeedInterval: feedInterval,
		PriceFeedTimeout:  feedTimeout,
		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:        getStr("KAFKA_TOPIC", "trades"),
	}, nil
}

// ParseSeedStocks parses a comma separated list of SYMBOL:Name:price
// entries. Symbols are upper-cased and must be unique.
func ParseSeedStocks(s string) ([]domain.Stock, error) {
	var stocks []domain.Stock
	seen := make(map[string]bool)
	for _, entry := range splitList(s) {
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("entry %q: want SYMBOL:Name:price", entry)
		}
		symbol := strings.ToUpper(strings.TrimSpace(parts[0]))
		name := strings.TrimSpace(parts[1])
		if symbol == "" || name == "" {
			return nil, fmt.Errorf("entry %q: symbol and name are required", entry)
		}
		if seen[symbol] {
			return nil, fmt.Errorf("entry %q: duplicate symbol", entry)
		}
		price, err := domain.ParseCents(strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", entry, err)
		}
		if price < 0 {
			return nil, fmt.Errorf("entry %q: price must not be negative", entry)
		}
		seen[symbol] = true
		stocks = append(stocks, domain.Stock{Symbol: symbol, Name: name, LastTradedPrice: price})
	}
	return stocks, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func getPositiveDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	d, err := getDuration(key, defaultVal)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: %v, must be positive", key, d)
	}
	return d, nil
}

// splitList splits a comma separated list, dropping blank items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
