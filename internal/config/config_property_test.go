package config

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/efreitasn/stockmarket/internal/domain"
)

// validLogLevels are the accepted log level values.
var validLogLevels = []string{"debug", "info", "warn", "error"}

// durationEnvKeys lists the Config fields parsed as time.Duration with
// their defaults.
var durationEnvKeys = map[string]time.Duration{
	"READ_TIMEOUT":        5 * time.Second,
	"WRITE_TIMEOUT":       10 * time.Second,
	"IDLE_TIMEOUT":        60 * time.Second,
	"SHUTDOWN_TIMEOUT":    10 * time.Second,
	"SESSION_TTL":         24 * time.Hour,
	"PRICE_FEED_INTERVAL": time.Minute,
	"PRICE_FEED_TIMEOUT":  5 * time.Second,
}

// unsetAllConfigEnv clears all config env vars.
func unsetAllConfigEnv() {
	for _, key := range allEnvKeys {
		os.Unsetenv(key)
	}
}

// genDurationString generates a valid Go duration string (e.g. "3s", "500ms", "2m").
func genDurationString() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		unit := rapid.SampledFrom([]string{"ms", "s", "m"}).Draw(t, "unit")
		val := rapid.IntRange(1, 600).Draw(t, "val")
		return fmt.Sprintf("%d%s", val, unit)
	})
}

func durationFields(cfg *Config) map[string]time.Duration {
	return map[string]time.Duration{
		"READ_TIMEOUT":        cfg.ReadTimeout,
		"WRITE_TIMEOUT":       cfg.WriteTimeout,
		"IDLE_TIMEOUT":        cfg.IdleTimeout,
		"SHUTDOWN_TIMEOUT":    cfg.ShutdownTimeout,
		"SESSION_TTL":         cfg.SessionTTL,
		"PRICE_FEED_INTERVAL": cfg.PriceFeedInterval,
		"PRICE_FEED_TIMEOUT":  cfg.PriceFeedTimeout,
	}
}

func TestProperty_ValidConfigParsing(t *testing.T) {
	clearEnv(t)
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		// Empty string means "use default" (env var not set).
		port := rapid.IntRange(1, 65535).Draw(t, "port")
		logLevel := rapid.OneOf(rapid.Just(""), rapid.SampledFrom(validLogLevels)).Draw(t, "logLevel")
		band := rapid.IntRange(1, 100).Draw(t, "band")

		durStrs := make(map[string]string, len(durationEnvKeys))
		for _, key := range slices.Sorted(maps.Keys(durationEnvKeys)) {
			durStrs[key] = rapid.OneOf(rapid.Just(""), genDurationString()).Draw(t, key)
			if durStrs[key] != "" {
				os.Setenv(key, durStrs[key])
			}
		}
		os.Setenv("PORT", fmt.Sprint(port))
		os.Setenv("PRICE_BAND_PERCENT", fmt.Sprint(band))
		if logLevel != "" {
			os.Setenv("LOG_LEVEL", logLevel)
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() returned error for valid inputs: %v", err)
		}

		if cfg.Port != port {
			t.Fatalf("Port = %d, want %d", cfg.Port, port)
		}
		if cfg.PriceBandPercent != band {
			t.Fatalf("PriceBandPercent = %d, want %d", cfg.PriceBandPercent, band)
		}
		expectedLogLevel := "info"
		if logLevel != "" {
			expectedLogLevel = logLevel
		}
		if cfg.LogLevel != expectedLogLevel {
			t.Fatalf("LogLevel = %q, want %q", cfg.LogLevel, expectedLogLevel)
		}

		for key, got := range durationFields(cfg) {
			expected := durationEnvKeys[key]
			if durStrs[key] != "" {
				expected, _ = time.ParseDuration(durStrs[key])
			}
			if got != expected {
				t.Fatalf("%s = %v, want %v (env=%q)", key, got, expected, durStrs[key])
			}
		}
	})
}

func TestProperty_InvalidBandReturnsError(t *testing.T) {
	clearEnv(t)
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		band := rapid.OneOf(rapid.IntRange(-1000, 0), rapid.IntRange(101, 1000)).Draw(t, "band")
		os.Setenv("PRICE_BAND_PERCENT", fmt.Sprint(band))

		if _, err := Load(); err == nil {
			t.Fatalf("Load() should return error for PRICE_BAND_PERCENT=%d", band)
		}
	})
}

func TestProperty_InvalidLogLevelReturnsError(t *testing.T) {
	clearEnv(t)
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		invalidLevel := rapid.StringMatching(`[a-z]{1,20}`).Filter(func(s string) bool {
			for _, v := range validLogLevels {
				if s == v {
					return false
				}
			}
			return true
		}).Draw(t, "invalidLevel")

		os.Setenv("LOG_LEVEL", invalidLevel)

		if _, err := Load(); err == nil {
			t.Fatalf("Load() should return error for invalid LOG_LEVEL %q", invalidLevel)
		}
	})
}

func TestProperty_SeedStocksRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(t, "n")
		symbols := rapid.SliceOfNDistinct(rapid.StringMatching(`[A-Z]{1,5}`), n, n, rapid.ID[string]).Draw(t, "symbols")

		want := make([]domain.Stock, n)
		entries := make([]string, n)
		for i, sym := range symbols {
			cents := rapid.Int64Range(0, 10_000_000).Draw(t, "cents")
			name := rapid.StringMatching(`[A-Za-z][A-Za-z ]{0,15}[A-Za-z]`).Draw(t, "name")
			want[i] = domain.Stock{Symbol: sym, Name: name, LastTradedPrice: cents}
			entries[i] = fmt.Sprintf("%s:%s:%s", strings.ToLower(sym), name, domain.FormatCents(cents))
		}

		got, err := ParseSeedStocks(strings.Join(entries, ","))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != n {
			t.Fatalf("got %d stocks, want %d", len(got), n)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("stock %d = %+v, want %+v", i, got[i], want[i])
			}
		}
	})
}
