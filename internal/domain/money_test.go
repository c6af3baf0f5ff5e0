package domain

import (
	"testing"

	"pgregory.net/rapid"
)

func TestParseCents(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"zero", "0", 0, false},
		{"whole units", "100", 10000, false},
		{"one decimal place", "1.5", 150, false},
		{"two decimal places", "148.50", 14850, false},
		{"small amount", "0.01", 1, false},
		{"trailing zeros", "1.500", 150, false},
		{"surrounding spaces", " 10.00 ", 1000, false},
		{"negative value", "-50.25", -5025, false},
		{"three decimal places", "1.234", 0, true},
		{"many decimal places", "0.001", 0, true},
		{"not a number", "abc", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCents(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseCents(%q) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("ParseCents(%q) unexpected error: %v", tt.input, err)
				return
			}
			if got != tt.want {
				t.Errorf("ParseCents(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatCents(t *testing.T) {
	tests := []struct {
		input int64
		want  string
	}{
		{0, "0.00"},
		{1, "0.01"},
		{100, "1.00"},
		{18309, "183.09"},
		{-5025, "-50.25"},
	}

	for _, tt := range tests {
		if got := FormatCents(tt.input); got != tt.want {
			t.Errorf("FormatCents(%d) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPriceBand(t *testing.T) {
	// 10% of 183.09 is 18.309, so the band is [164.79, 201.39] in whole cents.
	lo, hi := PriceBand(18309, 10)
	if lo != 16479 || hi != 20139 {
		t.Fatalf("PriceBand(18309, 10) = [%d, %d], want [16479, 20139]", lo, hi)
	}

	if !WithinBand(1000, 1000, 10) {
		t.Error("reference price should be within its own band")
	}
	if !WithinBand(1100, 1000, 10) || !WithinBand(900, 1000, 10) {
		t.Error("band edges should be inclusive")
	}
	if WithinBand(1101, 1000, 10) || WithinBand(899, 1000, 10) {
		t.Error("prices past the band edges should be rejected")
	}
}

func TestProperty_CentsTextRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cents := rapid.Int64Range(-99_999_999_99, 99_999_999_99).Draw(t, "cents")

		got, err := ParseCents(FormatCents(cents))
		if err != nil {
			t.Fatalf("ParseCents(FormatCents(%d)) returned error: %v", cents, err)
		}
		if got != cents {
			t.Fatalf("round-trip failed: %d → %q → %d", cents, FormatCents(cents), got)
		}
	})
}

func TestProperty_BandContainsReference(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ref := rapid.Int64Range(1, 1_000_000_00).Draw(t, "reference")
		pct := rapid.IntRange(1, 100).Draw(t, "percent")

		lo, hi := PriceBand(ref, pct)
		if lo > ref || hi < ref {
			t.Fatalf("band [%d, %d] does not contain reference %d", lo, hi, ref)
		}
	})
}
