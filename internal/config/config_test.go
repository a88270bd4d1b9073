package config

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":            "postgres://localhost/kodpazar",
		"REDIS_URL":               "redis://localhost:6379",
		"JWT_SECRET":              "secret",
		"TAX_RATE_PERCENT":        "",
		"DEFAULT_COMMISSION_RATE": "",
		"CURRENCY_CODE":           "",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CurrencyCode != "TRY" {
		t.Fatalf("currency = %q, want TRY", cfg.CurrencyCode)
	}
	if !cfg.TaxRatePercent.Equal(decimal.NewFromInt(18)) {
		t.Fatalf("tax rate = %s, want 18", cfg.TaxRatePercent)
	}
	if !cfg.DefaultCommissionRate.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("commission = %s, want 15", cfg.DefaultCommissionRate)
	}
	if !cfg.IncentiveMaxPercent.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("incentive cap = %s, want 50", cfg.IncentiveMaxPercent)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"DATABASE_URL": "",
		"REDIS_URL":    "redis://localhost:6379",
		"JWT_SECRET":   "secret",
	})
	if err == nil {
		t.Fatal("expected error for missing DATABASE_URL")
	}
}

func TestHTTPAddr(t *testing.T) {
	c := &Config{Port: "9090"}
	if got := c.HTTPAddr(); got != ":9090" {
		t.Fatalf("addr = %q", got)
	}
	c.Port = ":7070"
	if got := c.HTTPAddr(); got != ":7070" {
		t.Fatalf("addr = %q", got)
	}
	c.Port = " "
	if got := c.HTTPAddr(); got != ":8080" {
		t.Fatalf("addr = %q", got)
	}
}
