package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults must not error: %v", err)
	}

	if cfg.Server.RateLimitRequests != 30 {
		t.Fatalf("unexpected rate limit capacity %d", cfg.Server.RateLimitRequests)
	}
	if cfg.Server.RateLimitPeriod != time.Minute {
		t.Fatalf("unexpected rate limit period %v", cfg.Server.RateLimitPeriod)
	}
	if cfg.Aggregate.Timeout != 25*time.Second {
		t.Fatalf("unexpected aggregate timeout %v", cfg.Aggregate.Timeout)
	}
	if cfg.Exchange.CacheTTL != time.Hour {
		t.Fatalf("unexpected exchange cache ttl %v", cfg.Exchange.CacheTTL)
	}
	if !cfg.Sources.BarcodeSpider.Enabled || cfg.Sources.BarcodeSpider.MinInterval != 5*time.Second {
		t.Fatalf("unexpected barcode spider config %+v", cfg.Sources.BarcodeSpider)
	}
	if cfg.Sources.OpenFoodFacts.BaseURL == "" {
		t.Fatal("source base urls must have defaults")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults must not error: %v", err)
	}

	cfg.Server.RateLimitRequests = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero rate limit capacity must be rejected")
	}

	cfg.Server.RateLimitRequests = 30
	cfg.Aggregate.Timeout = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero aggregate timeout must be rejected")
	}

	cfg.Aggregate.Timeout = time.Second
	cfg.Sources.BarcodeSpider.MinInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("an enabled throttled source needs a positive min interval")
	}
}
