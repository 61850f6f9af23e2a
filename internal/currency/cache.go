package currency

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultTTL is how long a fetched rate table is reused before refreshing.
const DefaultTTL = time.Hour

// fallbackRates keeps conversion alive when the provider has never answered.
var fallbackRates = map[string]decimal.Decimal{
	CanonicalCurrency: decimal.NewFromFloat(1.35),
}

// Cache memoises a rate table for a TTL. A failed refresh keeps the last
// known table when one exists and otherwise serves the hard-coded fallback,
// so lookups downstream never observe an error.
type Cache struct {
	provider RateProvider
	ttl      time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	mu          sync.Mutex
	rates       map[string]decimal.Decimal
	lastUpdated time.Time
}

// NewCache constructs a rate cache around the given provider.
func NewCache(provider RateProvider, ttl time.Duration, logger zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		provider: provider,
		ttl:      ttl,
		logger:   logger.With().Str("component", "exchange_cache").Logger(),
		now:      time.Now,
	}
}

// Rates returns the current rate table, refreshing it when stale.
func (c *Cache) Rates(ctx context.Context) map[string]decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.rates != nil && now.Sub(c.lastUpdated) < c.ttl {
		return c.rates
	}

	rates, err := c.provider.Rates(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("exchange rate refresh failed")
		if c.rates != nil {
			return c.rates
		}
		return fallbackRates
	}

	c.rates = rates
	c.lastUpdated = now
	return c.rates
}
