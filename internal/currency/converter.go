package currency

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	// CanonicalCurrency is the currency every price is normalised to.
	CanonicalCurrency = "CAD"
	// BaseCurrency is the currency the provider's multipliers are relative to.
	BaseCurrency = "USD"
)

// Converter normalises amounts into the canonical currency. Conversion is
// best effort: an amount in an unknown currency passes through unchanged.
type Converter struct {
	cache  *Cache
	logger zerolog.Logger
}

// NewConverter constructs a converter backed by the given cache.
func NewConverter(cache *Cache, logger zerolog.Logger) *Converter {
	return &Converter{
		cache:  cache,
		logger: logger.With().Str("component", "currency_converter").Logger(),
	}
}

// ToCanonical converts an amount from the given currency into the canonical
// one. A nil amount stays nil; an amount already canonical is returned
// unchanged.
func (cv *Converter) ToCanonical(ctx context.Context, amount *decimal.Decimal, from string) *decimal.Decimal {
	if amount == nil {
		return nil
	}

	code := strings.ToUpper(strings.TrimSpace(from))
	if code == "" {
		code = BaseCurrency
	}
	if code == CanonicalCurrency {
		return amount
	}

	rates := cv.cache.Rates(ctx)
	canonicalRate, ok := rates[CanonicalCurrency]
	if !ok || canonicalRate.IsZero() {
		cv.logger.Warn().Str("currency", code).Msg("canonical currency missing from rate table, passing amount through")
		return amount
	}

	value := *amount
	if code != BaseCurrency {
		fromRate, ok := rates[code]
		if !ok || fromRate.IsZero() {
			cv.logger.Warn().Str("currency", code).Msg("currency missing from rate table, passing amount through")
			return amount
		}
		value = value.Div(fromRate)
	}

	value = value.Mul(canonicalRate)
	return &value
}

// ParsePrice extracts a decimal amount from a vendor price string such as
// "CA$12.99" or "$1,234.56". Returns nil when no usable number remains.
func ParsePrice(raw string) *decimal.Decimal {
	cleaned := strings.NewReplacer("CA$", "", "C$", "", "$", "", ",", "").Replace(raw)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil
	}
	return &d
}
