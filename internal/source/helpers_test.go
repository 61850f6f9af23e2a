package source

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pricefinder/internal/currency"
)

func noopLogger() zerolog.Logger { return zerolog.Nop() }

type staticRates map[string]decimal.Decimal

func (r staticRates) Rates(ctx context.Context) (map[string]decimal.Decimal, error) {
	return r, nil
}

// testConverter uses CAD=1.25 and EUR=0.5 so converted amounts stay exact.
func testConverter() *currency.Converter {
	rates := staticRates{
		"USD": decimal.NewFromInt(1),
		"CAD": decimal.NewFromFloat(1.25),
		"EUR": decimal.NewFromFloat(0.5),
	}
	cache := currency.NewCache(rates, time.Hour, noopLogger())
	return currency.NewConverter(cache, noopLogger())
}

func dec(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}
