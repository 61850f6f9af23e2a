package source

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"pricefinder/internal/currency"
	"pricefinder/internal/product"
)

// A Source resolves a barcode into a single-vendor product view.
//
// Implementations reserve errors for transport failures, auth rejection, and
// retry exhaustion; a vendor answering "unknown barcode" (or an unparsable
// body) is a nil view with a nil error. Errors never escalate past the
// aggregation engine, which records them per source.
type Source interface {
	Name() string
	Fetch(ctx context.Context, barcode string) (*product.View, error)
}

func digitsOnly(barcode string) string {
	var b strings.Builder
	for _, r := range barcode {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// flexPrice parses a price field that vendors send either as a JSON number
// or as a formatted string.
func flexPrice(raw json.RawMessage) *decimal.Decimal {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	trimmed = strings.Trim(trimmed, `"`)
	return currency.ParsePrice(trimmed)
}

// lowestPrice returns the smallest non-nil offer price.
func lowestPrice(offers []product.StoreOffer) *decimal.Decimal {
	var lowest *decimal.Decimal
	for _, offer := range offers {
		if offer.Price == nil {
			continue
		}
		if lowest == nil || offer.Price.LessThan(*lowest) {
			lowest = offer.Price
		}
	}
	return lowest
}
