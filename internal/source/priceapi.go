package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pricefinder/internal/currency"
	"pricefinder/internal/product"
)

const priceAPIName = "PriceAPI"

// priceAPIRetailers is the fixed set of retailers the pay-per-query vendor is
// asked about. All of them quote in the canonical currency.
var priceAPIRetailers = []string{
	"amazon.ca",
	"walmart.ca",
	"canadiantire.ca",
	"shoppersdrug.ca",
}

// PriceAPIOptions parameterise the PriceAPI client.
type PriceAPIOptions struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// PriceAPI queries the pay-per-query retail pricing vendor against a fixed
// retailer list.
type PriceAPI struct {
	opts    PriceAPIOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewPriceAPI constructs a PriceAPI source.
func NewPriceAPI(opts PriceAPIOptions, logger zerolog.Logger) *PriceAPI {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.priceapi.com/v2"
	}

	return &PriceAPI{
		opts:    opts,
		logger:  logger.With().Str("component", "source_priceapi").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Name implements Source.
func (s *PriceAPI) Name() string { return priceAPIName }

// Fetch implements Source.
func (s *PriceAPI) Fetch(ctx context.Context, barcode string) (*product.View, error) {
	params := url.Values{}
	params.Set("api_key", s.opts.APIKey)
	params.Set("source", strings.Join(priceAPIRetailers, ","))
	params.Set("country", "ca")
	params.Set("values", barcode)
	params.Set("type", "upc")

	endpoint := s.baseURL + "/products?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create priceapi request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch priceapi: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Message  string `json:"message"`
		Products []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Brand       string `json:"brand"`
			Image       string `json:"image"`
			Category    string `json:"category"`
			Offers      []struct {
				Merchant        string          `json:"merchant"`
				Price           json.RawMessage `json:"price"`
				Link            string          `json:"link"`
				LastUpdated     string          `json:"last_updated"`
				StockStatus     string          `json:"stock_status"`
				ShippingOptions string          `json:"shipping_options"`
			} `json:"offers"`
		} `json:"products"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		s.logger.Debug().Err(err).Str("barcode", barcode).Msg("unparsable response body")
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Debug().Int("status", resp.StatusCode).Str("message", payload.Message).Msg("lookup missed")
		return nil, nil
	}
	if len(payload.Products) == 0 {
		return nil, nil
	}

	// First product match is taken as the answer for this barcode.
	p := payload.Products[0]

	offers := make([]product.StoreOffer, 0, len(p.Offers))
	for _, offer := range p.Offers {
		availability := offer.StockStatus
		if availability == "" {
			availability = "Unknown"
		}
		shipping := offer.ShippingOptions
		if shipping == "" {
			shipping = "See store for details"
		}
		offers = append(offers, product.StoreOffer{
			StoreName:    offer.Merchant,
			Price:        flexPrice(offer.Price),
			Currency:     currency.CanonicalCurrency,
			Link:         offer.Link,
			LastUpdate:   offer.LastUpdated,
			Availability: availability,
			Shipping:     shipping,
		})
	}

	lowest := lowestPrice(offers)
	view := &product.View{
		Barcode:     barcode,
		UPC:         barcode,
		Name:        p.Title,
		Description: p.Description,
		Brand:       p.Brand,
		ImageURL:    p.Image,
		Category:    p.Category,
		Price:       lowest,
		Stores:      offers,
		Source:      priceAPIName,
	}
	if lowest != nil {
		view.Currency = currency.CanonicalCurrency
	}
	return view, nil
}

var _ Source = (*PriceAPI)(nil)
