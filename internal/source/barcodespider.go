package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pricefinder/internal/currency"
	"pricefinder/internal/product"
	"pricefinder/internal/throttle"
)

const barcodeSpiderName = "Barcode Spider"

// BarcodeSpiderOptions parameterise the Barcode Spider client.
type BarcodeSpiderOptions struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// BarcodeSpider queries the Barcode Spider multi-retailer API. The vendor
// enforces a strict request rate, so every call passes through a shared
// throttle and 429 responses are retried with bounded exponential backoff.
type BarcodeSpider struct {
	opts      BarcodeSpiderOptions
	converter *currency.Converter
	limiter   *throttle.Limiter
	logger    zerolog.Logger
	client    *http.Client
	baseURL   string
}

// NewBarcodeSpider constructs a Barcode Spider source. The limiter is shared
// process-wide across concurrent requests.
func NewBarcodeSpider(opts BarcodeSpiderOptions, converter *currency.Converter, limiter *throttle.Limiter, logger zerolog.Logger) *BarcodeSpider {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.barcodespider.com/v1/lookup"
	}

	return &BarcodeSpider{
		opts:      opts,
		converter: converter,
		limiter:   limiter,
		logger:    logger.With().Str("component", "source_barcodespider").Logger(),
		client:    &http.Client{Timeout: timeout},
		baseURL:   baseURL,
	}
}

// Name implements Source.
func (s *BarcodeSpider) Name() string { return barcodeSpiderName }

type spiderPayload struct {
	ItemResponse struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"item_response"`
	ItemAttributes struct {
		Title        string `json:"title"`
		Description  string `json:"description"`
		Brand        string `json:"brand"`
		Manufacturer string `json:"manufacturer"`
		Image        string `json:"image"`
		Category     string `json:"category"`
		MPN          string `json:"mpn"`
		Model        string `json:"model"`
		EAN          string `json:"ean"`
	} `json:"item_attributes"`
	Stores []struct {
		StoreName string          `json:"store_name"`
		Price     json.RawMessage `json:"price"`
		Currency  string          `json:"currency"`
		Link      string          `json:"link"`
		Updated   string          `json:"updated"`
		Title     string          `json:"title"`
	} `json:"Stores"`
}

// Fetch implements Source.
func (s *BarcodeSpider) Fetch(ctx context.Context, barcode string) (*product.View, error) {
	clean := digitsOnly(barcode)
	if clean == "" {
		return nil, nil
	}
	endpoint := fmt.Sprintf("%s?upc=%s", s.baseURL, url.QueryEscape(clean))

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	attempts := s.limiter.MaxAttempts()
	for attempt := 0; attempt < attempts; attempt++ {
		view, overRate, err := s.fetchOnce(ctx, endpoint, barcode, clean)
		if !overRate {
			return view, err
		}
		if attempt+1 == attempts {
			break
		}
		if err := s.limiter.Backoff(ctx, attempt+1); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("barcode spider rate limited after %d attempts", attempts)
}

func (s *BarcodeSpider) fetchOnce(ctx context.Context, endpoint, barcode, clean string) (*product.View, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create barcode spider request: %w", err)
	}
	req.Header.Set("token", s.opts.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("fetch barcode spider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		return nil, true, nil
	}

	var payload spiderPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		s.logger.Debug().Err(err).Str("barcode", clean).Msg("unparsable response body")
		return nil, false, nil
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Debug().Int("status", resp.StatusCode).Str("message", payload.ItemResponse.Message).Msg("lookup missed")
		return nil, false, nil
	}

	attrs := payload.ItemAttributes
	if attrs.Title == "" && attrs.Brand == "" && attrs.Description == "" {
		return nil, false, nil
	}

	offers := make([]product.StoreOffer, 0, len(payload.Stores))
	for _, store := range payload.Stores {
		price := s.converter.ToCanonical(ctx, flexPrice(store.Price), store.Currency)
		offers = append(offers, product.StoreOffer{
			StoreName:    store.StoreName,
			Price:        price,
			Currency:     currency.CanonicalCurrency,
			Link:         store.Link,
			LastUpdate:   store.Updated,
			Title:        store.Title,
			Availability: "In Stock",
			Shipping:     "See store for details",
		})
	}

	lowest := lowestPrice(offers)
	view := &product.View{
		Barcode:      barcode,
		UPC:          clean,
		EAN:          attrs.EAN,
		Name:         attrs.Title,
		Description:  attrs.Description,
		Brand:        attrs.Brand,
		Manufacturer: attrs.Manufacturer,
		ImageURL:     attrs.Image,
		Category:     attrs.Category,
		MPN:          attrs.MPN,
		Model:        attrs.Model,
		Price:        lowest,
		Stores:       offers,
		Source:       barcodeSpiderName,
	}
	if lowest != nil {
		view.Currency = currency.CanonicalCurrency
	}
	return view, false, nil
}

var _ Source = (*BarcodeSpider)(nil)
