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
)

const upcDatabaseName = "UPC Database"

// UPCDatabaseOptions parameterise the UPC Database client.
type UPCDatabaseOptions struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// UPCDatabase queries the UPC Database inventory API with bearer-token auth.
// Prices arrive as formatted strings in an arbitrary currency and are
// normalised on the way out.
type UPCDatabase struct {
	opts      UPCDatabaseOptions
	converter *currency.Converter
	logger    zerolog.Logger
	client    *http.Client
	baseURL   string
}

// NewUPCDatabase constructs a UPC Database source.
func NewUPCDatabase(opts UPCDatabaseOptions, converter *currency.Converter, logger zerolog.Logger) *UPCDatabase {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.upcdatabase.org/product"
	}

	return &UPCDatabase{
		opts:      opts,
		converter: converter,
		logger:    logger.With().Str("component", "source_upcdatabase").Logger(),
		client:    &http.Client{Timeout: timeout},
		baseURL:   baseURL,
	}
}

// Name implements Source.
func (s *UPCDatabase) Name() string { return upcDatabaseName }

type upcProduct struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Brand        string `json:"brand"`
	Manufacturer string `json:"manufacturer"`
	Price        string `json:"price"`
	Currency     string `json:"currency"`
	Image        string `json:"image"`
	Category     string `json:"category"`
	MPN          string `json:"mpn"`
}

// Fetch implements Source.
func (s *UPCDatabase) Fetch(ctx context.Context, barcode string) (*product.View, error) {
	clean := digitsOnly(barcode)
	if clean == "" {
		s.logger.Debug().Str("barcode", barcode).Msg("barcode contains no digits")
		return nil, nil
	}

	endpoint := s.baseURL + "/" + url.PathEscape(clean)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create upc database request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.opts.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch upc database: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("upc database authentication failed, check api key")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upc database response: %w", err)
	}

	var payload struct {
		Success bool       `json:"success"`
		Product upcProduct `json:"product"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		s.logger.Debug().Err(err).Str("barcode", clean).Msg("unparsable response body")
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK || !payload.Success {
		s.logger.Debug().Int("status", resp.StatusCode).Str("message", payload.Error.Message).Msg("lookup missed")
		return nil, nil
	}
	if payload.Product == (upcProduct{}) {
		return nil, nil
	}

	p := payload.Product
	price := s.converter.ToCanonical(ctx, currency.ParsePrice(p.Price), p.Currency)

	view := &product.View{
		Barcode:      barcode,
		UPC:          clean,
		Name:         p.Title,
		Description:  p.Description,
		Brand:        p.Brand,
		Manufacturer: p.Manufacturer,
		ImageURL:     p.Image,
		Category:     p.Category,
		MPN:          p.MPN,
		Price:        price,
		Source:       upcDatabaseName,
	}
	if price != nil {
		view.Currency = currency.CanonicalCurrency
	}
	return view, nil
}

var _ Source = (*UPCDatabase)(nil)
