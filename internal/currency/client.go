package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RateProvider returns the latest conversion rates relative to the provider's
// base currency (a map of currency code to multiplier).
type RateProvider interface {
	Rates(ctx context.Context) (map[string]decimal.Decimal, error)
}

// ClientOptions parameterise the exchange-rate API client.
type ClientOptions struct {
	BaseURL      string
	APIKey       string
	BaseCurrency string
	Timeout      time.Duration
}

// Client fetches conversion rates from the exchangerate-api "latest" endpoint.
type Client struct {
	opts    ClientOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient constructs an exchange-rate client.
func NewClient(opts ClientOptions, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://v6.exchangerate-api.com/v6"
	}

	if opts.BaseCurrency == "" {
		opts.BaseCurrency = BaseCurrency
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "exchange_client").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Rates performs one "latest conversion rates" call.
func (c *Client) Rates(ctx context.Context) (map[string]decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/%s/latest/%s", c.baseURL, c.opts.APIKey, c.opts.BaseCurrency)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create exchange rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch exchange rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exchange rate provider returned status %d", resp.StatusCode)
	}

	var payload struct {
		ConversionRates map[string]float64 `json:"conversion_rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode exchange rate response: %w", err)
	}
	if len(payload.ConversionRates) == 0 {
		return nil, fmt.Errorf("exchange rate response contained no rates")
	}

	rates := make(map[string]decimal.Decimal, len(payload.ConversionRates))
	for code, multiplier := range payload.ConversionRates {
		rates[strings.ToUpper(code)] = decimal.NewFromFloat(multiplier)
	}
	return rates, nil
}

var _ RateProvider = (*Client)(nil)
