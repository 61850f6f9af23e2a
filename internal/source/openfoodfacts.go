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

	"pricefinder/internal/product"
)

const openFoodFactsName = "Open Food Facts"

// OpenFoodFactsOptions parameterise the Open Food Facts client.
type OpenFoodFactsOptions struct {
	BaseURL string
	Timeout time.Duration
}

// OpenFoodFacts queries the open nutrition database. Exact barcode matches
// only; it carries no pricing data.
type OpenFoodFacts struct {
	opts    OpenFoodFactsOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewOpenFoodFacts constructs an Open Food Facts source.
func NewOpenFoodFacts(opts OpenFoodFactsOptions, logger zerolog.Logger) *OpenFoodFacts {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://world.openfoodfacts.org/api/v0"
	}

	return &OpenFoodFacts{
		opts:    opts,
		logger:  logger.With().Str("component", "source_openfoodfacts").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Name implements Source.
func (s *OpenFoodFacts) Name() string { return openFoodFactsName }

// Fetch implements Source.
func (s *OpenFoodFacts) Fetch(ctx context.Context, barcode string) (*product.View, error) {
	endpoint := fmt.Sprintf("%s/product/%s.json", s.baseURL, url.PathEscape(barcode))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create open food facts request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch open food facts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Debug().Int("status", resp.StatusCode).Str("barcode", barcode).Msg("non-200 response")
		return nil, nil
	}

	var payload struct {
		Status  int `json:"status"`
		Product struct {
			ProductName         string `json:"product_name"`
			Brands              string `json:"brands"`
			ImageURL            string `json:"image_url"`
			IngredientsText     string `json:"ingredients_text"`
			NutritionGradeFR    string `json:"nutrition_grade_fr"`
			Categories          string `json:"categories"`
			Quantity            string `json:"quantity"`
			ManufacturingPlaces string `json:"manufacturing_places"`
			Countries           string `json:"countries"`
		} `json:"product"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		s.logger.Debug().Err(err).Str("barcode", barcode).Msg("unparsable response body")
		return nil, nil
	}

	// status 1 means "product found"; anything else is a miss.
	if payload.Status != 1 {
		return nil, nil
	}

	p := payload.Product
	return &product.View{
		Barcode:             barcode,
		Name:                p.ProductName,
		Brand:               p.Brands,
		ImageURL:            p.ImageURL,
		Ingredients:         p.IngredientsText,
		NutritionGrade:      p.NutritionGradeFR,
		Category:            p.Categories,
		Quantity:            p.Quantity,
		ManufacturingPlaces: p.ManufacturingPlaces,
		Countries:           p.Countries,
		Source:              openFoodFactsName,
	}, nil
}

var _ Source = (*OpenFoodFacts)(nil)
