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
	"github.com/shopspring/decimal"

	"pricefinder/internal/currency"
	"pricefinder/internal/product"
)

const googleShoppingName = "Google Shopping"

// canadianRetailers maps known retailer domains to display names. Results
// from other domains are kept only when they sit under the .ca suffix.
var canadianRetailers = map[string]string{
	"nofrills.ca":        "No Frills",
	"shoppersdrug":       "Shoppers Drug Mart",
	"atlanticsuperstore": "Atlantic Superstore",
	"loblaws.ca":         "Loblaws",
	"walmart.ca":         "Walmart Canada",
	"amazon.ca":          "Amazon Canada",
	"canadiantire.ca":    "Canadian Tire",
	"sobeys.com":         "Sobeys",
	"metro.ca":           "Metro",
	"costco.ca":          "Costco Canada",
	"realcanadianstore":  "Real Canadian Superstore",
}

// GoogleShoppingOptions parameterise the Custom Search client.
type GoogleShoppingOptions struct {
	BaseURL  string
	APIKey   string
	SearchCX string
	Timeout  time.Duration
}

// GoogleShopping searches the web for shopping results, restricted to the
// Canadian retail allow-list, and extracts prices from structured result
// metadata.
type GoogleShopping struct {
	opts    GoogleShoppingOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	now     func() time.Time
}

// NewGoogleShopping constructs a Google Shopping source.
func NewGoogleShopping(opts GoogleShoppingOptions, logger zerolog.Logger) *GoogleShopping {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://www.googleapis.com/customsearch/v1"
	}

	return &GoogleShopping{
		opts:    opts,
		logger:  logger.With().Str("component", "source_googleshopping").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		now:     time.Now,
	}
}

// Name implements Source.
func (s *GoogleShopping) Name() string { return googleShoppingName }

type searchItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Snippet     string `json:"snippet"`
	DisplayLink string `json:"displayLink"`
	Pagemap     struct {
		Offer []struct {
			Price           json.RawMessage `json:"price"`
			Availability    string          `json:"availability"`
			ItemCondition   string          `json:"itemCondition"`
			ShippingDetails string          `json:"shippingDetails"`
		} `json:"offer"`
		Product []struct {
			Name     string `json:"name"`
			Brand    string `json:"brand"`
			Category string `json:"category"`
		} `json:"product"`
		CSEImage []struct {
			Src string `json:"src"`
		} `json:"cse_image"`
	} `json:"pagemap"`
}

// Fetch implements Source.
func (s *GoogleShopping) Fetch(ctx context.Context, barcode string) (*product.View, error) {
	params := url.Values{}
	params.Set("key", s.opts.APIKey)
	params.Set("cx", s.opts.SearchCX)
	params.Set("q", fmt.Sprintf("%q OR \"UPC %s\" site:.ca", barcode, barcode))
	params.Set("gl", "ca")
	params.Set("cr", "countryCA")
	params.Set("num", "10")
	params.Set("sort", "date")

	endpoint := s.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create google shopping request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch google shopping: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Items []searchItem `json:"items"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		s.logger.Debug().Err(err).Str("barcode", barcode).Msg("unparsable response body")
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Debug().Int("status", resp.StatusCode).Str("message", payload.Error.Message).Msg("lookup missed")
		return nil, nil
	}
	if len(payload.Items) == 0 {
		return nil, nil
	}

	var (
		offers    []product.StoreOffer
		lowest    *decimal.Decimal
		best      *searchItem
		fetchedAt = s.now().UTC().Format(time.RFC3339)
	)

	for i := range payload.Items {
		item := &payload.Items[i]

		storeName := retailerName(item.DisplayLink)
		if storeName == "" {
			continue
		}
		if len(item.Pagemap.Offer) == 0 {
			continue
		}

		offer := item.Pagemap.Offer[0]
		price := flexPrice(offer.Price)
		if price == nil || !price.IsPositive() {
			continue
		}

		if lowest == nil || price.LessThan(*lowest) {
			lowest = price
			best = item
		}

		availability := offer.Availability
		if availability == "" {
			availability = "Unknown"
		}
		condition := offer.ItemCondition
		if condition == "" {
			condition = "New"
		}
		shipping := offer.ShippingDetails
		if shipping == "" {
			shipping = "See store for details"
		}

		offers = append(offers, product.StoreOffer{
			StoreName:    storeName,
			Price:        price,
			Currency:     currency.CanonicalCurrency,
			Link:         item.Link,
			LastUpdate:   fetchedAt,
			Title:        item.Title,
			Availability: availability,
			Condition:    condition,
			Shipping:     shipping,
		})
	}

	if len(offers) == 0 || best == nil {
		return nil, nil
	}

	product.SortOffers(offers)

	view := &product.View{
		Barcode:     barcode,
		UPC:         barcode,
		Name:        best.Title,
		Description: best.Snippet,
		Price:       offers[0].Price,
		Currency:    currency.CanonicalCurrency,
		Stores:      offers,
		Source:      googleShoppingName,
	}
	if len(best.Pagemap.Product) > 0 {
		p := best.Pagemap.Product[0]
		if p.Name != "" {
			view.Name = p.Name
		}
		view.Brand = p.Brand
		view.Category = p.Category
	}
	if len(best.Pagemap.CSEImage) > 0 {
		view.ImageURL = best.Pagemap.CSEImage[0].Src
	}
	return view, nil
}

// retailerName resolves a search result domain to a store name, or "" when
// the result is not a Canadian retailer.
func retailerName(displayLink string) string {
	link := strings.ToLower(strings.TrimSpace(displayLink))
	for domain, name := range canadianRetailers {
		if strings.Contains(link, domain) {
			return name
		}
	}
	if strings.HasSuffix(link, ".ca") {
		host := strings.TrimPrefix(link, "www.")
		if host == "" {
			return ""
		}
		return strings.ToUpper(host[:1]) + host[1:]
	}
	return ""
}

var _ Source = (*GoogleShopping)(nil)
