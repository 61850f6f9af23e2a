package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"pricefinder/internal/currency"
	"pricefinder/internal/product"
)

const (
	barcodeLookupName      = "Barcode Lookup"
	barcodeLookupUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// BarcodeLookupOptions parameterise the vendor-page scraper.
type BarcodeLookupOptions struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// BarcodeLookup scrapes the vendor's public product page. The markup is not
// ours; any layout change surfaces as an absent result, never an error.
type BarcodeLookup struct {
	opts    BarcodeLookupOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	now     func() time.Time
}

// NewBarcodeLookup constructs a Barcode Lookup source.
func NewBarcodeLookup(opts BarcodeLookupOptions, logger zerolog.Logger) *BarcodeLookup {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://www.barcodelookup.com"
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = barcodeLookupUserAgent
	}
	opts.UserAgent = userAgent

	return &BarcodeLookup{
		opts:    opts,
		logger:  logger.With().Str("component", "source_barcodelookup").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		now:     time.Now,
	}
}

// Name implements Source.
func (s *BarcodeLookup) Name() string { return barcodeLookupName }

// Fetch implements Source.
func (s *BarcodeLookup) Fetch(ctx context.Context, barcode string) (*product.View, error) {
	endpoint := s.baseURL + "/" + url.PathEscape(barcode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create barcode lookup request: %w", err)
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch barcode lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Debug().Int("status", resp.StatusCode).Str("barcode", barcode).Msg("non-200 response")
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		s.logger.Debug().Err(err).Str("barcode", barcode).Msg("unparsable page")
		return nil, nil
	}

	return s.parse(doc, barcode), nil
}

func (s *BarcodeLookup) parse(doc *goquery.Document, barcode string) *product.View {
	title := strings.TrimSpace(doc.Find("h4").First().Text())
	if title == "" {
		s.logger.Debug().Str("barcode", barcode).Msg("product title not found in page")
		return nil
	}

	view := &product.View{
		Barcode: barcode,
		UPC:     barcode,
		Name:    title,
		Source:  barcodeLookupName,
	}

	doc.Find(".product-text-label").Each(func(_ int, sel *goquery.Selection) {
		label, _, found := strings.Cut(sel.Text(), ":")
		if !found {
			return
		}
		value := strings.TrimSpace(sel.Find("span.product-text").First().Text())
		switch strings.ToLower(strings.TrimSpace(label)) {
		case "description":
			view.Description = value
		case "manufacturer":
			view.Manufacturer = value
		case "brand":
			view.Brand = value
		case "category":
			view.Category = value
		case "attributes":
			s.parseAttributes(sel, view)
		}
	})

	if src, ok := doc.Find("#largeProductImage img").First().Attr("src"); ok {
		view.ImageURL = strings.TrimSpace(src)
	}

	view.Stores = s.parseStores(doc)
	view.Price = lowestPrice(view.Stores)
	if view.Price != nil {
		view.Currency = currency.CanonicalCurrency
	}
	return view
}

func (s *BarcodeLookup) parseAttributes(sel *goquery.Selection, view *product.View) {
	sel.Find("li.product-text span").Each(func(_ int, attr *goquery.Selection) {
		key, value, found := strings.Cut(attr.Text(), ":")
		if !found {
			return
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "mpn":
			view.MPN = value
		case "model":
			view.Model = value
		case "size":
			view.Size = value
		case "weight":
			view.Weight = value
		case "color":
			view.Color = value
		case "dimension":
			view.Dimension = value
		}
	})
}

func (s *BarcodeLookup) parseStores(doc *goquery.Document) []product.StoreOffer {
	fetchedAt := s.now().UTC().Format(time.RFC3339)

	var offers []product.StoreOffer
	doc.Find(".store-name").Each(func(_ int, sel *goquery.Selection) {
		name := strings.TrimSpace(strings.ReplaceAll(sel.Text(), ":", ""))
		if name == "" {
			return
		}

		row := sel.Parent()
		price := currency.ParsePrice(row.Find(".store-link").First().Text())
		if price == nil {
			return
		}
		link, _ := row.Find("a[href]").First().Attr("href")

		offers = append(offers, product.StoreOffer{
			StoreName:    name,
			Price:        price,
			Currency:     currency.CanonicalCurrency,
			Link:         strings.TrimSpace(link),
			LastUpdate:   fetchedAt,
			Availability: "In Stock",
			Shipping:     "See store for details",
		})
	})
	return offers
}

var _ Source = (*BarcodeLookup)(nil)
