package product

import (
	"regexp"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var barcodePattern = regexp.MustCompile(`^[0-9]+$`)

// ValidBarcode reports whether s is a digits-only barcode.
func ValidBarcode(s string) bool {
	return barcodePattern.MatchString(s)
}

// View is a single source's opinion about a barcode. A nil price means the
// source reported no usable amount.
type View struct {
	Barcode string

	UPC   string
	EAN   string
	MPN   string
	Model string

	Name         string
	Brand        string
	Manufacturer string
	Description  string
	Category     string
	ImageURL     string

	Color     string
	Size      string
	Weight    string
	Dimension string

	Ingredients         string
	NutritionGrade      string
	Quantity            string
	ManufacturingPlaces string
	Countries           string

	Price    *decimal.Decimal
	Currency string
	Stores   []StoreOffer

	Source string
}

// StoreOffer is one retailer's listing for a product. Prices are always in the
// canonical currency by the time an offer leaves a source.
type StoreOffer struct {
	StoreName    string           `json:"store_name"`
	Price        *decimal.Decimal `json:"price"`
	Currency     string           `json:"currency"`
	Link         string           `json:"link,omitempty"`
	LastUpdate   string           `json:"last_update,omitempty"`
	Title        string           `json:"title,omitempty"`
	Availability string           `json:"availability,omitempty"`
	Condition    string           `json:"condition,omitempty"`
	Shipping     string           `json:"shipping,omitempty"`
}

// Equal reports full structural equality between two offers.
func (o StoreOffer) Equal(other StoreOffer) bool {
	if o.StoreName != other.StoreName ||
		o.Currency != other.Currency ||
		o.Link != other.Link ||
		o.LastUpdate != other.LastUpdate ||
		o.Title != other.Title ||
		o.Availability != other.Availability ||
		o.Condition != other.Condition ||
		o.Shipping != other.Shipping {
		return false
	}
	if (o.Price == nil) != (other.Price == nil) {
		return false
	}
	return o.Price == nil || o.Price.Equal(*other.Price)
}

// Duplicate reports whether two offers refer to the same listing: matching
// store name and link, or full structural equality when neither carries a link.
func (o StoreOffer) Duplicate(other StoreOffer) bool {
	if o.Link != "" || other.Link != "" {
		return o.StoreName == other.StoreName && o.Link == other.Link
	}
	return o.Equal(other)
}

// SourceError records one vendor's failure during aggregation.
type SourceError struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Record is the merged, cross-source result returned to the caller.
type Record struct {
	Barcode string `json:"barcode"`

	UPC   string `json:"upc,omitempty"`
	EAN   string `json:"ean,omitempty"`
	MPN   string `json:"mpn,omitempty"`
	Model string `json:"model,omitempty"`

	Name         string `json:"name,omitempty"`
	Brand        string `json:"brand,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Description  string `json:"description,omitempty"`
	Category     string `json:"category,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`

	Color     string `json:"color,omitempty"`
	Size      string `json:"size,omitempty"`
	Weight    string `json:"weight,omitempty"`
	Dimension string `json:"dimension,omitempty"`

	Ingredients         string `json:"ingredients,omitempty"`
	NutritionGrade      string `json:"nutrition_grade,omitempty"`
	Quantity            string `json:"quantity,omitempty"`
	ManufacturingPlaces string `json:"manufacturing_places,omitempty"`
	Countries           string `json:"countries,omitempty"`

	Price    *decimal.Decimal `json:"price,omitempty"`
	Currency string           `json:"currency,omitempty"`

	AllStores   []StoreOffer  `json:"all_stores"`
	DataSources []string      `json:"data_sources"`
	Errors      []SourceError `json:"errors,omitempty"`

	RequestTime time.Time `json:"request_time,omitzero"`
}

// Absorb folds a single-source view into the record. The source name joins
// DataSources, non-duplicate offers are appended, and every other field is
// taken only when the record does not already hold a value.
func (r *Record) Absorb(v *View) {
	if v == nil {
		return
	}
	if v.Source != "" {
		r.addSource(v.Source)
	}
	for _, offer := range v.Stores {
		r.AddOffer(offer)
	}

	fill(&r.UPC, v.UPC)
	fill(&r.EAN, v.EAN)
	fill(&r.MPN, v.MPN)
	fill(&r.Model, v.Model)
	fill(&r.Name, v.Name)
	fill(&r.Brand, v.Brand)
	fill(&r.Manufacturer, v.Manufacturer)
	fill(&r.Description, v.Description)
	fill(&r.Category, v.Category)
	fill(&r.ImageURL, v.ImageURL)
	fill(&r.Color, v.Color)
	fill(&r.Size, v.Size)
	fill(&r.Weight, v.Weight)
	fill(&r.Dimension, v.Dimension)
	fill(&r.Ingredients, v.Ingredients)
	fill(&r.NutritionGrade, v.NutritionGrade)
	fill(&r.Quantity, v.Quantity)
	fill(&r.ManufacturingPlaces, v.ManufacturingPlaces)
	fill(&r.Countries, v.Countries)
	fill(&r.Currency, v.Currency)
	if r.Price == nil {
		r.Price = v.Price
	}
}

// AddOffer appends an offer unless an equivalent listing is already present.
func (r *Record) AddOffer(offer StoreOffer) {
	for _, existing := range r.AllStores {
		if existing.Duplicate(offer) {
			return
		}
	}
	r.AllStores = append(r.AllStores, offer)
}

// RankOffers sorts AllStores ascending by price, offers without a price last,
// and aligns the record's price/currency with the cheapest offer.
func (r *Record) RankOffers() {
	SortOffers(r.AllStores)
	if len(r.AllStores) > 0 {
		r.Price = r.AllStores[0].Price
		r.Currency = r.AllStores[0].Currency
	}
}

// HasData reports whether any source contributed to the record.
func (r *Record) HasData() bool {
	return len(r.DataSources) > 0
}

func (r *Record) addSource(name string) {
	for _, existing := range r.DataSources {
		if existing == name {
			return
		}
	}
	r.DataSources = append(r.DataSources, name)
}

// SortOffers orders offers by ascending price. Offers without a price sort to
// the end; the sort is stable otherwise.
func SortOffers(offers []StoreOffer) {
	sort.SliceStable(offers, func(i, j int) bool {
		pi, pj := offers[i].Price, offers[j].Price
		if pi == nil {
			return false
		}
		if pj == nil {
			return true
		}
		return pi.LessThan(*pj)
	})
}

func fill(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}
