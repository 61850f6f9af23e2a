package product

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

func TestValidBarcode(t *testing.T) {
	cases := map[string]bool{
		"0123456789012": true,
		"1":             true,
		"":              false,
		"ABC123":        false,
		"12 34":         false,
		"12.34":         false,
	}
	for input, want := range cases {
		if got := ValidBarcode(input); got != want {
			t.Errorf("ValidBarcode(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestSortOffersAbsentPricesLast(t *testing.T) {
	offers := []StoreOffer{
		{StoreName: "a", Price: nil},
		{StoreName: "b", Price: dec(5)},
		{StoreName: "c", Price: dec(4.5)},
		{StoreName: "d", Price: nil},
	}
	SortOffers(offers)

	wantOrder := []string{"c", "b", "a", "d"}
	for i, want := range wantOrder {
		if offers[i].StoreName != want {
			t.Fatalf("position %d: got %q, want %q", i, offers[i].StoreName, want)
		}
	}
}

func TestSortOffersStable(t *testing.T) {
	offers := []StoreOffer{
		{StoreName: "first", Price: dec(2)},
		{StoreName: "second", Price: dec(2)},
	}
	SortOffers(offers)

	if offers[0].StoreName != "first" || offers[1].StoreName != "second" {
		t.Fatalf("equal-price offers must keep their order: %v, %v", offers[0].StoreName, offers[1].StoreName)
	}
}

func TestDuplicateByNameAndLink(t *testing.T) {
	a := StoreOffer{StoreName: "Walmart", Link: "https://walmart.ca/p/1", Price: dec(3)}
	b := StoreOffer{StoreName: "Walmart", Link: "https://walmart.ca/p/1", Price: dec(4)}
	if !a.Duplicate(b) {
		t.Fatal("offers with matching store and link must be duplicates regardless of price")
	}

	c := StoreOffer{StoreName: "Walmart", Link: "https://walmart.ca/p/2", Price: dec(3)}
	if a.Duplicate(c) {
		t.Fatal("different links must not be duplicates")
	}
}

func TestDuplicateStructuralWhenLinkMissing(t *testing.T) {
	a := StoreOffer{StoreName: "Metro", Price: dec(3), Currency: "CAD"}
	b := StoreOffer{StoreName: "Metro", Price: dec(3), Currency: "CAD"}
	if !a.Duplicate(b) {
		t.Fatal("structurally equal linkless offers must be duplicates")
	}

	c := StoreOffer{StoreName: "Metro", Price: dec(3.5), Currency: "CAD"}
	if a.Duplicate(c) {
		t.Fatal("linkless offers with different prices are distinct")
	}
}

func TestAbsorbFirstValueWins(t *testing.T) {
	rec := &Record{Barcode: "123"}
	rec.Absorb(&View{Name: "Cereal", Brand: "Acme", Source: "first"})
	rec.Absorb(&View{Name: "Other Cereal", Description: "tasty", Source: "second"})

	if rec.Name != "Cereal" {
		t.Fatalf("later sources must not overwrite name: got %q", rec.Name)
	}
	if rec.Description != "tasty" {
		t.Fatalf("unset fields must be filled by later sources: got %q", rec.Description)
	}
	if len(rec.DataSources) != 2 || rec.DataSources[0] != "first" || rec.DataSources[1] != "second" {
		t.Fatalf("data sources must keep insertion order: %v", rec.DataSources)
	}
}

func TestAbsorbSkipsDuplicateOffers(t *testing.T) {
	offer := StoreOffer{StoreName: "Walmart", Link: "https://walmart.ca/p/1", Price: dec(3)}
	rec := &Record{}
	rec.Absorb(&View{Source: "a", Stores: []StoreOffer{offer}})
	rec.Absorb(&View{Source: "b", Stores: []StoreOffer{offer}})

	if len(rec.AllStores) != 1 {
		t.Fatalf("duplicate offers must be merged, got %d entries", len(rec.AllStores))
	}
}

func TestRankOffersSetsCheapestPrice(t *testing.T) {
	rec := &Record{}
	rec.Absorb(&View{Source: "a", Price: dec(9.99), Currency: "CAD"})
	rec.Absorb(&View{Source: "b", Stores: []StoreOffer{
		{StoreName: "x", Price: dec(5), Currency: "CAD"},
		{StoreName: "y", Price: dec(4.5), Currency: "CAD"},
	}})
	rec.RankOffers()

	if rec.Price == nil || !rec.Price.Equal(decimal.NewFromFloat(4.5)) {
		t.Fatalf("record price must follow the cheapest offer, got %v", rec.Price)
	}
	if rec.AllStores[0].StoreName != "y" {
		t.Fatalf("offers must be sorted ascending, got %q first", rec.AllStores[0].StoreName)
	}
}

func TestRankOffersKeepsViewPriceWithoutOffers(t *testing.T) {
	rec := &Record{}
	rec.Absorb(&View{Source: "a", Price: dec(7), Currency: "CAD"})
	rec.RankOffers()

	if rec.Price == nil || !rec.Price.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("without offers the first reported price must stand, got %v", rec.Price)
	}
}
