package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPriceAPIOffers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("country") != "ca" || q.Get("type") != "upc" {
			t.Fatalf("unexpected query parameters: %v", q)
		}
		if !strings.Contains(q.Get("source"), "walmart.ca") {
			t.Fatalf("retailer list missing from query: %q", q.Get("source"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"products": [{
				"title": "Widget",
				"brand": "Acme",
				"offers": [
					{"merchant": "Amazon Canada", "price": 12.99, "link": "https://amazon.ca/p", "stock_status": "in_stock"},
					{"merchant": "Walmart Canada", "price": "9.97", "link": "https://walmart.ca/p"}
				]
			}]
		}`))
	}))
	defer srv.Close()

	s := NewPriceAPI(PriceAPIOptions{BaseURL: srv.URL, APIKey: "key", Timeout: time.Second}, noopLogger())
	view, err := s.Fetch(context.Background(), "123456")
	if err != nil {
		t.Fatalf("successful lookup must not error: %v", err)
	}
	if view == nil {
		t.Fatal("expected a view")
	}
	if len(view.Stores) != 2 {
		t.Fatalf("expected 2 offers, got %d", len(view.Stores))
	}
	if view.Price == nil || !view.Price.Equal(decimal.NewFromFloat(9.97)) {
		t.Fatalf("aggregate price must be the minimum offer, got %v", view.Price)
	}
	if view.Stores[1].Availability != "Unknown" {
		t.Fatalf("missing stock status must default to Unknown, got %q", view.Stores[1].Availability)
	}
}

func TestPriceAPINoProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"products": []}`))
	}))
	defer srv.Close()

	s := NewPriceAPI(PriceAPIOptions{BaseURL: srv.URL, APIKey: "key", Timeout: time.Second}, noopLogger())
	view, err := s.Fetch(context.Background(), "123456")
	if err != nil || view != nil {
		t.Fatalf("an empty product list must be absent without error, got view=%v err=%v", view, err)
	}
}

func TestPriceAPIHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"message": "quota exceeded"}`))
	}))
	defer srv.Close()

	s := NewPriceAPI(PriceAPIOptions{BaseURL: srv.URL, APIKey: "key", Timeout: time.Second}, noopLogger())
	view, err := s.Fetch(context.Background(), "123456")
	if err != nil || view != nil {
		t.Fatalf("a vendor-level failure must be absent without error, got view=%v err=%v", view, err)
	}
}
