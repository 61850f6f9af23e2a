package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestUPCDatabaseSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Fatalf("missing bearer token, got %q", got)
		}
		if r.URL.Path != "/0123456789012" {
			t.Fatalf("barcode must be normalised to digits, got path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"product": {
				"title": "Widget",
				"brand": "Acme",
				"manufacturer": "Acme Corp",
				"price": "$10.00",
				"currency": "USD",
				"category": "Gadgets",
				"mpn": "W-1"
			}
		}`))
	}))
	defer srv.Close()

	s := NewUPCDatabase(UPCDatabaseOptions{BaseURL: srv.URL, APIKey: "secret", Timeout: time.Second}, testConverter(), noopLogger())
	view, err := s.Fetch(context.Background(), "0123-45678-9012")
	if err != nil {
		t.Fatalf("successful lookup must not error: %v", err)
	}
	if view == nil {
		t.Fatal("expected a view")
	}
	if view.UPC != "0123456789012" {
		t.Fatalf("UPC must be the digits-only barcode, got %q", view.UPC)
	}
	if view.Price == nil || !view.Price.Equal(decimal.NewFromFloat(12.5)) {
		t.Fatalf("10 USD must convert to 12.5 CAD, got %v", view.Price)
	}
	if view.Currency != "CAD" {
		t.Fatalf("converted price must be reported in CAD, got %q", view.Currency)
	}
}

func TestUPCDatabaseAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success": false}`))
	}))
	defer srv.Close()

	s := NewUPCDatabase(UPCDatabaseOptions{BaseURL: srv.URL, APIKey: "bad", Timeout: time.Second}, testConverter(), noopLogger())
	view, err := s.Fetch(context.Background(), "123")
	if err == nil {
		t.Fatal("a 401 must surface as an auth error")
	}
	if view != nil {
		t.Fatal("an auth failure must not produce a view")
	}
}

func TestUPCDatabaseMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success": false, "error": {"message": "not found"}}`))
	}))
	defer srv.Close()

	s := NewUPCDatabase(UPCDatabaseOptions{BaseURL: srv.URL, APIKey: "secret", Timeout: time.Second}, testConverter(), noopLogger())
	view, err := s.Fetch(context.Background(), "123")
	if err != nil || view != nil {
		t.Fatalf("a vendor miss must be absent without error, got view=%v err=%v", view, err)
	}
}

func TestUPCDatabaseBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	s := NewUPCDatabase(UPCDatabaseOptions{BaseURL: srv.URL, APIKey: "secret", Timeout: time.Second}, testConverter(), noopLogger())
	view, err := s.Fetch(context.Background(), "123")
	if err != nil || view != nil {
		t.Fatalf("invalid JSON must be absent without error, got view=%v err=%v", view, err)
	}
}
