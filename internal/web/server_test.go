package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pricefinder/internal/aggregate"
	"pricefinder/internal/product"
	"pricefinder/internal/ratelimit"
)

type stubService struct {
	record *product.Record
	err    error
	calls  int
}

func (s *stubService) Lookup(ctx context.Context, barcode string) (*product.Record, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	rec := *s.record
	rec.Barcode = barcode
	return &rec, nil
}

func newTestServer(service LookupService, window *ratelimit.Window) *Server {
	if window == nil {
		window = ratelimit.NewWindow(100, time.Minute)
	}
	return NewServer(Options{ListenAddr: ":0"}, service, window, zerolog.Nop())
}

func doLookup(t *testing.T, s *Server, barcode string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/lookup/"+barcode, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestLookupSuccess(t *testing.T) {
	price := decimal.NewFromFloat(4.5)
	service := &stubService{record: &product.Record{
		Name:        "Widget",
		Price:       &price,
		Currency:    "CAD",
		DataSources: []string{"PriceAPI"},
	}}
	s := newTestServer(service, nil)

	rec := doLookup(t, s, "0123456789012")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response must be JSON: %v", err)
	}
	if payload["barcode"] != "0123456789012" {
		t.Fatalf("response must echo the barcode: %v", payload["barcode"])
	}
	if payload["name"] != "Widget" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if payload["request_time"] == nil {
		t.Fatal("response must carry the request time")
	}
}

func TestLookupMalformedBarcode(t *testing.T) {
	service := &stubService{record: &product.Record{}}
	s := newTestServer(service, nil)

	rec := doLookup(t, s, "ABC123")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("a malformed barcode must never reach the engine, got %d calls", service.calls)
	}

	var payload map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &payload)
	if payload["error"] != "Invalid barcode" {
		t.Fatalf("unexpected error envelope %v", payload)
	}
}

func TestLookupNotFound(t *testing.T) {
	service := &stubService{err: aggregate.ErrNoData}
	s := newTestServer(service, nil)

	rec := doLookup(t, s, "123")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var payload map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &payload)
	if payload["error"] != "Product not found" || payload["barcode"] != "123" {
		t.Fatalf("unexpected error envelope %v", payload)
	}
}

func TestLookupServerError(t *testing.T) {
	service := &stubService{err: context.DeadlineExceeded}
	s := newTestServer(service, nil)

	if rec := doLookup(t, s, "123"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestLookupRateLimited(t *testing.T) {
	service := &stubService{record: &product.Record{DataSources: []string{"x"}}}
	window := ratelimit.NewWindow(2, time.Minute)
	s := newTestServer(service, window)

	for i := 0; i < 2; i++ {
		if rec := doLookup(t, s, "123"); rec.Code != http.StatusOK {
			t.Fatalf("request %d must pass, got %d", i+1, rec.Code)
		}
	}

	rec := doLookup(t, s, "123")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once the window is full, got %d", rec.Code)
	}
	if service.calls != 2 {
		t.Fatalf("rejected requests must not reach the engine, got %d calls", service.calls)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(&stubService{record: &product.Record{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
