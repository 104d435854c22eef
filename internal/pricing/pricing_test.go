package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPriceUSDFallsBackToBackup(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	backup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data":{"priceUSD":"0.00042"}}`))
	}))
	defer backup.Close()

	client := NewClient(ClientConfig{PricePrimaryURL: down.URL, PriceBackupURL: backup.URL}, nil, nil)
	price, ok := client.PriceUSD(context.Background())
	if !ok {
		t.Fatalf("expected backup provider to answer")
	}
	if price != 0.00042 {
		t.Fatalf("price mismatch: %v", price)
	}
}

func TestPriceUSDFlatShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"priceUSD":0.00107}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{PricePrimaryURL: server.URL, PriceBackupURL: server.URL}, nil, nil)
	price, ok := client.PriceUSD(context.Background())
	if !ok || price != 0.00107 {
		t.Fatalf("price mismatch: %v ok=%v", price, ok)
	}
}

func TestUSDRate(t *testing.T) {
	frankfurter := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"base":"USD","rates":{"EUR":0.92}}`))
	}))
	defer frankfurter.Close()

	client := NewClient(ClientConfig{FrankfurterBase: frankfurter.URL, ERAPIBase: frankfurter.URL}, nil, nil)
	rate, ok := client.USDRate(context.Background(), "EUR")
	if !ok || rate != 0.92 {
		t.Fatalf("rate mismatch: %v ok=%v", rate, ok)
	}
}

func TestUSDRateIdentity(t *testing.T) {
	client := NewClient(ClientConfig{}, nil, nil)
	rate, ok := client.USDRate(context.Background(), "USD")
	if !ok || rate != 1 {
		t.Fatalf("USD rate must be 1, got %v ok=%v", rate, ok)
	}
}

func TestUSDRateFallback(t *testing.T) {
	missing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"rates":{}}`))
	}))
	defer missing.Close()

	erapi := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"result":"success","rates":{"JPY":151.2}}`))
	}))
	defer erapi.Close()

	client := NewClient(ClientConfig{FrankfurterBase: missing.URL, ERAPIBase: erapi.URL}, nil, nil)
	rate, ok := client.USDRate(context.Background(), "JPY")
	if !ok || rate != 151.2 {
		t.Fatalf("rate mismatch: %v ok=%v", rate, ok)
	}
}

func TestFormatPrice(t *testing.T) {
	if got := FormatPrice(0.00042, "USD"); got != "$0.00042000" {
		t.Fatalf("format mismatch: %q", got)
	}
	if got := FormatPrice(0.5, "EUR"); got != "€0.50000000" {
		t.Fatalf("format mismatch: %q", got)
	}
	if got := FormatPrice(1, "XXX"); got != "$1.00000000" {
		t.Fatalf("unknown currency should fall back to $: %q", got)
	}
}
