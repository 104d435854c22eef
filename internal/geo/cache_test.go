package geo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func geoJSServer(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"latitude":"51.51","longitude":"-0.13","country_code":"GB"}`))
	}))
}

func TestLookupSkipsPrivateAddresses(t *testing.T) {
	var calls atomic.Int64
	server := geoJSServer(t, &calls)
	defer server.Close()

	cache := NewCache(CacheConfig{
		Path:        filepath.Join(t.TempDir(), "geo_cache.json"),
		GeoJSBase:   server.URL,
		IPAPIBase:   server.URL,
		IPAPICoBase: server.URL,
	}, server.Client(), nil)

	for _, addr := range []string{"127.0.0.1", "10.0.0.5", "192.168.1.1", "::1", "fe80::1", "[::1]"} {
		if _, ok := cache.Lookup(context.Background(), addr); ok {
			t.Fatalf("%q should not resolve", addr)
		}
	}
	if calls.Load() != 0 {
		t.Fatalf("expected zero network calls, got %d", calls.Load())
	}
}

func TestLookupCacheRoundTrip(t *testing.T) {
	var calls atomic.Int64
	server := geoJSServer(t, &calls)
	defer server.Close()

	path := filepath.Join(t.TempDir(), "geo_cache.json")
	cfg := CacheConfig{Path: path, GeoJSBase: server.URL, IPAPIBase: server.URL, IPAPICoBase: server.URL}

	first := NewCache(cfg, server.Client(), nil)
	record, ok := first.Lookup(context.Background(), "8.8.8.8")
	if !ok {
		t.Fatalf("expected resolution")
	}
	if record.Lat != 51.51 || record.Lon != -0.13 || record.Country != "GB" {
		t.Fatalf("record mismatch: %+v", record)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one network call, got %d", calls.Load())
	}

	// A fresh instance against the same file serves from disk.
	second := NewCache(cfg, server.Client(), nil)
	again, ok := second.Lookup(context.Background(), "8.8.8.8")
	if !ok {
		t.Fatalf("expected cached resolution")
	}
	if again != record {
		t.Fatalf("cached record mismatch: %+v != %+v", again, record)
	}
	if calls.Load() != 1 {
		t.Fatalf("cached lookup should not hit the network, calls=%d", calls.Load())
	}
}

func TestLookupProviderFallback(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	ipapi := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"lat":40.71,"lon":-74.0,"countryCode":"US"}`))
	}))
	defer ipapi.Close()

	cache := NewCache(CacheConfig{
		Path:        filepath.Join(t.TempDir(), "geo_cache.json"),
		GeoJSBase:   broken.URL,
		IPAPIBase:   ipapi.URL,
		IPAPICoBase: broken.URL,
	}, nil, nil)

	record, ok := cache.Lookup(context.Background(), "1.1.1.1")
	if !ok {
		t.Fatalf("expected fallback provider to resolve")
	}
	if record.Lat != 40.71 || record.Country != "US" {
		t.Fatalf("record mismatch: %+v", record)
	}
}

func TestLookupFailureNotCached(t *testing.T) {
	var calls atomic.Int64
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	cfg := CacheConfig{
		Path:        filepath.Join(t.TempDir(), "geo_cache.json"),
		GeoJSBase:   broken.URL,
		IPAPIBase:   broken.URL,
		IPAPICoBase: broken.URL,
	}
	cache := NewCache(cfg, nil, nil)

	if _, ok := cache.Lookup(context.Background(), "1.1.1.1"); ok {
		t.Fatalf("expected exhaustion")
	}
	before := calls.Load()
	if _, ok := cache.Lookup(context.Background(), "1.1.1.1"); ok {
		t.Fatalf("expected exhaustion on retry")
	}
	if calls.Load() <= before {
		t.Fatalf("failed lookups must be retried, not negatively cached")
	}
}

func seedCacheFile(t *testing.T, path string, key string, record Record) {
	t.Helper()
	data, err := json.MarshalIndent(map[string]Record{key: record}, "", "  ")
	if err != nil {
		t.Fatalf("marshal seed: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
}

func TestMyLocationFreshCacheSkipsNetwork(t *testing.T) {
	var calls atomic.Int64
	server := geoJSServer(t, &calls)
	defer server.Close()

	path := filepath.Join(t.TempDir(), "geo_cache.json")
	seedCacheFile(t, path, MyLocationKey, Record{Lat: 10, Lon: 20, ResolvedAt: time.Now().Unix()})

	cache := NewCache(CacheConfig{Path: path, SelfURL: server.URL}, server.Client(), nil)
	lat, lon, ok := cache.MyLocation(context.Background())
	if !ok || lat != 10 || lon != 20 {
		t.Fatalf("expected fresh cached location, got %v %v ok=%v", lat, lon, ok)
	}
	if calls.Load() != 0 {
		t.Fatalf("fresh record should not hit the network")
	}
}

func TestMyLocationStaleRefetches(t *testing.T) {
	var calls atomic.Int64
	server := geoJSServer(t, &calls)
	defer server.Close()

	path := filepath.Join(t.TempDir(), "geo_cache.json")
	stale := time.Now().Add(-2 * time.Hour).Unix()
	seedCacheFile(t, path, MyLocationKey, Record{Lat: 10, Lon: 20, ResolvedAt: stale})

	cache := NewCache(CacheConfig{Path: path, SelfURL: server.URL}, server.Client(), nil)
	lat, lon, ok := cache.MyLocation(context.Background())
	if !ok {
		t.Fatalf("expected refetch to succeed")
	}
	if lat != 51.51 || lon != -0.13 {
		t.Fatalf("expected refreshed coordinates, got %v %v", lat, lon)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one refresh call, got %d", calls.Load())
	}
}

func TestMyLocationStaleRefreshFailureReturnsNothing(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	path := filepath.Join(t.TempDir(), "geo_cache.json")
	stale := time.Now().Add(-2 * time.Hour).Unix()
	seedCacheFile(t, path, MyLocationKey, Record{Lat: 10, Lon: 20, ResolvedAt: stale})

	cache := NewCache(CacheConfig{Path: path, SelfURL: broken.URL}, nil, nil)
	if _, _, ok := cache.MyLocation(context.Background()); ok {
		t.Fatalf("stale value must not be served after a failed refresh")
	}
}
