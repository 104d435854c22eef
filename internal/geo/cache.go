// Package geo resolves peer addresses to map coordinates through a chain of
// free geolocation APIs, caching successful resolutions in a JSON file on
// disk. Failures are never cached; they are retried on the next refresh.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"beacon/internal/fetch"
)

// MyLocationKey is the reserved cache key for the node's own location.
const MyLocationKey = "__my_location__"

// The own-location record is refreshed once it is older than this.
const myLocationTTL = time.Hour

// Record is one cached address resolution.
type Record struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Country    string  `json:"country"`
	ResolvedAt int64   `json:"ts"`
}

// CacheConfig holds provider endpoints for the lookup chain. Empty fields
// take the public defaults; tests point them at local servers.
type CacheConfig struct {
	Path        string
	GeoJSBase   string // per-IP endpoint, IP appended as /<ip>.json
	IPAPIBase   string // per-IP endpoint, IP appended as /<ip>
	IPAPICoBase string // per-IP endpoint, IP appended as /<ip>/json/
	SelfURL     string // own-location endpoint, no IP parameter
}

// Cache owns the on-disk geolocation store: loaded wholesale at
// construction, mutated in memory, rewritten wholesale on every successful
// update. Disk failures degrade it to memory-only.
type Cache struct {
	cfg    CacheConfig
	client *http.Client
	logger *zap.Logger

	mu      sync.Mutex
	records map[string]Record
}

// NewCache builds a Cache and loads any existing store from disk.
func NewCache(cfg CacheConfig, client *http.Client, logger *zap.Logger) *Cache {
	if cfg.GeoJSBase == "" {
		cfg.GeoJSBase = "https://get.geojs.io/v1/ip/geo"
	}
	if cfg.IPAPIBase == "" {
		cfg.IPAPIBase = "http://ip-api.com/json"
	}
	if cfg.IPAPICoBase == "" {
		cfg.IPAPICoBase = "https://ipapi.co"
	}
	if cfg.SelfURL == "" {
		cfg.SelfURL = "https://get.geojs.io/v1/ip/geo.json"
	}
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Cache{
		cfg:     cfg,
		client:  client,
		logger:  logger,
		records: make(map[string]Record),
	}
	c.load()
	return c
}

// Lookup resolves an address to a cached or freshly fetched Record.
// Private, loopback, and unparseable addresses return false without any
// network call. Exhausting every provider returns false and caches nothing.
func (c *Cache) Lookup(ctx context.Context, addr string) (Record, bool) {
	clean := strings.TrimSpace(addr)
	clean = strings.NewReplacer("[", "", "]", "").Replace(clean)
	if clean == "" || IsPrivateOrLocal(clean) {
		return Record{}, false
	}

	c.mu.Lock()
	cached, ok := c.records[clean]
	c.mu.Unlock()
	if ok {
		return cached, true
	}

	record, ok := fetch.First(ctx, c.client, c.providersFor(clean), c.logger)
	if !ok {
		return Record{}, false
	}

	c.mu.Lock()
	c.records[clean] = record
	c.save()
	c.mu.Unlock()

	return record, true
}

// MyLocation returns the node's own coordinates, cached under a reserved
// key for up to an hour. Once stale it is re-fetched; a failed refresh
// returns false rather than the stale value, and the caller retries on the
// next cycle.
func (c *Cache) MyLocation(ctx context.Context) (float64, float64, bool) {
	now := time.Now().Unix()

	c.mu.Lock()
	cached, ok := c.records[MyLocationKey]
	c.mu.Unlock()
	if ok && now-cached.ResolvedAt < int64(myLocationTTL.Seconds()) {
		return cached.Lat, cached.Lon, true
	}

	providers := []fetch.Provider[Record]{{
		Name:  "geojs-self",
		URL:   c.cfg.SelfURL,
		Parse: parseGeoJS,
	}}
	record, ok := fetch.First(ctx, c.client, providers, c.logger)
	if !ok {
		return 0, 0, false
	}
	record.ResolvedAt = now

	c.mu.Lock()
	c.records[MyLocationKey] = record
	c.save()
	c.mu.Unlock()

	return record.Lat, record.Lon, true
}

func (c *Cache) providersFor(ip string) []fetch.Provider[Record] {
	return []fetch.Provider[Record]{
		{
			Name:  "geojs",
			URL:   fmt.Sprintf("%s/%s.json", c.cfg.GeoJSBase, ip),
			Parse: parseGeoJS,
		},
		{
			Name:  "ip-api",
			URL:   fmt.Sprintf("%s/%s?fields=lat,lon,countryCode", c.cfg.IPAPIBase, ip),
			Parse: parseIPAPI,
		},
		{
			Name:  "ipapi-co",
			URL:   fmt.Sprintf("%s/%s/json/", c.cfg.IPAPICoBase, ip),
			Parse: parseIPAPICo,
		},
	}
}

// GeoJS serves latitude/longitude as strings.
func parseGeoJS(body []byte) (Record, bool) {
	var payload struct {
		Latitude    any    `json:"latitude"`
		Longitude   any    `json:"longitude"`
		CountryCode string `json:"country_code"`
		Country     string `json:"country"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Record{}, false
	}
	lat, latOK := coerceFloat(payload.Latitude)
	lon, lonOK := coerceFloat(payload.Longitude)
	if !latOK || !lonOK {
		return Record{}, false
	}
	country := payload.CountryCode
	if country == "" {
		country = payload.Country
	}
	return newRecord(lat, lon, country), true
}

func parseIPAPI(body []byte) (Record, bool) {
	var payload struct {
		Lat         *float64 `json:"lat"`
		Lon         *float64 `json:"lon"`
		CountryCode string   `json:"countryCode"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Lat == nil || payload.Lon == nil {
		return Record{}, false
	}
	return newRecord(*payload.Lat, *payload.Lon, payload.CountryCode), true
}

func parseIPAPICo(body []byte) (Record, bool) {
	var payload struct {
		Latitude    *float64 `json:"latitude"`
		Longitude   *float64 `json:"longitude"`
		CountryCode string   `json:"country_code"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Latitude == nil || payload.Longitude == nil {
		return Record{}, false
	}
	return newRecord(*payload.Latitude, *payload.Longitude, payload.CountryCode), true
}

func newRecord(lat, lon float64, country string) Record {
	if len(country) > 2 {
		country = country[:2]
	}
	return Record{
		Lat:        lat,
		Lon:        lon,
		Country:    country,
		ResolvedAt: time.Now().Unix(),
	}
}

func coerceFloat(v any) (float64, bool) {
	switch typed := v.(type) {
	case float64:
		return typed, true
	case string:
		f, err := strconv.ParseFloat(typed, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// load reads the store from disk; a missing or corrupt file starts empty.
func (c *Cache) load() {
	data, err := os.ReadFile(c.cfg.Path)
	if err != nil {
		return
	}
	records := make(map[string]Record)
	if err := json.Unmarshal(data, &records); err != nil {
		c.logger.Debug("geo cache unreadable, starting empty", zap.Error(err))
		return
	}
	c.records = records
}

// save rewrites the whole store; callers hold c.mu. I/O failures are
// swallowed so the cache degrades to memory-only.
func (c *Cache) save() {
	data, err := json.MarshalIndent(c.records, "", "  ")
	if err != nil {
		return
	}
	dir := filepath.Dir(c.cfg.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			c.logger.Debug("geo cache dir create failed", zap.Error(err))
			return
		}
	}
	if err := os.WriteFile(c.cfg.Path, data, 0o644); err != nil {
		c.logger.Debug("geo cache write failed", zap.Error(err))
	}
}
