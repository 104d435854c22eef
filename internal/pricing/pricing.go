// Package pricing fetches the coin price in USD and USD conversion rates
// for the display currency, each through an ordered provider chain.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"beacon/internal/fetch"
)

// SupportedCurrencies lists the display currencies offered by the
// dashboard, prompt label first.
var SupportedCurrencies = [][2]string{
	{"USD - US Dollar", "USD"},
	{"EUR - Euro", "EUR"},
	{"GBP - British Pound", "GBP"},
	{"JPY - Japanese Yen", "JPY"},
	{"CHF - Swiss Franc", "CHF"},
	{"CAD - Canadian Dollar", "CAD"},
	{"AUD - Australian Dollar", "AUD"},
	{"BRL - Brazilian Real", "BRL"},
	{"INR - Indian Rupee", "INR"},
	{"MXN - Mexican Peso", "MXN"},
}

// CurrencySymbols maps a currency code to its display symbol.
var CurrencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CHF": "Fr.",
	"CAD": "C$",
	"AUD": "A$",
	"BRL": "R$",
	"INR": "₹",
	"MXN": "Mex$",
}

// ClientConfig holds provider endpoints. Empty fields take the public
// defaults.
type ClientConfig struct {
	PricePrimaryURL string
	PriceBackupURL  string
	FrankfurterBase string
	ERAPIBase       string
}

// Client fetches price and conversion data.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg ClientConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if cfg.PricePrimaryURL == "" {
		cfg.PricePrimaryURL = "https://api-one.ewm-cx.info/api/v1/price/getPriceByCoin?symbol=LYNX"
	}
	if cfg.PriceBackupURL == "" {
		cfg.PriceBackupURL = "https://api-two.ewm-cx.net/api/v1/price/getPriceByCoin?symbol=LYNX"
	}
	if cfg.FrankfurterBase == "" {
		cfg.FrankfurterBase = "https://api.frankfurter.app"
	}
	if cfg.ERAPIBase == "" {
		cfg.ERAPIBase = "https://open.er-api.com"
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, httpClient: httpClient, logger: logger}
}

// PriceUSD returns the coin price in USD from the first provider that
// answers with a usable body.
func (c *Client) PriceUSD(ctx context.Context) (float64, bool) {
	providers := []fetch.Provider[float64]{
		{Name: "price-primary", URL: c.cfg.PricePrimaryURL, Parse: parsePrice},
		{Name: "price-backup", URL: c.cfg.PriceBackupURL, Parse: parsePrice},
	}
	return fetch.First(ctx, c.httpClient, providers, c.logger)
}

// USDRate returns the USD to currency conversion rate. USD itself is
// always 1.
func (c *Client) USDRate(ctx context.Context, currency string) (float64, bool) {
	if currency == "" || currency == "USD" {
		return 1, true
	}
	providers := []fetch.Provider[float64]{
		{
			Name:  "frankfurter",
			URL:   fmt.Sprintf("%s/latest?from=USD&to=%s", c.cfg.FrankfurterBase, currency),
			Parse: parseRate(currency),
		},
		{
			Name:  "er-api",
			URL:   fmt.Sprintf("%s/v6/latest/USD", c.cfg.ERAPIBase),
			Parse: parseRate(currency),
		},
	}
	return fetch.First(ctx, c.httpClient, providers, c.logger)
}

// FormatPrice renders a price with the 8-decimal precision these small
// denominations need, prefixed by the currency symbol.
func FormatPrice(price float64, currency string) string {
	symbol, ok := CurrencySymbols[currency]
	if !ok {
		symbol = "$"
	}
	return fmt.Sprintf("%s%.8f", symbol, price)
}

// Providers disagree on nesting and numeric encoding: the price lives at
// data.priceUSD or priceUSD, as a number or a string.
func parsePrice(body []byte) (float64, bool) {
	var payload struct {
		PriceUSD any `json:"priceUSD"`
		Data     struct {
			PriceUSD any `json:"priceUSD"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, false
	}
	if price, ok := coerceFloat(payload.Data.PriceUSD); ok && price > 0 {
		return price, true
	}
	if price, ok := coerceFloat(payload.PriceUSD); ok && price > 0 {
		return price, true
	}
	return 0, false
}

func parseRate(currency string) func([]byte) (float64, bool) {
	return func(body []byte) (float64, bool) {
		var payload struct {
			Rates map[string]float64 `json:"rates"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return 0, false
		}
		rate, ok := payload.Rates[currency]
		if !ok || rate <= 0 {
			return 0, false
		}
		return rate, true
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
