// Package fetch implements an ordered provider fallback chain: a list of
// HTTP endpoints with per-provider extractors, tried in order until one
// yields a usable value. Geolocation, price, and currency lookups all share
// this shape.
package fetch

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 5 * time.Second

// Body size cap guards against a misbehaving provider.
const maxBodyBytes = 1 << 20

// Provider is one endpoint in a fallback chain. Parse reports whether the
// response body contained the wanted fields; a false return advances the
// chain, same as any transport failure.
type Provider[T any] struct {
	Name    string
	URL     string
	Timeout time.Duration
	Parse   func(body []byte) (T, bool)
}

// First tries providers in order and returns the first successfully parsed
// value. Exhaustion returns the zero value and false; it is never an error,
// callers treat it as data temporarily unavailable.
func First[T any](ctx context.Context, client *http.Client, providers []Provider[T], logger *zap.Logger) (T, bool) {
	var zero T
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, p := range providers {
		value, ok := tryProvider(ctx, client, p, logger)
		if ok {
			return value, true
		}
	}
	return zero, false
}

func tryProvider[T any](ctx context.Context, client *http.Client, p Provider[T], logger *zap.Logger) (T, bool) {
	var zero T

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		logger.Debug("provider request build failed", zap.String("provider", p.Name), zap.Error(err))
		return zero, false
	}

	resp, err := client.Do(req)
	if err != nil {
		logger.Debug("provider unreachable", zap.String("provider", p.Name), zap.Error(err))
		return zero, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Debug("provider status", zap.String("provider", p.Name), zap.Int("status", resp.StatusCode))
		return zero, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		logger.Debug("provider body read failed", zap.String("provider", p.Name), zap.Error(err))
		return zero, false
	}

	value, ok := p.Parse(body)
	if !ok {
		logger.Debug("provider parse failed", zap.String("provider", p.Name))
		return zero, false
	}
	return value, true
}
