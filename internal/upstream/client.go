// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package upstream talks to the model endpoint that produces responses.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/nimbus/internal/cache"
	"github.com/ManuGH/nimbus/internal/config"
	"github.com/ManuGH/nimbus/internal/log"
	"github.com/ManuGH/nimbus/internal/metrics"
	"github.com/ManuGH/nimbus/internal/platform/httpx"
	pnet "github.com/ManuGH/nimbus/internal/platform/net"
	"github.com/ManuGH/nimbus/internal/resilience"
	"github.com/ManuGH/nimbus/internal/store"
	"github.com/ManuGH/nimbus/internal/telemetry"
)

// ErrUpstream marks every failure caused by the model endpoint itself.
var ErrUpstream = errors.New("upstream request failed")

const maxResponseBytes = 4 << 20

// Request is the payload forwarded to the model endpoint.
type Request struct {
	Message string       `json:"message"`
	Context string       `json:"context"`
	Model   string       `json:"model"`
	Files   []store.File `json:"files"`
}

type response struct {
	Response *string `json:"response"`
}

// StatusError is a non-2xx answer. It unwraps to ErrUpstream.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUpstream }

// Config tunes a Client.
type Config struct {
	URL              string
	DefaultModel     string
	Timeout          time.Duration
	BreakerThreshold int
	BreakerReset     time.Duration
	CacheTTL         time.Duration
}

// ConfigFromApp maps the upstream and cache sections of the app config.
func ConfigFromApp(cfg config.AppConfig) Config {
	return Config{
		URL:              cfg.Upstream.URL,
		DefaultModel:     cfg.Upstream.DefaultModel,
		Timeout:          cfg.Upstream.Timeout,
		BreakerThreshold: cfg.Upstream.BreakerThreshold,
		BreakerReset:     cfg.Upstream.BreakerReset,
		CacheTTL:         cfg.Cache.TTL,
	}
}

// Client forwards generate requests. Answers are cached, identical in-flight
// requests share one upstream call, and a circuit breaker sheds load while
// the endpoint is failing.
type Client struct {
	url          string
	defaultModel string
	ttl          time.Duration

	http    *http.Client
	breaker *resilience.CircuitBreaker
	cache   cache.Cache
	group   singleflight.Group
	tracer  trace.Tracer

	breakerOpts []resilience.Option
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the traced default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBreakerOptions forwards options to the circuit breaker.
func WithBreakerOptions(opts ...resilience.Option) Option {
	return func(c *Client) { c.breakerOpts = append(c.breakerOpts, opts...) }
}

// New creates a client. A nil cache disables caching.
func New(cfg Config, respCache cache.Cache, opts ...Option) *Client {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = config.DefaultModel
	}
	if respCache == nil {
		respCache = cache.NewNoOpCache()
	}
	c := &Client{
		url:          cfg.URL,
		defaultModel: cfg.DefaultModel,
		ttl:          cfg.CacheTTL,
		http:         httpx.NewClient(cfg.Timeout, httpx.WithTracing("upstream")),
		cache:        respCache,
		tracer:       telemetry.Tracer("nimbus/upstream"),
		breakerOpts:  []resilience.Option{resilience.WithFailurePredicate(countsAsFailure)},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = resilience.NewCircuitBreaker("upstream", cfg.BreakerThreshold, cfg.BreakerReset, c.breakerOpts...)
	return c
}

// countsAsFailure keeps client-side rejections (4xx) and cancellation from
// opening the breaker.
func countsAsFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500 || se.StatusCode == http.StatusTooManyRequests
	}
	return true
}

// Breaker exposes the circuit breaker for health checks.
func (c *Client) Breaker() *resilience.CircuitBreaker { return c.breaker }

// withDefaults fills the model and files the way the endpoint expects.
func (c *Client) withDefaults(req Request) Request {
	if req.Model == "" {
		req.Model = c.defaultModel
	}
	if req.Files == nil {
		req.Files = []store.File{}
	}
	return req
}

func cacheKey(req Request) string {
	names := make([]string, len(req.Files))
	for i, f := range req.Files {
		names[i] = f.Name
	}
	return cache.Key(req.Model, req.Context, req.Message, names)
}

// Generate returns the model's answer to req.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	req = c.withDefaults(req)
	key := cacheKey(req)

	ctx, span := c.tracer.Start(ctx, "upstream.generate")
	defer span.End()

	if v, ok := c.cache.Get(ctx, key); ok {
		metrics.RecordCacheLookup(c.cache.Name(), true)
		span.SetAttributes(telemetry.GenerateAttributes(req.Model, len(req.Files), true)...)
		return v, nil
	}
	metrics.RecordCacheLookup(c.cache.Name(), false)
	span.SetAttributes(telemetry.GenerateAttributes(req.Model, len(req.Files), false)...)

	// The shared call must outlive any single caller that gives up.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		var out string
		err := c.breaker.Execute(flightCtx, func(ctx context.Context) error {
			var err error
			out, err = c.post(ctx, req)
			return err
		})
		if err != nil {
			return "", err
		}
		c.cache.Set(flightCtx, key, out, c.ttl)
		return out, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		span.SetAttributes(attribute.Bool(telemetry.GenerateSharedKey, res.Shared))
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, "upstream failed")
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) post(ctx context.Context, req Request) (string, error) {
	logger := log.WithComponentFromContext(ctx, "upstream")
	start := time.Now()

	text, err := c.do(ctx, req)
	metrics.ObserveUpstream(time.Since(start), err)
	if err != nil {
		logger.Warn().Err(err).
			Str("event", "generate.upstream_failed").
			Str("endpoint", pnet.SanitizeURL(c.url)).
			Str("model", req.Model).
			Dur("duration", time.Since(start)).
			Msg("upstream call failed")
		return "", err
	}

	logger.Debug().
		Str("event", "generate.upstream_ok").
		Str("model", req.Model).
		Int("files", len(req.Files)).
		Dur("duration", time.Since(start)).
		Msg("upstream call completed")
	return text, nil
}

func (c *Client) do(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: snippet(raw)}
	}

	var decoded response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("%w: decode body: %v", ErrUpstream, err)
	}
	if decoded.Response == nil {
		return "", fmt.Errorf("%w: response field missing", ErrUpstream)
	}
	return *decoded.Response, nil
}

func snippet(b []byte) string {
	const limit = 200
	s := string(bytes.TrimSpace(b))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}
