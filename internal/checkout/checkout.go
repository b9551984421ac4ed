// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package checkout creates hosted payment sessions for marketplace items.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/nimbus/internal/config"
	"github.com/ManuGH/nimbus/internal/log"
	"github.com/ManuGH/nimbus/internal/metrics"
	"github.com/ManuGH/nimbus/internal/platform/httpx"
)

var (
	// ErrInvalidItem is returned for a missing name or non-positive price.
	ErrInvalidItem = errors.New("invalid checkout item")
	// ErrNotConfigured is returned when no provider secret key is set.
	ErrNotConfigured = errors.New("checkout provider not configured")
	// ErrProvider wraps every failure reported by the payment provider.
	ErrProvider = errors.New("checkout provider error")
)

const sessionsPath = "/v1/checkout/sessions"

// Item is a marketplace product. Price is in major currency units.
type Item struct {
	ID    string  `json:"itemId"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Validate checks the fields the provider requires.
func (i Item) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if math.IsNaN(i.Price) || math.IsInf(i.Price, 0) || i.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidItem)
	}
	if i.UnitAmount() < 1 {
		return fmt.Errorf("%w: price rounds to zero minor units", ErrInvalidItem)
	}
	return nil
}

// UnitAmount converts the price to minor units, rounding half away from zero.
func (i Item) UnitAmount() int64 {
	return int64(math.Round(i.Price * 100))
}

// Session is the created checkout session.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Client creates sessions through the provider's form-encoded REST API.
type Client struct {
	apiBase    string
	secretKey  string
	currency   string
	successURL string
	cancelURL  string
	http       *http.Client
}

// New builds a client from the checkout config section.
func New(cfg config.CheckoutConfig) *Client {
	return NewWithHTTPClient(cfg, httpx.NewClient(15*time.Second, httpx.WithTracing("checkout")))
}

// NewWithHTTPClient builds a client with a caller-supplied HTTP client.
func NewWithHTTPClient(cfg config.CheckoutConfig, hc *http.Client) *Client {
	currency := strings.ToLower(cfg.Currency)
	if currency == "" {
		currency = config.DefaultCurrency
	}
	return &Client{
		apiBase:    strings.TrimRight(cfg.APIBase, "/"),
		secretKey:  cfg.SecretKey,
		currency:   currency,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
		http:       hc,
	}
}

// Form returns the provider parameters for a one-item card payment.
func (c *Client) Form(item Item) url.Values {
	form := url.Values{}
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price_data][currency]", c.currency)
	form.Set("line_items[0][price_data][product_data][name]", item.Name)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(item.UnitAmount(), 10))
	form.Set("line_items[0][quantity]", "1")
	form.Set("mode", "payment")
	form.Set("success_url", c.successURL)
	form.Set("cancel_url", c.cancelURL)
	if item.ID != "" {
		form.Set("client_reference_id", item.ID)
		form.Set("metadata[item_id]", item.ID)
	}
	return form
}

type providerError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// CreateSession registers a checkout session for item.
func (c *Client) CreateSession(ctx context.Context, item Item) (Session, error) {
	if err := item.Validate(); err != nil {
		metrics.RecordCheckout("invalid")
		return Session{}, err
	}
	if c.secretKey == "" {
		metrics.RecordCheckout("unconfigured")
		return Session{}, ErrNotConfigured
	}

	logger := log.WithComponentFromContext(ctx, "checkout")
	body := c.Form(item).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+sessionsPath, strings.NewReader(body))
	if err != nil {
		return Session{}, fmt.Errorf("build checkout request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordCheckout("error")
		return Session{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.RecordCheckout("error")
		return Session{}, fmt.Errorf("%w: read response: %v", ErrProvider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordCheckout("rejected")
		var pe providerError
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(raw, &pe) == nil && pe.Error.Message != "" {
			msg = pe.Error.Message
		}
		logger.Warn().
			Str("event", "checkout.rejected").
			Int("status", resp.StatusCode).
			Str("item_id", item.ID).
			Msg("provider rejected checkout session")
		return Session{}, fmt.Errorf("%w: %s", ErrProvider, msg)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil || s.ID == "" {
		metrics.RecordCheckout("error")
		return Session{}, fmt.Errorf("%w: malformed session response", ErrProvider)
	}

	metrics.RecordCheckout("created")
	logger.Info().
		Str("event", "checkout.created").
		Str("item_id", item.ID).
		Str("session_id", s.ID).
		Int64("unit_amount", item.UnitAmount()).
		Msg("checkout session created")
	return s, nil
}
