// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package validate collects field violations for configuration checks.
package validate

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"
	"time"
)

// LogLevels lists the accepted log level names.
var LogLevels = []string{"debug", "info", "warn", "error"}

// Violation is a single rejected field.
type Violation struct {
	Field  string
	Value  any
	Reason string
}

func (f Violation) Error() string {
	return f.Field + ": " + f.Reason
}

// Errors is returned by Validator.Err when at least one check failed.
type Errors []Violation

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, f := range e {
		parts[i] = f.Error()
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

// Validator accumulates violations. The zero value is ready to use.
type Validator struct {
	found Errors
}

func New() *Validator { return &Validator{} }

// AddError records a violation for field.
func (v *Validator) AddError(field, reason string, value any) {
	v.found = append(v.found, Violation{Field: field, Value: value, Reason: reason})
}

func (v *Validator) addf(field string, value any, format string, args ...any) {
	v.AddError(field, fmt.Sprintf(format, args...), value)
}

// Err returns nil or an Errors value holding a copy of the violations.
func (v *Validator) Err() error {
	if len(v.found) == 0 {
		return nil
	}
	return slices.Clone(v.found)
}

// URL requires an absolute URL with a host and one of the given schemes.
func (v *Validator) URL(field, value string, schemes []string) {
	u, err := url.Parse(value)
	switch {
	case value == "":
		v.AddError(field, "url is empty", value)
	case err != nil:
		v.addf(field, value, "unparsable url: %v", err)
	case u.Host == "":
		v.AddError(field, "url has no host", value)
	case len(schemes) > 0 && !slices.Contains(schemes, u.Scheme):
		v.addf(field, value, "scheme %q not in %v", u.Scheme, schemes)
	}
}

// Origin accepts "*" or an http(s) origin without a path.
func (v *Validator) Origin(field, value string) {
	if value == "*" {
		return
	}
	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		v.AddError(field, `origin must be "*" or http(s)://host[:port]`, value)
		return
	}
	if strings.Trim(u.Path, "/") != "" {
		v.AddError(field, "origin carries a path", value)
	}
}

// ListenAddr requires host:port; the host part may be empty.
func (v *Validator) ListenAddr(field, value string) {
	if _, _, err := net.SplitHostPort(value); err != nil {
		v.addf(field, value, "bad listen address: %v", err)
	}
}

func (v *Validator) Range(field string, value, lo, hi int) {
	if value < lo || value > hi {
		v.addf(field, value, "%d outside [%d, %d]", value, lo, hi)
	}
}

func (v *Validator) FloatRange(field string, value, lo, hi float64) {
	if value < lo || value > hi {
		v.addf(field, value, "%g outside [%g, %g]", value, lo, hi)
	}
}

func (v *Validator) MinDuration(field string, value, floor time.Duration) {
	if value < floor {
		v.addf(field, value, "%s is shorter than %s", value, floor)
	}
}

func (v *Validator) NotEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "required", value)
	}
}

// MinLength counts runes, not bytes.
func (v *Validator) MinLength(field, value string, n int) {
	if got := len([]rune(value)); got < n {
		v.addf(field, got, "needs at least %d characters, has %d", n, got)
	}
}

func (v *Validator) OneOf(field, value string, allowed []string) {
	if !slices.Contains(allowed, value) {
		v.addf(field, value, "%q is not one of %v", value, allowed)
	}
}

func (v *Validator) Positive(field string, value int) {
	if value <= 0 {
		v.addf(field, value, "must be > 0, got %d", value)
	}
}
