// SPDX-License-Identifier: MIT

// Package audit provides structured audit logging for security-sensitive operations.
// It follows the WHO/WHAT/WHEN pattern for forensics.
package audit

import (
	"net"
	"net/http"
	"time"

	"github.com/ManuGH/nimbus/internal/log"
	"github.com/rs/zerolog"
)

// EventType represents the type of audit event.
type EventType string

const (
	// Configuration events
	EventConfigReload      EventType = "config.reload"
	EventConfigReloadError EventType = "config.reload.error"

	// Account events
	EventSignup       EventType = "account.signup"
	EventLoginSuccess EventType = "auth.login.success"
	EventLoginFailure EventType = "auth.login.failure"

	// Authentication events
	EventAuthFailure EventType = "auth.failure"

	// API events
	EventAPIRateLimit EventType = "api.ratelimit"
	EventCheckout     EventType = "checkout.session"
)

// Event represents a structured audit event.
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	Type       EventType         `json:"type"`
	Actor      string            `json:"actor"`             // WHO: user id, email, IP or "system"
	Action     string            `json:"action"`            // WHAT: human-readable action description
	Resource   string            `json:"resource"`          // Resource affected (endpoint, config file)
	Result     string            `json:"result"`            // success, failure, denied
	RemoteAddr string            `json:"remote_addr"`       // Client IP address
	UserAgent  string            `json:"user_agent"`        // Client user agent
	RequestID  string            `json:"request_id"`        // Correlation ID
	Details    map[string]string `json:"details,omitempty"` // Additional context
}

// Logger provides audit logging functionality. A nil *Logger discards events.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates a new audit logger with a dedicated "audit" component.
func NewLogger() *Logger {
	return NewLoggerWith(log.WithComponent("audit"))
}

// NewLoggerWith builds an audit logger on top of base.
func NewLoggerWith(base zerolog.Logger) *Logger {
	return &Logger{
		logger: base.With().Str("log_type", "audit").Logger(),
	}
}

// Log writes an audit event to the audit log.
func (l *Logger) Log(event Event) {
	if l == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	logEvent := l.logger.Info().
		Time("timestamp", event.Timestamp).
		Str("event_type", string(event.Type)).
		Str("actor", event.Actor).
		Str("action", event.Action).
		Str("resource", event.Resource).
		Str("result", event.Result)

	if event.RemoteAddr != "" {
		logEvent.Str("remote_addr", event.RemoteAddr)
	}
	if event.UserAgent != "" {
		logEvent.Str("user_agent", event.UserAgent)
	}
	if event.RequestID != "" {
		logEvent.Str("request_id", event.RequestID)
	}
	for key, value := range event.Details {
		logEvent.Str(key, value)
	}

	logEvent.Msg("audit event")
}

// LogRequest fills remote address, user agent, request id and resource from r.
func (l *Logger) LogRequest(r *http.Request, event Event) {
	if r != nil {
		if event.RemoteAddr == "" {
			event.RemoteAddr = clientIP(r)
		}
		if event.UserAgent == "" {
			event.UserAgent = r.UserAgent()
		}
		if event.RequestID == "" {
			event.RequestID = log.RequestIDFromContext(r.Context())
		}
		if event.Resource == "" {
			event.Resource = r.URL.Path
		}
		if event.Actor == "" {
			event.Actor = log.UserIDFromContext(r.Context())
		}
	}
	if event.Actor == "" {
		event.Actor = event.RemoteAddr
	}
	l.Log(event)
}

// ConfigReload logs a configuration reload event.
func (l *Logger) ConfigReload(actor, result string, details map[string]string) {
	typ := EventConfigReload
	if result != "success" {
		typ = EventConfigReloadError
	}
	l.Log(Event{
		Type:     typ,
		Actor:    actor,
		Action:   "reload configuration",
		Resource: "config",
		Result:   result,
		Details:  details,
	})
}

// Signup logs an account creation.
func (l *Logger) Signup(r *http.Request, userID string) {
	l.LogRequest(r, Event{
		Type:   EventSignup,
		Actor:  userID,
		Action: "create account",
		Result: "success",
	})
}

// Login logs a login attempt. The email is recorded only for failures,
// where no user id is known.
func (l *Logger) Login(r *http.Request, userID, email string, ok bool) {
	if ok {
		l.LogRequest(r, Event{Type: EventLoginSuccess, Actor: userID, Action: "login", Result: "success"})
		return
	}
	l.LogRequest(r, Event{
		Type:    EventLoginFailure,
		Action:  "login",
		Result:  "failure",
		Details: map[string]string{"email": email},
	})
}

// AuthFailure logs a rejected token.
func (l *Logger) AuthFailure(r *http.Request, reason string) {
	l.LogRequest(r, Event{
		Type:    EventAuthFailure,
		Action:  "authenticate request",
		Result:  "denied",
		Details: map[string]string{"reason": reason},
	})
}

// RateLimitExceeded logs a request rejected by a limiter.
func (l *Logger) RateLimitExceeded(r *http.Request, scope string) {
	l.LogRequest(r, Event{
		Type:    EventAPIRateLimit,
		Action:  "rate limit exceeded",
		Result:  "denied",
		Details: map[string]string{"scope": scope},
	})
}

// CheckoutCreated logs a checkout session for an item.
func (l *Logger) CheckoutCreated(r *http.Request, itemID, sessionID string) {
	l.LogRequest(r, Event{
		Type:    EventCheckout,
		Action:  "create checkout session",
		Result:  "success",
		Details: map[string]string{"item_id": itemID, "session_id": sessionID},
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
