// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package generate turns a user message into a personalised model answer.
package generate

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ManuGH/nimbus/internal/auth"
	"github.com/ManuGH/nimbus/internal/log"
	"github.com/ManuGH/nimbus/internal/metrics"
	"github.com/ManuGH/nimbus/internal/personality"
	"github.com/ManuGH/nimbus/internal/resilience"
	"github.com/ManuGH/nimbus/internal/store"
	"github.com/ManuGH/nimbus/internal/upstream"
)

var (
	// ErrMessageRequired is returned for an empty or whitespace-only message.
	ErrMessageRequired = errors.New("message is required")
	// ErrQuotaExceeded is returned when the caller used up their generate quota.
	ErrQuotaExceeded = errors.New("generate quota exceeded")
)

// Generator produces the raw model answer. *upstream.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, req upstream.Request) (string, error)
}

// Quota decides whether key may issue another request. *ratelimit.Limiter satisfies it.
type Quota interface {
	Allow(key string) bool
}

// Request is one /generate call.
type Request struct {
	Message string
	Context string
	Model   string
	Files   []store.File

	// ThreadID, when set, appends the exchange to that thread.
	ThreadID string
	// IP is recorded in the interaction log.
	IP string
}

// Service coordinates quota, upstream, personality and persistence.
type Service struct {
	gen   Generator
	quota Quota
	store store.Store
	rng   personality.Rand
	now   func() time.Time
}

// NewService wires a Service. quota may be nil to disable per-user limits.
func NewService(gen Generator, quota Quota, st store.Store) *Service {
	return &Service{
		gen:   gen,
		quota: quota,
		store: st,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Generate answers req on behalf of p.
func (s *Service) Generate(ctx context.Context, p *auth.Principal, req Request) (string, error) {
	logger := log.WithComponentFromContext(ctx, "generate")

	if strings.TrimSpace(req.Message) == "" {
		metrics.RecordGenerate("invalid")
		return "", ErrMessageRequired
	}

	userID := ""
	if p != nil {
		userID = p.ID
	}
	quotaKey := userID
	if quotaKey == "" {
		quotaKey = "ip:" + req.IP
	}
	if s.quota != nil && !s.quota.Allow(quotaKey) {
		metrics.RecordGenerate("quota")
		logger.Info().Str("event", "generate.quota_exceeded").Msg("generate quota exceeded")
		return "", ErrQuotaExceeded
	}

	raw, err := s.gen.Generate(ctx, upstream.Request{
		Message: req.Message,
		Context: req.Context,
		Model:   req.Model,
		Files:   req.Files,
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, resilience.ErrCircuitOpen) {
			outcome = "breaker_open"
		}
		metrics.RecordGenerate(outcome)
		s.logInteraction(ctx, userID, req, false)
		return "", err
	}

	settings := s.settingsFor(ctx, userID)
	answer := personality.Apply(raw, settings.Personality, req.Message, s.rng)

	if req.ThreadID != "" && userID != "" {
		if err := s.appendToThread(ctx, userID, req, answer); err != nil {
			// Non-fatal: the caller still gets the answer.
			logger.Warn().Err(err).
				Str("event", "generate.thread_append_failed").
				Str(log.FieldThreadID, req.ThreadID).
				Msg("failed to append exchange to thread")
		}
	}

	metrics.RecordGenerate("ok")
	s.logInteraction(ctx, userID, req, true)
	logger.Info().
		Str("event", "generate.completed").
		Int("message_len", len(req.Message)).
		Int("response_len", len(answer)).
		Msg("generate completed")
	return answer, nil
}

// settingsFor falls back to defaults when the user has none or the lookup fails.
func (s *Service) settingsFor(ctx context.Context, userID string) *store.Settings {
	if userID == "" {
		return store.DefaultSettings("")
	}
	st, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger := log.WithComponentFromContext(ctx, "generate")
			logger.Warn().Err(err).
				Str("event", "generate.settings_failed").
				Msg("settings lookup failed, using defaults")
		}
		return store.DefaultSettings(userID)
	}
	return st
}

func (s *Service) appendToThread(ctx context.Context, userID string, req Request, answer string) error {
	_, err := s.store.AppendHistory(ctx, userID, req.ThreadID, store.HistoryItem{
		Query:    req.Message,
		Files:    req.Files,
		Response: answer,
		Date:     s.now(),
	})
	return err
}

func (s *Service) logInteraction(ctx context.Context, userID string, req Request, sent bool) {
	err := s.store.LogInteraction(ctx, store.Interaction{
		UserID:    userID,
		IP:        req.IP,
		Question:  req.Message,
		Sent:      sent,
		Timestamp: s.now(),
	})
	if err != nil {
		logger := log.WithComponentFromContext(ctx, "generate")
		logger.Warn().Err(err).
			Str("event", "generate.interaction_log_failed").
			Msg("failed to record interaction")
	}
}
