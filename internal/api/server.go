// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the nimbus HTTP API.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/nimbus/internal/api/middleware"
	"github.com/ManuGH/nimbus/internal/audit"
	"github.com/ManuGH/nimbus/internal/auth"
	"github.com/ManuGH/nimbus/internal/checkout"
	"github.com/ManuGH/nimbus/internal/config"
	"github.com/ManuGH/nimbus/internal/generate"
	"github.com/ManuGH/nimbus/internal/health"
	"github.com/ManuGH/nimbus/internal/knowledge"
	"github.com/ManuGH/nimbus/internal/log"
	"github.com/ManuGH/nimbus/internal/store"
)

// AnonymousID is the principal used on protected routes when auth is disabled.
const AnonymousID = "anonymous"

// Generator answers /generate. *generate.Service satisfies it.
type Generator interface {
	Generate(ctx context.Context, p *auth.Principal, req generate.Request) (string, error)
}

// SessionCreator creates checkout sessions. *checkout.Client satisfies it.
type SessionCreator interface {
	CreateSession(ctx context.Context, item checkout.Item) (checkout.Session, error)
}

// Deps are the collaborators of the API server.
type Deps struct {
	Config    config.AppConfig
	Store     store.Store
	Generate  Generator
	Tokens    *auth.Issuer // nil when auth is disabled
	Knowledge *knowledge.Base
	Checkout  SessionCreator
	Health    *health.Manager
	Audit     *audit.Logger
}

// Server holds the handlers. Build the http.Handler with Handler.
type Server struct {
	cfg       config.AppConfig
	store     store.Store
	gen       Generator
	tokens    *auth.Issuer
	knowledge *knowledge.Base
	checkout  SessionCreator
	health    *health.Manager
	audit     *audit.Logger
}

// New creates a Server. A nil Health gets an empty manager.
func New(d Deps) *Server {
	if d.Health == nil {
		d.Health = health.NewManager(d.Config.Version)
	}
	return &Server{
		cfg:       d.Config,
		store:     d.Store,
		gen:       d.Generate,
		tokens:    d.Tokens,
		knowledge: d.Knowledge,
		checkout:  d.Checkout,
		health:    d.Health,
		audit:     d.Audit,
	}
}

// Handler returns the routed handler with the ingress middleware stack.
func (s *Server) Handler() http.Handler {
	tracing := ""
	if s.cfg.Telemetry.Enabled {
		tracing = s.cfg.LogService
	}

	r := middleware.NewRouter(middleware.StackConfig{
		AllowedOrigins:    s.cfg.API.AllowedOrigins,
		EnableMetrics:     true,
		TracingService:    tracing,
		EnableLogging:     true,
		RateLimitRequests: s.cfg.API.RateLimit.Requests,
		RateLimitWindow:   s.cfg.API.RateLimit.Window,
		Audit:             s.audit,
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, errNotFound, "No route for "+r.Method+" "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, errMethod, "")
	})

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Get("/api/greeting", s.handleGreeting)
	r.Get("/api/version", s.handleVersion)

	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)

	r.Post("/knowledge/search", s.handleKnowledgeSearch)
	r.Post("/knowledge/quality", s.handleKnowledgeQuality)
	r.Post("/knowledge/reputable", s.handleKnowledgeReputable)
	r.Post("/grammar/check", s.handleGrammarCheck)
	r.Post("/share", s.handleShare)
	r.Post("/api/create-checkout-session", s.handleCreateCheckoutSession)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth())

		r.Post("/generate", s.handleGenerate)

		r.Route("/threads", func(r chi.Router) {
			r.Get("/", s.handleListThreads)
			r.Post("/", s.handleCreateThread)
			r.Get("/{id}", s.handleGetThread)
			r.Put("/{id}", s.handleUpdateThread)
			r.Delete("/{id}", s.handleDeleteThread)
		})

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
		r.Post("/personality/preview", s.handlePersonalityPreview)
		r.Get("/history", s.handleHistory)
	})

	return r
}

// requireAuth verifies tokens, or injects the anonymous principal when
// auth is disabled.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	if s.cfg.Auth.Enabled && s.tokens != nil {
		return auth.Require(s.tokens, s.audit)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := &auth.Principal{ID: AnonymousID}
			ctx := auth.WithPrincipal(r.Context(), p)
			ctx = log.ContextWithUserID(ctx, p.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// principal returns the caller set by requireAuth.
func principal(r *http.Request) *auth.Principal {
	if p := auth.PrincipalFrom(r.Context()); p != nil {
		return p
	}
	return &auth.Principal{ID: AnonymousID}
}
