// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ManuGH/nimbus/internal/auth"
	"github.com/ManuGH/nimbus/internal/log"
	"github.com/ManuGH/nimbus/internal/metrics"
	"github.com/ManuGH/nimbus/internal/store"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c credentials) missing() bool {
	return strings.TrimSpace(c.Email) == "" || c.Password == ""
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.missing() {
		writeProblem(w, r, errValidation, "Email and password are required")
		return
	}
	email, err := auth.NormalizeEmail(body.Email)
	if err != nil {
		writeProblemExtra(w, r, errValidation, err.Error(), map[string]any{"field": "email"})
		return
	}
	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			writeProblemExtra(w, r, errValidation, err.Error(), map[string]any{"field": "password"})
			return
		}
		s.fail(w, r, "auth.hash", err)
		return
	}

	u, err := s.store.CreateUser(r.Context(), email, hash)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeProblem(w, r, errConflict, "An account with this email already exists")
			return
		}
		s.storeFailure(w, r, "auth.signup", err)
		return
	}

	metrics.RecordAccountCreated()
	s.audit.Signup(r, u.ID)
	logger := log.WithComponentFromContext(r.Context(), "auth")
	logger.Info().
		Str(log.FieldEvent, "account.created").
		Str(log.FieldUserID, u.ID).
		Msg("account created")
	writeJSON(w, r, http.StatusCreated, map[string]string{
		"message": "User created successfully",
		"uid":     u.ID,
	})
}

type loginResponse struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UID       string    `json:"uid"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.missing() {
		writeProblem(w, r, errValidation, "Email and password are required")
		return
	}
	if s.tokens == nil {
		writeProblem(w, r, errAuthNA, "Token issuance is disabled")
		return
	}

	u, err := s.lookupUser(r, body.Email)
	if err == nil {
		err = auth.CheckPassword(u.PasswordHash, body.Password)
	}
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.RecordAuthFailure("bad_credentials")
			s.audit.Login(r, "", body.Email, false)
			writeProblem(w, r, errBadLogin, "Invalid email or password")
			return
		}
		s.storeFailure(w, r, "auth.login", err)
		return
	}

	token, exp, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		s.fail(w, r, "auth.issue", err)
		return
	}
	s.audit.Login(r, u.ID, u.Email, true)

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, r, http.StatusOK, loginResponse{
		Message:   "Login successful",
		Token:     token,
		ExpiresAt: exp,
		UID:       u.ID,
	})
}

// lookupUser folds unknown and malformed emails into ErrInvalidCredentials.
func (s *Server) lookupUser(r *http.Request, raw string) (*store.User, error) {
	email, err := auth.NormalizeEmail(raw)
	if err != nil {
		return nil, auth.ErrInvalidCredentials
	}
	u, err := s.store.GetUserByEmail(r.Context(), email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, auth.ErrInvalidCredentials
	}
	return u, err
}
