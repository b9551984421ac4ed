// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"

	"github.com/ManuGH/nimbus/internal/generate"
	"github.com/ManuGH/nimbus/internal/ratelimit"
	"github.com/ManuGH/nimbus/internal/resilience"
	"github.com/ManuGH/nimbus/internal/store"
)

type generateRequest struct {
	Message  string       `json:"message"`
	Context  string       `json:"context"`
	Model    string       `json:"model"`
	Files    []store.File `json:"files"`
	ThreadID string       `json:"threadId"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body generateRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	answer, err := s.gen.Generate(r.Context(), principal(r), generate.Request{
		Message:  body.Message,
		Context:  body.Context,
		Model:    body.Model,
		Files:    body.Files,
		ThreadID: body.ThreadID,
		IP:       ratelimit.ClientIP(r),
	})
	switch {
	case err == nil:
		writeJSON(w, r, http.StatusOK, map[string]string{"response": answer})
	case errors.Is(err, generate.ErrMessageRequired):
		writeProblem(w, r, errValidation, "Message is required")
	case errors.Is(err, generate.ErrQuotaExceeded):
		w.Header().Set("Retry-After", "1")
		writeProblem(w, r, errQuota, "Generate quota exceeded, slow down")
	case errors.Is(err, resilience.ErrCircuitOpen):
		w.Header().Set("Retry-After", "30")
		writeProblem(w, r, errUnavail, "Failed to generate response: model endpoint temporarily unavailable")
	default:
		writeProblem(w, r, errUpstream, "Failed to generate response: "+err.Error())
	}
}
