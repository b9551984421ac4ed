// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ManuGH/nimbus/internal/personality"
	"github.com/ManuGH/nimbus/internal/store"
)

func (s *Server) settingsFor(ctx context.Context, uid string) (*store.Settings, error) {
	st, err := s.store.GetSettings(ctx, uid)
	if errors.Is(err, store.ErrNotFound) {
		return store.DefaultSettings(uid), nil
	}
	return st, err
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.settingsFor(r.Context(), principal(r).ID)
	if err != nil {
		s.storeFailure(w, r, "settings.get", err)
		return
	}
	writeJSON(w, r, http.StatusOK, st)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var st store.Settings
	if !decodeJSON(w, r, &st) {
		return
	}
	st.UserID = principal(r).ID
	st.Normalize()
	if err := st.Validate(); err != nil {
		writeProblem(w, r, errValidation, err.Error())
		return
	}
	if err := s.store.PutSettings(r.Context(), &st); err != nil {
		s.storeFailure(w, r, "settings.put", err)
		return
	}
	writeJSON(w, r, http.StatusOK, &st)
}

type previewRequest struct {
	Response string `json:"response"`
	Input    string `json:"input"`
}

func (s *Server) handlePersonalityPreview(w http.ResponseWriter, r *http.Request) {
	var body previewRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	st, err := s.settingsFor(r.Context(), principal(r).ID)
	if err != nil {
		s.storeFailure(w, r, "settings.get", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{
		"response": personality.Apply(body.Response, st.Personality, body.Input, nil),
	})
}

const historyLimit = 100

// handleHistory lists the caller's recent generate interactions.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.ListUserInteractions(r.Context(), principal(r).ID, historyLimit)
	if err != nil {
		s.storeFailure(w, r, "history.list", err)
		return
	}
	for i := range out {
		out[i].UserID = ""
	}
	writeJSON(w, r, http.StatusOK, out)
}
