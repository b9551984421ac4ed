// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/nimbus/internal/log"
	"github.com/ManuGH/nimbus/internal/store"
	"github.com/ManuGH/nimbus/internal/textutil"
)

// threadView is the client shape of a thread. The owner is implied by the token.
type threadView struct {
	ID           string              `json:"id"`
	History      []store.HistoryItem `json:"history"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
	UpdatedLabel string              `json:"updatedLabel"`
}

func toThreadView(t store.Thread) threadView {
	h := t.History
	if h == nil {
		h = []store.HistoryItem{}
	}
	return threadView{
		ID:           t.ID,
		History:      h,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		UpdatedLabel: textutil.FormatDate(t.UpdatedAt),
	}
}

func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := s.store.ListThreads(r.Context(), principal(r).ID)
	if err != nil {
		s.storeFailure(w, r, "threads.list", err)
		return
	}
	out := make([]threadView, 0, len(threads))
	for _, t := range threads {
		out = append(out, toThreadView(t))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.CreateThread(r.Context(), principal(r).ID)
	if err != nil {
		s.storeFailure(w, r, "threads.create", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toThreadView(*t))
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.GetThread(r.Context(), principal(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		s.storeFailure(w, r, "threads.get", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toThreadView(*t))
}

type updateThreadRequest struct {
	History []store.HistoryItem `json:"history"`
}

func (s *Server) handleUpdateThread(w http.ResponseWriter, r *http.Request) {
	var body updateThreadRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if _, err := s.store.UpdateThread(r.Context(), principal(r).ID, chi.URLParam(r, "id"), body.History); err != nil {
		s.storeFailure(w, r, "threads.update", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"message": "Thread updated successfully"})
}

func (s *Server) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteThread(r.Context(), principal(r).ID, chi.URLParam(r, "id")); err != nil {
		s.storeFailure(w, r, "threads.delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// storeFailure maps store errors to problems. Ownership mismatches surface as 404.
func (s *Server) storeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeProblem(w, r, errNotFound, "Thread not found")
	case errors.Is(err, store.ErrConflict):
		writeProblem(w, r, errConflict, err.Error())
	default:
		s.fail(w, r, op, err)
	}
}

// fail logs err and answers 500 without leaking it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Error().Err(err).
		Str(log.FieldEvent, op+".failed").
		Msg("request failed")
	writeProblem(w, r, errInternal, "")
}
