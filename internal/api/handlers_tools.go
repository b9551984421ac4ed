// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ManuGH/nimbus/internal/checkout"
	"github.com/ManuGH/nimbus/internal/grammar"
	"github.com/ManuGH/nimbus/internal/knowledge"
	"github.com/ManuGH/nimbus/internal/textutil"
)

type searchRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleKnowledgeSearch(w http.ResponseWriter, r *http.Request) {
	var body searchRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if s.knowledge == nil {
		writeProblem(w, r, errInternal, "knowledge base not loaded")
		return
	}
	report, err := s.knowledge.SearchAll(r.Context(), body.Query)
	if err != nil {
		s.fail(w, r, "knowledge.search", err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

type qualityRequest struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

func (s *Server) handleKnowledgeQuality(w http.ResponseWriter, r *http.Request) {
	var body qualityRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	writeJSON(w, r, http.StatusOK, knowledge.EvaluateQuality(body.Source, body.Content))
}

type reputableRequest struct {
	Results []knowledge.WebResult `json:"results"`
}

func (s *Server) handleKnowledgeReputable(w http.ResponseWriter, r *http.Request) {
	var body reputableRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"results": knowledge.FilterReputable(body.Results)})
}

type grammarRequest struct {
	Text  string `json:"text"`
	Topic string `json:"topic"`
}

func (s *Server) handleGrammarCheck(w http.ResponseWriter, r *http.Request) {
	var body grammarRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"corrections": grammar.Check(body.Text),
		"references":  grammar.References(body.Topic),
	})
}

type shareRequest struct {
	Origin   string `json:"origin"`
	Response string `json:"response"`
	Code     string `json:"code"`
	Language string `json:"language"`
}

// handleShare builds share links for a response or a code snippet.
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	var body shareRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Origin) == "" {
		writeProblem(w, r, errValidation, "origin is required")
		return
	}
	switch {
	case body.Code != "":
		writeJSON(w, r, http.StatusOK, map[string]string{
			"url":      textutil.ShareCodeURL(body.Origin, body.Code),
			"filename": textutil.CodeFilename(body.Language),
		})
	case body.Response != "":
		writeJSON(w, r, http.StatusOK, map[string]string{
			"url": textutil.ShareResponseURL(body.Origin, body.Response),
		})
	default:
		writeProblem(w, r, errValidation, "response or code is required")
	}
}

func (s *Server) handleCreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var item checkout.Item
	if !decodeJSON(w, r, &item) {
		return
	}
	if err := item.Validate(); err != nil {
		writeProblem(w, r, errValidation, err.Error())
		return
	}
	if s.checkout == nil {
		writeProblem(w, r, errCheckoutNA, checkout.ErrNotConfigured.Error())
		return
	}

	sess, err := s.checkout.CreateSession(r.Context(), item)
	switch {
	case err == nil:
		s.audit.CheckoutCreated(r, item.ID, sess.ID)
		writeJSON(w, r, http.StatusOK, sess)
	case errors.Is(err, checkout.ErrInvalidItem):
		writeProblem(w, r, errValidation, err.Error())
	case errors.Is(err, checkout.ErrNotConfigured):
		writeProblem(w, r, errCheckoutNA, err.Error())
	default:
		writeProblem(w, r, errCheckout, err.Error())
	}
}
