// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"

	"github.com/ManuGH/nimbus/internal/api/problem"
	"github.com/ManuGH/nimbus/internal/log"
)

// apiError is a problem template: status, machine type and stable code.
type apiError struct {
	Status int
	Type   string
	Title  string
	Code   string
}

var (
	errBadRequest = apiError{http.StatusBadRequest, "request/invalid", "Bad Request", "BAD_REQUEST"}
	errBodyLarge  = apiError{http.StatusRequestEntityTooLarge, "request/too_large", "Payload Too Large", "BODY_TOO_LARGE"}
	errValidation = apiError{http.StatusBadRequest, "request/validation", "Validation Failed", "VALIDATION_FAILED"}
	errNotFound   = apiError{http.StatusNotFound, "resource/not_found", "Not Found", "NOT_FOUND"}
	errConflict   = apiError{http.StatusConflict, "resource/conflict", "Conflict", "CONFLICT"}
	errBadLogin   = apiError{http.StatusUnauthorized, "auth/invalid_credentials", "Unauthorized", "INVALID_CREDENTIALS"}
	errQuota      = apiError{http.StatusTooManyRequests, "generate/quota", "Too Many Requests", "QUOTA_EXCEEDED"}
	errInternal   = apiError{http.StatusInternalServerError, "internal", "Internal Server Error", "INTERNAL"}
	errUnavail    = apiError{http.StatusServiceUnavailable, "upstream/unavailable", "Service Unavailable", "UPSTREAM_UNAVAILABLE"}
	errUpstream   = apiError{http.StatusInternalServerError, "upstream/failed", "Internal Server Error", "UPSTREAM_FAILED"}
	errCheckout   = apiError{http.StatusBadGateway, "checkout/provider", "Bad Gateway", "CHECKOUT_FAILED"}
	errCheckoutNA = apiError{http.StatusServiceUnavailable, "checkout/disabled", "Service Unavailable", "CHECKOUT_DISABLED"}
	errAuthNA     = apiError{http.StatusServiceUnavailable, "auth/disabled", "Service Unavailable", "AUTH_DISABLED"}
	errMethod     = apiError{http.StatusMethodNotAllowed, "request/method", "Method Not Allowed", "METHOD_NOT_ALLOWED"}
)

func writeProblem(w http.ResponseWriter, r *http.Request, e apiError, detail string) {
	problem.Write(w, r, e.Status, e.Type, e.Title, e.Code, detail, nil)
}

func writeProblemExtra(w http.ResponseWriter, r *http.Request, e apiError, detail string, extra map[string]any) {
	problem.Write(w, r, e.Status, e.Type, e.Title, e.Code, detail, extra)
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).
			Str(log.FieldEvent, "response.encode_failed").
			Msg("failed to encode response")
	}
}
