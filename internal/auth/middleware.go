// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"net/http"

	"github.com/ManuGH/nimbus/internal/api/problem"
	"github.com/ManuGH/nimbus/internal/audit"
	"github.com/ManuGH/nimbus/internal/log"
	"github.com/ManuGH/nimbus/internal/metrics"
)

// Require rejects requests without a valid token and stores the principal
// in the request context otherwise.
func Require(v Verifier, auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				metrics.RecordAuthFailure("missing")
				auditLog.AuthFailure(r, "missing token")
				problem.Write(w, r, http.StatusUnauthorized, "auth/missing_token", "Unauthorized", "UNAUTHORIZED", "No token provided", nil)
				return
			}

			p, err := v.Verify(token)
			if err != nil {
				metrics.RecordAuthFailure("invalid")
				auditLog.AuthFailure(r, "invalid token")
				logger := log.WithComponentFromContext(r.Context(), "auth")
				logger.Debug().
					Err(err).
					Str(log.FieldEvent, "auth.token_rejected").
					Msg("token verification failed")
				problem.Write(w, r, http.StatusUnauthorized, "auth/invalid_token", "Unauthorized", "INVALID_TOKEN", "Invalid token", nil)
				return
			}

			ctx := WithPrincipal(r.Context(), p)
			ctx = log.ContextWithUserID(ctx, p.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
