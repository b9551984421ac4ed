// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestExtractToken_PriorityOrder(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/threads", nil)
	r.Header.Set("Authorization", "Bearer bearer-token ")
	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "session-token"})
	assert.Equal(t, "bearer-token", ExtractToken(r))

	r = httptest.NewRequest(http.MethodGet, "/threads", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "session-token"})
	assert.Equal(t, "session-token", ExtractToken(r))

	r = httptest.NewRequest(http.MethodGet, "/threads", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	assert.Empty(t, ExtractToken(r))
}

func TestIssuer_RoundTrip(t *testing.T) {
	iss := NewIssuer(testSecret, "nimbus", time.Hour)
	tok, exp, err := iss.Issue("user-1", "a@b.co")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	p, err := iss.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, &Principal{ID: "user-1", Email: "a@b.co"}, p)
}

func TestIssuer_Rejects(t *testing.T) {
	iss := NewIssuer(testSecret, "nimbus", time.Hour)
	tok, _, err := iss.Issue("user-1", "a@b.co")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewIssuer("another-secret-another-secret-xx", "nimbus", time.Hour).Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		_, err := NewIssuer(testSecret, "someone-else", time.Hour).Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewIssuer(testSecret, "nimbus", time.Minute)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		old, _, err := past.Issue("user-1", "a@b.co")
		require.NoError(t, err)
		_, err = iss.Verify(old)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "nimbus",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = iss.Verify(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := iss.Verify("not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
		_, err = iss.Verify("")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestPasswords(t *testing.T) {
	_, err := HashPassword("12345")
	assert.ErrorIs(t, err, ErrWeakPassword)

	h, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NoError(t, CheckPassword(h, "s3cret!"))
	assert.ErrorIs(t, CheckPassword(h, "wrong"), ErrInvalidCredentials)
}

func TestNormalizeEmail(t *testing.T) {
	e, err := NormalizeEmail("  Alice@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", e)

	for _, bad := range []string{"", "alice", "alice@", "Alice <a@b.co>", "a@localhost"} {
		_, err := NormalizeEmail(bad)
		assert.ErrorIs(t, err, ErrInvalidEmail, bad)
	}
}
