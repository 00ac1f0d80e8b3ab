package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClaims struct {
	subject string
}

func (c testClaims) GetSubject() (string, error) {
	return c.subject, nil
}

// testTokenValidator maps token strings to subjects.
type testTokenValidator map[string]string

func (v testTokenValidator) ValidateToken(tokenString string) (SubjectGetter, error) {
	subject, ok := v[tokenString]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return testClaims{subject: subject}, nil
}

func serve(t *testing.T, header string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	validator := testTokenValidator{"good-token": "guild-officer", "anonymous": ""}

	var subject string
	handler := AuthMiddleware(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		subject, err = GetSubject(r)
		require.NoError(t, err)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w, subject
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	for _, header := range []string{"Bearer good-token", "bearer good-token", "BEARER   good-token"} {
		w, subject := serve(t, header)
		assert.Equal(t, http.StatusOK, w.Code, header)
		assert.Equal(t, "guild-officer", subject)
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header"},
		{name: "wrong scheme", header: "Basic good-token"},
		{name: "no token", header: "Bearer"},
		{name: "extra parts", header: "Bearer good-token extra"},
		{name: "unknown token", header: "Bearer forged"},
		{name: "empty subject", header: "Bearer anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, subject := serve(t, tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Empty(t, subject, "handler must not run")
			assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")
			assert.JSONEq(t, `{"success":false,"error":"unauthorized"}`, w.Body.String())
		})
	}
}

func TestGetSubject(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := GetSubject(req)
	assert.Error(t, err)

	req = req.WithContext(context.WithValue(req.Context(), SubjectKey(), "cli"))
	subject, err := GetSubject(req)
	require.NoError(t, err)
	assert.Equal(t, "cli", subject)
}
