package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"FarmMonitorAPI/internal/auth"
	"FarmMonitorAPI/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware-test-secret"

func okHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	w.Write([]byte(id.Actor()))
}

func TestAuthenticate(t *testing.T) {
	a := auth.NewAuthenticator(secret, "farm-monitor", 1)
	h := Authenticate(a, logger.NewNop())(RequireRole(auth.RoleOperator, okHandler))

	operator, err := a.IssueToken("u-1", "Farm Operator", auth.RoleOperator)
	require.NoError(t, err)
	viewer, err := a.IssueToken("u-2", "Guest", auth.RoleViewer)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing token", "", http.StatusUnauthorized, ""},
		{"garbage token", "Bearer nope", http.StatusUnauthorized, ""},
		{"viewer is read-only", "Bearer " + viewer, http.StatusForbidden, ""},
		{"operator passes", "Bearer " + operator, http.StatusOK, "Farm Operator"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/v1/alerts/x/acknowledge", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestAuthenticate_DisabledRunsAsAdmin(t *testing.T) {
	h := Authenticate(nil, logger.NewNop())(RequireRole(auth.RoleAdmin, okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/rules", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Farm Operator", rec.Body.String())
}

func TestRequireRole_WithoutIdentity(t *testing.T) {
	rec := httptest.NewRecorder()
	RequireRole(auth.RoleViewer, okHandler)(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := RateLimit(ctx, 2)(http.HandlerFunc(okHandler))
	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do("1.1.1.1").Code)
	assert.Equal(t, http.StatusOK, do("1.1.1.1").Code)
	limited := do("1.1.1.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do("2.2.2.2").Code)
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl := newRateLimiter(1)
	now := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	ok, _ := rl.allow("a")
	assert.True(t, ok)
	ok, wait := rl.allow("a")
	assert.False(t, ok)
	assert.Equal(t, time.Minute, wait)

	now = now.Add(time.Minute)
	ok, _ = rl.allow("a")
	assert.True(t, ok)
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.New(logger.Config{Level: logger.ERROR, Mode: logger.NORMAL, Output: &buf})
	require.NoError(t, err)

	h := Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
	assert.Contains(t, buf.String(), "boom")
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://farm.example"}, []string{"GET", "PUT"})(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://farm.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://farm.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET,PUT", rec.Header().Get("Access-Control-Allow-Methods"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
