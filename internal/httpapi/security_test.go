package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetpos/backend/internal/domain"
)

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	s := newTestAPI(t)
	res := s.do(t, http.MethodGet, "/healthz", "", "", nil)

	assert.Equal(t, "nosniff", res.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", res.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, res.Header().Get("Referrer-Policy"))
	assert.Contains(t, res.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestPreflightShortCircuits(t *testing.T) {
	s := newTestAPI(t)
	res := s.do(t, http.MethodOptions, "/api/v1/cart/items", "", "", nil)
	assert.Equal(t, http.StatusNoContent, res.Code)
}

func TestLoginRateLimitReturns429(t *testing.T) {
	s := newTestAPI(t)
	body, _ := json.Marshal(domain.LoginRequest{Username: "admin", Password: "wrong-pass"})

	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "127.0.0.1:5000"
		res := httptest.NewRecorder()

		s.handler.ServeHTTP(res, req)

		if i < 5 {
			require.Equal(t, http.StatusUnauthorized, res.Code, "attempt %d before limit", i+1)
		} else {
			require.Equal(t, http.StatusTooManyRequests, res.Code, "attempt %d after limit", i+1)
		}
	}
}

func TestJSONBodyTooLargeRejected(t *testing.T) {
	s := newTestAPI(t)
	veryLong := strings.Repeat("a", (1<<20)+1024)
	body := fmt.Sprintf(`{"username":"%s","password":"x"}`, veryLong)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	s.handler.ServeHTTP(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestUnknownJSONFieldsRejected(t *testing.T) {
	s := newTestAPI(t)
	token := loginAsCashier(t, s)
	csrf := fetchCSRFToken(t, s)

	res := s.do(t, http.MethodPost, "/api/v1/cart/items", token, csrf, map[string]any{
		"product_id": "prd-x",
		"quantity":   1,
		"price":      1,
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestMutationsRequireCSRFToken(t *testing.T) {
	s := newTestAPI(t)
	token := loginAsCashier(t, s)

	res := s.do(t, http.MethodDelete, "/api/v1/cart", token, "", nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = s.do(t, http.MethodPost, "/api/v1/checkout/commit", token, "bogus", nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = s.do(t, http.MethodDelete, "/api/v1/cart", token, fetchCSRFToken(t, s), nil)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestCSRFTokenAcceptsPreviousHour(t *testing.T) {
	s := newTestAPI(t)
	current := time.Now().UTC().Truncate(time.Hour).Unix()

	assert.True(t, s.api.validateCSRFToken(s.api.csrfTokenForHour(current)))
	assert.True(t, s.api.validateCSRFToken(s.api.csrfTokenForHour(current-3600)))
	assert.False(t, s.api.validateCSRFToken(s.api.csrfTokenForHour(current-7200)))
	assert.False(t, s.api.validateCSRFToken(""))
}

func TestServerErrorsHideDetails(t *testing.T) {
	res := httptest.NewRecorder()
	writeError(res, http.StatusInternalServerError, fmt.Errorf("pq: relation kv_entries does not exist"))

	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.NotContains(t, res.Body.String(), "kv_entries")
}

func TestParsePositiveLimitCaps(t *testing.T) {
	assert.Equal(t, 200, parsePositiveLimit("9999", 50, 200))
	assert.Equal(t, 50, parsePositiveLimit("", 50, 200))
	assert.Equal(t, 50, parsePositiveLimit("invalid", 50, 200))
	assert.Equal(t, 50, parsePositiveLimit("-3", 50, 200))
}

func TestParseDateParam(t *testing.T) {
	got, err := parseDateParam("2026-03-10")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 10, got.Day())

	got, err = parseDateParam("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseDateParam("yesterday")
	assert.Error(t, err)
}
