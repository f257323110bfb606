package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"samaj-census/internal/config"
	"samaj-census/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testAuth() service.AuthService {
	return service.NewAuthService(config.AuthConfig{
		JWTSecret:     "test-secret",
		TokenExpiry:   15 * time.Minute,
		AdminUsername: "admin",
		AdminPassword: "s3cret",
	}, zap.NewNop())
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	handler := RequireAuth(testAuth(), zap.NewNop(), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/members", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set("Authorization", "Basic abc")
	rec = httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRejectsInvalidToken(t *testing.T) {
	handler := RequireAuth(testAuth(), zap.NewNop(), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/members", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthPassesValidToken(t *testing.T) {
	auth := testAuth()
	token, err := auth.IssueToken("admin", "s3cret")
	require.NoError(t, err)

	called := false
	handler := RequireAuth(auth, zap.NewNop(), func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/members", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	rec := httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestTokenEndpoint(t *testing.T) {
	h := NewAuthHandler(testAuth(), zap.NewNop())

	post := func(form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.Token(rec, req)
		return rec
	}

	rec := post(url.Values{"username": {"admin"}, "password": {"s3cret"}})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp service.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bearer", resp.TokenType)
	assert.NotEmpty(t, resp.AccessToken)

	rec = post(url.Values{"username": {"admin"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(url.Values{"username": {"admin"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
