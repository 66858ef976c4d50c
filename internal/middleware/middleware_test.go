package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/vetclinic-api/internal/apperr"
	"github.com/harentsoaR/vetclinic-api/internal/authz"
	"github.com/harentsoaR/vetclinic-api/internal/metrics"
	"github.com/harentsoaR/vetclinic-api/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeResolver map[string]*models.StaffIdentity

func (f fakeResolver) Resolve(_ context.Context, token string) (*models.StaffIdentity, error) {
	staff, ok := f[token]
	if !ok {
		return nil, apperr.Unauthorized("invalid or expired session token")
	}
	if err := staff.AccessCheck(); err != nil {
		return nil, err
	}
	return staff, nil
}

func perform(r http.Handler, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAuthenticate(t *testing.T) {
	resolver := fakeResolver{
		"admin-token":    {Role: models.RoleAdmin, Active: true},
		"vet-token":      {Role: models.RoleVeterinarian, Active: true},
		"inactive-token": {Role: models.RoleAdmin, Active: false},
	}

	r := gin.New()
	r.GET("/me", StaffAuth(resolver), func(c *gin.Context) {
		staff, ok := StaffFrom(c)
		require.True(t, ok)
		_, isClient := ClientFrom(c)
		assert.False(t, isClient)
		c.JSON(http.StatusOK, gin.H{"role": staff.Role})
	})
	r.GET("/admin", StaffAuth(resolver), RequireRoles(authz.AdminOnly), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		path   string
		auth   string
		status int
		code   string
	}{
		{"missing header", "/me", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "/me", "Basic abc", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"empty token", "/me", "Bearer ", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unknown token", "/me", "Bearer nope", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"deactivated", "/me", "Bearer inactive-token", http.StatusForbidden, "FORBIDDEN"},
		{"ok", "/me", "Bearer vet-token", http.StatusOK, ""},
		{"lowercase scheme", "/me", "bearer vet-token", http.StatusOK, ""},
		{"role denied", "/admin", "Bearer vet-token", http.StatusForbidden, "FORBIDDEN"},
		{"role allowed", "/admin", "Bearer admin-token", http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := perform(r, http.MethodGet, tt.path, tt.auth)
			assert.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				body := decodeError(t, rec)
				assert.Equal(t, tt.code, body.Code)
				assert.NotEmpty(t, body.Error)
			}
		})
	}
}

func TestRequireRoles_WithoutIdentity(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequireRoles(authz.AnyStaff), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := perform(r, http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRecoveryAndRequestID(t *testing.T) {
	var buf strings.Builder
	log := zerolog.New(&buf)

	r := gin.New()
	r.Use(RequestID(log), Logger(), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := perform(r, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ErrorResponse{Error: "internal server error", Code: "INTERNAL"}, decodeError(t, rec))
	assert.NotEmpty(t, rec.Header().Get(HeaderXRequestID))
	assert.Contains(t, buf.String(), "Request panic recovered")

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(HeaderXRequestID, "req-42")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(HeaderXRequestID))
	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
}

func TestAbortWithError_HidesInternalCause(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		AbortWithError(c, apperr.Internal("", assert.AnError))
	})

	rec := perform(r, http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "internal server error", body.Error)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{PerMinute: 1, Burst: 2})
	r := gin.New()
	r.POST("/login", rl.RateLimit(), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/login", "").Code)
	}
	rec := perform(r, http.MethodPost, "/login", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, rec).Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	other := httptest.NewRecorder()
	r.ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	m := metrics.New()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/patients/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	perform(r, http.MethodGet, "/patients/abc", "")
	perform(r, http.MethodGet, "/missing", "")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `route="/patients/:id",status="200"`)
	assert.Contains(t, rec.Body.String(), `route="unmatched",status="404"`)
}
