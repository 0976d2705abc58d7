package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/model"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/jwtutil"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newServer(t *testing.T) (*echo.Echo, *jwtutil.JWTUtil) {
	t.Helper()
	j := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: "test-key", ExpirationHours: 1})

	e := echo.New()
	e.Use(RequestIDMiddleware())
	api := e.Group("/api", JWTAuthMiddleware(j))
	api.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"id": CurrentUser(c).UserID})
	})
	api.GET("/admin", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, RequireRole(model.RoleAdmin))
	return e, j
}

func do(e *echo.Echo, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	e, _ := newServer(t)

	assert.Equal(t, http.StatusUnauthorized, do(e, "/api/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, "/api/me", "Bearer").Code)
}

func TestInvalidTokenIsForbidden(t *testing.T) {
	e, _ := newServer(t)

	other := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: "other-key", ExpirationHours: 1})
	token, err := other.GenerateToken(1, "a@example.com", "A", "admin")
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, do(e, "/api/me", "Bearer "+token).Code)
	assert.Equal(t, http.StatusForbidden, do(e, "/api/me", "Bearer garbage").Code)
}

func TestValidTokenPassesClaims(t *testing.T) {
	e, j := newServer(t)
	token, err := j.GenerateToken(42, "a@example.com", "A", "executive")
	require.NoError(t, err)

	rec := do(e, "/api/me", "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":42}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestRequireRole(t *testing.T) {
	e, j := newServer(t)

	exec, err := j.GenerateToken(2, "e@example.com", "E", "executive")
	require.NoError(t, err)
	admin, err := j.GenerateToken(1, "a@example.com", "A", "admin")
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, do(e, "/api/admin", "Bearer "+exec).Code)
	assert.Equal(t, http.StatusNoContent, do(e, "/api/admin", "Bearer "+admin).Code)
}

func TestRequestIDIsKept(t *testing.T) {
	e, _ := newServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(echo.HeaderXRequestID))
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "tok", bearerToken("Bearer tok"))
	assert.Equal(t, "tok", bearerToken("bearer tok"))
	assert.Equal(t, "tok", bearerToken("tok"))
	assert.Equal(t, "", bearerToken(""))
	assert.Equal(t, "", bearerToken("Bearer"))
	assert.Equal(t, "", bearerToken("a b c"))
}

func TestAuthenticatedRequestLogsCarryUser(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger.SetLogger(zap.New(core))
	t.Cleanup(func() { logger.SetLogger(nil) })

	j := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: "test-key", ExpirationHours: 1})
	e := echo.New()
	e.GET("/api/ping", func(c echo.Context) error {
		logger.FromContext(c.Request().Context()).Info("pong")
		return c.NoContent(http.StatusNoContent)
	}, JWTAuthMiddleware(j))

	token, err := j.GenerateToken(7, "m@example.com", "M", "manager")
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, do(e, "/api/ping", "Bearer "+token).Code)

	entries := logs.FilterMessage("pong").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, 7, fields["user_id"])
	assert.Equal(t, "manager", fields["role"])
}
