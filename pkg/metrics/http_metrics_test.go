package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsRequests(t *testing.T) {
	m := NewHTTPMetrics("metrics-test")
	// a second collector must not panic on registration
	NewHTTPMetrics("metrics-test")

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/ok", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot) })

	for _, path := range []string{"/ok", "/ok", "/boom"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	body := scrape(t)
	assert.Contains(t, body, `http_requests_total{method="GET",path="/ok",service="metrics-test",status="200"} 2`)
	assert.Contains(t, body, `http_requests_total{method="GET",path="/boom",service="metrics-test",status="418"} 1`)
	assert.Contains(t, body, `http_status_category_total{category="4xx",method="GET",path="/boom",service="metrics-test"} 1`)
}

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	GetPrometheusHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestPrometheusHandlerServesText(t *testing.T) {
	m := NewHTTPMetrics("metrics-test")
	m.ObserveUpload("/api/upload", 2048)

	assert.Contains(t, scrape(t), `http_upload_bytes_count{path="/api/upload",service="metrics-test"} 1`)
}

func TestStatusCategory(t *testing.T) {
	assert.Equal(t, "2xx", statusCategory(201))
	assert.Equal(t, "4xx", statusCategory(404))
	assert.Equal(t, "5xx", statusCategory(503))
	assert.Equal(t, "", statusCategory(0))
}
