package middleware

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resilienthubs/booking-engine/internal/config"
)

func serveMetrics(t *testing.T, cfg config.MetricsConfig, authHeader string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := MetricsBasicAuth(cfg)(func(c echo.Context) error {
		return c.String(http.StatusOK, "metrics")
	})
	return rec, handler(c)
}

func basic(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestMetricsBasicAuth_NoCredentials(t *testing.T) {
	rec, err := serveMetrics(t, config.MetricsConfig{}, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "metrics", rec.Body.String())
}

func TestMetricsBasicAuth_ValidCredentials(t *testing.T) {
	rec, err := serveMetrics(t, config.MetricsConfig{User: "scraper", Password: "s3cret"}, basic("scraper", "s3cret"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsBasicAuth_Rejected(t *testing.T) {
	cfg := config.MetricsConfig{User: "scraper", Password: "s3cret"}

	tests := []struct {
		name   string
		header string
	}{
		{"wrong credentials", basic("scraper", "guess")},
		{"no header", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := serveMetrics(t, cfg, tt.header)
			var he *echo.HTTPError
			require.ErrorAs(t, err, &he)
			assert.Equal(t, http.StatusUnauthorized, he.Code)
		})
	}
}
