package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPMetrics_CountsByRoute(t *testing.T) {
	m := NewHTTPMetrics("test")
	reg := prometheus.NewRegistry()
	m.MustRegister(reg)

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/appointments/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	for _, id := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodGet, "/appointments/"+id, nil)
		e.ServeHTTP(httptest.NewRecorder(), req)
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/appointments/:id", "200"))
	if got != 2 {
		t.Errorf("expected 2 requests on the route pattern, got %v", got)
	}
}

func TestHTTPMetrics_RecordsErrorCode(t *testing.T) {
	m := NewHTTPMetrics("test")
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/x")

	err := m.Middleware()(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusConflict, "dup")
	})(c)
	if err == nil {
		t.Fatal("expected error to propagate")
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/x", "409")); got != 1 {
		t.Errorf("expected one 409 observation, got %v", got)
	}
}
