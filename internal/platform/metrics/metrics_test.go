package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_RecordsRouteAndStatus(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/products/:id", func(c echo.Context) error {
		if c.Param("id") == "missing" {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return c.JSON(http.StatusOK, map[string]string{"id": c.Param("id")})
	})

	for _, id := range []string{"p1", "p2", "missing"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/"+id, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/products/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/products/:id", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.latency))
}

func TestOrderCounters(t *testing.T) {
	m := New()
	m.OrderPlaced()
	m.OrderPlaced()
	m.OrderFailed("persistence")
	m.Compensation(CompensationFailed)
	m.PublishFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersPlaced))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.orderFailures.WithLabelValues("persistence")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compensations.WithLabelValues(CompensationFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishFailures))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.OrderPlaced()
		m.OrderFailed("x")
		m.Compensation(CompensationSucceeded)
		m.PublishFailed()
	})
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := New()
	m.OrderPlaced()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "healthhub_orders_placed_total 1"))
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}
