package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthEvent("login", "success")
	c.RecordAuthEvent("login", "success")
	c.RecordAuthEvent("login", "invalid_credentials")
	c.RecordRateLimitRejection("login")
	c.RecordHTTPRequest(http.MethodGet, "/api/v1/trips", http.StatusOK, 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.authEvents.WithLabelValues("login", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.authEvents.WithLabelValues("login", "invalid_credentials")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rateLimitDrops.WithLabelValues("login")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/api/v1/trips", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.httpDuration))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordAuthEvent("refresh", "success")

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `trip_auth_events_total{operation="refresh",outcome="success"} 1`)
}
