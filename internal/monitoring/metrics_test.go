package monitoring

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRequest(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest(http.MethodGet, "/api/projects", http.StatusOK, 10*time.Millisecond)
	m.RecordRequest(http.MethodGet, "/api/projects", http.StatusOK, 30*time.Millisecond)
	m.RecordRequest(http.MethodPost, "/api/skill_gap", http.StatusNotFound, 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "/api/projects", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodPost, "/api/skill_gap", "404")))

	stats := m.GetStats()
	assert.Equal(t, int64(3), stats["request_count"])
	assert.Equal(t, int64(1), stats["error_count"])
	assert.InDelta(t, 15.0, stats["avg_response_time_ms"], 0.001)
}

func TestRecordRequestUnmatchedRoute(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "unmatched", "404")))
}

func TestAnalyticsCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordAnalytics("detect_anomalies", "ok", 20*time.Millisecond)
	m.RecordAnalytics("detect_anomalies", "insufficient_data", time.Millisecond)
	m.AddFlagged(2)
	m.AddFlagged(1)
	m.SetModelVersion(4)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.analyticsRuns.WithLabelValues("detect_anomalies", "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.accountsFlagged))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.modelVersion))
	assert.Equal(t, int64(3), m.GetStats()["accounts_flagged"])
}

func TestCacheHitRate(t *testing.T) {
	m := NewMetrics()
	assert.Equal(t, 0.0, m.GetStats()["cache_hit_rate"])

	m.IncrementCacheHit()
	m.IncrementCacheHit()
	m.IncrementCacheHit()
	m.IncrementCacheMiss()

	assert.InDelta(t, 0.75, m.GetStats()["cache_hit_rate"], 1e-9)
}

func TestRateLimitBlocks(t *testing.T) {
	m := NewMetrics()
	m.IncrementRateLimitEndpoint("/api/admin/run_fake_detection")
	m.IncrementRateLimitEndpoint("/api/admin/run_fake_detection")
	m.IncrementRateLimitFallback()

	blocks := m.GetStats()["rate_limit_blocks"].(map[string]int64)
	assert.Equal(t, int64(2), blocks["/api/admin/run_fake_detection"])
	assert.Equal(t, int64(1), m.GetStats()["rate_limit_fallback"])
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := NewMetrics()
	m.AddFlagged(1)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body, _ := io.ReadAll(w.Body)
	assert.Contains(t, string(body), "campus_accounts_flagged_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestInstancesDoNotShareState(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.AddFlagged(5)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.accountsFlagged))
}

func TestMiddlewareChain(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, ParseLevel("info"))
	m := NewMetrics()

	r := gin.New()
	r.Use(RequestIDMiddleware(), MonitoringMiddleware(m, logger))
	r.GET("/api/projects", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("generates a request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/projects", nil))
		assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	})

	t.Run("keeps the caller's request id", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

		var entry map[string]interface{}
		line := strings.SplitN(strings.TrimSpace(buf.String()), "\n", 2)[0]
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Equal(t, "abc-123", entry["request_id"])
		assert.Equal(t, "/api/projects", entry["path"])
		assert.NotEmpty(t, entry["timestamp"])
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "/api/projects", "200")))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   "DEBUG",
		"WARN":    "WARN",
		"warning": "WARN",
		"error":   "ERROR",
		"":        "INFO",
		"verbose": "INFO",
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in).String(), in)
	}
}

func TestSecurityMonitoringMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	r := gin.New()
	r.Use(SecurityMonitoringMiddleware(NewLoggerWithWriter(&buf, ParseLevel("info"))))
	r.GET("/api/projects", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set("User-Agent", "sqlmap/1.7")
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.Contains(t, buf.String(), "suspicious_user_agent")

	buf.Reset()
	req = httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.Empty(t, buf.String())
}
