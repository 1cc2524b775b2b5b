package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_CacheEvent(t *testing.T) {
	m := New()
	m.CacheEvent(CacheHit)
	m.CacheEvent(CacheHit)
	m.CacheEvent(CacheStale)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.cacheEvents.WithLabelValues(CacheHit)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cacheEvents.WithLabelValues(CacheStale)))
}

func TestMetrics_NilIsNoOp(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CacheEvent(CacheHit)
		m.GroundingTier("marker")
		m.CompletionObserved("ok", time.Second)
		m.ChatRequest("200")
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.GroundingTier("ranked")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `supportbot_grounding_tier_total{tier="ranked"} 1`)
}
