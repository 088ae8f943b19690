package service

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsServiceCounters(t *testing.T) {
	m := NewMetricsService()

	m.ObservePersist("personal", "ok", 10*time.Millisecond)
	m.ObservePersist("personal", "ok", 5*time.Millisecond)
	m.ObservePersist("academic", "error", time.Millisecond)
	m.RecordUploadFallback("classXMarksheet")
	m.SetActiveSessions(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.persistTotal.WithLabelValues("personal", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.persistTotal.WithLabelValues("academic", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploadFallback.WithLabelValues("classXMarksheet")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sessionsActive))
}

func TestMetricsServiceCacheHitRatio(t *testing.T) {
	m := NewMetricsService()
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)

	assert.Equal(t, 0.75, testutil.ToFloat64(m.cacheHitRatio))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheMisses))
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.ObservePersist("draft", "ok", time.Millisecond)
		m.ObserveHTTPRequest("GET", "/application", 200, time.Millisecond)
		m.RecordUploadFallback("classXMarksheet")
		m.SetActiveSessions(1)
		m.RecordCacheOperation(true, time.Millisecond)
	})
	assert.Nil(t, m.Registry())
}
