package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveBackendCall("openai", "ok", time.Second)
	m.IncrementAttempt("1", "ok")
	m.IncrementClamp("1")
	m.ObserveRun("reported", time.Second)
	m.IncrementCacheLookup("hit")
}

func TestMetricsRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementAttempt("3", "parse_error")
	m.IncrementAttempt("3", "parse_error")
	m.IncrementClamp("2")
	m.ObserveRun("scoring", 2*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EvaluationAttempts.WithLabelValues("3", "parse_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClampCorrections.WithLabelValues("2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunOutcome.WithLabelValues("scoring")))
}
