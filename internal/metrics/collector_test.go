package metrics

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewCollector(reg, zaptest.NewLogger(t)), reg
}

func TestCollector_RecordDecision(t *testing.T) {
	c, _ := newTestCollector(t)

	c.RecordDecision(true, "", "")
	c.RecordDecision(false, "policy", "action")
	c.RecordDecision(false, "policy", "action")
	c.RecordDecision(false, "identity", "")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.decisionsTotal.WithLabelValues("allowed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.decisionsTotal.WithLabelValues("denied")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.denialsTotal.WithLabelValues("policy", "action")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.denialsTotal))
}

func TestCollector_Histogram(t *testing.T) {
	c, reg := newTestCollector(t)

	c.ObserveInjectionScore(0)
	c.ObserveInjectionScore(0.7)

	expected := `
# HELP talentguard_injection_score Prompt-injection score of evaluated requests
# TYPE talentguard_injection_score histogram
talentguard_injection_score_bucket{le="0"} 1
talentguard_injection_score_bucket{le="0.1"} 1
talentguard_injection_score_bucket{le="0.2"} 1
talentguard_injection_score_bucket{le="0.3"} 1
talentguard_injection_score_bucket{le="0.4"} 1
talentguard_injection_score_bucket{le="0.5"} 1
talentguard_injection_score_bucket{le="0.7"} 2
talentguard_injection_score_bucket{le="1"} 2
talentguard_injection_score_bucket{le="+Inf"} 2
talentguard_injection_score_sum 0.7
talentguard_injection_score_count 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "talentguard_injection_score"))
}

func TestCollector_AuditAndSanitize(t *testing.T) {
	c, _ := newTestCollector(t)

	c.RecordAuditDrop("fail_closed")
	c.RecordAuditDrop("fail_closed")
	c.RecordSanitize(4, 15)
	c.RecordClarification()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.auditDroppedTotal.WithLabelValues("fail_closed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.redactedFields))
	assert.Equal(t, 15.0, testutil.ToFloat64(c.trimmedRecords))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.clarificationTotal))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordDecision(false, "threat", "")
		c.ObserveInjectionScore(1)
		c.RecordAuditDrop("x")
		c.RecordSanitize(1, 1)
		c.RecordClarification()
	})
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	c, _ := newTestCollector(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordDecision(true, "", "")
			c.ObserveInjectionScore(0.3)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50.0, testutil.ToFloat64(c.decisionsTotal.WithLabelValues("allowed")))
}
