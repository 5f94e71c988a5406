// Package metrics exposes Prometheus counters for guardrail decisions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const namespace = "talentguard"

// Collector records decision, denial, injection and audit metrics. All
// methods are safe for concurrent use and a nil *Collector is a no-op.
type Collector struct {
	decisionsTotal     *prometheus.CounterVec
	denialsTotal       *prometheus.CounterVec
	injectionScore     prometheus.Histogram
	clarificationTotal prometheus.Counter
	auditDroppedTotal  *prometheus.CounterVec
	redactedFields     prometheus.Counter
	trimmedRecords     prometheus.Counter

	logger *zap.Logger
}

// NewCollector registers the guardrail metrics on reg. Registering twice on
// the same registry panics, as with any promauto metric.
func NewCollector(reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)
	c := &Collector{logger: logger.With(zap.String("component", "metrics"))}

	c.decisionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Total number of guardrail decisions",
		},
		[]string{"outcome"}, // outcome: allowed, denied
	)

	c.denialsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "denials_total",
			Help:      "Total number of denials by kind and failing gate",
		},
		[]string{"kind", "gate"},
	)

	c.injectionScore = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "injection_score",
			Help:      "Prompt-injection score of evaluated requests",
			Buckets:   []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.7, 1},
		},
	)

	c.clarificationTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clarifications_total",
			Help:      "Total number of clarification questions asked",
		},
	)

	c.auditDroppedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_dropped_total",
			Help:      "Audit events dropped because the queue was full or closed",
		},
		[]string{"event_type"},
	)

	c.redactedFields = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redacted_fields_total",
			Help:      "Sensitive fields removed from outbound data",
		},
	)

	c.trimmedRecords = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trimmed_records_total",
			Help:      "Records cut from outbound lists by the cardinality cap",
		},
	)

	c.logger.Debug("metrics collector registered")
	return c
}

// RecordDecision counts an allowed request or a denial of the given kind
// ("identity", "validation", "threat", "scope", "policy") and gate.
func (c *Collector) RecordDecision(allowed bool, kind, gate string) {
	if c == nil {
		return
	}
	if allowed {
		c.decisionsTotal.WithLabelValues("allowed").Inc()
		return
	}
	c.decisionsTotal.WithLabelValues("denied").Inc()
	c.denialsTotal.WithLabelValues(kind, gate).Inc()
}

// ObserveInjectionScore records a detector score.
func (c *Collector) ObserveInjectionScore(score float64) {
	if c == nil {
		return
	}
	c.injectionScore.Observe(score)
}

// RecordClarification counts a clarification question.
func (c *Collector) RecordClarification() {
	if c == nil {
		return
	}
	c.clarificationTotal.Inc()
}

// RecordAuditDrop counts a dropped audit event. It matches the signature of
// logger.WithDropHook.
func (c *Collector) RecordAuditDrop(eventType string) {
	if c == nil {
		return
	}
	c.auditDroppedTotal.WithLabelValues(eventType).Inc()
	c.logger.Warn("audit event dropped", zap.String("event_type", eventType))
}

// RecordSanitize counts fields and records removed by the output sanitizer.
func (c *Collector) RecordSanitize(fieldsDropped, recordsTrimmed int) {
	if c == nil {
		return
	}
	c.redactedFields.Add(float64(fieldsDropped))
	c.trimmedRecords.Add(float64(recordsTrimmed))
}
