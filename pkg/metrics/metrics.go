// Package metrics exposes Prometheus collectors for payload generation,
// payload validation, and callback server polling.
//
// A nil *Collector is valid and records nothing, so components can take
// one unconditionally.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oobkit/oobkit/pkg/defaults"
)

// Poll outcomes used as the "outcome" label.
const (
	OutcomeConfirmed = "confirmed" // server reported a DNS or HTTP interaction
	OutcomePending   = "pending"   // server answered, no interaction yet
	OutcomeFailed    = "failed"    // transport error, non-2xx, or bad body
)

// Collector owns a private registry so embedding applications keep
// control of the default one.
type Collector struct {
	registry *prometheus.Registry

	generatedTotal         *prometheus.CounterVec
	selectionFailuresTotal *prometheus.CounterVec
	validationsTotal       *prometheus.CounterVec
	pollsTotal             *prometheus.CounterVec
	pollDurationSeconds    prometheus.Histogram
}

// New creates a Collector with all metrics registered.
func New() (*Collector, error) {
	c := &Collector{registry: prometheus.NewRegistry()}
	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	return c, nil
}

func (c *Collector) initMetrics() error {
	ns := defaults.ToolName

	c.generatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "payloads_generated_total",
			Help:      "Total number of payloads generated",
		},
		[]string{"vulnerability_type", "callback"},
	)

	c.selectionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "payload_selection_failures_total",
			Help:      "Total number of requests no catalog entry could satisfy",
		},
		[]string{"vulnerability_type"},
	)

	c.validationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "payload_validations_total",
			Help:      "Total number of execution checks by validator and result",
		},
		[]string{"validator", "result"},
	)

	c.pollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "callback_polls_total",
			Help:      "Total number of callback server polls by outcome",
		},
		[]string{"outcome"},
	)

	c.pollDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "callback_poll_duration_seconds",
			Help:      "Callback server poll round trip time in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
	)

	collectors := []prometheus.Collector{
		c.generatedTotal,
		c.selectionFailuresTotal,
		c.validationsTotal,
		c.pollsTotal,
		c.pollDurationSeconds,
	}
	for _, col := range collectors {
		if err := c.registry.Register(col); err != nil {
			return err
		}
	}
	return nil
}

// RecordGenerated counts one generated payload.
func (c *Collector) RecordGenerated(vulnerabilityType string, callback bool) {
	if c == nil {
		return
	}
	c.generatedTotal.WithLabelValues(vulnerabilityType, strconv.FormatBool(callback)).Inc()
}

// RecordSelectionFailure counts one request without a matching definition.
func (c *Collector) RecordSelectionFailure(vulnerabilityType string) {
	if c == nil {
		return
	}
	c.selectionFailuresTotal.WithLabelValues(vulnerabilityType).Inc()
}

// RecordValidation counts one execution check. result is "executed",
// "not_executed" or "error".
func (c *Collector) RecordValidation(validator string, executed bool, err error) {
	if c == nil {
		return
	}
	result := "not_executed"
	switch {
	case err != nil:
		result = "error"
	case executed:
		result = "executed"
	}
	c.validationsTotal.WithLabelValues(validator, result).Inc()
}

// RecordPoll counts one poll and observes its latency.
func (c *Collector) RecordPoll(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.pollsTotal.WithLabelValues(outcome).Inc()
	c.pollDurationSeconds.Observe(elapsed.Seconds())
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
