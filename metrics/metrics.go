// Package metrics provides Prometheus instrumentation for secure aggregation
// sessions. Collectors are registered on a caller-supplied registerer; the
// package never touches the default registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// Namespace is the Prometheus namespace for all secagg metrics
	Namespace = "secagg"

	// Label names
	LabelOperation = "operation"
	LabelStatus    = "status"
	LabelReason    = "reason"
	LabelFrom      = "from"
	LabelTo        = "to"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Operation names
	OpBegin          = "begin"
	OpShareKeys      = "share_keys"
	OpMask           = "mask"
	OpAcceptShares   = "accept_shares"
	OpUnmask         = "unmask"
	OpReset          = "reset"
	OpRecoverSeed    = "recover_seed"
	OpAggregateInput = "aggregate_input"
)

// Collector groups the session metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	operations  *prometheus.CounterVec
	failures    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	payload     *prometheus.HistogramVec
}

// New creates a Collector and registers it on reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "operations_total",
				Help:      "Total number of session operations by type and status",
			},
			[]string{LabelOperation, LabelStatus},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "failures_total",
				Help:      "Total number of failed session operations by type and reason",
			},
			[]string{LabelOperation, LabelReason},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "phase_transitions_total",
				Help:      "Total number of session phase transitions",
			},
			[]string{LabelFrom, LabelTo},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of session operations in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{LabelOperation},
		),
		payload: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "payload_bytes",
				Help:      "Size of payloads produced by session operations",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
			},
			[]string{LabelOperation},
		),
	}

	for _, col := range []prometheus.Collector{c.operations, c.failures, c.transitions, c.duration, c.payload} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RecordOperation records the outcome and latency of an operation.
func (c *Collector) RecordOperation(op string, start time.Time, err error, reason string) {
	if c == nil {
		return
	}
	c.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		c.operations.WithLabelValues(op, StatusError).Inc()
		c.failures.WithLabelValues(op, reason).Inc()
		return
	}
	c.operations.WithLabelValues(op, StatusSuccess).Inc()
}

// RecordTransition records a phase change.
func (c *Collector) RecordTransition(from, to string) {
	if c == nil {
		return
	}
	c.transitions.WithLabelValues(from, to).Inc()
}

// RecordPayload records the size of a produced payload.
func (c *Collector) RecordPayload(op string, size int) {
	if c == nil {
		return
	}
	c.payload.WithLabelValues(op).Observe(float64(size))
}
