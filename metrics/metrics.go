// Package metrics provides Prometheus collectors for the pipeline engine.
//
// The Collector implements the engine's Recorder interface; attach it with
// actionpipe.WithRecorder:
//
//	col := metrics.NewCollector(prometheus.DefaultRegisterer)
//	eng := actionpipe.New(actionpipe.WithRecorder(col))
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector records engine activity into Prometheus metrics.
type Collector struct {
	dispatches    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	handlerErrors *prometheus.CounterVec
	handlerPanics *prometheus.CounterVec
}

// NewCollector creates a collector registered with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "actionpipe",
			Name:      "dispatches_total",
			Help:      "Completed dispatches by action, execution mode, and terminal status.",
		}, []string{"action", "mode", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "actionpipe",
			Name:      "dispatch_duration_seconds",
			Help:      "End-to-end dispatch duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action", "mode"}),
		handlerErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "actionpipe",
			Name:      "handler_errors_total",
			Help:      "Handler errors recorded during dispatches.",
		}, []string{"action"}),
		handlerPanics: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "actionpipe",
			Name:      "handler_panics_total",
			Help:      "Handler panics recovered during dispatches.",
		}, []string{"action"}),
	}
}

// RecordDispatch implements actionpipe.Recorder.
func (c *Collector) RecordDispatch(action, mode, status string, d time.Duration) {
	c.dispatches.WithLabelValues(action, mode, status).Inc()
	c.duration.WithLabelValues(action, mode).Observe(d.Seconds())
}

// RecordHandlerError implements actionpipe.Recorder.
func (c *Collector) RecordHandlerError(action string) {
	c.handlerErrors.WithLabelValues(action).Inc()
}

// RecordHandlerPanic implements actionpipe.Recorder.
func (c *Collector) RecordHandlerPanic(action string) {
	c.handlerPanics.WithLabelValues(action).Inc()
}
