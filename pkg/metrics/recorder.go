// Package metrics exports registry operation counts and latencies to
// Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	kbopts "github.com/goliatone/go-kbopts"
)

// Recorder implements kbopts.Logger by feeding every operation event into
// a counter labelled by operation and status and a latency histogram
// labelled by operation.
type Recorder struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	applied    prometheus.Counter
}

// NewRegistry returns a fresh registry for callers that do not want to use
// the global default.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// NewRecorder creates the collectors and registers them on reg. A nil reg
// registers on prometheus.DefaultRegisterer.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "kbopts_operations_total", Help: "Total number of registry operations by final status."},
			[]string{"op", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "kbopts_operation_duration_seconds", Help: "Duration of registry operations in seconds.", Buckets: prometheus.DefBuckets},
			[]string{"op"},
		),
		applied: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "kbopts_update_items_applied_total", Help: "Total number of batch entries written by update."},
		),
	}

	for _, c := range []prometheus.Collector{r.operations, r.duration, r.applied} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// LogOperation implements kbopts.Logger.
func (r *Recorder) LogOperation(event kbopts.OperationEvent) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(event.Op, event.Status.String()).Inc()
	r.duration.WithLabelValues(event.Op).Observe(event.Duration.Seconds())
	if event.Op == kbopts.OpUpdate && event.Applied > 0 {
		r.applied.Add(float64(event.Applied))
	}
}

var _ kbopts.Logger = (*Recorder)(nil)
