// Package diagnostics defines the observer the matrix engine reports to.
//
// Observers are injected per estimator; the default discards everything.
package diagnostics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer receives one notification per computed matrix and per failed pair.
// Implementations must be safe for concurrent use.
type Observer interface {
	// MatrixComputed is called after a matrix or diagonal was filled.
	MatrixComputed(kernel, operation string, rows, cols, pairs int, elapsed time.Duration)

	// PairFailed is called when a pair evaluation aborted a computation.
	PairFailed(kernel string, row, col int, err error)
}

type nopObserver struct{}

func (nopObserver) MatrixComputed(string, string, int, int, int, time.Duration) {}
func (nopObserver) PairFailed(string, int, int, error)                          {}

// Nop returns an Observer that ignores every event.
func Nop() Observer { return nopObserver{} }

// PrometheusObserver exports engine activity as Prometheus metrics.
type PrometheusObserver struct {
	pairs    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

// NewPrometheusObserver creates the collectors and registers them with reg.
func NewPrometheusObserver(reg prometheus.Registerer) (*PrometheusObserver, error) {
	o := &PrometheusObserver{
		pairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grakel_pair_evaluations_total",
			Help: "Total pair similarity evaluations by kernel and operation",
		}, []string{"kernel", "operation"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grakel_matrix_duration_seconds",
			Help:    "Wall time spent filling a similarity matrix",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10, 60},
		}, []string{"kernel", "operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grakel_pair_failures_total",
			Help: "Pair evaluations that aborted a matrix computation",
		}, []string{"kernel"}),
	}
	for _, c := range []prometheus.Collector{o.pairs, o.duration, o.failures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// MatrixComputed implements Observer.
func (o *PrometheusObserver) MatrixComputed(kernel, operation string, _, _, pairs int, elapsed time.Duration) {
	o.pairs.WithLabelValues(kernel, operation).Add(float64(pairs))
	o.duration.WithLabelValues(kernel, operation).Observe(elapsed.Seconds())
}

// PairFailed implements Observer.
func (o *PrometheusObserver) PairFailed(kernel string, _, _ int, _ error) {
	o.failures.WithLabelValues(kernel).Inc()
}
