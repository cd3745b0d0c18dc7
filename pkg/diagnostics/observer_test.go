package diagnostics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := NewPrometheusObserver(reg)
	require.NoError(t, err)

	obs.MatrixComputed("VertexHistogram", "fit_transform", 4, 4, 10, 2*time.Millisecond)
	obs.MatrixComputed("VertexHistogram", "fit_transform", 3, 3, 6, time.Millisecond)
	obs.MatrixComputed("VertexHistogram", "transform", 2, 4, 8, time.Millisecond)
	obs.PairFailed("RandomWalk", 1, 2, errors.New("singular"))

	assert.Equal(t, 16.0, testutil.ToFloat64(obs.pairs.WithLabelValues("VertexHistogram", "fit_transform")))
	assert.Equal(t, 8.0, testutil.ToFloat64(obs.pairs.WithLabelValues("VertexHistogram", "transform")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.failures.WithLabelValues("RandomWalk")))
	assert.Equal(t, 2, testutil.CollectAndCount(obs.duration))
}

func TestPrometheusObserverDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusObserver(reg)
	require.NoError(t, err)

	_, err = NewPrometheusObserver(reg)
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	obs := Nop()
	obs.MatrixComputed("k", "fit", 1, 1, 1, time.Second)
	obs.PairFailed("k", 0, 0, nil)
}
