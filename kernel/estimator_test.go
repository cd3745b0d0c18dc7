package kernel

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsdalton/GraKeL/core/graph"
	"github.com/tsdalton/GraKeL/core/model"
	"github.com/tsdalton/GraKeL/pkg/errors"
	"github.com/tsdalton/GraKeL/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// sizeKernel compares graphs by vertex and edge counts; it is a sum of two
// rank-one kernels and therefore positive semi-definite.
func sizeKernel(a, b *graph.Graph) (float64, error) {
	return float64(a.NumVertices()*b.NumVertices() + a.NumEdges()*b.NumEdges()), nil
}

func newSizeKernel(opts ...Option) *Estimator[*graph.Graph] {
	return NewEstimator[*graph.Graph]("Size", GraphFeatures{}, sizeKernel, opts...)
}

func path(n int) graph.Input {
	in := graph.Input{Vertices: []int{0}}
	for i := 1; i < n; i++ {
		in.Edges = append(in.Edges, graph.Edge{From: i - 1, To: i})
	}
	return in
}

func batch() []graph.Source {
	return []graph.Source{path(2), path(3), path(5), path(4)}
}

func TestEstimatorNotFitted(t *testing.T) {
	k := newSizeKernel()
	assert.Equal(t, model.Unfitted, k.State())

	_, err := k.Transform(batch())
	var nf *errors.NotFittedError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "Size", nf.KernelName)
	assert.Equal(t, "Transform", nf.Method)

	_, err = k.Diagonal()
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "Diagonal", nf.Method)

	_, _, err = k.TransformRaw(batch())
	assert.True(t, errors.As(err, &nf))
}

func TestEstimatorFitTransformMatchesFitThenTransform(t *testing.T) {
	for _, normalize := range []bool{false, true} {
		a := newSizeKernel(WithNormalize(normalize))
		ft, err := a.FitTransform(batch())
		require.NoError(t, err)

		b := newSizeKernel(WithNormalize(normalize), WithNJobs(3))
		require.NoError(t, b.Fit(batch()))
		tr, err := b.Transform(batch())
		require.NoError(t, err)

		assert.True(t, mat.EqualApprox(ft, tr, 1e-9), "normalize=%v", normalize)
		assert.True(t, mat.Equal(ft, ft.T()))
	}
}

func TestEstimatorTransformIsIdempotent(t *testing.T) {
	k := newSizeKernel(WithNormalize(true))
	require.NoError(t, k.Fit(batch()))

	query := []graph.Source{path(6), path(1)}
	first, err := k.Transform(query)
	require.NoError(t, err)
	second, err := k.Transform(query)
	require.NoError(t, err)

	assert.True(t, mat.Equal(first, second))
	r, c := first.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 4, c)
}

func TestEstimatorNormalizedDiagonalAndEmptyGraph(t *testing.T) {
	k := newSizeKernel(WithNormalize(true))
	sources := append(batch(), graph.Input{})

	out, err := k.FitTransform(sources)
	require.NoError(t, err)

	n, _ := out.Dims()
	for i := 0; i < n-1; i++ {
		assert.InDelta(t, 1.0, out.At(i, i), 1e-9)
	}
	for j := 0; j < n; j++ {
		assert.Equal(t, 0.0, out.At(n-1, j))
		assert.Equal(t, 0.0, out.At(j, n-1))
	}
}

func TestEstimatorDiagonal(t *testing.T) {
	k := newSizeKernel(WithNormalize(true))
	require.NoError(t, k.Fit(batch()))

	d, err := k.Diagonal()
	require.NoError(t, err)
	// path(n) has n vertices and n-1 edges.
	assert.Equal(t, []float64{2*2 + 1, 3*3 + 2*2, 5*5 + 4*4, 4*4 + 3*3}, d)

	d[0] = -1
	again, err := k.Diagonal()
	require.NoError(t, err)
	assert.Equal(t, 5.0, again[0])
}

func TestEstimatorRefitReplacesState(t *testing.T) {
	k := newSizeKernel()
	require.NoError(t, k.Fit(batch()))
	require.NoError(t, k.Fit([]graph.Source{path(2)}))

	d, err := k.Diagonal()
	require.NoError(t, err)
	assert.Len(t, d, 1)

	out, err := k.Transform(batch())
	require.NoError(t, err)
	_, c := out.Dims()
	assert.Equal(t, 1, c)
}

func TestEstimatorFailedFitKeepsPreviousState(t *testing.T) {
	k := newSizeKernel()
	require.NoError(t, k.Fit(batch()))

	err := k.Fit(nil)
	var inputErr *errors.InvalidInputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, "Size.Fit", inputErr.Op)

	d, err := k.Diagonal()
	require.NoError(t, err)
	assert.Len(t, d, 4)
}

func TestEstimatorRawMatchesUnnormalized(t *testing.T) {
	k := newSizeKernel(WithNormalize(true))
	raw, err := k.FitTransformRaw(batch())
	require.NoError(t, err)
	assert.Equal(t, 5.0, raw.At(0, 0))

	q, qdiag, err := k.TransformRaw([]graph.Source{path(3)})
	require.NoError(t, err)
	assert.Equal(t, []float64{13}, qdiag)
	assert.Equal(t, float64(3*2+2*1), q.At(0, 0))
}

func TestEstimatorConcurrentTransform(t *testing.T) {
	k := newSizeKernel(WithNormalize(true), WithNJobs(2))
	require.NoError(t, k.Fit(batch()))
	want, err := k.Transform(batch())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := k.Transform(batch())
			if err != nil {
				t.Error(err)
				return
			}
			if !mat.Equal(want, got) {
				t.Error("concurrent transform returned a different matrix")
			}
		}()
	}
	wg.Wait()
}

func TestEstimatorLogs(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	k := newSizeKernel(WithLogger(logger))

	_, err := k.FitTransform(batch())
	require.NoError(t, err)

	assert.True(t, logger.ContainsMessage("Kernel fitted"))
	assert.True(t, logger.ContainsField(log.KernelNameKey, "Size"))
	assert.True(t, logger.ContainsField(log.OperationKey, log.OperationFitTransform))
	assert.True(t, logger.ContainsField(log.EstimatorIDKey, k.ID().String()))
}
