package kernels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsdalton/GraKeL/core/graph"
	"github.com/tsdalton/GraKeL/core/model"
	"github.com/tsdalton/GraKeL/kernel"
	"github.com/tsdalton/GraKeL/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func TestNHCodesRotate(t *testing.T) {
	c := &nhCodes{bits: 4}
	assert.Equal(t, uint64(0b0011), c.rotate(0b1001))
	assert.Equal(t, uint64(0b0001), c.rotate(0b1000))
	assert.Equal(t, uint64(0b1110), c.rotate(0b0111))
}

func TestNHCodesProbe(t *testing.T) {
	c := &nhCodes{bits: 2, seed: 9}

	code, ok := c.probe("a", func(uint64) bool { return false })
	require.True(t, ok)
	assert.Equal(t, c.hash("a"), code)
	assert.LessOrEqual(t, code, uint64(3))

	free := (c.hash("a") + 2) & 3
	code, ok = c.probe("a", func(x uint64) bool { return x != free })
	require.True(t, ok)
	assert.Equal(t, free, code)

	_, ok = c.probe("a", func(uint64) bool { return true })
	assert.False(t, ok)
}

func singleVertices(labels ...string) []graph.Source {
	out := make([]graph.Source, len(labels))
	for i, l := range labels {
		out[i] = labeledPath(l)
	}
	return out
}

func TestNeighborhoodHashStageUnseenLabels(t *testing.T) {
	stage, err := NewNeighborhoodHashStage(1, 2, 3, nil)
	require.NoError(t, err)

	views, err := stage.FitTransform(singleVertices("a", "b"))
	require.NoError(t, err)
	require.Len(t, views, 1)
	la, _ := views[0][0].VertexLabel(0)
	lb, _ := views[0][1].VertexLabel(0)
	assert.NotEqual(t, la, lb)

	queries, err := stage.Transform(singleVertices("c", "d", "c"))
	require.NoError(t, err)
	lc, _ := queries[0][0].VertexLabel(0)
	ld, _ := queries[0][1].VertexLabel(0)
	lc2, _ := queries[0][2].VertexLabel(0)
	assert.NotContains(t, []string{la, lb}, lc)
	assert.NotContains(t, []string{la, lb, lc}, ld)
	assert.Equal(t, lc, lc2)

	// All four 2-bit codes are now needed by a single query batch.
	_, err = stage.Transform(singleVertices("c", "d", "e"))
	var inputErr *errors.InvalidInputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, 2, inputErr.GraphIndex)
}

func TestNeighborhoodHashStageUnseenOrderIndependent(t *testing.T) {
	stage, err := NewNeighborhoodHashStage(2, 3, 11, nil)
	require.NoError(t, err)
	_, err = stage.FitTransform(singleVertices("a", "b", "c"))
	require.NoError(t, err)

	forward, err := stage.Transform(singleVertices("x", "y", "z"))
	require.NoError(t, err)
	backward, err := stage.Transform(singleVertices("z", "y", "x"))
	require.NoError(t, err)

	for r := range forward {
		for i := 0; i < 3; i++ {
			want, _ := forward[r][i].VertexLabel(0)
			got, _ := backward[r][2-i].VertexLabel(0)
			assert.Equal(t, want, got, "view %d graph %d", r, i)
		}
	}
}

func TestNeighborhoodHashStageTooManyLabels(t *testing.T) {
	stage, err := NewNeighborhoodHashStage(2, 1, 0, nil)
	require.NoError(t, err)

	_, err = stage.FitTransform(singleVertices("a", "b", "c"))
	var inputErr *errors.InvalidInputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, -1, inputErr.GraphIndex)

	_, err = stage.Transform(singleVertices("a"))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}

func TestNeighborhoodHashStageConfig(t *testing.T) {
	for _, tc := range []struct {
		name  string
		nIter int
		bits  int
		param string
	}{
		{"zero iterations", 0, 8, OptNIter},
		{"zero bits", 2, 0, OptBits},
		{"too many bits", 2, 64, OptBits},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewNeighborhoodHashStage(tc.nIter, tc.bits, 0, nil)
			var cfgErr *errors.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tc.param, cfgErr.Param)
		})
	}
}

func TestNeighborhoodHashDeterministic(t *testing.T) {
	train := randomGraphs(31, 10, 3, 8, 4, 0.5)

	run := func() *mat.Dense {
		nh, err := NewNeighborhoodHash(WithNIter(3), WithBits(16), WithSeed(7))
		require.NoError(t, err)
		k, err := nh.FitTransform(train)
		require.NoError(t, err)
		return k
	}
	assert.True(t, mat.Equal(run(), run()))
}

func TestNeighborhoodHashIdenticalGraphs(t *testing.T) {
	nh, err := NewNeighborhoodHash(WithKernelOptions(kernel.WithNormalize(true)))
	require.NoError(t, err)

	g := labeledPath("a", "b", "c", "a")
	k, err := nh.FitTransform([]graph.Source{g, g, g})
	require.NoError(t, err)
	requireAllEqual(t, k)
	assert.InDelta(t, 1.0, k.At(2, 2), 1e-12)
}

func TestNeighborhoodHashContract(t *testing.T) {
	train := randomGraphs(41, 14, 3, 9, 4, 0.4)
	test := randomGraphs(42, 5, 3, 9, 6, 0.4)
	requireKernelContract(t, func() model.Kernel {
		nh, err := NewNeighborhoodHash(WithNIter(3), WithBits(12), WithKernelOptions(kernel.WithNormalize(true), kernel.WithNJobs(2)))
		require.NoError(t, err)
		return nh
	}, train, test)
}

func TestNeighborhoodHashOptions(t *testing.T) {
	_, err := NewNeighborhoodHash(WithBits(0))
	var cfgErr *errors.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, OptBits, cfgErr.Param)

	_, err = NewNeighborhoodHash(WithLabels(true))
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, OptWithLabels, cfgErr.Param)

	nh, err := NewNeighborhoodHash()
	require.NoError(t, err)
	_, err = nh.Transform(singleVertices("a"))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}
