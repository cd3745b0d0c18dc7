package kernels

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tsdalton/GraKeL/core/graph"
	"github.com/tsdalton/GraKeL/core/model"
	"github.com/tsdalton/GraKeL/metrics"
	"gonum.org/v1/gonum/mat"
)

// randomGraphs builds n undirected graphs with vertex and edge labels drawn
// from nLabels symbols and unit-dimensional vertex attributes.
func randomGraphs(seed int64, n, minV, maxV, nLabels int, p float64) []graph.Source {
	rng := rand.New(rand.NewSource(seed))
	out := make([]graph.Source, n)
	for i := range out {
		nv := minV + rng.Intn(maxV-minV+1)
		in := graph.Input{
			VertexLabels:     make(map[int]string, nv),
			VertexAttributes: make(map[int][]float64, nv),
			EdgeLabels:       make(map[graph.Edge]string),
		}
		for v := 0; v < nv; v++ {
			in.Vertices = append(in.Vertices, v)
			in.VertexLabels[v] = strconv.Itoa(rng.Intn(nLabels))
			in.VertexAttributes[v] = []float64{rng.Float64()}
			for u := 0; u < v; u++ {
				if rng.Float64() < p {
					e := graph.Edge{From: u, To: v}
					in.Edges = append(in.Edges, e)
					in.EdgeLabels[e] = strconv.Itoa(rng.Intn(nLabels))
				}
			}
		}
		out[i] = in
	}
	return out
}

// labeledPath returns the path 0-1-...-(len(labels)-1) with the given vertex
// labels.
func labeledPath(labels ...string) graph.Input {
	in := graph.Input{VertexLabels: make(map[int]string, len(labels))}
	for v, l := range labels {
		in.Vertices = append(in.Vertices, v)
		in.VertexLabels[v] = l
		if v > 0 {
			in.Edges = append(in.Edges, graph.Edge{From: v - 1, To: v})
		}
	}
	return in
}

// labeledTriangle returns the 3-cycle with every vertex labeled l.
func labeledTriangle(l string) graph.Input {
	return graph.Input{
		Edges:        []graph.Edge{{From: 0, To: 1}, {From: 1, To: 2}, {From: 2, To: 0}},
		VertexLabels: map[int]string{0: l, 1: l, 2: l},
	}
}

// requireGram checks symmetry and positive semi-definiteness.
func requireGram(t *testing.T, k mat.Matrix) {
	t.Helper()
	sym, err := metrics.SymmetryError(k)
	require.NoError(t, err)
	require.LessOrEqual(t, sym, 1e-7, "matrix is not symmetric")

	lowest, err := metrics.MinEigenvalue(k)
	require.NoError(t, err)
	require.GreaterOrEqual(t, lowest, -metrics.DefaultEigenTolerance, "matrix is not PSD")
}

// requireKernelContract runs the lifecycle properties shared by every kernel.
func requireKernelContract(t *testing.T, newKernel func() model.Kernel, train, test []graph.Source) {
	t.Helper()

	ft, err := newKernel().FitTransform(train)
	require.NoError(t, err)
	requireGram(t, ft)

	k := newKernel()
	require.NoError(t, k.Fit(train))
	tr, err := k.Transform(train)
	require.NoError(t, err)
	require.True(t, mat.EqualApprox(ft, tr, 1e-9), "FitTransform differs from Fit then Transform")

	first, err := k.Transform(test)
	require.NoError(t, err)
	second, err := k.Transform(test)
	require.NoError(t, err)
	require.True(t, mat.Equal(first, second), "Transform is not idempotent")

	r, c := first.Dims()
	require.Equal(t, len(test), r)
	require.Equal(t, len(train), c)

	d, err := k.Diagonal()
	require.NoError(t, err)
	require.Len(t, d, len(train))
}

// requireAllEqual checks that every entry of k equals k[0,0].
func requireAllEqual(t *testing.T, k mat.Matrix) {
	t.Helper()
	r, c := k.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			require.InDelta(t, k.At(0, 0), k.At(i, j), 1e-9)
		}
	}
}
