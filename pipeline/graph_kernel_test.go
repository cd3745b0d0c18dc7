package pipeline

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsdalton/GraKeL/core/graph"
	"github.com/tsdalton/GraKeL/core/model"
	"github.com/tsdalton/GraKeL/kernel"
	"github.com/tsdalton/GraKeL/kernels"
	"github.com/tsdalton/GraKeL/metrics"
	"github.com/tsdalton/GraKeL/pkg/diagnostics"
	"github.com/tsdalton/GraKeL/pkg/errors"
	"github.com/tsdalton/GraKeL/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// molecules returns n small random labeled graphs with unit attributes.
func molecules(seed int64, n int) []graph.Source {
	rng := rand.New(rand.NewSource(seed))
	atoms := []string{"C", "N", "O", "S"}
	out := make([]graph.Source, n)
	for i := range out {
		nv := 3 + rng.Intn(6)
		in := graph.Input{
			VertexLabels:     make(map[int]string, nv),
			VertexAttributes: make(map[int][]float64, nv),
		}
		for v := 0; v < nv; v++ {
			in.Vertices = append(in.Vertices, v)
			in.VertexLabels[v] = atoms[rng.Intn(len(atoms))]
			in.VertexAttributes[v] = []float64{rng.Float64(), rng.Float64()}
			if v > 0 {
				in.Edges = append(in.Edges, graph.Edge{From: rng.Intn(v), To: v})
			}
		}
		out[i] = in
	}
	return out
}

func ring(n int, label string) graph.Input {
	in := graph.Input{VertexLabels: make(map[int]string, n)}
	for v := 0; v < n; v++ {
		in.Edges = append(in.Edges, graph.Edge{From: v, To: (v + 1) % n})
		in.VertexLabels[v] = label
	}
	return in
}

func requireValidGram(t *testing.T, k mat.Matrix) {
	t.Helper()
	ok, err := metrics.IsSymmetric(k, 1e-9)
	require.NoError(t, err)
	require.True(t, ok, "matrix is not symmetric")
	psd, err := metrics.IsPSD(k, metrics.DefaultEigenTolerance)
	require.NoError(t, err)
	require.True(t, psd, "matrix is not PSD")
}

func TestGraphKernelMatchesManualChain(t *testing.T) {
	train := molecules(1, 12)
	test := molecules(2, 4)

	gk, err := NewGraphKernel(Spec{
		Normalize: true,
		Kernels:   []StageSpec{{Name: "weisfeiler_lehman", NIter: Ptr(3)}, {Name: "vertex_histogram"}},
	})
	require.NoError(t, err)
	got, err := gk.FitTransform(train)
	require.NoError(t, err)
	gotT, err := gk.Transform(test)
	require.NoError(t, err)

	// Stage 1 fit_transform feeds stage 2 fit_transform view by view.
	stage, err := kernels.NewWeisfeilerLehmanStage(3, nil)
	require.NoError(t, err)
	views, err := stage.FitTransform(train)
	require.NoError(t, err)
	queries, err := stage.Transform(test)
	require.NoError(t, err)

	sum := mat.NewDense(len(train), len(train), nil)
	sumT := mat.NewDense(len(test), len(train), nil)
	fdiag := make([]float64, len(train))
	qdiag := make([]float64, len(test))
	for v := range views {
		vh, err := kernels.NewVertexHistogram()
		require.NoError(t, err)
		k, err := vh.FitTransformRaw(graph.Sources(views[v]))
		require.NoError(t, err)
		sum.Add(sum, k)
		d, err := vh.Diagonal()
		require.NoError(t, err)
		for i := range fdiag {
			fdiag[i] += d[i]
		}
		kt, dq, err := vh.TransformRaw(graph.Sources(queries[v]))
		require.NoError(t, err)
		sumT.Add(sumT, kt)
		for i := range qdiag {
			qdiag[i] += dq[i]
		}
	}
	want, err := kernel.Normalize(sum, fdiag, fdiag)
	require.NoError(t, err)
	wantT, err := kernel.Normalize(sumT, qdiag, fdiag)
	require.NoError(t, err)

	assert.True(t, mat.EqualApprox(want, got, 1e-12))
	assert.True(t, mat.EqualApprox(wantT, gotT, 1e-12))

	// The standalone kernel is the same composition.
	wl, err := kernels.NewWeisfeilerLehman(kernels.WithNIter(3), kernels.WithKernelOptions(kernel.WithNormalize(true)))
	require.NoError(t, err)
	standalone, err := wl.FitTransform(train)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(standalone, got, 1e-12))
}

func TestGraphKernelNestedStages(t *testing.T) {
	train := molecules(3, 14)
	test := molecules(4, 5)

	spec := Spec{
		Normalize: true,
		NJobs:     -1,
		Kernels: []StageSpec{
			{Name: "neighborhood_hash", NIter: Ptr(2), Bits: Ptr(16), Seed: Ptr(uint64(3))},
			{Name: "weisfeiler_lehman", NIter: Ptr(2)},
			{Name: "vertex_histogram"},
		},
	}
	gk, err := NewGraphKernel(spec)
	require.NoError(t, err)
	assert.Equal(t, model.Unfitted, gk.State())

	ft, err := gk.FitTransform(train)
	require.NoError(t, err)
	requireValidGram(t, ft)
	for i := 0; i < len(train); i++ {
		assert.InDelta(t, 1.0, ft.At(i, i), 1e-12)
	}

	tr, err := gk.Transform(train)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(ft, tr, 1e-9))

	first, err := gk.Transform(test)
	require.NoError(t, err)
	second, err := gk.Transform(test)
	require.NoError(t, err)
	assert.True(t, mat.Equal(first, second))

	// Four vertex histograms per graph: two hash iterations, each refined
	// twice. A histogram's self-similarity is at least the vertex count.
	d, err := gk.Diagonal()
	require.NoError(t, err)
	require.Len(t, d, len(train))
	for i, src := range train {
		g, err := src.Graph()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, d[i], float64(4*g.NumVertices()))
	}
}

func TestGraphKernelWorkerCountInvariance(t *testing.T) {
	train := molecules(5, 40)
	run := func(nJobs int) *mat.Dense {
		gk, err := NewGraphKernel(Spec{
			Normalize: true,
			NJobs:     nJobs,
			Kernels:   []StageSpec{{Name: "weisfeiler_lehman"}, {Name: "shortest_path"}},
		})
		require.NoError(t, err)
		k, err := gk.FitTransform(train)
		require.NoError(t, err)
		return k
	}
	sequential := run(1)
	assert.True(t, mat.Equal(sequential, run(4)))
	assert.True(t, mat.Equal(sequential, run(-1)))
}

func TestGraphKernelScenarios(t *testing.T) {
	spec := Spec{
		Normalize: true,
		Kernels:   []StageSpec{{Name: "weisfeiler_lehman", NIter: Ptr(3)}, {Name: "vertex_histogram"}},
	}

	t.Run("identical graphs", func(t *testing.T) {
		gk, err := NewGraphKernel(spec)
		require.NoError(t, err)
		k, err := gk.FitTransform([]graph.Source{ring(5, "C"), ring(5, "C"), ring(5, "C")})
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				assert.InDelta(t, k.At(0, 0), k.At(i, j), 1e-12)
			}
		}
	})

	t.Run("transform before fit", func(t *testing.T) {
		gk, err := NewGraphKernel(spec)
		require.NoError(t, err)
		_, err = gk.Transform([]graph.Source{ring(3, "C")})
		var nf *errors.NotFittedError
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, "GraphKernel", nf.KernelName)
		_, err = gk.Diagonal()
		assert.True(t, errors.As(err, &nf))
	})

	t.Run("empty graph", func(t *testing.T) {
		gk, err := NewGraphKernel(spec)
		require.NoError(t, err)
		k, err := gk.FitTransform([]graph.Source{ring(4, "C"), graph.Input{}, ring(3, "N")})
		require.NoError(t, err)
		for j := 0; j < 3; j++ {
			assert.Equal(t, 0.0, k.At(1, j))
			assert.Equal(t, 0.0, k.At(j, 1))
		}
		assert.InDelta(t, 1.0, k.At(2, 2), 1e-12)
	})

	t.Run("unseen labels at transform", func(t *testing.T) {
		gk, err := NewGraphKernel(Spec{Kernels: spec.Kernels})
		require.NoError(t, err)
		require.NoError(t, gk.Fit([]graph.Source{ring(4, "C"), ring(3, "N")}))
		k, qdiag, err := gk.TransformRaw([]graph.Source{ring(4, "P")})
		require.NoError(t, err)
		assert.Equal(t, 0.0, k.At(0, 0))
		assert.Equal(t, 0.0, k.At(0, 1))
		assert.Equal(t, []float64{3 * 16}, qdiag)
	})

	t.Run("failed fit keeps state", func(t *testing.T) {
		gk, err := NewGraphKernel(spec)
		require.NoError(t, err)
		train := []graph.Source{ring(4, "C"), ring(3, "N")}
		require.NoError(t, gk.Fit(train))
		before, err := gk.Diagonal()
		require.NoError(t, err)

		err = gk.Fit([]graph.Source{ring(3, "C"), graph.Input{Edges: []graph.Edge{{From: 0, To: 1}}}})
		var inputErr *errors.InvalidInputError
		require.True(t, errors.As(err, &inputErr))
		assert.Equal(t, 1, inputErr.GraphIndex)

		after, err := gk.Diagonal()
		require.NoError(t, err)
		assert.Equal(t, before, after)
		_, err = gk.Transform(train)
		assert.NoError(t, err)
	})
}

func TestNewGraphKernelErrors(t *testing.T) {
	tests := []struct {
		name  string
		spec  Spec
		param string
	}{
		{"unknown kernel", Spec{Kernels: []StageSpec{{Name: "graphlet_magic"}}}, "name"},
		{"empty pipeline", Spec{}, "kernels"},
		{"terminal before relabeling", Spec{Kernels: []StageSpec{{Name: "random_walk"}, {Name: "weisfeiler_lehman"}}}, "name"},
		{"option unsupported by terminal", Spec{Kernels: []StageSpec{{Name: "vertex_histogram", Lambda: Ptr(0.1)}}}, kernels.OptLambda},
		{"option unsupported by stage", Spec{Kernels: []StageSpec{{Name: "weisfeiler_lehman", Bits: Ptr(8)}, {Name: "vertex_histogram"}}}, kernels.OptBits},
		{"incompatible terminal options", Spec{Kernels: []StageSpec{{Name: "shortest_path", AsAttributes: Ptr(true), WithLabels: Ptr(true)}}}, kernels.OptWithLabels},
		{"missing solver", Spec{Kernels: []StageSpec{{Name: "lovasz_theta"}}}, kernels.OptSolver},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gk, err := NewGraphKernel(tt.spec)
			assert.Nil(t, gk)
			var cfgErr *errors.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.param, cfgErr.Param)
		})
	}
}

// countingSolver scores a pair by the number of shared vertex labels.
type countingSolver struct{}

func (countingSolver) Name() string    { return "counting" }
func (countingSolver) Available() bool { return true }

func (countingSolver) Similarity(a, b *graph.Graph) (float64, error) {
	count := make(map[string]float64)
	for _, v := range a.Vertices() {
		l, _ := a.VertexLabel(v)
		count[l]++
	}
	var sum float64
	for _, v := range b.Vertices() {
		l, _ := b.VertexLabel(v)
		sum += count[l]
	}
	return sum, nil
}

func TestGraphKernelSolverStage(t *testing.T) {
	gk, err := NewGraphKernel(Spec{Kernels: []StageSpec{{Name: "svm_theta"}}}, WithSolver("svm_theta", countingSolver{}))
	require.NoError(t, err)

	k, err := gk.FitTransform([]graph.Source{ring(3, "C"), ring(4, "C"), ring(3, "N")})
	require.NoError(t, err)
	assert.Equal(t, 12.0, k.At(0, 1))
	assert.Equal(t, 0.0, k.At(0, 2))

	_, err = NewGraphKernel(Spec{Kernels: []StageSpec{{Name: "lovasz_theta"}}}, WithSolver("svm_theta", countingSolver{}))
	assert.True(t, errors.Is(err, errors.ErrSolverUnavailable))
}

func TestGraphKernelAttributeKernel(t *testing.T) {
	var calls int
	ones := func(a, b []float64) float64 { calls++; return 1 }

	gk, err := NewGraphKernel(
		Spec{Kernels: []StageSpec{{Name: "shortest_path", AsAttributes: Ptr(true)}}},
		WithAttributeKernel(ones),
	)
	require.NoError(t, err)

	edge := graph.Input{
		Edges:            []graph.Edge{{From: 0, To: 1}},
		VertexAttributes: map[int][]float64{0: {1}, 1: {2}},
	}
	k, err := gk.FitTransform([]graph.Source{edge})
	require.NoError(t, err)
	assert.Equal(t, 4.0, k.At(0, 0))
	assert.Positive(t, calls)
}

func TestGraphKernelAsBaseKernel(t *testing.T) {
	train := molecules(9, 10)

	base := func() (model.RawKernel, error) {
		return NewGraphKernel(Spec{Kernels: []StageSpec{{Name: "vertex_histogram"}}})
	}
	wl, err := kernels.NewWeisfeilerLehman(kernels.WithNIter(2), kernels.WithBaseKernel(base))
	require.NoError(t, err)
	got, err := wl.FitTransform(train)
	require.NoError(t, err)

	ref, err := kernels.NewWeisfeilerLehman(kernels.WithNIter(2))
	require.NoError(t, err)
	want, err := ref.FitTransform(train)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}

func TestGraphKernelLoggingAndMetrics(t *testing.T) {
	logger, buf := log.NewTestLogger(log.LevelInfo)
	reg := prometheus.NewRegistry()
	observer, err := diagnostics.NewPrometheusObserver(reg)
	require.NoError(t, err)

	gk, err := NewGraphKernel(Spec{
		Kernels: []StageSpec{{Name: "weisfeiler_lehman", NIter: Ptr(2)}, {Name: "vertex_histogram"}},
	}, WithLogger(logger), WithObserver(observer))
	require.NoError(t, err)
	require.NoError(t, gk.Fit(molecules(10, 5)))

	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	var fitted map[string]interface{}
	for _, entry := range entries {
		if entry["message"] == "Kernel fitted" && entry[log.KernelNameKey] == "GraphKernel" {
			fitted = entry
		}
	}
	require.NotNil(t, fitted, "no fit record in %s", buf.String())
	assert.Equal(t, gk.ID().String(), fitted[log.EstimatorIDKey])
	assert.EqualValues(t, 5, fitted[log.GraphsKey])

	n, err := testutil.GatherAndCount(reg, "grakel_pair_evaluations_total")
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestGraphKernelFromYAML(t *testing.T) {
	spec, err := LoadSpec(strings.NewReader(`
normalize: true
kernels:
  - name: weisfeiler_lehman
    n_iter: 2
  - name: random_walk
    lambda: 0.01
    with_labels: true
`))
	require.NoError(t, err)
	gk, err := NewGraphKernel(spec)
	require.NoError(t, err)

	k, err := gk.FitTransform(molecules(11, 8))
	require.NoError(t, err)
	requireValidGram(t, k)
	assert.Equal(t, spec, gk.Spec())
}
