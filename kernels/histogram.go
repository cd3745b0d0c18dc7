package kernels

import (
	"sort"

	"github.com/tsdalton/GraKeL/core/graph"
	"github.com/tsdalton/GraKeL/kernel"
	"github.com/tsdalton/GraKeL/pkg/errors"
)

// Histogram is a sparse count vector over a label vocabulary. Index is
// strictly increasing.
type Histogram struct {
	Index []int
	Count []float64
}

// newHistogram counts the occurrences of ids.
func newHistogram(ids []int) Histogram {
	if len(ids) == 0 {
		return Histogram{}
	}
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)

	h := Histogram{}
	for _, id := range sorted {
		if n := len(h.Index); n > 0 && h.Index[n-1] == id {
			h.Count[n-1]++
			continue
		}
		h.Index = append(h.Index, id)
		h.Count = append(h.Count, 1)
	}
	return h
}

// Dot returns the inner product of h and o.
func (h Histogram) Dot(o Histogram) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(h.Index) && j < len(o.Index) {
		switch {
		case h.Index[i] < o.Index[j]:
			i++
		case h.Index[i] > o.Index[j]:
			j++
		default:
			sum += h.Count[i] * o.Count[j]
			i++
			j++
		}
	}
	return sum
}

func dotHistograms(a, b Histogram) (float64, error) { return a.Dot(b), nil }

// labelFeatures maps each graph to the histogram of the discrete keys
// returned by keys. The vocabulary is learned at fit time in first-seen order.
type labelFeatures struct {
	name     string
	required graph.Requirements
	keys     func(g *graph.Graph) ([]string, error)
}

func (f labelFeatures) Requirements() graph.Requirements { return f.required }

func (f labelFeatures) Fit(graphs []*graph.Graph) ([]Histogram, kernel.FittedFeatureMap[Histogram], error) {
	vocab := make(map[string]int)
	learn := func(key string) int {
		id, ok := vocab[key]
		if !ok {
			id = len(vocab)
			vocab[key] = id
		}
		return id
	}
	x, err := f.histograms(f.name+".Fit", graphs, learn)
	if err != nil {
		return nil, nil, err
	}
	return x, &fittedLabels{labelFeatures: f, vocab: vocab}, nil
}

func (f labelFeatures) histograms(op string, graphs []*graph.Graph, code func(string) int) ([]Histogram, error) {
	x := make([]Histogram, len(graphs))
	for i, g := range graphs {
		keys, err := f.keys(g)
		if err != nil {
			return nil, errors.NewInvalidInputError(op, i, err.Error())
		}
		ids := make([]int, len(keys))
		for k, key := range keys {
			ids[k] = code(key)
		}
		x[i] = newHistogram(ids)
	}
	return x, nil
}

// fittedLabels is the immutable vocabulary learned by labelFeatures.Fit.
type fittedLabels struct {
	labelFeatures
	vocab map[string]int
}

// Transform maps keys through the fitted vocabulary. Keys never seen during
// fit receive ids above the vocabulary, minted in a map local to this call,
// so they never match a fitted feature but still count toward the query's
// self-similarity.
func (f *fittedLabels) Transform(graphs []*graph.Graph) ([]Histogram, error) {
	unseen := make(map[string]int)
	lookup := func(key string) int {
		if id, ok := f.vocab[key]; ok {
			return id
		}
		id, ok := unseen[key]
		if !ok {
			id = len(f.vocab) + len(unseen)
			unseen[key] = id
		}
		return id
	}
	return f.histograms(f.name+".Transform", graphs, lookup)
}

func (f *fittedLabels) Size() int { return len(f.vocab) }

// VertexHistogram compares graphs by the inner product of their vertex label
// counts.
type VertexHistogram struct {
	*kernel.Estimator[Histogram]
}

// NewVertexHistogram creates a vertex histogram kernel.
func NewVertexHistogram(opts ...Option) (*VertexHistogram, error) {
	s, err := resolve("VertexHistogram", nil, opts)
	if err != nil {
		return nil, err
	}
	features := labelFeatures{
		name:     "VertexHistogram",
		required: graph.Requirements{VertexLabels: true},
		keys:     vertexLabels,
	}
	return &VertexHistogram{kernel.NewEstimator[Histogram]("VertexHistogram", features, dotHistograms, s.kernelOpts...)}, nil
}

func vertexLabels(g *graph.Graph) ([]string, error) {
	keys := make([]string, 0, g.NumVertices())
	for _, v := range g.Vertices() {
		l, _ := g.VertexLabel(v)
		keys = append(keys, l)
	}
	return keys, nil
}

// EdgeHistogram compares graphs by the inner product of their edge label
// counts. Undirected edges are counted once.
type EdgeHistogram struct {
	*kernel.Estimator[Histogram]
}

// NewEdgeHistogram creates an edge histogram kernel.
func NewEdgeHistogram(opts ...Option) (*EdgeHistogram, error) {
	s, err := resolve("EdgeHistogram", nil, opts)
	if err != nil {
		return nil, err
	}
	features := labelFeatures{
		name:     "EdgeHistogram",
		required: graph.Requirements{EdgeLabels: true},
		keys:     edgeLabels,
	}
	return &EdgeHistogram{kernel.NewEstimator[Histogram]("EdgeHistogram", features, dotHistograms, s.kernelOpts...)}, nil
}

func edgeLabels(g *graph.Graph) ([]string, error) {
	edges := g.Edges()
	keys := make([]string, 0, len(edges))
	for _, e := range edges {
		l, _ := g.EdgeLabel(e.From, e.To)
		keys = append(keys, l)
	}
	return keys, nil
}
