package kernels

import (
	"math"
	"strconv"

	"github.com/tsdalton/GraKeL/core/graph"
	"github.com/tsdalton/GraKeL/core/model"
	"github.com/tsdalton/GraKeL/kernel"
	"github.com/tsdalton/GraKeL/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// ShortestPath compares graphs by their shortest paths.
//
// In the default mode every graph maps to the histogram of
// (label(u), label(v), d(u, v)) triples over connected vertex pairs, or of
// d(u, v) alone when labels are disabled. With attributes enabled, two graphs
// are compared by summing k(attr(u), attr(u')) * k(attr(v), attr(v')) over
// all pairs of paths of equal length.
type ShortestPath struct {
	model.RawKernel
}

// NewShortestPath creates a shortest-path kernel. Labels are used by default;
// WithAttributes(true) cannot be combined with WithLabels(true), and an
// attribute kernel is only accepted in attribute mode.
func NewShortestPath(opts ...Option) (*ShortestPath, error) {
	s, err := resolve("ShortestPath", []string{OptWithLabels, OptAsAttributes, OptAttributeKernel}, opts)
	if err != nil {
		return nil, err
	}
	if !s.has(OptWithLabels) {
		s.withLabels = true
	}

	if !s.asAttributes {
		if s.has(OptAttributeKernel) {
			return nil, errors.NewConfigurationError("ShortestPath", OptAttributeKernel, "requires as_attributes", nil)
		}
		features := labelFeatures{
			name:     "ShortestPath",
			required: graph.Requirements{VertexLabels: s.withLabels},
			keys:     pathTriples(s.withLabels),
		}
		return &ShortestPath{kernel.NewEstimator[Histogram]("ShortestPath", features, dotHistograms, s.kernelOpts...)}, nil
	}

	if s.has(OptWithLabels) && s.withLabels {
		return nil, errors.NewConfigurationError("ShortestPath", OptWithLabels, "cannot be combined with as_attributes", true)
	}
	ak := s.attributeKernel
	if ak == nil {
		ak = floats.Dot
	}
	pair := func(a, b []attributedPath) (float64, error) {
		var sum float64
		for _, p := range a {
			for _, q := range b {
				if p.length == q.length {
					sum += ak(p.from, q.from) * ak(p.to, q.to)
				}
			}
		}
		return sum, nil
	}
	return &ShortestPath{kernel.NewEstimator[[]attributedPath]("ShortestPath", attributedPaths{}, pair, s.kernelOpts...)}, nil
}

// allPairs runs Floyd-Warshall over the weighted structure of g. Self-loops
// do not shorten any path and are skipped. ok is false when g has a negative
// cycle.
func allPairs(g *graph.Graph) (path.AllShortest, bool) {
	if g.Directed() {
		dg := simple.NewWeightedDirectedGraph(0, math.Inf(1))
		for _, v := range g.Vertices() {
			dg.AddNode(simple.Node(v))
		}
		for _, e := range g.Edges() {
			if e.From != e.To {
				dg.SetWeightedEdge(dg.NewWeightedEdge(simple.Node(e.From), simple.Node(e.To), g.Weight(e.From, e.To)))
			}
		}
		return path.FloydWarshall(dg)
	}

	ug := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for _, v := range g.Vertices() {
		ug.AddNode(simple.Node(v))
	}
	for _, e := range g.Edges() {
		if e.From != e.To {
			ug.SetWeightedEdge(ug.NewWeightedEdge(simple.Node(e.From), simple.Node(e.To), g.Weight(e.From, e.To)))
		}
	}
	return path.FloydWarshall(ug)
}

// eachPath calls fn for every ordered pair of distinct vertices connected by
// a path. For undirected graphs only pairs with u < v are visited.
func eachPath(g *graph.Graph, fn func(u, v int, d float64)) error {
	if g.IsEmpty() {
		return nil
	}
	paths, ok := allPairs(g)
	if !ok {
		return errors.New("graph contains a negative cycle")
	}
	vs := g.Vertices()
	for i, u := range vs {
		for j, v := range vs {
			if i == j || (!g.Directed() && j < i) {
				continue
			}
			d := paths.Weight(int64(u), int64(v))
			if math.IsInf(d, 0) {
				continue
			}
			fn(u, v, d)
		}
	}
	return nil
}

func pathTriples(withLabels bool) func(g *graph.Graph) ([]string, error) {
	return func(g *graph.Graph) ([]string, error) {
		var keys []string
		err := eachPath(g, func(u, v int, d float64) {
			dist := strconv.FormatFloat(d, 'g', -1, 64)
			if !withLabels {
				keys = append(keys, dist)
				return
			}
			lu, _ := g.VertexLabel(u)
			lv, _ := g.VertexLabel(v)
			if !g.Directed() && lv < lu {
				lu, lv = lv, lu
			}
			keys = append(keys, strconv.Quote(lu)+","+strconv.Quote(lv)+","+dist)
		})
		return keys, err
	}
}

// attributedPath is a shortest path reduced to its endpoint attributes.
type attributedPath struct {
	from, to []float64
	length   float64
}

// attributedPaths extracts every shortest path of a graph. Undirected paths
// are listed in both orientations so the comparison does not depend on
// vertex numbering.
type attributedPaths struct{}

func (attributedPaths) Requirements() graph.Requirements {
	return graph.Requirements{VertexAttributes: true}
}

func (a attributedPaths) Fit(graphs []*graph.Graph) ([][]attributedPath, kernel.FittedFeatureMap[[]attributedPath], error) {
	x, err := a.extract("ShortestPath.Fit", graphs)
	if err != nil {
		return nil, nil, err
	}
	fitted := &fittedAttributePaths{}
	for _, g := range graphs {
		if !g.IsEmpty() {
			fitted.dim = g.VertexAttributeDim()
			break
		}
	}
	return x, fitted, nil
}

// fittedAttributePaths remembers the attribute dimension seen at fit; 0 when
// every fitted graph was empty.
type fittedAttributePaths struct {
	attributedPaths
	dim int
}

// Transform rejects graphs whose attribute dimension differs from the
// fitted one before any pair is compared.
func (f *fittedAttributePaths) Transform(graphs []*graph.Graph) ([][]attributedPath, error) {
	const op = "ShortestPath.Transform"
	if f.dim > 0 {
		for i, g := range graphs {
			if d := g.VertexAttributeDim(); !g.IsEmpty() && d != f.dim {
				return nil, errors.NewInvalidInputErrorf(op, i, "vertex attribute dimension %d differs from fitted dimension %d", d, f.dim)
			}
		}
	}
	return f.extract(op, graphs)
}

func (*fittedAttributePaths) Size() int { return 0 }

func (attributedPaths) extract(op string, graphs []*graph.Graph) ([][]attributedPath, error) {
	x := make([][]attributedPath, len(graphs))
	for i, g := range graphs {
		var paths []attributedPath
		err := eachPath(g, func(u, v int, d float64) {
			au, av := g.VertexAttribute(u), g.VertexAttribute(v)
			paths = append(paths, attributedPath{from: au, to: av, length: d})
			if !g.Directed() {
				paths = append(paths, attributedPath{from: av, to: au, length: d})
			}
		})
		if err != nil {
			return nil, errors.NewInvalidInputError(op, i, err.Error())
		}
		x[i] = paths
	}
	return x, nil
}
