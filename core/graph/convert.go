package graph

import (
	"fmt"
	"sort"

	"github.com/tsdalton/GraKeL/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Source is anything that can be turned into a Graph: a raw Input or an
// already-built *Graph.
type Source interface {
	Graph() (*Graph, error)
}

// Input is the raw, user-facing description of one graph. Structure may be
// given as an edge list, an adjacency mapping, an adjacency matrix, or any
// combination of Edges and Adjacency. Matrix cannot be combined with the
// other two; its vertices are 0..n-1 and non-zero entries are edge weights.
// When Vertices is non-empty it lists every vertex (together with the
// matrix vertices), and edges to any other vertex are rejected.
type Input struct {
	Vertices  []int
	Edges     []Edge
	Adjacency map[int][]int
	Matrix    mat.Matrix
	Directed  bool

	VertexLabels     map[int]string
	VertexAttributes map[int][]float64
	EdgeLabels       map[Edge]string
	EdgeAttributes   map[Edge][]float64
}

// Graph implements Source.
func (in Input) Graph() (*Graph, error) { return New(in) }

// New validates in and builds its Graph Representation.
func New(in Input) (*Graph, error) {
	b := newBuilder(in.Directed)

	if in.Matrix != nil {
		if len(in.Edges) > 0 || len(in.Adjacency) > 0 {
			return nil, invalid("adjacency matrix cannot be combined with edges or adjacency mapping")
		}
		if err := b.addMatrix(in.Matrix); err != nil {
			return nil, err
		}
	}
	for _, v := range in.Vertices {
		b.addVertex(v)
	}
	// An explicit vertex list is closed; otherwise endpoints declare vertices.
	closed := len(in.Vertices) > 0
	endpoint := func(v int) error {
		if _, ok := b.adj[v]; ok {
			return nil
		}
		if closed {
			return invalidf("edge references unknown vertex %d", v)
		}
		b.addVertex(v)
		return nil
	}
	for _, e := range in.Edges {
		if err := endpoint(e.From); err != nil {
			return nil, err
		}
		if err := endpoint(e.To); err != nil {
			return nil, err
		}
		b.addEdge(e.From, e.To, 0)
	}
	for u, nbs := range in.Adjacency {
		if err := endpoint(u); err != nil {
			return nil, err
		}
		for _, v := range nbs {
			if err := endpoint(v); err != nil {
				return nil, err
			}
			b.addEdge(u, v, 0)
		}
	}

	g := b.build()

	if err := g.setVertexLabels(in.VertexLabels); err != nil {
		return nil, err
	}
	if err := g.setVertexAttributes(in.VertexAttributes); err != nil {
		return nil, err
	}
	if err := g.setEdgeLabels(in.EdgeLabels); err != nil {
		return nil, err
	}
	if err := g.setEdgeAttributes(in.EdgeAttributes); err != nil {
		return nil, err
	}
	return g, nil
}

// Requirements names the Graph fields a kernel consults. Convert rejects a
// batch in which a non-empty graph lacks a required field.
type Requirements struct {
	VertexLabels     bool
	VertexAttributes bool
	EdgeLabels       bool
	EdgeAttributes   bool
}

// Convert builds every source of a batch and checks it against req. op names
// the calling operation in errors; failures identify the graph index.
func Convert(op string, sources []Source, req Requirements) ([]*Graph, error) {
	if len(sources) == 0 {
		return nil, errors.Mark(errors.NewInvalidInputError(op, -1, "empty graph collection"), errors.ErrEmptyData)
	}

	graphs := make([]*Graph, len(sources))
	attrDim := -1
	for i, src := range sources {
		if src == nil {
			return nil, errors.NewInvalidInputError(op, i, "nil graph")
		}
		g, err := src.Graph()
		if err != nil {
			var inputErr *errors.InvalidInputError
			if errors.As(err, &inputErr) {
				return nil, errors.NewInvalidInputError(op, i, inputErr.Reason)
			}
			return nil, errors.NewInvalidInputError(op, i, err.Error())
		}
		if g == nil {
			return nil, errors.NewInvalidInputError(op, i, "nil graph")
		}
		if err := req.check(g); err != "" {
			return nil, errors.NewInvalidInputError(op, i, err)
		}
		if req.VertexAttributes && !g.IsEmpty() {
			d := g.VertexAttributeDim()
			if attrDim >= 0 && d != attrDim {
				return nil, errors.NewInvalidInputErrorf(op, i, "vertex attribute dimension %d differs from %d in the same batch", d, attrDim)
			}
			attrDim = d
		}
		graphs[i] = g
	}
	return graphs, nil
}

// Sources adapts built graphs to the Source slice expected by kernels.
func Sources(graphs []*Graph) []Source {
	out := make([]Source, len(graphs))
	for i, g := range graphs {
		out[i] = g
	}
	return out
}

func (r Requirements) check(g *Graph) string {
	switch {
	case r.VertexLabels && !g.HasVertexLabels():
		return "discrete vertex labels are required"
	case r.VertexAttributes && !g.HasVertexAttributes():
		return "continuous vertex attributes are required"
	case r.EdgeLabels && !g.HasEdgeLabels():
		return "discrete edge labels are required"
	case r.EdgeAttributes && !g.HasEdgeAttributes():
		return "continuous edge attributes are required"
	}
	return ""
}

func invalid(reason string) error {
	return errors.NewInvalidInputError("graph.New", -1, reason)
}

func invalidf(format string, args ...interface{}) error {
	return invalid(fmt.Sprintf(format, args...))
}

type builder struct {
	directed bool
	adj      map[int]map[int]struct{}
	weights  map[Edge]float64
}

func newBuilder(directed bool) *builder {
	return &builder{directed: directed, adj: make(map[int]map[int]struct{}), weights: make(map[Edge]float64)}
}

func (b *builder) addVertex(v int) {
	if _, ok := b.adj[v]; !ok {
		b.adj[v] = make(map[int]struct{})
	}
}

func (b *builder) addEdge(u, v int, w float64) {
	b.adj[u][v] = struct{}{}
	if w != 0 && w != 1 {
		b.weights[Edge{u, v}] = w
	}
	if !b.directed {
		b.adj[v][u] = struct{}{}
		if w != 0 && w != 1 {
			b.weights[Edge{v, u}] = w
		}
	}
}

func (b *builder) addMatrix(m mat.Matrix) error {
	r, c := m.Dims()
	if r != c {
		return invalidf("adjacency matrix is not square (%dx%d)", r, c)
	}
	for i := 0; i < r; i++ {
		b.addVertex(i)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			w := m.At(i, j)
			if !b.directed && w != m.At(j, i) {
				return invalidf("undirected adjacency matrix is not symmetric at (%d, %d)", i, j)
			}
			if w != 0 {
				b.addEdge(i, j, w)
			}
		}
	}
	return nil
}

func (b *builder) build() *Graph {
	g := &Graph{
		vertices: make([]int, 0, len(b.adj)),
		index:    make(map[int]int, len(b.adj)),
		directed: b.directed,
	}
	for v := range b.adj {
		g.vertices = append(g.vertices, v)
	}
	sort.Ints(g.vertices)

	g.neighbors = make([][]int, len(g.vertices))
	arcs, loops := 0, 0
	for p, v := range g.vertices {
		g.index[v] = p
		nb := make([]int, 0, len(b.adj[v]))
		for u := range b.adj[v] {
			nb = append(nb, u)
			if u == v {
				loops++
			}
		}
		sort.Ints(nb)
		g.neighbors[p] = nb
		arcs += len(nb)
	}
	if g.directed {
		g.nEdges = arcs
	} else {
		g.nEdges = (arcs-loops)/2 + loops
	}
	if len(b.weights) > 0 {
		g.weights = b.weights
	}
	return g
}

func (g *Graph) setVertexLabels(labels map[int]string) error {
	if len(labels) == 0 {
		return nil
	}
	for v := range labels {
		if !g.HasVertex(v) {
			return invalidf("vertex label references unknown vertex %d", v)
		}
	}
	if len(labels) != len(g.vertices) {
		return invalidf("vertex labels cover %d of %d vertices", len(labels), len(g.vertices))
	}
	g.vertexLabels = make(map[int]string, len(labels))
	for v, l := range labels {
		g.vertexLabels[v] = l
	}
	return nil
}

func (g *Graph) setVertexAttributes(attrs map[int][]float64) error {
	if len(attrs) == 0 {
		return nil
	}
	dim := -1
	for v, a := range attrs {
		if !g.HasVertex(v) {
			return invalidf("vertex attribute references unknown vertex %d", v)
		}
		if dim >= 0 && len(a) != dim {
			return invalidf("vertex attribute dimensions differ (%d and %d)", dim, len(a))
		}
		dim = len(a)
	}
	if dim == 0 {
		return invalid("vertex attributes must not be empty vectors")
	}
	if len(attrs) != len(g.vertices) {
		return invalidf("vertex attributes cover %d of %d vertices", len(attrs), len(g.vertices))
	}
	g.vertexAttrs = make(map[int][]float64, len(attrs))
	for v, a := range attrs {
		g.vertexAttrs[v] = append([]float64(nil), a...)
	}
	return nil
}

func (g *Graph) setEdgeLabels(labels map[Edge]string) error {
	if len(labels) == 0 {
		return nil
	}
	out := make(map[Edge]string, 2*len(labels))
	for e, l := range labels {
		if !g.HasEdge(e.From, e.To) {
			return invalidf("edge label references unknown edge (%d, %d)", e.From, e.To)
		}
		if prev, ok := out[e]; ok && prev != l {
			return invalidf("conflicting labels for undirected edge (%d, %d)", e.From, e.To)
		}
		out[e] = l
		if !g.directed {
			out[e.Reversed()] = l
		}
	}
	if !g.coversEdges(func(e Edge) bool { _, ok := out[e]; return ok }) {
		return invalid("edge labels do not cover every edge")
	}
	g.edgeLabels = out
	return nil
}

func (g *Graph) setEdgeAttributes(attrs map[Edge][]float64) error {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[Edge][]float64, 2*len(attrs))
	for e, a := range attrs {
		if !g.HasEdge(e.From, e.To) {
			return invalidf("edge attribute references unknown edge (%d, %d)", e.From, e.To)
		}
		cp := append([]float64(nil), a...)
		out[e] = cp
		if !g.directed {
			out[e.Reversed()] = cp
		}
	}
	if !g.coversEdges(func(e Edge) bool { _, ok := out[e]; return ok }) {
		return invalid("edge attributes do not cover every edge")
	}
	g.edgeAttrs = out
	return nil
}

func (g *Graph) coversEdges(has func(Edge) bool) bool {
	for _, e := range g.Edges() {
		if !has(e) {
			return false
		}
	}
	return true
}
