// Package graph defines the immutable Graph Representation consumed by every
// kernel, and the conversion of raw user input into it.
//
// A Graph is built once (New, or Convert for a batch) and never mutated
// afterwards; relabeling kernels derive new graphs with WithVertexLabels,
// which shares the read-only structure with the original.
package graph

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Edge is an ordered vertex pair. For undirected graphs both orientations
// address the same edge.
type Edge struct {
	From int
	To   int
}

// Reversed returns the edge with its endpoints swapped.
func (e Edge) Reversed() Edge { return Edge{From: e.To, To: e.From} }

// Graph is the immutable per-instance view of one input graph.
type Graph struct {
	vertices  []int       // sorted vertex IDs
	index     map[int]int // vertex ID -> position in vertices
	neighbors [][]int     // by position; sorted neighbor IDs
	weights   map[Edge]float64
	directed  bool
	nEdges    int

	vertexLabels map[int]string
	vertexAttrs  map[int][]float64
	edgeLabels   map[Edge]string
	edgeAttrs    map[Edge][]float64
}

// Graph implements Source so that already-built graphs can be passed
// wherever raw input is accepted.
func (g *Graph) Graph() (*Graph, error) { return g, nil }

// NumVertices returns the number of vertices.
func (g *Graph) NumVertices() int { return len(g.vertices) }

// NumEdges returns the number of edges; an undirected edge counts once.
func (g *Graph) NumEdges() int { return g.nEdges }

// IsEmpty reports whether the graph has no vertices.
func (g *Graph) IsEmpty() bool { return len(g.vertices) == 0 }

// Directed reports whether edges are one-way.
func (g *Graph) Directed() bool { return g.directed }

// Vertices returns the sorted vertex IDs. The slice must not be modified.
func (g *Graph) Vertices() []int { return g.vertices }

// HasVertex reports whether v is a vertex of g.
func (g *Graph) HasVertex(v int) bool {
	_, ok := g.index[v]
	return ok
}

// Position returns the index of v in Vertices().
func (g *Graph) Position(v int) (int, bool) {
	p, ok := g.index[v]
	return p, ok
}

// Neighbors returns the sorted (out-)neighbors of v. The slice must not be
// modified.
func (g *Graph) Neighbors(v int) []int {
	p, ok := g.index[v]
	if !ok {
		return nil
	}
	return g.neighbors[p]
}

// HasEdge reports whether there is an edge from u to v.
func (g *Graph) HasEdge(u, v int) bool {
	nb := g.Neighbors(u)
	i := sort.SearchInts(nb, v)
	return i < len(nb) && nb[i] == v
}

// Weight returns the weight of edge (u, v), 1 for unweighted edges and 0
// when there is no edge.
func (g *Graph) Weight(u, v int) float64 {
	if !g.HasEdge(u, v) {
		return 0
	}
	if w, ok := g.weights[Edge{u, v}]; ok {
		return w
	}
	return 1
}

// Edges returns every edge once, ordered by (From, To). Undirected edges are
// reported with From <= To.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, g.nEdges)
	for p, u := range g.vertices {
		for _, v := range g.neighbors[p] {
			if !g.directed && v < u {
				continue
			}
			edges = append(edges, Edge{u, v})
		}
	}
	return edges
}

// HasVertexLabels reports whether every vertex carries a discrete label.
// Empty graphs report true.
func (g *Graph) HasVertexLabels() bool {
	return len(g.vertices) == 0 || len(g.vertexLabels) > 0
}

// VertexLabel returns the discrete label of v.
func (g *Graph) VertexLabel(v int) (string, bool) {
	l, ok := g.vertexLabels[v]
	return l, ok
}

// VertexLabels returns a copy of the vertex label mapping.
func (g *Graph) VertexLabels() map[int]string {
	out := make(map[int]string, len(g.vertexLabels))
	for v, l := range g.vertexLabels {
		out[v] = l
	}
	return out
}

// HasVertexAttributes reports whether every vertex carries an attribute
// vector. Empty graphs report true.
func (g *Graph) HasVertexAttributes() bool {
	return len(g.vertices) == 0 || len(g.vertexAttrs) > 0
}

// VertexAttribute returns the attribute vector of v. The slice must not be
// modified.
func (g *Graph) VertexAttribute(v int) []float64 { return g.vertexAttrs[v] }

// VertexAttributeDim returns the attribute dimension, or 0 when the graph has
// no vertex attributes.
func (g *Graph) VertexAttributeDim() int {
	for _, a := range g.vertexAttrs {
		return len(a)
	}
	return 0
}

// HasEdgeLabels reports whether every edge carries a discrete label. Graphs
// without edges report true.
func (g *Graph) HasEdgeLabels() bool {
	return g.nEdges == 0 || len(g.edgeLabels) > 0
}

// EdgeLabel returns the discrete label of edge (u, v).
func (g *Graph) EdgeLabel(u, v int) (string, bool) {
	l, ok := g.edgeLabels[Edge{u, v}]
	return l, ok
}

// HasEdgeAttributes reports whether every edge carries an attribute vector.
func (g *Graph) HasEdgeAttributes() bool {
	return g.nEdges == 0 || len(g.edgeAttrs) > 0
}

// EdgeAttribute returns the attribute vector of edge (u, v).
func (g *Graph) EdgeAttribute(u, v int) []float64 { return g.edgeAttrs[Edge{u, v}] }

// WithVertexLabels returns a graph with the same structure and edge data but
// the given discrete vertex labels. labels must cover every vertex; the map
// is owned by the returned graph afterwards.
func (g *Graph) WithVertexLabels(labels map[int]string) *Graph {
	out := *g
	out.vertexLabels = labels
	return &out
}

// AdjacencyMatrix returns the weighted adjacency matrix with rows and columns
// ordered as Vertices(). It returns nil for an empty graph.
func (g *Graph) AdjacencyMatrix() *mat.Dense {
	n := len(g.vertices)
	if n == 0 {
		return nil
	}
	a := mat.NewDense(n, n, nil)
	for p, u := range g.vertices {
		for _, v := range g.neighbors[p] {
			a.Set(p, g.index[v], g.Weight(u, v))
		}
	}
	return a
}
