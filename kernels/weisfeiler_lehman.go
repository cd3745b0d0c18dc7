package kernels

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/tsdalton/GraKeL/core/graph"
	"github.com/tsdalton/GraKeL/core/model"
	"github.com/tsdalton/GraKeL/kernel"
	"github.com/tsdalton/GraKeL/pkg/errors"
	"github.com/tsdalton/GraKeL/pkg/log"
)

// DefaultWLIterations is the default number of Weisfeiler-Lehman views.
const DefaultWLIterations = 5

// dictionary compresses label signatures into dense integer ids.
type dictionary map[string]int

// learn returns the id of key, assigning the next free id when key is new.
func (d dictionary) learn(key string) int {
	id, ok := d[key]
	if !ok {
		id = len(d)
		d[key] = id
	}
	return id
}

// lookup returns the id of key without modifying d. Unknown keys get ids
// above len(d), recorded in unseen.
func (d dictionary) lookup(unseen map[string]int) func(string) int {
	return func(key string) int {
		if id, ok := d[key]; ok {
			return id
		}
		id, ok := unseen[key]
		if !ok {
			id = len(d) + len(unseen)
			unseen[key] = id
		}
		return id
	}
}

// WeisfeilerLehmanStage relabels every vertex with a compressed form of its
// own label and the sorted multiset of its neighbors' labels. View 0 holds
// the compressed input labels and view t the labels after t refinements.
type WeisfeilerLehmanStage struct {
	nIter  int
	logger log.Logger

	mu     sync.RWMutex
	fitted []dictionary // one per view
}

var _ model.Stage = (*WeisfeilerLehmanStage)(nil)

// NewWeisfeilerLehmanStage creates a relabeling stage producing nIter views.
func NewWeisfeilerLehmanStage(nIter int, logger log.Logger) (*WeisfeilerLehmanStage, error) {
	if nIter < 1 {
		return nil, errors.NewConfigurationError("WeisfeilerLehman", OptNIter, "must be at least 1", nIter)
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &WeisfeilerLehmanStage{nIter: nIter, logger: logger.With(log.ComponentKey, "WeisfeilerLehmanStage")}, nil
}

// FitTransform implements model.Stage.
func (s *WeisfeilerLehmanStage) FitTransform(sources []graph.Source) ([][]*graph.Graph, error) {
	graphs, err := graph.Convert("WeisfeilerLehman.Fit", sources, graph.Requirements{VertexLabels: true})
	if err != nil {
		return nil, err
	}

	dicts := make([]dictionary, s.nIter)
	codes := make([]func(string) int, s.nIter)
	for t := range dicts {
		dicts[t] = make(dictionary)
		codes[t] = dicts[t].learn
	}
	views := s.relabel(graphs, codes)

	s.mu.Lock()
	s.fitted = dicts
	s.mu.Unlock()

	for t, d := range dicts {
		s.logger.Debug("Label dictionary built", log.IterationKey, t, log.FeaturesKey, len(d))
	}
	return views, nil
}

// Transform implements model.Stage.
func (s *WeisfeilerLehmanStage) Transform(sources []graph.Source) ([][]*graph.Graph, error) {
	s.mu.RLock()
	dicts := s.fitted
	s.mu.RUnlock()
	if dicts == nil {
		return nil, errors.NewNotFittedError("WeisfeilerLehman", "Transform")
	}

	graphs, err := graph.Convert("WeisfeilerLehman.Transform", sources, graph.Requirements{VertexLabels: true})
	if err != nil {
		return nil, err
	}
	codes := make([]func(string) int, len(dicts))
	for t, d := range dicts {
		codes[t] = d.lookup(make(map[string]int))
	}
	return s.relabel(graphs, codes), nil
}

// relabel runs the refinement with one coding function per view.
func (s *WeisfeilerLehmanStage) relabel(graphs []*graph.Graph, codes []func(string) int) [][]*graph.Graph {
	views := make([][]*graph.Graph, len(codes))
	labels := make([][]int, len(graphs))

	for i, g := range graphs {
		cur := make([]int, g.NumVertices())
		for p, v := range g.Vertices() {
			l, _ := g.VertexLabel(v)
			cur[p] = codes[0](l)
		}
		labels[i] = cur
	}
	views[0] = withLabels(graphs, labels)

	var sb strings.Builder
	for t := 1; t < len(codes); t++ {
		next := make([][]int, len(graphs))
		for i, g := range graphs {
			cur := labels[i]
			out := make([]int, len(cur))
			for p, v := range g.Vertices() {
				out[p] = codes[t](signature(&sb, g, cur, p, v))
			}
			next[i] = out
		}
		labels = next
		views[t] = withLabels(graphs, labels)
	}
	return views
}

// signature encodes the label of the vertex at position p followed by the
// sorted labels of its neighbors.
func signature(sb *strings.Builder, g *graph.Graph, cur []int, p, v int) string {
	nb := g.Neighbors(v)
	multiset := make([]int, 0, len(nb))
	for _, u := range nb {
		q, _ := g.Position(u)
		multiset = append(multiset, cur[q])
	}
	sort.Ints(multiset)

	sb.Reset()
	sb.WriteString(strconv.Itoa(cur[p]))
	sb.WriteByte('|')
	for k, l := range multiset {
		if k > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(l))
	}
	return sb.String()
}

// withLabels derives one graph per input carrying the given integer labels,
// indexed by vertex position.
func withLabels(graphs []*graph.Graph, labels [][]int) []*graph.Graph {
	out := make([]*graph.Graph, len(graphs))
	for i, g := range graphs {
		m := make(map[int]string, g.NumVertices())
		for p, v := range g.Vertices() {
			m[v] = strconv.Itoa(labels[i][p])
		}
		out[i] = g.WithVertexLabels(m)
	}
	return out
}

// WeisfeilerLehman is the Weisfeiler-Lehman subtree kernel: a
// WeisfeilerLehmanStage composed with a base kernel, by default a
// VertexHistogram, whose per-view matrices are summed.
type WeisfeilerLehman struct {
	*kernel.Composite
}

// NewWeisfeilerLehman creates a Weisfeiler-Lehman kernel.
func NewWeisfeilerLehman(opts ...Option) (*WeisfeilerLehman, error) {
	s, err := resolve("WeisfeilerLehman", []string{OptNIter, OptBaseKernel}, opts)
	if err != nil {
		return nil, err
	}
	nIter := DefaultWLIterations
	if s.has(OptNIter) {
		nIter = s.nIter
	}
	cfg := kernel.NewConfig(s.kernelOpts...)
	stage := func() (model.Stage, error) { return NewWeisfeilerLehmanStage(nIter, cfg.Logger) }

	c, err := kernel.NewComposite("WeisfeilerLehman", stage, s.baseOr(vertexHistogramFactory(s.kernelOpts)), s.kernelOpts...)
	if err != nil {
		return nil, err
	}
	return &WeisfeilerLehman{c}, nil
}

// vertexHistogramFactory builds the default base kernel of iterative kernels.
func vertexHistogramFactory(opts []kernel.Option) model.RawKernelFactory {
	return func() (model.RawKernel, error) {
		return NewVertexHistogram(WithKernelOptions(opts...))
	}
}

func (s *settings) baseOr(fallback model.RawKernelFactory) model.RawKernelFactory {
	if s.base != nil {
		return s.base
	}
	return fallback
}
