package kernels

import (
	"encoding/binary"
	"hash/fnv"
	"sort"
	"strconv"
	"sync"

	"github.com/tsdalton/GraKeL/core/graph"
	"github.com/tsdalton/GraKeL/core/model"
	"github.com/tsdalton/GraKeL/kernel"
	"github.com/tsdalton/GraKeL/pkg/errors"
	"github.com/tsdalton/GraKeL/pkg/log"
)

// Neighborhood-hash defaults.
const (
	DefaultNHIterations = 3
	DefaultNHBits       = 8
	maxNHBits           = 63
)

// nhCodes assigns a distinct bits-wide code to each discrete label.
type nhCodes struct {
	bits  int
	seed  uint64
	codes map[string]uint64
	used  map[uint64]bool
}

// hash returns the seeded starting code of label.
func (c *nhCodes) hash(label string) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], c.seed)
	_, _ = h.Write(buf[:])
	_, _ = h.Write([]byte(label))
	return h.Sum64() & c.mask()
}

func (c *nhCodes) mask() uint64 { return 1<<uint(c.bits) - 1 }

// probe returns the first code from hash(label) on that taken rejects, or
// false when every code is taken.
func (c *nhCodes) probe(label string, taken func(uint64) bool) (uint64, bool) {
	code := c.hash(label)
	for n := uint64(0); n <= c.mask(); n++ {
		if !taken(code) {
			return code, true
		}
		code = (code + 1) & c.mask()
	}
	return 0, false
}

// rotate is a one-bit left rotation within the code width.
func (c *nhCodes) rotate(x uint64) uint64 {
	return ((x << 1) | (x >> uint(c.bits-1))) & c.mask()
}

// NeighborhoodHashStage relabels vertices with bit codes: every iteration
// replaces a code by its one-bit rotation XOR the codes of its neighbors.
// View r holds the codes after r+1 updates.
type NeighborhoodHashStage struct {
	nIter  int
	bits   int
	seed   uint64
	logger log.Logger

	mu     sync.RWMutex
	fitted *nhCodes
}

var _ model.Stage = (*NeighborhoodHashStage)(nil)

// NewNeighborhoodHashStage creates a neighborhood-hash relabeling stage.
func NewNeighborhoodHashStage(nIter, nbits int, seed uint64, logger log.Logger) (*NeighborhoodHashStage, error) {
	if nIter < 1 {
		return nil, errors.NewConfigurationError("NeighborhoodHash", OptNIter, "must be at least 1", nIter)
	}
	if nbits < 1 || nbits > maxNHBits {
		return nil, errors.NewConfigurationError("NeighborhoodHash", OptBits, "must be between 1 and 63", nbits)
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &NeighborhoodHashStage{
		nIter:  nIter,
		bits:   nbits,
		seed:   seed,
		logger: logger.With(log.ComponentKey, "NeighborhoodHashStage"),
	}, nil
}

// FitTransform implements model.Stage. Distinct input labels are coded in
// sorted order so the assignment does not depend on graph order.
func (s *NeighborhoodHashStage) FitTransform(sources []graph.Source) ([][]*graph.Graph, error) {
	const op = "NeighborhoodHash.Fit"
	graphs, err := graph.Convert(op, sources, graph.Requirements{VertexLabels: true})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, g := range graphs {
		for _, v := range g.Vertices() {
			l, _ := g.VertexLabel(v)
			seen[l] = true
		}
	}
	distinct := make([]string, 0, len(seen))
	for l := range seen {
		distinct = append(distinct, l)
	}
	sort.Strings(distinct)

	c := &nhCodes{bits: s.bits, seed: s.seed, codes: make(map[string]uint64, len(distinct)), used: make(map[uint64]bool)}
	for _, l := range distinct {
		code, ok := c.probe(l, func(x uint64) bool { return c.used[x] })
		if !ok {
			return nil, errors.NewInvalidInputErrorf(op, -1, "%d distinct labels do not fit in %d-bit codes", len(distinct), s.bits)
		}
		c.codes[l] = code
		c.used[code] = true
	}

	views, err := s.relabel(op, graphs, c, nil)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.fitted = c
	s.mu.Unlock()

	s.logger.Debug("Label codes assigned", log.FeaturesKey, len(c.codes))
	return views, nil
}

// Transform implements model.Stage. Labels unseen at fit time get codes
// outside the fitted code set.
func (s *NeighborhoodHashStage) Transform(sources []graph.Source) ([][]*graph.Graph, error) {
	const op = "NeighborhoodHash.Transform"
	s.mu.RLock()
	c := s.fitted
	s.mu.RUnlock()
	if c == nil {
		return nil, errors.NewNotFittedError("NeighborhoodHash", "Transform")
	}

	graphs, err := graph.Convert(op, sources, graph.Requirements{VertexLabels: true})
	if err != nil {
		return nil, err
	}
	unseen, err := s.codeUnseen(op, graphs, c)
	if err != nil {
		return nil, err
	}
	return s.relabel(op, graphs, c, unseen)
}

// codeUnseen gives every label of graphs missing from c a code outside the
// fitted set. Labels are probed in sorted order, so the result does not
// depend on graph order. A failure names the first graph holding the label.
func (s *NeighborhoodHashStage) codeUnseen(op string, graphs []*graph.Graph, c *nhCodes) (map[string]uint64, error) {
	first := make(map[string]int)
	for i, g := range graphs {
		for _, v := range g.Vertices() {
			l, _ := g.VertexLabel(v)
			if _, ok := c.codes[l]; ok {
				continue
			}
			if _, ok := first[l]; !ok {
				first[l] = i
			}
		}
	}
	if len(first) == 0 {
		return nil, nil
	}
	pending := make([]string, 0, len(first))
	for l := range first {
		pending = append(pending, l)
	}
	sort.Strings(pending)

	unseen := make(map[string]uint64, len(pending))
	minted := make(map[uint64]bool, len(pending))
	taken := func(x uint64) bool { return c.used[x] || minted[x] }
	for _, l := range pending {
		code, ok := c.probe(l, taken)
		if !ok {
			return nil, errors.NewInvalidInputErrorf(op, first[l], "label %q cannot be given a free %d-bit code", l, s.bits)
		}
		unseen[l] = code
		minted[code] = true
	}
	return unseen, nil
}

// relabel codes the input labels through c and unseen, then runs nIter hash
// updates.
func (s *NeighborhoodHashStage) relabel(op string, graphs []*graph.Graph, c *nhCodes, unseen map[string]uint64) ([][]*graph.Graph, error) {
	labels := make([][]uint64, len(graphs))
	for i, g := range graphs {
		cur := make([]uint64, g.NumVertices())
		for p, v := range g.Vertices() {
			l, _ := g.VertexLabel(v)
			code, ok := c.codes[l]
			if !ok {
				if code, ok = unseen[l]; !ok {
					return nil, errors.NewInvalidInputErrorf(op, i, "label %q has no %d-bit code", l, s.bits)
				}
			}
			cur[p] = code
		}
		labels[i] = cur
	}

	views := make([][]*graph.Graph, s.nIter)
	for r := range views {
		next := make([][]uint64, len(graphs))
		for i, g := range graphs {
			cur := labels[i]
			out := make([]uint64, len(cur))
			for p, v := range g.Vertices() {
				h := c.rotate(cur[p])
				for _, u := range g.Neighbors(v) {
					q, _ := g.Position(u)
					h ^= cur[q]
				}
				out[p] = h
			}
			next[i] = out
		}
		labels = next
		views[r] = withCodes(graphs, labels)
	}
	return views, nil
}

func withCodes(graphs []*graph.Graph, labels [][]uint64) []*graph.Graph {
	out := make([]*graph.Graph, len(graphs))
	for i, g := range graphs {
		m := make(map[int]string, g.NumVertices())
		for p, v := range g.Vertices() {
			m[v] = strconv.FormatUint(labels[i][p], 16)
		}
		out[i] = g.WithVertexLabels(m)
	}
	return out
}

// NeighborhoodHash is the neighborhood-hash kernel: a NeighborhoodHashStage
// composed with a base kernel, by default a VertexHistogram counting equal
// codes.
type NeighborhoodHash struct {
	*kernel.Composite
}

// NewNeighborhoodHash creates a neighborhood-hash kernel.
func NewNeighborhoodHash(opts ...Option) (*NeighborhoodHash, error) {
	s, err := resolve("NeighborhoodHash", []string{OptNIter, OptBits, OptSeed, OptBaseKernel}, opts)
	if err != nil {
		return nil, err
	}
	nIter, nbits := DefaultNHIterations, DefaultNHBits
	if s.has(OptNIter) {
		nIter = s.nIter
	}
	if s.has(OptBits) {
		nbits = s.bits
	}
	cfg := kernel.NewConfig(s.kernelOpts...)
	stage := func() (model.Stage, error) { return NewNeighborhoodHashStage(nIter, nbits, s.seed, cfg.Logger) }

	c, err := kernel.NewComposite("NeighborhoodHash", stage, s.baseOr(vertexHistogramFactory(s.kernelOpts)), s.kernelOpts...)
	if err != nil {
		return nil, err
	}
	return &NeighborhoodHash{c}, nil
}
