package kernels

import (
	"math"

	"github.com/tsdalton/GraKeL/core/graph"
	"github.com/tsdalton/GraKeL/kernel"
	"github.com/tsdalton/GraKeL/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DefaultRandomWalkLambda is the default decay factor.
const DefaultRandomWalkLambda = 0.1

// RandomWalk is the geometric random-walk kernel
//
//	k(G, G') = pᵀ (I - λ A×)⁻¹ p
//
// where A× is the weighted adjacency matrix of the direct product graph and p
// is the all-ones vector. With labels enabled, only product vertices pairing
// equal labels take part in walks and in p.
type RandomWalk struct {
	*kernel.Estimator[*graph.Graph]
}

// NewRandomWalk creates a random-walk kernel.
func NewRandomWalk(opts ...Option) (*RandomWalk, error) {
	s, err := resolve("RandomWalk", []string{OptLambda, OptWithLabels}, opts)
	if err != nil {
		return nil, err
	}
	lambda := DefaultRandomWalkLambda
	if s.has(OptLambda) {
		lambda = s.lambda
	}
	if !(lambda > 0) || math.IsInf(lambda, 0) {
		return nil, errors.NewConfigurationError("RandomWalk", OptLambda, "must be a positive finite number", lambda)
	}

	withLabels := s.withLabels
	pair := func(a, b *graph.Graph) (float64, error) {
		return randomWalk(a, b, lambda, withLabels)
	}
	features := kernel.GraphFeatures{Required: graph.Requirements{VertexLabels: withLabels}}
	return &RandomWalk{kernel.NewEstimator[*graph.Graph]("RandomWalk", features, pair, s.kernelOpts...)}, nil
}

func randomWalk(a, b *graph.Graph, lambda float64, withLabels bool) (float64, error) {
	if a.IsEmpty() || b.IsEmpty() {
		return 0, nil
	}
	na, nb := a.NumVertices(), b.NumVertices()
	n := na * nb

	var w mat.Dense
	w.Kronecker(a.AdjacencyMatrix(), b.AdjacencyMatrix())

	p := mat.NewVecDense(n, nil)
	for i, u := range a.Vertices() {
		for k, v := range b.Vertices() {
			if withLabels {
				lu, _ := a.VertexLabel(u)
				lv, _ := b.VertexLabel(v)
				if lu != lv {
					continue
				}
			}
			p.SetVec(i*nb+k, 1)
		}
	}
	if withLabels {
		// Walks may only visit product vertices with matching labels.
		for r := 0; r < n; r++ {
			for c := 0; c < n; c++ {
				if p.AtVec(r) == 0 || p.AtVec(c) == 0 {
					w.Set(r, c, 0)
				}
			}
		}
	}

	// m = I - λW
	m := mat.NewDense(n, n, nil)
	m.Scale(-lambda, &w)
	for i := 0; i < n; i++ {
		m.Set(i, i, m.At(i, i)+1)
	}

	var x mat.VecDense
	if err := x.SolveVec(m, p); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return 0, errors.Wrapf(errors.ErrSingularMatrix, "random walk system of size %d", n)
		}
	}
	return mat.Dot(p, &x), nil
}
