package kernels

import (
	"github.com/tsdalton/GraKeL/core/graph"
	"github.com/tsdalton/GraKeL/kernel"
	"github.com/tsdalton/GraKeL/pkg/errors"
)

// Solver is an external optimization back end, such as a semidefinite or SVM
// solver, that returns the similarity of two graphs as a black box.
// Similarity must be safe for concurrent use.
type Solver interface {
	// Name identifies the back end in logs and errors.
	Name() string

	// Available reports whether the back end can be used in this process.
	Available() bool

	// Similarity returns the non-negative similarity of a and b.
	Similarity(a, b *graph.Graph) (float64, error)
}

// SolverKernel delegates every pair to an injected Solver. It backs the
// Lovász-theta and SVM-theta kernels.
type SolverKernel struct {
	*kernel.Estimator[*graph.Graph]
	solver Solver
}

// NewSolverKernel creates a kernel named name on top of the solver given with
// WithSolver. A missing or unavailable solver is a ConfigurationError.
func NewSolverKernel(name string, opts ...Option) (*SolverKernel, error) {
	s, err := resolve(name, []string{OptSolver}, opts)
	if err != nil {
		return nil, err
	}
	if s.solver == nil {
		return nil, errors.Mark(errors.NewConfigurationError(name, OptSolver, "an external solver is required", nil), errors.ErrSolverUnavailable)
	}
	if !s.solver.Available() {
		return nil, errors.Mark(errors.NewConfigurationError(name, OptSolver, "solver is not available", s.solver.Name()), errors.ErrSolverUnavailable)
	}

	solver := s.solver
	pair := func(a, b *graph.Graph) (float64, error) {
		if a.IsEmpty() || b.IsEmpty() {
			return 0, nil
		}
		return solver.Similarity(a, b)
	}
	return &SolverKernel{
		Estimator: kernel.NewEstimator[*graph.Graph](name, kernel.GraphFeatures{}, pair, s.kernelOpts...),
		solver:    solver,
	}, nil
}

// Solver returns the injected back end.
func (k *SolverKernel) Solver() Solver { return k.solver }
