// Package kernels provides the concrete graph kernels: label histograms,
// Weisfeiler-Lehman and neighborhood-hash relabeling, shortest-path,
// geometric random-walk and solver-backed kernels.
//
// Every constructor takes the same Option type and rejects options the
// kernel does not understand with a ConfigurationError, so incompatible
// combinations fail at construction rather than at Fit.
package kernels

import (
	"sort"

	"github.com/tsdalton/GraKeL/core/model"
	"github.com/tsdalton/GraKeL/kernel"
	"github.com/tsdalton/GraKeL/pkg/errors"
)

// Option names, as used in pipeline specifications and configuration errors.
const (
	OptNIter           = "n_iter"
	OptBits            = "bits"
	OptSeed            = "seed"
	OptLambda          = "lambda"
	OptWithLabels      = "with_labels"
	OptAsAttributes    = "as_attributes"
	OptAttributeKernel = "attribute_kernel"
	OptBaseKernel      = "base_kernel"
	OptSolver          = "solver"
)

// AttributeKernel compares two continuous attribute vectors of equal length.
// It is treated as an opaque caller-supplied function and must be safe for
// concurrent use.
type AttributeKernel func(a, b []float64) float64

type settings struct {
	nIter           int
	bits            int
	seed            uint64
	lambda          float64
	withLabels      bool
	asAttributes    bool
	attributeKernel AttributeKernel
	base            model.RawKernelFactory
	solver          Solver
	kernelOpts      []kernel.Option

	set map[string]bool
}

// Option configures a kernel constructed by this package.
type Option func(*settings)

// WithNIter sets the number of views produced by an iterative kernel.
func WithNIter(n int) Option {
	return func(s *settings) {
		s.nIter = n
		s.set[OptNIter] = true
	}
}

// WithBits sets the label width of the neighborhood-hash kernel.
func WithBits(bits int) Option {
	return func(s *settings) {
		s.bits = bits
		s.set[OptBits] = true
	}
}

// WithSeed sets the seed of the neighborhood-hash label codes.
func WithSeed(seed uint64) Option {
	return func(s *settings) {
		s.seed = seed
		s.set[OptSeed] = true
	}
}

// WithLambda sets the decay factor of the random-walk kernel.
func WithLambda(lambda float64) Option {
	return func(s *settings) {
		s.lambda = lambda
		s.set[OptLambda] = true
	}
}

// WithLabels sets whether discrete vertex labels are compared.
func WithLabels(withLabels bool) Option {
	return func(s *settings) {
		s.withLabels = withLabels
		s.set[OptWithLabels] = true
	}
}

// WithAttributes switches the shortest-path kernel to continuous vertex
// attributes.
func WithAttributes(asAttributes bool) Option {
	return func(s *settings) {
		s.asAttributes = asAttributes
		s.set[OptAsAttributes] = true
	}
}

// WithAttributeKernel sets the function comparing attribute vectors.
func WithAttributeKernel(k AttributeKernel) Option {
	return func(s *settings) {
		s.attributeKernel = k
		s.set[OptAttributeKernel] = true
	}
}

// WithBaseKernel replaces the base kernel fitted on each view of an
// iterative kernel.
func WithBaseKernel(factory model.RawKernelFactory) Option {
	return func(s *settings) {
		s.base = factory
		s.set[OptBaseKernel] = true
	}
}

// WithSolver injects the external solver of a solver-backed kernel.
func WithSolver(solver Solver) Option {
	return func(s *settings) {
		s.solver = solver
		s.set[OptSolver] = true
	}
}

// WithKernelOptions forwards the shared estimator options (normalization,
// workers, logger, observer). It is accepted by every kernel.
func WithKernelOptions(opts ...kernel.Option) Option {
	return func(s *settings) {
		s.kernelOpts = append(s.kernelOpts, opts...)
	}
}

// resolve applies opts and rejects any option outside allowed.
func resolve(component string, allowed []string, opts []Option) (*settings, error) {
	s := &settings{set: make(map[string]bool)}
	for _, opt := range opts {
		opt(s)
	}

	ok := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		ok[name] = true
	}
	names := make([]string, 0, len(s.set))
	for name := range s.set {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !ok[name] {
			return nil, errors.NewConfigurationError(component, name, "option is not supported by this kernel", nil)
		}
	}
	return s, nil
}

// has reports whether the named option was given explicitly.
func (s *settings) has(name string) bool { return s.set[name] }
