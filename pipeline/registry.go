package pipeline

import (
	"sort"

	"github.com/tsdalton/GraKeL/core/model"
	"github.com/tsdalton/GraKeL/kernel"
	"github.com/tsdalton/GraKeL/kernels"
	"github.com/tsdalton/GraKeL/pkg/errors"
	"github.com/tsdalton/GraKeL/pkg/log"
)

// Variant tags a kernel family known to the registry.
type Variant int

const (
	VertexHistogram Variant = iota + 1
	EdgeHistogram
	WeisfeilerLehman
	NeighborhoodHash
	ShortestPath
	RandomWalk
	LovaszTheta
	SVMTheta
)

// variant describes one registry entry.
type variant struct {
	name   string // pipeline stage name
	kernel string // kernel name used in errors and logs

	// stageOptions lists the options accepted when the variant relabels for
	// a later stage. Terminal-only variants leave it nil.
	stageOptions []string
}

var registry = map[Variant]variant{
	VertexHistogram:  {name: "vertex_histogram", kernel: "VertexHistogram"},
	EdgeHistogram:    {name: "edge_histogram", kernel: "EdgeHistogram"},
	WeisfeilerLehman: {name: "weisfeiler_lehman", kernel: "WeisfeilerLehman", stageOptions: []string{kernels.OptNIter}},
	NeighborhoodHash: {name: "neighborhood_hash", kernel: "NeighborhoodHash", stageOptions: []string{kernels.OptNIter, kernels.OptBits, kernels.OptSeed}},
	ShortestPath:     {name: "shortest_path", kernel: "ShortestPath"},
	RandomWalk:       {name: "random_walk", kernel: "RandomWalk"},
	LovaszTheta:      {name: "lovasz_theta", kernel: "LovaszTheta"},
	SVMTheta:         {name: "svm_theta", kernel: "SVMTheta"},
}

var byName = func() map[string]Variant {
	m := make(map[string]Variant, len(registry))
	for v, e := range registry {
		m[e.name] = v
	}
	return m
}()

// ParseVariant resolves a pipeline stage name.
func ParseVariant(name string) (Variant, bool) {
	v, ok := byName[name]
	return v, ok
}

// Names returns every registered stage name in sorted order.
func Names() []string {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String returns the pipeline stage name.
func (v Variant) String() string {
	if e, ok := registry[v]; ok {
		return e.name
	}
	return "unknown"
}

// Relabeling reports whether the variant can feed graph views to a later
// stage.
func (v Variant) Relabeling() bool { return registry[v].stageOptions != nil }

// env carries the collaborators shared by every stage of one pipeline.
type env struct {
	kernelOpts      []kernel.Option
	logger          log.Logger
	solvers         map[string]kernels.Solver
	attributeKernel kernels.AttributeKernel
}

// terminal builds the kernel producing the matrix at the end of a pipeline.
func (e *env) terminal(v Variant, s StageSpec) (model.RawKernel, error) {
	opts := append(s.options(), kernels.WithKernelOptions(e.kernelOpts...))

	switch v {
	case VertexHistogram:
		return raw(kernels.NewVertexHistogram(opts...))
	case EdgeHistogram:
		return raw(kernels.NewEdgeHistogram(opts...))
	case WeisfeilerLehman:
		return raw(kernels.NewWeisfeilerLehman(opts...))
	case NeighborhoodHash:
		return raw(kernels.NewNeighborhoodHash(opts...))
	case ShortestPath:
		if e.attributeKernel != nil && s.AsAttributes != nil && *s.AsAttributes {
			opts = append(opts, kernels.WithAttributeKernel(e.attributeKernel))
		}
		return raw(kernels.NewShortestPath(opts...))
	case RandomWalk:
		return raw(kernels.NewRandomWalk(opts...))
	case LovaszTheta, SVMTheta:
		if solver, ok := e.solvers[v.String()]; ok {
			opts = append(opts, kernels.WithSolver(solver))
		}
		return raw(kernels.NewSolverKernel(registry[v].kernel, opts...))
	}
	return nil, errors.NewConfigurationError(componentName, "name", "unknown kernel", v.String())
}

// stage returns the factory of the relabeling stage of v.
func (e *env) stage(v Variant, s StageSpec) (model.StageFactory, error) {
	allowed := make(map[string]bool)
	for _, name := range registry[v].stageOptions {
		allowed[name] = true
	}
	for _, name := range s.explicit() {
		if !allowed[name] {
			return nil, errors.NewConfigurationError(registry[v].kernel, name, "option is not supported by this relabeling stage", nil)
		}
	}

	switch v {
	case WeisfeilerLehman:
		nIter := valueOr(s.NIter, kernels.DefaultWLIterations)
		return func() (model.Stage, error) {
			return rawStage(kernels.NewWeisfeilerLehmanStage(nIter, e.logger))
		}, nil
	case NeighborhoodHash:
		nIter := valueOr(s.NIter, kernels.DefaultNHIterations)
		bits := valueOr(s.Bits, kernels.DefaultNHBits)
		seed := valueOr(s.Seed, 0)
		return func() (model.Stage, error) {
			return rawStage(kernels.NewNeighborhoodHashStage(nIter, bits, seed, e.logger))
		}, nil
	}
	return nil, errors.NewConfigurationError(componentName, "name", "kernel cannot feed a later stage", v.String())
}

// raw drops the concrete type so that a failed constructor yields a nil
// interface.
func raw[K model.RawKernel](k K, err error) (model.RawKernel, error) {
	if err != nil {
		return nil, err
	}
	return k, nil
}

func rawStage[S model.Stage](s S, err error) (model.Stage, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

func valueOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
