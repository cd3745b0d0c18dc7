// Package pipeline assembles kernels into GraphKernel pipelines from a
// declarative Spec. Stage names resolve through a static registry, and every
// configuration problem is reported when the pipeline is built.
package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tsdalton/GraKeL/core/graph"
	"github.com/tsdalton/GraKeL/core/model"
	"github.com/tsdalton/GraKeL/kernel"
	"github.com/tsdalton/GraKeL/kernels"
	"github.com/tsdalton/GraKeL/pkg/diagnostics"
	"github.com/tsdalton/GraKeL/pkg/log"
	"gonum.org/v1/gonum/mat"
)

const componentName = "GraphKernel"

type options struct {
	logger          log.Logger
	observer        diagnostics.Observer
	solvers         map[string]kernels.Solver
	attributeKernel kernels.AttributeKernel
}

// Option configures a GraphKernel.
type Option func(*options)

// WithLogger sets the logger handed to every stage.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver sets the diagnostics observer handed to every stage.
func WithObserver(observer diagnostics.Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithSolver provides the external solver used by the named solver-backed
// stage ("lovasz_theta" or "svm_theta").
func WithSolver(name string, solver kernels.Solver) Option {
	return func(o *options) { o.solvers[name] = solver }
}

// WithAttributeKernel sets the attribute comparison of shortest_path stages
// configured with as_attributes.
func WithAttributeKernel(k kernels.AttributeKernel) Option {
	return func(o *options) { o.attributeKernel = k }
}

// GraphKernel is a configured pipeline. Relabeling stages are chained through
// nested kernel.Composite values around the terminal kernel; per-view
// contributions are summed and the result is normalized once, here.
//
// GraphKernel implements model.RawKernel, so a pipeline can itself serve as
// the base kernel of another composite.
type GraphKernel struct {
	spec   Spec
	id     uuid.UUID
	root   model.RawKernel
	state  *model.StateManager
	logger log.Logger

	mu   sync.RWMutex
	diag []float64
}

var _ model.RawKernel = (*GraphKernel)(nil)

// NewGraphKernel validates spec and builds every stage. Unknown kernel names,
// terminal kernels in non-final positions, unsupported options and missing
// solvers are all reported here as ConfigurationError.
func NewGraphKernel(spec Spec, opts ...Option) (*GraphKernel, error) {
	o := options{logger: log.Nop(), observer: diagnostics.Nop(), solvers: make(map[string]kernels.Solver)}
	for _, opt := range opts {
		opt(&o)
	}
	if err := spec.Validate(); err != nil {
		o.logger.Error("Invalid pipeline specification", log.ErrorCodeKey, log.ErrorConfigurationError, log.ErrorKey, err)
		return nil, err
	}

	id := uuid.New()
	logger := o.logger.With(log.KernelNameKey, componentName, log.EstimatorIDKey, id.String())
	e := &env{
		kernelOpts: []kernel.Option{
			kernel.WithNJobs(spec.NJobs),
			kernel.WithLogger(o.logger),
			kernel.WithObserver(o.observer),
		},
		logger:          o.logger,
		solvers:         o.solvers,
		attributeKernel: o.attributeKernel,
	}

	root, err := build(spec, e)
	if err != nil {
		logger.Error("Pipeline construction failed", log.ErrorCodeKey, log.ErrorConfigurationError, log.ErrorKey, err)
		return nil, err
	}
	logger.Debug("Pipeline constructed", log.StageKey, len(spec.Kernels))

	return &GraphKernel{
		spec:   spec,
		id:     id,
		root:   root,
		state:  model.NewStateManager(),
		logger: logger,
	}, nil
}

// build wraps the terminal kernel in one Composite per preceding stage, from
// the last relabeling stage outwards.
func build(spec Spec, e *env) (model.RawKernel, error) {
	last := len(spec.Kernels) - 1
	tv, _ := ParseVariant(spec.Kernels[last].Name)
	terminal := spec.Kernels[last]
	base := model.RawKernelFactory(func() (model.RawKernel, error) { return e.terminal(tv, terminal) })
	if _, err := base(); err != nil {
		return nil, err
	}

	for i := last - 1; i >= 0; i-- {
		v, _ := ParseVariant(spec.Kernels[i].Name)
		stage, err := e.stage(v, spec.Kernels[i])
		if err != nil {
			return nil, err
		}
		inner, name := base, registry[v].kernel
		base = func() (model.RawKernel, error) {
			return raw(kernel.NewComposite(name, stage, inner, e.kernelOpts...))
		}
	}
	return base()
}

// Spec returns the specification the pipeline was built from.
func (k *GraphKernel) Spec() Spec { return k.spec }

// ID returns the instance identifier attached to every log record.
func (k *GraphKernel) ID() uuid.UUID { return k.id }

// State returns the lifecycle state.
func (k *GraphKernel) State() model.EstimatorState { return k.state.State() }

// Fit implements model.Kernel.
func (k *GraphKernel) Fit(graphs []graph.Source) error {
	start := time.Now()
	if err := k.root.Fit(graphs); err != nil {
		k.logger.Error("Pipeline fit failed", log.OperationKey, log.OperationFit, log.ErrorKey, err)
		return err
	}
	return k.commit(len(graphs), start)
}

// FitTransform implements model.Kernel.
func (k *GraphKernel) FitTransform(graphs []graph.Source) (*mat.Dense, error) {
	gram, err := k.FitTransformRaw(graphs)
	if err != nil || !k.spec.Normalize {
		return gram, err
	}
	k.mu.RLock()
	d := k.diag
	k.mu.RUnlock()
	return kernel.Normalize(gram, d, d)
}

// FitTransformRaw implements model.RawKernel.
func (k *GraphKernel) FitTransformRaw(graphs []graph.Source) (*mat.Dense, error) {
	start := time.Now()
	gram, err := k.root.FitTransformRaw(graphs)
	if err != nil {
		k.logger.Error("Pipeline fit failed", log.OperationKey, log.OperationFitTransform, log.ErrorKey, err)
		return nil, err
	}
	if err := k.commit(len(graphs), start); err != nil {
		return nil, err
	}
	return gram, nil
}

// Transform implements model.Kernel.
func (k *GraphKernel) Transform(graphs []graph.Source) (*mat.Dense, error) {
	gram, qdiag, err := k.TransformRaw(graphs)
	if err != nil || !k.spec.Normalize {
		return gram, err
	}
	k.mu.RLock()
	d := k.diag
	k.mu.RUnlock()
	return kernel.Normalize(gram, qdiag, d)
}

// TransformRaw implements model.RawKernel.
func (k *GraphKernel) TransformRaw(graphs []graph.Source) (*mat.Dense, []float64, error) {
	if err := k.state.RequireFitted(componentName, "Transform"); err != nil {
		k.logger.Error("Kernel not fitted", log.ErrorCodeKey, log.ErrorNotFitted, log.ErrorKey, err)
		return nil, nil, err
	}
	gram, qdiag, err := k.root.TransformRaw(graphs)
	if err != nil {
		k.logger.Error("Pipeline transform failed", log.OperationKey, log.OperationTransform, log.ErrorKey, err)
		return nil, nil, err
	}
	return gram, qdiag, nil
}

// Diagonal implements model.Kernel. The values are raw self-similarities.
func (k *GraphKernel) Diagonal() ([]float64, error) {
	if err := k.state.RequireFitted(componentName, "Diagonal"); err != nil {
		return nil, err
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	return append([]float64(nil), k.diag...), nil
}

// commit records the diagonal of the fit the root kernel just completed.
func (k *GraphKernel) commit(nGraphs int, start time.Time) error {
	d, err := k.root.Diagonal()
	if err != nil {
		return err
	}
	k.mu.Lock()
	k.diag = d
	k.state.SetFitted()
	k.mu.Unlock()

	k.logger.Info("Kernel fitted",
		log.GraphsKey, nGraphs,
		log.StageKey, len(k.spec.Kernels),
		log.DurationMsKey, time.Since(start).Milliseconds())
	return nil
}
