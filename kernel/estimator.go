// Package kernel implements the lifecycle shared by all graph kernels: the
// generic feature-map estimator, the pairwise matrix engine, normalization,
// and the composition of a relabeling stage with a base kernel.
package kernel

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tsdalton/GraKeL/core/graph"
	"github.com/tsdalton/GraKeL/core/model"
	"github.com/tsdalton/GraKeL/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// FeatureMap derives one feature value per graph and learns whatever
// vocabulary is needed to map later graphs consistently.
type FeatureMap[T any] interface {
	// Requirements names the Graph fields the features are computed from.
	Requirements() graph.Requirements

	// Fit returns the features of graphs and the fitted map used for later
	// transforms. It must not retain graphs beyond what the fitted map needs.
	Fit(graphs []*graph.Graph) ([]T, FittedFeatureMap[T], error)
}

// FittedFeatureMap is the immutable state learned by FeatureMap.Fit.
// Transform must not modify it so that concurrent transforms are safe.
type FittedFeatureMap[T any] interface {
	Transform(graphs []*graph.Graph) ([]T, error)

	// Size is the number of learned features, or 0 when not applicable.
	Size() int
}

// fitted is the state replaced by every successful Fit.
type fitted[T any] struct {
	features FittedFeatureMap[T]
	x        []T
	diag     []float64
}

// Estimator is a kernel defined by a feature map and a pairwise similarity
// over features. It implements model.RawKernel.
type Estimator[T any] struct {
	name     string
	id       uuid.UUID
	cfg      Config
	features FeatureMap[T]
	pair     PairFunc[T]
	state    *model.StateManager
	logger   log.Logger

	mu     sync.RWMutex
	fitted *fitted[T]
}

var _ model.RawKernel = (*Estimator[int])(nil)

// NewEstimator creates an unfitted estimator named name.
func NewEstimator[T any](name string, features FeatureMap[T], pair PairFunc[T], opts ...Option) *Estimator[T] {
	cfg := NewConfig(opts...)
	id := uuid.New()
	return &Estimator[T]{
		name:     name,
		id:       id,
		cfg:      cfg,
		features: features,
		pair:     pair,
		state:    model.NewStateManager(),
		logger:   cfg.Logger.With(log.KernelNameKey, name, log.EstimatorIDKey, id.String()),
	}
}

// Name returns the kernel name used in errors and logs.
func (e *Estimator[T]) Name() string { return e.name }

// ID returns the instance identifier attached to every log record.
func (e *Estimator[T]) ID() uuid.UUID { return e.id }

// Config returns the estimator configuration.
func (e *Estimator[T]) Config() Config { return e.cfg }

// State returns the lifecycle state.
func (e *Estimator[T]) State() model.EstimatorState { return e.state.State() }

// Fit implements model.Kernel.
func (e *Estimator[T]) Fit(graphs []graph.Source) error {
	_, err := e.fit("Fit", log.OperationFit, graphs, false)
	return err
}

// FitTransform implements model.Kernel.
func (e *Estimator[T]) FitTransform(graphs []graph.Source) (*mat.Dense, error) {
	k, err := e.fit("FitTransform", log.OperationFitTransform, graphs, true)
	if err != nil || !e.cfg.Normalize {
		return k, err
	}
	d := diagonalOf(k)
	return Normalize(k, d, d)
}

// FitTransformRaw implements model.RawKernel.
func (e *Estimator[T]) FitTransformRaw(graphs []graph.Source) (*mat.Dense, error) {
	return e.fit("FitTransform", log.OperationFitTransform, graphs, true)
}

// Transform implements model.Kernel.
func (e *Estimator[T]) Transform(graphs []graph.Source) (*mat.Dense, error) {
	k, qdiag, fdiag, err := e.transform(graphs)
	if err != nil || !e.cfg.Normalize {
		return k, err
	}
	return Normalize(k, qdiag, fdiag)
}

// TransformRaw implements model.RawKernel.
func (e *Estimator[T]) TransformRaw(graphs []graph.Source) (*mat.Dense, []float64, error) {
	k, qdiag, _, err := e.transform(graphs)
	return k, qdiag, err
}

// Diagonal implements model.Kernel.
func (e *Estimator[T]) Diagonal() ([]float64, error) {
	s, err := e.snapshot("Diagonal")
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), s.diag...), nil
}

func (e *Estimator[T]) fit(method, op string, sources []graph.Source, withMatrix bool) (*mat.Dense, error) {
	start := time.Now()
	logger := e.logger.With(log.OperationKey, op)

	graphs, err := graph.Convert(e.name+"."+method, sources, e.features.Requirements())
	if err != nil {
		logger.Error("Input conversion failed", log.ErrorCodeKey, log.ErrorInvalidInput, log.ErrorKey, err)
		return nil, err
	}
	logger.Debug("Fitting kernel", log.GraphsKey, len(graphs))

	x, fm, err := e.features.Fit(graphs)
	if err != nil {
		logger.Error("Feature extraction failed", log.ErrorKey, err)
		return nil, err
	}

	engine := NewEngine(e.name, e.cfg)
	var (
		k    *mat.Dense
		diag []float64
	)
	if withMatrix {
		k, err = ComputeMatrix(engine, op, x, x, true, e.pair)
		if err == nil {
			diag = diagonalOf(k)
		}
	} else {
		diag, err = ComputeDiagonal(engine, op, x, e.pair)
	}
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.fitted = &fitted[T]{features: fm, x: x, diag: diag}
	e.state.SetFitted()
	e.mu.Unlock()

	logger.Info("Kernel fitted",
		log.GraphsKey, len(graphs),
		log.FeaturesKey, fm.Size(),
		log.DurationMsKey, time.Since(start).Milliseconds())
	return k, nil
}

func (e *Estimator[T]) transform(sources []graph.Source) (*mat.Dense, []float64, []float64, error) {
	s, err := e.snapshot("Transform")
	if err != nil {
		return nil, nil, nil, err
	}
	start := time.Now()
	logger := e.logger.With(log.OperationKey, log.OperationTransform)

	graphs, err := graph.Convert(e.name+".Transform", sources, e.features.Requirements())
	if err != nil {
		logger.Error("Input conversion failed", log.ErrorCodeKey, log.ErrorInvalidInput, log.ErrorKey, err)
		return nil, nil, nil, err
	}
	q, err := s.features.Transform(graphs)
	if err != nil {
		logger.Error("Feature extraction failed", log.ErrorKey, err)
		return nil, nil, nil, err
	}

	engine := NewEngine(e.name, e.cfg)
	k, err := ComputeMatrix(engine, log.OperationTransform, q, s.x, false, e.pair)
	if err != nil {
		return nil, nil, nil, err
	}
	qdiag, err := ComputeDiagonal(engine, log.OperationTransform, q, e.pair)
	if err != nil {
		return nil, nil, nil, err
	}

	logger.Debug("Kernel transformed",
		log.GraphsKey, len(graphs),
		log.DurationMsKey, time.Since(start).Milliseconds())
	return k, qdiag, s.diag, nil
}

// snapshot returns the current fitted state, or a NotFittedError.
func (e *Estimator[T]) snapshot(method string) (*fitted[T], error) {
	e.mu.RLock()
	s := e.fitted
	e.mu.RUnlock()
	if s == nil {
		err := e.state.RequireFitted(e.name, method)
		e.logger.Error("Kernel not fitted", log.ErrorCodeKey, log.ErrorNotFitted, log.ErrorKey, err)
		return nil, err
	}
	return s, nil
}
