package kernel

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tsdalton/GraKeL/core/graph"
	"github.com/tsdalton/GraKeL/core/model"
	"github.com/tsdalton/GraKeL/pkg/errors"
	"github.com/tsdalton/GraKeL/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// Composite wraps a base kernel with a relabeling stage. The stage turns the
// input into views; a fresh base kernel is fitted on each view and the raw
// per-view matrices and diagonals are summed. Normalization, if configured,
// is applied once to the sum.
//
// Composites nest: the base factory may itself build a Composite, which is how
// multi-stage pipelines are assembled.
type Composite struct {
	name     string
	id       uuid.UUID
	cfg      Config
	newStage model.StageFactory
	newBase  model.RawKernelFactory
	state    *model.StateManager
	logger   log.Logger

	mu    sync.RWMutex
	stage model.Stage
	bases []model.RawKernel
	diag  []float64
}

var _ model.RawKernel = (*Composite)(nil)

// NewComposite builds the stage and probes the base factory once so that
// configuration errors of either surface here rather than at Fit.
func NewComposite(name string, newStage model.StageFactory, newBase model.RawKernelFactory, opts ...Option) (*Composite, error) {
	if newStage == nil || newBase == nil {
		return nil, errors.NewConfigurationError(name, "", "relabeling stage and base kernel are both required", nil)
	}
	stage, err := newStage()
	if err != nil {
		return nil, err
	}
	if _, err := newBase(); err != nil {
		return nil, err
	}

	cfg := NewConfig(opts...)
	id := uuid.New()
	return &Composite{
		name:     name,
		id:       id,
		cfg:      cfg,
		newStage: newStage,
		newBase:  newBase,
		stage:    stage,
		state:    model.NewStateManager(),
		logger:   cfg.Logger.With(log.KernelNameKey, name, log.EstimatorIDKey, id.String()),
	}, nil
}

// Name returns the kernel name used in errors and logs.
func (c *Composite) Name() string { return c.name }

// Stage returns the relabeling stage of the current fit.
func (c *Composite) Stage() model.Stage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stage
}

// State returns the lifecycle state.
func (c *Composite) State() model.EstimatorState { return c.state.State() }

// Fit implements model.Kernel.
func (c *Composite) Fit(graphs []graph.Source) error {
	_, err := c.fit(log.OperationFit, graphs, false)
	return err
}

// FitTransform implements model.Kernel.
func (c *Composite) FitTransform(graphs []graph.Source) (*mat.Dense, error) {
	k, err := c.fit(log.OperationFitTransform, graphs, true)
	if err != nil || !c.cfg.Normalize {
		return k, err
	}
	c.mu.RLock()
	d := c.diag
	c.mu.RUnlock()
	return Normalize(k, d, d)
}

// FitTransformRaw implements model.RawKernel.
func (c *Composite) FitTransformRaw(graphs []graph.Source) (*mat.Dense, error) {
	return c.fit(log.OperationFitTransform, graphs, true)
}

// Transform implements model.Kernel.
func (c *Composite) Transform(graphs []graph.Source) (*mat.Dense, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	k, qdiag, err := c.transform(graphs)
	if err != nil || !c.cfg.Normalize {
		return k, err
	}
	return Normalize(k, qdiag, c.diag)
}

// TransformRaw implements model.RawKernel.
func (c *Composite) TransformRaw(graphs []graph.Source) (*mat.Dense, []float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transform(graphs)
}

// Diagonal implements model.Kernel.
func (c *Composite) Diagonal() ([]float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.state.RequireFitted(c.name, "Diagonal"); err != nil {
		return nil, err
	}
	return append([]float64(nil), c.diag...), nil
}

func (c *Composite) fit(op string, graphs []graph.Source, withMatrix bool) (*mat.Dense, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	logger := c.logger.With(log.OperationKey, op)

	// Every fit relabels with a fresh stage so that a failure leaves the
	// previous stage and bases in place.
	stage, err := c.newStage()
	if err != nil {
		return nil, err
	}
	views, err := stage.FitTransform(graphs)
	if err != nil {
		logger.Error("Relabeling failed", log.ErrorKey, err)
		return nil, err
	}
	logger.Debug("Relabeling stage fitted", log.GraphsKey, len(graphs), log.ViewsKey, len(views))

	bases := make([]model.RawKernel, len(views))
	var (
		sum  *mat.Dense
		diag []float64
	)
	for v, view := range views {
		base, err := c.newBase()
		if err != nil {
			return nil, err
		}
		var d []float64
		if withMatrix {
			k, err := base.FitTransformRaw(graph.Sources(view))
			if err != nil {
				return nil, err
			}
			sum = accumulate(sum, k)
			d = diagonalOf(k)
		} else {
			if err := base.Fit(graph.Sources(view)); err != nil {
				return nil, err
			}
			if d, err = base.Diagonal(); err != nil {
				return nil, err
			}
		}
		diag = addInto(diag, d)
		bases[v] = base
		logger.Debug("View fitted", log.IterationKey, v)
	}

	c.stage = stage
	c.bases = bases
	c.diag = diag
	c.state.SetFitted()

	logger.Info("Kernel fitted",
		log.GraphsKey, len(graphs),
		log.ViewsKey, len(views),
		log.DurationMsKey, time.Since(start).Milliseconds())
	return sum, nil
}

// transform must be called with c.mu held for reading.
func (c *Composite) transform(graphs []graph.Source) (*mat.Dense, []float64, error) {
	if err := c.state.RequireFitted(c.name, "Transform"); err != nil {
		c.logger.Error("Kernel not fitted", log.ErrorCodeKey, log.ErrorNotFitted, log.ErrorKey, err)
		return nil, nil, err
	}
	views, err := c.stage.Transform(graphs)
	if err != nil {
		return nil, nil, err
	}
	if len(views) != len(c.bases) {
		return nil, nil, errors.Newf("grakel: %s: relabeling produced %d views, %d were fitted", c.name, len(views), len(c.bases))
	}

	var (
		sum   *mat.Dense
		qdiag []float64
	)
	for v, view := range views {
		k, d, err := c.bases[v].TransformRaw(graph.Sources(view))
		if err != nil {
			return nil, nil, err
		}
		sum = accumulate(sum, k)
		qdiag = addInto(qdiag, d)
	}
	return sum, qdiag, nil
}

func accumulate(sum, k *mat.Dense) *mat.Dense {
	if sum == nil {
		return mat.DenseCopyOf(k)
	}
	sum.Add(sum, k)
	return sum
}

func addInto(dst, src []float64) []float64 {
	if dst == nil {
		return append([]float64(nil), src...)
	}
	for i, v := range src {
		dst[i] += v
	}
	return dst
}
