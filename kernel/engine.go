package kernel

import (
	"context"
	"sort"
	"time"

	"github.com/tsdalton/GraKeL/core/parallel"
	"github.com/tsdalton/GraKeL/pkg/diagnostics"
	"github.com/tsdalton/GraKeL/pkg/errors"
	"github.com/tsdalton/GraKeL/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// parallelThreshold is the number of pair evaluations below which the engine
// stays on the calling goroutine.
const parallelThreshold = 16

// PairFunc is a base similarity function. It must be pure and safe to call
// concurrently; a returned error or panic aborts the whole computation.
type PairFunc[T any] func(a, b T) (float64, error)

// Engine fills similarity matrices by evaluating a PairFunc over index pairs
// split across a fixed-size worker pool.
type Engine struct {
	Kernel   string
	Workers  int
	Logger   log.Logger
	Observer diagnostics.Observer
}

// NewEngine returns the engine configured by cfg for the named kernel.
func NewEngine(kernel string, cfg Config) Engine {
	return Engine{
		Kernel:   kernel,
		Workers:  parallel.Workers(cfg.NJobs),
		Logger:   cfg.Logger,
		Observer: cfg.Observer,
	}
}

// ComputeMatrix returns the len(left) × len(right) matrix with entry (i, j)
// equal to fn(left[i], right[j]).
//
// When symmetric is true, left and right must be the same collection: only
// the upper triangle including the diagonal is evaluated and the lower
// triangle is mirrored. Pairs are flattened in row-major order and split into
// contiguous ranges, one per worker; each entry is written by exactly one
// worker. The first failing pair aborts the computation with a
// KernelComputationError and no matrix is returned.
func ComputeMatrix[T any](e Engine, op string, left, right []T, symmetric bool, fn PairFunc[T]) (*mat.Dense, error) {
	n, m := len(left), len(right)
	if n == 0 || m == 0 {
		return nil, errors.Mark(errors.NewInvalidInputError(e.Kernel, -1, "empty graph collection"), errors.ErrEmptyData)
	}
	if symmetric && n != m {
		return nil, errors.Newf("grakel: %s: symmetric computation over collections of different size (%d, %d)", e.Kernel, n, m)
	}

	start := time.Now()
	total := n * m
	if symmetric {
		total = n * (n + 1) / 2
	}
	locate := func(k int) (int, int) { return k / m, k % m }
	if symmetric {
		locate = func(k int) (int, int) { return upperTriangle(n, k) }
	}

	k := mat.NewDense(n, m, nil)
	err := parallel.ParallelizeWithThreshold(context.Background(), total, parallelThreshold, e.Workers,
		func(ctx context.Context, from, to int) error {
			i, j := locate(from)
			for p := from; p < to; p++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				v, err := evaluate(e, fn, left[i], right[j], i, j)
				if err != nil {
					return err
				}
				k.Set(i, j, v)
				if symmetric && i != j {
					k.Set(j, i, v)
				}
				j++
				if j == m {
					i++
					j = 0
					if symmetric {
						j = i
					}
				}
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	e.Observer.MatrixComputed(e.Kernel, op, n, m, total, elapsed)
	e.Logger.Debug("Similarity matrix computed",
		log.OperationKey, op,
		log.RowsKey, n,
		log.ColsKey, m,
		log.PairsKey, total,
		log.SymmetricKey, symmetric,
		log.WorkersKey, e.Workers,
		log.DurationMsKey, elapsed.Milliseconds())
	return k, nil
}

// ComputeDiagonal returns fn(items[i], items[i]) for every item.
func ComputeDiagonal[T any](e Engine, op string, items []T, fn PairFunc[T]) ([]float64, error) {
	start := time.Now()
	diag := make([]float64, len(items))
	err := parallel.ParallelizeWithThreshold(context.Background(), len(items), parallelThreshold, e.Workers,
		func(ctx context.Context, from, to int) error {
			for i := from; i < to; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				v, err := evaluate(e, fn, items[i], items[i], i, i)
				if err != nil {
					return err
				}
				diag[i] = v
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	e.Observer.MatrixComputed(e.Kernel, op, len(items), 1, len(items), time.Since(start))
	return diag, nil
}

// evaluate runs one pair, converting errors, panics and non-finite values
// into a KernelComputationError for (row, col).
func evaluate[T any](e Engine, fn PairFunc[T], a, b T, row, col int) (float64, error) {
	var v float64
	err := errors.SafeExecute(e.Kernel, func() error {
		var err error
		v, err = fn(a, b)
		if err != nil {
			return err
		}
		return errors.CheckScalar(e.Kernel, v)
	})
	if err != nil {
		e.Observer.PairFailed(e.Kernel, row, col, err)
		e.Logger.Error("Pair evaluation failed",
			log.RowKey, row,
			log.ColKey, col,
			log.ErrorCodeKey, log.ErrorKernelComputation,
			log.ErrorKey, err)
		return 0, errors.NewKernelComputationError(e.Kernel, row, col, err)
	}
	return v, nil
}

// upperTriangle maps the k-th pair of the row-major upper triangle of an
// n × n matrix to its (row, col) position.
func upperTriangle(n, k int) (int, int) {
	rowStart := func(i int) int { return i*n - i*(i-1)/2 }
	i := sort.Search(n, func(i int) bool { return rowStart(i+1) > k })
	return i, i + k - rowStart(i)
}
