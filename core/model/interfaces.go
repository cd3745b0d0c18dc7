package model

import (
	"github.com/tsdalton/GraKeL/core/graph"
	"gonum.org/v1/gonum/mat"
)

// Kernel is the lifecycle every graph kernel implements.
//
// Fit replaces any previous fitted state. Transform and Diagonal require a
// prior Fit and never write estimator state, so they may be called
// concurrently on a fitted kernel. Fit must not overlap with any other call.
type Kernel interface {
	// Fit converts and stores the fitted collection and its self-similarities.
	Fit(graphs []graph.Source) error

	// Transform returns the query × fitted similarity matrix.
	Transform(graphs []graph.Source) (*mat.Dense, error)

	// FitTransform fits on graphs and returns their self-similarity matrix.
	FitTransform(graphs []graph.Source) (*mat.Dense, error)

	// Diagonal returns the raw self-similarities of the fitted collection.
	Diagonal() ([]float64, error)
}

// RawKernel is a Kernel whose unnormalized matrices can be consumed by an
// enclosing composition. Composites sum raw matrices and raw diagonals of
// their base kernels and normalize once at the outermost level.
type RawKernel interface {
	Kernel

	// FitTransformRaw is FitTransform without normalization.
	FitTransformRaw(graphs []graph.Source) (*mat.Dense, error)

	// TransformRaw is Transform without normalization. It also returns the
	// raw self-similarities of the query graphs.
	TransformRaw(graphs []graph.Source) (*mat.Dense, []float64, error)
}

// Stage is a relabeling kernel: instead of a matrix it produces one or more
// views of the input, each view holding one derived graph per input graph.
// views[v][i] is view v of graph i.
type Stage interface {
	// FitTransform learns the relabeling state from graphs and returns
	// their views.
	FitTransform(graphs []graph.Source) ([][]*graph.Graph, error)

	// Transform replays the fitted relabeling state on graphs. Labels never
	// seen during fit map to values that cannot collide with fitted ones.
	Transform(graphs []graph.Source) ([][]*graph.Graph, error)
}

// RawKernelFactory builds a fresh, unfitted base kernel. Composites call it
// once per view.
type RawKernelFactory func() (RawKernel, error)

// StageFactory builds a fresh, unfitted relabeling stage.
type StageFactory func() (Stage, error)
