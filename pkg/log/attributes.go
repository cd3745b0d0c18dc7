// Package log defines standard attribute keys for graph kernel operations.
//
// The keys follow a hierarchical naming convention (e.g. "kernel.name",
// "matrix.rows") so that logs from estimators, the matrix engine and
// pipelines can be filtered consistently.

package log

// Kernel and Operation Context
const (
	// KernelNameKey identifies the kernel type.
	// Examples: "VertexHistogram", "WeisfeilerLehman", "GraphKernel"
	KernelNameKey = "kernel.name"

	// EstimatorIDKey identifies one estimator instance (a UUID).
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the lifecycle operation being performed.
	// Standard values: "fit", "transform", "fit_transform", "diagonal"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is logging.
	// Examples: "engine", "pipeline", "normalizer"
	ComponentKey = "ml.component"

	// StageKey is the position of a stage inside a pipeline.
	StageKey = "pipeline.stage"

	// ViewsKey is the number of graph views produced by a relabeling stage.
	ViewsKey = "pipeline.views"
)

// Data Shape
const (
	// GraphsKey is the number of graphs in a batch.
	GraphsKey = "data.graphs"

	// GraphIndexKey is the position of a single graph in a batch.
	GraphIndexKey = "data.graph_index"

	// VerticesKey is the number of vertices of a graph.
	VerticesKey = "data.vertices"

	// FeaturesKey is the size of a learned feature vocabulary.
	FeaturesKey = "data.features"

	// RowsKey and ColsKey describe the shape of a similarity matrix.
	RowsKey = "matrix.rows"
	ColsKey = "matrix.cols"

	// PairsKey is the number of pair evaluations performed.
	PairsKey = "matrix.pairs"

	// RowKey and ColKey locate a single pair inside a similarity matrix.
	RowKey = "pair.row"
	ColKey = "pair.col"

	// SymmetricKey reports whether the symmetric fast path was used.
	SymmetricKey = "matrix.symmetric"
)

// Performance
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// WorkersKey records the worker pool size used by the matrix engine.
	WorkersKey = "parallel.workers"

	// IterationKey records the current iteration of a relabeling stage.
	IterationKey = "training.iteration"
)

// Error Context
const (
	// ErrorKey carries an error value; the zerolog backend expands its stack.
	ErrorKey = "error"

	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationDiagonal     = "diagonal"

	ErrorNotFitted          = "NOT_FITTED"
	ErrorInvalidInput       = "INVALID_INPUT"
	ErrorKernelComputation  = "KERNEL_COMPUTATION"
	ErrorConfigurationError = "CONFIGURATION"
)
