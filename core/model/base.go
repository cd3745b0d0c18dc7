package model

// EstimatorState is the lifecycle state of a kernel estimator.
type EstimatorState int

const (
	// Unfitted is the initial state; only Fit and FitTransform are allowed.
	Unfitted EstimatorState = iota
	// Fitted is entered by a successful Fit and re-entered by every later Fit.
	Fitted
)

func (s EstimatorState) String() string {
	switch s {
	case Unfitted:
		return "UNFITTED"
	case Fitted:
		return "FITTED"
	default:
		return "UNKNOWN"
	}
}
