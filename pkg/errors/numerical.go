package errors

import (
	"math"
)

// CheckScalar returns a NumericalInstabilityError if value is NaN or Inf.
func CheckScalar(operation string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NewNumericalInstabilityError(operation, []float64{value})
	}
	return nil
}

// CheckValues returns a NumericalInstabilityError listing up to ten NaN or
// Inf entries of values.
func CheckValues(operation string, values []float64) error {
	var bad []float64
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			continue
		}
		if bad = append(bad, v); len(bad) == 10 {
			break
		}
	}
	if bad == nil {
		return nil
	}
	return NewNumericalInstabilityError(operation, bad)
}

// DivisionEpsilon is the magnitude below which SafeDivide treats a
// denominator as zero.
const DivisionEpsilon = 1e-10

// SafeDivide returns numerator/denominator, or 0 when |denominator| is below
// DivisionEpsilon.
func SafeDivide(numerator, denominator float64) float64 {
	if math.Abs(denominator) < DivisionEpsilon {
		return 0
	}
	return numerator / denominator
}
