// Package metrics provides diagnostics for Gram matrices produced by graph
// kernels.
package metrics

import (
	"math"

	"github.com/tsdalton/GraKeL/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DefaultEigenTolerance is the most negative eigenvalue still accepted as
// positive semi-definite.
const DefaultEigenTolerance = 1e-5

// SymmetryError returns max |K[i,j] - K[j,i]| / max(1, |K[i,j]|, |K[j,i]|).
func SymmetryError(k mat.Matrix) (float64, error) {
	n, err := square("SymmetryError", k)
	if err != nil {
		return 0, err
	}

	var worst float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := k.At(i, j), k.At(j, i)
			scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
			if d := math.Abs(a-b) / scale; d > worst {
				worst = d
			}
		}
	}
	return worst, nil
}

// IsSymmetric reports whether SymmetryError(k) <= tol.
func IsSymmetric(k mat.Matrix, tol float64) (bool, error) {
	e, err := SymmetryError(k)
	if err != nil {
		return false, err
	}
	return e <= tol, nil
}

// MinEigenvalue returns the smallest eigenvalue of the symmetric part
// (K + Kᵀ) / 2 of a square matrix.
func MinEigenvalue(k mat.Matrix) (float64, error) {
	n, err := square("MinEigenvalue", k)
	if err != nil {
		return 0, err
	}

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, (k.At(i, j)+k.At(j, i))/2)
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, false); !ok {
		return 0, errors.NewNumericalInstabilityError("MinEigenvalue", nil)
	}
	values := eig.Values(nil)
	lowest := math.Inf(1)
	for _, v := range values {
		lowest = math.Min(lowest, v)
	}
	return lowest, nil
}

// IsPSD reports whether every eigenvalue of k is >= -tol.
func IsPSD(k mat.Matrix, tol float64) (bool, error) {
	lowest, err := MinEigenvalue(k)
	if err != nil {
		return false, err
	}
	return lowest >= -tol, nil
}

// Alignment returns the kernel alignment <K1, K2>_F / (|K1|_F |K2|_F) of two
// matrices of equal shape, or 0 when either matrix is all zeros.
func Alignment(k1, k2 mat.Matrix) (float64, error) {
	r1, c1 := k1.Dims()
	r2, c2 := k2.Dims()
	if r1 == 0 || c1 == 0 {
		return 0, errors.Mark(errors.NewInvalidInputError("metrics.Alignment", -1, "empty matrix"), errors.ErrEmptyData)
	}
	if r1 != r2 || c1 != c2 {
		return 0, errors.NewInvalidInputErrorf("metrics.Alignment", -1, "shape mismatch: %dx%d vs %dx%d", r1, c1, r2, c2)
	}

	var inner, n1, n2 float64
	for i := 0; i < r1; i++ {
		for j := 0; j < c1; j++ {
			a, b := k1.At(i, j), k2.At(i, j)
			inner += a * b
			n1 += a * a
			n2 += b * b
		}
	}
	if n1 == 0 || n2 == 0 {
		return 0, nil
	}
	return inner / math.Sqrt(n1*n2), nil
}

func square(op string, k mat.Matrix) (int, error) {
	r, c := k.Dims()
	if r == 0 {
		return 0, errors.Mark(errors.NewInvalidInputError("metrics."+op, -1, "empty matrix"), errors.ErrEmptyData)
	}
	if r != c {
		return 0, errors.NewInvalidInputErrorf("metrics."+op, -1, "matrix is not square (%dx%d)", r, c)
	}
	return r, nil
}
