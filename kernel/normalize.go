package kernel

import (
	"math"

	"github.com/tsdalton/GraKeL/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// NormalizeEpsilon is the smallest self-similarity treated as non-degenerate.
// Rows and columns whose diagonal factor does not exceed it are set to 0.
const NormalizeEpsilon = errors.DivisionEpsilon

// Normalize returns K'[i,j] = K[i,j] / sqrt(queryDiag[i] * fitDiag[j]).
// Entries for which either diagonal value is <= NormalizeEpsilon are 0, so
// empty graphs contribute no similarity instead of NaN. k is not modified.
// Non-finite diagonal values yield a NumericalInstabilityError.
func Normalize(k mat.Matrix, queryDiag, fitDiag []float64) (*mat.Dense, error) {
	r, c := k.Dims()
	if len(queryDiag) != r || len(fitDiag) != c {
		return nil, errors.Newf("grakel: normalize: matrix is %dx%d but diagonals have length %d and %d",
			r, c, len(queryDiag), len(fitDiag))
	}
	if err := errors.CheckValues("normalize", queryDiag); err != nil {
		return nil, err
	}
	if err := errors.CheckValues("normalize", fitDiag); err != nil {
		return nil, err
	}

	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		dq := queryDiag[i]
		if dq <= NormalizeEpsilon {
			continue
		}
		for j := 0; j < c; j++ {
			df := fitDiag[j]
			if df <= NormalizeEpsilon {
				continue
			}
			out.Set(i, j, errors.SafeDivide(k.At(i, j), math.Sqrt(dq*df)))
		}
	}
	return out, nil
}

// diagonalOf returns the main diagonal of a square matrix.
func diagonalOf(k *mat.Dense) []float64 {
	n, _ := k.Dims()
	d := make([]float64, n)
	for i := range d {
		d[i] = k.At(i, i)
	}
	return d
}
