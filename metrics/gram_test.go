package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsdalton/GraKeL/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func TestSymmetryError(t *testing.T) {
	tests := []struct {
		name string
		k    *mat.Dense
		want float64
	}{
		{"symmetric", mat.NewDense(2, 2, []float64{1, 2, 2, 1}), 0},
		{"small absolute", mat.NewDense(2, 2, []float64{1, 0.5, 0.25, 1}), 0.25},
		{"relative to magnitude", mat.NewDense(2, 2, []float64{1, 100, 98, 1}), 0.02},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SymmetryError(tt.k)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}

	ok, err := IsSymmetric(mat.NewDense(2, 2, []float64{1, 2, 2, 1}), 1e-7)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMinEigenvalue(t *testing.T) {
	// Eigenvalues 1 and 3.
	psd := mat.NewDense(2, 2, []float64{2, 1, 1, 2})
	lowest, err := MinEigenvalue(psd)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, lowest, 1e-12)

	ok, err := IsPSD(psd, DefaultEigenTolerance)
	require.NoError(t, err)
	assert.True(t, ok)

	// Eigenvalues -1 and 3.
	indefinite := mat.NewDense(2, 2, []float64{1, 2, 2, 1})
	ok, err = IsPSD(indefinite, DefaultEigenTolerance)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAlignment(t *testing.T) {
	k := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	var doubled mat.Dense
	doubled.Scale(2, k)

	a, err := Alignment(k, &doubled)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, a, 1e-12)

	zero, err := Alignment(k, mat.NewDense(2, 2, nil))
	require.NoError(t, err)
	assert.Equal(t, 0.0, zero)

	_, err = Alignment(k, mat.NewDense(3, 3, nil))
	var inputErr *errors.InvalidInputError
	assert.True(t, errors.As(err, &inputErr))
}

func TestNonSquare(t *testing.T) {
	_, err := MinEigenvalue(mat.NewDense(2, 3, nil))
	var inputErr *errors.InvalidInputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, "metrics.MinEigenvalue", inputErr.Op)

	_, err = SymmetryError(mat.NewDense(3, 2, nil))
	assert.Error(t, err)
}
