package dense_test

import (
	"testing"

	"github.com/gomlx/gradgraph/types/dense"
	"github.com/gomlx/gradgraph/types/xerrors"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var backend = dense.NewBackend[float64](dense.Float64Ring{})

func TestConstruction(t *testing.T) {
	v := must.M1(dense.NewVector[float64](dense.Float64Ring{}, 3))
	require.Equal(t, []float64{0, 0, 0}, v.Values())

	m := must.M1(dense.NewMatrix[float64](dense.Float64Ring{}, 2, 3))
	require.Equal(t, 2, m.Rows())
	require.Equal(t, 3, m.Cols())
	require.Equal(t, make([]float64, 6), m.Values())

	_, err := dense.NewMatrix[float64](dense.Float64Ring{}, 0, 3)
	require.True(t, xerrors.IsInvalidArgument(err))

	_, err = dense.MatrixFrom([][]float64{{1, 2}, {3}})
	require.True(t, xerrors.IsInvalidArgument(err))

	values := []float64{1, 2, 3}
	v = must.M1(dense.VectorFrom(values))
	values[0] = 100
	require.Equal(t, 1.0, v.At(0), "VectorFrom must copy its input")

	require.Panics(t, func() { m.At(2, 0) })
}

func TestElementwise(t *testing.T) {
	x := must.M1(dense.MatrixFrom([][]float64{{1, 2}, {3, 4}}))
	y := must.M1(dense.MatrixFrom([][]float64{{10, 20}, {30, 40}}))

	sum := must.M1(backend.AddMatrices(x, y))
	assert.Equal(t, []float64{11, 22, 33, 44}, sum.Values())
	diff := must.M1(backend.SubMatrices(y, x))
	assert.Equal(t, []float64{9, 18, 27, 36}, diff.Values())
	prod := must.M1(backend.MulMatrices(x, y))
	assert.Equal(t, []float64{10, 40, 90, 160}, prod.Values())
	scaled := backend.ScaleMatrix(0.5, x)
	assert.Equal(t, []float64{0.5, 1, 1.5, 2}, scaled.Values())
	assert.Equal(t, 10.0, backend.Sum(x))

	_, err := backend.AddMatrices(x, must.M1(dense.MatrixFrom([][]float64{{1, 2, 3}, {4, 5, 6}})))
	require.True(t, xerrors.IsShapeMismatch(err))

	a := must.M1(dense.VectorFrom([]float64{1, 2, 3}))
	b := must.M1(dense.VectorFrom([]float64{4, 5, 6}))
	assert.Equal(t, []float64{4, 10, 18}, must.M1(backend.MulVectors(a, b)).Values())
	_, err = backend.AddVectors(a, must.M1(dense.VectorFrom([]float64{1})))
	require.True(t, xerrors.IsShapeMismatch(err))

	// Operands are never modified.
	assert.Equal(t, []float64{1, 2, 3, 4}, x.Values())
}

func TestMatMul(t *testing.T) {
	x := must.M1(dense.MatrixFrom([][]float64{{1, 2, 3}, {4, 5, 6}}))
	y := must.M1(dense.MatrixFrom([][]float64{{7, 8}, {9, 10}, {11, 12}}))
	got := must.M1(backend.MatMul(x, y))
	require.Equal(t, 2, got.Rows())
	require.Equal(t, 2, got.Cols())
	require.Equal(t, []float64{58, 64, 139, 154}, got.Values())

	_, err := backend.MatMul(x, x)
	require.True(t, xerrors.IsShapeMismatch(err))

	xt := x.Transpose()
	require.Equal(t, 3, xt.Rows())
	require.Equal(t, []float64{1, 4, 2, 5, 3, 6}, xt.Values())
}

func TestFlat(t *testing.T) {
	f1 := must.M1(dense.NewFlat([]int{4}, []float64{0, 1, 2, 3}))
	require.Equal(t, 2.0, must.M1(f1.At(2)))

	f2 := must.M1(dense.NewFlat([]int{2, 3}, []float64{0, 1, 2, 3, 4, 5}))
	require.Equal(t, 5.0, must.M1(f2.At(1, 2)))
	require.Equal(t, 5, must.M1(f2.Offset(1, 2)))

	values := make([]float64, 2*3*4)
	for ii := range values {
		values[ii] = float64(ii)
	}
	f3 := must.M1(dense.NewFlat([]int{2, 3, 4}, values))
	require.Equal(t, float64(1*12+2*4+3), must.M1(f3.At(1, 2, 3)))
	require.NoError(t, f3.Set(-1, 0, 0, 1))
	require.Equal(t, -1.0, must.M1(f3.At(0, 0, 1)))

	_, err := f2.At(1)
	require.True(t, xerrors.IsInvalidArgument(err))
	_, err = f2.At(2, 0)
	require.ErrorIs(t, err, xerrors.ErrOutOfRange)

	_, err = dense.NewFlat([]int{2, 2}, []float64{1, 2, 3})
	require.True(t, xerrors.IsInvalidArgument(err))
	_, err = dense.NewFlat([]int{1, 1, 1, 1}, []float64{1})
	require.True(t, xerrors.IsInvalidArgument(err))
}
