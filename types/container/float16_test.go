package container_test

import (
	"testing"

	"github.com/gomlx/gradgraph/graph"
	. "github.com/gomlx/gradgraph/types/container"
	"github.com/gomlx/gradgraph/types/functions"
	"github.com/gomlx/gradgraph/types/shapes"
	"github.com/gomlx/gradgraph/types/xerrors"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestFloat16(t *testing.T) {
	a := must.M1(Float16FromFloats(2, 2, 1, 2, 3, 4))
	b := must.M1(Float16FromFloats(2, 2, 0.5, 0.25, -1, 2))
	require.Equal(t, "float16", a.Algebra().Name())
	require.Equal(t, shapes.Matrix, a.Kind())

	sum := must.M1(Add(a, b))
	assert.Equal(t, []float64{1.5, 2.25, 2, 6}, sum.Floats())
	product := must.M1(Multiply(a, b))
	// [[1 2] [3 4]] · [[0.5 0.25] [-1 2]]
	assert.Equal(t, []float64{-1.5, 4.25, -2.5, 8.75}, product.Floats())
	assert.Equal(t, "(2, 2)[[1 2] [3 4]]", a.String())

	// Half precision rounding: 1/3 has 11 significant bits.
	third := must.M1(Divide(FromScalar(Float16, Float16.One()), FromScalar(Float16, Float16.FromFloat(3))))
	assert.InDelta(t, 1.0/3.0, must.M1(third.Item()).Float32(), 1e-3)
	assert.NotEqual(t, float32(1.0/3.0), must.M1(third.Item()).Float32())

	squares := must.M1(a.Map(functions.New().MustFunction("power", 2)))
	assert.Equal(t, []float64{1, 4, 9, 16}, squares.Floats())
	derivatives := must.M1(a.MapDerivative(functions.New().MustFunction("power", 2)))
	assert.Equal(t, []float64{2, 4, 6, 8}, derivatives.Floats())

	_, err := Float16FromFloats(2, 2, 1, 2, 3)
	require.True(t, xerrors.IsInvalidArgument(err))
	assert.Equal(t, float16.Fromfloat32(4), must.M1(a.At(1, 1)))
}

func TestFloat16Gradients(t *testing.T) {
	g := graph.New(Float16, graph.WithName("half"))
	x := graph.Parameter(g, "x", FromScalar(Float16, Float16.FromFloat(3)))
	y := graph.Mul(x, x)
	require.NoError(t, g.Forward(y))
	require.NoError(t, g.Backward(y))
	assert.Equal(t, []float64{9}, y.Value().Floats())
	assert.Equal(t, []float64{6}, x.Gradient().Floats())
}
