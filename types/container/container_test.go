package container_test

import (
	"math"
	"testing"

	. "github.com/gomlx/gradgraph/types/container"
	"github.com/gomlx/gradgraph/types/functions"
	"github.com/gomlx/gradgraph/types/sensitivity"
	"github.com/gomlx/gradgraph/types/shapes"
	"github.com/gomlx/gradgraph/types/xerrors"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Algebra[*sensitivity.Scalar] = sensitivity.Algebra{}

func TestConstruction(t *testing.T) {
	s := Scalar(2)
	require.Equal(t, shapes.Scalar, s.Kind())
	require.Equal(t, 2.0, must.M1(s.Item()))

	v := must.M1(Vector(1, 2, 3))
	require.Equal(t, shapes.Vector, v.Kind())
	require.Equal(t, shapes.Make(3, 1), v.Shape())

	// Normalization of degenerate dimensions.
	one := must.M1(Vector(7))
	require.Equal(t, shapes.Scalar, one.Kind())
	require.Equal(t, 7.0, must.M1(one.Item()))
	row := must.M1(Matrix([][]float64{{1, 2, 3}}))
	require.Equal(t, shapes.Vector, row.Kind())
	require.Equal(t, shapes.Make(1, 3), row.Shape())
	require.Equal(t, shapes.Scalar, MustMatrix([][]float64{{5}}).Kind())

	_, err := Matrix([][]float64{{1, 2}, {3}})
	require.True(t, xerrors.IsInvalidArgument(err))
	_, err = Vector()
	require.True(t, xerrors.IsInvalidArgument(err))
	require.Panics(t, func() { MustMatrix(nil) })

	_, err = s.At(1, 0)
	require.ErrorIs(t, err, xerrors.ErrOutOfRange)
	_, err = v.Item()
	require.True(t, xerrors.IsInvalidArgument(err))
	require.False(t, xerrors.IsShapeMismatch(err))
	_, err = must.M1(Vector(1, 2)).Item()
	require.True(t, xerrors.IsInvalidArgument(err))
	require.Equal(t, 2.0, must.M1(Scalar(2).Item()))

	flat := must.M1(FromFlat(Float64, shapes.Make(2, 3), []float64{1, 2, 3, 4, 5, 6}))
	require.Equal(t, 6.0, must.M1(flat.At(1, 2)))
	_, err = FromFlat(Float64, shapes.Make(2, 3), []float64{1, 2})
	require.True(t, xerrors.IsInvalidArgument(err))
}

func TestZeros(t *testing.T) {
	cases := []struct {
		rows, cols int
		kind       shapes.Kind
	}{
		{1, 1, shapes.Scalar},
		{1, 4, shapes.Vector},
		{4, 1, shapes.Vector},
		{2, 3, shapes.Matrix},
	}
	for _, tc := range cases {
		z := must.M1(Zeros(Float64, tc.rows, tc.cols))
		assert.Equalf(t, tc.kind, z.Kind(), "Zeros(%d, %d)", tc.rows, tc.cols)
		assert.Equal(t, shapes.Make(tc.rows, tc.cols), z.Shape())
		assert.Equal(t, make([]float64, tc.rows*tc.cols), z.Values())
	}
	_, err := Zeros(Float64, 0, 2)
	require.True(t, xerrors.IsInvalidArgument(err))

	m := MustMatrix([][]float64{{1, 2}, {3, 4}})
	require.Equal(t, []float64{1, 1, 1, 1}, OnesLike(m).Values())
	require.Equal(t, []float64{0, 0, 0, 0}, ZerosLike(m).Values())
}

func TestAddScalarToMatrix(t *testing.T) {
	ones := MustMatrix([][]float64{{1, 1}, {1, 1}})
	got := must.M1(Add(Scalar(2), ones))
	require.Equal(t, shapes.Matrix, got.Kind())
	require.Equal(t, shapes.Make(2, 2), got.Shape())
	require.Equal(t, []float64{3, 3, 3, 3}, got.Values())
}

func TestBroadcastLaw(t *testing.T) {
	operands := []*Container[float64]{
		must.M1(Vector(1, -2, 3)),
		must.M1(Vector(1, -2, 3)).T(),
		MustMatrix([][]float64{{1, 2, 3}, {4, 5, 6}}),
		MustMatrix([][]float64{{1, 2, 3}, {4, 5, 6}}).T(),
	}
	s := Scalar(0.5)
	for _, x := range operands {
		left := must.M1(Add(s, x))
		right := must.M1(Add(x, s))
		require.Equal(t, x.Shape(), left.Shape())
		require.True(t, left.Equal(right))
		want := x.Values()
		for ii := range want {
			want[ii] += 0.5
		}
		require.Equal(t, want, left.Values())
	}
}

func TestElementwise(t *testing.T) {
	a := MustMatrix([][]float64{{1, 2}, {3, 4}})
	b := MustMatrix([][]float64{{10, 20}, {30, 40}})
	assert.Equal(t, []float64{9, 18, 27, 36}, must.M1(Subtract(b, a)).Values())
	assert.Equal(t, []float64{10, 40, 90, 160}, must.M1(Hadamard(a, b)).Values())
	quotient := must.M1(Divide(b, a)).Values()
	for ii, want := range []float64{10, 10, 10, 10} {
		assert.InDelta(t, want, quotient[ii], 1e-6)
	}
	assert.Equal(t, []float64{11, 23, 32, 44}, must.M1(Add(a.T(), b)).Values())

	// Shapes must match when no operand is a scalar.
	_, err := Add(a, MustMatrix([][]float64{{1, 2, 3}, {4, 5, 6}}))
	require.True(t, xerrors.IsShapeMismatch(err))
	_, err = Add(must.M1(Vector(1, 2)), must.M1(Vector(1, 2)).T())
	require.True(t, xerrors.IsShapeMismatch(err))
	_, err = Hadamard(must.M1(Vector(1, 2)), a)
	require.True(t, xerrors.IsShapeMismatch(err))

	// Operands are not changed.
	assert.Equal(t, []float64{1, 2, 3, 4}, a.Values())
}

func TestMultiply(t *testing.T) {
	a := MustMatrix([][]float64{{1, 2, 3}, {4, 5, 6}})
	b := MustMatrix([][]float64{{7, 8}, {9, 10}, {11, 12}})
	got := must.M1(Multiply(a, b))
	require.Equal(t, shapes.Make(2, 2), got.Shape())
	for row := range 2 {
		for col := range 2 {
			var want float64
			for k := range 3 {
				want += must.M1(a.At(row, k)) * must.M1(b.At(k, col))
			}
			require.Equal(t, want, must.M1(got.At(row, col)))
		}
	}

	// Matrix(2,3) x Matrix(4,2): inner dimensions 3 != 4.
	_, err := Multiply(a, must.M1(Zeros(Float64, 4, 2)))
	require.True(t, xerrors.IsShapeMismatch(err))

	// Scalars scale, vectors multiply elementwise.
	require.Equal(t, []float64{2, 4, 6, 8, 10, 12}, must.M1(Multiply(Scalar(2), a)).Values())
	require.Equal(t, []float64{4, 10, 18}, must.M1(Multiply(must.M1(Vector(1, 2, 3)), must.M1(Vector(4, 5, 6)))).Values())
	_, err = Multiply(must.M1(Vector(1, 2, 3)), must.M1(Vector(1, 2)))
	require.True(t, xerrors.IsShapeMismatch(err))

	// MatMul works on any kinds: an outer product of two vectors.
	outer := must.M1(MatMul(must.M1(Vector(1, 2)), must.M1(Vector(3, 4, 5)).T()))
	require.Equal(t, shapes.Make(2, 3), outer.Shape())
	require.Equal(t, []float64{3, 4, 5, 6, 8, 10}, outer.Values())
	inner := must.M1(MatMul(must.M1(Vector(1, 2)).T(), must.M1(Vector(3, 4))))
	require.Equal(t, shapes.Scalar, inner.Kind())
	require.Equal(t, 11.0, must.M1(inner.Item()))
}

func TestTranspose(t *testing.T) {
	for _, x := range []*Container[float64]{
		Scalar(1),
		must.M1(Vector(1, 2, 3)),
		MustMatrix([][]float64{{1, 2, 3}, {4, 5, 6}}),
	} {
		tt := x.T().T()
		require.Equal(t, x.Kind(), tt.Kind())
		require.Equal(t, x.Shape(), tt.Shape())
		require.True(t, x.Equal(tt))
		require.Equal(t, x.Shape().T(), x.T().Shape())
	}
	m := MustMatrix([][]float64{{1, 2, 3}, {4, 5, 6}})
	require.Equal(t, []float64{1, 4, 2, 5, 3, 6}, m.T().Values())
	require.Equal(t, 6.0, must.M1(m.T().At(2, 1)))
}

func TestReduceTo(t *testing.T) {
	m := MustMatrix([][]float64{{1, 2}, {3, 4}})
	require.Same(t, m, must.M1(m.ReduceTo(m.Shape())))
	require.Equal(t, 10.0, must.M1(must.M1(m.ReduceTo(shapes.ScalarShape())).Item()))
	_, err := m.ReduceTo(shapes.Make(2, 1))
	require.True(t, xerrors.IsShapeMismatch(err))
	require.Equal(t, 10.0, m.Sum())
}

func TestMap(t *testing.T) {
	r := functions.New()
	v := must.M1(Vector(1, math.E))
	logs := must.M1(v.Map(r.MustFunction("log")))
	assert.InDeltaSlice(t, []float64{0, 1}, logs.Values(), 1e-12)
	derivs := must.M1(v.MapDerivative(r.MustFunction("log")))
	assert.InDeltaSlice(t, []float64{1, 1 / math.E}, derivs.Values(), 1e-9)

	_, err := must.M1(Vector(1, -1)).Map(r.MustFunction("log"))
	require.True(t, xerrors.IsDomain(err))

	require.Equal(t, []float64{-1, -math.E}, v.Neg().Values())
	require.Equal(t, []float64{2, 2 * math.E}, v.Scale(2).Values())
}

func TestSensitivityElements(t *testing.T) {
	var alg sensitivity.Algebra
	x := sensitivity.Variable(3)
	m := must.M1(FromMatrix[*sensitivity.Scalar](alg, [][]*sensitivity.Scalar{
		{x, sensitivity.New(1)},
		{sensitivity.New(2), x},
	}))
	sq := must.M1(Multiply(m, m))
	// [[x, 1], [2, x]]² = [[x²+2, 2x], [4x, 2+x²]]
	require.Equal(t, []float64{11, 6, 12, 11}, sq.Floats())
	want := []float64{6, 2, 4, 6}
	for ii, e := range sq.Values() {
		require.InDelta(t, want[ii], e.Partial(x), 1e-12)
	}
	total := must.M1(Add(FromScalar[*sensitivity.Scalar](alg, sensitivity.New(1)), sq)).Sum()
	require.Equal(t, 44.0, total.Value())
	require.Equal(t, 18.0, total.Partial(x))
}

func TestString(t *testing.T) {
	assert.Equal(t, "2", Scalar(2).String())
	assert.Equal(t, "(1, 3)[1 2 3]", must.M1(Vector(1, 2, 3)).T().String())
	assert.Equal(t, "(2, 2)[[1 2] [3 4]]", MustMatrix([][]float64{{1, 2}, {3, 4}}).String())
}
