package dense

import (
	"github.com/gomlx/gradgraph/types/xerrors"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Backend implements the arithmetic kernels over vectors and matrices of E.
// None of the kernels modify their operands.
type Backend[E any] struct {
	Ring Ring[E]
}

// NewBackend returns a Backend using the given ring.
func NewBackend[E any](ring Ring[E]) Backend[E] {
	return Backend[E]{Ring: ring}
}

func (b Backend[E]) zipVectors(op string, x, y *Vector[E], fn func(a, c E) E) (*Vector[E], error) {
	if x.Len() != y.Len() {
		return nil, errors.Wrapf(xerrors.ErrShapeMismatch, "%s: vectors of length %d and %d", op, x.Len(), y.Len())
	}
	out := &Vector[E]{data: make([]E, x.Len())}
	for ii := range out.data {
		out.data[ii] = fn(x.data[ii], y.data[ii])
	}
	return out, nil
}

func (b Backend[E]) zipMatrices(op string, x, y *Matrix[E], fn func(a, c E) E) (*Matrix[E], error) {
	if x.rows != y.rows || x.cols != y.cols {
		return nil, errors.Wrapf(xerrors.ErrShapeMismatch, "%s: matrices of shape %dx%d and %dx%d",
			op, x.rows, x.cols, y.rows, y.cols)
	}
	data := make([]E, len(x.data))
	for ii := range data {
		data[ii] = fn(x.data[ii], y.data[ii])
	}
	return matrixFromFlat(x.rows, x.cols, data), nil
}

// AddVectors returns x + y elementwise.
func (b Backend[E]) AddVectors(x, y *Vector[E]) (*Vector[E], error) {
	return b.zipVectors("AddVectors", x, y, b.Ring.Add)
}

// SubVectors returns x - y elementwise.
func (b Backend[E]) SubVectors(x, y *Vector[E]) (*Vector[E], error) {
	return b.zipVectors("SubVectors", x, y, b.Ring.Sub)
}

// MulVectors returns x * y elementwise.
func (b Backend[E]) MulVectors(x, y *Vector[E]) (*Vector[E], error) {
	return b.zipVectors("MulVectors", x, y, b.Ring.Mul)
}

// DivVectors returns x / y elementwise.
func (b Backend[E]) DivVectors(x, y *Vector[E]) (*Vector[E], error) {
	return b.zipVectors("DivVectors", x, y, b.Ring.Div)
}

// AddMatrices returns x + y elementwise.
func (b Backend[E]) AddMatrices(x, y *Matrix[E]) (*Matrix[E], error) {
	return b.zipMatrices("AddMatrices", x, y, b.Ring.Add)
}

// SubMatrices returns x - y elementwise.
func (b Backend[E]) SubMatrices(x, y *Matrix[E]) (*Matrix[E], error) {
	return b.zipMatrices("SubMatrices", x, y, b.Ring.Sub)
}

// MulMatrices returns x * y elementwise (Hadamard product).
func (b Backend[E]) MulMatrices(x, y *Matrix[E]) (*Matrix[E], error) {
	return b.zipMatrices("MulMatrices", x, y, b.Ring.Mul)
}

// DivMatrices returns x / y elementwise.
func (b Backend[E]) DivMatrices(x, y *Matrix[E]) (*Matrix[E], error) {
	return b.zipMatrices("DivMatrices", x, y, b.Ring.Div)
}

// MapVector returns a new vector with fn applied to every element.
func (b Backend[E]) MapVector(x *Vector[E], fn func(e E) E) *Vector[E] {
	out := &Vector[E]{data: make([]E, x.Len())}
	for ii, e := range x.data {
		out.data[ii] = fn(e)
	}
	return out
}

// MapMatrix returns a new matrix with fn applied to every element.
func (b Backend[E]) MapMatrix(x *Matrix[E], fn func(e E) E) *Matrix[E] {
	data := make([]E, len(x.data))
	for ii, e := range x.data {
		data[ii] = fn(e)
	}
	return matrixFromFlat(x.rows, x.cols, data)
}

// ScaleVector returns s * x.
func (b Backend[E]) ScaleVector(s E, x *Vector[E]) *Vector[E] {
	return b.MapVector(x, func(e E) E { return b.Ring.Mul(s, e) })
}

// ScaleMatrix returns s * x.
func (b Backend[E]) ScaleMatrix(s E, x *Matrix[E]) *Matrix[E] {
	return b.MapMatrix(x, func(e E) E { return b.Ring.Mul(s, e) })
}

// MatMul returns the matrix product x · y. It requires x.Cols() == y.Rows().
func (b Backend[E]) MatMul(x, y *Matrix[E]) (*Matrix[E], error) {
	if x.cols != y.rows {
		return nil, errors.Wrapf(xerrors.ErrShapeMismatch, "MatMul: %dx%d · %dx%d, inner dimensions differ (%d != %d)",
			x.rows, x.cols, y.rows, y.cols, x.cols, y.rows)
	}
	if fx, ok := any(x).(*Matrix[float64]); ok {
		// Float64 products go to gonum.
		fy := any(y).(*Matrix[float64])
		return any(gonumMatMul(fx, fy)).(*Matrix[E]), nil
	}
	data := make([]E, x.rows*y.cols)
	for ii := range x.rows {
		for jj := range y.cols {
			acc := b.Ring.Zero()
			for kk := range x.cols {
				acc = b.Ring.Add(acc, b.Ring.Mul(x.data[ii*x.cols+kk], y.data[kk*y.cols+jj]))
			}
			data[ii*y.cols+jj] = acc
		}
	}
	return matrixFromFlat(x.rows, y.cols, data), nil
}

func gonumMatMul(x, y *Matrix[float64]) *Matrix[float64] {
	gx := mat.NewDense(x.rows, x.cols, x.data)
	gy := mat.NewDense(y.rows, y.cols, y.data)
	out := mat.NewDense(x.rows, y.cols, nil)
	out.Mul(gx, gy)
	return matrixFromFlat(x.rows, y.cols, out.RawMatrix().Data)
}

// Sum returns the sum of all elements of the matrix.
func (b Backend[E]) Sum(x *Matrix[E]) E {
	acc := b.Ring.Zero()
	for _, e := range x.data {
		acc = b.Ring.Add(acc, e)
	}
	return acc
}
