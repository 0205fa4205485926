// Package dense implements the dense vector and matrix storage used by the containers, along with
// their raw arithmetic kernels.
//
// The storage is generic on the element type E. The arithmetic on elements is provided by a Ring,
// so the same kernels work on plain float64 values and on types carrying derivative information
// (see sensitivity.Scalar).
//
// Float64 matrix products are delegated to gonum.org/v1/gonum/mat.
package dense

import (
	"slices"

	"github.com/gomlx/gradgraph/types/xerrors"
	"github.com/pkg/errors"
)

// Ring is the element arithmetic required by the kernels.
type Ring[E any] interface {
	Zero() E
	One() E
	Add(a, b E) E
	Sub(a, b E) E
	Mul(a, b E) E
	Div(a, b E) E

	// FromFloat converts a constant to an element.
	FromFloat(v float64) E

	// ToFloat returns the numeric value of an element.
	ToFloat(e E) float64
}

// Epsilon is added to denominators before dividing, to avoid division by exact zero.
const Epsilon = 1e-9

// Float64Ring implements Ring[float64].
type Float64Ring struct{}

var _ Ring[float64] = Float64Ring{}

func (Float64Ring) Zero() float64               { return 0 }
func (Float64Ring) One() float64                { return 1 }
func (Float64Ring) Add(a, b float64) float64    { return a + b }
func (Float64Ring) Sub(a, b float64) float64    { return a - b }
func (Float64Ring) Mul(a, b float64) float64    { return a * b }
func (Float64Ring) Div(a, b float64) float64    { return a / (b + Epsilon) }
func (Float64Ring) FromFloat(v float64) float64 { return v }
func (Float64Ring) ToFloat(e float64) float64   { return e }

// Vector is a dense one-dimensional array of E.
type Vector[E any] struct {
	data []E
}

// NewVector returns a vector of length n filled with the ring's zero.
func NewVector[E any](ring Ring[E], n int) (*Vector[E], error) {
	if n <= 0 {
		return nil, errors.Wrapf(xerrors.ErrInvalidArgument, "dense.NewVector(%d): length must be > 0", n)
	}
	v := &Vector[E]{data: make([]E, n)}
	for ii := range v.data {
		v.data[ii] = ring.Zero()
	}
	return v, nil
}

// VectorFrom returns a vector with a copy of values.
func VectorFrom[E any](values []E) (*Vector[E], error) {
	if len(values) == 0 {
		return nil, errors.Wrap(xerrors.ErrInvalidArgument, "dense.VectorFrom: empty values")
	}
	return &Vector[E]{data: slices.Clone(values)}, nil
}

// Len returns the number of elements.
func (v *Vector[E]) Len() int { return len(v.data) }

// At returns the element at index ii. It panics if out of range, like a slice.
func (v *Vector[E]) At(ii int) E { return v.data[ii] }

// Set the element at index ii.
func (v *Vector[E]) Set(ii int, e E) { v.data[ii] = e }

// Values returns a copy of the elements.
func (v *Vector[E]) Values() []E { return slices.Clone(v.data) }

// Clone returns a deep copy of the vector storage.
func (v *Vector[E]) Clone() *Vector[E] { return &Vector[E]{data: slices.Clone(v.data)} }

// Matrix is a dense row-major two-dimensional array of E.
type Matrix[E any] struct {
	rows, cols int
	data       []E
}

// NewMatrix returns a rows x cols matrix filled with the ring's zero.
func NewMatrix[E any](ring Ring[E], rows, cols int) (*Matrix[E], error) {
	if rows <= 0 || cols <= 0 {
		return nil, errors.Wrapf(xerrors.ErrInvalidArgument, "dense.NewMatrix(%d, %d): dimensions must be > 0", rows, cols)
	}
	m := &Matrix[E]{rows: rows, cols: cols, data: make([]E, rows*cols)}
	for ii := range m.data {
		m.data[ii] = ring.Zero()
	}
	return m, nil
}

// MatrixFrom returns a matrix with a copy of the given rows. All rows must have the same
// non-zero length.
func MatrixFrom[E any](rows [][]E) (*Matrix[E], error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.Wrap(xerrors.ErrInvalidArgument, "dense.MatrixFrom: empty matrix")
	}
	numCols := len(rows[0])
	m := &Matrix[E]{rows: len(rows), cols: numCols, data: make([]E, 0, len(rows)*numCols)}
	for ii, row := range rows {
		if len(row) != numCols {
			return nil, errors.Wrapf(xerrors.ErrInvalidArgument,
				"dense.MatrixFrom: row %d has %d elements, but row 0 has %d", ii, len(row), numCols)
		}
		m.data = append(m.data, row...)
	}
	return m, nil
}

// MatrixFromValues returns a rows x cols matrix with a copy of values, given in row-major order.
func MatrixFromValues[E any](rows, cols int, values []E) (*Matrix[E], error) {
	if rows <= 0 || cols <= 0 || len(values) != rows*cols {
		return nil, errors.Wrapf(xerrors.ErrInvalidArgument,
			"dense.MatrixFromValues(%d, %d): got %d values", rows, cols, len(values))
	}
	return matrixFromFlat(rows, cols, slices.Clone(values)), nil
}

// matrixFromFlat takes ownership of data.
func matrixFromFlat[E any](rows, cols int, data []E) *Matrix[E] {
	return &Matrix[E]{rows: rows, cols: cols, data: data}
}

// Rows returns the number of rows.
func (m *Matrix[E]) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Matrix[E]) Cols() int { return m.cols }

// At returns the element at row ii, column jj. It panics if out of range.
func (m *Matrix[E]) At(ii, jj int) E {
	if ii < 0 || ii >= m.rows || jj < 0 || jj >= m.cols {
		panic(errors.Wrapf(xerrors.ErrOutOfRange, "Matrix.At(%d, %d) of a %dx%d matrix", ii, jj, m.rows, m.cols))
	}
	return m.data[ii*m.cols+jj]
}

// Set the element at row ii, column jj. It panics if out of range.
func (m *Matrix[E]) Set(ii, jj int, e E) {
	if ii < 0 || ii >= m.rows || jj < 0 || jj >= m.cols {
		panic(errors.Wrapf(xerrors.ErrOutOfRange, "Matrix.Set(%d, %d) of a %dx%d matrix", ii, jj, m.rows, m.cols))
	}
	m.data[ii*m.cols+jj] = e
}

// Values returns a copy of the elements in row-major order.
func (m *Matrix[E]) Values() []E { return slices.Clone(m.data) }

// Clone returns a deep copy of the matrix storage.
func (m *Matrix[E]) Clone() *Matrix[E] {
	return matrixFromFlat(m.rows, m.cols, slices.Clone(m.data))
}

// Transpose returns a new matrix with rows and columns swapped (a physical copy).
func (m *Matrix[E]) Transpose() *Matrix[E] {
	data := make([]E, len(m.data))
	for ii := range m.rows {
		for jj := range m.cols {
			data[jj*m.rows+ii] = m.data[ii*m.cols+jj]
		}
	}
	return matrixFromFlat(m.cols, m.rows, data)
}
