/*
 *	Copyright 2023 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// Package shapes defines Shape and Kind, the two-dimensional shape metadata shared by the
// containers (see container package) and the computation graph (see graph package).
//
// Only shapes of rank up to 2 exist: every value is seen as a (rows, cols) pair, and its Kind is
// derived from it:
//
//   - Scalar: both dimensions are 1.
//   - Vector: exactly one dimension is 1. A (n, 1) shape is a column vector, (1, n) a row vector.
//   - Matrix: neither dimension is 1.
//
// ## Glossary
//
//   - Rows/Cols: the two dimensions of a shape. They are always >= 1 for a valid shape.
//   - Transpose: swapping rows and cols. Containers keep a logical transpose flag and report
//     their shape already transposed, so Shape values are always "effective" shapes.
package shapes

import (
	"fmt"

	"github.com/gomlx/exceptions"
)

// Kind classifies a Shape into Scalar, Vector or Matrix.
type Kind int

const (
	// InvalidKind is the Kind of an invalid shape.
	InvalidKind Kind = iota
	Scalar
	Vector
	Matrix
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Scalar:
		return "Scalar"
	case Vector:
		return "Vector"
	case Matrix:
		return "Matrix"
	default:
		return "Invalid"
	}
}

// Shape holds the dimensions of a value: the number of rows and columns.
//
// Use Make to create a new shape.
type Shape struct {
	Rows, Cols int
}

// Make returns a Shape with the given dimensions. It panics if any of them is <= 0.
func Make(rows, cols int) Shape {
	s := Shape{Rows: rows, Cols: cols}
	if rows <= 0 || cols <= 0 {
		exceptions.Panicf("shapes.Make(%d, %d): cannot create a shape with a dimension <= 0", rows, cols)
	}
	return s
}

// ScalarShape returns the (1, 1) shape.
func ScalarShape() Shape { return Shape{Rows: 1, Cols: 1} }

// Invalid returns an invalid shape.
//
// Invalid().Ok() == false.
func Invalid() Shape { return Shape{} }

// Ok returns whether this is a valid Shape. A "zero" shape, that is just instantiating it with Shape{} will be invalid.
func (s Shape) Ok() bool { return s.Rows > 0 && s.Cols > 0 }

// Kind classifies the shape, see package documentation.
func (s Shape) Kind() Kind {
	if !s.Ok() {
		return InvalidKind
	}
	rowIsOne, colIsOne := s.Rows == 1, s.Cols == 1
	switch {
	case rowIsOne && colIsOne:
		return Scalar
	case rowIsOne != colIsOne:
		return Vector
	default:
		return Matrix
	}
}

// IsScalar returns whether the shape is (1, 1).
func (s Shape) IsScalar() bool { return s.Kind() == Scalar }

// IsVector returns whether exactly one of the dimensions is 1.
func (s Shape) IsVector() bool { return s.Kind() == Vector }

// IsMatrix returns whether neither dimension is 1.
func (s Shape) IsMatrix() bool { return s.Kind() == Matrix }

// T returns the shape with rows and cols swapped.
func (s Shape) T() Shape { return Shape{Rows: s.Cols, Cols: s.Rows} }

// Size returns the number of elements, the product of the dimensions.
func (s Shape) Size() int { return s.Rows * s.Cols }

// Shape returns itself. It implements the HasShape interface.
func (s Shape) Shape() Shape { return s }

// Equal compares two shapes for equality.
func (s Shape) Equal(s2 Shape) bool { return s == s2 }

// String implements stringer, pretty-prints the shape.
func (s Shape) String() string {
	if !s.Ok() {
		return "(invalid)"
	}
	return fmt.Sprintf("(%d, %d)", s.Rows, s.Cols)
}
