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

// Package container implements Container, a shape-polymorphic value: a scalar, a vector or a
// matrix of elements of type E, plus the shape-aware arithmetic over it.
//
// The element type is either a plain float64 (see Float64) or a differentiable
// *sensitivity.Scalar (see sensitivity.Algebra). The Algebra that implements the element
// arithmetic travels with the container, and binary operations use the one of the left operand.
//
// Shapes are always 2D (rows, cols) and classified by shapes.Kind:
//
//   - Scalar: both dimensions are 1.
//   - Vector: exactly one dimension is 1.
//   - Matrix: otherwise.
//
// The storage always agrees with the classification: a container with a 1-element vector or a
// 1x1 matrix is stored as a scalar, and a matrix with one dimension 1 is stored as a vector.
//
// Containers are immutable: operations return new containers and never change their operands.
// Transposition (T) is logical: it toggles a flag and never copies the storage.
package container

import (
	"fmt"
	"strings"

	"github.com/gomlx/gradgraph/types/dense"
	"github.com/gomlx/gradgraph/types/functions"
	"github.com/gomlx/gradgraph/types/shapes"
	"github.com/gomlx/gradgraph/types/xerrors"
	"github.com/pkg/errors"
)

// Algebra is the element arithmetic used by a container: the ring operations used by the dense
// kernels, plus the application of elementary functions to an element.
type Algebra[E any] interface {
	dense.Ring[E]

	// Name of the algebra, used for pretty-printing and error messages.
	Name() string

	// Format an element for printing.
	Format(e E) string

	// Apply returns fn(x). Domain errors are returned.
	Apply(fn functions.Elementary, x E) (E, error)

	// ApplyDerivative returns fn'(x). Domain errors are returned.
	ApplyDerivative(fn functions.Elementary, x E) (E, error)
}

// payload is the closed set of storage variants of a Container.
type payload[E any] interface {
	isPayload()
}

type scalarPayload[E any] struct{ value E }

type vectorPayload[E any] struct{ vector *dense.Vector[E] }

type matrixPayload[E any] struct{ matrix *dense.Matrix[E] }

func (scalarPayload[E]) isPayload() {}
func (vectorPayload[E]) isPayload() {}
func (matrixPayload[E]) isPayload() {}

// Container is a scalar, a vector or a matrix of E. See package documentation.
type Container[E any] struct {
	alg        Algebra[E]
	payload    payload[E]
	dims       shapes.Shape
	transposed bool
}

// errBadPayload is raised on a payload variant unknown to an operation: it is always a bug.
func errBadPayload(op string, p any) error {
	return errors.Errorf("container.%s: unknown payload variant %T", op, p)
}

// fromValues creates a container of the given effective shape, taking ownership of values given in
// row-major order. The storage variant is chosen from the classification of the shape.
func fromValues[E any](alg Algebra[E], shape shapes.Shape, values []E) *Container[E] {
	if len(values) != shape.Size() {
		panic(errors.Errorf("container: %d values for shape %s", len(values), shape))
	}
	c := &Container[E]{alg: alg, dims: shape}
	switch shape.Kind() {
	case shapes.Scalar:
		c.payload = scalarPayload[E]{value: values[0]}
	case shapes.Vector:
		v, err := dense.VectorFrom(values)
		if err != nil {
			panic(err)
		}
		c.payload = vectorPayload[E]{vector: v}
	case shapes.Matrix:
		m, err := dense.MatrixFromValues(shape.Rows, shape.Cols, values)
		if err != nil {
			panic(err)
		}
		c.payload = matrixPayload[E]{matrix: m}
	default:
		panic(errors.Errorf("container: invalid shape %s", shape))
	}
	return c
}

// fromMatrix wraps a dense matrix, normalizing its storage variant.
func fromMatrix[E any](alg Algebra[E], m *dense.Matrix[E]) *Container[E] {
	shape := shapes.Make(m.Rows(), m.Cols())
	if shape.IsMatrix() {
		return &Container[E]{alg: alg, payload: matrixPayload[E]{matrix: m}, dims: shape}
	}
	return fromValues(alg, shape, m.Values())
}

// FromScalar returns a scalar container.
func FromScalar[E any](alg Algebra[E], value E) *Container[E] {
	return &Container[E]{alg: alg, payload: scalarPayload[E]{value: value}, dims: shapes.ScalarShape()}
}

// FromVector returns a column vector, shaped (len(values), 1), with a copy of values.
// A 1-element vector is a scalar.
func FromVector[E any](alg Algebra[E], values []E) (*Container[E], error) {
	if len(values) == 0 {
		return nil, errors.Wrap(xerrors.ErrInvalidArgument, "container.FromVector: empty vector")
	}
	return fromValues(alg, shapes.Make(len(values), 1), append([]E(nil), values...)), nil
}

// FromMatrix returns a matrix with a copy of the given rows, that must be non-empty and all of
// the same length. Rows or columns of dimension 1 are stored as vectors (or a scalar).
func FromMatrix[E any](alg Algebra[E], rows [][]E) (*Container[E], error) {
	m, err := dense.MatrixFrom(rows)
	if err != nil {
		return nil, errors.WithMessage(err, "container.FromMatrix")
	}
	return fromMatrix(alg, m), nil
}

// FromFlat returns a container with the given effective shape and a copy of values, given in
// row-major order.
func FromFlat[E any](alg Algebra[E], shape shapes.Shape, values []E) (*Container[E], error) {
	if !shape.Ok() || len(values) != shape.Size() {
		return nil, errors.Wrapf(xerrors.ErrInvalidArgument,
			"container.FromFlat(%s): got %d values", shape, len(values))
	}
	return fromValues(alg, shape, append([]E(nil), values...)), nil
}

// Full returns a container shaped (rows, cols) with every element set to value.
func Full[E any](alg Algebra[E], rows, cols int, value E) (*Container[E], error) {
	if rows <= 0 || cols <= 0 {
		return nil, errors.Wrapf(xerrors.ErrInvalidArgument,
			"container.Full(%d, %d): dimensions must be > 0", rows, cols)
	}
	values := make([]E, rows*cols)
	for ii := range values {
		values[ii] = value
	}
	return fromValues(alg, shapes.Make(rows, cols), values), nil
}

// Zeros returns a zero-valued container shaped (rows, cols): a scalar if both dimensions are 1,
// a vector if exactly one is 1, a matrix otherwise.
func Zeros[E any](alg Algebra[E], rows, cols int) (*Container[E], error) {
	c, err := Full(alg, rows, cols, alg.Zero())
	if err != nil {
		return nil, errors.WithMessage(err, "container.Zeros")
	}
	return c, nil
}

// ZerosLike returns a zero-valued container with the same shape and algebra as c.
func ZerosLike[E any](c *Container[E]) *Container[E] {
	return c.mapElements(func(E) E { return c.alg.Zero() })
}

// OnesLike returns a container with every element set to one, with the same shape and algebra
// as c.
func OnesLike[E any](c *Container[E]) *Container[E] {
	return c.mapElements(func(E) E { return c.alg.One() })
}

// Algebra used by the container.
func (c *Container[E]) Algebra() Algebra[E] { return c.alg }

// Shape returns the effective shape, after the logical transposition.
func (c *Container[E]) Shape() shapes.Shape {
	if c.transposed {
		return c.dims.T()
	}
	return c.dims
}

// Kind classifies the effective shape.
func (c *Container[E]) Kind() shapes.Kind { return c.Shape().Kind() }

// IsScalar returns whether the container is a scalar.
func (c *Container[E]) IsScalar() bool { return c.Kind() == shapes.Scalar }

// Rows returns the effective number of rows.
func (c *Container[E]) Rows() int { return c.Shape().Rows }

// Cols returns the effective number of columns.
func (c *Container[E]) Cols() int { return c.Shape().Cols }

// T returns the transposed container. It only toggles the logical transposition flag: the
// storage is shared, which is safe since containers are immutable.
func (c *Container[E]) T() *Container[E] {
	if c.IsScalar() {
		return c
	}
	t := *c
	t.transposed = !c.transposed
	return &t
}

// at returns the element at the effective position (row, col), with no range checks.
func (c *Container[E]) at(row, col int) E {
	switch p := c.payload.(type) {
	case scalarPayload[E]:
		return p.value
	case vectorPayload[E]:
		// One of row or col is always 0.
		return p.vector.At(row + col)
	case matrixPayload[E]:
		if c.transposed {
			return p.matrix.At(col, row)
		}
		return p.matrix.At(row, col)
	default:
		panic(errBadPayload("at", p))
	}
}

// At returns the element at the effective position (row, col).
func (c *Container[E]) At(row, col int) (E, error) {
	shape := c.Shape()
	if row < 0 || row >= shape.Rows || col < 0 || col >= shape.Cols {
		var zero E
		return zero, errors.Wrapf(xerrors.ErrOutOfRange, "container.At(%d, %d) of shape %s", row, col, shape)
	}
	return c.at(row, col), nil
}

// Item returns the value of a scalar container. It fails with an xerrors.ErrInvalidArgument otherwise.
func (c *Container[E]) Item() (E, error) {
	p, ok := c.payload.(scalarPayload[E])
	if !ok {
		var zero E
		return zero, errors.Wrapf(xerrors.ErrInvalidArgument, "container.Item() of a %s shaped %s", c.Kind(), c.Shape())
	}
	return p.value, nil
}

// Values returns a copy of the elements in row-major order of the effective shape.
func (c *Container[E]) Values() []E {
	switch p := c.payload.(type) {
	case scalarPayload[E]:
		return []E{p.value}
	case vectorPayload[E]:
		return p.vector.Values()
	case matrixPayload[E]:
		if c.transposed {
			return p.matrix.Transpose().Values()
		}
		return p.matrix.Values()
	default:
		panic(errBadPayload("Values", p))
	}
}

// Floats returns the numeric value of the elements in row-major order of the effective shape.
func (c *Container[E]) Floats() []float64 {
	values := c.Values()
	floats := make([]float64, len(values))
	for ii, e := range values {
		floats[ii] = c.alg.ToFloat(e)
	}
	return floats
}

// Sum returns the sum of all elements.
func (c *Container[E]) Sum() E {
	acc := c.alg.Zero()
	for _, e := range c.Values() {
		acc = c.alg.Add(acc, e)
	}
	return acc
}

// Equal returns whether both containers have the same effective shape and the same numeric
// values. Partial derivatives carried by the elements are not compared.
func (c *Container[E]) Equal(other *Container[E]) bool {
	if !c.Shape().Equal(other.Shape()) {
		return false
	}
	otherFloats := other.Floats()
	for ii, v := range c.Floats() {
		if v != otherFloats[ii] {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (c *Container[E]) String() string {
	if c.IsScalar() {
		return c.alg.Format(c.at(0, 0))
	}
	shape := c.Shape()
	var sb strings.Builder
	sb.WriteString(shape.String())
	if c.Kind() == shapes.Vector {
		parts := make([]string, 0, shape.Size())
		for _, e := range c.Values() {
			parts = append(parts, c.alg.Format(e))
		}
		sb.WriteString("[" + strings.Join(parts, " ") + "]")
		return sb.String()
	}
	sb.WriteString("[")
	for row := range shape.Rows {
		if row > 0 {
			sb.WriteString(" ")
		}
		parts := make([]string, 0, shape.Cols)
		for col := range shape.Cols {
			parts = append(parts, c.alg.Format(c.at(row, col)))
		}
		sb.WriteString("[" + strings.Join(parts, " ") + "]")
	}
	sb.WriteString("]")
	return sb.String()
}

// GoString implements fmt.GoStringer.
func (c *Container[E]) GoString() string {
	return fmt.Sprintf("container.Container[%s](%s, %s)", c.alg.Name(), c.Kind(), c.String())
}
