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

package shapes

import (
	"github.com/gomlx/gradgraph/types/xerrors"
	"github.com/pkg/errors"
)

// UncheckedDim can be used in CheckDims or AssertDims for a dimension whose value doesn't matter.
const UncheckedDim = int(-1)

// HasShape is an interface for objects that have an associated Shape.
// `container.Container`, `graph.ValueNode` and Shape itself implement the interface.
type HasShape interface {
	Shape() Shape
}

// CheckDims checks that the shape has the given dimensions. A value of -1 means it can take any
// value and is not checked.
//
// It returns an xerrors.ErrShapeMismatch if any of the dimensions don't match.
func (s Shape) CheckDims(rows, cols int) error {
	if rows != UncheckedDim && s.Rows != rows {
		return errors.Wrapf(xerrors.ErrShapeMismatch, "shape %s has %d rows, wanted %d", s, s.Rows, rows)
	}
	if cols != UncheckedDim && s.Cols != cols {
		return errors.Wrapf(xerrors.ErrShapeMismatch, "shape %s has %d cols, wanted %d", s, s.Cols, cols)
	}
	return nil
}

// CheckEqual returns an xerrors.ErrShapeMismatch if the two shapes differ. The operation name
// is only used for the error message.
func CheckEqual(op string, s1, s2 HasShape) error {
	if !s1.Shape().Equal(s2.Shape()) {
		return errors.Wrapf(xerrors.ErrShapeMismatch, "%s: operands have incompatible shapes %s and %s",
			op, s1.Shape(), s2.Shape())
	}
	return nil
}

// CheckInner checks the inner dimensions of a matrix product lhs x rhs.
func CheckInner(lhs, rhs HasShape) error {
	if lhs.Shape().Cols != rhs.Shape().Rows {
		return errors.Wrapf(xerrors.ErrShapeMismatch,
			"matrix product of %s and %s: inner dimensions differ (%d != %d)",
			lhs.Shape(), rhs.Shape(), lhs.Shape().Cols, rhs.Shape().Rows)
	}
	return nil
}

// AssertDims checks that the shape has the given dimensions. A value of -1 means it can take
// any value and is not checked.
//
// It panics if they don't match.
func AssertDims(shaped HasShape, rows, cols int) {
	err := shaped.Shape().CheckDims(rows, cols)
	if err != nil {
		panic(errors.WithMessagef(err, "AssertDims(%d, %d)", rows, cols))
	}
}
