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

package graph

import (
	"fmt"

	"github.com/gomlx/gradgraph/types/container"
	"github.com/gomlx/gradgraph/types/functions"
	"github.com/gomlx/gradgraph/types/shapes"
	"github.com/pkg/errors"
)

// UnaryOperation is the function of a unary OperationNode.
type UnaryOperation[E any] interface {
	// Name of the function, used for naming values and for error messages.
	Name() string

	// Apply computes the output value.
	Apply(x *container.Container[E]) (*container.Container[E], error)

	// LocalDerivative returns the derivative of the output with respect to x, at x.
	LocalDerivative(x *container.Container[E]) (*container.Container[E], error)
}

// BinaryOperation is the function of a binary OperationNode.
type BinaryOperation[E any] interface {
	// Name of the function, used for naming values and for error messages.
	Name() string

	// Apply computes the output value.
	Apply(x, y *container.Container[E]) (*container.Container[E], error)

	// LocalDerivatives returns the derivatives of the output with respect to x and y, at (x, y).
	LocalDerivatives(x, y *container.Container[E]) (dx, dy *container.Container[E], err error)
}

// VJPOperation can be implemented by a UnaryOperation or a BinaryOperation whose gradient
// contribution to each operand is not the elementwise product of the upstream gradient and the
// local derivative, e.g. a matrix product.
//
// VJP stands for "Vector Jacobian Product": given the gradient of the root with respect to the
// output (upstream), it returns the gradient with respect to each operand, shaped like the operand.
type VJPOperation[E any] interface {
	VJP(upstream *container.Container[E], operands, locals []*container.Container[E]) ([]*container.Container[E], error)
}

// defaultVJP is the chain rule for elementwise operations: upstream ⊙ local, summed back to the
// operand shape when the operand was broadcast.
func defaultVJP[E any](upstream *container.Container[E], operands, locals []*container.Container[E]) ([]*container.Container[E], error) {
	contributions := make([]*container.Container[E], len(operands))
	for ii, operand := range operands {
		product, err := container.Hadamard(upstream, locals[ii])
		if err != nil {
			return nil, errors.WithMessagef(err, "chain rule for operand #%d", ii)
		}
		contributions[ii], err = product.ReduceTo(operand.Shape())
		if err != nil {
			return nil, errors.WithMessagef(err, "chain rule for operand #%d", ii)
		}
	}
	return contributions, nil
}

// AddOp is x + y, with scalar broadcasting.
type AddOp[E any] struct{}

func (AddOp[E]) Name() string { return "Add" }

func (AddOp[E]) Apply(x, y *container.Container[E]) (*container.Container[E], error) {
	return container.Add(x, y)
}

func (AddOp[E]) LocalDerivatives(x, y *container.Container[E]) (dx, dy *container.Container[E], err error) {
	return container.OnesLike(x), container.OnesLike(y), nil
}

// SubOp is x - y, with scalar broadcasting.
type SubOp[E any] struct{}

func (SubOp[E]) Name() string { return "Sub" }

func (SubOp[E]) Apply(x, y *container.Container[E]) (*container.Container[E], error) {
	return container.Subtract(x, y)
}

func (SubOp[E]) LocalDerivatives(x, y *container.Container[E]) (dx, dy *container.Container[E], err error) {
	return container.OnesLike(x), container.OnesLike(y).Neg(), nil
}

// MulOp is x · y as defined by container.Multiply: a matrix product if both operands are
// matrices, and an elementwise product (with scalar broadcasting) otherwise.
type MulOp[E any] struct{}

func (MulOp[E]) Name() string { return "Mul" }

func (MulOp[E]) Apply(x, y *container.Container[E]) (*container.Container[E], error) {
	return container.Multiply(x, y)
}

// LocalDerivatives returns y and x: for the elementwise product, ∂(x⊙y)/∂x = y and ∂(x⊙y)/∂y = x.
// The matrix product uses them transposed, see VJP.
func (MulOp[E]) LocalDerivatives(x, y *container.Container[E]) (dx, dy *container.Container[E], err error) {
	return y, x, nil
}

// VJP implements VJPOperation. In matrix product mode it is the one of MatMulOp.
func (MulOp[E]) VJP(upstream *container.Container[E], operands, locals []*container.Container[E]) ([]*container.Container[E], error) {
	x, y := operands[0], operands[1]
	if x.Kind() != shapes.Matrix || y.Kind() != shapes.Matrix {
		return defaultVJP(upstream, operands, locals)
	}
	return matMulVJP(upstream, x, y)
}

// HadamardOp is the elementwise product x ⊙ y, whatever the kinds of x and y. See container.Hadamard.
type HadamardOp[E any] struct{}

func (HadamardOp[E]) Name() string { return "Hadamard" }

func (HadamardOp[E]) Apply(x, y *container.Container[E]) (*container.Container[E], error) {
	return container.Hadamard(x, y)
}

func (HadamardOp[E]) LocalDerivatives(x, y *container.Container[E]) (dx, dy *container.Container[E], err error) {
	return y, x, nil
}

// MatMulOp is the matrix product x · y of the effective shapes of the operands, whatever their
// kinds. See container.MatMul.
type MatMulOp[E any] struct{}

func (MatMulOp[E]) Name() string { return "MatMul" }

func (MatMulOp[E]) Apply(x, y *container.Container[E]) (*container.Container[E], error) {
	return container.MatMul(x, y)
}

// LocalDerivatives returns y and x, used transposed by VJP.
func (MatMulOp[E]) LocalDerivatives(x, y *container.Container[E]) (dx, dy *container.Container[E], err error) {
	return y, x, nil
}

// VJP implements VJPOperation.
func (MatMulOp[E]) VJP(upstream *container.Container[E], operands, _ []*container.Container[E]) ([]*container.Container[E], error) {
	return matMulVJP(upstream, operands[0], operands[1])
}

// matMulVJP returns the contributions of the matrix product Z = X·Y, with upstream gradient G:
// G·Yᵀ and Xᵀ·G.
func matMulVJP[E any](upstream, x, y *container.Container[E]) ([]*container.Container[E], error) {
	dx, err := container.MatMul(upstream, y.T())
	if err != nil {
		return nil, errors.WithMessage(err, "gradient of the left operand of a matrix product")
	}
	dy, err := container.MatMul(x.T(), upstream)
	if err != nil {
		return nil, errors.WithMessage(err, "gradient of the right operand of a matrix product")
	}
	return []*container.Container[E]{dx, dy}, nil
}

// DivOp is x / y elementwise, with scalar broadcasting. The denominator is guarded by the
// algebra's epsilon.
type DivOp[E any] struct{}

func (DivOp[E]) Name() string { return "Div" }

func (DivOp[E]) Apply(x, y *container.Container[E]) (*container.Container[E], error) {
	return container.Divide(x, y)
}

// LocalDerivatives returns 1/y and -x/y².
func (DivOp[E]) LocalDerivatives(x, y *container.Container[E]) (dx, dy *container.Container[E], err error) {
	dx, err = container.Divide(container.OnesLike(y), y)
	if err != nil {
		return nil, nil, err
	}
	dy, err = container.Divide(x.Neg(), y)
	if err != nil {
		return nil, nil, err
	}
	dy, err = container.Divide(dy, y)
	if err != nil {
		return nil, nil, err
	}
	return dx, dy, nil
}

// ElementaryOp applies an elementary function (see package functions) to every element.
type ElementaryOp[E any] struct {
	Fn functions.Elementary
}

func (op ElementaryOp[E]) Name() string { return op.Fn.Name }

func (op ElementaryOp[E]) Apply(x *container.Container[E]) (*container.Container[E], error) {
	return x.Map(op.Fn)
}

func (op ElementaryOp[E]) LocalDerivative(x *container.Container[E]) (*container.Container[E], error) {
	return x.MapDerivative(op.Fn)
}

// TransposeOp is the (logical) transpose of x.
type TransposeOp[E any] struct{}

func (TransposeOp[E]) Name() string { return "Transpose" }

func (TransposeOp[E]) Apply(x *container.Container[E]) (*container.Container[E], error) {
	return x.T(), nil
}

func (TransposeOp[E]) LocalDerivative(x *container.Container[E]) (*container.Container[E], error) {
	return container.OnesLike(x), nil
}

// VJP implements VJPOperation: the gradient is transposed back.
func (TransposeOp[E]) VJP(upstream *container.Container[E], _, _ []*container.Container[E]) ([]*container.Container[E], error) {
	return []*container.Container[E]{upstream.T()}, nil
}

// Compile time checks.
var (
	_ BinaryOperation[float64] = AddOp[float64]{}
	_ BinaryOperation[float64] = SubOp[float64]{}
	_ BinaryOperation[float64] = MulOp[float64]{}
	_ BinaryOperation[float64] = DivOp[float64]{}
	_ VJPOperation[float64]    = MulOp[float64]{}
	_ BinaryOperation[float64] = MatMulOp[float64]{}
	_ BinaryOperation[float64] = HadamardOp[float64]{}
	_ VJPOperation[float64]    = MatMulOp[float64]{}
	_ UnaryOperation[float64]  = ElementaryOp[float64]{}
	_ UnaryOperation[float64]  = TransposeOp[float64]{}
	_ VJPOperation[float64]    = TransposeOp[float64]{}
	_ fmt.Stringer             = (*OperationNode[float64])(nil)
)
