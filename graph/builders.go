package graph

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gradgraph/types/container"
	"github.com/gomlx/gradgraph/types/functions"
	"github.com/gomlx/gradgraph/types/shapes"
	"github.com/pkg/errors"
)

// This file holds the convenience graph-building functions. They panic on misuse, see
// Graph.Build to convert the panics into an error.

// Parameter creates a trainable leaf with the given initial value.
func Parameter[E any](g *Graph[E], name string, value *container.Container[E]) *ValueNode[E] {
	if value == nil {
		exceptions.Panicf("graph %q: Parameter(%q) with a nil value", g.name, name)
	}
	return g.registerValue(name, value, true, InvalidOperationId)
}

// Constant creates a non-trainable leaf.
func Constant[E any](g *Graph[E], value *container.Container[E]) *ValueNode[E] {
	if value == nil {
		exceptions.Panicf("graph %q: Constant with a nil value", g.name)
	}
	return g.registerValue("", value, false, InvalidOperationId)
}

// Input creates a non-trainable leaf initialized with zeros of the given shape. Feed it with
// Graph.SetValue.
func Input[E any](g *Graph[E], name string, shape shapes.Shape) *ValueNode[E] {
	value, err := container.Zeros(g.alg, shape.Rows, shape.Cols)
	if err != nil {
		panic(errors.WithMessagef(err, "graph %q: Input(%q)", g.name, name))
	}
	return g.registerValue(name, value, false, InvalidOperationId)
}

// validateGraphFromInputs returns the graph common to all the values, or panics.
func validateGraphFromInputs[E any](values ...*ValueNode[E]) *Graph[E] {
	var g *Graph[E]
	for ii, v := range values {
		if v == nil {
			exceptions.Panicf("operand #%d is nil", ii)
		}
		if g == nil {
			g = v.graph
		} else if v.graph != g {
			exceptions.Panicf("operands belong to different graphs %q and %q", g.name, v.graph.name)
		}
	}
	return g
}

func unaryOp[E any](x *ValueNode[E], fn UnaryOperation[E]) *ValueNode[E] {
	g := validateGraphFromInputs(x)
	op := g.NewUnary(x)
	if err := op.AssignUnary(fn); err != nil {
		panic(err)
	}
	return op.Output()
}

func binaryOp[E any](x, y *ValueNode[E], fn BinaryOperation[E]) *ValueNode[E] {
	g := validateGraphFromInputs(x, y)
	op := g.NewBinary(x, y)
	if err := op.AssignBinary(fn); err != nil {
		panic(err)
	}
	return op.Output()
}

// Add returns x + y. See container.Add.
func Add[E any](x, y *ValueNode[E]) *ValueNode[E] { return binaryOp(x, y, AddOp[E]{}) }

// Sub returns x - y. See container.Subtract.
func Sub[E any](x, y *ValueNode[E]) *ValueNode[E] { return binaryOp(x, y, SubOp[E]{}) }

// Mul returns x · y: a matrix product if both are matrices, elementwise otherwise.
// See container.Multiply.
func Mul[E any](x, y *ValueNode[E]) *ValueNode[E] { return binaryOp(x, y, MulOp[E]{}) }

// MatMul returns the matrix product x · y, whatever the kinds of x and y. See container.MatMul.
//
// If both shapes are already known (e.g. leaves), the inner dimensions are checked right away.
func MatMul[E any](x, y *ValueNode[E]) *ValueNode[E] {
	if x != nil && y != nil && x.Shape().Ok() && y.Shape().Ok() {
		shapes.AssertDims(y, x.Shape().Cols, shapes.UncheckedDim)
	}
	return binaryOp(x, y, MatMulOp[E]{})
}

// Hadamard returns the elementwise product x ⊙ y, with scalar broadcasting. See container.Hadamard.
func Hadamard[E any](x, y *ValueNode[E]) *ValueNode[E] { return binaryOp(x, y, HadamardOp[E]{}) }

// Div returns x / y elementwise. See container.Divide.
func Div[E any](x, y *ValueNode[E]) *ValueNode[E] { return binaryOp(x, y, DivOp[E]{}) }

// Transpose returns xᵀ.
func Transpose[E any](x *ValueNode[E]) *ValueNode[E] { return unaryOp(x, TransposeOp[E]{}) }

// Apply returns fn applied to every element of x.
func Apply[E any](x *ValueNode[E], fn functions.Elementary) *ValueNode[E] {
	return unaryOp(x, ElementaryOp[E]{Fn: fn})
}

// ApplyNamed returns the elementary function registered under name applied to every element of x.
// It panics if the name is not a valid function, see functions.Registry.Function.
func ApplyNamed[E any](x *ValueNode[E], registry *functions.Registry, name string, power ...float64) *ValueNode[E] {
	fn, err := registry.Function(name, power...)
	if err != nil {
		panic(err)
	}
	return Apply(x, fn)
}
