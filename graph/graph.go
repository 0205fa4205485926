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

// Package graph implements a computation graph over containers, with forward evaluation and
// reverse-mode automatic differentiation.
//
// The main elements in the package are:
//
//   - Graph: the arena that owns all nodes. Nodes are referred to by stable ids (ValueId and
//     OperationId) and are never removed.
//
//   - ValueNode: holds a container.Container value, its gradient (after a backward pass) and
//     whether it is trainable. Leaves (parameters, inputs and constants) have no producer; the
//     other values are the output of exactly one OperationNode.
//
//   - OperationNode: a unary or binary operation over one or two child ValueNodes. A ValueNode can
//     be the child of any number of operations. Once its function is assigned (see AssignUnary and
//     AssignBinary) it can be evaluated and differentiated.
//
// Values and operations alternate to form a DAG. Since an operation can only be created over
// values that already exist, creation order is a topological order: Forward evaluates
// operations in increasing id order, and Backward visits them in decreasing order.
//
// ## Errors and panics
//
// Evaluation and differentiation (Forward, Backward, ObtainDer, ApplyGrad) return errors. The
// convenience graph-building functions (Add, Mul, Apply, etc.) panic on misuse instead, so
// models can be written as plain expressions. Use Graph.Build to convert those panics back into an
// error.
//
// ## Gradients of values used more than once
//
// When a value feeds more than one operation (or the same operation twice, as in x*x), the
// multivariable chain rule requires summing the contributions of every consumer. That is the
// default GradientMode, Accumulate. The Overwrite mode keeps only the last contribution written,
// which is only correct for tree-shaped graphs; it is kept for compatibility with models that
// relied on it.
//
// A Graph is not safe for concurrent use.
package graph

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gradgraph/types/container"
	"github.com/gomlx/gradgraph/types/xerrors"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ValueId is the unique id of a ValueNode within a Graph.
type ValueId int

// OperationId is the unique id of an OperationNode within a Graph.
type OperationId int

// InvalidValueId represents a non-existent value.
const InvalidValueId = ValueId(-1)

// InvalidOperationId is the producer of leaf values.
const InvalidOperationId = OperationId(-1)

// Graph holds the values and operations of a computation over containers of E.
type Graph[E any] struct {
	name         string
	alg          container.Algebra[E]
	gradientMode GradientMode

	values     []*ValueNode[E]
	operations []*OperationNode[E]
}

type options struct {
	name         string
	gradientMode GradientMode
}

// Option configures a new Graph.
type Option func(o *options)

// WithName sets the name of the graph, used for logging. The default is a random unique name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithGradientMode sets how Backward writes gradients of values used more than once.
// The default is Accumulate.
func WithGradientMode(mode GradientMode) Option {
	return func(o *options) { o.gradientMode = mode }
}

// New creates an empty Graph over containers using the given algebra.
func New[E any](alg container.Algebra[E], opts ...Option) *Graph[E] {
	o := &options{gradientMode: Accumulate}
	for _, opt := range opts {
		opt(o)
	}
	if o.name == "" {
		o.name = "graph-" + uuid.NewString()
	}
	return &Graph[E]{name: o.name, alg: alg, gradientMode: o.gradientMode}
}

// Name of the graph.
func (g *Graph[E]) Name() string { return g.name }

// Algebra used by the containers of the graph.
func (g *Graph[E]) Algebra() container.Algebra[E] { return g.alg }

// GradientMode returns how Backward writes gradients.
func (g *Graph[E]) GradientMode() GradientMode { return g.gradientMode }

// SetGradientMode changes how the next Backward writes gradients.
func (g *Graph[E]) SetGradientMode(mode GradientMode) { g.gradientMode = mode }

// NumValues returns the number of value nodes in the graph.
func (g *Graph[E]) NumValues() int { return len(g.values) }

// NumOperations returns the number of operation nodes in the graph.
func (g *Graph[E]) NumOperations() int { return len(g.operations) }

// Values returns all value nodes, in creation order.
func (g *Graph[E]) Values() []*ValueNode[E] { return append([]*ValueNode[E](nil), g.values...) }

// ValueById returns the value node with the given id, or nil if it doesn't exist.
func (g *Graph[E]) ValueById(id ValueId) *ValueNode[E] {
	if id < 0 || int(id) >= len(g.values) {
		return nil
	}
	return g.values[id]
}

// OperationById returns the operation node with the given id, or nil if it doesn't exist
// (e.g. InvalidOperationId, the producer of leaves).
func (g *Graph[E]) OperationById(id OperationId) *OperationNode[E] {
	if id < 0 || int(id) >= len(g.operations) {
		return nil
	}
	return g.operations[id]
}

// Trainables returns the trainable values, in creation order.
func (g *Graph[E]) Trainables() []*ValueNode[E] {
	var trainables []*ValueNode[E]
	for _, v := range g.values {
		if v.trainable {
			trainables = append(trainables, v)
		}
	}
	return trainables
}

// registerValue adds a new value node to the arena.
func (g *Graph[E]) registerValue(name string, value *container.Container[E], trainable bool, producer OperationId) *ValueNode[E] {
	v := &ValueNode[E]{
		graph:     g,
		id:        ValueId(len(g.values)),
		name:      name,
		value:     value,
		trainable: trainable,
		producer:  producer,
	}
	g.values = append(g.values, v)
	return v
}

// newOperation adds a new uninitialized operation node over the children, along with its
// output value node.
func (g *Graph[E]) newOperation(arity Arity, children ...*ValueNode[E]) *OperationNode[E] {
	for _, child := range children {
		if child == nil {
			exceptions.Panicf("graph %q: cannot create an operation over a nil value", g.name)
		}
		if child.graph != g {
			panic(errors.Wrapf(xerrors.ErrInvalidArgument, "graph %q: value %s belongs to graph %q",
				g.name, child, child.graph.name))
		}
	}
	op := &OperationNode[E]{
		graph:    g,
		id:       OperationId(len(g.operations)),
		arity:    arity,
		children: children,
	}
	g.operations = append(g.operations, op)
	op.output = g.registerValue("", nil, false, op.id).id
	return op
}

// NewUnary creates an uninitialized unary operation over x. Use AssignUnary to set its function.
func (g *Graph[E]) NewUnary(x *ValueNode[E]) *OperationNode[E] {
	return g.newOperation(Unary, x)
}

// NewBinary creates an uninitialized binary operation over x and y. Use AssignBinary to set its
// function.
func (g *Graph[E]) NewBinary(x, y *ValueNode[E]) *OperationNode[E] {
	return g.newOperation(Binary, x, y)
}

// SetValue replaces the value of a leaf, e.g. to feed new data to an Input. The new value must
// have the same shape as the current one.
func (g *Graph[E]) SetValue(v *ValueNode[E], value *container.Container[E]) error {
	if v.graph != g {
		return errors.Wrapf(xerrors.ErrInvalidArgument, "graph %q: value %s belongs to graph %q", g.name, v, v.graph.name)
	}
	if !v.IsLeaf() {
		return errors.Wrapf(xerrors.ErrIllegalState, "graph %q: cannot set the value of %s, it is computed by an operation", g.name, v)
	}
	if v.value != nil && !v.value.Shape().Equal(value.Shape()) {
		return errors.Wrapf(xerrors.ErrShapeMismatch, "graph %q: cannot set value of %s shaped %s to a value shaped %s",
			g.name, v, v.value.Shape(), value.Shape())
	}
	v.value = value
	return nil
}

// Build calls fn, and converts any panic with an error raised while building the graph into a
// returned error. Panics that are not errors are not recovered.
func (g *Graph[E]) Build(fn func()) error {
	err := exceptions.TryCatch[error](fn)
	if err != nil {
		return errors.WithMessagef(err, "while building graph %q", g.name)
	}
	return nil
}

// String implements fmt.Stringer. It lists all operations.
func (g *Graph[E]) String() string {
	parts := []string{fmt.Sprintf("Graph %q: %d values, %d operations", g.name, len(g.values), len(g.operations))}
	for _, op := range g.operations {
		parts = append(parts, fmt.Sprintf("\t%s", op))
	}
	return strings.Join(parts, "\n")
}
