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
	"strings"

	"github.com/gomlx/gradgraph/types/container"
	"github.com/gomlx/gradgraph/types/shapes"
	"github.com/gomlx/gradgraph/types/xerrors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ValueNode holds a value of the graph: a leaf (parameter, input or constant) or the output of
// an operation.
type ValueNode[E any] struct {
	graph *Graph[E]
	id    ValueId
	name  string

	value     *container.Container[E]
	gradient  *container.Container[E]
	trainable bool

	// producer is the operation that computes this value, InvalidOperationId for leaves.
	producer OperationId
}

// Graph that holds this value.
func (v *ValueNode[E]) Graph() *Graph[E] { return v.graph }

// Id is the unique id of this value within the Graph.
func (v *ValueNode[E]) Id() ValueId { return v.id }

// Name of the value. Values computed by operations are named after the operation.
func (v *ValueNode[E]) Name() string {
	if v.name != "" {
		return v.name
	}
	if op := v.graph.OperationById(v.producer); op != nil {
		return fmt.Sprintf("%s#%d", op.FunctionName(), v.id)
	}
	return fmt.Sprintf("value#%d", v.id)
}

// Value returns the current value. For values computed by operations it is nil until the
// first Forward that reaches it.
func (v *ValueNode[E]) Value() *container.Container[E] { return v.value }

// Shape of the current value, or an invalid shape if it has not been computed yet.
func (v *ValueNode[E]) Shape() shapes.Shape {
	if v.value == nil {
		return shapes.Invalid()
	}
	return v.value.Shape()
}

// Gradient of the root of the last backward pass with respect to this value. It is nil until a
// backward pass reached this value.
func (v *ValueNode[E]) Gradient() *container.Container[E] { return v.gradient }

// HasGradient returns whether a gradient was written to this value.
func (v *ValueNode[E]) HasGradient() bool { return v.gradient != nil }

// Trainable returns whether ApplyGrad updates this value.
func (v *ValueNode[E]) Trainable() bool { return v.trainable }

// IsLeaf returns whether this value has no producer.
func (v *ValueNode[E]) IsLeaf() bool { return v.producer == InvalidOperationId }

// Producer returns the id of the operation that computes this value, or InvalidOperationId for
// leaves. Use Graph.OperationById to get the operation itself.
func (v *ValueNode[E]) Producer() OperationId { return v.producer }

// GiveGrad sets the gradient of the value, replacing any previous one. The gradient must have the
// shape of the value.
//
// Backward uses it to write the gradients, and optimizers to write the update to be used by ApplyGrad.
func (v *ValueNode[E]) GiveGrad(gradient *container.Container[E]) error {
	if gradient == nil {
		return errors.Wrapf(xerrors.ErrInvalidArgument, "GiveGrad(%s): nil gradient", v)
	}
	if v.value == nil {
		return errors.Wrapf(xerrors.ErrIllegalState, "GiveGrad(%s): value has not been computed", v)
	}
	if !gradient.Shape().Equal(v.value.Shape()) {
		return errors.Wrapf(xerrors.ErrShapeMismatch, "GiveGrad(%s): gradient shaped %s for value shaped %s",
			v, gradient.Shape(), v.value.Shape())
	}
	v.gradient = gradient
	return nil
}

// accumulateGrad adds the contribution to the gradient, or sets it if there is none yet.
func (v *ValueNode[E]) accumulateGrad(contribution *container.Container[E]) error {
	if v.gradient == nil {
		return v.GiveGrad(contribution)
	}
	sum, err := container.Add(v.gradient, contribution)
	if err != nil {
		return errors.WithMessagef(err, "accumulating gradient of %s", v)
	}
	return v.GiveGrad(sum)
}

// ApplyGrad does a plain gradient descent step, value ← value - gradient, if the value is
// trainable and has a gradient. It is a no-op otherwise.
//
// The step size is 1: any scaling (learning rate) must be applied to the gradient before, see GiveGrad.
func (v *ValueNode[E]) ApplyGrad() error {
	if !v.trainable || v.gradient == nil {
		return nil
	}
	updated, err := container.Subtract(v.value, v.gradient)
	if err != nil {
		return errors.WithMessagef(err, "ApplyGrad(%s)", v)
	}
	v.value = updated
	return nil
}

// String implements fmt.Stringer.
func (v *ValueNode[E]) String() string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s%s", v.Name(), v.Shape())
}

// Arity of an operation: the number of children.
type Arity int

const (
	Unary  Arity = 1
	Binary Arity = 2
)

// String implements fmt.Stringer.
func (a Arity) String() string {
	switch a {
	case Unary:
		return "unary"
	case Binary:
		return "binary"
	default:
		return fmt.Sprintf("Arity(%d)", int(a))
	}
}

// State of an OperationNode.
type State int

const (
	// Uninitialized operations have their children set, but no function assigned.
	Uninitialized State = iota

	// Ready operations have a function assigned, and can be evaluated.
	Ready

	// Differentiated operations have their local derivatives computed by ObtainDer.
	Differentiated
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Ready:
		return "Ready"
	case Differentiated:
		return "Differentiated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// OperationNode computes its output value from one or two children values.
type OperationNode[E any] struct {
	graph    *Graph[E]
	id       OperationId
	arity    Arity
	children []*ValueNode[E]
	output   ValueId
	state    State

	// Only one of unary or binary is set, matching arity.
	unary  UnaryOperation[E]
	binary BinaryOperation[E]

	localDerivatives []*container.Container[E]
}

// Graph that holds this operation.
func (op *OperationNode[E]) Graph() *Graph[E] { return op.graph }

// Id is the unique id of this operation within the Graph.
func (op *OperationNode[E]) Id() OperationId { return op.id }

// Arity returns whether the operation is unary or binary.
func (op *OperationNode[E]) Arity() Arity { return op.arity }

// Children returns the operands of the operation.
func (op *OperationNode[E]) Children() []*ValueNode[E] {
	return append([]*ValueNode[E](nil), op.children...)
}

// Output returns the value computed by the operation.
func (op *OperationNode[E]) Output() *ValueNode[E] { return op.graph.values[op.output] }

// State of the operation.
func (op *OperationNode[E]) State() State { return op.state }

// FunctionAssigned returns whether the operation has its function assigned.
func (op *OperationNode[E]) FunctionAssigned() bool { return op.state != Uninitialized }

// FunctionName returns the name of the assigned function, or "uninitialized".
func (op *OperationNode[E]) FunctionName() string {
	switch {
	case op.unary != nil:
		return op.unary.Name()
	case op.binary != nil:
		return op.binary.Name()
	default:
		return "uninitialized"
	}
}

// LocalDerivatives returns the derivatives of the function with respect to each operand,
// computed by the last ObtainDer. It is nil before that.
func (op *OperationNode[E]) LocalDerivatives() []*container.Container[E] {
	if op.localDerivatives == nil {
		return nil
	}
	return append([]*container.Container[E](nil), op.localDerivatives...)
}

func (op *OperationNode[E]) checkAssignable(arity Arity, name string) error {
	if op.arity != arity {
		return errors.Wrapf(xerrors.ErrInvalidArgument, "cannot assign %s function %q to %s operation #%d",
			arity, name, op.arity, op.id)
	}
	if op.state != Uninitialized {
		return errors.Wrapf(xerrors.ErrIllegalState, "operation #%d already has function %q assigned, cannot reassign it to %q",
			op.id, op.FunctionName(), name)
	}
	return nil
}

// AssignUnary sets the function of a unary operation. It fails with an xerrors.ErrInvalidArgument
// if the operation is binary, and with an xerrors.ErrIllegalState if a function was already assigned.
func (op *OperationNode[E]) AssignUnary(fn UnaryOperation[E]) error {
	if err := op.checkAssignable(Unary, fn.Name()); err != nil {
		return err
	}
	op.unary = fn
	op.state = Ready
	return nil
}

// AssignBinary sets the function of a binary operation. It fails with an xerrors.ErrInvalidArgument
// if the operation is unary, and with an xerrors.ErrIllegalState if a function was already assigned.
func (op *OperationNode[E]) AssignBinary(fn BinaryOperation[E]) error {
	if err := op.checkAssignable(Binary, fn.Name()); err != nil {
		return err
	}
	op.binary = fn
	op.state = Ready
	return nil
}

// operands returns the children values, failing if any is not computed yet.
func (op *OperationNode[E]) operands() ([]*container.Container[E], error) {
	if op.state == Uninitialized {
		return nil, errors.Wrapf(xerrors.ErrIllegalState, "operation #%d: node not completely initialized, no function assigned", op.id)
	}
	values := make([]*container.Container[E], len(op.children))
	for ii, child := range op.children {
		if child.value == nil {
			return nil, errors.Wrapf(xerrors.ErrIllegalState, "operation %s: operand %s has not been computed", op, child)
		}
		values[ii] = child.value
	}
	return values, nil
}

// evaluate computes the output value from the current children values.
func (op *OperationNode[E]) evaluate() error {
	operands, err := op.operands()
	if err != nil {
		return err
	}
	var out *container.Container[E]
	if op.arity == Unary {
		out, err = op.unary.Apply(operands[0])
	} else {
		out, err = op.binary.Apply(operands[0], operands[1])
	}
	if err != nil {
		return errors.WithMessagef(err, "evaluating %s", op)
	}
	op.Output().value = out
	if klog.V(2).Enabled() {
		klog.Infof("graph %q: %s = %s", op.graph.name, op.Output().Name(), out)
	}
	return nil
}

// ObtainDer computes the derivatives of the function with respect to each operand, at the
// current operand values, and stores them (see LocalDerivatives). It fails with an
// xerrors.ErrIllegalState if the operation has no function assigned.
func (op *OperationNode[E]) ObtainDer() error {
	operands, err := op.operands()
	if err != nil {
		return err
	}
	var locals []*container.Container[E]
	if op.arity == Unary {
		var d *container.Container[E]
		d, err = op.unary.LocalDerivative(operands[0])
		locals = []*container.Container[E]{d}
	} else {
		var dx, dy *container.Container[E]
		dx, dy, err = op.binary.LocalDerivatives(operands[0], operands[1])
		locals = []*container.Container[E]{dx, dy}
	}
	if err != nil {
		return errors.WithMessagef(err, "differentiating %s", op)
	}
	op.localDerivatives = locals
	op.state = Differentiated
	return nil
}

// contributions returns the gradient contribution for each child, given the gradient of the
// output (upstream). ObtainDer must have been called.
func (op *OperationNode[E]) contributions(upstream *container.Container[E]) ([]*container.Container[E], error) {
	operands, err := op.operands()
	if err != nil {
		return nil, err
	}
	var fn any = op.unary
	if op.arity == Binary {
		fn = op.binary
	}
	if custom, ok := fn.(VJPOperation[E]); ok {
		return custom.VJP(upstream, operands, op.localDerivatives)
	}
	return defaultVJP(upstream, operands, op.localDerivatives)
}

// String implements fmt.Stringer.
func (op *OperationNode[E]) String() string {
	names := make([]string, len(op.children))
	for ii, child := range op.children {
		names[ii] = child.Name()
	}
	return fmt.Sprintf("#%d %s(%s) -> %s [%s]", op.id, op.FunctionName(), strings.Join(names, ", "),
		op.Output().Name(), op.state)
}
