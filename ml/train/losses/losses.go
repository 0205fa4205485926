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

// Package losses have a few standard losses that build on the graph operations. They return
// the loss per element: train.Loop minimizes the sum of the elements.
package losses

import (
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gradgraph/graph"
	"github.com/gomlx/gradgraph/types/container"
	"github.com/gomlx/gradgraph/types/functions"
	"github.com/gomlx/gradgraph/types/shapes"
)

// LossFn takes the labels and the predictions of a model and returns the loss to be minimized.
type LossFn[E any] func(labels, predictions *ValueNode[E]) (loss *ValueNode[E])

var registry = functions.New()

// constant returns a scalar constant with the value v.
func constant[E any](g *Graph[E], v float64) *ValueNode[E] {
	return Constant(g, container.FromScalar(g.Algebra(), g.Algebra().FromFloat(v)))
}

// SquaredError returns (labels - predictions)² per element.
//
// labels and predictions must have the same shape, checked when the graph is executed.
func SquaredError[E any](labels, predictions *ValueNode[E]) (loss *ValueNode[E]) {
	return ApplyNamed(Sub(labels, predictions), registry, functions.PowerName, 2)
}

// MeanSquaredError returns the squared error per element divided by the number of elements, so
// its sum is the mean squared error.
//
// labels must be a leaf (an Input or a Constant), whose shape is known when building the graph.
// If the shape of predictions is also known, they must match.
func MeanSquaredError[E any](labels, predictions *ValueNode[E]) (loss *ValueNode[E]) {
	if !labels.IsLeaf() {
		Panicf("MeanSquaredError: labels %s must be a leaf, with a known shape", labels)
	}
	if predictions.Shape().Ok() {
		shapes.AssertDims(predictions, labels.Shape().Rows, labels.Shape().Cols)
	}
	loss = SquaredError(labels, predictions)
	return Div(loss, constant(loss.Graph(), float64(labels.Shape().Size())))
}

// BinaryCrossentropyLogits returns the binary cross-entropy per element, computed from the logits:
// log(1 + exp(logits)) - labels ⊙ logits. The labels are expected to be 0 or 1.
//
// It is computed naively, and overflows for large logits.
func BinaryCrossentropyLogits[E any](labels, logits *ValueNode[E]) (loss *ValueNode[E]) {
	g := logits.Graph()
	softplus := ApplyNamed(Add(constant(g, 1), ApplyNamed(logits, registry, "exp")), registry, "log")
	return Sub(softplus, Hadamard(labels, logits))
}
