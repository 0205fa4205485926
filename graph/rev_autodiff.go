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
	"time"

	"github.com/gomlx/gradgraph/types/container"
	"github.com/gomlx/gradgraph/types/xerrors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// This file implements reverse-mode automatic differentiation.
//
// Conventions:
//
// * root: the value whose gradient is computed. It is seeded with ones shaped like its value.
// * upstream: the gradient of the root with respect to the output of the operation being visited.
// * contribution: the part of the gradient of a child that comes from one of its consumers,
//   computed from upstream and the local derivatives of the operation (see VJPOperation).
//
// Operations are visited in decreasing id order: since consumers are always created after the
// values they consume, by the time an operation is visited, all the consumers of its output have
// already contributed to its gradient.

// GradientMode defines how Backward writes the contributions to the gradient of a value.
type GradientMode int

const (
	// Accumulate sums the contributions of all consumers: the multivariable chain rule.
	Accumulate GradientMode = iota

	// Overwrite keeps only the last contribution written. It is only correct if every value
	// is consumed at most once.
	Overwrite
)

// String implements fmt.Stringer.
func (m GradientMode) String() string {
	switch m {
	case Accumulate:
		return "accumulate"
	case Overwrite:
		return "overwrite"
	default:
		return fmt.Sprintf("GradientMode(%d)", int(m))
	}
}

// ParseGradientMode parses "accumulate" or "overwrite" (case-insensitive).
func ParseGradientMode(s string) (GradientMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accumulate":
		return Accumulate, nil
	case "overwrite":
		return Overwrite, nil
	default:
		return Accumulate, errors.Wrapf(xerrors.ErrInvalidArgument, "unknown gradient mode %q, valid values are \"accumulate\" and \"overwrite\"", s)
	}
}

// ClearGradients resets the gradients of all values.
func (g *Graph[E]) ClearGradients() {
	for _, v := range g.values {
		v.gradient = nil
	}
}

// Backward computes the gradient of root with respect to every value it depends on, and writes
// it to the values (see ValueNode.Gradient). Forward must have been called for root first.
//
// The gradients of the previous pass are cleared. Values root doesn't depend on are left with no
// gradient.
//
// Failures (e.g. an operation with no function, a shape mismatch) abort the pass: the gradients
// are then not consistent, and the pass must be redone.
func (g *Graph[E]) Backward(root *ValueNode[E]) error {
	if err := g.checkOwned(root); err != nil {
		return errors.WithMessage(err, "Backward")
	}
	if root.value == nil {
		return errors.Wrapf(xerrors.ErrIllegalState, "Backward(%s): root value not computed, call Forward first", root)
	}
	start := time.Now()
	g.ClearGradients()
	if err := root.GiveGrad(container.OnesLike(root.value)); err != nil {
		return err
	}

	reachable := g.reachableOperations(root)
	var count, overwritten int
	for opId := len(g.operations) - 1; opId >= 0; opId-- {
		if !reachable[opId] {
			continue
		}
		op := g.operations[opId]
		upstream := op.Output().gradient
		if upstream == nil {
			continue
		}
		if err := op.ObtainDer(); err != nil {
			return errors.WithMessagef(err, "Backward(%s)", root)
		}
		contributions, err := op.contributions(upstream)
		if err != nil {
			return errors.WithMessagef(err, "Backward(%s): gradient of %s", root, op)
		}
		for ii, child := range op.children {
			if g.gradientMode == Overwrite {
				if child.gradient != nil {
					overwritten++
				}
				err = child.GiveGrad(contributions[ii])
			} else {
				err = child.accumulateGrad(contributions[ii])
			}
			if err != nil {
				return errors.WithMessagef(err, "Backward(%s): gradient of %s", root, op)
			}
		}
		count++
	}
	if overwritten > 0 {
		klog.Warningf("graph %q: Backward(%s) in overwrite mode dropped %d gradient contributions of values used more than once",
			g.name, root, overwritten)
	}
	klog.V(1).Infof("graph %q: backward from %s through %d operations in %s", g.name, root, count, time.Since(start))
	return nil
}

// ApplyGrad does a gradient descent step on every trainable value: value ← value - gradient.
// See ValueNode.ApplyGrad.
func (g *Graph[E]) ApplyGrad() error {
	for _, v := range g.values {
		if err := v.ApplyGrad(); err != nil {
			return err
		}
	}
	return nil
}
