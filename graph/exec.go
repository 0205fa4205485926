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
	"time"

	"github.com/gomlx/gradgraph/types/xerrors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// reachableOperations marks the operations the given values depend on, indexed by OperationId.
func (g *Graph[E]) reachableOperations(outputs ...*ValueNode[E]) []bool {
	reachable := make([]bool, len(g.operations))
	stack := make([]*ValueNode[E], 0, len(outputs))
	stack = append(stack, outputs...)
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if v.IsLeaf() || reachable[v.producer] {
			continue
		}
		reachable[v.producer] = true
		stack = append(stack, g.operations[v.producer].children...)
	}
	return reachable
}

func (g *Graph[E]) checkOwned(values ...*ValueNode[E]) error {
	for _, v := range values {
		if v == nil {
			return errors.Wrapf(xerrors.ErrInvalidArgument, "graph %q: nil value", g.name)
		}
		if v.graph != g {
			return errors.Wrapf(xerrors.ErrInvalidArgument, "graph %q: value %s belongs to graph %q", g.name, v, v.graph.name)
		}
	}
	return nil
}

// Forward evaluates the operations needed to compute the given outputs, in dependency order.
// If no outputs are given, all operations are evaluated.
//
// An error (e.g. a shape mismatch or a domain error) aborts the evaluation: values computed up to
// that point are kept, but the graph is not in a consistent state.
func (g *Graph[E]) Forward(outputs ...*ValueNode[E]) error {
	if err := g.checkOwned(outputs...); err != nil {
		return errors.WithMessage(err, "Forward")
	}
	var reachable []bool
	if len(outputs) > 0 {
		reachable = g.reachableOperations(outputs...)
	}
	start := time.Now()
	var count int
	for _, op := range g.operations {
		if reachable != nil && !reachable[op.id] {
			continue
		}
		if err := op.evaluate(); err != nil {
			return errors.WithMessagef(err, "Forward of graph %q", g.name)
		}
		count++
	}
	klog.V(1).Infof("graph %q: forward evaluated %d operations in %s", g.name, count, time.Since(start))
	return nil
}
