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

// Package graphtest holds test utilities for packages that depend on the graph package.
package graphtest

import (
	"math"
	"testing"

	"github.com/gomlx/gradgraph/graph"
	"github.com/gomlx/gradgraph/types/container"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/constraints"
)

// Tolerance used by CheckGradients: absolute for values smaller than 1, relative otherwise.
const Tolerance = 1e-6

// Step used for the centered finite differences.
const Step = 1e-5

// Close reports whether got is within tol of want. The tolerance is relative for values of want
// larger than 1 in absolute value.
func Close[T constraints.Float](want, got, tol T) bool {
	scale := T(math.Max(1, math.Abs(float64(want))))
	return T(math.Abs(float64(want-got))) <= tol*scale
}

// sumOf forwards the graph and returns the sum of the elements of root.
func sumOf(t *testing.T, g *graph.Graph[float64], root *graph.ValueNode[float64]) float64 {
	require.NoError(t, g.Forward(root))
	return root.Value().Sum()
}

// CheckGradients compares the gradients of root computed by Backward, with respect to each of
// the given leaves, with an estimate using centered finite differences. For non-scalar roots,
// the gradient of the sum of its elements is checked, which is what Backward computes when
// seeding the root with ones.
//
// The values of the leaves are restored at the end, and the gradients are the ones from Backward.
func CheckGradients(t *testing.T, g *graph.Graph[float64], root *graph.ValueNode[float64], leaves ...*graph.ValueNode[float64]) {
	t.Helper()
	require.NoError(t, g.Forward(root))
	require.NoError(t, g.Backward(root))
	analytic := make([][]float64, len(leaves))
	for ii, leaf := range leaves {
		require.Truef(t, leaf.HasGradient(), "leaf %s has no gradient", leaf)
		analytic[ii] = leaf.Gradient().Floats()
	}

	for ii, leaf := range leaves {
		original := leaf.Value()
		values := original.Values()
		for jj := range values {
			perturbed := func(delta float64) float64 {
				shifted := append([]float64(nil), values...)
				shifted[jj] += delta
				c, err := container.FromFlat(container.Float64, original.Shape(), shifted)
				require.NoError(t, err)
				require.NoError(t, g.SetValue(leaf, c))
				return sumOf(t, g, root)
			}
			numeric := (perturbed(Step) - perturbed(-Step)) / (2 * Step)
			require.Truef(t, Close(numeric, analytic[ii][jj], Tolerance),
				"gradient of %s with respect to %s[%d]: backward=%g, finite differences=%g",
				root, leaf, jj, analytic[ii][jj], numeric)
		}
		require.NoError(t, g.SetValue(leaf, original))
	}
	require.NoError(t, g.Forward(root))
}
