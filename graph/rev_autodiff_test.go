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

package graph_test

import (
	"testing"

	. "github.com/gomlx/gradgraph/graph"
	"github.com/gomlx/gradgraph/graph/graphtest"
	"github.com/gomlx/gradgraph/types/container"
	"github.com/gomlx/gradgraph/types/xerrors"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"
)

func TestGradientAdd(t *testing.T) {
	g := New(container.Float64)
	c1 := Parameter(g, "c1", must.M1(container.Vector(1, 2)))
	c2 := Parameter(g, "c2", container.Scalar(10))
	output := Add(c1, c2)
	require.NoError(t, g.Forward(output))
	require.NoError(t, g.Backward(output))
	require.Equal(t, []float64{11, 12}, output.Value().Values())
	require.Equal(t, []float64{1, 1}, c1.Gradient().Values())
	// The broadcast scalar receives the sum of the gradients of the elements it was added to.
	require.Equal(t, []float64{2}, c2.Gradient().Values())
	require.Equal(t, []float64{1, 1}, output.Gradient().Values())
}

func TestGradientsMatchFiniteDifferences(t *testing.T) {
	type testCase struct {
		name  string
		build func(g *Graph[float64]) (root *ValueNode[float64], leaves []*ValueNode[float64])
	}
	matrix := func(g *Graph[float64], name string, rows [][]float64) *ValueNode[float64] {
		return Parameter(g, name, container.MustMatrix(rows))
	}
	cases := []testCase{
		{"MatMul+Add", func(g *Graph[float64]) (*ValueNode[float64], []*ValueNode[float64]) {
			a := matrix(g, "a", [][]float64{{1, -2}, {0.5, 3}})
			b := matrix(g, "b", [][]float64{{0.3, 1}, {-1, 2}})
			return Add(Mul(a, b), a), []*ValueNode[float64]{a, b}
		}},
		{"Div-Sin", func(g *Graph[float64]) (*ValueNode[float64], []*ValueNode[float64]) {
			a := matrix(g, "a", [][]float64{{1, -2, 0.1}, {0.5, 3, -1e-3}})
			b := matrix(g, "b", [][]float64{{2, -1, 1.5}, {-3, 0.7, 4}})
			return Sub(Div(a, b), ApplyNamed(a, registry, "sin")), []*ValueNode[float64]{a, b}
		}},
		{"ScalarBroadcast", func(g *Graph[float64]) (*ValueNode[float64], []*ValueNode[float64]) {
			s := Parameter(g, "s", container.Scalar(-0.7))
			m := matrix(g, "m", [][]float64{{1, 2, 3}, {4, 5, 6}})
			return Add(Mul(s, m), Div(m, s)), []*ValueNode[float64]{s, m}
		}},
		{"ScalarOverVector", func(g *Graph[float64]) (*ValueNode[float64], []*ValueNode[float64]) {
			s := Parameter(g, "s", container.Scalar(2))
			v := Parameter(g, "v", must.M1(container.Vector(1, -3, 0.5)))
			return Div(s, v), []*ValueNode[float64]{s, v}
		}},
		{"Transpose", func(g *Graph[float64]) (*ValueNode[float64], []*ValueNode[float64]) {
			a := matrix(g, "a", [][]float64{{1, 2}, {3, 4}, {5, 6}})
			b := matrix(g, "b", [][]float64{{0.1, 0.2}, {-0.3, 0.4}, {0.5, -0.6}})
			return Mul(Transpose(a), b), []*ValueNode[float64]{a, b}
		}},
		{"Elementary", func(g *Graph[float64]) (*ValueNode[float64], []*ValueNode[float64]) {
			v := Parameter(g, "v", must.M1(container.Vector(0.3, 1.2, 2)))
			w := Parameter(g, "w", must.M1(container.Vector(-0.5, 0.1, 1)))
			tanh := ApplyNamed(w, registry, "tanh")
			sigmoid := ApplyNamed(Mul(v, w), registry, "sigmoid")
			logs := ApplyNamed(v, registry, "log")
			cube := ApplyNamed(w, registry, "power", 3)
			return Add(Mul(Add(tanh, sigmoid), logs), Apply(cube, registry.MustFunction("exp"))),
				[]*ValueNode[float64]{v, w}
		}},
		{"VectorLinear", func(g *Graph[float64]) (*ValueNode[float64], []*ValueNode[float64]) {
			w := matrix(g, "w", [][]float64{{0.5, -1, 2}, {1, 0.2, -0.3}})
			x := Constant(g, must.M1(container.Vector(1, 2, 3)))
			bias := Parameter(g, "bias", must.M1(container.Vector(0.1, -0.1)))
			// w is a matrix and x a vector, so Mul would be elementwise.
			h := Add(MatMul(w, x), bias)
			return ApplyNamed(h, registry, "tanh"), []*ValueNode[float64]{w, bias}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := New(container.Float64, WithName(tc.name))
			root, leaves := tc.build(g)
			graphtest.CheckGradients(t, g, root, leaves...)
		})
	}
}

func TestSharedConsumer(t *testing.T) {
	// y = x * x uses x twice: the multivariable chain rule gives dy/dx = 2x, while overwriting the
	// gradient keeps only one of the contributions, x.
	for _, tc := range []struct {
		mode GradientMode
		want float64
	}{
		{Accumulate, 6},
		{Overwrite, 3},
	} {
		t.Run(tc.mode.String(), func(t *testing.T) {
			g := New(container.Float64, WithGradientMode(tc.mode))
			x := Parameter(g, "x", container.Scalar(3))
			y := Mul(x, x)
			require.NoError(t, g.Forward(y))
			require.NoError(t, g.Backward(y))
			require.Equal(t, 9.0, must.M1(y.Value().Item()))
			require.Equal(t, tc.want, must.M1(x.Gradient().Item()))
		})
	}

	// Same with the value shared by two different operations.
	g := New(container.Float64)
	x := Parameter(g, "x", container.Scalar(3))
	y := Add(ApplyNamed(x, registry, "power", 2), Mul(x, Constant(g, container.Scalar(4))))
	require.NoError(t, g.Forward(y))
	require.NoError(t, g.Backward(y))
	require.InDelta(t, 2*3+4, must.M1(x.Gradient().Item()), 1e-9)
}

func TestBackwardPasses(t *testing.T) {
	g := New(container.Float64)
	x := Parameter(g, "x", container.Scalar(3))
	unused := Parameter(g, "unused", container.Scalar(1))
	y := Mul(x, x)

	err := g.Backward(y)
	require.True(t, xerrors.IsIllegalState(err), "Backward before Forward")

	require.NoError(t, g.Forward(y))
	require.NoError(t, g.Backward(y))
	require.Equal(t, 6.0, must.M1(x.Gradient().Item()))
	require.False(t, unused.HasGradient())

	// A second pass doesn't accumulate on top of the first one.
	require.NoError(t, g.Backward(y))
	require.Equal(t, 6.0, must.M1(x.Gradient().Item()))
	op := g.OperationById(y.Producer())
	require.Equal(t, Differentiated, op.State())

	// Gradient descent step.
	require.NoError(t, g.ApplyGrad())
	require.Equal(t, -3.0, must.M1(x.Value().Item()))
}

func TestParseGradientMode(t *testing.T) {
	require.Equal(t, Overwrite, must.M1(ParseGradientMode("Overwrite")))
	require.Equal(t, Accumulate, must.M1(ParseGradientMode(" accumulate ")))
	_, err := ParseGradientMode("sum")
	require.True(t, xerrors.IsInvalidArgument(err))
}
