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
	"github.com/gomlx/gradgraph/types/container"
	"github.com/gomlx/gradgraph/types/sensitivity"
	"github.com/gomlx/gradgraph/types/xerrors"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"
)

func TestForward(t *testing.T) {
	g := New(container.Float64)
	x := Parameter(g, "x", container.MustMatrix([][]float64{{1, 2}, {3, 4}}))
	y := Add(Mul(x, x), Constant(g, container.Scalar(1)))
	// z is not reachable from y, and it is not valid.
	z := Add(x, Constant(g, must.M1(container.Vector(1, 2, 3))))

	require.NoError(t, g.Forward(y))
	require.Equal(t, []float64{8, 11, 16, 23}, y.Value().Values())
	require.Nil(t, z.Value())

	err := g.Forward()
	require.True(t, xerrors.IsShapeMismatch(err))

	// Forward again reflects new leaf values.
	require.NoError(t, g.SetValue(x, container.MustMatrix([][]float64{{0, 0}, {0, 0}})))
	require.NoError(t, g.Forward(y))
	require.Equal(t, []float64{1, 1, 1, 1}, y.Value().Values())
}

func TestForwardErrors(t *testing.T) {
	g := New(container.Float64)
	x := Parameter(g, "x", must.M1(container.Vector(1, -1)))
	y := ApplyNamed(x, registry, "log")
	err := g.Forward(y)
	require.True(t, xerrors.IsDomain(err))

	op := g.NewUnary(x)
	err = g.Forward(op.Output())
	require.True(t, xerrors.IsIllegalState(err))

	other := New(container.Float64)
	err = other.Forward(y)
	require.True(t, xerrors.IsInvalidArgument(err))

	a := Parameter(g, "a", container.MustMatrix([][]float64{{1, 2, 3}, {4, 5, 6}}))
	b := Parameter(g, "b", must.M1(container.Zeros(container.Float64, 4, 2)))
	err = g.Forward(Mul(a, b))
	require.True(t, xerrors.IsShapeMismatch(err))
}

func TestBuild(t *testing.T) {
	g := New(container.Float64)
	other := New(container.Float64)
	x := Parameter(g, "x", container.Scalar(1))
	y := Parameter(other, "y", container.Scalar(1))

	err := g.Build(func() { Add(x, y) })
	require.Error(t, err)

	err = g.Build(func() { ApplyNamed(x, registry, "softplus") })
	require.True(t, xerrors.IsNotFound(err))

	err = g.Build(func() { ApplyNamed(x, registry, "relu_deriv") })
	require.True(t, xerrors.IsInvalidArgument(err))

	var out *ValueNode[float64]
	require.NoError(t, g.Build(func() { out = Apply(x, registry.MustFunction("exp")) }))
	require.NotNil(t, out)

	// Inner dimensions of known shapes are checked while building.
	a := Parameter(g, "a", must.M1(container.Zeros(container.Float64, 2, 3)))
	b := Parameter(g, "b", must.M1(container.Zeros(container.Float64, 2, 3)))
	err = g.Build(func() { MatMul(a, b) })
	require.True(t, xerrors.IsShapeMismatch(err))
	require.NoError(t, g.Build(func() { out = MatMul(a, Transpose(b)) }))
	require.NoError(t, g.Forward(out))
	require.Equal(t, 2, out.Shape().Rows)
	require.Equal(t, 2, out.Shape().Cols)
}

func TestSensitivityGraph(t *testing.T) {
	// Graphs over sensitivity scalars carry forward-mode partials through the forward pass,
	// which must agree with the backward pass.
	var alg sensitivity.Algebra
	g := New[*sensitivity.Scalar](alg)
	v := sensitivity.Variable(2)
	x := Parameter(g, "x", container.FromScalar[*sensitivity.Scalar](alg, v))
	y := Mul(ApplyNamed(x, registry, "sin"), x)
	require.NoError(t, g.Forward(y))
	require.NoError(t, g.Backward(y))

	forward := must.M1(y.Value().Item()).Partial(v)
	backward := must.M1(x.Gradient().Item()).Value()
	require.InDelta(t, forward, backward, 1e-12)
}
