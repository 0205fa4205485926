package optimizers_test

import (
	"testing"

	. "github.com/gomlx/gradgraph/graph"
	"github.com/gomlx/gradgraph/ml/train"
	. "github.com/gomlx/gradgraph/ml/train/optimizers"
	"github.com/gomlx/gradgraph/types/container"
	"github.com/gomlx/gradgraph/types/functions"
	"github.com/gomlx/gradgraph/types/xerrors"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	params := AddParams(train.NewParams())
	opt := must.M1(FromParams(params))
	require.IsType(t, &train.SGD[float64]{}, opt)
	require.Equal(t, 0.1, opt.(*train.SGD[float64]).LearningRate)
	require.Equal(t, []string{"sgd"}, Names())

	// Only fixed-step gradient descent is available.
	for _, name := range []string{"adam", "rmsprop"} {
		_, err := ByName(params, name)
		require.Truef(t, xerrors.IsInvalidArgument(err), "optimizer %q", name)
	}
	require.NoError(t, train.ParseSettings(params, "optimizer=adam"))
	_, err := FromParams(params)
	require.True(t, xerrors.IsInvalidArgument(err))

	// Names returns a copy.
	names := Names()
	names[0] = "adam"
	require.Equal(t, []string{"sgd"}, Names())
}

func TestSGDFromParams(t *testing.T) {
	// Loss (x - 2)², with x starting at 3.
	g := New(container.Float64)
	x := Parameter(g, "x", container.Scalar(3))
	loss := ApplyNamed(Sub(x, Constant(g, container.Scalar(2))), functions.New(), functions.PowerName, 2)

	params := AddParams(train.NewParams())
	require.NoError(t, train.ParseSettings(params, "optimizer=sgd;learning_rate=0.25"))
	opt := must.M1(FromParams(params))
	require.NoError(t, g.Forward(loss))
	require.NoError(t, g.Backward(loss))
	require.NoError(t, opt.UpdateGraph(g))
	// x ← x - lr·2(x-2) = 3 - 0.25·2.
	assert.InDelta(t, 2.5, must.M1(x.Value().Item()), 1e-9)

	loop := train.NewLoop(g, loss, opt)
	_, err := loop.RunSteps(50)
	require.NoError(t, err)
	require.NoError(t, g.Forward(loss))
	assert.Less(t, loss.Value().Sum(), 1e-6)
}
