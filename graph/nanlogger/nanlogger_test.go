package nanlogger_test

import (
	"testing"

	. "github.com/gomlx/gradgraph/graph"
	"github.com/gomlx/gradgraph/graph/nanlogger"
	"github.com/gomlx/gradgraph/ml/train"
	"github.com/gomlx/gradgraph/types/container"
	"github.com/gomlx/gradgraph/types/functions"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var registry = functions.New()

var _ nanlogger.LoopWithChecks = (*train.Loop)(nil)

func TestNanLogger(t *testing.T) {
	g := New(container.Float64)
	x := Parameter(g, "x", must.M1(container.Vector(1, -1)))
	nanLogger := nanlogger.New[float64]()
	var traces []*nanlogger.Trace
	nanLogger.SetHandler(func(info *nanlogger.Trace) error {
		traces = append(traces, info)
		return nil
	})
	nanLogger.Trace(x)
	nanLogger.PushScope("model")
	nanLogger.PushScope("sqrt")
	y := ApplyNamed(x, registry, "power", 0.5)
	nanLogger.Trace(y)
	nanLogger.PopScope()
	z := Mul(y, Constant(g, container.Scalar(2)))
	nanLogger.Trace(z, "output")

	// Nothing computed yet.
	require.NoError(t, nanLogger.Check())
	require.Empty(t, traces)

	require.NoError(t, g.Forward(z))
	require.NoError(t, nanLogger.Check())
	require.Len(t, traces, 1)
	assert.Equal(t, []string{"model", "sqrt"}, traces[0].Scope)
	assert.Equal(t, y.String(), traces[0].Value)
	assert.False(t, traces[0].Gradient)

	// A nil NanLogger is a no-op.
	var nilLogger *nanlogger.NanLogger[float64]
	nilLogger.Trace(z)
	require.NoError(t, nilLogger.Check())
}

func TestNanLoggerGradients(t *testing.T) {
	g := New(container.Float64)
	x := Parameter(g, "x", container.Scalar(0))
	y := ApplyNamed(x, registry, "power", 0.5)
	nanLogger := nanlogger.New[float64]()
	nanLogger.Trace(x, "input")
	nanLogger.Trace(y)

	require.NoError(t, g.Forward(y))
	require.NoError(t, g.Backward(y))
	// The derivative of √x at 0 is infinite.
	err := nanLogger.Check()
	require.Error(t, err)
	assert.ErrorContains(t, err, "gradient of")
	assert.ErrorContains(t, err, "input")

	loop := train.NewLoop(g, y, &train.SGD[float64]{LearningRate: 0.1})
	var hookCalled bool
	loop.OnStep("after", 0, func(*train.Loop, float64) error {
		hookCalled = true
		return nil
	})
	nanLogger.Attach(loop)
	_, err = loop.RunSteps(1)
	assert.ErrorContains(t, err, `OnStep(hook "nanlogger")`)
	// The check runs ahead of the hooks registered before it.
	assert.False(t, hookCalled)
}
