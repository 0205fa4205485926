package commandline

import (
	"bytes"
	"testing"

	"github.com/gomlx/gradgraph/graph"
	"github.com/gomlx/gradgraph/ml/train"
	"github.com/gomlx/gradgraph/types/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSprintSettings(t *testing.T) {
	params := train.NewParams()
	require.NoError(t, train.ParseSettings(params, "learning_rate=0.25"))
	s := SprintSettings(params)
	for _, want := range []string{"learning_rate", "0.25", "float64", "gradient_mode", "accumulate", "steps", "100"} {
		assert.Contains(t, s, want)
	}
}

func TestProgressBar(t *testing.T) {
	g := graph.New(container.Float64)
	x := graph.Parameter(g, "x", container.Scalar(3))
	loss := graph.Mul(x, x)
	loop := train.NewLoop(g, loss, &train.SGD[float64]{LearningRate: 0.1})
	var buf bytes.Buffer
	AttachProgressBarTo(loop, &buf)
	_, err := loop.RunSteps(5)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Training (5 steps)")
	assert.Contains(t, out, "Loss")

	// Running again reuses the same hooks.
	buf.Reset()
	_, err = loop.RunSteps(3)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Training (3 steps)")
}
