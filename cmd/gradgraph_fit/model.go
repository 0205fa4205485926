package main

import (
	"github.com/gomlx/gradgraph/graph"
	"github.com/gomlx/gradgraph/graph/nanlogger"
	"github.com/gomlx/gradgraph/ml/train"
	"github.com/gomlx/gradgraph/ml/train/losses"
	"github.com/gomlx/gradgraph/ml/train/optimizers"
	"github.com/gomlx/gradgraph/types/container"
	"github.com/gomlx/gradgraph/types/shapes"
	"github.com/pkg/errors"
)

// model is the linear regression slope·x + intercept and its mean squared error.
type model struct {
	g                *graph.Graph[float64]
	x, labels        *graph.ValueNode[float64]
	slope, intercept *graph.ValueNode[float64]
	predictions      *graph.ValueNode[float64]
	loss             *graph.ValueNode[float64]
}

// newModel builds the graph of the model for ds, with the gradient mode configured in params.
func newModel(ds *dataset, params *train.Params) (*model, error) {
	m := &model{
		g: graph.New(container.Float64, graph.WithName("linear_regression"), graph.WithGradientMode(params.GradientMode())),
	}
	shape := shapes.Make(len(ds.x), 1)
	err := m.g.Build(func() {
		m.x = graph.Input(m.g, "x", shape)
		m.labels = graph.Input(m.g, "labels", shape)
		m.slope = graph.Parameter(m.g, "slope", container.Scalar(0))
		m.intercept = graph.Parameter(m.g, "intercept", container.Scalar(0))
		m.predictions = graph.Add(graph.Mul(m.slope, m.x), m.intercept)
		m.loss = losses.MeanSquaredError(m.labels, m.predictions)
	})
	if err != nil {
		return nil, err
	}
	if err = m.feed(ds); err != nil {
		return nil, err
	}
	return m, nil
}

// feed sets the inputs of the model to the examples of ds.
func (m *model) feed(ds *dataset) error {
	x, err := container.FromVector(container.Float64, ds.x)
	if err != nil {
		return err
	}
	labels, err := container.FromVector(container.Float64, ds.labels)
	if err != nil {
		return err
	}
	if err = m.g.SetValue(m.x, x); err != nil {
		return err
	}
	return m.g.SetValue(m.labels, labels)
}

// traceNaNs returns a NanLogger monitoring the inputs, the predictions and the loss of the model.
func (m *model) traceNaNs() *nanlogger.NanLogger[float64] {
	nanLogger := nanlogger.New[float64]()
	nanLogger.Trace(m.x, "input")
	nanLogger.Trace(m.predictions, "predictions")
	nanLogger.Trace(m.loss, "loss")
	return nanLogger
}

// newLoop creates the training loop of the model with the optimizer configured in params. If
// traceNaNs is set, it also returns the NanLogger attached to the loop, otherwise nil.
func newLoop(m *model, params *train.Params, traceNaNs bool) (*train.Loop, *nanlogger.NanLogger[float64], error) {
	optimizer, err := optimizers.FromParams(params)
	if err != nil {
		return nil, nil, err
	}
	loop := train.NewLoop(m.g, m.loss, optimizer)
	train.LogEvery(loop, params.LogEvery())
	var nanLogger *nanlogger.NanLogger[float64]
	if traceNaNs {
		nanLogger = m.traceNaNs()
		nanLogger.Attach(loop)
	}
	return loop, nanLogger, nil
}

// run trains for the given number of steps. A NaN loss fails the step before the NanLogger hook
// runs, so on failure the traced values are checked once more to point to where the NaN appeared.
func run(loop *train.Loop, nanLogger *nanlogger.NanLogger[float64], steps int) (float64, error) {
	loss, err := loop.RunSteps(steps)
	if err != nil {
		if nanErr := nanLogger.Check(); nanErr != nil {
			err = errors.WithMessage(err, nanErr.Error())
		}
	}
	return loss, err
}
