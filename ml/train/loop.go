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

// Package train holds the hyperparameter settings, the SGD optimizer and the training Loop
// over float64 graphs.
package train

import (
	"math"
	"slices"
	"sort"
	"time"

	"github.com/gomlx/gradgraph/graph"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Loop runs training steps on a graph: each step computes the loss with Graph.Forward, its
// gradients with Graph.Backward and updates the trainable values with the Optimizer.
//
// It also supports hooks to be called at the start of the loop, after each step and at the end.
// Hooks are called in order of Priority, and within the same priority in order of registration.
type Loop struct {
	// Graph being trained.
	Graph *graph.Graph[float64]

	// Loss is the value minimized. The loss of a step is the sum of its elements.
	Loss *graph.ValueNode[float64]

	// Optimizer used to update the trainable values.
	Optimizer Optimizer[float64]

	// LoopStep currently being executed. Defaults to 0.
	LoopStep int

	// StartStep is the value of LoopStep at the start of a run. If Loop.RunSteps is called multiple
	// times, StartStep is reset to the last LoopStep value of the previous run.
	StartStep int

	// EndStep is one-past the last step to be executed.
	EndStep int

	// TrainStepDurations collected during training.
	TrainStepDurations []time.Duration

	// Registered hooks.
	onStart *priorityHooks[*hookWithName[OnStartFn]]
	onStep  *priorityHooks[*hookWithName[OnStepFn]]
	onEnd   *priorityHooks[*hookWithName[OnEndFn]]
}

// Priority for hooks, the lowest values are run first. Defaults to 0, but negative values are ok.
type Priority int

// OnStartFn is the type of OnStart hooks.
type OnStartFn func(loop *Loop) error

// OnStepFn is the type of OnStep hooks, called with the loss of the step just finished.
type OnStepFn func(loop *Loop, loss float64) error

// OnEndFn is the type of OnEnd hooks, called with the loss of the last step.
type OnEndFn func(loop *Loop, loss float64) error

// NewLoop creates a training loop that minimizes loss with optimizer. loss must belong to g.
func NewLoop(g *graph.Graph[float64], loss *graph.ValueNode[float64], optimizer Optimizer[float64]) *Loop {
	return &Loop{
		Graph:     g,
		Loss:      loss,
		Optimizer: optimizer,
		onStart:   newPriorityHooks[*hookWithName[OnStartFn]](),
		onStep:    newPriorityHooks[*hookWithName[OnStepFn]](),
		onEnd:     newPriorityHooks[*hookWithName[OnEndFn]](),
	}
}

// start of loop, it calls the appropriate hooks.
func (loop *Loop) start() (err error) {
	loop.onStart.Enumerate(func(hook *hookWithName[OnStartFn]) {
		if err != nil {
			// After the first error stop.
			return
		}
		err = hook.fn(loop)
		if err != nil {
			err = errors.WithMessagef(err, "OnStart(hook %q)", hook.name)
		}
	})
	return
}

// step runs one training step and the OnStep hooks.
func (loop *Loop) step() (loss float64, err error) {
	startTime := time.Now()
	defer func() {
		loop.TrainStepDurations = append(loop.TrainStepDurations, time.Since(startTime))
	}()

	if err = loop.Graph.Forward(loop.Loss); err != nil {
		return
	}
	loss = loop.Loss.Value().Sum()
	if math.IsNaN(loss) {
		err = errors.Errorf("loss is NaN, training interrupted")
		return
	}
	if math.IsInf(loss, 0) {
		err = errors.Errorf("loss is infinity (%f), training interrupted", loss)
		return
	}
	if err = loop.Graph.Backward(loop.Loss); err != nil {
		return
	}
	if err = loop.Optimizer.UpdateGraph(loop.Graph); err != nil {
		return
	}

	loop.onStep.Enumerate(func(hook *hookWithName[OnStepFn]) {
		if err != nil {
			// After the first error stop.
			return
		}
		err = hook.fn(loop, loss)
		if err != nil {
			err = errors.WithMessagef(err, "OnStep(hook %q)", hook.name)
		}
	})
	return
}

// end of loop, it calls the appropriate hooks.
func (loop *Loop) end(loss float64) (err error) {
	loop.onEnd.Enumerate(func(hook *hookWithName[OnEndFn]) {
		if err != nil {
			// After the first error stop.
			return
		}
		err = hook.fn(loop, loss)
		if err != nil {
			err = errors.WithMessagef(err, "OnEnd(hook %q)", hook.name)
		}
	})
	return
}

// RunSteps runs those many steps and returns the loss of the last one. The loss is computed
// before the update of its step.
//
// StartStep and EndStep are adjusted to the current LoopStep, so it can be called multiple times,
// and it will simply pick up where it left off last time.
func (loop *Loop) RunSteps(steps int) (loss float64, err error) {
	if steps <= 0 {
		return 0, nil
	}
	loop.StartStep = loop.LoopStep
	loop.EndStep = loop.LoopStep + steps
	if err = loop.start(); err != nil {
		return 0, err
	}
	loop.TrainStepDurations = make([]time.Duration, 0, steps)
	for loop.LoopStep = loop.StartStep; loop.LoopStep < loop.EndStep; loop.LoopStep++ {
		loss, err = loop.step()
		if err != nil {
			return 0, errors.WithMessagef(err, "Loop.RunSteps(%d): failed training step (LoopStep=%d)", steps, loop.LoopStep)
		}
	}
	klog.V(1).Infof("graph %q: %d training steps, final loss %g, median step time %s",
		loop.Graph.Name(), steps, loss, loop.MedianTrainStepDuration())
	if err = loop.end(loss); err != nil {
		return 0, errors.WithMessagef(err, "Loop.RunSteps(%d): failed end (LoopStep=%d)", steps, loop.LoopStep)
	}
	return loss, nil
}

// MedianTrainStepDuration returns the median duration of each training step. It returns 1 millisecond
// if no training step was recorded (to avoid potential division by 0).
func (loop *Loop) MedianTrainStepDuration() time.Duration {
	if len(loop.TrainStepDurations) == 0 {
		return time.Millisecond
	}
	times := slices.Clone(loop.TrainStepDurations)
	slices.Sort(times)
	return times[len(times)/2]
}

// OnStart adds a hook with given priority and name (for error reporting) to the start of a loop.
func (loop *Loop) OnStart(name string, priority Priority, fn OnStartFn) {
	loop.onStart.Add(priority, &hookWithName[OnStartFn]{name, fn})
}

// OnStep adds a hook with given priority and name (for error reporting) to each step of a loop.
// The function fn is called after each update of the trainable values.
func (loop *Loop) OnStep(name string, priority Priority, fn OnStepFn) {
	loop.onStep.Add(priority, &hookWithName[OnStepFn]{name, fn})
}

// CheckPriority is the priority of the hooks registered with AddStepCheck.
const CheckPriority Priority = -1000

// AddStepCheck registers check to run after each step, ahead of the other OnStep hooks. An error
// returned by check interrupts the loop.
func (loop *Loop) AddStepCheck(name string, check func() error) {
	loop.OnStep(name, CheckPriority, func(*Loop, float64) error { return check() })
}

// OnEnd adds a hook with given priority and name (for error reporting) to the end of a loop,
// after the last call to OnStep.
func (loop *Loop) OnEnd(name string, priority Priority, fn OnEndFn) {
	loop.onEnd.Add(priority, &hookWithName[OnEndFn]{name, fn})
}

type hookWithName[F any] struct {
	name string
	fn   F
}

// priorityHooks keeps hooks grouped by priority.
type priorityHooks[H any] struct {
	hooks map[Priority][]H
}

func newPriorityHooks[H any]() *priorityHooks[H] {
	return &priorityHooks[H]{
		hooks: make(map[Priority][]H),
	}
}

// Add hook at the given priority.
func (h *priorityHooks[H]) Add(priority Priority, hook H) {
	h.hooks[priority] = append(h.hooks[priority], hook)
}

// Enumerate will call fn for all registered hooks in priority order.
func (h *priorityHooks[H]) Enumerate(fn func(hook H)) {
	keys := make([]Priority, 0, len(h.hooks))
	for key := range h.hooks {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i] < keys[j]
	})
	for _, key := range keys {
		for _, hook := range h.hooks[key] {
			fn(hook)
		}
	}
}
