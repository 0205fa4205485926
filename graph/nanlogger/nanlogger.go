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

// Package nanlogger monitors selected graph values, and their gradients, for `NaN`
// ("not-a-number") or `Inf` (infinity) values.
//
// Values are selected with NanLogger.Trace while building the graph. After a Forward (and
// optionally a Backward) pass, NanLogger.Check reports the first traced value where a NaN
// appears: NaN values spread through the graph, so the first one is usually the culprit.
//
// The report includes the stack trace of where the value was traced and an optional user set
// scope.
//
// Example:
//
//	func train() {
//		…
//		nanLogger := nanlogger.New[float64]()
//		for ii := 0; ii < numBlocks; ii++ {
//			nanLogger.PushScope(fmt.Sprintf("block-%d", ii+1))
//			x = block(x)
//			nanLogger.Trace(x)
//			nanLogger.PopScope()
//		}
//		loop := train.NewLoop(g, loss, optimizer)
//		nanLogger.Attach(loop)
//		…
//	}
package nanlogger

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/gomlx/gradgraph/graph"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// NanLogger monitors the values selected with Trace for NaN (and Inf) values.
//
// A nil NanLogger is valid, and all its methods are no-ops.
type NanLogger[E any] struct {
	handler      HandlerFn
	traces       map[*graph.ValueNode[E]]*Trace
	currentScope []string
}

// Trace information of a value that is set to monitor.
// This is what is reported when a `NaN` is found, or passed to a handler function, if one is set.
type Trace struct {
	// Value is the description of the monitored value.
	Value string

	// Gradient is true if the NaN was found in the gradient of the value.
	Gradient bool

	// StackTrace of where the value was traced, stored as an error that can be printed with "%+v".
	StackTrace error

	// Scope saved when the value was traced.
	Scope []string
}

// HandlerFn is called when a NaN or Inf is found. The error it returns is returned by Check.
type HandlerFn func(info *Trace) error

// New creates a NanLogger that can be used to debug where NaN happen in graphs.
func New[E any]() *NanLogger[E] {
	return &NanLogger[E]{
		handler: DefaultHandler,
		traces:  make(map[*graph.ValueNode[E]]*Trace),
	}
}

// DefaultHandler logs the trace with klog and returns an error describing it.
func DefaultHandler(info *Trace) error {
	where := "value"
	if info.Gradient {
		where = "gradient of"
	}
	var scope string
	if len(info.Scope) > 0 {
		scope = fmt.Sprintf(" (scope %q)", strings.Join(info.Scope, "/"))
	}
	klog.Errorf("nanlogger: NaN or Inf in %s %s%s, traced at:%+v", where, info.Value, scope, info.StackTrace)
	return errors.Errorf("nanlogger: NaN or Inf in %s %s%s", where, info.Value, scope)
}

// SetHandler sets the function called when a NaN or Inf is found. The default is DefaultHandler.
func (l *NanLogger[E]) SetHandler(handler HandlerFn) {
	if l == nil {
		return
	}
	l.handler = handler
}

// Trace the given value: Check reports it if it (or its gradient) has a NaN or Inf.
//
// A user-provided scope can be given. If none is given, then it uses the current NanLogger scope.
func (l *NanLogger[E]) Trace(v *graph.ValueNode[E], scope ...string) {
	if l == nil || v == nil {
		return
	}
	trace := &Trace{StackTrace: errors.New("stack-trace")}
	if len(scope) == 0 {
		trace.Scope = slices.Clone(l.currentScope)
	} else {
		trace.Scope = slices.Clone(scope)
	}
	l.traces[v] = trace
}

// PushScope to current scope stack. These values are added by default to any new Trace.
func (l *NanLogger[E]) PushScope(scope string) {
	if l == nil {
		return
	}
	l.currentScope = append(l.currentScope, scope)
}

// PopScope removes the last entry in the current scope stack.
func (l *NanLogger[E]) PopScope() {
	if l == nil || len(l.currentScope) == 0 {
		return
	}
	l.currentScope = l.currentScope[:len(l.currentScope)-1]
}

func hasNaNOrInf(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// Check the traced values, in the order they were created, for NaN or Inf values, and then the
// gradients in reverse order (the order Backward computes them). The handler is called for the
// first one found, and its result returned. Values not computed are ignored.
func (l *NanLogger[E]) Check() error {
	if l == nil || len(l.traces) == 0 {
		return nil
	}
	values := make([]*graph.ValueNode[E], 0, len(l.traces))
	for v := range l.traces {
		values = append(values, v)
	}
	slices.SortFunc(values, func(a, b *graph.ValueNode[E]) int { return int(a.Id()) - int(b.Id()) })

	report := func(v *graph.ValueNode[E], gradient bool) error {
		info := *l.traces[v]
		info.Value = v.String()
		info.Gradient = gradient
		return l.handler(&info)
	}
	for _, v := range values {
		if v.Value() != nil && hasNaNOrInf(v.Value().Floats()) {
			return report(v, false)
		}
	}
	for _, v := range slices.Backward(values) {
		if v.HasGradient() && hasNaNOrInf(v.Gradient().Floats()) {
			return report(v, true)
		}
	}
	return nil
}

// LoopWithChecks is a training loop that runs checks after each step, e.g. train.Loop.
type LoopWithChecks interface {
	AddStepCheck(name string, check func() error)
}

// Attach registers Check to run after each step of the loop. A NaN found interrupts the training
// with the error of the handler.
func (l *NanLogger[E]) Attach(loop LoopWithChecks) {
	if l == nil {
		return
	}
	loop.AddStepCheck("nanlogger", l.Check)
}
