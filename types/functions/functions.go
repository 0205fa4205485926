// Package functions holds the read-only registry of elementary functions and their closed-form
// derivatives.
//
// A Registry is explicitly constructed once (usually at program start) with New, and then passed
// to whatever needs it: it is never mutated after construction and is safe to share.
//
// Names follow a convention: a function "f" has its derivative registered as "f_deriv" (or
// "f_der"). Names denoting derivatives can be looked up, but cannot be used to build a
// differentiable Elementary, except for the designated reusable derivative "log_deriv".
package functions

import (
	"math"
	"slices"
	"strings"

	"github.com/gomlx/gradgraph/types/xerrors"
	"github.com/pkg/errors"
)

// Epsilon guards the few functions that would otherwise divide by exact zero.
const Epsilon = 1e-18

// ReusableDerivative is the one derivative name that can be used as a function on its own.
const ReusableDerivative = "log_deriv"

// PowerName is the name of the parameterized power function x^p.
const PowerName = "power"

// Fn is a numeric function that may fail with an xerrors.ErrDomain.
type Fn func(x float64) (float64, error)

// powFn is the raw form of the registered functions: the second argument is only used by "power".
type powFn func(x, p float64) (float64, error)

// Elementary is a differentiable function: its value and derivative.
type Elementary struct {
	Name       string
	Value      Fn
	Derivative Fn
}

// Eval returns the value at x.
func (e Elementary) Eval(x float64) (float64, error) {
	v, err := e.Value(x)
	if err != nil {
		return 0, errors.WithMessagef(err, "evaluating %s(%g)", e.Name, x)
	}
	return v, nil
}

// Deriv returns the derivative at x.
func (e Elementary) Deriv(x float64) (float64, error) {
	d, err := e.Derivative(x)
	if err != nil {
		return 0, errors.WithMessagef(err, "evaluating derivative of %s at %g", e.Name, x)
	}
	return d, nil
}

// String implements fmt.Stringer.
func (e Elementary) String() string { return e.Name }

// Registry maps function names to their implementations. Use New to create one.
type Registry struct {
	fns map[string]powFn
}

func total(fn func(x float64) float64) powFn {
	return func(x, _ float64) (float64, error) { return fn(x), nil }
}

func positive(name string, fn func(x float64) float64) powFn {
	return func(x, _ float64) (float64, error) {
		if x <= 0 {
			return 0, errors.Wrapf(xerrors.ErrDomain, "%s(%g): argument must be > 0", name, x)
		}
		return fn(x), nil
	}
}

func identity(x float64) float64 { return x }

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func sigmoidDeriv(x float64) float64 {
	s := sigmoid(x)
	return s * (1 - s)
}

func relu(x float64) float64 { return math.Max(0, x) }

func reluDeriv(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

func tanhDeriv(x float64) float64 {
	t := math.Tanh(x)
	return 1 - t*t
}

// New returns the registry with the default elementary functions.
func New() *Registry {
	return &Registry{fns: map[string]powFn{
		PowerName: func(x, p float64) (float64, error) { return math.Pow(x, p), nil },
		"sin":     total(math.Sin),
		"cos":     total(math.Cos),
		"tan":     total(math.Tan),
		"cot":     total(func(x float64) float64 { return 1 / (Epsilon + math.Tan(x)) }),

		"log":         positive("log", math.Log),
		"log_deriv":   positive("log_deriv", func(x float64) float64 { return 1 / (x + Epsilon) }),
		"log10":       positive("log10", math.Log10),
		"log10_deriv": positive("log10_deriv", func(x float64) float64 { return 1 / ((x + Epsilon) * math.Ln10) }),

		"lin_activ":     total(identity),
		"lin_activ_der": total(func(float64) float64 { return 1 }),
		"exp":           total(math.Exp),
		"exp_deriv":     total(math.Exp),
		"sigmoid":       total(sigmoid),
		"sigmoid_deriv": total(sigmoidDeriv),
		"relu":          total(relu),
		"relu_deriv":    total(reluDeriv),
		"tanh":          total(math.Tanh),
		"tanh_deriv":    total(tanhDeriv),
	}}
}

// Names returns the sorted list of registered names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup returns the raw numeric function registered under name, or an xerrors.ErrNotFound.
// Derivative names can be looked up.
func (r *Registry) Lookup(name string) (Fn, error) {
	fn, found := r.fns[name]
	if !found {
		return nil, errors.Wrapf(xerrors.ErrNotFound, "unknown elementary function %q", name)
	}
	return func(x float64) (float64, error) { return fn(x, 1) }, nil
}

// IsDerivativeName returns whether name follows the naming convention of a derivative.
func IsDerivativeName(name string) bool {
	return strings.Contains(name, "der")
}

// Function returns the differentiable Elementary function for name.
//
// The optional power is only used by "power" (default 1), for which the derivative is
// p * x^(p-1).
//
// It fails with xerrors.ErrNotFound for unknown names, and with xerrors.ErrInvalidArgument for
// names of derivatives (other than ReusableDerivative).
func (r *Registry) Function(name string, power ...float64) (Elementary, error) {
	fn, found := r.fns[name]
	if !found {
		return Elementary{}, errors.Wrapf(xerrors.ErrNotFound, "unknown elementary function %q", name)
	}
	if IsDerivativeName(name) && name != ReusableDerivative {
		return Elementary{}, errors.Wrapf(xerrors.ErrInvalidArgument,
			"elementary function %q can not be a derivative", name)
	}
	if len(power) > 1 {
		return Elementary{}, errors.Wrapf(xerrors.ErrInvalidArgument,
			"elementary function %q takes at most one power, %d given", name, len(power))
	}
	bind := func(f powFn, p float64) Fn {
		return func(x float64) (float64, error) { return f(x, p) }
	}
	scaled := func(c float64, f Fn) Fn {
		return func(x float64) (float64, error) {
			v, err := f(x)
			return c * v, err
		}
	}

	e := Elementary{Name: name, Value: bind(fn, 1)}
	switch name {
	case PowerName:
		p := 1.0
		if len(power) == 1 {
			p = power[0]
		}
		e.Value = bind(fn, p)
		e.Derivative = scaled(p, bind(fn, p-1))
	case "sin":
		e.Derivative = bind(r.fns["cos"], 1)
	case "cos":
		e.Derivative = scaled(-1, bind(r.fns["sin"], 1))
	case "tan":
		e.Derivative = bind(total(func(x float64) float64 { return math.Pow(math.Cos(x), -2) }), 1)
	case "cot":
		e.Derivative = bind(total(func(x float64) float64 { return -math.Pow(math.Sin(x), -2) }), 1)
	case "lin_activ":
		e.Derivative = bind(r.fns["lin_activ_der"], 1)
	case ReusableDerivative:
		e.Derivative = bind(positive(ReusableDerivative, func(x float64) float64 {
			return -1 / ((x + Epsilon) * (x + Epsilon))
		}), 1)
	default:
		deriv, found := r.fns[name+"_deriv"]
		if !found {
			return Elementary{}, errors.Wrapf(xerrors.ErrNotFound, "no derivative registered for elementary function %q", name)
		}
		e.Derivative = bind(deriv, 1)
	}
	return e, nil
}

// MustFunction is like Function, but panics on error. Use it for names known to be valid.
func (r *Registry) MustFunction(name string, power ...float64) Elementary {
	e, err := r.Function(name, power...)
	if err != nil {
		panic(err)
	}
	return e
}
