// Package sensitivity implements Scalar, a differentiable scalar value that carries, alongside
// its numeric value, the partial derivatives with respect to upstream variables.
//
// It implements forward-mode differentiation: every arithmetic operation combines the values and
// the partial-derivative maps of its operands by the sum, product, quotient and chain rules.
//
// Partial-derivative keys are the *Scalar pointers of the upstream variables: two variables with
// the same numeric value are still distinct keys. Example:
//
//	x := sensitivity.Variable(3)
//	y := x.Mul(x)
//	fmt.Println(y.Value(), y.Partial(x)) // 9 6
//
// Scalars are immutable: every operation returns a new *Scalar and never changes its operands,
// so they can be shared freely.
package sensitivity

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/gomlx/gradgraph/types/functions"
	"github.com/gomlx/gradgraph/types/xerrors"
	"github.com/pkg/errors"
)

// Epsilon is added to denominators before dividing, to avoid division by exact zero.
const Epsilon = 1e-9

// Scalar is a value plus a sparse map from upstream-variable identity to partial derivative.
// An absent key means a partial derivative of 0.
type Scalar struct {
	value    float64
	partials map[*Scalar]float64
}

// New returns a constant: a Scalar with no partial derivatives.
func New(value float64) *Scalar {
	return &Scalar{value: value}
}

// Variable returns a Scalar seeded as its own partial-derivative key, with ∂x/∂x = 1.
func Variable(value float64) *Scalar {
	s := &Scalar{value: value, partials: make(map[*Scalar]float64, 1)}
	s.partials[s] = 1
	return s
}

// WithPartials returns a Scalar with the given value and a copy of the given partials.
func WithPartials(value float64, partials map[*Scalar]float64) *Scalar {
	s := &Scalar{value: value}
	if len(partials) > 0 {
		s.partials = make(map[*Scalar]float64, len(partials))
		for k, d := range partials {
			s.partials[k] = d
		}
	}
	return s
}

// Value returns the numeric value.
func (s *Scalar) Value() float64 { return s.value }

// Partial returns ∂s/∂key, 0 if s doesn't depend on key.
func (s *Scalar) Partial(key *Scalar) float64 { return s.partials[key] }

// HasPartial returns whether key is present in the partial-derivative map.
func (s *Scalar) HasPartial(key *Scalar) bool {
	_, found := s.partials[key]
	return found
}

// NumPartials returns the number of keys in the partial-derivative map.
func (s *Scalar) NumPartials() int { return len(s.partials) }

// Partials returns a copy of the partial-derivative map.
func (s *Scalar) Partials() map[*Scalar]float64 {
	partials := make(map[*Scalar]float64, len(s.partials))
	for k, d := range s.partials {
		partials[k] = d
	}
	return partials
}

// String implements fmt.Stringer. Partials are listed by value of their keys, since the keys
// themselves have no names.
func (s *Scalar) String() string {
	if len(s.partials) == 0 {
		return fmt.Sprintf("%g", s.value)
	}
	parts := make([]string, 0, len(s.partials))
	for k, d := range s.partials {
		parts = append(parts, fmt.Sprintf("∂/∂[%g]=%g", k.value, d))
	}
	slices.Sort(parts)
	return fmt.Sprintf("%g{%s}", s.value, strings.Join(parts, ", "))
}

// combine returns the linear combination ca*a.partials + cb*b.partials over the union of keys.
func combine(a *Scalar, ca float64, b *Scalar, cb float64) map[*Scalar]float64 {
	if len(a.partials) == 0 && len(b.partials) == 0 {
		return nil
	}
	out := make(map[*Scalar]float64, max(len(a.partials), len(b.partials)))
	for k, d := range a.partials {
		out[k] = ca * d
	}
	for k, d := range b.partials {
		out[k] += cb * d
	}
	return out
}

// Add returns s + other.
func (s *Scalar) Add(other *Scalar) *Scalar {
	return &Scalar{value: s.value + other.value, partials: combine(s, 1, other, 1)}
}

// Sub returns s - other.
func (s *Scalar) Sub(other *Scalar) *Scalar {
	return &Scalar{value: s.value - other.value, partials: combine(s, 1, other, -1)}
}

// Mul returns s * other, with partials given by the product rule.
func (s *Scalar) Mul(other *Scalar) *Scalar {
	return &Scalar{value: s.value * other.value, partials: combine(s, other.value, other, s.value)}
}

// Div returns s / other, with partials given by the quotient rule.
// The denominator is guarded by adding Epsilon before use.
func (s *Scalar) Div(other *Scalar) *Scalar {
	den := other.value + Epsilon
	den2 := den * den
	return &Scalar{value: s.value / den, partials: combine(s, den/den2, other, -s.value/den2)}
}

// Neg returns -s.
func (s *Scalar) Neg() *Scalar { return s.Scale(-1) }

// Scale returns c * s for a constant c.
func (s *Scalar) Scale(c float64) *Scalar {
	return s.ApplyUnary(func(x float64) float64 { return c * x }, func(float64) float64 { return c })
}

// ApplyUnary returns f(s), with every partial scaled by fPrime(s.Value()) (chain rule).
func (s *Scalar) ApplyUnary(f, fPrime func(x float64) float64) *Scalar {
	out := &Scalar{value: f(s.value)}
	if len(s.partials) > 0 {
		d := fPrime(s.value)
		out.partials = make(map[*Scalar]float64, len(s.partials))
		for k, p := range s.partials {
			out.partials[k] = d * p
		}
	}
	return out
}

// Apply evaluates the elementary function e (and its derivative) at s, propagating the partials
// by the chain rule. Domain errors of e are returned.
func (s *Scalar) Apply(e functions.Elementary) (*Scalar, error) {
	v, err := e.Eval(s.value)
	if err != nil {
		return nil, err
	}
	d, err := e.Deriv(s.value)
	if err != nil {
		return nil, err
	}
	return s.ApplyUnary(func(float64) float64 { return v }, func(float64) float64 { return d }), nil
}

// Sin returns sin(s).
func (s *Scalar) Sin() *Scalar { return s.ApplyUnary(math.Sin, math.Cos) }

// Cos returns cos(s).
func (s *Scalar) Cos() *Scalar {
	return s.ApplyUnary(math.Cos, func(x float64) float64 { return -math.Sin(x) })
}

// Tanh returns tanh(s).
func (s *Scalar) Tanh() *Scalar {
	return s.ApplyUnary(math.Tanh, func(x float64) float64 {
		t := math.Tanh(x)
		return 1 - t*t
	})
}

// ReLU returns max(0, s). Its derivative at 0 is taken as 0.
func (s *Scalar) ReLU() *Scalar {
	return s.ApplyUnary(
		func(x float64) float64 { return math.Max(0, x) },
		func(x float64) float64 {
			if x > 0 {
				return 1
			}
			return 0
		})
}

// Sigmoid returns 1/(1+exp(-s)).
func (s *Scalar) Sigmoid() *Scalar {
	sigmoid := func(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
	return s.ApplyUnary(sigmoid, func(x float64) float64 {
		v := sigmoid(x)
		return v * (1 - v)
	})
}

// Exp returns exp(s).
func (s *Scalar) Exp() *Scalar { return s.ApplyUnary(math.Exp, math.Exp) }

// Log returns the natural logarithm of s. It fails with xerrors.ErrDomain if s <= 0.
func (s *Scalar) Log() (*Scalar, error) {
	if s.value <= 0 {
		return nil, errors.Wrapf(xerrors.ErrDomain, "log(%g): argument must be > 0", s.value)
	}
	return s.ApplyUnary(math.Log, func(x float64) float64 { return 1 / x }), nil
}

// Pow returns s^p for a constant p.
func (s *Scalar) Pow(p float64) *Scalar {
	return s.ApplyUnary(
		func(x float64) float64 { return math.Pow(x, p) },
		func(x float64) float64 { return p * math.Pow(x, p-1) })
}
