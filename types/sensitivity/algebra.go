package sensitivity

import (
	"github.com/gomlx/gradgraph/types/functions"
)

// Algebra implements the element arithmetic over *Scalar used by the dense kernels and the
// containers (it satisfies dense.Ring[*Scalar] and container.Algebra[*Scalar]).
//
// Containers of *Scalar therefore carry forward-mode derivatives through every container operation.
type Algebra struct{}

func (Algebra) Zero() *Scalar               { return New(0) }
func (Algebra) One() *Scalar                { return New(1) }
func (Algebra) Add(a, b *Scalar) *Scalar    { return a.Add(b) }
func (Algebra) Sub(a, b *Scalar) *Scalar    { return a.Sub(b) }
func (Algebra) Mul(a, b *Scalar) *Scalar    { return a.Mul(b) }
func (Algebra) Div(a, b *Scalar) *Scalar    { return a.Div(b) }
func (Algebra) FromFloat(v float64) *Scalar { return New(v) }
func (Algebra) ToFloat(e *Scalar) float64   { return e.Value() }
func (Algebra) Name() string                { return "sensitivity" }
func (Algebra) Format(e *Scalar) string     { return e.String() }

// Apply evaluates fn at x, propagating the partials by the chain rule.
func (Algebra) Apply(fn functions.Elementary, x *Scalar) (*Scalar, error) {
	return x.Apply(fn)
}

// ApplyDerivative evaluates the derivative of fn at x. The result is a constant: only first
// order derivatives are tracked.
func (Algebra) ApplyDerivative(fn functions.Elementary, x *Scalar) (*Scalar, error) {
	d, err := fn.Deriv(x.Value())
	if err != nil {
		return nil, err
	}
	return New(d), nil
}
