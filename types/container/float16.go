package container

import (
	"strconv"

	"github.com/gomlx/gradgraph/types/dense"
	"github.com/gomlx/gradgraph/types/functions"
	"github.com/gomlx/gradgraph/types/shapes"
	"github.com/x448/float16"
)

// Float16Algebra implements Algebra[float16.Float16]: half precision elements, with the
// arithmetic done in float32 and rounded back after each operation.
type Float16Algebra struct{}

// Float16 is the algebra of half precision containers.
var Float16 Algebra[float16.Float16] = Float16Algebra{}

func f16(v float32) float16.Float16 { return float16.Fromfloat32(v) }

func (Float16Algebra) Zero() float16.Float16                    { return f16(0) }
func (Float16Algebra) One() float16.Float16                     { return f16(1) }
func (Float16Algebra) Add(a, b float16.Float16) float16.Float16 { return f16(a.Float32() + b.Float32()) }
func (Float16Algebra) Sub(a, b float16.Float16) float16.Float16 { return f16(a.Float32() - b.Float32()) }
func (Float16Algebra) Mul(a, b float16.Float16) float16.Float16 { return f16(a.Float32() * b.Float32()) }
func (Float16Algebra) Div(a, b float16.Float16) float16.Float16 {
	return f16(a.Float32() / (b.Float32() + dense.Epsilon))
}
func (Float16Algebra) FromFloat(v float64) float16.Float16 { return f16(float32(v)) }
func (Float16Algebra) ToFloat(e float16.Float16) float64   { return float64(e.Float32()) }
func (Float16Algebra) Name() string                        { return "float16" }
func (Float16Algebra) Format(e float16.Float16) string {
	return strconv.FormatFloat(float64(e.Float32()), 'g', -1, 32)
}

// Apply implements Algebra. The function is evaluated in float64.
func (alg Float16Algebra) Apply(fn functions.Elementary, x float16.Float16) (float16.Float16, error) {
	v, err := fn.Eval(alg.ToFloat(x))
	return alg.FromFloat(v), err
}

// ApplyDerivative implements Algebra.
func (alg Float16Algebra) ApplyDerivative(fn functions.Elementary, x float16.Float16) (float16.Float16, error) {
	d, err := fn.Deriv(alg.ToFloat(x))
	return alg.FromFloat(d), err
}

// Float16FromFloats converts float64 values to a half precision container of the given shape.
// See FromFlat.
func Float16FromFloats(rows, cols int, values ...float64) (*Container[float16.Float16], error) {
	halves := make([]float16.Float16, len(values))
	for ii, v := range values {
		halves[ii] = f16(float32(v))
	}
	return FromFlat(Float16, shapes.Make(rows, cols), halves)
}
