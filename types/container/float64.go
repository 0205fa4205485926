package container

import (
	"strconv"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gradgraph/types/dense"
	"github.com/gomlx/gradgraph/types/functions"
)

// Float64Algebra implements Algebra[float64].
type Float64Algebra struct {
	dense.Float64Ring
}

// Float64 is the algebra of plain float64 containers.
var Float64 Algebra[float64] = Float64Algebra{}

func (Float64Algebra) Name() string            { return "float64" }
func (Float64Algebra) Format(e float64) string { return strconv.FormatFloat(e, 'g', -1, 64) }

// Apply implements Algebra.
func (Float64Algebra) Apply(fn functions.Elementary, x float64) (float64, error) {
	return fn.Eval(x)
}

// ApplyDerivative implements Algebra.
func (Float64Algebra) ApplyDerivative(fn functions.Elementary, x float64) (float64, error) {
	return fn.Deriv(x)
}

// Scalar returns a float64 scalar container.
func Scalar(value float64) *Container[float64] { return FromScalar(Float64, value) }

// Vector returns a float64 column vector.
func Vector(values ...float64) (*Container[float64], error) { return FromVector(Float64, values) }

// Matrix returns a float64 matrix with the given rows.
func Matrix(rows [][]float64) (*Container[float64], error) { return FromMatrix(Float64, rows) }

// MustMatrix is like Matrix, but panics on error. Use it for literals known to be valid.
func MustMatrix(rows [][]float64) *Container[float64] {
	m, err := Matrix(rows)
	if err != nil {
		exceptions.Panicf("container.MustMatrix: %+v", err)
	}
	return m
}
