package container

import (
	"github.com/gomlx/gradgraph/types/dense"
	"github.com/gomlx/gradgraph/types/functions"
	"github.com/gomlx/gradgraph/types/shapes"
	"github.com/gomlx/gradgraph/types/xerrors"
	"github.com/pkg/errors"
)

func (c *Container[E]) backend() dense.Backend[E] { return dense.NewBackend[E](c.alg) }

// asMatrix returns the storage as a dense matrix in the effective orientation. The result may
// share storage with c and must not be modified.
func (c *Container[E]) asMatrix() *dense.Matrix[E] {
	if p, ok := c.payload.(matrixPayload[E]); ok && !c.transposed {
		return p.matrix
	}
	shape := c.Shape()
	m, err := dense.MatrixFromValues(shape.Rows, shape.Cols, c.Values())
	if err != nil {
		panic(err)
	}
	return m
}

// mapElements returns a container of the same shape with fn applied to every element.
func (c *Container[E]) mapElements(fn func(e E) E) *Container[E] {
	out := *c
	switch p := c.payload.(type) {
	case scalarPayload[E]:
		out.payload = scalarPayload[E]{value: fn(p.value)}
	case vectorPayload[E]:
		out.payload = vectorPayload[E]{vector: c.backend().MapVector(p.vector, fn)}
	case matrixPayload[E]:
		out.payload = matrixPayload[E]{matrix: c.backend().MapMatrix(p.matrix, fn)}
	default:
		panic(errBadPayload("mapElements", p))
	}
	return &out
}

// tryMapElements is like mapElements, but fn may fail, in which case the first error is returned.
func (c *Container[E]) tryMapElements(fn func(e E) (E, error)) (*Container[E], error) {
	var firstErr error
	out := c.mapElements(func(e E) E {
		if firstErr != nil {
			return e
		}
		result, err := fn(e)
		if err != nil {
			firstErr = err
			return e
		}
		return result
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// elementwise implements the broadcasting rule shared by the elementwise binary operations:
// a scalar operand is broadcast against every element of the other, otherwise the effective shapes
// must be equal.
func elementwise[E any](op string, a, b *Container[E], fn func(x, y E) E,
	vectorFn func(x, y *dense.Vector[E]) (*dense.Vector[E], error),
	matrixFn func(x, y *dense.Matrix[E]) (*dense.Matrix[E], error)) (*Container[E], error) {
	switch {
	case a.IsScalar() && b.IsScalar():
		return FromScalar(a.alg, fn(a.at(0, 0), b.at(0, 0))), nil
	case a.IsScalar():
		s := a.at(0, 0)
		out := b.mapElements(func(e E) E { return fn(s, e) })
		out.alg = a.alg
		return out, nil
	case b.IsScalar():
		s := b.at(0, 0)
		return a.mapElements(func(e E) E { return fn(e, s) }), nil
	}
	if err := shapes.CheckEqual(op, a, b); err != nil {
		return nil, err
	}
	switch pa := a.payload.(type) {
	case vectorPayload[E]:
		pb, ok := b.payload.(vectorPayload[E])
		if !ok {
			panic(errBadPayload(op, b.payload))
		}
		v, err := vectorFn(pa.vector, pb.vector)
		if err != nil {
			return nil, errors.WithMessage(err, op)
		}
		return &Container[E]{alg: a.alg, payload: vectorPayload[E]{vector: v}, dims: a.Shape()}, nil
	case matrixPayload[E]:
		m, err := matrixFn(a.asMatrix(), b.asMatrix())
		if err != nil {
			return nil, errors.WithMessage(err, op)
		}
		return fromMatrix(a.alg, m), nil
	default:
		panic(errBadPayload(op, pa))
	}
}

// Add returns a + b. If either operand is a scalar, its value is broadcast against every element
// of the other, otherwise the effective shapes must be equal, or it fails with an
// xerrors.ErrShapeMismatch. The result has the shape of the non-scalar operand.
func Add[E any](a, b *Container[E]) (*Container[E], error) {
	backend := a.backend()
	return elementwise("Add", a, b, a.alg.Add, backend.AddVectors, backend.AddMatrices)
}

// Subtract returns a - b, with the same broadcasting rule as Add.
func Subtract[E any](a, b *Container[E]) (*Container[E], error) {
	backend := a.backend()
	return elementwise("Subtract", a, b, a.alg.Sub, backend.SubVectors, backend.SubMatrices)
}

// Divide returns a / b elementwise, with the same broadcasting rule as Add.
// Denominators are guarded by the algebra.
func Divide[E any](a, b *Container[E]) (*Container[E], error) {
	backend := a.backend()
	return elementwise("Divide", a, b, a.alg.Div, backend.DivVectors, backend.DivMatrices)
}

// Hadamard returns the elementwise product a ⊙ b, with the same broadcasting rule as Add.
// It is never a matrix product.
func Hadamard[E any](a, b *Container[E]) (*Container[E], error) {
	backend := a.backend()
	return elementwise("Hadamard", a, b, a.alg.Mul, backend.MulVectors, backend.MulMatrices)
}

// Multiply returns a · b:
//
//   - If both are matrices, the matrix product, which requires a.Cols() == b.Rows() and is shaped
//     (a.Rows(), b.Cols()).
//   - If either is a scalar, the other scaled by it.
//   - Otherwise the elementwise product, which requires equal shapes.
//
// Shape disagreements fail with an xerrors.ErrShapeMismatch.
func Multiply[E any](a, b *Container[E]) (*Container[E], error) {
	if a.Kind() == shapes.Matrix && b.Kind() == shapes.Matrix {
		return MatMul(a, b)
	}
	backend := a.backend()
	return elementwise("Multiply", a, b, a.alg.Mul, backend.MulVectors, backend.MulMatrices)
}

// MatMul returns the matrix product of the effective shapes of a and b, whatever their kinds.
// It requires a.Cols() == b.Rows(), or it fails with an xerrors.ErrShapeMismatch.
func MatMul[E any](a, b *Container[E]) (*Container[E], error) {
	if err := shapes.CheckInner(a, b); err != nil {
		return nil, err
	}
	m, err := a.backend().MatMul(a.asMatrix(), b.asMatrix())
	if err != nil {
		return nil, errors.WithMessage(err, "container.MatMul")
	}
	return fromMatrix(a.alg, m), nil
}

// Scale returns every element of c multiplied by s.
func (c *Container[E]) Scale(s E) *Container[E] {
	return c.mapElements(func(e E) E { return c.alg.Mul(s, e) })
}

// Neg returns -c.
func (c *Container[E]) Neg() *Container[E] {
	return c.mapElements(func(e E) E { return c.alg.Sub(c.alg.Zero(), e) })
}

// Map returns fn applied to every element. The first domain error of fn is returned.
func (c *Container[E]) Map(fn functions.Elementary) (*Container[E], error) {
	out, err := c.tryMapElements(func(e E) (E, error) { return c.alg.Apply(fn, e) })
	if err != nil {
		return nil, errors.WithMessagef(err, "container.Map(%s)", fn)
	}
	return out, nil
}

// MapDerivative returns the derivative of fn applied to every element. The first domain error
// of fn is returned.
func (c *Container[E]) MapDerivative(fn functions.Elementary) (*Container[E], error) {
	out, err := c.tryMapElements(func(e E) (E, error) { return c.alg.ApplyDerivative(fn, e) })
	if err != nil {
		return nil, errors.WithMessagef(err, "container.MapDerivative(%s)", fn)
	}
	return out, nil
}

// ReduceTo sums c down to the given shape: it is the reverse of the scalar broadcasting done by
// the elementwise operations. If c already has the shape it is returned as is; if shape is a
// scalar, the sum of all elements is returned. Any other combination fails with an
// xerrors.ErrShapeMismatch.
func (c *Container[E]) ReduceTo(shape shapes.Shape) (*Container[E], error) {
	switch {
	case c.Shape().Equal(shape):
		return c, nil
	case shape.IsScalar():
		return FromScalar(c.alg, c.Sum()), nil
	default:
		return nil, errors.Wrapf(xerrors.ErrShapeMismatch, "container.ReduceTo(%s): cannot reduce shape %s", shape, c.Shape())
	}
}
