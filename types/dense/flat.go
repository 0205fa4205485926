package dense

import (
	"slices"

	"github.com/gomlx/gradgraph/types/xerrors"
	"github.com/pkg/errors"
)

// MaxFlatRank is the maximum number of dimensions supported by Flat.
const MaxFlatRank = 3

// Flat is a flattened float64 array of 1, 2 or 3 dimensions, indexed manually through a single
// computed linear offset. It is a pure storage helper: no arithmetic is defined on it.
type Flat struct {
	dims   []int
	values []float64
}

// NewFlat creates a Flat array with the given dimensions and a copy of values.
// The number of values must equal the product of the dimensions.
func NewFlat(dims []int, values []float64) (*Flat, error) {
	if len(dims) == 0 || len(dims) > MaxFlatRank {
		return nil, errors.Wrapf(xerrors.ErrInvalidArgument, "dense.NewFlat: %d dimensions given, only 1 to %d are supported",
			len(dims), MaxFlatRank)
	}
	numElements := 1
	for _, d := range dims {
		if d <= 0 {
			return nil, errors.Wrapf(xerrors.ErrInvalidArgument, "dense.NewFlat: invalid dimensions %v", dims)
		}
		numElements *= d
	}
	if numElements != len(values) {
		return nil, errors.Wrapf(xerrors.ErrInvalidArgument,
			"dimensionalities do not match: there are %d values in the array and the flattened length of dimensions %v is %d",
			len(values), dims, numElements)
	}
	return &Flat{dims: slices.Clone(dims), values: slices.Clone(values)}, nil
}

// Dims returns a copy of the dimensions.
func (f *Flat) Dims() []int { return slices.Clone(f.dims) }

// Offset returns the linear offset of the element at the given indices.
func (f *Flat) Offset(indices ...int) (int, error) {
	if len(indices) != len(f.dims) {
		return 0, errors.Wrapf(xerrors.ErrInvalidArgument, "dimensionalities do not match: %d indices for a %d-dimensional array",
			len(indices), len(f.dims))
	}
	for axis, idx := range indices {
		if idx < 0 || idx >= f.dims[axis] {
			return 0, errors.Wrapf(xerrors.ErrOutOfRange, "trying to access element %d on dimension %d, while there are only %d",
				idx, axis+1, f.dims[axis])
		}
	}
	switch len(indices) {
	case 1:
		return indices[0], nil
	case 2:
		return indices[0]*f.dims[1] + indices[1], nil
	default:
		return indices[0]*(f.dims[1]*f.dims[2]) + indices[1]*f.dims[2] + indices[2], nil
	}
}

// At returns the element at the given indices.
func (f *Flat) At(indices ...int) (float64, error) {
	offset, err := f.Offset(indices...)
	if err != nil {
		return 0, err
	}
	return f.values[offset], nil
}

// Set the element at the given indices.
func (f *Flat) Set(value float64, indices ...int) error {
	offset, err := f.Offset(indices...)
	if err != nil {
		return err
	}
	f.values[offset] = value
	return nil
}
