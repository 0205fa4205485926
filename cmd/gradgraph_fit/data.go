package main

import (
	"encoding/csv"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/gomlx/gradgraph/types/xerrors"
	"github.com/pkg/errors"
)

// dataset holds the examples of a linear regression: labels ≈ slope·x + intercept.
type dataset struct {
	x, labels []float64
}

// synthetic generates n examples with x uniformly in [-1, 1) and labels with gaussian noise.
func synthetic(n int, slope, intercept, noise float64, seed uint64) (*dataset, error) {
	if n <= 0 {
		return nil, errors.Wrapf(xerrors.ErrInvalidArgument, "number of examples must be > 0, got %d", n)
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	ds := &dataset{x: make([]float64, n), labels: make([]float64, n)}
	for ii := range n {
		x := 2*rng.Float64() - 1
		ds.x[ii] = x
		ds.labels[ii] = slope*x + intercept + noise*rng.NormFloat64()
	}
	return ds, nil
}

// readCSV reads examples from a CSV with two columns, x and label. Lines starting with "#" are
// comments, and a header line that doesn't parse as numbers is skipped.
func readCSV(r io.Reader) (*dataset, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(xerrors.ErrInvalidArgument, "failed to parse CSV: %v", err)
	}
	ds := &dataset{}
	for ii, record := range records {
		x, errX := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
		label, errLabel := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if errX != nil || errLabel != nil {
			if ii == 0 {
				// Header.
				continue
			}
			return nil, errors.Wrapf(xerrors.ErrInvalidArgument, "CSV line %d: invalid values %q", ii+1, record)
		}
		ds.x = append(ds.x, x)
		ds.labels = append(ds.labels, label)
	}
	if len(ds.x) == 0 {
		return nil, errors.Wrap(xerrors.ErrInvalidArgument, "CSV has no examples")
	}
	return ds, nil
}

// readCSVFile opens path and reads it with readCSV.
func readCSVFile(path string) (*dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open data file %q", path)
	}
	defer func() { _ = f.Close() }()
	ds, err := readCSV(f)
	return ds, errors.WithMessagef(err, "data file %q", path)
}
