/*
Copyright © 2024 the fesom authors.
This file is part of fesom.

fesom is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

fesom is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with fesom.  If not, see <http://www.gnu.org/licenses/>.
*/

package fesom

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/cdf"
)

// Aggregation specifies how the selected records of a slice are combined.
type Aggregation int

// Aggregations of slice records.
const (
	Mean Aggregation = iota
	Max
)

func (a Aggregation) String() string {
	switch a {
	case Mean:
		return "mean"
	case Max:
		return "max"
	default:
		return fmt.Sprintf("Aggregation(%d)", int(a))
	}
}

// ParseAggregation returns the aggregation named s ("mean" or "max").
func ParseAggregation(s string) (Aggregation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mean":
		return Mean, nil
	case "max":
		return Max, nil
	}
	return 0, fmt.Errorf("fesom: invalid aggregation %q; valid options are 'mean' and 'max'", s)
}

// SliceRequest specifies a horizontal slice of FESOM model output.
type SliceRequest struct {
	// ResultPath is the directory holding the model output files.
	ResultPath string

	// Field is the name of the variable to read. It is also the
	// first component of the file name.
	Field string

	// RunID and Year identify the output file.
	RunID string
	Year  int

	// Records are the indices of the time records to aggregate.
	// If empty, all records are used.
	Records []int

	// Level is the vertical level to read from 3-D variables.
	Level int

	// How is the aggregation applied over Records.
	How Aggregation
}

// FileName is the path of the output file holding the requested field.
func (r *SliceRequest) FileName() string {
	return filepath.Join(r.ResultPath, fmt.Sprintf("%s.%s.%d.nc", r.Field, r.RunID, r.Year))
}

// ReadSlice reads the horizontal slice specified by req from a NetCDF
// output file of mesh m. The result has one value per node or one value
// per element, depending on where the variable is stored.
func ReadSlice(req *SliceRequest, m *Mesh) ([]float64, error) {
	name := req.FileName()
	ff, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: name, Err: err}
		}
		return nil, fmt.Errorf("fesom: opening slice file: %w", err)
	}
	defer ff.Close()
	f, err := cdf.Open(ff)
	if err != nil {
		return nil, fmt.Errorf("fesom: reading %s: %w", name, err)
	}
	fi, err := ff.Stat()
	if err != nil {
		return nil, fmt.Errorf("fesom: reading %s: %w", name, err)
	}

	sr, err := newSliceReader(f, req.Field, fi.Size())
	if err != nil {
		return nil, fmt.Errorf("fesom: reading %s: %w", name, err)
	}
	if sr.n != m.n2d && sr.n != m.e2d {
		return nil, &DimensionMismatchError{Variable: req.Field, Length: sr.n, N2D: m.n2d, E2D: m.e2d}
	}
	if err := sr.checkLevel(req.Level); err != nil {
		return nil, fmt.Errorf("fesom: reading %s: %w", name, err)
	}
	records := req.Records
	if len(records) == 0 {
		records = make([]int, sr.nrec)
		for i := range records {
			records[i] = i
		}
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("fesom: reading %s: variable %s has no records", name, req.Field)
	}

	out := make([]float64, sr.n)
	if req.How == Max {
		for i := range out {
			out[i] = math.Inf(-1)
		}
	}
	for _, rec := range records {
		v, err := sr.read(rec, req.Level)
		if err != nil {
			return nil, fmt.Errorf("fesom: reading %s: %w", name, err)
		}
		switch req.How {
		case Mean:
			for i, x := range v {
				out[i] += x
			}
		case Max:
			for i, x := range v {
				out[i] = math.Max(out[i], x)
			}
		default:
			return nil, fmt.Errorf("fesom: invalid aggregation %v", req.How)
		}
	}
	if req.How == Mean {
		n := float64(len(records))
		for i := range out {
			out[i] /= n
		}
	}
	return out, nil
}

// sliceReader reads the records of one variable.
type sliceReader struct {
	f       *cdf.File
	name    string
	lengths []int
	n       int // spatial length
	nlev    int // 1 for 2-D variables
	nrec    int
}

func newSliceReader(f *cdf.File, name string, fsize int64) (*sliceReader, error) {
	dims := f.Header.Dimensions(name)
	if dims == nil {
		return nil, fmt.Errorf("no variable %s", name)
	}
	if len(dims) != 2 && len(dims) != 3 {
		return nil, fmt.Errorf("variable %s has dimensions %v; want (time, space) or (time, space, level)", name, dims)
	}
	lengths := f.Header.Lengths(name)
	sr := &sliceReader{
		f:       f,
		name:    name,
		lengths: lengths,
		n:       lengths[1],
		nlev:    1,
		nrec:    lengths[0],
	}
	if len(lengths) == 3 {
		sr.nlev = lengths[2]
	}
	if f.Header.IsRecordVariable(name) {
		sr.nrec = int(f.Header.NumRecs(fsize))
	}
	return sr, nil
}

func (sr *sliceReader) checkLevel(level int) error {
	if level < 0 || level >= sr.nlev {
		return fmt.Errorf("level %d out of range [0, %d) for variable %s", level, sr.nlev, sr.name)
	}
	return nil
}

// read returns the values of record rec at the given level.
func (sr *sliceReader) read(rec, level int) ([]float64, error) {
	if rec < 0 || rec >= sr.nrec {
		return nil, fmt.Errorf("record %d out of range [0, %d) for variable %s", rec, sr.nrec, sr.name)
	}
	begin := make([]int, len(sr.lengths))
	end := make([]int, len(sr.lengths))
	begin[0], end[0] = rec, rec
	for i := 1; i < len(sr.lengths); i++ {
		end[i] = sr.lengths[i] - 1
	}
	r := sr.f.Reader(sr.name, begin, end)
	buf := r.Zero(sr.n * sr.nlev)
	if _, err := r.Read(buf); err != nil && err != io.EOF {
		return nil, err
	}
	out := make([]float64, sr.n)
	switch v := buf.(type) {
	case []float32:
		for i := range out {
			out[i] = float64(v[i*sr.nlev+level])
		}
	case []float64:
		for i := range out {
			out[i] = v[i*sr.nlev+level]
		}
	default:
		return nil, fmt.Errorf("variable %s has type %T; want float or double", sr.name, buf)
	}
	return out, nil
}
