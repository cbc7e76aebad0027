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
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ctessum/cdf"
)

type ncVariable struct {
	dims []string
	data interface{} // []float32, []float64 or []int32
}

// writeNetCDF writes a NetCDF file with fixed-length dimensions.
func writeNetCDF(t *testing.T, name string, dims []string, lengths []int, vars map[string]ncVariable) {
	t.Helper()
	h := cdf.NewHeader(dims, lengths)
	for v, d := range vars {
		switch d.data.(type) {
		case []float32:
			h.AddVariable(v, d.dims, []float32{0})
		case []float64:
			h.AddVariable(v, d.dims, []float64{0})
		case []int32:
			h.AddVariable(v, d.dims, []int32{0})
		}
	}
	h.Define()
	ff, err := os.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	if err != nil {
		t.Fatal(err)
	}
	for v, d := range vars {
		if _, err := f.Writer(v, nil, nil).Write(d.data); err != nil && err != io.EOF {
			t.Fatal(err)
		}
	}
	if err := cdf.UpdateNumRecs(ff); err != nil {
		t.Fatal(err)
	}
}

// sliceTestFile writes model output for the unit square mesh: "temp"
// (time, nod2, nl) float32, "ssh" (time, nod2) float64, "u" (time, elem)
// float64, "bad" (time, other) float64, and "flag" (time, nod2) int32.
func sliceTestFile(t *testing.T) (dir string, m *Mesh) {
	m, err := (&MeshConfig{Path: unitSquareMesh(t)}).Build()
	if err != nil {
		t.Fatal(err)
	}
	dir = t.TempDir()
	temp := make([]float32, 3*4*2)
	for rec := 0; rec < 3; rec++ {
		for n := 0; n < 4; n++ {
			for l := 0; l < 2; l++ {
				temp[(rec*4+n)*2+l] = float32(100*rec + 10*n + l)
			}
		}
	}
	writeNetCDF(t, filepath.Join(dir, "temp.run1.2000.nc"),
		[]string{"time", "nod2", "nl", "elem", "other"}, []int{3, 4, 2, 2, 5},
		map[string]ncVariable{
			"temp": {dims: []string{"time", "nod2", "nl"}, data: temp},
		})
	writeNetCDF(t, filepath.Join(dir, "ssh.run1.2000.nc"),
		[]string{"time", "nod2"}, []int{3, 4},
		map[string]ncVariable{
			"ssh": {dims: []string{"time", "nod2"}, data: []float64{
				1, 2, 3, 4,
				-1, 5, 0, 4,
				3, -2, 6, 1,
			}},
		})
	writeNetCDF(t, filepath.Join(dir, "u.run1.2000.nc"),
		[]string{"time", "elem"}, []int{2, 2},
		map[string]ncVariable{
			"u": {dims: []string{"time", "elem"}, data: []float64{0.5, -1, 1.5, 3}},
		})
	writeNetCDF(t, filepath.Join(dir, "bad.run1.2000.nc"),
		[]string{"time", "other"}, []int{1, 5},
		map[string]ncVariable{
			"bad": {dims: []string{"time", "other"}, data: []float64{1, 2, 3, 4, 5}},
		})
	writeNetCDF(t, filepath.Join(dir, "flag.run1.2000.nc"),
		[]string{"time", "nod2"}, []int{1, 4},
		map[string]ncVariable{
			"flag": {dims: []string{"time", "nod2"}, data: []int32{1, 0, 1, 0}},
		})
	return dir, m
}

func TestReadSlice(t *testing.T) {
	dir, m := sliceTestFile(t)
	tests := []struct {
		name string
		req  SliceRequest
		want []float64
	}{
		{
			name: "3-D single record",
			req:  SliceRequest{Field: "temp", Records: []int{1}, Level: 1},
			want: []float64{101, 111, 121, 131},
		},
		{
			name: "3-D mean",
			req:  SliceRequest{Field: "temp", Records: []int{0, 2}, Level: 0},
			want: []float64{100, 110, 120, 130},
		},
		{
			name: "3-D all records max",
			req:  SliceRequest{Field: "temp", Level: 1, How: Max},
			want: []float64{201, 211, 221, 231},
		},
		{
			name: "2-D mean of all records",
			req:  SliceRequest{Field: "ssh"},
			want: []float64{1, 5.0 / 3, 3, 3},
		},
		{
			name: "2-D max",
			req:  SliceRequest{Field: "ssh", Records: []int{0, 1, 2}, How: Max},
			want: []float64{3, 5, 6, 4},
		},
		{
			name: "elements",
			req:  SliceRequest{Field: "u", Records: []int{1}},
			want: []float64{1.5, 3},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := test.req
			req.ResultPath, req.RunID, req.Year = dir, "run1", 2000
			have, err := ReadSlice(&req, m)
			if err != nil {
				t.Fatal(err)
			}
			if len(have) != len(test.want) {
				t.Fatalf("length %d; want %d", len(have), len(test.want))
			}
			for i := range have {
				if math.Abs(have[i]-test.want[i]) > 1e-12 {
					t.Errorf("%v != %v", have, test.want)
					break
				}
			}
		})
	}
}

func TestReadSlice_errors(t *testing.T) {
	dir, m := sliceTestFile(t)
	req := func(field string, records []int, level int) *SliceRequest {
		return &SliceRequest{ResultPath: dir, RunID: "run1", Year: 2000, Field: field, Records: records, Level: level}
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadSlice(req("salt", nil, 0), m)
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			t.Errorf("error %v should be a NotFoundError", err)
		}
	})
	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := ReadSlice(req("bad", nil, 0), m)
		var dm *DimensionMismatchError
		if !errors.As(err, &dm) {
			t.Fatalf("error %v should be a DimensionMismatchError", err)
		}
		if want := (&DimensionMismatchError{Variable: "bad", Length: 5, N2D: 4, E2D: 2}); !reflect.DeepEqual(dm, want) {
			t.Errorf("%+v != %+v", dm, want)
		}
	})
	for name, r := range map[string]*SliceRequest{
		"record":         req("ssh", []int{3}, 0),
		"negative":       req("ssh", []int{-1}, 0),
		"level":          req("temp", nil, 2),
		"level of 2-D":   req("ssh", nil, 1),
		"integer values": req("flag", nil, 0),
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadSlice(r, m); err == nil {
				t.Error("want an error")
			}
		})
	}
}

func TestSliceRequest_FileName(t *testing.T) {
	r := &SliceRequest{ResultPath: "/data/out", Field: "temp", RunID: "fesom", Year: 1948}
	if want := filepath.Join("/data/out", "temp.fesom.1948.nc"); r.FileName() != want {
		t.Errorf("%s != %s", r.FileName(), want)
	}
}

func TestParseAggregation(t *testing.T) {
	for s, want := range map[string]Aggregation{"mean": Mean, "MAX": Max, " max ": Max} {
		have, err := ParseAggregation(s)
		if err != nil {
			t.Fatal(err)
		}
		if have != want {
			t.Errorf("%q: %v != %v", s, have, want)
		}
	}
	if _, err := ParseAggregation("median"); err == nil {
		t.Error("median should not be accepted")
	}
}
