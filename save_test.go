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
	"bytes"
	"encoding/gob"
	"reflect"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestSaveLoadSnapshot(t *testing.T) {
	m, err := Load(unitSquareMesh(t), DefaultEuler)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := m.Save(&buf); err != nil {
		t.Fatal(err)
	}
	m2, err := LoadSnapshot(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(m, m2) {
		t.Errorf("snapshot round trip changed the mesh:\n%v\n!=\n%v", m2, m)
	}
}

func encodeSnapshot(t *testing.T, s snapshot) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if err := gob.NewEncoder(zw).Encode(s); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf
}

func TestLoadSnapshot_invalid(t *testing.T) {
	valid := snapshot{
		Version: SnapshotVersion,
		X2:      []float64{0, 1, 0},
		Y2:      []float64{0, 0, 1},
		Elem:    [][3]int{{0, 1, 2}},
		Voltri:  []float64{1},
		Lump2:   []float64{1.0 / 3, 1.0 / 3, 1.0 / 3},
	}
	if _, err := LoadSnapshot(encodeSnapshot(t, valid)); err != nil {
		t.Fatalf("valid snapshot: %v", err)
	}

	tests := map[string]func(s *snapshot){
		"version":      func(s *snapshot) { s.Version = SnapshotVersion - 1 },
		"latitudes":    func(s *snapshot) { s.Y2 = s.Y2[:2] },
		"node weights": func(s *snapshot) { s.Lump2 = nil },
		"elem weights": func(s *snapshot) { s.Voltri = []float64{1, 2} },
		"node index":   func(s *snapshot) { s.Elem = [][3]int{{0, 1, 3}} },
		"cyclic index": func(s *snapshot) { s.NoCyclicElem = []int{1} },
	}
	for name, f := range tests {
		t.Run(name, func(t *testing.T) {
			s := valid
			f(&s)
			if _, err := LoadSnapshot(encodeSnapshot(t, s)); err == nil {
				t.Error("invalid snapshot should be rejected")
			}
		})
	}

	t.Run("garbage", func(t *testing.T) {
		if _, err := LoadSnapshot(bytes.NewReader([]byte("not a snapshot"))); err == nil {
			t.Error("garbage should be rejected")
		}
	})
}
