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
	"encoding/gob"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// SnapshotVersion identifies the layout written by Save. Snapshots
// written with a different layout are rejected by LoadSnapshot.
const SnapshotVersion = 2

// snapshot is the serialized form of a Mesh.
type snapshot struct {
	Version           int
	Path              string
	Euler             Euler
	CyclicThreshold   float64
	MeanCosineScaling bool
	X2, Y2            []float64
	Elem              [][3]int
	Voltri, Lump2     []float64
	NoCyclicElem      []int
	Zlev              []float64
}

// Save writes a compressed snapshot of m to w, which can be read back
// with LoadSnapshot.
func (m *Mesh) Save(w io.Writer) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("fesom: saving mesh: %w", err)
	}
	s := snapshot{
		Version:           SnapshotVersion,
		Path:              m.path,
		Euler:             m.euler,
		CyclicThreshold:   m.cyclicThreshold,
		MeanCosineScaling: m.meanCosine,
		X2:                m.x2,
		Y2:                m.y2,
		Elem:              m.elem,
		Voltri:            m.voltri,
		Lump2:             m.lump2,
		NoCyclicElem:      m.noCyclicElem,
		Zlev:              m.zlev,
	}
	if err := gob.NewEncoder(zw).Encode(s); err != nil {
		zw.Close()
		return fmt.Errorf("fesom: saving mesh: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("fesom: saving mesh: %w", err)
	}
	return nil
}

// LoadSnapshot reads a mesh previously written by Save.
func LoadSnapshot(r io.Reader) (*Mesh, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("fesom: loading mesh snapshot: %w", err)
	}
	defer zr.Close()
	var s snapshot
	if err := gob.NewDecoder(zr).Decode(&s); err != nil {
		return nil, fmt.Errorf("fesom: loading mesh snapshot: %w", err)
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("fesom: mesh snapshot version %d, want %d", s.Version, SnapshotVersion)
	}
	m := &Mesh{
		path:            s.Path,
		euler:           s.Euler,
		cyclicThreshold: s.CyclicThreshold,
		meanCosine:      s.MeanCosineScaling,
		n2d:             len(s.X2),
		e2d:             len(s.Elem),
		nlev:            len(s.Zlev),
		x2:              s.X2,
		y2:              s.Y2,
		elem:            s.Elem,
		voltri:          s.Voltri,
		lump2:           s.Lump2,
		noCyclicElem:    s.NoCyclicElem,
		zlev:            s.Zlev,
	}
	if err := m.checkLengths(); err != nil {
		return nil, fmt.Errorf("fesom: loading mesh snapshot: %w", err)
	}
	return m, nil
}

// checkLengths makes sure the mesh arrays agree with each other.
func (m *Mesh) checkLengths() error {
	switch {
	case len(m.y2) != m.n2d:
		return fmt.Errorf("%d longitudes but %d latitudes", m.n2d, len(m.y2))
	case len(m.lump2) != m.n2d:
		return fmt.Errorf("%d nodes but %d node weights", m.n2d, len(m.lump2))
	case len(m.voltri) != m.e2d:
		return fmt.Errorf("%d elements but %d element weights", m.e2d, len(m.voltri))
	case len(m.noCyclicElem) > m.e2d:
		return fmt.Errorf("%d elements but %d non-cyclic elements", m.e2d, len(m.noCyclicElem))
	}
	for i, tri := range m.elem {
		for _, n := range tri {
			if n < 0 || n >= m.n2d {
				return fmt.Errorf("element %d references node %d of %d", i, n, m.n2d)
			}
		}
	}
	for _, e := range m.noCyclicElem {
		if e < 0 || e >= m.e2d {
			return fmt.Errorf("non-cyclic element %d out of range", e)
		}
	}
	return nil
}
