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

// Package fesom loads unstructured triangular FESOM ocean model meshes
// and derives the geometric quantities needed to integrate and
// interpolate model output on them.
package fesom

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// Version gives the version number.
const Version = "0.3.0"

// Mesh is a triangular FESOM mesh together with its derived geometry.
// A Mesh is not changed after it has been built, so it can be shared
// between goroutines. The slices returned by its methods are the
// underlying data and must not be modified.
type Mesh struct {
	path            string
	euler           Euler
	cyclicThreshold float64
	meanCosine      bool

	n2d, e2d, nlev int

	x2, y2       []float64 // geographic node coordinates [degrees]
	elem         [][3]int
	voltri       []float64 // element weights [m²]
	lump2        []float64 // node weights [m²]
	noCyclicElem []int
	zlev         []float64
}

// Path is the absolute path of the mesh directory.
func (m *Mesh) Path() string { return m.path }

// Euler returns the angles used to rotate the mesh to geographic coordinates.
func (m *Mesh) Euler() Euler { return m.euler }

// CyclicThreshold is the longitude spread [degrees] used to identify cyclic elements.
func (m *Mesh) CyclicThreshold() float64 { return m.cyclicThreshold }

// MeanCosineScaling reports whether element weights were computed with
// the mean of the vertex latitude cosines.
func (m *Mesh) MeanCosineScaling() bool { return m.meanCosine }

// N2D is the number of surface nodes.
func (m *Mesh) N2D() int { return m.n2d }

// E2D is the number of surface elements.
func (m *Mesh) E2D() int { return m.e2d }

// NLev is the number of vertical levels.
func (m *Mesh) NLev() int { return m.nlev }

// X2 returns the geographic longitude of each node [degrees].
func (m *Mesh) X2() []float64 { return m.x2 }

// Y2 returns the geographic latitude of each node [degrees].
func (m *Mesh) Y2() []float64 { return m.y2 }

// Elem returns the 0-based node indices of each element.
func (m *Mesh) Elem() [][3]int { return m.elem }

// Voltri returns the area-like integration weight of each element [m²].
func (m *Mesh) Voltri() []float64 { return m.voltri }

// Lump2 returns the integration weight of each node [m²].
func (m *Mesh) Lump2() []float64 { return m.lump2 }

// NoCyclicElem returns the indices of the elements that do not wrap
// around the periodic longitude boundary, in ascending order.
func (m *Mesh) NoCyclicElem() []int { return m.noCyclicElem }

// Zlev returns the depth of each vertical level.
func (m *Mesh) Zlev() []float64 { return m.zlev }

// Bounds returns the geographic extent of the mesh nodes.
func (m *Mesh) Bounds() *geom.Bounds {
	b := geom.NewBounds()
	for i := range m.x2 {
		b.Extend(geom.Point{X: m.x2[i], Y: m.y2[i]}.Bounds())
	}
	return b
}

// ElementPolygon returns element i as a closed polygon in geographic
// coordinates.
func (m *Mesh) ElementPolygon(i int) geom.Polygon {
	tri := m.elem[i]
	p := make([]geom.Point, 4)
	for j := 0; j < 4; j++ {
		n := tri[j%3]
		p[j] = geom.Point{X: m.x2[n], Y: m.y2[n]}
	}
	return geom.Polygon{p}
}

func (m *Mesh) String() string {
	var b strings.Builder
	fmt.Fprintln(&b, "FESOM mesh:")
	fmt.Fprintf(&b, "path                  = %s\n", m.path)
	fmt.Fprintf(&b, "alpha, beta, gamma    = %v\n", m.euler)
	fmt.Fprintf(&b, "number of 2d nodes    = %d\n", m.n2d)
	fmt.Fprintf(&b, "number of 2d elements = %d\n", m.e2d)
	fmt.Fprintf(&b, "number of levels      = %d\n", m.nlev)
	return b.String()
}

// StageTimer is called after each mesh construction stage completes.
type StageTimer func(stage string, elapsed time.Duration)

// MeshConfig specifies how a mesh is built.
type MeshConfig struct {
	// Path is the directory holding nod2d.out, elem2d.out and aux3d.out.
	Path string

	// Euler gives the rotation from the computational frame of the
	// mesh to geographic coordinates.
	Euler Euler

	// CyclicThreshold is the longitude spread [degrees] at or above which
	// an element is taken to wrap around the periodic boundary. If zero,
	// DefaultCyclicThreshold is used.
	CyclicThreshold float64

	// MeanCosineScaling scales element longitude distances by the mean of
	// the cosines of the vertex latitudes rather than by the cosine of the
	// mean latitude.
	MeanCosineScaling bool

	// Log receives progress messages. If nil, nothing is logged.
	Log logrus.FieldLogger

	// StageTimer, if not nil, is called after each construction stage.
	StageTimer StageTimer
}

// DefaultMeshConfig returns the configuration for a standard FESOM mesh
// in directory path.
func DefaultMeshConfig(path string) *MeshConfig {
	return &MeshConfig{
		Path:            path,
		Euler:           DefaultEuler,
		CyclicThreshold: DefaultCyclicThreshold,
	}
}

// Load builds the mesh in directory path using rotation abg and the
// default settings otherwise.
func Load(path string, abg Euler) (*Mesh, error) {
	c := DefaultMeshConfig(path)
	c.Euler = abg
	return c.Build()
}

// meshManipulator is one step in building a mesh.
type meshManipulator func(m *Mesh, mf *meshFiles) error

type stage struct {
	name string
	f    meshManipulator
}

// stages are the mesh construction steps in the order they must run:
// element weights and lumping use the computational frame, and cyclic
// elements are identified after rotation.
func (c *MeshConfig) stages() []stage {
	return []stage{
		{"read", c.read},
		{"geometry", c.geometry},
		{"lump", c.lump},
		{"rotate", c.rotate},
		{"cyclic", c.cyclic},
	}
}

// Build reads the mesh files and computes the derived mesh geometry.
// Either a complete Mesh or an error is returned.
func (c *MeshConfig) Build() (*Mesh, error) {
	path, err := filepath.Abs(c.Path)
	if err != nil {
		return nil, fmt.Errorf("fesom: mesh path: %w", err)
	}
	threshold := c.CyclicThreshold
	if threshold == 0 {
		threshold = DefaultCyclicThreshold
	}
	if !(threshold > 0) {
		return nil, fmt.Errorf("fesom: CyclicThreshold=%g but should be >0", c.CyclicThreshold)
	}
	log := c.logger().WithField("mesh", path)

	m := &Mesh{
		path:            path,
		euler:           c.Euler,
		cyclicThreshold: threshold,
		meanCosine:      c.MeanCosineScaling,
	}
	mf := new(meshFiles)
	start := time.Now()
	for _, s := range c.stages() {
		t := time.Now()
		if err := s.f(m, mf); err != nil {
			return nil, err
		}
		elapsed := time.Since(t)
		log.WithFields(logrus.Fields{"stage": s.name, "elapsed": elapsed}).Debug("mesh stage complete")
		if c.StageTimer != nil {
			c.StageTimer(s.name, elapsed)
		}
	}
	log.WithFields(logrus.Fields{
		"n2d":     m.n2d,
		"e2d":     m.e2d,
		"nlev":    m.nlev,
		"elapsed": time.Since(start),
	}).Info("loaded mesh")
	return m, nil
}

func (c *MeshConfig) logger() logrus.FieldLogger {
	if c.Log != nil {
		return c.Log
	}
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func (c *MeshConfig) read(m *Mesh, mf *meshFiles) error {
	f, err := readMeshFiles(m.path)
	if err != nil {
		return err
	}
	*mf = *f
	m.n2d, m.e2d, m.nlev = len(f.x), len(f.elem), len(f.zlev)
	m.elem = f.elem
	m.zlev = f.zlev
	return nil
}

func (c *MeshConfig) geometry(m *Mesh, mf *meshFiles) error {
	m.voltri = TriangleWeights(mf.x, mf.y, m.elem, m.meanCosine)
	return nil
}

func (c *MeshConfig) lump(m *Mesh, mf *meshFiles) error {
	m.lump2 = Lump(m.n2d, m.elem, m.voltri)
	if v, l := floats.Sum(m.voltri), floats.Sum(m.lump2); !floats.EqualWithinAbsOrRel(v, l, 1e-9, 1e-9) {
		c.logger().WithFields(logrus.Fields{"mesh": m.path, "voltri": v, "lump2": l}).
			Warn("lumped node weights do not conserve element weights")
	}
	return nil
}

func (c *MeshConfig) rotate(m *Mesh, mf *meshFiles) error {
	m.x2, m.y2 = RotatedToGeographic(m.euler, mf.x, mf.y)
	return nil
}

func (c *MeshConfig) cyclic(m *Mesh, mf *meshFiles) error {
	m.noCyclicElem = NonCyclicElements(m.x2, m.elem, m.cyclicThreshold)
	return nil
}
