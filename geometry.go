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

import "math"

// physical constants
const (
	EarthRadius = 6371000.0 // m
	rad         = math.Pi / 180
)

// Periodic longitude correction. An edge whose longitude difference
// exceeds wrapLimit crosses the cut in the stored coordinates and is
// shifted by one full turn.
const (
	wrapLimit = 355.0 // degrees
	fullTurn  = 360.0 // degrees
)

// edge is one edge vector of a triangle, in degrees until it is scaled.
type edge struct {
	dx, dy float64
}

// unwrap removes the spurious full turn from edges that cross the
// periodic boundary.
func (e edge) unwrap() edge {
	if e.dx > wrapLimit {
		e.dx -= fullTurn
	} else if e.dx < -wrapLimit {
		e.dx += fullTurn
	}
	return e
}

// triangleEdges returns the two edge vectors of a triangle,
// vertex1-vertex0 and vertex2-vertex0, with the periodic correction
// applied and still in degrees.
func triangleEdges(x, y []float64, tri [3]int) (e1, e2 edge) {
	e1 = edge{dx: x[tri[1]] - x[tri[0]], dy: y[tri[1]] - y[tri[0]]}.unwrap()
	e2 = edge{dx: x[tri[2]] - x[tri[0]], dy: y[tri[2]] - y[tri[0]]}.unwrap()
	return
}

// lonScale returns the factor by which longitude distances shrink at
// the latitude of the triangle.
func lonScale(y []float64, tri [3]int, meanCosine bool) float64 {
	if meanCosine {
		return (math.Cos(y[tri[0]]*rad) + math.Cos(y[tri[1]]*rad) + math.Cos(y[tri[2]]*rad)) / 3
	}
	return math.Cos((y[tri[0]] + y[tri[1]] + y[tri[2]]) / 3 * rad)
}

// TriangleWeights returns the area-like weight [m²] of each triangle in
// elem, where x and y are node longitudes and latitudes [degrees] in the
// computational frame. The weight is half the absolute determinant of the
// local flat-Earth Jacobian of the triangle; degenerate triangles get
// zero weight.
//
// If meanCosine is true, longitude distances are scaled by the mean
// of the cosines of the vertex latitudes instead of the cosine of the
// mean latitude.
func TriangleWeights(x, y []float64, elem [][3]int, meanCosine bool) []float64 {
	const m = EarthRadius * rad // meters per degree
	voltri := make([]float64, len(elem))
	for i, tri := range elem {
		e1, e2 := triangleEdges(x, y, tri)
		c := lonScale(y, tri, meanCosine)
		j00, j01 := e1.dx*m*c, e1.dy*m
		j10, j11 := e2.dx*m*c, e2.dy*m
		voltri[i] = math.Abs(j00*j11-j01*j10) / 2
	}
	return voltri
}
