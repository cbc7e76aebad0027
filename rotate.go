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
	"math"

	"gonum.org/v1/gonum/mat"
)

// Euler holds the alpha, beta, and gamma Euler angles [degrees] that
// rotate the computational frame of a mesh to geographic coordinates.
type Euler struct {
	Alpha, Beta, Gamma float64
}

// DefaultEuler is the rotation used by standard FESOM meshes.
var DefaultEuler = Euler{Alpha: 50, Beta: 15, Gamma: -90}

func (e Euler) String() string {
	return fmt.Sprintf("%g, %g, %g", e.Alpha, e.Beta, e.Gamma)
}

// matrix returns the matrix that rotates geographic Cartesian
// coordinates into the rotated frame.
func (e Euler) matrix() *mat.Dense {
	al, be, ga := e.Alpha*rad, e.Beta*rad, e.Gamma*rad
	return mat.NewDense(3, 3, []float64{
		math.Cos(ga)*math.Cos(al) - math.Sin(ga)*math.Cos(be)*math.Sin(al),
		math.Cos(ga)*math.Sin(al) + math.Sin(ga)*math.Cos(be)*math.Cos(al),
		math.Sin(ga) * math.Sin(be),

		-math.Sin(ga)*math.Cos(al) - math.Cos(ga)*math.Cos(be)*math.Sin(al),
		-math.Sin(ga)*math.Sin(al) + math.Cos(ga)*math.Cos(be)*math.Cos(al),
		math.Cos(ga) * math.Sin(be),

		math.Sin(be) * math.Sin(al),
		-math.Sin(be) * math.Cos(al),
		math.Cos(be),
	})
}

// RotatedToGeographic converts longitudes and latitudes [degrees] in the
// rotated frame described by e to geographic longitudes and latitudes.
// The inputs are not modified. It panics if lon and lat differ in length.
func RotatedToGeographic(e Euler, lon, lat []float64) (glon, glat []float64) {
	// The rotation is orthogonal, so its inverse is its transpose.
	return rotate(e.matrix().T(), lon, lat)
}

// GeographicToRotated is the inverse of RotatedToGeographic.
func GeographicToRotated(e Euler, lon, lat []float64) (rlon, rlat []float64) {
	return rotate(e.matrix(), lon, lat)
}

// poleTolerance is the distance from the polar axis below which a point
// is taken to be on a pole and given longitude 0.
const poleTolerance = 1e-12

// rotate applies r to the unit vectors of all points at once.
func rotate(r mat.Matrix, lon, lat []float64) (olon, olat []float64) {
	if len(lon) != len(lat) {
		panic(fmt.Errorf("fesom: rotating %d longitudes but %d latitudes", len(lon), len(lat)))
	}
	n := len(lon)
	olon, olat = make([]float64, n), make([]float64, n)
	if n == 0 {
		return
	}
	xyz := mat.NewDense(3, n, nil)
	for i := range lon {
		φ, λ := lat[i]*rad, lon[i]*rad
		xyz.Set(0, i, math.Cos(φ)*math.Cos(λ))
		xyz.Set(1, i, math.Cos(φ)*math.Sin(λ))
		xyz.Set(2, i, math.Sin(φ))
	}
	var out mat.Dense
	out.Mul(r, xyz)
	for i := 0; i < n; i++ {
		x, y, z := out.At(0, i), out.At(1, i), out.At(2, i)
		// Clamp rounding error so points on the poles stay defined.
		olat[i] = math.Asin(math.Max(-1, math.Min(1, z))) / rad
		if math.Abs(x)+math.Abs(y) < poleTolerance {
			olon[i] = 0
			continue
		}
		olon[i] = math.Atan2(y, x) / rad
	}
	return
}
