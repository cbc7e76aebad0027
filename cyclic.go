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

// DefaultCyclicThreshold is the longitude spread [degrees] at or above
// which an element is taken to wrap around the periodic boundary.
const DefaultCyclicThreshold = 100.0

// NonCyclicElements returns, in ascending order, the indices of the
// elements whose vertex longitudes x [degrees] span less than threshold.
func NonCyclicElements(x []float64, elem [][3]int, threshold float64) []int {
	var o []int
	for i, tri := range elem {
		a, b, c := x[tri[0]], x[tri[1]], x[tri[2]]
		spread := math.Max(a, math.Max(b, c)) - math.Min(a, math.Min(b, c))
		if spread < threshold {
			o = append(o, i)
		}
	}
	return o
}
