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

// NearestLevelIndex returns the index of the level in zlev whose depth is
// closest to depth. The signs of the depths are ignored, and the lowest
// index wins a tie.
func NearestLevelIndex(depth float64, zlev []float64) (int, error) {
	if len(zlev) == 0 {
		return -1, &EmptyLevelsError{}
	}
	target := math.Abs(depth)
	best, bestDist := 0, math.Inf(1)
	for i, z := range zlev {
		if d := math.Abs(math.Abs(z) - target); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, nil
}

// NearestLevel returns the index of the mesh level closest to depth.
func (m *Mesh) NearestLevel(depth float64) (int, error) {
	return NearestLevelIndex(depth, m.zlev)
}
