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

// Lump returns the node-wise integration weights of a mesh with n2d
// nodes: each node receives one third of the weight of every element
// that references it. Nodes that no element references get zero.
// Indices in elem must be in [0, n2d).
func Lump(n2d int, elem [][3]int, voltri []float64) []float64 {
	lump2 := make([]float64, n2d)
	for v := 0; v < 3; v++ {
		for e, tri := range elem {
			lump2[tri[v]] += voltri[e]
		}
	}
	for i := range lump2 {
		lump2[i] /= 3
	}
	return lump2
}
