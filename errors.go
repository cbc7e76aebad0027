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

import "fmt"

// NotFoundError is returned when a mesh directory or one of the
// files that are required to build or read from a mesh does not exist.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fesom: %s does not exist: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("fesom: %s does not exist", e.Path)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// ParseError is returned when an input file has a malformed row,
// the wrong number of columns, a non-numeric token, or fewer rows
// than it declares. Line is 1-based.
type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("fesom: parsing %s line %d: %v", e.File, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EmptyLevelsError is returned when a vertical level lookup is
// attempted on a mesh without levels.
type EmptyLevelsError struct{}

func (e *EmptyLevelsError) Error() string {
	return "fesom: no vertical levels to search"
}

// DimensionMismatchError is returned by the slice reader when the
// spatial dimension of a variable matches neither the number of
// nodes nor the number of elements in the mesh.
type DimensionMismatchError struct {
	Variable string
	Length   int
	N2D, E2D int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("fesom: variable %s has spatial dimension %d, which matches neither "+
		"the number of nodes (%d) nor the number of elements (%d)", e.Variable, e.Length, e.N2D, e.E2D)
}
