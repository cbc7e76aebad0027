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
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Names of the files in a mesh directory.
const (
	NodeFile    = "nod2d.out"
	ElementFile = "elem2d.out"
	LevelFile   = "aux3d.out"
)

// meshFiles holds the raw contents of the mesh files.
type meshFiles struct {
	x, y      []float64
	elem      [][3]int
	elemLines []int // source line of each element
	zlev      []float64
}

// CheckMeshDir returns a *NotFoundError if dir is not an existing directory.
func CheckMeshDir(dir string) error {
	fi, err := os.Stat(dir)
	if err != nil {
		return &NotFoundError{Path: dir, Err: err}
	}
	if !fi.IsDir() {
		return &NotFoundError{Path: dir, Err: fmt.Errorf("not a directory")}
	}
	return nil
}

// readMeshFiles reads the node, element, and level files in dir
// concurrently and checks that the elements reference existing nodes.
// If more than one file can't be read, the error for the first of
// nodes, elements, and levels is returned.
func readMeshFiles(dir string) (*meshFiles, error) {
	if err := CheckMeshDir(dir); err != nil {
		return nil, err
	}

	mf := new(meshFiles)
	elemFile := filepath.Join(dir, ElementFile)
	var errs [3]error
	var g errgroup.Group
	g.Go(func() error {
		errs[0] = scanFile(filepath.Join(dir, NodeFile), func(r io.Reader, name string) (err error) {
			mf.x, mf.y, err = readNodes(r, name)
			return err
		})
		return errs[0]
	})
	g.Go(func() error {
		errs[1] = scanFile(elemFile, func(r io.Reader, name string) (err error) {
			mf.elem, mf.elemLines, err = readElements(r, name)
			return err
		})
		return errs[1]
	})
	g.Go(func() error {
		errs[2] = scanFile(filepath.Join(dir, LevelFile), func(r io.Reader, name string) (err error) {
			mf.zlev, err = readLevels(r, name)
			return err
		})
		return errs[2]
	})
	if g.Wait() != nil {
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
	}
	if err := checkElements(mf.elem, mf.elemLines, len(mf.x), elemFile); err != nil {
		return nil, err
	}
	return mf, nil
}

// scanFile opens the named file and passes it to f.
func scanFile(name string, f func(r io.Reader, name string) error) error {
	r, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return &NotFoundError{Path: name, Err: err}
		}
		return fmt.Errorf("fesom: opening mesh file: %w", err)
	}
	defer r.Close()
	return f(r, name)
}

// lineScanner iterates over the lines of a file, keeping track of
// line numbers for error messages.
type lineScanner struct {
	*bufio.Scanner
	name string
	line int
}

func newLineScanner(r io.Reader, name string) *lineScanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 1024*1024)
	return &lineScanner{Scanner: s, name: name}
}

// next advances to the next line and returns its fields.
func (s *lineScanner) next() ([]string, bool) {
	if !s.Scan() {
		return nil, false
	}
	s.line++
	return strings.Fields(s.Text()), true
}

// nextRow advances to the next non-blank line.
func (s *lineScanner) nextRow() ([]string, bool) {
	for {
		fields, ok := s.next()
		if !ok || len(fields) > 0 {
			return fields, ok
		}
	}
}

func (s *lineScanner) errorf(format string, args ...interface{}) error {
	return &ParseError{File: s.name, Line: s.line, Err: fmt.Errorf(format, args...)}
}

// err returns any read error other than EOF.
func (s *lineScanner) err() error {
	if err := s.Err(); err != nil {
		return &ParseError{File: s.name, Line: s.line + 1, Err: err}
	}
	return nil
}

// readNodes reads node longitudes and latitudes. The first line holds
// the node count and is skipped; the count is the number of rows.
func readNodes(r io.Reader, name string) (x, y []float64, err error) {
	s := newLineScanner(r, name)
	s.next() // header
	for {
		fields, ok := s.nextRow()
		if !ok {
			break
		}
		if len(fields) != 4 {
			return nil, nil, s.errorf("want 4 columns (index lon lat flag), have %d", len(fields))
		}
		lon, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, nil, s.errorf("longitude: %w", err)
		}
		lat, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, nil, s.errorf("latitude: %w", err)
		}
		x = append(x, lon)
		y = append(y, lat)
	}
	return x, y, s.err()
}

// readElements reads triangle connectivity and converts it from 1-based
// to 0-based node indices. It also returns the line each element was
// read from.
func readElements(r io.Reader, name string) ([][3]int, []int, error) {
	s := newLineScanner(r, name)
	s.next() // header
	var elem [][3]int
	var lines []int
	for {
		fields, ok := s.nextRow()
		if !ok {
			break
		}
		if len(fields) != 3 {
			return nil, nil, s.errorf("want 3 columns (node indices), have %d", len(fields))
		}
		var tri [3]int
		for j, f := range fields {
			n, err := strconv.Atoi(f)
			if err != nil {
				return nil, nil, s.errorf("node index: %w", err)
			}
			tri[j] = n - 1
		}
		elem = append(elem, tri)
		lines = append(lines, s.line)
	}
	return elem, lines, s.err()
}

// checkElements makes sure every element references one of the n2d nodes.
func checkElements(elem [][3]int, lines []int, n2d int, name string) error {
	for i, tri := range elem {
		for _, n := range tri {
			if n < 0 || n >= n2d {
				return &ParseError{File: name, Line: lines[i],
					Err: fmt.Errorf("element %d references node %d, but there are %d nodes", i+1, n+1, n2d)}
			}
		}
	}
	return nil
}

// readLevels reads the level count from the first line followed by
// that many depths. Anything after the last depth is not read.
func readLevels(r io.Reader, name string) ([]float64, error) {
	s := newLineScanner(r, name)
	fields, ok := s.nextRow()
	if !ok {
		if err := s.err(); err != nil {
			return nil, err
		}
		return nil, s.errorf("missing level count")
	}
	if len(fields) != 1 {
		return nil, s.errorf("want a single level count, have %d columns", len(fields))
	}
	nlev, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, s.errorf("level count: %w", err)
	}
	if nlev < 0 {
		return nil, s.errorf("negative level count %d", nlev)
	}
	zlev := make([]float64, nlev)
	for i := range zlev {
		fields, ok := s.next()
		if !ok {
			if err := s.err(); err != nil {
				return nil, err
			}
			return nil, s.errorf("file declares %d levels but has %d", nlev, i)
		}
		if len(fields) != 1 {
			return nil, s.errorf("want a single depth, have %d columns", len(fields))
		}
		if zlev[i], err = strconv.ParseFloat(fields[0], 64); err != nil {
			return nil, s.errorf("depth: %w", err)
		}
	}
	return zlev, nil
}
