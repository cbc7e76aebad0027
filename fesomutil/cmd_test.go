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

package fesomutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/spatialmodel/fesom"
)

// execute runs the command line args and returns its output.
func execute(t *testing.T, args ...string) string {
	t.Helper()
	var b bytes.Buffer
	Root.SetOutput(&b)
	Root.SetArgs(args)
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	return b.String()
}

func TestConfigFile(t *testing.T) {
	meshDir := writeTestMesh(t)
	cfgFile := filepath.Join(t.TempDir(), "fesom.toml")
	contents := fmt.Sprintf("LogLevel = \"warning\"\n\n[Mesh]\nPath = %q\nUseCache = false\n", meshDir)
	if err := os.WriteFile(cfgFile, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	Cfg.Set("config", cfgFile)
	defer Cfg.Set("config", "")
	Cfg.Set("Slice.Depth", 12.0)

	if out := execute(t, "level"); out != "1\t-10\n" {
		t.Errorf("output %q", out)
	}
}

// setTestMesh points the configuration at a new unrotated test mesh.
func setTestMesh(t *testing.T) {
	Cfg.Set("config", "")
	Cfg.Set("Mesh.Path", writeTestMesh(t))
	Cfg.Set("Mesh.UseCache", false)
	Cfg.Set("Mesh.CacheDir", "")
	for _, angle := range []string{"Mesh.Alpha", "Mesh.Beta", "Mesh.Gamma"} {
		Cfg.Set(angle, 0.0)
	}
	Cfg.Set("OutputFile", "")
}

func TestVersion(t *testing.T) {
	if out := execute(t, "version"); out != "fesom v"+fesom.Version+"\n" {
		t.Errorf("output %q", out)
	}
}

func TestMeshInfo(t *testing.T) {
	setTestMesh(t)
	out := execute(t, "mesh", "info")
	for _, want := range []string{"number of 2d nodes    = 5", "number of 2d elements = 3", "non-cyclic elements   = 3"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q doesn't contain %q", out, want)
		}
	}
}

func TestMeshCache(t *testing.T) {
	setTestMesh(t)
	cacheDir := t.TempDir()
	Cfg.Set("Mesh.CacheDir", cacheDir)
	defer Cfg.Set("Mesh.CacheDir", "")

	out := execute(t, "mesh", "cache")
	if !strings.HasPrefix(out, "stored mesh snapshot in file://") {
		t.Errorf("output %q", out)
	}
	c, err := MeshConfig(Cfg)
	if err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(filepath.Join(cacheDir, SnapshotName(c)))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	m, err := fesom.LoadSnapshot(f)
	if err != nil {
		t.Fatal(err)
	}
	if m.N2D() != 5 {
		t.Errorf("snapshot has %d nodes; want 5", m.N2D())
	}
}

func TestMeshExport(t *testing.T) {
	setTestMesh(t)
	outputFile := filepath.Join(t.TempDir(), "mesh.geojson")
	Cfg.Set("OutputFile", outputFile)
	defer Cfg.Set("OutputFile", "")
	execute(t, "mesh", "export")

	b, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatal(err)
	}
	var fc struct {
		Type     string
		Features []struct {
			Geometry struct {
				Type        string
				Coordinates [][][]float64
			}
			Properties map[string]float64
		}
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		t.Fatal(err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 3 {
		t.Fatalf("have %s with %d features; want FeatureCollection with 3", fc.Type, len(fc.Features))
	}
	for i, f := range fc.Features {
		if f.Geometry.Type != "Polygon" || len(f.Geometry.Coordinates) != 1 || len(f.Geometry.Coordinates[0]) != 4 {
			t.Errorf("feature %d: invalid geometry %+v", i, f.Geometry)
		}
		if f.Properties["element"] != float64(i) || !(f.Properties["area"] > 0) {
			t.Errorf("feature %d: properties %v", i, f.Properties)
		}
	}
}

func TestSlice(t *testing.T) {
	setTestMesh(t)
	resultPath := t.TempDir()
	writeSSH(t, filepath.Join(resultPath, "ssh.run1.1990.nc"))
	Cfg.Set("Slice.Field", "ssh")
	Cfg.Set("Slice.ResultPath", resultPath)
	Cfg.Set("Slice.RunID", "run1")
	Cfg.Set("Slice.Year", 1990)
	Cfg.Set("Slice.Records", "")
	Cfg.Set("Slice.How", "mean")
	Cfg.Set("Slice.Level", -1)
	Cfg.Set("Slice.Depth", 0.0)

	out := execute(t, "slice")
	if want := "1\n2\n3\n4\n5\n"; out != want {
		t.Errorf("output %q; want %q", out, want)
	}

	Cfg.Set("Slice.Records", "1")
	Cfg.Set("Slice.How", "max")
	if out := execute(t, "slice"); out != "0\n0\n0\n0\n0\n" {
		t.Errorf("output %q", out)
	}
}

// writeSSH writes two records of a node variable of the test mesh.
func writeSSH(t *testing.T, name string) {
	h := cdf.NewHeader([]string{"time", "nod2"}, []int{2, 5})
	h.AddVariable("ssh", []string{"time", "nod2"}, []float64{0})
	h.Define()
	ff, err := os.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	if err != nil {
		t.Fatal(err)
	}
	data := []float64{2, 4, 6, 8, 10, 0, 0, 0, 0, 0}
	if _, err := f.Writer("ssh", nil, nil).Write(data); err != nil && err != io.EOF {
		t.Fatal(err)
	}
	if err := cdf.UpdateNumRecs(ff); err != nil {
		t.Fatal(err)
	}
}
