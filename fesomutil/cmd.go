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

// Package fesomutil contains the command-line interface for the fesom
// mesh tools and a cached mesh loader.
package fesomutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ctessum/geom/encoding/geojson"
	"github.com/lnashier/viper"
	"github.com/spatialmodel/fesom"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	meshFlags := []*pflag.FlagSet{meshCmd.PersistentFlags(), levelCmd.Flags(), sliceCmd.Flags()}

	// Options are the configuration options available to fesom.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum level of the messages that are logged.
              Options are "debug", "info", "warning", and "error".`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Mesh.Path",
			usage: `
              Mesh.Path is the directory holding the mesh files nod2d.out,
              elem2d.out, and aux3d.out. It can contain environment variables.`,
			shorthand:  "m",
			defaultVal: "",
			flagsets:   meshFlags,
		},
		{
			name: "Mesh.Alpha",
			usage: `
              Mesh.Alpha is the first Euler angle [degrees] of the rotation from
              the computational frame of the mesh to geographic coordinates.`,
			defaultVal: fesom.DefaultEuler.Alpha,
			flagsets:   meshFlags,
		},
		{
			name: "Mesh.Beta",
			usage: `
              Mesh.Beta is the second Euler angle [degrees] of the mesh rotation.`,
			defaultVal: fesom.DefaultEuler.Beta,
			flagsets:   meshFlags,
		},
		{
			name: "Mesh.Gamma",
			usage: `
              Mesh.Gamma is the third Euler angle [degrees] of the mesh rotation.`,
			defaultVal: fesom.DefaultEuler.Gamma,
			flagsets:   meshFlags,
		},
		{
			name: "Mesh.CyclicThreshold",
			usage: `
              Mesh.CyclicThreshold is the longitude spread [degrees] at or above
              which an element is taken to wrap around the periodic boundary.`,
			defaultVal: fesom.DefaultCyclicThreshold,
			flagsets:   meshFlags,
		},
		{
			name: "Mesh.MeanCosineScaling",
			usage: `
              Mesh.MeanCosineScaling specifies whether element areas are computed
              using the mean of the cosines of the vertex latitudes rather than
              the cosine of their mean latitude.`,
			defaultVal: false,
			flagsets:   meshFlags,
		},
		{
			name: "Mesh.UseCache",
			usage: `
              Mesh.UseCache specifies whether to load the mesh from a snapshot
              in Mesh.CacheDir if one exists, and to store one there otherwise.`,
			defaultVal: true,
			flagsets:   meshFlags,
		},
		{
			name: "Mesh.CacheDir",
			usage: `
              Mesh.CacheDir is the location of the mesh snapshots. It can be a
              local directory or a blob storage URL beginning with 'file://',
              'gs://', or 's3://'. If empty, the mesh directory is used.`,
			defaultVal: "",
			flagsets:   meshFlags,
		},
		{
			name: "Slice.Field",
			usage: `
              Slice.Field is the name of the model output variable to read.`,
			shorthand:  "f",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{sliceCmd.Flags()},
		},
		{
			name: "Slice.Records",
			usage: `
              Slice.Records are the indices of the time records to aggregate.
              If empty, all records are used.`,
			defaultVal: []int{},
			flagsets:   []*pflag.FlagSet{sliceCmd.Flags()},
		},
		{
			name: "Slice.Year",
			usage: `
              Slice.Year is the simulation year of the model output file.`,
			defaultVal: 1948,
			flagsets:   []*pflag.FlagSet{sliceCmd.Flags()},
		},
		{
			name: "Slice.ResultPath",
			usage: `
              Slice.ResultPath is the directory holding the model output files,
              which are named '<Field>.<RunID>.<Year>.nc'.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{sliceCmd.Flags()},
		},
		{
			name: "Slice.RunID",
			usage: `
              Slice.RunID is the identifier of the model run.`,
			defaultVal: "fesom",
			flagsets:   []*pflag.FlagSet{sliceCmd.Flags()},
		},
		{
			name: "Slice.Level",
			usage: `
              Slice.Level is the index of the vertical level to read from 3-D
              variables. If negative, the level nearest Slice.Depth is used.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{sliceCmd.Flags()},
		},
		{
			name: "Slice.Depth",
			usage: `
              Slice.Depth is the depth [m] used to find the nearest vertical level.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{levelCmd.Flags(), sliceCmd.Flags()},
		},
		{
			name: "Slice.How",
			usage: `
              Slice.How is how the selected records are combined: "mean" or "max".`,
			defaultVal: "mean",
			flagsets:   []*pflag.FlagSet{sliceCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the file the results are written to. If empty,
              results are written to standard output.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{meshExportCmd.Flags(), sliceCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("FESOM")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case []int:
				set.IntSliceP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(meshCmd)
	meshCmd.AddCommand(meshInfoCmd)
	meshCmd.AddCommand(meshCacheCmd)
	meshCmd.AddCommand(meshExportCmd)
	Root.AddCommand(levelCmd)
	Root.AddCommand(sliceCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and configures logging.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("fesomutil: problem reading configuration file: %w", err)
		}
	}
	return setLogLevel(Cfg.GetString("LogLevel"))
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "fesom",
	Short: "Tools for FESOM ocean model meshes.",
	Long: `fesom loads unstructured triangular FESOM ocean model meshes, computes
their geometry, and extracts horizontal slices of model output on them.
Use the subcommands specified below to access the functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'FESOM_var' where 'var' is the
name of the variable to be set, with '.' replaced by '_' (for example FESOM_MESH_PATH).
Many configuration variables are additionally allowed to contain environment
variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of fesom.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "fesom v%s\n", fesom.Version)
	},
	DisableAutoGenTag: true,
}

// loadMesh loads the mesh specified in the configuration.
func loadMesh(ctx context.Context) (*fesom.MeshConfig, *fesom.Mesh, error) {
	c, err := MeshConfig(Cfg)
	if err != nil {
		return nil, nil, err
	}
	m, err := LoadMesh(ctx, c, Cfg.GetBool("Mesh.UseCache"), os.ExpandEnv(Cfg.GetString("Mesh.CacheDir")))
	if err != nil {
		return nil, nil, err
	}
	return c, m, nil
}

var meshCmd = &cobra.Command{
	Use:   "mesh",
	Short: "Work with FESOM meshes.",
	Long: `mesh loads the FESOM mesh in the directory given by Mesh.Path.
Use the subcommands specified below to choose what to do with it.`,
	DisableAutoGenTag: true,
}

var meshInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print a mesh summary",
	Long: `info loads the mesh and prints a summary of it, including its
geographic extent and the total area of its elements.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, m, err := loadMesh(context.Background())
		if err != nil {
			return err
		}
		return writeMeshInfo(cmd.OutOrStdout(), m)
	},
	DisableAutoGenTag: true,
}

func writeMeshInfo(w io.Writer, m *fesom.Mesh) error {
	b := m.Bounds()
	var area float64
	for _, v := range m.Voltri() {
		area += v
	}
	_, err := fmt.Fprintf(w, "%snon-cyclic elements   = %d\nlongitude range       = [%g, %g]\n"+
		"latitude range        = [%g, %g]\ntotal area            = %g m²\n",
		m, len(m.NoCyclicElem()), b.Min.X, b.Max.X, b.Min.Y, b.Max.Y, area)
	return err
}

var meshCacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Store a mesh snapshot",
	Long: `cache builds the mesh from its files and stores a snapshot of it in
Mesh.CacheDir, replacing any existing snapshot. The snapshot is used
to load the mesh faster in the future.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := MeshConfig(Cfg)
		if err != nil {
			return err
		}
		m, err := c.Build()
		if err != nil {
			return err
		}
		loc, err := StoreSnapshot(context.Background(), c, m, os.ExpandEnv(Cfg.GetString("Mesh.CacheDir")))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored mesh snapshot in %s\n", loc)
		return nil
	},
	DisableAutoGenTag: true,
}

var meshExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export mesh elements as GeoJSON",
	Long: `export writes the elements of the mesh that do not wrap around the
periodic longitude boundary to OutputFile as a GeoJSON FeatureCollection
of polygons in geographic coordinates. Each feature has the properties
"element" (the element index) and "area" (the element area in m²).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		_, m, err := loadMesh(context.Background())
		if err != nil {
			return err
		}
		return withOutput(cmd, outputFile, func(w io.Writer) error {
			return WriteGeoJSON(w, m)
		})
	},
	DisableAutoGenTag: true,
}

type feature struct {
	Type       string             `json:"type"`
	Geometry   *geojson.Geometry  `json:"geometry"`
	Properties map[string]float64 `json:"properties"`
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

// WriteGeoJSON writes the non-cyclic elements of m to w as a GeoJSON
// FeatureCollection.
func WriteGeoJSON(w io.Writer, m *fesom.Mesh) error {
	fc := featureCollection{Type: "FeatureCollection", Features: make([]feature, 0, len(m.NoCyclicElem()))}
	voltri := m.Voltri()
	for _, i := range m.NoCyclicElem() {
		g, err := geojson.ToGeoJSON(m.ElementPolygon(i))
		if err != nil {
			return fmt.Errorf("fesomutil: element %d: %w", i, err)
		}
		fc.Features = append(fc.Features, feature{
			Type:       "Feature",
			Geometry:   g,
			Properties: map[string]float64{"element": float64(i), "area": voltri[i]},
		})
	}
	return json.NewEncoder(w).Encode(fc)
}

var levelCmd = &cobra.Command{
	Use:   "level",
	Short: "Find the nearest vertical level",
	Long: `level prints the index and depth of the mesh level nearest
to Slice.Depth.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, m, err := loadMesh(context.Background())
		if err != nil {
			return err
		}
		i, err := m.NearestLevel(Cfg.GetFloat64("Slice.Depth"))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%g\n", i, m.Zlev()[i])
		return nil
	},
	DisableAutoGenTag: true,
}

var sliceCmd = &cobra.Command{
	Use:   "slice",
	Short: "Extract a horizontal slice of model output",
	Long: `slice reads the model output variable Slice.Field from the file
'<Slice.ResultPath>/<Slice.Field>.<Slice.RunID>.<Slice.Year>.nc', combines
the records in Slice.Records as specified by Slice.How, and writes one
value per mesh node or element per line to OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := SliceRequest(Cfg)
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		_, m, err := loadMesh(context.Background())
		if err != nil {
			return err
		}
		if req.Level < 0 {
			if req.Level, err = m.NearestLevel(Cfg.GetFloat64("Slice.Depth")); err != nil {
				return err
			}
		}
		data, err := fesom.ReadSlice(req, m)
		if err != nil {
			return err
		}
		return withOutput(cmd, outputFile, func(w io.Writer) error {
			for _, v := range data {
				if _, err := fmt.Fprintf(w, "%g\n", v); err != nil {
					return err
				}
			}
			return nil
		})
	},
	DisableAutoGenTag: true,
}

// withOutput calls f with the named file, or with the command output
// if name is empty.
func withOutput(cmd *cobra.Command, name string, f func(io.Writer) error) error {
	if name == "" {
		return f(cmd.OutOrStdout())
	}
	w, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("fesomutil: creating output file: %w", err)
	}
	if err := f(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
