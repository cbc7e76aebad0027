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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/fesom"
	"github.com/spf13/cast"
)

// MeshConfig unmarshals a viper configuration for a mesh.
func MeshConfig(cfg *viper.Viper) (*fesom.MeshConfig, error) {
	path := os.ExpandEnv(cfg.GetString("Mesh.Path"))
	if path == "" {
		return nil, fmt.Errorf("fesomutil: you need to specify the mesh directory in the 'Mesh.Path' configuration variable")
	}
	c := &fesom.MeshConfig{
		Path: path,
		Euler: fesom.Euler{
			Alpha: cfg.GetFloat64("Mesh.Alpha"),
			Beta:  cfg.GetFloat64("Mesh.Beta"),
			Gamma: cfg.GetFloat64("Mesh.Gamma"),
		},
		CyclicThreshold:   cfg.GetFloat64("Mesh.CyclicThreshold"),
		MeanCosineScaling: cfg.GetBool("Mesh.MeanCosineScaling"),
		Log:               logrus.StandardLogger(),
	}
	if !(c.CyclicThreshold > 0) {
		return nil, fmt.Errorf("fesomutil: parsing mesh configuration: Mesh.CyclicThreshold=%g but should be >0", c.CyclicThreshold)
	}
	return c, nil
}

// SliceRequest unmarshals a viper configuration for a model output slice.
// The vertical level is not checked; a negative Slice.Level means that
// the level nearest Slice.Depth should be used.
func SliceRequest(cfg *viper.Viper) (*fesom.SliceRequest, error) {
	records, err := toIntSliceE(cfg.Get("Slice.Records"))
	if err != nil {
		return nil, fmt.Errorf("fesomutil: reading 'Slice.Records': %w", err)
	}
	how, err := fesom.ParseAggregation(cfg.GetString("Slice.How"))
	if err != nil {
		return nil, err
	}
	r := &fesom.SliceRequest{
		ResultPath: os.ExpandEnv(cfg.GetString("Slice.ResultPath")),
		Field:      os.ExpandEnv(cfg.GetString("Slice.Field")),
		RunID:      os.ExpandEnv(cfg.GetString("Slice.RunID")),
		Year:       cfg.GetInt("Slice.Year"),
		Records:    records,
		Level:      cfg.GetInt("Slice.Level"),
		How:        how,
	}
	if r.Field == "" {
		return nil, fmt.Errorf("fesomutil: you need to specify the variable to read in the 'Slice.Field' configuration variable")
	}
	return r, nil
}

// setLogLevel sets the level of the standard logger.
func setLogLevel(level string) error {
	l, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("fesomutil: LogLevel: %w", err)
	}
	logrus.SetLevel(l)
	return nil
}

// checkOutputFile makes sure that the directory of the output file
// exists and expands any environment variables. An empty name means
// standard output.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", nil
	}
	f = os.ExpandEnv(f)
	if _, err := os.Stat(filepath.Dir(f)); err != nil {
		return f, fmt.Errorf("fesomutil: the OutputFile directory doesn't exist: %w", err)
	}
	return f, nil
}

// toIntSliceE converts a configuration value to a slice of ints. The
// value may come from a configuration file (a list), from the command
// line (a JSON array or a comma-separated string), or be set directly.
func toIntSliceE(s interface{}) ([]int, error) {
	switch v := s.(type) {
	case nil:
		return nil, nil
	case []int:
		return v, nil
	case []interface{}:
		o := make([]int, len(v))
		for i, val := range v {
			x, err := cast.ToIntE(val)
			if err != nil {
				return nil, err
			}
			o[i] = x
		}
		return o, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" || v == "[]" {
			return nil, nil
		}
		var o []int
		if strings.HasPrefix(v, "[") {
			if err := json.Unmarshal([]byte(v), &o); err != nil {
				return nil, err
			}
			return o, nil
		}
		for _, f := range strings.Split(v, ",") {
			x, err := cast.ToIntE(strings.TrimSpace(f))
			if err != nil {
				return nil, err
			}
			o = append(o, x)
		}
		return o, nil
	default:
		return cast.ToIntSliceE(s)
	}
}
