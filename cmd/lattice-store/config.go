// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package main

import (
	"github.com/spf13/viper"

	"github.com/latticedb/lattice/pkg/rewrite"
)

// cubeConfig mirrors rewrite.CubeMeta with mapstructure tags so a YAML
// cube-metadata file can be decoded into it directly, the same
// "viper.New(); SetConfigFile; ReadInConfig" shape
// cmd/bd/config.go's validateSyncConfig uses to load a repo's
// config.yaml without touching the global viper instance.
type cubeConfig struct {
	Name       string `mapstructure:"name"`
	Table      string `mapstructure:"table"`
	Dimensions []struct {
		Name   string `mapstructure:"name"`
		Column string `mapstructure:"column"`
	} `mapstructure:"dimensions"`
	Measures []struct {
		Name    string `mapstructure:"name"`
		Column  string `mapstructure:"column"`
		AggType string `mapstructure:"agg_type"`
	} `mapstructure:"measures"`
	Segments []string `mapstructure:"segments"`
}

// loadCubes reads the --config YAML file's top-level "cubes" list into
// rewrite.CubeMeta values.
func loadCubes(path string) ([]rewrite.CubeMeta, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var raw []cubeConfig
	if err := v.UnmarshalKey("cubes", &raw); err != nil {
		return nil, err
	}

	cubes := make([]rewrite.CubeMeta, 0, len(raw))
	for _, c := range raw {
		cube := rewrite.CubeMeta{Name: c.Name, Table: c.Table, Segments: c.Segments}
		for _, d := range c.Dimensions {
			cube.Dimensions = append(cube.Dimensions, rewrite.DimensionMeta{Name: d.Name, Column: d.Column})
		}
		for _, m := range c.Measures {
			cube.Measures = append(cube.Measures, rewrite.MeasureMeta{Name: m.Name, Column: m.Column, AggType: m.AggType})
		}
		cubes = append(cubes, cube)
	}
	return cubes, nil
}
