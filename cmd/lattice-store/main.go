// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

// Command lattice-store is the thin CLI entrypoint over the storage
// and compaction engine (Core A) and the rewriter (Core B): compact
// and split partitions, run the rewriter against a demo plan shaped by
// a cube-metadata file, or register a table/index catalog row.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dbPath  string
	cfgFile string
	verbose bool

	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lattice-store",
	Short: "Storage/compaction engine and cube rewriter, from the command line",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if verbose {
			log, err = zap.NewDevelopment()
		} else {
			log, err = zap.NewProduction()
		}
		return err
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "lattice.db", "bbolt catalog file path")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "rewrite config/cube metadata file (YAML, read via viper)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(compactCmd, compactMemoryCmd, splitCmd, initTableCmd, rewriteCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
