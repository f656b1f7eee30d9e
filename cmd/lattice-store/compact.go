// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var compactCmd = &cobra.Command{
	Use:   "compact <partition-id>",
	Short: "Compact a partition's pending chunks into its main table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		partitionID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return err
		}

		engine, store, err := openEngine()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := engine.Compact(context.Background(), partitionID); err != nil {
			return err
		}
		log.Info("compact finished", zap.Uint64("partition_id", partitionID))
		return nil
	},
}

var compactMemoryCmd = &cobra.Command{
	Use:   "compact-memory <partition-id>",
	Short: "Merge a partition's in-memory chunks without touching the main table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		partitionID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return err
		}

		engine, store, err := openEngine()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := engine.CompactInMemoryChunks(context.Background(), partitionID); err != nil {
			return err
		}
		log.Info("in-memory compaction finished", zap.Uint64("partition_id", partitionID))
		return nil
	},
}
