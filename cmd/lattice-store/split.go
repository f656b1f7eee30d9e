// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var splitCmd = &cobra.Command{
	Use:   "split <multi-partition-id>",
	Short: "Plan and commit a multi-partition split across all of a table's indexes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		multiPartitionID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return err
		}

		engine, store, err := openEngine()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := engine.SplitMultiPartition(context.Background(), multiPartitionID); err != nil {
			return err
		}
		log.Info("split finished", zap.Uint64("multi_partition_id", multiPartitionID))
		return nil
	},
}
