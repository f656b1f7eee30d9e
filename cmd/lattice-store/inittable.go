// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package main

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/latticedb/lattice/pkg/metastore"
	"github.com/latticedb/lattice/pkg/types"
)

var (
	initTableColumns    []string
	initTableUniqueKey  []string
	initSplitThreshold  uint64
	initIndexName       string
	initIndexKeyColumns []string
)

var initTableCmd = &cobra.Command{
	Use:   "init-table <name>",
	Short: "Register a table and its primary index in the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		var columns []metastore.Column
		for _, c := range initTableColumns {
			columns = append(columns, metastore.Column{Name: c, Kind: types.KindString})
		}

		table, err := store.PutTable(metastore.Table{
			Name:                    args[0],
			Columns:                 columns,
			UniqueKey:               initTableUniqueKey,
			PartitionSplitThreshold: initSplitThreshold,
		})
		if err != nil {
			return err
		}

		indexName := initIndexName
		if indexName == "" {
			indexName = "by_" + strings.Join(initIndexKeyColumns, "_")
		}
		index, err := store.PutIndex(metastore.Index{
			TableID:    table.ID,
			Name:       indexName,
			KeyColumns: initIndexKeyColumns,
		})
		if err != nil {
			return err
		}

		log.Info("table registered",
			zap.Uint64("table_id", table.ID), zap.String("table", table.Name),
			zap.Uint64("index_id", index.ID), zap.String("index", index.Name))
		return nil
	},
}

func init() {
	initTableCmd.Flags().StringSliceVar(&initTableColumns, "column", nil, "column name, repeatable")
	initTableCmd.Flags().StringSliceVar(&initTableUniqueKey, "unique-key", nil, "upsert key column names, repeatable")
	initTableCmd.Flags().Uint64Var(&initSplitThreshold, "split-threshold", 0, "rows per partition before a split is planned (0 uses the engine default)")
	initTableCmd.Flags().StringVar(&initIndexName, "index-name", "", "primary index name (default: by_<key columns>)")
	initTableCmd.Flags().StringSliceVar(&initIndexKeyColumns, "index-key", nil, "ordered key-column prefix for the primary index, repeatable")
}
