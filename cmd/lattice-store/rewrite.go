// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/latticedb/lattice/pkg/planir"
	"github.com/latticedb/lattice/pkg/rewrite"
)

var (
	rewriteTable    string
	rewriteGroupBy  []string
	rewriteMeasures []string
	rewriteAggFn    string
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite <table>",
	Short: "Build a TableScan/Aggregate plan over a table and run it through the cube rewriter",
	Long: `rewrite assembles a minimal "SELECT group-by, agg(measures...) FROM table
GROUP BY group-by" plan from its flags and runs it through the same
equality-saturation rewriter the engine would apply to a parsed query,
using the cube metadata loaded from --config.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile == "" {
			return fmt.Errorf("rewrite requires --config pointing at a cube-metadata YAML file")
		}
		cubes, err := loadCubes(cfgFile)
		if err != nil {
			return err
		}

		plan := buildScanPlan(args[0], rewriteGroupBy, rewriteMeasures, rewriteAggFn)

		r := rewrite.New(log, cubes, rewrite.DefaultConfig())
		out, err := r.Rewrite(context.Background(), plan)
		if err != nil {
			return err
		}

		describePlan(out, 0)
		return nil
	},
}

// buildScanPlan turns a table name plus flat group-by/measure column
// lists into the TableScan+Aggregate shape a parsed "GROUP BY" query
// would produce; queries without measures come back as a bare
// TableScan.
func buildScanPlan(table string, groupBy, measures []string, aggFn string) planir.Node {
	scan := planir.TableScan{Table: table}
	if len(groupBy) == 0 && len(measures) == 0 {
		return scan
	}

	group := make([]planir.Node, 0, len(groupBy))
	for _, col := range groupBy {
		group = append(group, planir.Column{Name: col})
	}

	aggr := make([]planir.Node, 0, len(measures))
	for _, col := range measures {
		aggr = append(aggr, planir.Alias{
			Name:  aggFn + "_" + col,
			Input: planir.AggregateFunction{Fn: aggFn, Arg: planir.Column{Name: col}},
		})
	}

	return planir.Aggregate{Group: group, Aggr: aggr, Input: scan}
}

// describePlan prints the rewritten tree's node kinds, and a CubeScan's
// resolved member list, so the command's output is useful without a
// full plan-to-SQL unparser.
func describePlan(n planir.Node, depth int) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}

	switch node := n.(type) {
	case planir.CubeScan:
		fmt.Printf("%s%s cubes=%v split=%v wrapped=%v\n", indent, node.Kind(), node.AliasToCube, node.Split, node.Wrapped)
		for _, m := range node.Members {
			fmt.Printf("%s  member: %s %+v\n", indent, m.Kind(), m)
		}
	default:
		fmt.Printf("%s%s\n", indent, n.Kind())
	}

	for _, child := range n.Children() {
		describePlan(child, depth+1)
	}
}

func init() {
	rewriteCmd.Flags().StringSliceVar(&rewriteGroupBy, "group-by", nil, "dimension column name, repeatable")
	rewriteCmd.Flags().StringSliceVar(&rewriteMeasures, "measure", nil, "measure column name, repeatable")
	rewriteCmd.Flags().StringVar(&rewriteAggFn, "agg", "sum", "aggregate function applied to each --measure")
}
