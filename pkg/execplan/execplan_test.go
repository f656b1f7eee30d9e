// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package execplan_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/pkg/chunkstore"
	"github.com/latticedb/lattice/pkg/execplan"
	"github.com/latticedb/lattice/pkg/types"
)

func row(name string) types.Row {
	return types.Row{{Kind: types.KindString, String: name}}
}

func TestMergeSortExecMergesSortedInputs(t *testing.T) {
	a := chunkstore.RecordBatch{Schema: []string{"name"}, Rows: []types.Row{row("a"), row("c"), row("e")}}
	b := chunkstore.RecordBatch{Schema: []string{"name"}, Rows: []types.Row{row("b"), row("d")}}

	plan := execplan.MergeSortExec{Inputs: []execplan.Node{execplan.MemoryExec{Batch: a}, execplan.MemoryExec{Batch: b}}, KeyLen: 1}
	out, err := plan.Execute(context.Background())
	require.NoError(t, err)

	var got []string
	for _, r := range out.Rows {
		got = append(got, r[0].String)
	}
	require.Equal(t, []string{"a", "b", "c", "d", "e"}, got)
}

func TestLastRowByUniqueKeyEmitsLastOfEachRun(t *testing.T) {
	rows := []types.Row{
		{{Kind: types.KindInt, Int: 1}, {Kind: types.KindString, String: "A"}},
		{{Kind: types.KindInt, Int: 1}, {Kind: types.KindString, String: "B"}},
		{{Kind: types.KindInt, Int: 2}, {Kind: types.KindString, String: "C"}},
	}
	batch := chunkstore.RecordBatch{Schema: []string{"id", "val"}, Rows: rows}
	plan := execplan.LastRowByUniqueKeyExec{Input: execplan.MemoryExec{Batch: batch}, UniqueKeyIndex: []int{0}}

	out, err := plan.Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Rows, 2)
	require.Equal(t, "B", out.Rows[0][1].String)
	require.Equal(t, "C", out.Rows[1][1].String)
}

func TestHashAggregateExecSumsGroups(t *testing.T) {
	rows := []types.Row{
		{{Kind: types.KindString, String: "a"}, {Kind: types.KindInt, Int: 1}, {Kind: types.KindInt, Int: 5}},
		{{Kind: types.KindString, String: "a"}, {Kind: types.KindInt, Int: 1}, {Kind: types.KindInt, Int: 7}},
		{{Kind: types.KindString, String: "b"}, {Kind: types.KindInt, Int: 2}, {Kind: types.KindInt, Int: 3}},
	}
	batch := chunkstore.RecordBatch{Schema: []string{"foo", "boo", "sum_int"}, Rows: rows}
	plan := execplan.HashAggregateExec{
		Input:       execplan.MemoryExec{Batch: batch},
		KeyLen:      2,
		Strategy:    execplan.InplaceSorted,
		Aggregators: []execplan.Aggregator{{Fn: "sum", SourceIndex: 2}},
	}

	out, err := plan.Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Rows, 2)
	require.EqualValues(t, 12, out.Rows[0][2].Int)
	require.EqualValues(t, 3, out.Rows[1][2].Int)
}
