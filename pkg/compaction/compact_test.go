// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package compaction

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/latticedb/lattice/internal/testctx"
	"github.com/latticedb/lattice/pkg/chunkstore"
	"github.com/latticedb/lattice/pkg/metastore"
	"github.com/latticedb/lattice/pkg/metastore/memstore"
	"github.com/latticedb/lattice/pkg/remotefs"
	"github.com/latticedb/lattice/pkg/types"
)

func nameRow(name string) types.Row {
	return types.Row{{Kind: types.KindString, String: name}}
}

func strKey(s string) types.Key {
	return types.Key{{Kind: types.KindString, String: s}}
}

// namesBatch builds a chunk whose rows are "foo0".."foo{n-1}", mirroring
// how each independently-sized chunk is seeded in the three-way split
// scenario: chunks overlap on the same key range rather than
// partitioning it, which is exactly what makes the post-compaction
// boundaries land on "foo15"/"foo6" instead of a clean three-way cut
// of 46 distinct keys.
func namesBatch(n int) chunkstore.RecordBatch {
	rows := make([]types.Row, n)
	for i := 0; i < n; i++ {
		rows[i] = nameRow(fmt.Sprintf("foo%d", i))
	}
	return chunkstore.RecordBatch{Schema: []string{"name"}, Rows: rows}
}

// S1: three chunks of 10/16/20 overlapping rows, a
// partition_split_threshold of 20 and a
// compaction_chunks_total_size_threshold of 30 select only the two
// smallest chunks (26 of the 46 pending rows) for this compact() call,
// then balance them into 3 child partitions sized 9/9/8 whose
// boundaries are the physical keys at the balance cut points.
func TestEngineCompactThreeWaySplit(t *testing.T) {
	ctx := testctx.New(t)
	defer ctx.Cleanup()

	store := memstore.New()
	fs, err := remotefs.NewLocal(zap.NewNop(), ctx.Dir("remote"), ctx.Dir("scratch"))
	require.NoError(t, err)

	table := store.PutTable(metastore.Table{
		Name:                    "names",
		Columns:                 []metastore.Column{{Name: "name", Kind: types.KindString}},
		PartitionSplitThreshold: 20,
	})
	index := store.PutIndex(metastore.Index{TableID: table.ID, Name: "by_name", KeyColumns: []string{"name"}})
	partition := store.PutPartition(metastore.Partition{IndexID: index.ID, Active: true, FileSize: -1})

	cfg := DefaultConfig()
	cfg.PartitionSplitThreshold = 20
	cfg.ChunksTotalSizeThreshold = 30
	engine := NewEngine(zap.NewNop(), store, fs, ctx.Dir("scratch"), cfg)

	for _, size := range []int{10, 16, 20} {
		_, err := engine.InsertChunk(ctx, partition.ID, namesBatch(size), false)
		require.NoError(t, err)
	}

	require.NoError(t, engine.Compact(ctx, partition.ID))

	orig, ok := store.Partition(partition.ID)
	require.True(t, ok)
	require.False(t, orig.Active)

	children := store.ActivePartitionsByIndex(index.ID)
	require.Len(t, children, 3)
	sort.Slice(children, func(i, j int) bool { return children[i].MinRow.Compare(children[j].MinRow) < 0 })

	require.Equal(t, uint64(9), children[0].MainTableRowCount)
	require.Empty(t, children[0].MinRow)
	require.True(t, children[0].MaxRow.Equal(strKey("foo15")))

	require.Equal(t, uint64(9), children[1].MainTableRowCount)
	require.True(t, children[1].MinRow.Equal(strKey("foo15")))
	require.True(t, children[1].MaxRow.Equal(strKey("foo6")))

	require.Equal(t, uint64(8), children[2].MainTableRowCount)
	require.True(t, children[2].MinRow.Equal(strKey("foo6")))
	require.Empty(t, children[2].MaxRow)
}

func idValRow(id int64, val string) types.Row {
	return types.Row{
		{Kind: types.KindInt, Int: id},
		{Kind: types.KindString, String: val},
	}
}

// S2: a unique-key table upserts on compact -- the last row of every
// run of equal keys in merge-sorted, insert-order-stable iteration
// wins, so two chunks carrying (1,A) then (1,B),(2,C) leave the main
// table holding [(1,B),(2,C)].
func TestEngineCompactUniqueKeyUpsert(t *testing.T) {
	ctx := testctx.New(t)
	defer ctx.Cleanup()

	store := memstore.New()
	fs, err := remotefs.NewLocal(zap.NewNop(), ctx.Dir("remote"), ctx.Dir("scratch"))
	require.NoError(t, err)

	table := store.PutTable(metastore.Table{
		Name: "kv",
		Columns: []metastore.Column{
			{Name: "id", Kind: types.KindInt},
			{Name: "val", Kind: types.KindString},
		},
		UniqueKey: []string{"id"},
	})
	index := store.PutIndex(metastore.Index{TableID: table.ID, Name: "by_id", KeyColumns: []string{"id"}})
	partition := store.PutPartition(metastore.Partition{IndexID: index.ID, Active: true, FileSize: -1})

	engine := NewEngine(zap.NewNop(), store, fs, ctx.Dir("scratch"), DefaultConfig())

	_, err = engine.InsertChunk(ctx, partition.ID, chunkstore.RecordBatch{
		Schema: []string{"id", "val"},
		Rows:   []types.Row{idValRow(1, "A")},
	}, false)
	require.NoError(t, err)
	_, err = engine.InsertChunk(ctx, partition.ID, chunkstore.RecordBatch{
		Schema: []string{"id", "val"},
		Rows:   []types.Row{idValRow(1, "B"), idValRow(2, "C")},
	}, false)
	require.NoError(t, err)

	require.NoError(t, engine.Compact(ctx, partition.ID))

	children := store.ActivePartitionsByIndex(index.ID)
	require.Len(t, children, 1)
	require.Equal(t, uint64(2), children[0].MainTableRowCount)

	local := fs.LocalFile(children[0].FileName)
	require.NotEmpty(t, local)
	batch, err := chunkstore.ReadFile(local)
	require.NoError(t, err)
	require.Equal(t, []types.Row{idValRow(1, "B"), idValRow(2, "C")}, batch.Rows)
}

func aggrRow(foo string, boo, sumInt int64) types.Row {
	return types.Row{
		{Kind: types.KindString, String: foo},
		{Kind: types.KindInt, Int: boo},
		{Kind: types.KindInt, Int: sumInt},
	}
}

// S3: an Aggregate index sums sum_int for every (foo,boo) group,
// folding the overlapping (a,1), (a,10), (b,2), (b,20) and (c,10)
// groups across both chunks while (c,30) only appears in the second.
func TestEngineCompactAggregateIndexSum(t *testing.T) {
	ctx := testctx.New(t)
	defer ctx.Cleanup()

	store := memstore.New()
	fs, err := remotefs.NewLocal(zap.NewNop(), ctx.Dir("remote"), ctx.Dir("scratch"))
	require.NoError(t, err)

	table := store.PutTable(metastore.Table{
		Name: "aggr",
		Columns: []metastore.Column{
			{Name: "foo", Kind: types.KindString},
			{Name: "boo", Kind: types.KindInt},
			{Name: "sum_int", Kind: types.KindInt},
		},
	})
	index := store.PutIndex(metastore.Index{
		TableID:    table.ID,
		Name:       "aggr",
		Type:       metastore.IndexAggregate,
		KeyColumns: []string{"foo", "boo"},
		Aggregates: []metastore.AggregateColumn{{Fn: "sum", Source: "sum_int"}},
	})
	partition := store.PutPartition(metastore.Partition{IndexID: index.ID, Active: true, FileSize: -1})

	engine := NewEngine(zap.NewNop(), store, fs, ctx.Dir("scratch"), DefaultConfig())

	schema := []string{"foo", "boo", "sum_int"}
	_, err = engine.InsertChunk(ctx, partition.ID, chunkstore.RecordBatch{
		Schema: schema,
		Rows: []types.Row{
			aggrRow("a", 1, 1), aggrRow("a", 10, 2), aggrRow("b", 2, 3),
			aggrRow("b", 20, 4), aggrRow("c", 10, 5),
		},
	}, false)
	require.NoError(t, err)
	_, err = engine.InsertChunk(ctx, partition.ID, chunkstore.RecordBatch{
		Schema: schema,
		Rows: []types.Row{
			aggrRow("a", 1, 10), aggrRow("a", 10, 20), aggrRow("b", 2, 30),
			aggrRow("b", 20, 40), aggrRow("c", 10, 50), aggrRow("c", 30, 60),
		},
	}, false)
	require.NoError(t, err)

	require.NoError(t, engine.Compact(ctx, partition.ID))

	children := store.ActivePartitionsByIndex(index.ID)
	require.Len(t, children, 1)
	require.Equal(t, uint64(6), children[0].MainTableRowCount)

	local := fs.LocalFile(children[0].FileName)
	require.NotEmpty(t, local)
	batch, err := chunkstore.ReadFile(local)
	require.NoError(t, err)
	require.Equal(t, []types.Row{
		aggrRow("a", 1, 11), aggrRow("a", 10, 22), aggrRow("b", 2, 33),
		aggrRow("b", 20, 44), aggrRow("c", 10, 55), aggrRow("c", 30, 60),
	}, batch.Rows)
}
