// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package compaction

import (
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

func intRow(k int64, v int64) types.Row {
	return types.Row{
		{Kind: types.KindInt, Int: k},
		{Kind: types.KindInt, Int: v},
	}
}

func TestChooseSplitBoundaries(t *testing.T) {
	counts := []keyCount{
		{Key: types.Key{{Kind: types.KindInt, Int: 1}}, Count: 10},
		{Key: types.Key{{Kind: types.KindInt, Int: 2}}, Count: 10},
		{Key: types.Key{{Kind: types.KindInt, Int: 3}}, Count: 10},
		{Key: types.Key{{Kind: types.KindInt, Int: 4}}, Count: 10},
	}
	// Each key carries 10 rows; a threshold of 15 means every key
	// after the first starts a fresh bucket: boundaries = [2, 3, 4].
	boundaries := chooseSplitBoundaries(counts, 15)
	require.Len(t, boundaries, 3)
	require.Equal(t, int64(2), boundaries[0][0].Int)
	require.Equal(t, int64(3), boundaries[1][0].Int)
	require.Equal(t, int64(4), boundaries[2][0].Int)
}

func TestChooseSplitBoundariesEmpty(t *testing.T) {
	counts := []keyCount{
		{Key: types.Key{{Kind: types.KindInt, Int: 1}}, Count: 5},
	}
	require.Empty(t, chooseSplitBoundaries(counts, 100))
}

func TestBucketOf(t *testing.T) {
	boundaries := []types.Key{
		{{Kind: types.KindInt, Int: 10}},
		{{Kind: types.KindInt, Int: 20}},
	}
	require.Equal(t, 0, bucketOf(types.Key{{Kind: types.KindInt, Int: 5}}, boundaries))
	require.Equal(t, 1, bucketOf(types.Key{{Kind: types.KindInt, Int: 10}}, boundaries))
	require.Equal(t, 1, bucketOf(types.Key{{Kind: types.KindInt, Int: 15}}, boundaries))
	require.Equal(t, 2, bucketOf(types.Key{{Kind: types.KindInt, Int: 20}}, boundaries))
	require.Equal(t, 2, bucketOf(types.Key{{Kind: types.KindInt, Int: 99}}, boundaries))
}

func TestKeyBoundedWrite(t *testing.T) {
	rows := []types.Row{
		intRow(1, 100), intRow(5, 100), intRow(10, 100), intRow(15, 100), intRow(25, 100),
	}
	boundaries := []types.Key{
		{{Kind: types.KindInt, Int: 10}},
		{{Kind: types.KindInt, Int: 20}},
	}
	files := keyBoundedWrite(rows, 1, boundaries)
	require.Len(t, files, 3)
	require.Equal(t, uint64(2), files[0].RowCount) // keys 1, 5
	require.Equal(t, uint64(2), files[1].RowCount) // keys 10, 15
	require.Equal(t, uint64(1), files[2].RowCount) // key 25
}

// TestSplitMultiPartitionThreeWay builds a single-index multi-partition
// holding 46 rows and a partition_split_threshold of 20, mirroring the
// S1 scenario but exercised through the multi-partition split path:
// the three-way split lands boundaries that produce 3 children whose
// ranges partition the key space without gaps or overlaps and whose
// row counts sum to 46.
func TestSplitMultiPartitionThreeWay(t *testing.T) {
	ctx := testctx.New(t)
	defer ctx.Cleanup()

	store := memstore.New()
	fs, err := remotefs.NewLocal(zap.NewNop(), ctx.Dir("remote"), ctx.Dir("scratch"))
	require.NoError(t, err)

	table := store.PutTable(metastore.Table{
		Name: "events",
		Columns: []metastore.Column{
			{Name: "id", Kind: types.KindInt},
			{Name: "value", Kind: types.KindInt},
		},
		PartitionSplitThreshold: 20,
	})
	index := store.PutIndex(metastore.Index{TableID: table.ID, Name: "by_id", KeyColumns: []string{"id"}})
	mp := store.PutMultiPartition(metastore.MultiPartition{TableID: table.ID})
	partition := store.PutPartition(metastore.Partition{IndexID: index.ID, MultiPartitionID: mp.ID, Active: true, FileSize: -1})

	cfg := DefaultConfig()
	cfg.PartitionSplitThreshold = 20
	cfg.SplitParallelism = 4
	engine := NewEngine(zap.NewNop(), store, fs, ctx.Dir("scratch"), cfg)

	var rows []types.Row
	for i := int64(0); i < 46; i++ {
		rows = append(rows, intRow(i, i*10))
	}
	_, err = engine.InsertChunk(ctx, partition.ID, chunkstore.RecordBatch{
		Schema: []string{"id", "value"},
		Rows:   rows,
	}, false)
	require.NoError(t, err)

	require.NoError(t, engine.SplitMultiPartition(ctx, mp.ID))

	children := store.ActivePartitionsByIndex(index.ID)
	require.Len(t, children, 3)

	orig, ok := store.Partition(partition.ID)
	require.True(t, ok)
	require.False(t, orig.Active)

	var total uint64
	for _, c := range children {
		total += c.MainTableRowCount
		require.NotEmpty(t, c.FileName)
	}
	require.Equal(t, uint64(46), total)
}

func TestSplitMultiPartitionNoBoundaries(t *testing.T) {
	ctx := testctx.New(t)
	defer ctx.Cleanup()

	store := memstore.New()
	fs, err := remotefs.NewLocal(zap.NewNop(), ctx.Dir("remote"), ctx.Dir("scratch"))
	require.NoError(t, err)

	table := store.PutTable(metastore.Table{
		Name:                    "events",
		Columns:                 []metastore.Column{{Name: "id", Kind: types.KindInt}, {Name: "value", Kind: types.KindInt}},
		PartitionSplitThreshold: 1000,
	})
	index := store.PutIndex(metastore.Index{TableID: table.ID, Name: "by_id", KeyColumns: []string{"id"}})
	mp := store.PutMultiPartition(metastore.MultiPartition{TableID: table.ID})
	partition := store.PutPartition(metastore.Partition{IndexID: index.ID, MultiPartitionID: mp.ID, Active: true, FileSize: -1})

	cfg := DefaultConfig()
	engine := NewEngine(zap.NewNop(), store, fs, ctx.Dir("scratch"), cfg)

	_, err = engine.InsertChunk(ctx, partition.ID, chunkstore.RecordBatch{
		Schema: []string{"id", "value"},
		Rows:   []types.Row{intRow(1, 1), intRow(2, 2)},
	}, false)
	require.NoError(t, err)

	require.NoError(t, engine.SplitMultiPartition(ctx, mp.ID))

	// Below threshold: no boundaries, no split, original partition
	// untouched.
	p, ok := store.Partition(partition.ID)
	require.True(t, ok)
	require.True(t, p.Active)
}
