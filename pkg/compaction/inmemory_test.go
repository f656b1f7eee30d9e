// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package compaction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/latticedb/lattice/internal/testctx"
	"github.com/latticedb/lattice/pkg/chunkstore"
	"github.com/latticedb/lattice/pkg/metastore"
	"github.com/latticedb/lattice/pkg/metastore/memstore"
	"github.com/latticedb/lattice/pkg/remotefs"
	"github.com/latticedb/lattice/pkg/types"
)

// S4: two in-memory chunks carrying the same five rows in descending
// order merge into a single in-memory chunk holding all ten rows
// ascending, and the merged chunk's oldest_insert_at carries forward
// the older of the two inputs' ages so compaction urgency is not lost.
func TestEngineCompactInMemoryChunksMerge(t *testing.T) {
	ctx := testctx.New(t)
	defer ctx.Cleanup()

	store := memstore.New()
	fs, err := remotefs.NewLocal(zap.NewNop(), ctx.Dir("remote"), ctx.Dir("scratch"))
	require.NoError(t, err)

	table := store.PutTable(metastore.Table{
		Name:    "names",
		Columns: []metastore.Column{{Name: "name", Kind: types.KindString}},
	})
	index := store.PutIndex(metastore.Index{TableID: table.ID, Name: "by_name", KeyColumns: []string{"name"}})
	partition := store.PutPartition(metastore.Partition{IndexID: index.ID, Active: true, FileSize: -1})

	older := time.Now().Add(-2 * time.Minute)
	newer := time.Now().Add(-1 * time.Minute)
	chunk1 := store.PutChunk(metastore.Chunk{PartitionID: partition.ID, RowCount: 5, InMemory: true, Active: true, Uploaded: true, OldestInsertAt: older})
	chunk2 := store.PutChunk(metastore.Chunk{PartitionID: partition.ID, RowCount: 5, InMemory: true, Active: true, Uploaded: true, OldestInsertAt: newer})

	engine := NewEngine(zap.NewNop(), store, fs, ctx.Dir("scratch"), DefaultConfig())

	descending := chunkstore.RecordBatch{
		Schema: []string{"name"},
		Rows: []types.Row{
			nameRow("Foo4"), nameRow("Foo3"), nameRow("Foo2"), nameRow("Foo1"), nameRow("Foo0"),
		},
	}
	engine.mem.put(chunk1.ID, descending)
	engine.mem.put(chunk2.ID, descending)

	require.NoError(t, engine.CompactInMemoryChunks(ctx, partition.ID))

	chunks, err := store.GetChunksByPartition(ctx, partition.ID, false)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, uint64(10), chunks[0].RowCount)
	require.True(t, chunks[0].InMemory)
	require.True(t, chunks[0].OldestInsertAt.Equal(older))

	merged, ok := engine.mem.get(chunks[0].ID)
	require.True(t, ok)
	require.Equal(t, []types.Row{
		nameRow("Foo0"), nameRow("Foo0"),
		nameRow("Foo1"), nameRow("Foo1"),
		nameRow("Foo2"), nameRow("Foo2"),
		nameRow("Foo3"), nameRow("Foo3"),
		nameRow("Foo4"), nameRow("Foo4"),
	}, merged.Rows)

	_, ok = engine.mem.get(chunk1.ID)
	require.False(t, ok)
	_, ok = engine.mem.get(chunk2.ID)
	require.False(t, ok)
}
