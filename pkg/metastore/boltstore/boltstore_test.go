// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package boltstore_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/latticedb/lattice/internal/testctx"
	"github.com/latticedb/lattice/pkg/metastore"
	"github.com/latticedb/lattice/pkg/metastore/boltstore"
	"github.com/latticedb/lattice/pkg/types"
)

// TestOpenPersistsAcrossReopen writes a table/index/partition/chunk,
// closes the database, reopens it, and checks that the partition --
// including its Active flag and MinRow/MaxRow key encoding -- and its
// chunk's id and row count survived the round trip, and that ID
// allocation continues past the ids already on disk instead of
// colliding with them.
func TestOpenPersistsAcrossReopen(t *testing.T) {
	ctx := testctx.New(t)
	defer ctx.Cleanup()

	path := filepath.Join(ctx.Dir("bolt"), "catalog.db")

	store, err := boltstore.Open(zap.NewNop(), path)
	require.NoError(t, err)

	table, err := store.PutTable(metastore.Table{Name: "names"})
	require.NoError(t, err)
	index, err := store.PutIndex(metastore.Index{TableID: table.ID, Name: "by_name"})
	require.NoError(t, err)

	part, err := store.CreatePartition(ctx, metastore.Partition{
		IndexID: index.ID,
		MinRow:  types.Key{{Kind: types.KindString, String: "a"}},
		MaxRow:  types.Key{{Kind: types.KindString, String: "m"}},
		Active:  true,
	})
	require.NoError(t, err)

	chunk, err := store.CreateChunk(ctx, part.ID, 42, false)
	require.NoError(t, err)

	require.NoError(t, store.Close())

	reopened, err := boltstore.Open(zap.NewNop(), path)
	require.NoError(t, err)
	defer reopened.Close()

	data, _, err := reopened.GetPartitionForCompaction(ctx, part.ID)
	require.NoError(t, err)
	require.True(t, data.Partition.Active)
	require.True(t, data.Partition.MinRow.Equal(types.Key{{Kind: types.KindString, String: "a"}}))
	require.True(t, data.Partition.MaxRow.Equal(types.Key{{Kind: types.KindString, String: "m"}}))
	require.Len(t, data.Chunks, 1)
	require.Equal(t, chunk.ID, data.Chunks[0].ID)
	require.Equal(t, uint64(42), data.Chunks[0].RowCount)

	next, err := reopened.CreatePartition(ctx, metastore.Partition{IndexID: index.ID})
	require.NoError(t, err)
	require.NotEqual(t, part.ID, next.ID)
	require.NotEqual(t, chunk.ID, next.ID)
}
