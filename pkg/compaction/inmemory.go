// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package compaction

import (
	"context"

	"github.com/latticedb/lattice/internal/sync2"
	"github.com/latticedb/lattice/pkg/execplan"
	"github.com/latticedb/lattice/pkg/metastore"
)

// CompactInMemoryChunks implements §4.2.2: merge hot in-memory chunks
// to reduce write amplification. If fewer than two chunks qualify it
// returns nil without effect. The result is materialised as a single
// new in-memory chunk whose oldest_insert_at is the minimum of the
// inputs' ages, so compaction urgency carries forward, and the swap
// is applied atomically via SwapChunks.
func (e *Engine) CompactInMemoryChunks(ctx context.Context, partitionID uint64) (err error) {
	defer mon.Task()(&ctx)(&err)

	data, _, err := e.store.GetPartitionForCompaction(ctx, partitionID)
	if err != nil {
		return Error.Wrap(err)
	}

	selected := selectInMemoryChunksForMerge(data.Chunks, e.cfg, nowTruncated())
	if len(selected) < 2 {
		return nil
	}

	guard := sync2.NewScratchGuard()
	defer func() { _ = guard.Close() }()

	schema := tableSchema(data.Table)
	keyLen := len(data.Index.KeyColumns)

	chunkBatches, err := e.readAndTruncateChunks(ctx, selected, guard)
	if err != nil {
		return err
	}

	// §4.2.2: "the main-table input is empty".
	mainTable := execplan.EmptyExec{Schema: schema}
	plan := e.buildPlan(mainTable, chunkBatches, keyLen, data.Table, data.Index)
	merged, err := plan.Execute(ctx)
	if err != nil {
		return Error.Wrap(err)
	}

	oldest := selected[0].OldestInsertAt
	for _, c := range selected[1:] {
		if c.OldestInsertAt.Before(oldest) {
			oldest = c.OldestInsertAt
		}
	}

	newChunk, err := e.store.CreateChunk(ctx, partitionID, uint64(merged.NumRows()), true)
	if err != nil {
		return Error.Wrap(err)
	}
	e.mem.put(newChunk.ID, merged)

	oldIDs := chunkIDs(selected)
	if err := e.store.SwapChunks(ctx, oldIDs, []metastore.ChunkWithRowCount{{
		ChunkID:        newChunk.ID,
		RowCount:       uint64(merged.NumRows()),
		InMemory:       true,
		Uploaded:       true,
		OldestInsertAt: oldest,
	}}); err != nil {
		return Error.Wrap(err)
	}

	for _, id := range oldIDs {
		e.mem.delete(id)
	}
	return nil
}
