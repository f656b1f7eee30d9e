// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package compaction

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/latticedb/lattice/internal/sync2"
	"github.com/latticedb/lattice/pkg/chunkstore"
	"github.com/latticedb/lattice/pkg/execplan"
	"github.com/latticedb/lattice/pkg/metastore"
	"github.com/latticedb/lattice/pkg/types"
)

// Compact implements §4.2.1: merge a prefix of a partition's pending
// chunks into either a single consolidated chunk (multi-partition
// context) or a balanced set of replacement partitions
// (non-multi-partition context). It is idempotent: if preconditions
// no longer hold, it returns nil without effect.
func (e *Engine) Compact(ctx context.Context, partitionID uint64) (err error) {
	defer mon.Task()(&ctx)(&err)

	data, multi, err := e.store.GetPartitionForCompaction(ctx, partitionID)
	if err != nil {
		return Error.Wrap(err)
	}

	if !data.Partition.Active && multi == nil {
		return nil
	}
	if multi != nil && multi.PreparedForSplit {
		return nil
	}

	selected := selectChunksForCompaction(data.Chunks, e.cfg, nowTruncated())
	if len(selected) == 0 {
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
	mainTable, err := e.readMainTable(ctx, data.Partition, schema, guard)
	if err != nil {
		return err
	}

	plan := e.buildPlan(mainTable, chunkBatches, keyLen, data.Table, data.Index)
	merged, err := plan.Execute(ctx)
	if err != nil {
		return Error.Wrap(err)
	}

	oldChunkIDs := chunkIDs(selected)

	if multi != nil {
		return e.compactMultiPartitionChunk(ctx, data.Partition.ID, oldChunkIDs, merged, guard)
	}

	n := e.computeSplitCount(data)
	return e.compactIntoPartitions(ctx, data, merged, keyLen, n, oldChunkIDs, guard)
}

// readAndTruncateChunks downloads/resolves every chunk's data and
// truncates timestamp columns to millisecond precision, the
// conversion every inserted row undergoes (§3, §4.2.4).
func (e *Engine) readAndTruncateChunks(ctx context.Context, chunks []metastore.Chunk, guard *sync2.ScratchGuard) ([]chunkstore.RecordBatch, error) {
	batches := make([]chunkstore.RecordBatch, 0, len(chunks))
	for _, c := range chunks {
		b, err := e.readChunk(ctx, c, guard)
		if err != nil {
			return nil, Error.Wrap(err)
		}
		batches = append(batches, truncateBatch(b))
	}
	return batches, nil
}

func truncateBatch(b chunkstore.RecordBatch) chunkstore.RecordBatch {
	out := chunkstore.RecordBatch{Schema: b.Schema, Rows: make([]types.Row, len(b.Rows))}
	for i, row := range b.Rows {
		tr := make(types.Row, len(row))
		for j, v := range row {
			tr[j] = v.TruncateToMillis()
		}
		out.Rows[i] = tr
	}
	return out
}

func chunkIDs(chunks []metastore.Chunk) []uint64 {
	out := make([]uint64, len(chunks))
	for i, c := range chunks {
		out[i] = c.ID
	}
	return out
}

// buildPlan implements §4.2.1 step 5: Merge(MainTable,
// SortedConcat(Chunks)), with a FinalHashAggregate or
// LastRowByUniqueKey tail depending on the index/table shape.
func (e *Engine) buildPlan(mainTable execplan.Node, chunks []chunkstore.RecordBatch, keyLen int, table metastore.Table, idx metastore.Index) execplan.Node {
	if idx.Type == metastore.IndexAggregate {
		return execplan.BuildAggregatePlan(mainTable, chunks, keyLen, resolveAggregators(table, idx))
	}
	return execplan.BuildMergePlan(mainTable, chunks, keyLen, resolveUniqueKeyIndex(table))
}

// computeSplitCount implements §4.2.1 step 3's non-multi-partition
// shape: N = min(16, ceil(pending_rows / partition_split_threshold)),
// where pending_rows counts ALL pending chunks (not just the
// selected prefix) plus the current main table row count.
func (e *Engine) computeSplitCount(data metastore.PartitionData) int {
	var pending uint64
	for _, c := range data.Chunks {
		pending += c.RowCount
	}
	pending += data.Partition.MainTableRowCount

	threshold := data.Table.PartitionSplitThreshold
	if threshold == 0 {
		threshold = e.cfg.PartitionSplitThreshold
	}
	if threshold == 0 {
		return 1
	}
	n := ceilDiv(pending, threshold)
	if n == 0 {
		n = 1
	}
	return int(minUint64(n, 16))
}

// compactMultiPartitionChunk implements the multi-partition context
// output shape of §4.2.1 step 3/6: a single new chunk folding the
// selected chunks' data, committed via SwapCompactedChunks. Returns
// success without effect on a concurrent-split conflict.
func (e *Engine) compactMultiPartitionChunk(ctx context.Context, partitionID uint64, oldChunkIDs []uint64, merged chunkstore.RecordBatch, guard *sync2.ScratchGuard) error {
	if len(oldChunkIDs) < 2 {
		return nil
	}

	newChunk, err := e.store.CreateChunk(ctx, partitionID, uint64(merged.NumRows()), false)
	if err != nil {
		return Error.Wrap(err)
	}

	local := filepath.Join(e.scratchDir, fmt.Sprintf("compact-%d.local", newChunk.ID))
	guard.Add(local)
	size, err := chunkstore.WriteFile(local, merged)
	if err != nil {
		return Error.Wrap(err)
	}

	remoteName := chunkFileName(newChunk.ID)
	if size, err = e.fs.UploadFile(ctx, local, remoteName); err != nil {
		return Error.Wrap(err)
	}

	ok, err := e.store.SwapCompactedChunks(ctx, partitionID, oldChunkIDs, newChunk.ID, size)
	if err != nil {
		return Error.Wrap(err)
	}
	if !ok {
		e.log.Debug("compaction lost race with concurrent split, dropping upload", zap.Uint64("partition_id", partitionID))
		return e.fs.DeleteFile(ctx, remoteName)
	}
	return e.store.ChunkUploaded(ctx, newChunk.ID)
}

// compactIntoPartitions implements the non-multi-partition output
// shape of §4.2.1 steps 3/6: balance the merged rows into n files,
// pre-create n child partitions, upload non-empty outputs and swap
// them in atomically via SwapActivePartitions.
func (e *Engine) compactIntoPartitions(ctx context.Context, data metastore.PartitionData, merged chunkstore.RecordBatch, keyLen int, n int, oldChunkIDs []uint64, guard *sync2.ScratchGuard) error {
	files := balanceRowsBySize(merged.Rows, keyLen, n)
	if len(files) == 0 {
		// Nothing to write; deactivate the (now empty) partition by
		// swapping it out for zero replacements is not representable,
		// so just leave it as-is: idempotent no-op.
		return nil
	}

	children := make([]metastore.Partition, 0, n)
	for i := 0; i < n; i++ {
		child, err := e.store.CreatePartition(ctx, metastore.Partition{
			IndexID:          data.Partition.IndexID,
			ParentID:         data.Partition.ID,
			MultiPartitionID: data.Partition.MultiPartitionID,
			Active:           false,
		})
		if err != nil {
			return Error.Wrap(err)
		}
		children = append(children, child)
	}

	newRanges := make([]metastore.NewPartitionRange, 0, len(files))
	for i, f := range files {
		local := filepath.Join(e.scratchDir, fmt.Sprintf("partition-%d.local", children[i].ID))
		guard.Add(local)

		batch := chunkstore.RecordBatch{Schema: merged.Schema, Rows: f.Rows}
		size, err := chunkstore.WriteFile(local, batch)
		if err != nil {
			return Error.Wrap(err)
		}
		remoteName := partitionFileName(children[i].ID)
		if size, err = e.fs.UploadFile(ctx, local, remoteName); err != nil {
			return Error.Wrap(err)
		}

		min, max := deriveBounds(files, i, data.Partition.MinRow, data.Partition.MaxRow, nil)

		newRanges = append(newRanges, metastore.NewPartitionRange{
			PartitionID: children[i].ID,
			IndexID:     data.Partition.IndexID,
			MinRow:      min,
			MaxRow:      max,
			RowCount:    f.RowCount,
			FileSize:    size,
			FileName:    remoteName,
		})
	}

	if dropped := n - len(files); dropped > 0 {
		e.emptyPartitionsDropped.Mark(dropped)
	}

	return e.store.SwapActivePartitions(ctx, []uint64{data.Partition.ID}, oldChunkIDs, newRanges)
}
