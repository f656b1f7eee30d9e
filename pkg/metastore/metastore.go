// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package metastore

import (
	"context"

	"github.com/zeebo/errs"
)

// Error is the error class for every failure the metastore surfaces.
var Error = errs.Class("metastore")

// ErrConcurrentSplit names the concurrent-split conflict. SwapCompactedChunks
// does not return it: it reports the conflict as (false, nil) when the
// target multi-partition has been latched prepared-for-split, and the
// caller treats that as success-without-effect, not a failure.
var ErrConcurrentSplit = Error.New("concurrent split in progress")

// Store is the transactional catalog contract Core A requires. Every
// method is atomic: callers never compose two calls into one
// transaction.
type Store interface {
	// GetPartitionForCompaction resolves a partition id to the
	// partition row, its owning index and table, and the
	// multi-partition it belongs to, if any.
	GetPartitionForCompaction(ctx context.Context, partitionID uint64) (PartitionData, *MultiPartition, error)

	// GetChunksByPartition returns the chunks of a partition.
	// includeInactive also returns chunks whose Active flag is
	// false (used by diagnostics, never by compaction itself).
	GetChunksByPartition(ctx context.Context, partitionID uint64, includeInactive bool) ([]Chunk, error)

	// CreatePartition inserts a new, initially inactive-until-swapped
	// partition row.
	CreatePartition(ctx context.Context, p Partition) (Partition, error)

	// CreateChunk inserts a new chunk row for a partition.
	CreateChunk(ctx context.Context, partitionID uint64, rowCount uint64, inMemory bool) (Chunk, error)

	// ChunkUploaded marks a chunk's blob as durable.
	ChunkUploaded(ctx context.Context, chunkID uint64) error

	// SwapChunks atomically deactivates oldIDs and activates the
	// chunks described by newChunks, used by in-memory chunk
	// compaction.
	SwapChunks(ctx context.Context, oldIDs []uint64, newChunks []ChunkWithRowCount) error

	// SwapCompactedChunks atomically deactivates oldChunkIDs and
	// records fileSize on newChunkID, the single chunk that now holds
	// their rows. Returns false without mutation if the partition's
	// multi-partition has been prepared for split concurrently.
	SwapCompactedChunks(ctx context.Context, partitionID uint64, oldChunkIDs []uint64, newChunkID uint64, fileSize int64) (bool, error)

	// SwapActivePartitions atomically deactivates oldPartitions and
	// the chunk ids folded into them, and activates newPartitions,
	// each entry carrying its own range, row count and file. Returns
	// an error if oldPartitionIDs is empty or names an unknown
	// partition; the numbers of old and new partitions are not
	// compared.
	SwapActivePartitions(ctx context.Context, oldPartitionIDs []uint64, foldedChunkIDs []uint64, newPartitions []NewPartitionRange) error

	// CreateMultiPartition inserts a new child multi-partition row
	// during a split, before any of its child partitions exist.
	CreateMultiPartition(ctx context.Context, mp MultiPartition) (MultiPartition, error)

	// PrepareMultiPartitionForSplit flips prepared_for_split and
	// returns everything the split planner needs: the multi-index
	// (the index shared across the multi-partition's child
	// partitions, used to read the split-key prefix), the
	// multi-partition itself, and one PartitionData per table index.
	PrepareMultiPartitionForSplit(ctx context.Context, multiPartitionID uint64) (Index, MultiPartition, []PartitionData, error)

	// PrepareMultiSplitFinish resolves the already-created child
	// multi-partitions for a straggler partition created under mid
	// after phase 1 began.
	PrepareMultiSplitFinish(ctx context.Context, multiPartitionID, partitionID uint64) (PartitionData, []MultiPartition, error)

	// CommitMultiPartitionSplit is the single linearisation point of
	// a multi-partition split: it atomically deactivates
	// oldPartitionIDs and activates the new partitions described by
	// newPartitions, records childRowCounts against childMultiIDs,
	// and marks the split initial or a late drain.
	CommitMultiPartitionSplit(ctx context.Context, multiPartitionID uint64, childMultiIDs []uint64, childRowCounts []uint64, oldPartitionIDs []uint64, newPartitions []NewPartitionRange, initialSplit bool) error

	// DeactivateTableOnCorruptData takes a table offline after an
	// unreadable Parquet file or failed download is detected.
	DeactivateTableOnCorruptData(ctx context.Context, tableID uint64, reason error) error
}
