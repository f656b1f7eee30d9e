// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

// Package compaction implements Core A: merging chunks into partition
// main tables, splitting partitions, in-memory chunk compaction, and
// multi-partition splits under concurrent ingest.
package compaction

import "time"

// Config holds the tunables named in spec §6 that govern Core A's
// behaviour.
type Config struct {
	// PartitionSplitThreshold is the target row count per partition
	// after a split or a non-multi-partition repartition.
	PartitionSplitThreshold uint64

	// ChunksTotalSizeThreshold caps the rows compacted in one
	// compact() pass.
	ChunksTotalSizeThreshold uint64

	// InMemoryChunksSizeLimit: above this per-chunk row count, an
	// in-memory chunk is promoted by compact() instead of being
	// handled by compact_in_memory_chunks().
	InMemoryChunksSizeLimit uint64

	// InMemoryChunksTotalSizeLimit caps the total rows of a single
	// compact_in_memory_chunks() pass.
	InMemoryChunksTotalSizeLimit uint64

	// InMemoryChunksMaxLifetime forces promotion of an in-memory
	// chunk once it has lived this long.
	InMemoryChunksMaxLifetime time.Duration

	// SplitParallelism bounds how many per-index file writes run
	// concurrently during a multi-partition split.
	SplitParallelism int
}

// DefaultConfig returns the documented defaults (large
// PartitionSplitThreshold, a few hundred thousand rows).
func DefaultConfig() Config {
	return Config{
		PartitionSplitThreshold:      500_000,
		ChunksTotalSizeThreshold:     10_000_000,
		InMemoryChunksSizeLimit:      262_144,
		InMemoryChunksTotalSizeLimit: 1_048_576,
		InMemoryChunksMaxLifetime:    10 * time.Minute,
		SplitParallelism:             4,
	}
}
