// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package compaction

import (
	"sort"
	"time"

	"github.com/latticedb/lattice/pkg/metastore"
	"github.com/latticedb/lattice/pkg/types"
)

// tableSchema returns column names in declared order, the schema
// every chunk/partition file of this table shares.
func tableSchema(table metastore.Table) []string {
	out := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		out[i] = c.Name
	}
	return out
}

// selectChunksForCompaction implements §4.2.1 step 1-2: sort
// ascending by row count, drop small fresh in-memory chunks (handled
// by compact_in_memory_chunks instead), then greedily take a prefix
// whose total stays under the configured threshold, always admitting
// at least one chunk and any in-memory chunk that has grown past the
// in-memory size limit or outlived the in-memory max lifetime.
func selectChunksForCompaction(chunks []metastore.Chunk, cfg Config, now time.Time) []metastore.Chunk {
	sorted := make([]metastore.Chunk, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RowCount < sorted[j].RowCount })

	var candidates []metastore.Chunk
	for _, c := range sorted {
		if !c.InMemory {
			candidates = append(candidates, c)
			continue
		}
		forced := c.RowCount > cfg.InMemoryChunksSizeLimit || now.Sub(c.OldestInsertAt) > cfg.InMemoryChunksMaxLifetime
		if forced {
			candidates = append(candidates, c)
		}
		// else: small, fresh in-memory chunk -- left for
		// compact_in_memory_chunks.
	}

	var selected []metastore.Chunk
	var running uint64
	for i, c := range candidates {
		if i > 0 && running+c.RowCount > cfg.ChunksTotalSizeThreshold {
			break
		}
		selected = append(selected, c)
		running += c.RowCount
	}
	return selected
}

// selectInMemoryChunksForMerge implements §4.2.2: chunks that are
// simultaneously in-memory, active, under the per-chunk size limit
// and young enough, stopping once the running total exceeds the
// (smaller) in-memory total size limit.
func selectInMemoryChunksForMerge(chunks []metastore.Chunk, cfg Config, now time.Time) []metastore.Chunk {
	var eligible []metastore.Chunk
	for _, c := range chunks {
		if !c.InMemory || !c.Active {
			continue
		}
		if c.RowCount > cfg.InMemoryChunksSizeLimit {
			continue
		}
		if now.Sub(c.OldestInsertAt) > cfg.InMemoryChunksMaxLifetime {
			continue
		}
		eligible = append(eligible, c)
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].RowCount < eligible[j].RowCount })

	var selected []metastore.Chunk
	var running uint64
	for _, c := range eligible {
		if running > cfg.InMemoryChunksTotalSizeLimit {
			break
		}
		selected = append(selected, c)
		running += c.RowCount
	}
	return selected
}

// outputFile is one balanced output of a non-multi-partition compact
// repartition: a contiguous run of rows plus its first key, used to
// derive the new partitions' ranges.
type outputFile struct {
	Rows     []types.Row
	RowCount uint64
	FirstKey types.Key
}

// balanceRowsBySize implements §4.2.1 step 6's balancing rule:
// target size ceil(total/N), never splitting a run of rows sharing
// the same key prefix across two files, closing the current file
// only at the next strict key boundary.
func balanceRowsBySize(rows []types.Row, keyLen int, n int) []outputFile {
	if len(rows) == 0 || n <= 0 {
		return nil
	}
	target := ceilDiv(uint64(len(rows)), uint64(n))
	if target == 0 {
		target = 1
	}

	var files []outputFile
	var current []types.Row
	var currentKey types.Key

	flush := func() {
		if len(current) == 0 {
			return
		}
		files = append(files, outputFile{
			Rows:     current,
			RowCount: uint64(len(current)),
			FirstKey: types.KeyOf(current[0], keyLen),
		})
		current = nil
	}

	for _, row := range rows {
		k := types.KeyOf(row, keyLen)
		atBoundary := current == nil || !k.Equal(currentKey)

		if len(current) > 0 && uint64(len(current)) >= target && atBoundary && len(files) < n-1 {
			flush()
		}
		current = append(current, row)
		currentKey = k
	}
	flush()
	return files
}
