// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

// Package chunkstore reads and writes columnar record batches for
// persistent and in-memory chunks. Physical Parquet encoding is out
// of Core A's scope per the storage-format contract in §6 (the
// engine only builds and executes plan trees against a "stream of
// record batches" abstraction) -- RecordBatch here is that
// abstraction, with a minimal local-disk encoding standing in for
// the real columnar file format so compaction can round-trip data in
// tests and single-node deployments.
package chunkstore

import (
	"sort"

	"github.com/latticedb/lattice/pkg/types"
)

// RecordBatch is a row-major batch of rows sharing one schema.
type RecordBatch struct {
	Schema []string // column names, in row order
	Rows   []types.Row
}

// NumRows returns the number of rows in the batch.
func (b RecordBatch) NumRows() int { return len(b.Rows) }

// Concat concatenates batches row-wise; all must share the same
// schema. It does not sort.
func Concat(batches ...RecordBatch) RecordBatch {
	if len(batches) == 0 {
		return RecordBatch{}
	}
	out := RecordBatch{Schema: batches[0].Schema}
	for _, b := range batches {
		out.Rows = append(out.Rows, b.Rows...)
	}
	return out
}

// LexsortToIndices returns a permutation of batch.Rows that sorts
// them ascending on the first keyLen columns, the Core A equivalent
// of lexsort_to_indices + take on concatenated column arrays (§4.2.4).
func LexsortToIndices(batch RecordBatch, keyLen int) []int {
	idx := make([]int, len(batch.Rows))
	for i := range idx {
		idx[i] = i
	}
	// Stable: LastRowByUniqueKey depends on preserving per-chunk
	// insert order within a run of equal keys.
	sort.SliceStable(idx, func(a, b int) bool {
		ka := types.KeyOf(batch.Rows[idx[a]], keyLen)
		kb := types.KeyOf(batch.Rows[idx[b]], keyLen)
		return ka.Compare(kb) < 0
	})
	return idx
}

// Take reorders batch.Rows according to indices, the counterpart to
// LexsortToIndices.
func Take(batch RecordBatch, indices []int) RecordBatch {
	out := RecordBatch{Schema: batch.Schema, Rows: make([]types.Row, len(indices))}
	for i, idx := range indices {
		out.Rows[i] = batch.Rows[idx]
	}
	return out
}
