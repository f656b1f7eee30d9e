// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package compaction

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/latticedb/lattice/internal/sync2"
	"github.com/latticedb/lattice/pkg/chunkstore"
	"github.com/latticedb/lattice/pkg/metastore"
	"github.com/latticedb/lattice/pkg/types"
)

// keyCount is one (key, count) pair of the sorted aggregation §4.2.3
// phase 1 runs over the key prefix across all of a multi-partition's
// files.
type keyCount struct {
	Key   types.Key
	Count uint64
}

// countKeys aggregates row counts by key prefix, the "sorted
// aggregation that emits (key, count)" of phase 1.
func countKeys(rows []types.Row, keyLen int) []keyCount {
	counts := map[string]*keyCount{}
	var order []string
	keyOf := func(r types.Row) types.Key { return types.KeyOf(r, keyLen) }

	for _, row := range rows {
		k := keyOf(row)
		s := keyString(k)
		if kc, ok := counts[s]; ok {
			kc.Count++
			continue
		}
		counts[s] = &keyCount{Key: k, Count: 1}
		order = append(order, s)
	}

	out := make([]keyCount, 0, len(order))
	for _, s := range order {
		out = append(out, *counts[s])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Compare(out[j].Key) < 0 })
	return out
}

func keyString(k types.Key) string {
	s := ""
	for _, v := range k {
		s += fmt.Sprintf("%d:%v|", v.Kind, v)
	}
	return s
}

// chooseSplitBoundaries implements the greedy bucketing rule of
// phase 1: walk keys in order, accumulate counts, emit a boundary
// whenever the bucket would exceed threshold rows.
func chooseSplitBoundaries(counts []keyCount, threshold uint64) []types.Key {
	var boundaries []types.Key
	var bucket uint64
	for _, kc := range counts {
		if bucket > 0 && bucket+kc.Count > threshold {
			boundaries = append(boundaries, kc.Key)
			bucket = 0
		}
		bucket += kc.Count
	}
	return boundaries
}

// bucketOf returns the index of the child range key falls into,
// given ascending boundaries: bucket i covers [boundaries[i-1],
// boundaries[i]).
func bucketOf(key types.Key, boundaries []types.Key) int {
	for i, b := range boundaries {
		if key.Compare(b) < 0 {
			return i
		}
	}
	return len(boundaries)
}

// keyBoundedWrite implements the key-bounded writer of phase 2:
// begin writing to file 0; when the next row's key crosses a
// boundary, close the current file and open the next.
func keyBoundedWrite(rows []types.Row, keyLen int, boundaries []types.Key) []outputFile {
	files := make([]outputFile, len(boundaries)+1)
	for _, row := range rows {
		b := bucketOf(types.KeyOf(row, keyLen), boundaries)
		files[b].Rows = append(files[b].Rows, row)
	}
	for i := range files {
		files[i].RowCount = uint64(len(files[i].Rows))
		if files[i].RowCount > 0 {
			files[i].FirstKey = types.KeyOf(files[i].Rows[0], keyLen)
		}
	}
	return files
}

// deriveBounds computes a child partition's [min,max) key range by
// peeking the physical first row of files[i] and files[i+1] rather
// than recomputing anything from the boundary list: the parent
// partition's own bound stands in at the open ends, and the chosen
// split boundary stands in when the next file turned out empty (no
// row to peek), which only commitSplit's per-index fan-out can hit --
// compactIntoPartitions passes a nil boundaries and never needs the
// fallback.
func deriveBounds(files []outputFile, i int, parentMin, parentMax types.Key, boundaries []types.Key) (min, max types.Key) {
	min = parentMin
	if i > 0 {
		min = files[i].FirstKey
	}
	if i == len(files)-1 {
		return min, parentMax
	}
	max = files[i+1].FirstKey
	if files[i+1].RowCount == 0 && i < len(boundaries) {
		max = boundaries[i]
	}
	return min, max
}

// readAndMergeAllRows reads a partition's main table plus every
// pending chunk in full (no threshold-bounded prefix selection) and
// returns the sorted, merged rows on its index's key prefix -- the
// "read the source" step used by both split phases.
func (e *Engine) readAndMergeAllRows(ctx context.Context, pd metastore.PartitionData, guard *sync2.ScratchGuard) (chunkstore.RecordBatch, error) {
	schema := tableSchema(pd.Table)
	keyLen := len(pd.Index.KeyColumns)

	chunkBatches, err := e.readAndTruncateChunks(ctx, pd.Chunks, guard)
	if err != nil {
		return chunkstore.RecordBatch{}, err
	}
	mainTable, err := e.readMainTable(ctx, pd.Partition, schema, guard)
	if err != nil {
		return chunkstore.RecordBatch{}, err
	}

	plan := e.buildPlan(mainTable, chunkBatches, keyLen, pd.Table, pd.Index)
	return plan.Execute(ctx)
}

// SplitMultiPartition implements §4.2.3 phases 1-2: plan a split
// across all indexes of a table, create child multi-partitions and
// child partitions, and commit atomically. Aborts (returns nil) if
// the key distribution yields zero boundaries.
func (e *Engine) SplitMultiPartition(ctx context.Context, multiPartitionID uint64) (err error) {
	defer mon.Task()(&ctx)(&err)

	multiIndex, mp, partitionDatas, err := e.store.PrepareMultiPartitionForSplit(ctx, multiPartitionID)
	if err != nil {
		return Error.Wrap(err)
	}
	if len(partitionDatas) == 0 {
		return nil
	}

	guard := sync2.NewScratchGuard()
	defer func() { _ = guard.Close() }()

	// Phase 1: pick split keys from the canonical (multi) index's
	// partition.
	var canonical *metastore.PartitionData
	for i := range partitionDatas {
		if partitionDatas[i].Index.ID == multiIndex.ID {
			canonical = &partitionDatas[i]
			break
		}
	}
	if canonical == nil {
		canonical = &partitionDatas[0]
	}

	merged, err := e.readAndMergeAllRows(ctx, *canonical, guard)
	if err != nil {
		return err
	}
	keyLen := len(canonical.Index.KeyColumns)
	counts := countKeys(merged.Rows, keyLen)

	threshold := canonical.Table.PartitionSplitThreshold
	if threshold == 0 {
		threshold = e.cfg.PartitionSplitThreshold
	}
	boundaries := chooseSplitBoundaries(counts, threshold)
	if len(boundaries) == 0 {
		return nil
	}

	return e.commitSplit(ctx, mp, partitionDatas, boundaries, true, guard)
}

// FinishMultiSplit implements §4.2.3 phase 3: drain a partition
// created under the old multi-partition between phases 1 and 2,
// using the already-created child multi-partitions.
func (e *Engine) FinishMultiSplit(ctx context.Context, multiPartitionID, partitionID uint64) (err error) {
	defer mon.Task()(&ctx)(&err)

	data, children, err := e.store.PrepareMultiSplitFinish(ctx, multiPartitionID, partitionID)
	if err != nil {
		return Error.Wrap(err)
	}
	if len(children) == 0 {
		return nil
	}

	guard := sync2.NewScratchGuard()
	defer func() { _ = guard.Close() }()

	boundaries := make([]types.Key, 0, len(children)-1)
	sort.Slice(children, func(i, j int) bool { return children[i].MinRow.Compare(children[j].MinRow) < 0 })
	for _, c := range children[1:] {
		boundaries = append(boundaries, c.MinRow)
	}

	return e.commitSplit(ctx, metastore.MultiPartition{ID: multiPartitionID}, []metastore.PartitionData{data}, boundaries, false, guard)
}

// commitSplit implements phase 2's per-index fan-out: for every
// source partition, write a key-bounded file per child, upload in
// parallel, then call CommitMultiPartitionSplit once with every
// source/new partition across every index.
func (e *Engine) commitSplit(ctx context.Context, mp metastore.MultiPartition, partitionDatas []metastore.PartitionData, boundaries []types.Key, initialSplit bool, guard *sync2.ScratchGuard) error {
	childCount := len(boundaries) + 1

	childMultiIDs := make([]uint64, childCount)
	childRowCounts := make([]uint64, childCount)
	for i := 0; i < childCount; i++ {
		var min, max types.Key
		if i > 0 {
			min = boundaries[i-1]
		}
		if i < childCount-1 {
			max = boundaries[i]
		}
		child, err := e.store.CreateMultiPartition(ctx, metastore.MultiPartition{
			TableID:  mp.TableID,
			MinRow:   min,
			MaxRow:   max,
			ParentID: mp.ID,
		})
		if err != nil {
			return Error.Wrap(err)
		}
		childMultiIDs[i] = child.ID
	}

	var oldPartitionIDs []uint64
	var newPartitions []metastore.NewPartitionRange

	group := sync2.NewWorkGroup(e.cfg.SplitParallelism)

	for _, pd := range partitionDatas {
		pd := pd
		merged, err := e.readAndMergeAllRows(ctx, pd, guard)
		if err != nil {
			return err
		}
		keyLen := len(pd.Index.KeyColumns)
		files := keyBoundedWrite(merged.Rows, keyLen, boundaries)

		children := make([]metastore.Partition, childCount)
		for i := 0; i < childCount; i++ {
			child, err := e.store.CreatePartition(ctx, metastore.Partition{
				IndexID:          pd.Index.ID,
				ParentID:         pd.Partition.ID,
				MultiPartitionID: childMultiIDs[i],
				Active:           false,
			})
			if err != nil {
				return Error.Wrap(err)
			}
			children[i] = child
		}

		oldPartitionIDs = append(oldPartitionIDs, pd.Partition.ID)

		ranges := make([]metastore.NewPartitionRange, childCount)

		type result struct {
			idx int
			r   metastore.NewPartitionRange
			err error
		}
		results := make(chan result, childCount)

		for i := 0; i < childCount; i++ {
			i := i
			f := files[i]
			child := children[i]
			group.Go(ctx, func(ctx context.Context) error {
				if f.RowCount == 0 {
					results <- result{idx: i}
					return nil
				}
				local := filepath.Join(e.scratchDir, fmt.Sprintf("split-%d-%d.local", pd.Partition.ID, child.ID))
				guard.Add(local)

				batch := chunkstore.RecordBatch{Schema: merged.Schema, Rows: f.Rows}
				size, err := chunkstore.WriteFile(local, batch)
				if err != nil {
					results <- result{idx: i, err: Error.Wrap(err)}
					return err
				}
				remoteName := partitionFileName(child.ID)
				if size, err = e.fs.UploadFile(ctx, local, remoteName); err != nil {
					results <- result{idx: i, err: Error.Wrap(err)}
					return err
				}

				min, max := deriveBounds(files, i, pd.Partition.MinRow, pd.Partition.MaxRow, boundaries)

				results <- result{idx: i, r: metastore.NewPartitionRange{
					PartitionID: child.ID,
					IndexID:     pd.Index.ID,
					MinRow:      min,
					MaxRow:      max,
					RowCount:    f.RowCount,
					FileSize:    size,
					FileName:    remoteName,
				}}
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return err
		}
		close(results)
		for res := range results {
			if res.err != nil {
				return res.err
			}
			if res.r.PartitionID != 0 {
				ranges[res.idx] = res.r
			}
		}
		for i, r := range ranges {
			if r.PartitionID == 0 {
				continue // empty child for this index
			}
			newPartitions = append(newPartitions, r)
			childRowCounts[i] += r.RowCount
		}
	}

	return e.store.CommitMultiPartitionSplit(ctx, mp.ID, childMultiIDs, childRowCounts, oldPartitionIDs, newPartitions, initialSplit)
}
