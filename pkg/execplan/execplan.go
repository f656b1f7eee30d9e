// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

// Package execplan provides the ExecutionPlan node constructors Core
// A is required to target (§6: EmptyExec, ParquetExec, MemoryExec,
// UnionExec, MergeSortExec, HashAggregateExec, LastRowByUniqueKeyExec)
// plus a minimal in-process executor. The real physical operators
// (parquet I/O, a cost-based scheduler) are out of scope per spec
// §1; this executor exists only so the compaction engine's plan
// trees are actually runnable in-process and in tests, the way the
// spec's "stream of record batches" contract requires without
// assuming any particular external scheduler.
package execplan

import (
	"context"

	"github.com/zeebo/errs"

	"github.com/latticedb/lattice/pkg/chunkstore"
	"github.com/latticedb/lattice/pkg/types"
)

// Error is the error class for plan execution failures.
var Error = errs.Class("execplan")

// Node is one node of a physical execution plan. Execute streams its
// output as a single RecordBatch; Core A's batches are small enough
// (bounded by the compaction size thresholds) that a single-batch
// materialisation is adequate for this in-process executor.
type Node interface {
	Execute(ctx context.Context) (chunkstore.RecordBatch, error)
}

// EmptyExec produces zero rows of the given schema.
type EmptyExec struct{ Schema []string }

func (e EmptyExec) Execute(ctx context.Context) (chunkstore.RecordBatch, error) {
	return chunkstore.RecordBatch{Schema: e.Schema}, nil
}

// MemoryExec serves an already-materialised batch, standing in for
// an in-memory chunk's data.
type MemoryExec struct{ Batch chunkstore.RecordBatch }

func (e MemoryExec) Execute(ctx context.Context) (chunkstore.RecordBatch, error) {
	return e.Batch, nil
}

// ParquetExec reads a local file written by chunkstore.WriteFile,
// standing in for a partition's main table file or a persistent
// chunk's file.
type ParquetExec struct{ Path string }

func (e ParquetExec) Execute(ctx context.Context) (chunkstore.RecordBatch, error) {
	return chunkstore.ReadFile(e.Path)
}

// UnionExec concatenates its children's batches without sorting.
type UnionExec struct{ Inputs []Node }

func (e UnionExec) Execute(ctx context.Context) (chunkstore.RecordBatch, error) {
	var batches []chunkstore.RecordBatch
	for _, in := range e.Inputs {
		b, err := in.Execute(ctx)
		if err != nil {
			return chunkstore.RecordBatch{}, err
		}
		batches = append(batches, b)
	}
	return chunkstore.Concat(batches...), nil
}

// SortedConcat concatenates its children column-wise then lex-sorts
// the result on the first KeyLen columns, per §4.2.1 step 5: "Chunks
// are concatenated column-wise then lex-sorted on the index key
// prefix."
type SortedConcat struct {
	Inputs []Node
	KeyLen int
}

func (e SortedConcat) Execute(ctx context.Context) (chunkstore.RecordBatch, error) {
	var batches []chunkstore.RecordBatch
	for _, in := range e.Inputs {
		b, err := in.Execute(ctx)
		if err != nil {
			return chunkstore.RecordBatch{}, err
		}
		batches = append(batches, b)
	}
	concatenated := chunkstore.Concat(batches...)
	idx := chunkstore.LexsortToIndices(concatenated, e.KeyLen)
	return chunkstore.Take(concatenated, idx), nil
}

// MergeSortExec requires every input to already be sorted on the
// first KeyLen columns and produces their merged, still-sorted union
// (§4.2.4: "MergeSortExec requires every input to be already sorted
// on the key prefix").
type MergeSortExec struct {
	Inputs []Node
	KeyLen int
}

func (e MergeSortExec) Execute(ctx context.Context) (chunkstore.RecordBatch, error) {
	var batches []chunkstore.RecordBatch
	var schema []string
	for _, in := range e.Inputs {
		b, err := in.Execute(ctx)
		if err != nil {
			return chunkstore.RecordBatch{}, err
		}
		if len(b.Rows) == 0 {
			continue
		}
		if schema == nil {
			schema = b.Schema
		}
		batches = append(batches, b)
	}
	if len(batches) == 0 {
		return chunkstore.RecordBatch{Schema: schema}, nil
	}
	if len(batches) == 1 {
		return batches[0], nil
	}

	// k-way merge over already-sorted inputs.
	cursors := make([]int, len(batches))
	total := 0
	for _, b := range batches {
		total += len(b.Rows)
	}
	out := chunkstore.RecordBatch{Schema: schema, Rows: make([]types.Row, 0, total)}

	for {
		best := -1
		for i, c := range cursors {
			if c >= len(batches[i].Rows) {
				continue
			}
			if best == -1 {
				best = i
				continue
			}
			ka := types.KeyOf(batches[i].Rows[c], e.KeyLen)
			kb := types.KeyOf(batches[best].Rows[cursors[best]], e.KeyLen)
			if ka.Compare(kb) < 0 {
				best = i
			}
		}
		if best == -1 {
			break
		}
		out.Rows = append(out.Rows, batches[best].Rows[cursors[best]])
		cursors[best]++
	}
	return out, nil
}

// AggStrategy selects how HashAggregateExec groups rows.
type AggStrategy int

const (
	// InplaceSorted assumes input is already grouped by adjacency
	// (i.e. sorted on the group key) and aggregates consecutive runs
	// without building a hash table.
	InplaceSorted AggStrategy = iota
	// Hash first brings rows with equal group keys together (a stable
	// sort on the group key), then aggregates as InplaceSorted does;
	// used when input is not known to be pre-sorted.
	Hash
)

// Aggregator describes one (fn, source-column-index) pair of an
// aggregate index, matching metastore.AggregateColumn.
type Aggregator struct {
	Fn          string
	SourceIndex int
}

// HashAggregateExec groups rows by the first KeyLen columns and
// applies Aggregators to the remaining declared source columns,
// implementing the FinalHashAggregate step of §4.2.1.
type HashAggregateExec struct {
	Input       Node
	KeyLen      int
	Strategy    AggStrategy
	Aggregators []Aggregator
}

func (e HashAggregateExec) Execute(ctx context.Context) (chunkstore.RecordBatch, error) {
	in, err := e.Input.Execute(ctx)
	if err != nil {
		return chunkstore.RecordBatch{}, err
	}
	if len(in.Rows) == 0 {
		return chunkstore.RecordBatch{Schema: in.Schema}, nil
	}
	if e.Strategy == Hash {
		in = chunkstore.Take(in, chunkstore.LexsortToIndices(in, e.KeyLen))
	}

	out := chunkstore.RecordBatch{Schema: in.Schema}
	flush := func(group []types.Row) {
		out.Rows = append(out.Rows, e.aggregateGroup(group))
	}

	var group []types.Row
	var groupKey types.Key
	for _, row := range in.Rows {
		k := types.KeyOf(row, e.KeyLen)
		if group == nil {
			group = []types.Row{row}
			groupKey = k
			continue
		}
		if k.Equal(groupKey) {
			group = append(group, row)
			continue
		}
		flush(group)
		group = []types.Row{row}
		groupKey = k
	}
	if group != nil {
		flush(group)
	}
	return out, nil
}

func (e HashAggregateExec) aggregateGroup(group []types.Row) types.Row {
	out := make(types.Row, len(group[0]))
	copy(out, group[0][:e.KeyLen])

	for i := e.KeyLen; i < len(group[0]); i++ {
		out[i] = group[0][i]
	}
	for _, agg := range e.Aggregators {
		out[agg.SourceIndex] = applyAggregate(agg.Fn, group, agg.SourceIndex)
	}
	return out
}

func applyAggregate(fn string, group []types.Row, col int) types.Value {
	switch fn {
	case "sum":
		var sum float64
		isInt := true
		var isum int64
		for _, row := range group {
			v := row[col]
			switch v.Kind {
			case types.KindInt:
				isum += v.Int
				sum += float64(v.Int)
			case types.KindFloat:
				isInt = false
				sum += v.Float
			}
		}
		if isInt {
			return types.Value{Kind: types.KindInt, Int: isum}
		}
		return types.Value{Kind: types.KindFloat, Float: sum}
	case "min":
		best := group[0][col]
		for _, row := range group[1:] {
			if row[col].Compare(best) < 0 {
				best = row[col]
			}
		}
		return best
	case "max":
		best := group[0][col]
		for _, row := range group[1:] {
			if row[col].Compare(best) > 0 {
				best = row[col]
			}
		}
		return best
	case "count":
		return types.Value{Kind: types.KindInt, Int: int64(len(group))}
	case "merge":
		// Pre-aggregated merge (e.g. HLL sketches upstream of this
		// core): last-write-wins, the same as an unrecognised function.
		return group[len(group)-1][col]
	default:
		return group[len(group)-1][col]
	}
}

// LastRowByUniqueKeyExec emits the last row of every consecutive run
// of equal unique-key values, correct because its input is already
// merge-sorted and per-chunk order within a run reflects insert
// order (§4.2.4).
type LastRowByUniqueKeyExec struct {
	Input          Node
	UniqueKeyIndex []int
}

func (e LastRowByUniqueKeyExec) Execute(ctx context.Context) (chunkstore.RecordBatch, error) {
	in, err := e.Input.Execute(ctx)
	if err != nil {
		return chunkstore.RecordBatch{}, err
	}
	if len(in.Rows) == 0 {
		return chunkstore.RecordBatch{Schema: in.Schema}, nil
	}

	out := chunkstore.RecordBatch{Schema: in.Schema}
	keyOf := func(row types.Row) types.Key {
		k := make(types.Key, len(e.UniqueKeyIndex))
		for i, ci := range e.UniqueKeyIndex {
			k[i] = row[ci]
		}
		return k
	}

	var runKey types.Key
	var last types.Row
	for i, row := range in.Rows {
		k := keyOf(row)
		if i == 0 {
			runKey, last = k, row
			continue
		}
		if k.Equal(runKey) {
			last = row
			continue
		}
		out.Rows = append(out.Rows, last)
		runKey, last = k, row
	}
	out.Rows = append(out.Rows, last)
	return out, nil
}

// BuildMergePlan assembles Merge(MainTable, SortedConcat(Chunks)) per
// §4.2.1 step 5 for a Regular index, appending LastRowByUniqueKey
// when the table declares a unique key, or leaving raw merged rows
// otherwise. Aggregate indexes use BuildAggregatePlan instead.
func BuildMergePlan(mainTable Node, chunkBatches []chunkstore.RecordBatch, keyLen int, uniqueKeyIndex []int) Node {
	var chunkNodes []Node
	for _, b := range chunkBatches {
		chunkNodes = append(chunkNodes, MemoryExec{Batch: b})
	}
	sortedChunks := SortedConcat{Inputs: chunkNodes, KeyLen: keyLen}
	merged := MergeSortExec{Inputs: []Node{mainTable, sortedChunks}, KeyLen: keyLen}

	if len(uniqueKeyIndex) > 0 {
		return LastRowByUniqueKeyExec{Input: merged, UniqueKeyIndex: uniqueKeyIndex}
	}
	return merged
}

// BuildAggregatePlan is BuildMergePlan's aggregate-index counterpart,
// taking already resolved Aggregators (source columns mapped to
// their index within the merged row).
func BuildAggregatePlan(mainTable Node, chunkBatches []chunkstore.RecordBatch, keyLen int, aggregators []Aggregator) Node {
	var chunkNodes []Node
	for _, b := range chunkBatches {
		chunkNodes = append(chunkNodes, MemoryExec{Batch: b})
	}
	sortedChunks := SortedConcat{Inputs: chunkNodes, KeyLen: keyLen}
	merged := MergeSortExec{Inputs: []Node{mainTable, sortedChunks}, KeyLen: keyLen}
	return HashAggregateExec{Input: merged, KeyLen: keyLen, Strategy: InplaceSorted, Aggregators: aggregators}
}
