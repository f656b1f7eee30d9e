// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

// Package metastore defines the transactional catalog contract that
// every state transition in the storage and compaction engine goes
// through: schemas, tables, indexes, partitions, chunks and
// multi-partitions, plus the operations Core A requires of it.
package metastore

import (
	"time"

	"github.com/latticedb/lattice/pkg/types"
)

// IndexType distinguishes a Regular key-ordered index from an
// Aggregate index that pre-aggregates rows sharing a key.
type IndexType int

const (
	IndexRegular IndexType = iota
	IndexAggregate
)

// AggregateColumn names one (aggregate-fn, source-column) pair
// carried by an Aggregate index.
type AggregateColumn struct {
	Fn     string // "sum", "min", "max", "count", "merge" ...
	Source string
}

// Column describes one column of a table.
type Column struct {
	Name      string
	Kind      types.Kind
	Precision int32 // meaningful for KindDecimal
	Scale     int32 // meaningful for KindDecimal
}

// Schema is a namespace grouping tables.
type Schema struct {
	ID   uint64
	Name string
}

// Table is a named relation with one or more indexes.
type Table struct {
	ID                    uint64
	SchemaID              uint64
	Name                  string
	Columns               []Column
	UniqueKey             []string // column names forming the upsert key, empty if none
	PartitionSplitThreshold uint64
	IsCorrupt             bool
}

// Index declares an ordered key-column prefix over a table.
type Index struct {
	ID         uint64
	TableID    uint64
	Name       string
	Type       IndexType
	KeyColumns []string // ordered prefix of Table.Columns
	Aggregates []AggregateColumn
}

// Partition is a horizontal range of one index.
type Partition struct {
	ID                uint64
	IndexID           uint64
	MinRow            types.Key // nil means unbounded below
	MaxRow            types.Key // nil means unbounded above
	MainTableRowCount uint64
	FileSize          int64 // -1 if no file yet
	Active            bool
	ParentID          uint64 // 0 if none
	MultiPartitionID  uint64 // 0 if none
	FileName          string // "" until a main table file exists
}

// Chunk is an unsorted or sorted batch of rows belonging to one
// partition.
type Chunk struct {
	ID             uint64
	PartitionID    uint64
	RowCount       uint64
	InMemory       bool
	Active         bool
	Uploaded       bool
	FileSize       int64
	OldestInsertAt time.Time
	CreatedAt      time.Time
	FileName       string // "" for in-memory chunks
}

// Visible reports whether a chunk is visible to readers.
func (c Chunk) Visible() bool { return c.Active && (c.InMemory || c.Uploaded) }

// MultiPartition groups one partition per index of a table sharing a
// key range, enabling atomic range splits across all indexes.
type MultiPartition struct {
	ID               uint64
	TableID          uint64
	MinRow           types.Key
	MaxRow           types.Key
	PreparedForSplit bool
	ParentID         uint64
	RowCountEstimate uint64
}

// PartitionData bundles a partition with the chunks pending
// compaction into it and its owning index/table, the shape the
// multi-partition split protocol hands around between phases.
type PartitionData struct {
	Partition Partition
	Index     Index
	Table     Table
	Chunks    []Chunk
}

// NewPartitionRange describes one output range of a split or
// compaction repartition, keyed by the table's child ordering.
type NewPartitionRange struct {
	PartitionID uint64
	IndexID     uint64
	MinRow      types.Key
	MaxRow      types.Key
	RowCount    uint64
	FileSize    int64
	FileName    string
}

// ChunkWithRowCount pairs a chunk id with the row count of the data
// that will replace it, used by swap_chunks.
type ChunkWithRowCount struct {
	ChunkID        uint64
	RowCount       uint64
	InMemory       bool
	FileName       string
	FileSize       int64
	Uploaded       bool
	OldestInsertAt time.Time // zero means "now"; set to carry forward compaction urgency (§4.2.2)
}
