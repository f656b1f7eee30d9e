// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

// Package pb holds the wire structs persisted by pkg/metastore/boltstore.
// These are hand-maintained in the style protoc-gen-go would emit for
// github.com/golang/protobuf's reflection-based Marshal/Unmarshal: every
// type implements proto.Message (Reset/String/ProtoMessage) and carries
// `protobuf:` struct tags describing its wire field numbers. There is no
// .proto source for them -- the catalog rows they describe live in
// pkg/metastore/types.go, and keeping the tags next to that shape would
// drift two sources of truth, so this package is the single wire
// description, encoded/decoded directly against metastore's Go types.
// MinRow/MaxRow fields carry a gob-encoded types.Key blob rather than a
// field-by-field message: a Key's arity and value kinds vary per index,
// so there is no fixed proto shape for it short of re-encoding
// types.Value's Kind/union by hand, which gob already does for us (the
// same encoding chunkstore.WriteFile uses for row batches).
package pb

import (
	fmt "fmt"

	proto "github.com/golang/protobuf/proto"
)

// SchemaRecord is the wire form of metastore.Schema.
type SchemaRecord struct {
	Id                   uint64   `protobuf:"varint,1,opt,name=id,proto3" json:"id,omitempty"`
	Name                 string   `protobuf:"bytes,2,opt,name=name,proto3" json:"name,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *SchemaRecord) Reset()         { *m = SchemaRecord{} }
func (m *SchemaRecord) String() string { return fmt.Sprintf("%+v", *m) }
func (*SchemaRecord) ProtoMessage()    {}

// ColumnRecord is the wire form of metastore.Column.
type ColumnRecord struct {
	Name                 string   `protobuf:"bytes,1,opt,name=name,proto3" json:"name,omitempty"`
	Kind                 int32    `protobuf:"varint,2,opt,name=kind,proto3" json:"kind,omitempty"`
	Precision            int32    `protobuf:"varint,3,opt,name=precision,proto3" json:"precision,omitempty"`
	Scale                int32    `protobuf:"varint,4,opt,name=scale,proto3" json:"scale,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *ColumnRecord) Reset()         { *m = ColumnRecord{} }
func (m *ColumnRecord) String() string { return fmt.Sprintf("%+v", *m) }
func (*ColumnRecord) ProtoMessage()    {}

// AggregateColumnRecord is the wire form of metastore.AggregateColumn.
type AggregateColumnRecord struct {
	Fn                   string   `protobuf:"bytes,1,opt,name=fn,proto3" json:"fn,omitempty"`
	Source               string   `protobuf:"bytes,2,opt,name=source,proto3" json:"source,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *AggregateColumnRecord) Reset()         { *m = AggregateColumnRecord{} }
func (m *AggregateColumnRecord) String() string { return fmt.Sprintf("%+v", *m) }
func (*AggregateColumnRecord) ProtoMessage()    {}

// TableRecord is the wire form of metastore.Table.
type TableRecord struct {
	Id                      uint64           `protobuf:"varint,1,opt,name=id,proto3" json:"id,omitempty"`
	SchemaId                uint64           `protobuf:"varint,2,opt,name=schema_id,json=schemaId,proto3" json:"schema_id,omitempty"`
	Name                    string           `protobuf:"bytes,3,opt,name=name,proto3" json:"name,omitempty"`
	Columns                 []*ColumnRecord  `protobuf:"bytes,4,rep,name=columns,proto3" json:"columns,omitempty"`
	UniqueKey               []string         `protobuf:"bytes,5,rep,name=unique_key,json=uniqueKey,proto3" json:"unique_key,omitempty"`
	PartitionSplitThreshold uint64           `protobuf:"varint,6,opt,name=partition_split_threshold,json=partitionSplitThreshold,proto3" json:"partition_split_threshold,omitempty"`
	IsCorrupt               bool             `protobuf:"varint,7,opt,name=is_corrupt,json=isCorrupt,proto3" json:"is_corrupt,omitempty"`
	XXX_NoUnkeyedLiteral    struct{}         `json:"-"`
	XXX_unrecognized        []byte           `json:"-"`
	XXX_sizecache           int32            `json:"-"`
}

func (m *TableRecord) Reset()         { *m = TableRecord{} }
func (m *TableRecord) String() string { return fmt.Sprintf("%+v", *m) }
func (*TableRecord) ProtoMessage()    {}

// IndexRecord is the wire form of metastore.Index.
type IndexRecord struct {
	Id                   uint64                   `protobuf:"varint,1,opt,name=id,proto3" json:"id,omitempty"`
	TableId              uint64                   `protobuf:"varint,2,opt,name=table_id,json=tableId,proto3" json:"table_id,omitempty"`
	Name                 string                   `protobuf:"bytes,3,opt,name=name,proto3" json:"name,omitempty"`
	Type                 int32                    `protobuf:"varint,4,opt,name=type,proto3" json:"type,omitempty"`
	KeyColumns           []string                 `protobuf:"bytes,5,rep,name=key_columns,json=keyColumns,proto3" json:"key_columns,omitempty"`
	Aggregates           []*AggregateColumnRecord `protobuf:"bytes,6,rep,name=aggregates,proto3" json:"aggregates,omitempty"`
	XXX_NoUnkeyedLiteral struct{}                 `json:"-"`
	XXX_unrecognized     []byte                   `json:"-"`
	XXX_sizecache        int32                    `json:"-"`
}

func (m *IndexRecord) Reset()         { *m = IndexRecord{} }
func (m *IndexRecord) String() string { return fmt.Sprintf("%+v", *m) }
func (*IndexRecord) ProtoMessage()    {}

// PartitionRecord is the wire form of metastore.Partition.
type PartitionRecord struct {
	Id                   uint64   `protobuf:"varint,1,opt,name=id,proto3" json:"id,omitempty"`
	IndexId              uint64   `protobuf:"varint,2,opt,name=index_id,json=indexId,proto3" json:"index_id,omitempty"`
	MinRow               []byte   `protobuf:"bytes,3,opt,name=min_row,json=minRow,proto3" json:"min_row,omitempty"`
	MaxRow               []byte   `protobuf:"bytes,4,opt,name=max_row,json=maxRow,proto3" json:"max_row,omitempty"`
	MainTableRowCount    uint64   `protobuf:"varint,5,opt,name=main_table_row_count,json=mainTableRowCount,proto3" json:"main_table_row_count,omitempty"`
	FileSize             int64    `protobuf:"zigzag64,6,opt,name=file_size,json=fileSize,proto3" json:"file_size,omitempty"`
	Active               bool     `protobuf:"varint,7,opt,name=active,proto3" json:"active,omitempty"`
	ParentId             uint64   `protobuf:"varint,8,opt,name=parent_id,json=parentId,proto3" json:"parent_id,omitempty"`
	MultiPartitionId     uint64   `protobuf:"varint,9,opt,name=multi_partition_id,json=multiPartitionId,proto3" json:"multi_partition_id,omitempty"`
	FileName             string   `protobuf:"bytes,10,opt,name=file_name,json=fileName,proto3" json:"file_name,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *PartitionRecord) Reset()         { *m = PartitionRecord{} }
func (m *PartitionRecord) String() string { return fmt.Sprintf("%+v", *m) }
func (*PartitionRecord) ProtoMessage()    {}

// ChunkRecord is the wire form of metastore.Chunk.
type ChunkRecord struct {
	Id                   uint64   `protobuf:"varint,1,opt,name=id,proto3" json:"id,omitempty"`
	PartitionId          uint64   `protobuf:"varint,2,opt,name=partition_id,json=partitionId,proto3" json:"partition_id,omitempty"`
	RowCount             uint64   `protobuf:"varint,3,opt,name=row_count,json=rowCount,proto3" json:"row_count,omitempty"`
	InMemory             bool     `protobuf:"varint,4,opt,name=in_memory,json=inMemory,proto3" json:"in_memory,omitempty"`
	Active               bool     `protobuf:"varint,5,opt,name=active,proto3" json:"active,omitempty"`
	Uploaded             bool     `protobuf:"varint,6,opt,name=uploaded,proto3" json:"uploaded,omitempty"`
	FileSize             int64    `protobuf:"zigzag64,7,opt,name=file_size,json=fileSize,proto3" json:"file_size,omitempty"`
	OldestInsertAtUnixNs int64    `protobuf:"varint,8,opt,name=oldest_insert_at_unix_ns,json=oldestInsertAtUnixNs,proto3" json:"oldest_insert_at_unix_ns,omitempty"`
	CreatedAtUnixNs      int64    `protobuf:"varint,9,opt,name=created_at_unix_ns,json=createdAtUnixNs,proto3" json:"created_at_unix_ns,omitempty"`
	FileName             string   `protobuf:"bytes,10,opt,name=file_name,json=fileName,proto3" json:"file_name,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *ChunkRecord) Reset()         { *m = ChunkRecord{} }
func (m *ChunkRecord) String() string { return fmt.Sprintf("%+v", *m) }
func (*ChunkRecord) ProtoMessage()    {}

// MultiPartitionRecord is the wire form of metastore.MultiPartition.
type MultiPartitionRecord struct {
	Id                   uint64   `protobuf:"varint,1,opt,name=id,proto3" json:"id,omitempty"`
	TableId              uint64   `protobuf:"varint,2,opt,name=table_id,json=tableId,proto3" json:"table_id,omitempty"`
	MinRow               []byte   `protobuf:"bytes,3,opt,name=min_row,json=minRow,proto3" json:"min_row,omitempty"`
	MaxRow               []byte   `protobuf:"bytes,4,opt,name=max_row,json=maxRow,proto3" json:"max_row,omitempty"`
	PreparedForSplit     bool     `protobuf:"varint,5,opt,name=prepared_for_split,json=preparedForSplit,proto3" json:"prepared_for_split,omitempty"`
	ParentId             uint64   `protobuf:"varint,6,opt,name=parent_id,json=parentId,proto3" json:"parent_id,omitempty"`
	RowCountEstimate     uint64   `protobuf:"varint,7,opt,name=row_count_estimate,json=rowCountEstimate,proto3" json:"row_count_estimate,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *MultiPartitionRecord) Reset()         { *m = MultiPartitionRecord{} }
func (m *MultiPartitionRecord) String() string { return fmt.Sprintf("%+v", *m) }
func (*MultiPartitionRecord) ProtoMessage()    {}

// Marshal and Unmarshal are thin re-exports so callers only import
// this package, not github.com/golang/protobuf/proto directly.
func Marshal(m proto.Message) ([]byte, error)   { return proto.Marshal(m) }
func Unmarshal(b []byte, m proto.Message) error { return proto.Unmarshal(b, m) }
