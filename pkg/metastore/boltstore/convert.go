// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package boltstore

import (
	"time"

	"go.etcd.io/bbolt"

	"github.com/latticedb/lattice/pkg/metastore"
	"github.com/latticedb/lattice/pkg/metastore/memstore"
	"github.com/latticedb/lattice/pkg/metastore/pb"
	"github.com/latticedb/lattice/pkg/types"
)

func toSchemaRecord(s metastore.Schema) *pb.SchemaRecord {
	return &pb.SchemaRecord{Id: s.ID, Name: s.Name}
}

func fromSchemaRecord(r *pb.SchemaRecord) metastore.Schema {
	return metastore.Schema{ID: r.Id, Name: r.Name}
}

func toTableRecord(t metastore.Table) *pb.TableRecord {
	rec := &pb.TableRecord{
		Id:                      t.ID,
		SchemaId:                t.SchemaID,
		Name:                    t.Name,
		UniqueKey:               t.UniqueKey,
		PartitionSplitThreshold: t.PartitionSplitThreshold,
		IsCorrupt:               t.IsCorrupt,
	}
	for _, c := range t.Columns {
		rec.Columns = append(rec.Columns, &pb.ColumnRecord{
			Name:      c.Name,
			Kind:      int32(c.Kind),
			Precision: c.Precision,
			Scale:     c.Scale,
		})
	}
	return rec
}

func fromTableRecord(r *pb.TableRecord) metastore.Table {
	t := metastore.Table{
		ID:                      r.Id,
		SchemaID:                r.SchemaId,
		Name:                    r.Name,
		UniqueKey:               r.UniqueKey,
		PartitionSplitThreshold: r.PartitionSplitThreshold,
		IsCorrupt:               r.IsCorrupt,
	}
	for _, c := range r.Columns {
		t.Columns = append(t.Columns, metastore.Column{
			Name:      c.Name,
			Kind:      types.Kind(c.Kind),
			Precision: c.Precision,
			Scale:     c.Scale,
		})
	}
	return t
}

func toIndexRecord(idx metastore.Index) *pb.IndexRecord {
	rec := &pb.IndexRecord{
		Id:         idx.ID,
		TableId:    idx.TableID,
		Name:       idx.Name,
		Type:       int32(idx.Type),
		KeyColumns: idx.KeyColumns,
	}
	for _, a := range idx.Aggregates {
		rec.Aggregates = append(rec.Aggregates, &pb.AggregateColumnRecord{Fn: a.Fn, Source: a.Source})
	}
	return rec
}

func fromIndexRecord(r *pb.IndexRecord) metastore.Index {
	idx := metastore.Index{
		ID:         r.Id,
		TableID:    r.TableId,
		Name:       r.Name,
		Type:       metastore.IndexType(r.Type),
		KeyColumns: r.KeyColumns,
	}
	for _, a := range r.Aggregates {
		idx.Aggregates = append(idx.Aggregates, metastore.AggregateColumn{Fn: a.Fn, Source: a.Source})
	}
	return idx
}

func toPartitionRecord(p metastore.Partition) (*pb.PartitionRecord, error) {
	minRow, err := encodeKey(p.MinRow)
	if err != nil {
		return nil, err
	}
	maxRow, err := encodeKey(p.MaxRow)
	if err != nil {
		return nil, err
	}
	return &pb.PartitionRecord{
		Id:                p.ID,
		IndexId:           p.IndexID,
		MinRow:            minRow,
		MaxRow:            maxRow,
		MainTableRowCount: p.MainTableRowCount,
		FileSize:          p.FileSize,
		Active:            p.Active,
		ParentId:          p.ParentID,
		MultiPartitionId:  p.MultiPartitionID,
		FileName:          p.FileName,
	}, nil
}

func fromPartitionRecord(r *pb.PartitionRecord) (metastore.Partition, error) {
	minRow, err := decodeKey(r.MinRow)
	if err != nil {
		return metastore.Partition{}, err
	}
	maxRow, err := decodeKey(r.MaxRow)
	if err != nil {
		return metastore.Partition{}, err
	}
	return metastore.Partition{
		ID:                r.Id,
		IndexID:           r.IndexId,
		MinRow:            minRow,
		MaxRow:            maxRow,
		MainTableRowCount: r.MainTableRowCount,
		FileSize:          r.FileSize,
		Active:            r.Active,
		ParentID:          r.ParentId,
		MultiPartitionID:  r.MultiPartitionId,
		FileName:          r.FileName,
	}, nil
}

func toChunkRecord(c metastore.Chunk) *pb.ChunkRecord {
	return &pb.ChunkRecord{
		Id:                   c.ID,
		PartitionId:          c.PartitionID,
		RowCount:             c.RowCount,
		InMemory:             c.InMemory,
		Active:               c.Active,
		Uploaded:             c.Uploaded,
		FileSize:             c.FileSize,
		OldestInsertAtUnixNs: c.OldestInsertAt.UnixNano(),
		CreatedAtUnixNs:      c.CreatedAt.UnixNano(),
		FileName:             c.FileName,
	}
}

func fromChunkRecord(r *pb.ChunkRecord) metastore.Chunk {
	return metastore.Chunk{
		ID:             r.Id,
		PartitionID:    r.PartitionId,
		RowCount:       r.RowCount,
		InMemory:       r.InMemory,
		Active:         r.Active,
		Uploaded:       r.Uploaded,
		FileSize:       r.FileSize,
		OldestInsertAt: time.Unix(0, r.OldestInsertAtUnixNs).UTC(),
		CreatedAt:      time.Unix(0, r.CreatedAtUnixNs).UTC(),
		FileName:       r.FileName,
	}
}

func toMultiPartitionRecord(mp metastore.MultiPartition) (*pb.MultiPartitionRecord, error) {
	minRow, err := encodeKey(mp.MinRow)
	if err != nil {
		return nil, err
	}
	maxRow, err := encodeKey(mp.MaxRow)
	if err != nil {
		return nil, err
	}
	return &pb.MultiPartitionRecord{
		Id:               mp.ID,
		TableId:          mp.TableID,
		MinRow:           minRow,
		MaxRow:           maxRow,
		PreparedForSplit: mp.PreparedForSplit,
		ParentId:         mp.ParentID,
		RowCountEstimate: mp.RowCountEstimate,
	}, nil
}

func fromMultiPartitionRecord(r *pb.MultiPartitionRecord) (metastore.MultiPartition, error) {
	minRow, err := decodeKey(r.MinRow)
	if err != nil {
		return metastore.MultiPartition{}, err
	}
	maxRow, err := decodeKey(r.MaxRow)
	if err != nil {
		return metastore.MultiPartition{}, err
	}
	return metastore.MultiPartition{
		ID:               r.Id,
		TableID:          r.TableId,
		MinRow:           minRow,
		MaxRow:           maxRow,
		PreparedForSplit: r.PreparedForSplit,
		ParentID:         r.ParentId,
		RowCountEstimate: r.RowCountEstimate,
	}, nil
}

func restoreSchemas(tx *bbolt.Tx, mem *memstore.Store) error {
	return tx.Bucket(bucketSchemas).ForEach(func(k, v []byte) error {
		rec := &pb.SchemaRecord{}
		if err := pb.Unmarshal(v, rec); err != nil {
			return err
		}
		mem.PutSchema(fromSchemaRecord(rec))
		return nil
	})
}

func restoreTables(tx *bbolt.Tx, mem *memstore.Store) error {
	return tx.Bucket(bucketTables).ForEach(func(k, v []byte) error {
		rec := &pb.TableRecord{}
		if err := pb.Unmarshal(v, rec); err != nil {
			return err
		}
		mem.PutTable(fromTableRecord(rec))
		return nil
	})
}

func restoreIndexes(tx *bbolt.Tx, mem *memstore.Store) error {
	return tx.Bucket(bucketIndexes).ForEach(func(k, v []byte) error {
		rec := &pb.IndexRecord{}
		if err := pb.Unmarshal(v, rec); err != nil {
			return err
		}
		mem.PutIndex(fromIndexRecord(rec))
		return nil
	})
}

func restorePartitions(tx *bbolt.Tx, mem *memstore.Store) error {
	return tx.Bucket(bucketPartitions).ForEach(func(k, v []byte) error {
		rec := &pb.PartitionRecord{}
		if err := pb.Unmarshal(v, rec); err != nil {
			return err
		}
		p, err := fromPartitionRecord(rec)
		if err != nil {
			return err
		}
		mem.PutPartition(p)
		return nil
	})
}

func restoreChunks(tx *bbolt.Tx, mem *memstore.Store) error {
	return tx.Bucket(bucketChunks).ForEach(func(k, v []byte) error {
		rec := &pb.ChunkRecord{}
		if err := pb.Unmarshal(v, rec); err != nil {
			return err
		}
		mem.PutChunk(fromChunkRecord(rec))
		return nil
	})
}

func restoreMultiPartitions(tx *bbolt.Tx, mem *memstore.Store) error {
	return tx.Bucket(bucketMultiPartitions).ForEach(func(k, v []byte) error {
		rec := &pb.MultiPartitionRecord{}
		if err := pb.Unmarshal(v, rec); err != nil {
			return err
		}
		mp, err := fromMultiPartitionRecord(rec)
		if err != nil {
			return err
		}
		mem.PutMultiPartition(mp)
		return nil
	})
}
