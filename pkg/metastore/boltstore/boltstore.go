// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

// Package boltstore is a durable metastore.Store backed by
// go.etcd.io/bbolt. It keeps the exact transition logic of
// pkg/metastore/memstore -- the same prepared-for-split latch,
// monotonic chunk deactivation and single linearisation point on every
// swap -- but mirrors every mutation to an on-disk bbolt database, one
// bucket per row kind, so state survives a process restart. Every
// mutating call takes out the store's own lock, runs the operation
// against the in-memory mirror, and checkpoints the mirror's full
// contents into bbolt before returning; nothing here is ever
// hard-deleted, only deactivated, so a full rewrite on each call never
// loses a row already committed.
package boltstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"sync"
	"time"

	protobuf "github.com/golang/protobuf/proto"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/latticedb/lattice/pkg/metastore"
	"github.com/latticedb/lattice/pkg/metastore/memstore"
	"github.com/latticedb/lattice/pkg/metastore/pb"
	"github.com/latticedb/lattice/pkg/types"
)

var (
	bucketSchemas         = []byte("schemas")
	bucketTables          = []byte("tables")
	bucketIndexes         = []byte("indexes")
	bucketPartitions      = []byte("partitions")
	bucketChunks          = []byte("chunks")
	bucketMultiPartitions = []byte("multi_partitions")
	bucketMeta            = []byte("meta")

	metaKeyNextID = []byte("next_id")

	allBuckets = [][]byte{
		bucketSchemas, bucketTables, bucketIndexes,
		bucketPartitions, bucketChunks, bucketMultiPartitions, bucketMeta,
	}
)

// Store is a bbolt-backed metastore.Store.
type Store struct {
	log *zap.Logger
	db  *bbolt.DB
	mem *memstore.Store

	mu sync.Mutex
}

// Open opens (creating if absent) a bbolt database at path and
// rehydrates an in-memory mirror from it, the same "load then serve
// from memory, checkpoint back on write" shape as pyroscope's metastore
// index (Index.Restore/LoadPartitions against a bbolt.Tx).
func Open(log *zap.Logger, path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, metastore.Error.Wrap(err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, metastore.Error.Wrap(err)
	}

	mem := memstore.New()
	var nextID uint64
	if err := db.View(func(tx *bbolt.Tx) error {
		if err := restoreSchemas(tx, mem); err != nil {
			return err
		}
		if err := restoreTables(tx, mem); err != nil {
			return err
		}
		if err := restoreIndexes(tx, mem); err != nil {
			return err
		}
		if err := restorePartitions(tx, mem); err != nil {
			return err
		}
		if err := restoreChunks(tx, mem); err != nil {
			return err
		}
		if err := restoreMultiPartitions(tx, mem); err != nil {
			return err
		}
		if v := tx.Bucket(bucketMeta).Get(metaKeyNextID); v != nil {
			nextID = binary.BigEndian.Uint64(v)
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, metastore.Error.Wrap(err)
	}
	mem.RestoreNextID(nextID)

	s := &Store{log: log, db: db, mem: mem}
	log.Info("boltstore opened", zap.String("path", path))
	return s, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func idKey(id uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, id)
	return b
}

func encodeKey(k types.Key) ([]byte, error) {
	if len(k) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(k); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeKey(b []byte) (types.Key, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var k types.Key
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&k); err != nil {
		return nil, err
	}
	return k, nil
}

// checkpoint persists the in-memory mirror's full current contents,
// called after every mutating metastore.Store method while s.mu is
// still held so the snapshot and the call that produced it never
// interleave with a concurrent mutation.
func (s *Store) checkpoint() error {
	snap := s.mem.Snapshot()
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, row := range snap.Schemas {
			if err := putRecord(tx, bucketSchemas, row.ID, toSchemaRecord(row)); err != nil {
				return err
			}
		}
		for _, row := range snap.Tables {
			if err := putRecord(tx, bucketTables, row.ID, toTableRecord(row)); err != nil {
				return err
			}
		}
		for _, row := range snap.Indexes {
			if err := putRecord(tx, bucketIndexes, row.ID, toIndexRecord(row)); err != nil {
				return err
			}
		}
		for _, row := range snap.Partitions {
			rec, err := toPartitionRecord(row)
			if err != nil {
				return err
			}
			if err := putRecord(tx, bucketPartitions, row.ID, rec); err != nil {
				return err
			}
		}
		for _, row := range snap.Chunks {
			if err := putRecord(tx, bucketChunks, row.ID, toChunkRecord(row)); err != nil {
				return err
			}
		}
		for _, row := range snap.MultiPartitions {
			rec, err := toMultiPartitionRecord(row)
			if err != nil {
				return err
			}
			if err := putRecord(tx, bucketMultiPartitions, row.ID, rec); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketMeta).Put(metaKeyNextID, idKey(snap.NextID))
	})
}

func putRecord(tx *bbolt.Tx, bucket []byte, id uint64, m protobuf.Message) error {
	data, err := pb.Marshal(m)
	if err != nil {
		return err
	}
	return tx.Bucket(bucket).Put(idKey(id), data)
}

// --- metastore.Store implementation: delegate to the in-memory
// mirror, then checkpoint on any call that mutates it. ---

func (s *Store) GetPartitionForCompaction(ctx context.Context, partitionID uint64) (metastore.PartitionData, *metastore.MultiPartition, error) {
	return s.mem.GetPartitionForCompaction(ctx, partitionID)
}

func (s *Store) GetChunksByPartition(ctx context.Context, partitionID uint64, includeInactive bool) ([]metastore.Chunk, error) {
	return s.mem.GetChunksByPartition(ctx, partitionID, includeInactive)
}

func (s *Store) CreatePartition(ctx context.Context, p metastore.Partition) (metastore.Partition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, err := s.mem.CreatePartition(ctx, p)
	if err != nil {
		return out, err
	}
	return out, s.checkpoint()
}

func (s *Store) CreateMultiPartition(ctx context.Context, mp metastore.MultiPartition) (metastore.MultiPartition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, err := s.mem.CreateMultiPartition(ctx, mp)
	if err != nil {
		return out, err
	}
	return out, s.checkpoint()
}

func (s *Store) CreateChunk(ctx context.Context, partitionID uint64, rowCount uint64, inMemory bool) (metastore.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, err := s.mem.CreateChunk(ctx, partitionID, rowCount, inMemory)
	if err != nil {
		return out, err
	}
	return out, s.checkpoint()
}

func (s *Store) ChunkUploaded(ctx context.Context, chunkID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mem.ChunkUploaded(ctx, chunkID); err != nil {
		return err
	}
	return s.checkpoint()
}

func (s *Store) SwapChunks(ctx context.Context, oldIDs []uint64, newChunks []metastore.ChunkWithRowCount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mem.SwapChunks(ctx, oldIDs, newChunks); err != nil {
		return err
	}
	return s.checkpoint()
}

func (s *Store) SwapCompactedChunks(ctx context.Context, partitionID uint64, oldChunkIDs []uint64, newChunkID uint64, fileSize int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok, err := s.mem.SwapCompactedChunks(ctx, partitionID, oldChunkIDs, newChunkID, fileSize)
	if err != nil || !ok {
		return ok, err
	}
	return ok, s.checkpoint()
}

func (s *Store) SwapActivePartitions(ctx context.Context, oldPartitionIDs []uint64, foldedChunkIDs []uint64, newPartitions []metastore.NewPartitionRange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mem.SwapActivePartitions(ctx, oldPartitionIDs, foldedChunkIDs, newPartitions); err != nil {
		return err
	}
	return s.checkpoint()
}

func (s *Store) PrepareMultiPartitionForSplit(ctx context.Context, multiPartitionID uint64) (metastore.Index, metastore.MultiPartition, []metastore.PartitionData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, mp, datas, err := s.mem.PrepareMultiPartitionForSplit(ctx, multiPartitionID)
	if err != nil {
		return idx, mp, datas, err
	}
	return idx, mp, datas, s.checkpoint()
}

func (s *Store) PrepareMultiSplitFinish(ctx context.Context, multiPartitionID, partitionID uint64) (metastore.PartitionData, []metastore.MultiPartition, error) {
	return s.mem.PrepareMultiSplitFinish(ctx, multiPartitionID, partitionID)
}

func (s *Store) CommitMultiPartitionSplit(ctx context.Context, multiPartitionID uint64, childMultiIDs []uint64, childRowCounts []uint64, oldPartitionIDs []uint64, newPartitions []metastore.NewPartitionRange, initialSplit bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mem.CommitMultiPartitionSplit(ctx, multiPartitionID, childMultiIDs, childRowCounts, oldPartitionIDs, newPartitions, initialSplit); err != nil {
		return err
	}
	return s.checkpoint()
}

// PutSchema, PutTable and PutIndex seed catalog rows metastore.Store
// itself has no create method for -- schema/table/index management
// lives above the compaction engine's transactional contract, as it
// does for memstore's identically-named fixture helpers, but a real
// boltstore deployment still needs a way to register them once, which
// is what cmd/lattice-store's "init-table" subcommand calls.
func (s *Store) PutSchema(sc metastore.Schema) (metastore.Schema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.mem.PutSchema(sc)
	return out, s.checkpoint()
}

func (s *Store) PutTable(t metastore.Table) (metastore.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.mem.PutTable(t)
	return out, s.checkpoint()
}

func (s *Store) PutIndex(idx metastore.Index) (metastore.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.mem.PutIndex(idx)
	return out, s.checkpoint()
}

func (s *Store) DeactivateTableOnCorruptData(ctx context.Context, tableID uint64, reason error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mem.DeactivateTableOnCorruptData(ctx, tableID, reason); err != nil {
		return err
	}
	s.log.Warn("table deactivated on corrupt data", zap.Uint64("table_id", tableID), zap.Error(reason))
	return s.checkpoint()
}

var _ metastore.Store = (*Store)(nil)
