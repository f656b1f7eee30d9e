// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

// Package memstore is an in-memory metastore.Store used by tests and
// by small single-process deployments. It enforces the same
// invariants the spec requires of any backing implementation: the
// prepared-for-split latch, monotonic chunk deactivation, and the
// single linearisation point on every swap.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/latticedb/lattice/pkg/metastore"
)

// Store is a thread-safe, in-memory implementation of metastore.Store.
type Store struct {
	mu sync.Mutex

	nextID uint64

	schemas         map[uint64]metastore.Schema
	tables          map[uint64]metastore.Table
	indexes         map[uint64]metastore.Index
	partitions      map[uint64]metastore.Partition
	chunks          map[uint64]metastore.Chunk
	multiPartitions map[uint64]metastore.MultiPartition
}

// New returns an empty store.
func New() *Store {
	return &Store{
		schemas:         map[uint64]metastore.Schema{},
		tables:          map[uint64]metastore.Table{},
		indexes:         map[uint64]metastore.Index{},
		partitions:      map[uint64]metastore.Partition{},
		chunks:          map[uint64]metastore.Chunk{},
		multiPartitions: map[uint64]metastore.MultiPartition{},
	}
}

func (s *Store) allocID() uint64 {
	s.nextID++
	return s.nextID
}

// --- fixture helpers (not part of metastore.Store; used by tests/seed code) ---

// PutSchema inserts or overwrites a schema row.
func (s *Store) PutSchema(sc metastore.Schema) metastore.Schema {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc.ID == 0 {
		sc.ID = s.allocID()
	}
	s.schemas[sc.ID] = sc
	return sc
}

// PutTable inserts or overwrites a table row.
func (s *Store) PutTable(t metastore.Table) metastore.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		t.ID = s.allocID()
	}
	s.tables[t.ID] = t
	return t
}

// PutIndex inserts or overwrites an index row.
func (s *Store) PutIndex(idx metastore.Index) metastore.Index {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx.ID == 0 {
		idx.ID = s.allocID()
	}
	s.indexes[idx.ID] = idx
	return idx
}

// PutPartition inserts or overwrites a partition row directly,
// bypassing CreatePartition's defaults -- used to seed fixtures.
func (s *Store) PutPartition(p metastore.Partition) metastore.Partition {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.allocID()
	}
	s.partitions[p.ID] = p
	return p
}

// PutChunk inserts or overwrites a chunk row directly.
func (s *Store) PutChunk(c metastore.Chunk) metastore.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.allocID()
	}
	s.chunks[c.ID] = c
	return c
}

// PutMultiPartition inserts or overwrites a multi-partition row.
func (s *Store) PutMultiPartition(mp metastore.MultiPartition) metastore.MultiPartition {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mp.ID == 0 {
		mp.ID = s.allocID()
	}
	s.multiPartitions[mp.ID] = mp
	return mp
}

// Partition returns a snapshot of a partition row, for assertions.
func (s *Store) Partition(id uint64) (metastore.Partition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.partitions[id]
	return p, ok
}

// Chunk returns a snapshot of a chunk row, for assertions.
func (s *Store) Chunk(id uint64) (metastore.Chunk, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chunks[id]
	return c, ok
}

// ActivePartitionsByIndex returns the active partitions of an index,
// for invariant checks like range coverage in tests.
func (s *Store) ActivePartitionsByIndex(indexID uint64) []metastore.Partition {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []metastore.Partition
	for _, p := range s.partitions {
		if p.IndexID == indexID && p.Active {
			out = append(out, p)
		}
	}
	return out
}

// RestoreNextID raises the allocator's high-water mark past n,
// skipping IDs already assigned to rows loaded from durable storage.
// Used by boltstore when rehydrating its in-memory mirror on Open;
// tests never need it since PutX helpers allocate fresh IDs.
func (s *Store) RestoreNextID(n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > s.nextID {
		s.nextID = n
	}
}

// Snapshot is a consistent, point-in-time copy of every row the store
// holds, used by boltstore to persist the full catalog after a
// mutating call -- rows here are only ever added or updated in place,
// never hard-deleted, so a full rewrite on every mutation never loses
// a tombstone.
type Snapshot struct {
	NextID          uint64
	Schemas         []metastore.Schema
	Tables          []metastore.Table
	Indexes         []metastore.Index
	Partitions      []metastore.Partition
	Chunks          []metastore.Chunk
	MultiPartitions []metastore.MultiPartition
}

// Snapshot returns a copy of every row currently held.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{NextID: s.nextID}
	for _, v := range s.schemas {
		snap.Schemas = append(snap.Schemas, v)
	}
	for _, v := range s.tables {
		snap.Tables = append(snap.Tables, v)
	}
	for _, v := range s.indexes {
		snap.Indexes = append(snap.Indexes, v)
	}
	for _, v := range s.partitions {
		snap.Partitions = append(snap.Partitions, v)
	}
	for _, v := range s.chunks {
		snap.Chunks = append(snap.Chunks, v)
	}
	for _, v := range s.multiPartitions {
		snap.MultiPartitions = append(snap.MultiPartitions, v)
	}
	return snap
}

// --- metastore.Store implementation ---

func (s *Store) GetPartitionForCompaction(ctx context.Context, partitionID uint64) (metastore.PartitionData, *metastore.MultiPartition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.partitions[partitionID]
	if !ok {
		return metastore.PartitionData{}, nil, metastore.Error.New("partition %d not found", partitionID)
	}
	idx, ok := s.indexes[p.IndexID]
	if !ok {
		return metastore.PartitionData{}, nil, metastore.Error.New("index %d not found", p.IndexID)
	}
	tbl, ok := s.tables[idx.TableID]
	if !ok {
		return metastore.PartitionData{}, nil, metastore.Error.New("table %d not found", idx.TableID)
	}

	var mp *metastore.MultiPartition
	if p.MultiPartitionID != 0 {
		if v, ok := s.multiPartitions[p.MultiPartitionID]; ok {
			cp := v
			mp = &cp
		}
	}

	chunks := s.chunksByPartitionLocked(partitionID, false)
	return metastore.PartitionData{Partition: p, Index: idx, Table: tbl, Chunks: chunks}, mp, nil
}

func (s *Store) chunksByPartitionLocked(partitionID uint64, includeInactive bool) []metastore.Chunk {
	var out []metastore.Chunk
	for _, c := range s.chunks {
		if c.PartitionID != partitionID {
			continue
		}
		if !includeInactive && !c.Active {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (s *Store) GetChunksByPartition(ctx context.Context, partitionID uint64, includeInactive bool) ([]metastore.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunksByPartitionLocked(partitionID, includeInactive), nil
}

func (s *Store) CreatePartition(ctx context.Context, p metastore.Partition) (metastore.Partition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.allocID()
	}
	if p.FileSize == 0 {
		p.FileSize = -1
	}
	s.partitions[p.ID] = p
	return p, nil
}

func (s *Store) CreateMultiPartition(ctx context.Context, mp metastore.MultiPartition) (metastore.MultiPartition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mp.ID == 0 {
		mp.ID = s.allocID()
	}
	s.multiPartitions[mp.ID] = mp
	return mp, nil
}

func (s *Store) CreateChunk(ctx context.Context, partitionID uint64, rowCount uint64, inMemory bool) (metastore.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := metastore.Chunk{
		ID:             s.allocID(),
		PartitionID:    partitionID,
		RowCount:       rowCount,
		InMemory:       inMemory,
		Active:         true,
		Uploaded:       inMemory, // in-memory chunks need no upload
		OldestInsertAt: time.Now(),
		CreatedAt:      time.Now(),
	}
	if !inMemory {
		c.FileName = fmt.Sprintf("chunk-%d.bin", c.ID)
		c.FileSize = -1 // unknown until written; DownloadFile skips the size check
	}
	s.chunks[c.ID] = c
	return c, nil
}

func (s *Store) ChunkUploaded(ctx context.Context, chunkID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chunks[chunkID]
	if !ok {
		return metastore.Error.New("chunk %d not found", chunkID)
	}
	c.Uploaded = true
	s.chunks[chunkID] = c
	return nil
}

func (s *Store) SwapChunks(ctx context.Context, oldIDs []uint64, newChunks []metastore.ChunkWithRowCount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(oldIDs) == 0 {
		return metastore.Error.New("swap_chunks requires at least one old chunk")
	}
	partitionID := uint64(0)
	for _, id := range oldIDs {
		c, ok := s.chunks[id]
		if !ok {
			continue // idempotent: already gone
		}
		partitionID = c.PartitionID
		c.Active = false
		s.chunks[id] = c
	}
	for _, nc := range newChunks {
		id := nc.ChunkID
		if id == 0 {
			id = s.allocID()
		}
		oldest := nc.OldestInsertAt
		if oldest.IsZero() {
			oldest = time.Now()
		}
		s.chunks[id] = metastore.Chunk{
			ID:             id,
			PartitionID:    partitionID,
			RowCount:       nc.RowCount,
			InMemory:       nc.InMemory,
			Active:         true,
			Uploaded:       nc.Uploaded || nc.InMemory,
			FileSize:       nc.FileSize,
			FileName:       nc.FileName,
			OldestInsertAt: oldest,
			CreatedAt:      time.Now(),
		}
	}
	return nil
}

func (s *Store) SwapCompactedChunks(ctx context.Context, partitionID uint64, oldChunkIDs []uint64, newChunkID uint64, fileSize int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.partitions[partitionID]
	if !ok {
		return false, metastore.Error.New("partition %d not found", partitionID)
	}
	if p.MultiPartitionID != 0 {
		if mp, ok := s.multiPartitions[p.MultiPartitionID]; ok && mp.PreparedForSplit {
			return false, nil
		}
	}

	for _, id := range oldChunkIDs {
		c, ok := s.chunks[id]
		if !ok {
			continue
		}
		c.Active = false
		s.chunks[id] = c
	}

	if c, ok := s.chunks[newChunkID]; ok {
		c.FileSize = fileSize
		s.chunks[newChunkID] = c
	}
	return true, nil
}

func (s *Store) SwapActivePartitions(ctx context.Context, oldPartitionIDs []uint64, foldedChunkIDs []uint64, newPartitions []metastore.NewPartitionRange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(oldPartitionIDs) == 0 {
		return metastore.Error.New("swap_active_partitions requires at least one old partition")
	}

	for _, id := range oldPartitionIDs {
		p, ok := s.partitions[id]
		if !ok {
			return metastore.Error.New("partition %d not found", id)
		}
		p.Active = false
		s.partitions[id] = p
	}
	for _, id := range foldedChunkIDs {
		c, ok := s.chunks[id]
		if !ok {
			continue
		}
		c.Active = false
		s.chunks[id] = c
	}

	for _, np := range newPartitions {
		id := np.PartitionID
		if id == 0 {
			id = s.allocID()
		}
		existing := s.partitions[id]
		existing.ID = id
		existing.IndexID = np.IndexID
		existing.MinRow = np.MinRow
		existing.MaxRow = np.MaxRow
		existing.MainTableRowCount = np.RowCount
		existing.FileSize = np.FileSize
		existing.FileName = np.FileName
		existing.Active = true
		s.partitions[id] = existing
	}
	return nil
}

func (s *Store) PrepareMultiPartitionForSplit(ctx context.Context, multiPartitionID uint64) (metastore.Index, metastore.MultiPartition, []metastore.PartitionData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mp, ok := s.multiPartitions[multiPartitionID]
	if !ok {
		return metastore.Index{}, metastore.MultiPartition{}, nil, metastore.Error.New("multi-partition %d not found", multiPartitionID)
	}
	mp.PreparedForSplit = true
	s.multiPartitions[multiPartitionID] = mp

	var datas []metastore.PartitionData
	var firstIndex metastore.Index
	for _, p := range s.partitions {
		if p.MultiPartitionID != multiPartitionID {
			continue
		}
		idx := s.indexes[p.IndexID]
		tbl := s.tables[idx.TableID]
		if firstIndex.ID == 0 {
			firstIndex = idx
		}
		datas = append(datas, metastore.PartitionData{
			Partition: p,
			Index:     idx,
			Table:     tbl,
			Chunks:    s.chunksByPartitionLocked(p.ID, false),
		})
	}
	return firstIndex, mp, datas, nil
}

func (s *Store) PrepareMultiSplitFinish(ctx context.Context, multiPartitionID, partitionID uint64) (metastore.PartitionData, []metastore.MultiPartition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.partitions[partitionID]
	if !ok {
		return metastore.PartitionData{}, nil, metastore.Error.New("partition %d not found", partitionID)
	}
	idx := s.indexes[p.IndexID]
	tbl := s.tables[idx.TableID]
	data := metastore.PartitionData{
		Partition: p,
		Index:     idx,
		Table:     tbl,
		Chunks:    s.chunksByPartitionLocked(partitionID, false),
	}

	var children []metastore.MultiPartition
	for _, mp := range s.multiPartitions {
		if mp.ParentID == multiPartitionID {
			children = append(children, mp)
		}
	}
	return data, children, nil
}

func (s *Store) CommitMultiPartitionSplit(ctx context.Context, multiPartitionID uint64, childMultiIDs []uint64, childRowCounts []uint64, oldPartitionIDs []uint64, newPartitions []metastore.NewPartitionRange, initialSplit bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(childMultiIDs) != len(childRowCounts) {
		return metastore.Error.New("invariant violation: %d child multi-partitions but %d row counts", len(childMultiIDs), len(childRowCounts))
	}

	for _, id := range oldPartitionIDs {
		p, ok := s.partitions[id]
		if !ok {
			return metastore.Error.New("partition %d not found", id)
		}
		p.Active = false
		s.partitions[id] = p
	}

	for _, np := range newPartitions {
		id := np.PartitionID
		if id == 0 {
			id = s.allocID()
		}
		existing := s.partitions[id]
		existing.ID = id
		existing.IndexID = np.IndexID
		existing.MinRow = np.MinRow
		existing.MaxRow = np.MaxRow
		existing.MainTableRowCount = np.RowCount
		existing.FileSize = np.FileSize
		existing.FileName = np.FileName
		existing.Active = true
		s.partitions[id] = existing
	}

	for i, cid := range childMultiIDs {
		mp, ok := s.multiPartitions[cid]
		if !ok {
			continue
		}
		mp.RowCountEstimate += childRowCounts[i]
		s.multiPartitions[cid] = mp
	}

	if initialSplit {
		if mp, ok := s.multiPartitions[multiPartitionID]; ok {
			mp.PreparedForSplit = false
			s.multiPartitions[multiPartitionID] = mp
		}
	}
	return nil
}

func (s *Store) DeactivateTableOnCorruptData(ctx context.Context, tableID uint64, reason error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[tableID]
	if !ok {
		return metastore.Error.New("table %d not found", tableID)
	}
	t.IsCorrupt = true
	s.tables[tableID] = t
	return nil
}

func chunkMainTableName(partitionID, chunkID uint64) string {
	return "partition-main"
}

var _ metastore.Store = (*Store)(nil)
