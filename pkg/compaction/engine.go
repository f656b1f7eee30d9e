// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package compaction

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"github.com/latticedb/lattice/internal/sync2"
	"github.com/latticedb/lattice/pkg/chunkstore"
	"github.com/latticedb/lattice/pkg/execplan"
	"github.com/latticedb/lattice/pkg/metastore"
	"github.com/latticedb/lattice/pkg/remotefs"
	"github.com/latticedb/lattice/pkg/types"
)

// Error is the error class for compaction failures.
var Error = errs.Class("compaction")

var mon = monkit.Package()

// dataStore is the in-process chunk content cache: metastore only
// tracks chunk metadata, so in-memory chunk payloads live here, and
// persistent chunk/partition files are read back through FS +
// chunkstore keyed by the metastore-recorded file name.
type dataStore struct {
	mu   sync.RWMutex
	data map[uint64]chunkstore.RecordBatch
}

func newDataStore() *dataStore {
	return &dataStore{data: map[uint64]chunkstore.RecordBatch{}}
}

func (d *dataStore) put(id uint64, batch chunkstore.RecordBatch) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data[id] = batch
}

func (d *dataStore) get(id uint64) (chunkstore.RecordBatch, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.data[id]
	return b, ok
}

func (d *dataStore) delete(id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.data, id)
}

// Engine is Core A: the compaction, split and repartitioning
// pipeline described in spec §4.2.
type Engine struct {
	log        *zap.Logger
	store      metastore.Store
	fs         remotefs.FS
	scratchDir string
	cfg        Config
	mem        *dataStore

	emptyPartitionsDropped monkit.Meter
}

// NewEngine constructs a compaction engine. scratchDir holds local
// temp files for downloads and merge output before upload; it must
// already exist, NewEngine does not create it.
func NewEngine(log *zap.Logger, store metastore.Store, fs remotefs.FS, scratchDir string, cfg Config) *Engine {
	return &Engine{
		log:                    log,
		store:                  store,
		fs:                     fs,
		scratchDir:             scratchDir,
		cfg:                    cfg,
		mem:                    newDataStore(),
		emptyPartitionsDropped: *monkit.NewMeter("compaction_empty_partitions_dropped"),
	}
}

// InsertChunk registers a new chunk of data under partitionID. This
// is not one of Core A's three entry points (ingest is an external
// collaborator per spec §1) but every compaction test needs some way
// to land data, so the engine exposes the minimal path: persist the
// batch (in-memory cache, or upload + ChunkUploaded for persistent
// chunks) and create the metastore row.
func (e *Engine) InsertChunk(ctx context.Context, partitionID uint64, batch chunkstore.RecordBatch, inMemory bool) (_ metastore.Chunk, err error) {
	defer mon.Task()(&ctx)(&err)

	chunk, err := e.store.CreateChunk(ctx, partitionID, uint64(batch.NumRows()), inMemory)
	if err != nil {
		return metastore.Chunk{}, Error.Wrap(err)
	}

	if inMemory {
		e.mem.put(chunk.ID, batch)
		return chunk, nil
	}

	local := filepath.Join(e.scratchDir, fmt.Sprintf("chunk-%d.local", chunk.ID))
	guard := sync2.NewScratchGuard()
	defer func() { _ = guard.Close() }()
	guard.Add(local)

	size, err := chunkstore.WriteFile(local, batch)
	if err != nil {
		return metastore.Chunk{}, Error.Wrap(err)
	}
	remoteName := chunkFileName(chunk.ID)
	if _, err := e.fs.UploadFile(ctx, local, remoteName); err != nil {
		return metastore.Chunk{}, Error.Wrap(err)
	}
	if err := e.store.ChunkUploaded(ctx, chunk.ID); err != nil {
		return metastore.Chunk{}, Error.Wrap(err)
	}
	chunk.Uploaded = true
	chunk.FileSize = size
	chunk.FileName = remoteName
	return chunk, nil
}

func chunkFileName(id uint64) string {
	return fmt.Sprintf("chunk-%d.bin", id)
}

func partitionFileName(id uint64) string {
	return fmt.Sprintf("partition-%d.bin", id)
}

// readChunk resolves a chunk's data, from the in-memory cache or by
// downloading its persistent file.
func (e *Engine) readChunk(ctx context.Context, c metastore.Chunk, guard *sync2.ScratchGuard) (chunkstore.RecordBatch, error) {
	if c.InMemory {
		b, ok := e.mem.get(c.ID)
		if !ok {
			return chunkstore.RecordBatch{}, Error.New("in-memory chunk %d has no cached data", c.ID)
		}
		return b, nil
	}
	local, err := e.fs.DownloadFile(ctx, c.FileName, c.FileSize)
	if err != nil {
		return chunkstore.RecordBatch{}, Error.Wrap(err)
	}
	guard.Add(local)
	return chunkstore.ReadFile(local)
}

// readMainTable returns an execution node for a partition's main
// table file, or EmptyExec if it has none yet.
func (e *Engine) readMainTable(ctx context.Context, p metastore.Partition, schema []string, guard *sync2.ScratchGuard) (execplan.Node, error) {
	if p.FileName == "" {
		return execplan.EmptyExec{Schema: schema}, nil
	}
	if local := e.fs.LocalFile(p.FileName); local != "" {
		return execplan.ParquetExec{Path: local}, nil
	}
	local, err := e.fs.DownloadFile(ctx, p.FileName, p.FileSize)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	guard.Add(local)
	return execplan.ParquetExec{Path: local}, nil
}

// resolveUniqueKeyIndex maps a table's declared unique key column
// names to their positional index.
func resolveUniqueKeyIndex(table metastore.Table) []int {
	if len(table.UniqueKey) == 0 {
		return nil
	}
	idx := make([]int, 0, len(table.UniqueKey))
	for _, name := range table.UniqueKey {
		for i, c := range table.Columns {
			if c.Name == name {
				idx = append(idx, i)
				break
			}
		}
	}
	return idx
}

// resolveAggregators maps an Aggregate index's (fn, source-column)
// pairs to column positions.
func resolveAggregators(table metastore.Table, idx metastore.Index) []execplan.Aggregator {
	out := make([]execplan.Aggregator, 0, len(idx.Aggregates))
	for _, agg := range idx.Aggregates {
		for i, c := range table.Columns {
			if c.Name == agg.Source {
				out = append(out, execplan.Aggregator{Fn: agg.Fn, SourceIndex: i})
				break
			}
		}
	}
	return out
}

func ceilDiv(a, b uint64) uint64 {
	if b == 0 {
		return 0
	}
	return uint64(math.Ceil(float64(a) / float64(b)))
}

func minUint64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func nowTruncated() time.Time { return time.Now() }
