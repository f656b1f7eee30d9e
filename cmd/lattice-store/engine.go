// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package main

import (
	"os"
	"path/filepath"

	"github.com/latticedb/lattice/pkg/compaction"
	"github.com/latticedb/lattice/pkg/metastore/boltstore"
	"github.com/latticedb/lattice/pkg/remotefs"
)

// openStore opens the catalog alone, for commands that only need to
// read or register rows rather than run compaction.
func openStore() (*boltstore.Store, error) {
	return boltstore.Open(log, dbPath)
}

// openEngine wires a boltstore-backed catalog and a local blob store
// into a compaction.Engine, the same three-piece assembly
// split_test.go and compact_test.go build by hand for tests.
func openEngine() (*compaction.Engine, *boltstore.Store, error) {
	store, err := boltstore.Open(log, dbPath)
	if err != nil {
		return nil, nil, err
	}

	root := filepath.Join(filepath.Dir(dbPath), "blobs")
	scratch := filepath.Join(filepath.Dir(dbPath), "scratch")
	if err := os.MkdirAll(root, 0755); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	if err := os.MkdirAll(scratch, 0755); err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	fs, err := remotefs.NewLocal(log, root, scratch)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	engine := compaction.NewEngine(log, store, fs, scratch, compaction.DefaultConfig())
	return engine, store, nil
}
