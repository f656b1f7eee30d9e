// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package chunkstore

import (
	"encoding/gob"
	"os"

	"github.com/zeebo/errs"
)

// Error is the error class for chunk/partition file I/O failures.
var Error = errs.Class("chunkstore")

func init() {
	gob.Register(RecordBatch{})
}

// WriteFile serialises batch to a local scratch path, the file a
// caller then hands to remotefs.UploadFile.
func WriteFile(path string, batch RecordBatch) (size int64, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, Error.Wrap(err)
	}
	defer func() {
		cerr := f.Close()
		if err == nil {
			err = Error.Wrap(cerr)
		}
	}()

	enc := gob.NewEncoder(f)
	if err := enc.Encode(batch); err != nil {
		return 0, Error.Wrap(err)
	}

	info, err := f.Stat()
	if err != nil {
		return 0, Error.Wrap(err)
	}
	return info.Size(), nil
}

// ReadFile deserialises a batch written by WriteFile.
func ReadFile(path string) (RecordBatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return RecordBatch{}, Error.Wrap(err)
	}
	defer func() { _ = f.Close() }()

	var batch RecordBatch
	if err := gob.NewDecoder(f).Decode(&batch); err != nil {
		return RecordBatch{}, Error.Wrap(err)
	}
	return batch, nil
}
