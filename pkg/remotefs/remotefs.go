// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

// Package remotefs implements the content-addressed blob store
// described in §6: files are immutable once named, writes go through
// a temp path plus atomic rename, and every call is a suspension
// point for the compaction engine's scheduler.
package remotefs

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

// Error is the error class for remote-fs failures.
var Error = errs.Class("remotefs")

// FS is the remote-fs API named in §6.
type FS interface {
	// DownloadFile fetches remote into a local scratch path and
	// returns it. expectedSize, if >= 0, is checked against the
	// downloaded file's actual size.
	DownloadFile(ctx context.Context, remote string, expectedSize int64) (localPath string, err error)

	// UploadFile uploads local to remote and returns its size.
	UploadFile(ctx context.Context, local, remote string) (size int64, err error)

	// TempUploadPath returns a local scratch path that, once
	// written, can be passed to UploadFile for remote.
	TempUploadPath(remote string) (localPath string)

	// DeleteFile removes remote. Deleting a name that never existed
	// is not an error.
	DeleteFile(ctx context.Context, remote string) error

	// LocalFile returns the local cache path for remote if resident,
	// without downloading, or "" if not cached.
	LocalFile(remote string) string
}

// Local is a filesystem-backed FS rooted at a directory, standing in
// for the durable blob tier in single-node deployments and tests.
// Remote names are content-addressed file names; "uploading" copies
// into the root, "downloading" copies out of it into scratch.
type Local struct {
	log       *zap.Logger
	root      string
	scratch   string
}

// NewLocal returns a Local store rooted at root, using scratchDir for
// temp/downloaded files.
func NewLocal(log *zap.Logger, root, scratchDir string) (*Local, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, Error.Wrap(err)
	}
	if err := os.MkdirAll(scratchDir, 0755); err != nil {
		return nil, Error.Wrap(err)
	}
	return &Local{log: log, root: root, scratch: scratchDir}, nil
}

func (l *Local) remotePath(remote string) string {
	return filepath.Join(l.root, remote)
}

func (l *Local) DownloadFile(ctx context.Context, remote string, expectedSize int64) (string, error) {
	src := l.remotePath(remote)
	info, err := os.Stat(src)
	if err != nil {
		return "", Error.Wrap(err)
	}
	if expectedSize >= 0 && info.Size() != expectedSize {
		return "", Error.New("size mismatch for %q: expected %d, got %d", remote, expectedSize, info.Size())
	}

	dst := l.TempUploadPath("download-" + remote)
	if err := copyFile(src, dst); err != nil {
		return "", Error.Wrap(err)
	}
	return dst, nil
}

func (l *Local) UploadFile(ctx context.Context, local, remote string) (int64, error) {
	dst := l.remotePath(remote)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, Error.Wrap(err)
	}

	tmp := dst + ".part"
	if err := copyFile(local, tmp); err != nil {
		return 0, Error.Wrap(err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return 0, Error.Wrap(err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		return 0, Error.Wrap(err)
	}
	return info.Size(), nil
}

func (l *Local) TempUploadPath(remote string) string {
	return filepath.Join(l.scratch, sanitizeName(remote)+".tmp")
}

func (l *Local) DeleteFile(ctx context.Context, remote string) error {
	err := os.Remove(l.remotePath(remote))
	if err != nil && !os.IsNotExist(err) {
		return Error.Wrap(err)
	}
	return nil
}

func (l *Local) LocalFile(remote string) string {
	p := l.remotePath(remote)
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

func sanitizeName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	_, err = io.Copy(out, in)
	return err
}

var _ FS = (*Local)(nil)
