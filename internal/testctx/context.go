// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

// Package testctx provides a *testing.T-scoped context plus a
// scratch directory, for tests that exercise compaction or remote-fs
// code paths needing real temp files and background goroutines with
// guaranteed cleanup.
package testctx

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// Context bundles a context.Context, a temp directory and a
// goroutine group that the test can wait on during cleanup.
type Context struct {
	context.Context
	t    *testing.T
	dir  string
	wg   sync.WaitGroup
	mu   sync.Mutex
	errs []error
}

// New returns a Context backed by context.Background() and a fresh
// temp directory that is removed on Cleanup.
func New(t *testing.T) *Context {
	return &Context{
		Context: context.Background(),
		t:       t,
		dir:     t.TempDir(),
	}
}

// NewWithTimeout is like New but cancels the context after timeout.
func NewWithTimeout(t *testing.T, timeout time.Duration) *Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return &Context{Context: ctx, t: t, dir: t.TempDir()}
}

// Dir returns the scratch directory (joined with any extra elements).
func (ctx *Context) Dir(elem ...string) string {
	return filepath.Join(append([]string{ctx.dir}, elem...)...)
}

// Go runs fn in a goroutine tracked by the context; errors surface at
// Cleanup time via t.Fatal.
func (ctx *Context) Go(fn func() error) {
	ctx.wg.Add(1)
	go func() {
		defer ctx.wg.Done()
		if err := fn(); err != nil {
			ctx.mu.Lock()
			ctx.errs = append(ctx.errs, err)
			ctx.mu.Unlock()
		}
	}()
}

// Cleanup waits for all goroutines started with Go and fails the test
// if any returned an error.
func (ctx *Context) Cleanup() {
	ctx.wg.Wait()
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	for _, err := range ctx.errs {
		ctx.t.Error(err)
	}
}
