// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package sync2

import (
	"os"
	"sync"
)

// ScratchGuard tracks a set of local scratch file paths and deletes
// every one of them on Close, regardless of which exit path got
// there (success, error return, or panic unwinding through a
// deferred Close). Paths can be registered incrementally as they are
// created, e.g. one per downloaded chunk file.
type ScratchGuard struct {
	mu    sync.Mutex
	paths []string
	done  bool
}

// NewScratchGuard returns an empty guard. Callers should defer
// Close() immediately after construction.
func NewScratchGuard() *ScratchGuard {
	return &ScratchGuard{}
}

// Add registers a path for cleanup.
func (g *ScratchGuard) Add(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		_ = os.Remove(path)
		return
	}
	g.paths = append(g.paths, path)
}

// Release removes path from the guard's tracking list without
// deleting it, for the rare case a scratch file is promoted (e.g.
// uploaded and kept) instead of discarded.
func (g *ScratchGuard) Release(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, p := range g.paths {
		if p == path {
			g.paths = append(g.paths[:i], g.paths[i+1:]...)
			return
		}
	}
}

// Close deletes every still-tracked path. Safe to call multiple
// times; only the first call does work.
func (g *ScratchGuard) Close() error {
	g.mu.Lock()
	if g.done {
		g.mu.Unlock()
		return nil
	}
	g.done = true
	paths := g.paths
	g.paths = nil
	g.mu.Unlock()

	var firstErr error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
