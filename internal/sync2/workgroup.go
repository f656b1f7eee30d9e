// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

// Package sync2 provides small concurrency helpers used by the
// compaction engine's worker pool: a bounded WorkGroup and a scratch
// file guard that releases disk on every exit path (panic, error,
// cancellation).
package sync2

import (
	"context"
	"sync"
)

// WorkGroup runs a bounded number of tasks concurrently, mirroring
// the task-based scheduling model described for Core A: CPU-heavy
// phases run on dedicated workers instead of blocking the caller.
type WorkGroup struct {
	limit chan struct{}
	wg    sync.WaitGroup

	mu   sync.Mutex
	errs []error
}

// NewWorkGroup returns a group that runs at most parallelism tasks at
// a time. A non-positive parallelism means unbounded.
func NewWorkGroup(parallelism int) *WorkGroup {
	group := &WorkGroup{}
	if parallelism > 0 {
		group.limit = make(chan struct{}, parallelism)
	}
	return group
}

// Go schedules fn. It blocks until a slot is free when the group is
// bounded and the pool is saturated.
func (group *WorkGroup) Go(ctx context.Context, fn func(ctx context.Context) error) {
	if group.limit != nil {
		select {
		case group.limit <- struct{}{}:
		case <-ctx.Done():
			group.recordErr(ctx.Err())
			return
		}
	}

	group.wg.Add(1)
	go func() {
		defer group.wg.Done()
		if group.limit != nil {
			defer func() { <-group.limit }()
		}
		if err := fn(ctx); err != nil {
			group.recordErr(err)
		}
	}()
}

func (group *WorkGroup) recordErr(err error) {
	group.mu.Lock()
	defer group.mu.Unlock()
	group.errs = append(group.errs, err)
}

// Wait blocks until all scheduled tasks finish and returns the first
// recorded error, if any.
func (group *WorkGroup) Wait() error {
	group.wg.Wait()
	group.mu.Lock()
	defer group.mu.Unlock()
	if len(group.errs) == 0 {
		return nil
	}
	return group.errs[0]
}
