// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package sync2_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/internal/sync2"
)

func TestWorkGroupRunsAllTasks(t *testing.T) {
	group := sync2.NewWorkGroup(2)
	var count int32
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		group.Go(ctx, func(ctx context.Context) error {
			atomic.AddInt32(&count, 1)
			return nil
		})
	}
	require.NoError(t, group.Wait())
	require.EqualValues(t, 10, count)
}

func TestWorkGroupCollectsError(t *testing.T) {
	group := sync2.NewWorkGroup(0)
	ctx := context.Background()
	group.Go(ctx, func(ctx context.Context) error { return nil })
	group.Go(ctx, func(ctx context.Context) error { return errors.New("boom") })
	require.Error(t, group.Wait())
}

func TestScratchGuardCleansUpOnClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scratch.tmp")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))

	guard := sync2.NewScratchGuard()
	guard.Add(path)
	require.NoError(t, guard.Close())

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestScratchGuardReleaseKeepsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keep.tmp")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))

	guard := sync2.NewScratchGuard()
	guard.Add(path)
	guard.Release(path)
	require.NoError(t, guard.Close())

	_, err := os.Stat(path)
	require.NoError(t, err)
}
