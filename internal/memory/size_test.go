// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package memory_test

import (
	"testing"

	"github.com/latticedb/lattice/internal/memory"
)

const (
	tb = 1 << 40
	gb = 1 << 30
	mb = 1 << 20
	kb = 1 << 10
)

func TestSize(t *testing.T) {
	tests := []struct {
		size memory.Size
		text string
	}{
		{1 * tb, "1.0 TB"},
		{1 * gb, "1.0 GB"},
		{1 * mb, "1.0 MB"},
		{1 * kb, "1.0 KB"},
		{1, "1 B"},
		{68 * tb, "68.0 TB"},
		{256 * mb, "256.0 MB"},
		{500, "500 B"},
		{0, "0"},
	}

	for i, test := range tests {
		if got := test.size.String(); got != test.text {
			t.Errorf("%d: Size(%d).String() = %q, want %q", i, int64(test.size), got, test.text)
		}
	}
}
