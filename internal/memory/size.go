// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

// Package memory provides a human-readable byte-size type used across
// configuration fields so logs and flags print as "12.0 MB" rather
// than a bare integer.
package memory

import "fmt"

// Size is a count of bytes.
type Size int64

const (
	B  Size = 1
	KB      = B << 10
	MB      = KB << 10
	GB      = MB << 10
	TB      = GB << 10
)

// String implements fmt.Stringer, rendering the largest unit that
// keeps the mantissa at or above 1.
func (s Size) String() string {
	switch {
	case s == 0:
		return "0"
	case s < KB:
		return fmt.Sprintf("%d B", int64(s))
	case s < MB:
		return fmt.Sprintf("%.1f KB", float64(s)/float64(KB))
	case s < GB:
		return fmt.Sprintf("%.1f MB", float64(s)/float64(MB))
	case s < TB:
		return fmt.Sprintf("%.1f GB", float64(s)/float64(GB))
	default:
		return fmt.Sprintf("%.1f TB", float64(s)/float64(TB))
	}
}

// Int64 returns the size as a plain byte count.
func (s Size) Int64() int64 { return int64(s) }
