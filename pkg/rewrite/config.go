// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

// Package rewrite implements Core B: the equality-saturation pass
// that rewrites a logical plan into one or more CubeScan push-downs
// against a cube member catalogue (§4.3).
package rewrite

import "time"

// Config holds the saturation budget and rewrite feature flags named
// in spec §6.
type Config struct {
	MaxIterations int
	MaxSize       int
	MaxTime       time.Duration

	// Ungrouped is the default CubeScan.Ungrouped value the Seed rule
	// assigns (rule family 1).
	Ungrouped bool

	// PushDownPullUpSplit is carried in the configuration but no rule
	// reads it: rule family 13 (ruleListConcat) flattens nested member
	// lists the same way whether it is set or not.
	PushDownPullUpSplit bool

	// DisableStrictAggTypeMatch relaxes rule family 6's aggregation
	// type check.
	DisableStrictAggTypeMatch bool

	// StreamMode and NonStreamingQueryMaxRowLimit clamp query limits
	// in non-streaming mode.
	StreamMode                    bool
	NonStreamingQueryMaxRowLimit  int64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxIterations:                20,
		MaxSize:                      10_000,
		MaxTime:                      5 * time.Second,
		Ungrouped:                    true,
		NonStreamingQueryMaxRowLimit: 50_000,
	}
}
