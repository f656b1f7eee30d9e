// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package rewrite

import (
	"github.com/latticedb/lattice/pkg/egraph"
	"github.com/latticedb/lattice/pkg/planir"
)

// planCost ranks extraction candidates per §4.3.4: (a) any node with
// an unresolved replacer beats nothing, (b) among nodes with none,
// fewer/lower-priority MemberErrors wins, (c) among ties, fewer total
// nodes wins. The spec fixes this ordering but leaves two things to
// the implementer (§9 open question): the relative weight between (b)
// and (c), and what counts as "unresolved" for (a).
//
// Read literally, (c) alone would make plain node count the deciding
// factor between two DIFFERENT root shapes, and a bare TableScan is
// always smaller than the CubeScan it could become -- extraction
// would then never push anything down. So (a) is read broadly here:
// a Projection/Aggregate/Join/CrossJoin/Distinct/Limit node that
// still sits above what could have been folded into a CubeScan counts
// as "unresolved" exactly like a literal MemberReplacer does, not just
// the replacer node itself. errorScore is weighted far above nodeCount
// so a single MemberError, however low its priority, always loses to
// an error-free alternative regardless of size.
type planCost struct {
	hasReplacer bool
	errorScore  int
	nodeCount   int
}

// Less reports whether c should be extracted in preference to other.
func (c planCost) Less(other egraph.Cost) bool {
	o := other.(planCost)
	if c.hasReplacer != o.hasReplacer {
		return !c.hasReplacer
	}
	if c.errorScore != o.errorScore {
		return c.errorScore < o.errorScore
	}
	return c.nodeCount < o.nodeCount
}

// costFn is the egraph.CostFn the rewriter's saturation driver passes
// to Extract. errorPriorityScore turns a MemberError's Priority field
// into a score where lower is better, since §4.3.3 rule family 6 emits
// low-priority numbers for the more specific (preferred) errors.
func costFn(shape planir.Node, childCosts []egraph.Cost) egraph.Cost {
	c := planCost{nodeCount: 1}
	for _, cc := range childCosts {
		kid := cc.(planCost)
		c.hasReplacer = c.hasReplacer || kid.hasReplacer
		c.errorScore += kid.errorScore
		c.nodeCount += kid.nodeCount
	}
	switch n := shape.(type) {
	case planir.MemberReplacer, planir.MemberPushdownReplacer, planir.ListConcatReplacer,
		planir.Projection, planir.Aggregate, planir.Join, planir.CrossJoin, planir.Distinct, planir.Limit:
		c.hasReplacer = true
	case planir.MemberError:
		c.errorScore += errorPriorityScore(n.Priority)
	}
	return c
}

// errorPriorityScore maps a MemberError's priority into the cost
// function's error weight, low priority numbers (the more specific,
// more actionable errors per rule family 6) scoring lower so they are
// preferred over generic ones when no error-free plan exists.
func errorPriorityScore(priority int) int {
	const base = 1000
	return base + priority
}
