// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package rewrite

import (
	"context"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"github.com/latticedb/lattice/pkg/egraph"
	"github.com/latticedb/lattice/pkg/planir"
)

var mon = monkit.Package()

// Error is the error class for rewrite failures.
var Error = errs.Class("rewrite")

// Rewriter runs the equality-saturation pass of §4.3 against a fixed
// cube member catalogue. One Rewriter (and the e-graph it builds) is
// owned by a single query; it is never shared across goroutines.
type Rewriter struct {
	log   *zap.Logger
	cubes []CubeMeta
	cfg   Config

	replacersRemaining monkit.Meter
	budgetExhausted    monkit.Meter
}

// New returns a Rewriter resolving against cubes with cfg. MaxIterations,
// MaxSize and MaxTime left at zero fall back to DefaultConfig's values;
// the other fields are used as given (callers typically start from
// DefaultConfig()).
func New(log *zap.Logger, cubes []CubeMeta, cfg Config) *Rewriter {
	return &Rewriter{
		log:                log,
		cubes:              cubes,
		cfg:                cfg,
		replacersRemaining: *monkit.NewMeter("rewrite_replacers_remaining"),
		budgetExhausted:    *monkit.NewMeter("rewrite_budget_exhausted"),
	}
}

// Rewrite runs saturation over plan to a fixed point or budget, then
// extracts the minimum-cost result (§4.3.4). The caller is responsible
// for the DataFusion-fallback case named in §4.3.4's last sentence:
// inspect the returned plan for a remaining MemberReplacer or
// MemberPushdownReplacer node before handing it to a SQL generator.
func (r *Rewriter) Rewrite(ctx context.Context, plan planir.Node) (out planir.Node, err error) {
	defer mon.Task()(&ctx)(&err)

	g := egraph.New(r.analyzers()...)
	root := g.Add(plan)

	deadline := time.Now().Add(r.maxTime())
	iterations := 0
	for iterations < r.maxIterations() && g.Size() < r.maxSize() && time.Now().Before(deadline) {
		sizeBefore := g.Size()
		for _, rl := range catalogue {
			rl(g, r.cfg, r.cubes)
		}
		iterations++
		if g.Size() == sizeBefore {
			break
		}
	}
	mon.IntVal("rewrite_saturation_iterations").Observe(int64(iterations))
	if iterations >= r.maxIterations() || g.Size() >= r.maxSize() || !time.Now().Before(deadline) {
		r.budgetExhausted.Mark(1)
		r.log.Debug("rewrite saturation budget exhausted",
			zap.Int("iterations", iterations), zap.Int("egraph_size", g.Size()))
	}

	extracted, cost, err := g.Extract(root, costFn)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if c, ok := cost.(planCost); ok && c.hasReplacer {
		r.replacersRemaining.Mark(1)
	}
	return extracted, nil
}

// analyzers returns the egraph.Analyzer set the rewriter's classes
// need: a referenced-column tracker (soundness property §8.8) and a
// member-alias indexer over CubeScan member lists (§4.3.1's
// find_member_by_alias).
func (r *Rewriter) analyzers() []egraph.Analyzer {
	return []egraph.Analyzer{referencedExprAnalyzer, memberIndexAnalyzer}
}

func (r *Rewriter) maxIterations() int {
	if r.cfg.MaxIterations > 0 {
		return r.cfg.MaxIterations
	}
	return DefaultConfig().MaxIterations
}

func (r *Rewriter) maxSize() int {
	if r.cfg.MaxSize > 0 {
		return r.cfg.MaxSize
	}
	return DefaultConfig().MaxSize
}

func (r *Rewriter) maxTime() time.Duration {
	if r.cfg.MaxTime > 0 {
		return r.cfg.MaxTime
	}
	return DefaultConfig().MaxTime
}

// referencedExprAnalyzer tracks which column names reach a class, the
// data the project/aggregate push-down guards consult to decide
// whether every referenced column resolves against the current member
// list, and what the soundness property in §8.8 checks post-rewrite.
func referencedExprAnalyzer(node planir.Node, childAnalyses []*egraph.Analysis) egraph.Analysis {
	a := egraph.Analysis{ReferencedExpr: map[string]bool{}}
	if col, ok := node.(planir.Column); ok {
		a.ReferencedExpr[col.Name] = true
	}
	for _, ca := range childAnalyses {
		for k := range ca.ReferencedExpr {
			a.ReferencedExpr[k] = true
		}
	}
	return a
}

// memberIndexAnalyzer builds member_name_to_expr for CubeScan member
// lists (§4.3.1), so FindMemberByAlias works after push-down without
// re-walking the member list on every lookup.
func memberIndexAnalyzer(node planir.Node, childAnalyses []*egraph.Analysis) egraph.Analysis {
	a := egraph.Analysis{ReferencedExpr: map[string]bool{}}
	scan, ok := node.(planir.CubeScan)
	if !ok {
		return a
	}
	for _, m := range scan.Members {
		alias, ok := memberAlias(m)
		if ok {
			a.MemberNameToExpr = append(a.MemberNameToExpr, egraph.MemberEntry{Alias: alias, Member: m})
		}
	}
	return a
}

func memberAlias(m planir.Node) (string, bool) {
	switch v := m.(type) {
	case planir.Dimension:
		return v.Alias, true
	case planir.Measure:
		return v.Alias, true
	case planir.Segment:
		return v.Alias, true
	case planir.TimeDimension:
		return v.Alias, true
	case planir.LiteralMember:
		return v.Alias, true
	case planir.VirtualField:
		return v.Alias, true
	case planir.ChangeUser:
		return v.Alias, true
	default:
		return "", false
	}
}
