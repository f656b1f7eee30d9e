// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package rewrite

import (
	"fmt"
	"strings"

	"github.com/latticedb/lattice/pkg/egraph"
	"github.com/latticedb/lattice/pkg/planir"
)

// rule is one rewrite-catalogue family from §4.3.3. It sweeps every
// live class once and reports whether its pattern matched anywhere; a
// match that re-adds an e-node the graph already holds still reports
// true, so the saturation driver ignores this result and detects the
// fixed point by comparing g.Size() before and after a pass.
type rule func(g *egraph.EGraph, cfg Config, cubes []CubeMeta) bool

// catalogue lists every rule family the driver applies each pass, in
// the order they are most likely to unblock one another (seed before
// push-down, push-down before the expression-level rules that act on
// its members).
var catalogue = []rule{
	ruleSeed,
	ruleProjectPushdown,
	ruleAggregatePushdown,
	ruleLimitPushdown,
	ruleDistinct,
	ruleJoinPushdown,
	ruleCrossJoinPushdown,
	ruleLike,
	ruleMod,
	ruleListConcat,
}

// peek returns the most-rewritten concrete node reachable from id: the
// last e-node a class accumulated, with every child resolved the same
// way. Rewrite rules match against this view rather than running full
// e-matching over every alternative -- a deliberate simplification of
// equality saturation documented in DESIGN.md, justified because every
// rule here only ever adds a strictly-more-rewritten alternative on
// top of a class (never mutates in place), so "last added" already is
// "most rewritten so far" and earlier alternatives stay in the class
// for the cost-based extractor to fall back to.
func peek(g *egraph.EGraph, id egraph.ClassID) planir.Node {
	nodes := g.Nodes(id)
	if len(nodes) == 0 {
		return nil
	}
	return concreteOf(g, nodes[len(nodes)-1])
}

func concreteOf(g *egraph.EGraph, alt egraph.ENodeView) planir.Node {
	children := make([]planir.Node, len(alt.Children))
	for i, cid := range alt.Children {
		children[i] = peek(g, cid)
	}
	return planir.WithChildren(alt.Shape, children)
}

// shapeIs reports whether any e-node alternative in id's class has the
// given shape kind, used by rules that must not re-fire once a family
// already produced its result (e.g. Seed, once a CubeScan exists).
func shapeIs[T planir.Node](g *egraph.EGraph, id egraph.ClassID) bool {
	for _, alt := range g.Nodes(id) {
		if _, ok := alt.Shape.(T); ok {
			return true
		}
	}
	return false
}

// --- rule family 1: seed ---

func ruleSeed(g *egraph.EGraph, cfg Config, cubes []CubeMeta) bool {
	changed := false
	for _, c := range g.Classes() {
		id := c.ID()
		if shapeIs[planir.CubeScan](g, id) {
			continue
		}
		for _, alt := range g.Nodes(id) {
			ts, ok := alt.Shape.(planir.TableScan)
			if !ok {
				continue
			}
			if ts.HasFilter || ts.HasFetch || len(ts.Projection) > 0 {
				continue
			}
			cube, ok := FindCubeByTable(cubes, ts.Table)
			if !ok {
				continue
			}
			alias := ts.Table
			scan := planir.CubeScan{
				AliasToCube: []planir.AliasedCube{{Alias: alias, Cube: cube.Name}},
				Members:     []planir.Node{planir.AllMembers{Cube: cube.Name, Alias: alias}},
				Ungrouped:   cfg.Ungrouped,
			}
			g.AddEquivalent(id, scan)
			changed = true
		}
	}
	return changed
}

// --- rule family 2: project push-down ---

func ruleProjectPushdown(g *egraph.EGraph, cfg Config, cubes []CubeMeta) bool {
	changed := false
	for _, c := range g.Classes() {
		id := c.ID()
		for _, alt := range g.Nodes(id) {
			if _, ok := alt.Shape.(planir.Projection); !ok {
				continue
			}
			node, ok := concreteOf(g, alt).(planir.Projection)
			if !ok {
				continue
			}
			scan, ok := node.Input.(planir.CubeScan)
			if !ok {
				continue
			}
			cube, ok := cubeForScan(scan, cubes)
			if !ok {
				continue
			}
			members := resolveAll(node.Exprs, cube, scan.AliasToCube, cfg)
			g.AddEquivalent(id, planir.MemberPushdownReplacer{
				Exprs: node.Exprs, OldMembers: scan.Members, AliasToCube: scan.AliasToCube,
			})
			newScan := scan
			newScan.Members = members
			g.AddEquivalent(id, newScan)
			changed = true
		}
	}
	return changed
}

// --- rule family 3: aggregate push-down ---

func ruleAggregatePushdown(g *egraph.EGraph, cfg Config, cubes []CubeMeta) bool {
	changed := false
	for _, c := range g.Classes() {
		id := c.ID()
		for _, alt := range g.Nodes(id) {
			if _, ok := alt.Shape.(planir.Aggregate); !ok {
				continue
			}
			node, ok := concreteOf(g, alt).(planir.Aggregate)
			if !ok {
				continue
			}
			scan, ok := node.Input.(planir.CubeScan)
			if !ok {
				continue
			}
			if scan.Limit != nil || scan.Offset != nil {
				continue
			}
			if scan.Ungrouped && filtersReferenceMeasure(scan.Filters) {
				continue
			}
			cube, ok := cubeForScan(scan, cubes)
			if !ok {
				continue
			}
			group := resolveAll(node.Group, cube, scan.AliasToCube, cfg)
			aggr := resolveAll(node.Aggr, cube, scan.AliasToCube, cfg)
			g.AddEquivalent(id, planir.MemberPushdownReplacer{
				Exprs:       append(append([]planir.Node{}, node.Group...), node.Aggr...),
				OldMembers:  scan.Members,
				AliasToCube: scan.AliasToCube,
			})
			newScan := scan
			newScan.Members = append(group, aggr...)
			newScan.Ungrouped = false
			g.AddEquivalent(id, newScan)
			changed = true
		}
	}
	return changed
}

func filtersReferenceMeasure(filters []planir.Node) bool {
	for _, f := range filters {
		if containsMeasure(f) {
			return true
		}
	}
	return false
}

func containsMeasure(n planir.Node) bool {
	if n == nil {
		return false
	}
	if _, ok := n.(planir.Measure); ok {
		return true
	}
	for _, c := range n.Children() {
		if containsMeasure(c) {
			return true
		}
	}
	return false
}

// --- rule family 4: limit push-down ---

func ruleLimitPushdown(g *egraph.EGraph, cfg Config, cubes []CubeMeta) bool {
	changed := false
	for _, c := range g.Classes() {
		id := c.ID()
		for _, alt := range g.Nodes(id) {
			if _, ok := alt.Shape.(planir.Limit); !ok {
				continue
			}
			node, ok := concreteOf(g, alt).(planir.Limit)
			if !ok {
				continue
			}
			scan, ok := node.Input.(planir.CubeScan)
			if !ok {
				continue
			}
			innerSkip := int64(0)
			if scan.Offset != nil {
				innerSkip = *scan.Offset
			}
			skip := node.Skip + innerSkip
			var fetch *int64
			switch {
			case node.Fetch != nil && scan.Limit != nil:
				f := *node.Fetch
				if rem := *scan.Limit - node.Skip; rem < f {
					f = rem
				}
				fetch = &f
			case node.Fetch != nil:
				f := *node.Fetch
				fetch = &f
			case scan.Limit != nil:
				f := *scan.Limit - node.Skip
				fetch = &f
			}
			if max := cfg.NonStreamingQueryMaxRowLimit; !cfg.StreamMode && max > 0 && fetch != nil && *fetch > max {
				*fetch = max
			}
			if fetch != nil && *fetch == 0 {
				continue
			}
			newScan := scan
			newScan.Offset = &skip
			newScan.Limit = fetch
			g.AddEquivalent(id, newScan)
			changed = true
		}
	}
	return changed
}

// --- rule family 5: distinct -> ungrouped=false ---

func ruleDistinct(g *egraph.EGraph, cfg Config, cubes []CubeMeta) bool {
	changed := false
	for _, c := range g.Classes() {
		id := c.ID()
		for _, alt := range g.Nodes(id) {
			if _, ok := alt.Shape.(planir.Distinct); !ok {
				continue
			}
			node, ok := concreteOf(g, alt).(planir.Distinct)
			if !ok {
				continue
			}
			scan, ok := node.Input.(planir.CubeScan)
			if !ok || !scan.Ungrouped {
				continue
			}
			if !distinctAllowed(scan, cubes) {
				continue
			}
			newScan := scan
			newScan.Ungrouped = false
			g.AddEquivalent(id, newScan)
			changed = true
		}
	}
	return changed
}

func distinctAllowed(scan planir.CubeScan, cubes []CubeMeta) bool {
	hasAllMembers := false
	for _, m := range scan.Members {
		if _, ok := m.(planir.AllMembers); ok {
			hasAllMembers = true
		}
	}
	if hasAllMembers {
		for _, ac := range scan.AliasToCube {
			cube, ok := findCubeByName(cubes, ac.Cube)
			if !ok || cube.hasMeasures() || cube.hasSegments() {
				return false
			}
		}
		return true
	}
	for _, m := range scan.Members {
		switch m.(type) {
		case planir.Dimension, planir.VirtualField, planir.LiteralMember:
		default:
			return false
		}
	}
	return true
}

func findCubeByName(cubes []CubeMeta, name string) (CubeMeta, bool) {
	for _, c := range cubes {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return CubeMeta{}, false
}

// --- rule family 9/10: join and cross-join push-down ---

func ruleJoinPushdown(g *egraph.EGraph, cfg Config, cubes []CubeMeta) bool {
	changed := false
	for _, c := range g.Classes() {
		id := c.ID()
		for _, alt := range g.Nodes(id) {
			if _, ok := alt.Shape.(planir.Join); !ok {
				continue
			}
			node, ok := concreteOf(g, alt).(planir.Join)
			if !ok {
				continue
			}
			left, ok1 := node.Left.(planir.CubeScan)
			right, ok2 := node.Right.(planir.CubeScan)
			if !ok1 || !ok2 {
				continue
			}
			if !left.Ungrouped || !right.Ungrouped || !left.CanPushdownJoin || !right.CanPushdownJoin {
				continue
			}
			if left.Limit != nil || left.Offset != nil || right.Limit != nil || right.Offset != nil {
				continue
			}
			if !matchesCubeJoinField(node.Cond) {
				continue
			}
			merged := left
			merged.AliasToCube = append(append([]planir.AliasedCube{}, left.AliasToCube...), right.AliasToCube...)
			merged.Members = append(append([]planir.Node{}, left.Members...), right.Members...)
			merged.Filters = append(append([]planir.Node{}, left.Filters...), right.Filters...)
			merged.JoinHints = append(append([]planir.JoinHint{}, left.JoinHints...), planir.JoinHint{lastCube(left), firstCube(right)})
			g.AddEquivalent(id, merged)
			changed = true
		}
	}
	return changed
}

func ruleCrossJoinPushdown(g *egraph.EGraph, cfg Config, cubes []CubeMeta) bool {
	changed := false
	for _, c := range g.Classes() {
		id := c.ID()
		for _, alt := range g.Nodes(id) {
			if _, ok := alt.Shape.(planir.CrossJoin); !ok {
				continue
			}
			node, ok := concreteOf(g, alt).(planir.CrossJoin)
			if !ok {
				continue
			}
			left, ok1 := node.Left.(planir.CubeScan)
			right, ok2 := node.Right.(planir.CubeScan)
			if !ok1 || !ok2 {
				continue
			}
			if !left.CanPushdownJoin || !right.CanPushdownJoin {
				continue
			}
			if left.Limit != nil || left.Offset != nil || right.Limit != nil || right.Offset != nil {
				continue
			}
			merged := left
			merged.AliasToCube = append(append([]planir.AliasedCube{}, left.AliasToCube...), right.AliasToCube...)
			merged.Members = append(append([]planir.Node{}, left.Members...), right.Members...)
			merged.Filters = append(append([]planir.Node{}, left.Filters...), right.Filters...)
			merged.JoinHints = append(append([]planir.JoinHint{}, left.JoinHints...), planir.JoinHint{lastCube(left), firstCube(right)})
			merged.Ungrouped = left.Ungrouped && right.Ungrouped
			g.AddEquivalent(id, merged)
			changed = true
		}
	}
	return changed
}

func matchesCubeJoinField(cond planir.Node) bool {
	bin, ok := cond.(planir.BinaryExpr)
	if !ok || bin.Op != planir.OpEq {
		return false
	}
	l, ok1 := bin.Left.(planir.Column)
	r, ok2 := bin.Right.(planir.Column)
	return ok1 && ok2 && l.Name == "__cubeJoinField" && r.Name == "__cubeJoinField"
}

func lastCube(scan planir.CubeScan) string {
	if n := len(scan.JoinHints); n > 0 {
		if h := scan.JoinHints[n-1]; len(h) > 0 {
			return h[len(h)-1]
		}
	}
	return firstCube(scan)
}

func firstCube(scan planir.CubeScan) string {
	if len(scan.AliasToCube) > 0 {
		return scan.AliasToCube[0].Cube
	}
	return ""
}

// --- rule family 11: LIKE -> BinaryExpr ---

func ruleLike(g *egraph.EGraph, cfg Config, cubes []CubeMeta) bool {
	changed := false
	for _, c := range g.Classes() {
		id := c.ID()
		for _, alt := range g.Nodes(id) {
			if _, ok := alt.Shape.(planir.Like); !ok {
				continue
			}
			node, ok := concreteOf(g, alt).(planir.Like)
			if !ok || node.Escape != nil {
				continue
			}
			g.AddEquivalent(id, planir.BinaryExpr{Left: node.Expr, Right: node.Pattern, Op: likeOp(node.CaseInsensitive, node.Negated)})
			changed = true
		}
	}
	return changed
}

func likeOp(caseInsensitive, negated bool) planir.BinaryOp {
	switch {
	case !caseInsensitive && !negated:
		return planir.OpLike
	case !caseInsensitive && negated:
		return planir.OpNotLike
	case caseInsensitive && !negated:
		return planir.OpILike
	default:
		return planir.OpNotILike
	}
}

// --- rule family 12: MOD -> % ---

func ruleMod(g *egraph.EGraph, cfg Config, cubes []CubeMeta) bool {
	changed := false
	for _, c := range g.Classes() {
		id := c.ID()
		for _, alt := range g.Nodes(id) {
			if _, ok := alt.Shape.(planir.Mod); !ok {
				continue
			}
			node, ok := concreteOf(g, alt).(planir.Mod)
			if !ok {
				continue
			}
			var result planir.Node = planir.BinaryExpr{Left: node.Left, Right: node.Right, Op: planir.OpMod}
			if node.Alias != "" {
				result = planir.Alias{Input: result, Name: node.Alias}
			}
			g.AddEquivalent(id, result)
			changed = true
		}
	}
	return changed
}

// --- rule family 13: list-concat bridge ---

func ruleListConcat(g *egraph.EGraph, cfg Config, cubes []CubeMeta) bool {
	changed := false
	for _, c := range g.Classes() {
		id := c.ID()
		for _, alt := range g.Nodes(id) {
			if _, ok := alt.Shape.(planir.ListConcatReplacer); !ok {
				continue
			}
			node, ok := concreteOf(g, alt).(planir.ListConcatReplacer)
			if !ok {
				continue
			}
			left, leftFlat := flattenMembers(node.Left)
			right, rightFlat := flattenMembers(node.Right)
			if !leftFlat && !rightFlat {
				continue
			}
			g.AddEquivalent(id, planir.CubeScanMembers{Members: append(append([]planir.Node{}, left...), right...)})
			changed = true
		}
	}
	return changed
}

func flattenMembers(n planir.Node) ([]planir.Node, bool) {
	switch v := n.(type) {
	case planir.CubeScanMembers:
		return v.Members, true
	case planir.ListConcatReplacer:
		l, _ := flattenMembers(v.Left)
		r, _ := flattenMembers(v.Right)
		return append(l, r...), true
	default:
		return []planir.Node{n}, false
	}
}

// --- rule family 6/7/8: member resolution, date-trunc, alias remap ---
//
// These three families are folded into one recursive function rather
// than three separate e-graph rules: §4.3.3(6) dispatches on the
// expression shape, (7) is one of that dispatch's cases (date_trunc),
// and (8) is the alias bookkeeping every case threads through, so
// splitting them into independent rules would need to re-derive the
// same shape dispatch three times.

func cubeForScan(scan planir.CubeScan, cubes []CubeMeta) (CubeMeta, bool) {
	return findCubeByName(cubes, firstCube(scan))
}

func resolveAll(exprs []planir.Node, cube CubeMeta, aliasToCube []planir.AliasedCube, cfg Config) []planir.Node {
	out := make([]planir.Node, len(exprs))
	for i, e := range exprs {
		out[i] = resolveMember(e, "", cube, aliasToCube, cfg)
	}
	return out
}

func resolveMember(expr planir.Node, alias string, cube CubeMeta, aliasToCube []planir.AliasedCube, cfg Config) planir.Node {
	switch e := expr.(type) {
	case planir.Column:
		return resolveColumnLike(e.Name, alias, cube, aliasToCube, expr)
	case planir.Alias:
		return resolveMember(e.Input, e.Name, cube, aliasToCube, cfg)
	case planir.Cast:
		if !isTrivialCast(e.DataType) {
			return memberError(fmt.Sprintf("cannot remove non-trivial cast to %s", e.DataType), 10, expr, aliasToCube)
		}
		return resolveMember(e.Input, alias, cube, aliasToCube, cfg)
	case planir.AggregateFunction:
		return resolveAggregate(e, alias, cube, aliasToCube, cfg)
	case planir.MeasureUDAF:
		col, ok := extractColumnName(e.Arg)
		if !ok {
			return memberError("MEASURE() requires a column argument", 45, expr, aliasToCube)
		}
		m, ok := cube.measure(col)
		if !ok {
			return memberError(fmt.Sprintf("cannot resolve measure %q", col), 40, expr, aliasToCube)
		}
		return planir.Measure{Alias: aliasOr(alias, m.Name), Name: m.Name, AggType: m.AggType}
	case planir.DateTrunc:
		return resolveDateTrunc(e, alias, cube, aliasToCube, cfg)
	case planir.Literal:
		return planir.LiteralMember{Alias: alias, Value: e}
	default:
		return memberError("unsupported expression in member position", 60, expr, aliasToCube)
	}
}

func resolveColumnLike(name, alias string, cube CubeMeta, aliasToCube []planir.AliasedCube, expr planir.Node) planir.Node {
	if d, ok := cube.dimension(name); ok {
		return planir.Dimension{Alias: aliasOr(alias, d.Name), Name: d.Name}
	}
	if m, ok := cube.measure(name); ok {
		return planir.Measure{Alias: aliasOr(alias, m.Name), Name: m.Name, AggType: m.AggType}
	}
	for _, s := range cube.Segments {
		if strings.EqualFold(s, name) {
			return planir.Segment{Alias: aliasOr(alias, name), Name: name}
		}
	}
	return memberError(fmt.Sprintf("cannot resolve column %q against cube %q", name, cube.Name), 40, expr, aliasToCube)
}

func resolveAggregate(e planir.AggregateFunction, alias string, cube CubeMeta, aliasToCube []planir.AliasedCube, cfg Config) planir.Node {
	if isCountLiteral(e) {
		for _, m := range cube.Measures {
			if strings.EqualFold(m.AggType, "count") {
				return planir.Measure{Alias: aliasOr(alias, m.Name), Name: m.Name, AggType: m.AggType}
			}
		}
		return memberError(fmt.Sprintf("cube %q declares no count measure", cube.Name), 30, e, aliasToCube)
	}
	unwrapped, trivial := unwrapCast(e.Arg)
	if !trivial {
		return memberError("cannot remove non-trivial cast inside aggregate argument", 10, e, aliasToCube)
	}
	col, ok := extractColumnName(unwrapped)
	if !ok {
		return memberError("aggregate argument must be a column", 55, e, aliasToCube)
	}
	if _, ok := cube.dimension(col); ok {
		return memberError(fmt.Sprintf("%q is a dimension; use a measure instead", col), 5, e, aliasToCube)
	}
	m, ok := cube.measure(col)
	if !ok {
		return memberError(fmt.Sprintf("cannot resolve column %q against cube %q", col, cube.Name), 40, e, aliasToCube)
	}
	if !cfg.DisableStrictAggTypeMatch && !strings.EqualFold(aggFnToType(e), m.AggType) {
		return memberError(fmt.Sprintf("aggregation type mismatch for measure %q", m.Name), 15, e, aliasToCube)
	}
	return planir.Measure{Alias: aliasOr(alias, m.Name), Name: m.Name, AggType: m.AggType}
}

var granNames = map[planir.Granularity]string{
	planir.GranYear:    "year",
	planir.GranQuarter: "quarter",
	planir.GranMonth:   "month",
	planir.GranWeek:    "week",
	planir.GranDay:     "day",
	planir.GranHour:    "hour",
	planir.GranMinute:  "minute",
	planir.GranSecond:  "second",
}

func resolveDateTrunc(e planir.DateTrunc, alias string, cube CubeMeta, aliasToCube []planir.AliasedCube, cfg Config) planir.Node {
	if nested, ok := e.Arg.(planir.DateTrunc); ok {
		combined, _ := planir.Finer(planir.ParseGranularity(e.Granularity), planir.ParseGranularity(nested.Granularity))
		return resolveDateTrunc(planir.DateTrunc{Granularity: granNames[combined], Arg: nested.Arg}, alias, cube, aliasToCube, cfg)
	}
	col, ok := extractColumnName(e.Arg)
	if !ok {
		return memberError("date_trunc requires a column argument", 45, e, aliasToCube)
	}
	d, ok := cube.dimension(col)
	if !ok {
		return memberError(fmt.Sprintf("cannot resolve column %q against cube %q", col, cube.Name), 40, e, aliasToCube)
	}
	return planir.TimeDimension{Alias: aliasOr(alias, d.Name), Name: d.Name, Granularity: e.Granularity}
}

func extractColumnName(n planir.Node) (string, bool) {
	switch v := n.(type) {
	case planir.Column:
		return v.Name, true
	case planir.Cast:
		return extractColumnName(v.Input)
	default:
		return "", false
	}
}

func unwrapCast(n planir.Node) (planir.Node, bool) {
	for {
		c, ok := n.(planir.Cast)
		if !ok {
			return n, true
		}
		if !isTrivialCast(c.DataType) {
			return nil, false
		}
		n = c.Input
	}
}

func isTrivialCast(dataType string) bool {
	return strings.Contains(dataType, "Utf8") || strings.Contains(dataType, "Decimal")
}

func isCountLiteral(e planir.AggregateFunction) bool {
	if !strings.EqualFold(e.Fn, "count") {
		return false
	}
	_, ok := e.Arg.(planir.Literal)
	return ok
}

func aggFnToType(e planir.AggregateFunction) string {
	fn := strings.ToLower(e.Fn)
	if fn == "count" && e.Distinct {
		return "countDistinct"
	}
	return fn
}

func aliasOr(alias, fallback string) string {
	if alias != "" {
		return alias
	}
	return fallback
}

func memberError(message string, priority int, expr planir.Node, aliasToCube []planir.AliasedCube) planir.Node {
	return planir.MemberError{Message: message, Priority: priority, Expr: expr, AliasToCube: aliasToCube}
}
