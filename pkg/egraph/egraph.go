// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

// Package egraph implements the equivalence-graph structure Core B's
// saturation and extraction run over (§4.3.1): hashconsed e-nodes
// grouped into union-find e-classes, each carrying the per-class
// analysis data the rewrite catalogue consults (referenced columns,
// the member-alias index, folded constants).
//
// No Go port of egg (the Rust e-graph library storj's corpus has no
// equivalent of) exists in the ecosystem, so the structural
// hashconsing here is hand-rolled rather than borrowed from a
// third-party library -- see DESIGN.md.
package egraph

import (
	"fmt"

	"github.com/zeebo/errs"

	"github.com/latticedb/lattice/pkg/planir"
)

// Error is the error class for e-graph failures.
var Error = errs.Class("egraph")

// ClassID identifies an e-class. Zero is never a valid id.
type ClassID int

// MemberEntry is one (alias, member, class) triple of a class's
// member_name_to_expr index.
type MemberEntry struct {
	Alias  string
	Member planir.Node
	Class  ClassID
}

// Analysis holds the per-eclass auxiliary data named in §4.3.1.
type Analysis struct {
	ReferencedExpr   map[string]bool
	MemberNameToExpr []MemberEntry
	Constant         *planir.Literal
	IsEmptyList      bool
	FilterOperators  []planir.Node
	OriginalExpr     planir.Node
}

func newAnalysis() *Analysis {
	return &Analysis{ReferencedExpr: map[string]bool{}}
}

// merge folds other into a, the union-time analysis combination: set
// union on referenced columns, ordered-append-deduplicated on the
// member index, first-wins on every singleton field.
func (a *Analysis) merge(other *Analysis) {
	for k := range other.ReferencedExpr {
		a.ReferencedExpr[k] = true
	}
	seen := map[string]bool{}
	for _, e := range a.MemberNameToExpr {
		seen[e.Alias] = true
	}
	for _, e := range other.MemberNameToExpr {
		if !seen[e.Alias] {
			a.MemberNameToExpr = append(a.MemberNameToExpr, e)
			seen[e.Alias] = true
		}
	}
	if a.Constant == nil {
		a.Constant = other.Constant
	}
	a.IsEmptyList = a.IsEmptyList || other.IsEmptyList
	a.FilterOperators = append(a.FilterOperators, other.FilterOperators...)
	if a.OriginalExpr == nil {
		a.OriginalExpr = other.OriginalExpr
	}
}

// enode is a hashconsed node shape: a planir.Node with its children
// zeroed out (via planir.WithChildren) plus the child classes it
// actually points to.
type enode struct {
	shape    planir.Node
	children []ClassID
}

func (e enode) key() string {
	return fmt.Sprintf("%s|%#v|%v", e.shape.Kind(), e.shape, e.children)
}

// EClass is one equivalence class: a set of interchangeable e-nodes
// plus their shared analysis.
type EClass struct {
	id       ClassID
	nodes    []enode
	analysis *Analysis
}

func (c *EClass) ID() ClassID { return c.id }

// FindMemberByAlias implements §4.3.1's analysis accessor.
func (c *EClass) FindMemberByAlias(alias string) (planir.Node, bool) {
	for _, e := range c.analysis.MemberNameToExpr {
		if e.Alias == alias {
			return e.Member, true
		}
	}
	return nil, false
}

func (c *EClass) ReferencedExpr() map[string]bool { return c.analysis.ReferencedExpr }
func (c *EClass) MemberNameToExpr() []MemberEntry { return c.analysis.MemberNameToExpr }
func (c *EClass) Constant() *planir.Literal       { return c.analysis.Constant }
func (c *EClass) IsEmptyList() bool               { return c.analysis.IsEmptyList }
func (c *EClass) FilterOperators() []planir.Node  { return c.analysis.FilterOperators }
func (c *EClass) OriginalExpr() planir.Node       { return c.analysis.OriginalExpr }

// EGraph is owned by a single rewriter run; per §5 it is never shared
// concurrently.
type EGraph struct {
	classes   map[ClassID]*EClass
	uf        map[ClassID]ClassID
	hashcons  map[string]ClassID
	nextID    ClassID
	analyzers []Analyzer
}

// Analyzer computes a class's Analysis from its chosen canonical node
// and the analyses of its already-added children, letting the
// rewriter register domain-specific analyses (column references,
// member indexing) without the e-graph knowing about planir shapes.
type Analyzer func(node planir.Node, childAnalyses []*Analysis) Analysis

// New returns an empty e-graph using the given analyzers, run in
// registration order and merged into one Analysis per class.
func New(analyzers ...Analyzer) *EGraph {
	return &EGraph{
		classes:   map[ClassID]*EClass{},
		uf:        map[ClassID]ClassID{},
		hashcons:  map[string]ClassID{},
		analyzers: analyzers,
	}
}

// Add inserts node (recursively adding its children) and returns its
// canonical class id, reusing an existing class if an equal e-node is
// already hashconsed.
func (g *EGraph) Add(node planir.Node) ClassID {
	kids := node.Children()
	childIDs := make([]ClassID, len(kids))
	childAnalyses := make([]*Analysis, len(kids))
	placeholders := make([]planir.Node, len(kids))
	for i, k := range kids {
		cid := g.Add(k)
		childIDs[i] = g.Find(cid)
		childAnalyses[i] = g.classes[childIDs[i]].analysis
	}
	shape := planir.WithChildren(node, placeholders)

	e := enode{shape: shape, children: childIDs}
	key := e.key()
	if id, ok := g.hashcons[key]; ok {
		return g.Find(id)
	}

	g.nextID++
	id := g.nextID
	analysis := newAnalysis()
	for _, fn := range g.analyzers {
		a := fn(node, childAnalyses)
		analysis.merge(&a)
	}
	g.classes[id] = &EClass{id: id, nodes: []enode{e}, analysis: analysis}
	g.uf[id] = id
	g.hashcons[key] = id
	return id
}

// AddEquivalent records that node is equivalent to the class into,
// the mechanism rewrite rules use to grow a class without discarding
// its prior alternatives (e.g. TableScan and the CubeScan it seeds
// from both remain in the same class until extraction chooses one).
func (g *EGraph) AddEquivalent(into ClassID, node planir.Node) ClassID {
	id := g.Add(node)
	return g.Union(into, id)
}

// Find resolves a (possibly stale) class id to its current canonical
// id, with path compression.
func (g *EGraph) Find(id ClassID) ClassID {
	root := id
	for g.uf[root] != root {
		root = g.uf[root]
	}
	for g.uf[id] != root {
		g.uf[id], id = root, g.uf[id]
	}
	return root
}

// Union merges two classes, returning the surviving canonical id.
func (g *EGraph) Union(a, b ClassID) ClassID {
	ra, rb := g.Find(a), g.Find(b)
	if ra == rb {
		return ra
	}
	ca, cb := g.classes[ra], g.classes[rb]
	ca.nodes = append(ca.nodes, cb.nodes...)
	ca.analysis.merge(cb.analysis)
	g.uf[rb] = ra
	delete(g.classes, rb)
	return ra
}

// Class returns the e-class for id, resolving through Find first.
func (g *EGraph) Class(id ClassID) *EClass {
	return g.classes[g.Find(id)]
}

// Classes returns every live e-class, for the saturation driver's
// per-iteration rule sweep.
func (g *EGraph) Classes() []*EClass {
	out := make([]*EClass, 0, len(g.classes))
	for _, c := range g.classes {
		out = append(out, c)
	}
	return out
}

// Size returns the total number of distinct e-nodes across all live
// classes, the "max e-graph size" saturation budget in §4.3.4.
func (g *EGraph) Size() int {
	n := 0
	for _, c := range g.classes {
		n += len(c.nodes)
	}
	return n
}

// ENodeView is a read-only view of one e-node alternative.
type ENodeView struct {
	Shape    planir.Node
	Children []ClassID
}

// Nodes returns the alternatives stored for id's class, decomposed
// back into their own (shape, children) form for extraction.
func (g *EGraph) Nodes(id ClassID) []ENodeView {
	c := g.Class(id)
	out := make([]ENodeView, len(c.nodes))
	for i, e := range c.nodes {
		out[i] = ENodeView{Shape: e.shape, Children: e.children}
	}
	return out
}
