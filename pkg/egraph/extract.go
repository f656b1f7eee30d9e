// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package egraph

import "github.com/latticedb/lattice/pkg/planir"

// Cost orders two candidate extractions; Less reports whether the
// receiver should be preferred.
type Cost interface {
	Less(other Cost) bool
}

// CostFn computes one e-node's cost given its shape (children zeroed)
// and the already-extracted costs of its children, in the order
// planir.WithChildren expects them.
type CostFn func(shape planir.Node, childCosts []Cost) Cost

// Extract finds the minimum-cost concrete planir.Node reachable from
// root's class, recursively choosing the cheapest alternative in
// every child class (§4.3.4). An alternative that leads back to a
// class still being extracted (a rule that unions a class with an
// ancestor of itself) is skipped rather than looping forever; an
// error is returned only when a class has no viable alternative left.
func (g *EGraph) Extract(root ClassID, costFn CostFn) (planir.Node, Cost, error) {
	type result struct {
		node planir.Node
		cost Cost
	}
	memo := map[ClassID]result{}
	inProgress := map[ClassID]bool{}

	var extractClass func(id ClassID) (result, error)
	extractClass = func(id ClassID) (result, error) {
		id = g.Find(id)
		if r, ok := memo[id]; ok {
			return r, nil
		}
		if inProgress[id] {
			return result{}, Error.New("cycle detected extracting class %d", id)
		}
		inProgress[id] = true
		defer delete(inProgress, id)

		var best *result
		for _, alt := range g.Nodes(id) {
			children := make([]planir.Node, len(alt.Children))
			childCosts := make([]Cost, len(alt.Children))
			ok := true
			for i, cid := range alt.Children {
				r, err := extractClass(cid)
				if err != nil {
					ok = false
					break
				}
				children[i] = r.node
				childCosts[i] = r.cost
			}
			if !ok {
				continue
			}
			node := planir.WithChildren(alt.Shape, children)
			cost := costFn(alt.Shape, childCosts)
			if best == nil || cost.Less(best.cost) {
				best = &result{node: node, cost: cost}
			}
		}
		if best == nil {
			return result{}, Error.New("no viable e-node for class %d", id)
		}
		memo[id] = *best
		return *best, nil
	}

	r, err := extractClass(root)
	if err != nil {
		return nil, nil, err
	}
	return r.node, r.cost, nil
}
