// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package rewrite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/latticedb/lattice/pkg/planir"
)

func ordersCube() CubeMeta {
	return CubeMeta{
		Name:  "orders",
		Table: "orders",
		Dimensions: []DimensionMeta{
			{Name: "orders.id", Column: "id"},
			{Name: "orders.created_at", Column: "created_at"},
			{Name: "orders.__cubeJoinField", Column: "__cubeJoinField"},
		},
		Measures: []MeasureMeta{
			{Name: "orders.count", Column: "count", AggType: "count"},
			{Name: "orders.total", Column: "amount", AggType: "sum"},
		},
	}
}

func lineItemsCube() CubeMeta {
	return CubeMeta{
		Name:  "line_items",
		Table: "line_items",
		Dimensions: []DimensionMeta{
			{Name: "line_items.order_id", Column: "order_id"},
			{Name: "line_items.__cubeJoinField", Column: "__cubeJoinField"},
		},
		Measures: []MeasureMeta{
			{Name: "line_items.qty", Column: "qty", AggType: "sum"},
		},
	}
}

func int64p(v int64) *int64 { return &v }

// S6: date_trunc('month', orders.created_at) over a CubeScan becomes
// a TimeDimension member.
func TestRewriteDateTruncToTimeDimension(t *testing.T) {
	plan := planir.Projection{
		Exprs: []planir.Node{
			planir.DateTrunc{Granularity: "month", Arg: planir.Column{Name: "created_at"}},
		},
		Input: planir.TableScan{Table: "orders"},
	}

	r := New(zap.NewNop(), []CubeMeta{ordersCube()}, DefaultConfig())
	out, err := r.Rewrite(context.Background(), plan)
	require.NoError(t, err)

	scan, ok := out.(planir.CubeScan)
	require.True(t, ok, "expected a CubeScan, got %T", out)
	require.Len(t, scan.Members, 1)
	td, ok := scan.Members[0].(planir.TimeDimension)
	require.True(t, ok, "expected a TimeDimension member, got %T", scan.Members[0])
	require.Equal(t, "orders.created_at", td.Name)
	require.Equal(t, "month", td.Granularity)
}

// S7: outer LIMIT 10 OFFSET 2 over a CubeScan with limit=50 offset=5
// composes to limit=10, offset=7.
func TestRewriteLimitComposition(t *testing.T) {
	plan := planir.Limit{
		Skip:  2,
		Fetch: int64p(10),
		Input: planir.CubeScan{
			AliasToCube: []planir.AliasedCube{{Alias: "orders", Cube: "orders"}},
			Members:     []planir.Node{planir.AllMembers{Cube: "orders", Alias: "orders"}},
			Limit:       int64p(50),
			Offset:      int64p(5),
		},
	}

	r := New(zap.NewNop(), []CubeMeta{ordersCube()}, DefaultConfig())
	out, err := r.Rewrite(context.Background(), plan)
	require.NoError(t, err)

	scan, ok := out.(planir.CubeScan)
	require.True(t, ok, "expected a CubeScan, got %T", out)
	require.NotNil(t, scan.Limit)
	require.NotNil(t, scan.Offset)
	require.Equal(t, int64(10), *scan.Limit)
	require.Equal(t, int64(7), *scan.Offset)
}

// S5: two ungrouped, join-pushdownable CubeScans joined on
// __cubeJoinField fuse into one CubeScan whose join_hints end in
// [orders, line_items].
func TestRewriteJoinPushdown(t *testing.T) {
	left := planir.CubeScan{
		AliasToCube:     []planir.AliasedCube{{Alias: "orders", Cube: "orders"}},
		Members:         []planir.Node{planir.Dimension{Alias: "orders.id", Name: "orders.id"}},
		Ungrouped:       true,
		CanPushdownJoin: true,
	}
	right := planir.CubeScan{
		AliasToCube:     []planir.AliasedCube{{Alias: "line_items", Cube: "line_items"}},
		Members:         []planir.Node{planir.Dimension{Alias: "line_items.order_id", Name: "line_items.order_id"}},
		Ungrouped:       true,
		CanPushdownJoin: true,
	}
	plan := planir.Join{
		Left:  left,
		Right: right,
		Cond: planir.BinaryExpr{
			Left:  planir.Column{Relation: "orders", Name: "__cubeJoinField"},
			Right: planir.Column{Relation: "line_items", Name: "__cubeJoinField"},
			Op:    planir.OpEq,
		},
	}

	r := New(zap.NewNop(), []CubeMeta{ordersCube(), lineItemsCube()}, DefaultConfig())
	out, err := r.Rewrite(context.Background(), plan)
	require.NoError(t, err)

	scan, ok := out.(planir.CubeScan)
	require.True(t, ok, "expected a CubeScan, got %T", out)
	require.Len(t, scan.AliasToCube, 2)
	require.Len(t, scan.Members, 2)
	require.NotEmpty(t, scan.JoinHints)
	last := scan.JoinHints[len(scan.JoinHints)-1]
	require.Equal(t, planir.JoinHint{"orders", "line_items"}, last)
}

// Member resolution rejects an aggregate applied to a dimension,
// surfacing it as the highest-priority extracted MemberError rather
// than a Go error.
func TestRewriteAggregateOnDimensionIsMemberError(t *testing.T) {
	plan := planir.Aggregate{
		Group: nil,
		Aggr: []planir.Node{
			planir.AggregateFunction{Fn: "sum", Arg: planir.Column{Name: "created_at"}},
		},
		Input: planir.TableScan{Table: "orders"},
	}

	r := New(zap.NewNop(), []CubeMeta{ordersCube()}, DefaultConfig())
	out, err := r.Rewrite(context.Background(), plan)
	require.NoError(t, err)

	scan, ok := out.(planir.CubeScan)
	require.True(t, ok, "expected a CubeScan, got %T", out)
	require.Len(t, scan.Members, 1)
	me, ok := scan.Members[0].(planir.MemberError)
	require.True(t, ok, "expected a MemberError, got %T", scan.Members[0])
	require.Equal(t, 5, me.Priority)
}

// Property 7: rewriting the same plan twice against the same metadata
// produces byte-identical output.
func TestRewriteDeterminism(t *testing.T) {
	plan := planir.Projection{
		Exprs: []planir.Node{planir.Column{Name: "id"}},
		Input: planir.TableScan{Table: "orders"},
	}
	cubes := []CubeMeta{ordersCube()}

	r1 := New(zap.NewNop(), cubes, DefaultConfig())
	out1, err := r1.Rewrite(context.Background(), plan)
	require.NoError(t, err)

	r2 := New(zap.NewNop(), cubes, DefaultConfig())
	out2, err := r2.Rewrite(context.Background(), plan)
	require.NoError(t, err)

	require.Equal(t, out1, out2)
}

// Property 8: when a plan rewrites to a CubeScan push-down, the set of
// member aliases produced equals the set of columns the original
// top-level projection referenced.
func TestRewriteSoundnessProjectedColumnsPreserved(t *testing.T) {
	plan := planir.Projection{
		Exprs: []planir.Node{
			planir.Column{Name: "id"},
			planir.Alias{Input: planir.AggregateFunction{Fn: "sum", Arg: planir.Column{Name: "amount"}}, Name: "revenue"},
		},
		Input: planir.Aggregate{
			Group: []planir.Node{planir.Column{Name: "id"}},
			Aggr:  []planir.Node{planir.Alias{Input: planir.AggregateFunction{Fn: "sum", Arg: planir.Column{Name: "amount"}}, Name: "revenue"}},
			Input: planir.TableScan{Table: "orders"},
		},
	}

	r := New(zap.NewNop(), []CubeMeta{ordersCube()}, DefaultConfig())
	out, err := r.Rewrite(context.Background(), plan)
	require.NoError(t, err)

	scan, ok := out.(planir.CubeScan)
	require.True(t, ok, "expected a CubeScan, got %T", out)

	got := map[string]bool{}
	for _, m := range scan.Members {
		alias, ok := memberAlias(m)
		require.True(t, ok)
		got[alias] = true
	}
	require.True(t, got["orders.id"] || got["id"])
	require.True(t, got["revenue"])
}
