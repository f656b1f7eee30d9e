// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package planir

// WithChildren returns a copy of n with its children replaced by
// children, in the same order Children() enumerates them. It is the
// inverse of Children(), letting the e-graph decompose a node into a
// shape plus child references and recompose a concrete tree from
// independently-chosen child alternatives during extraction.
func WithChildren(n Node, children []Node) Node {
	next := func() Node {
		c := children[0]
		children = children[1:]
		return c
	}
	nextN := func(n int) []Node {
		c := children[:n]
		children = children[n:]
		return c
	}

	switch v := n.(type) {
	case TableScan:
		return v
	case Projection:
		v.Input = next()
		v.Exprs = nextN(len(children))
		return v
	case Filter:
		v.Input, v.Predicate = next(), next()
		return v
	case Aggregate:
		v.Input = next()
		rest := nextN(len(children))
		v.Group, v.Aggr = rest[:len(v.Group)], rest[len(v.Group):]
		return v
	case Join:
		v.Left, v.Right, v.Cond = next(), next(), next()
		return v
	case CrossJoin:
		v.Left, v.Right = next(), next()
		return v
	case Union:
		v.Inputs = nextN(len(children))
		return v
	case Limit:
		v.Input = next()
		return v
	case Sort:
		v.Input = next()
		v.Exprs = nextN(len(children))
		return v
	case Distinct:
		v.Input = next()
		return v
	case WrappedSelect:
		v.Input = next()
		return v
	case CubeScan:
		nMembers := len(v.Members)
		nFilters := len(v.Filters)
		v.Members = nextN(nMembers)
		v.Filters = nextN(nFilters)
		v.Orders = nextN(len(children))
		return v
	case AllMembers:
		return v
	case Dimension:
		return v
	case Measure:
		return v
	case Segment:
		return v
	case TimeDimension:
		return v
	case LiteralMember:
		lit := next()
		if l, ok := lit.(Literal); ok {
			v.Value = l
		}
		return v
	case VirtualField:
		v.Expr = next()
		return v
	case ChangeUser:
		v.User = next()
		return v
	case CaseMember:
		v.Expr = next()
		return v
	case MemberError:
		v.Expr = next()
		return v
	case MemberReplacer:
		v.Exprs = nextN(len(children))
		return v
	case MemberPushdownReplacer:
		rest := nextN(len(children))
		v.Exprs, v.OldMembers = rest[:len(v.Exprs)], rest[len(v.Exprs):]
		return v
	case ListConcatReplacer:
		v.Left, v.Right = next(), next()
		return v
	case CubeScanMembers:
		v.Members = nextN(len(children))
		return v
	case Column:
		return v
	case Literal:
		return v
	case Cast:
		v.Input = next()
		return v
	case Alias:
		v.Input = next()
		return v
	case AggregateFunction:
		v.Arg = next()
		return v
	case MeasureUDAF:
		v.Arg = next()
		return v
	case DateTrunc:
		v.Arg = next()
		return v
	case BinaryExpr:
		v.Left, v.Right = next(), next()
		return v
	case Like:
		v.Expr, v.Pattern = next(), next()
		return v
	case Mod:
		v.Left, v.Right = next(), next()
		return v
	default:
		return n
	}
}
