// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

// Package planir defines the logical plan IR Core B rewrites: relational
// nodes (TableScan, Projection, Filter, Aggregate, Join, ...), the
// CubeScan node and its member vocabulary, and the expression shapes the
// member-resolution rules recognise.
package planir

// Node is one node of a logical plan or expression tree. Relational
// nodes and expression nodes share the interface; Children lets the
// e-graph and rewrite rules walk either uniformly.
type Node interface {
	Kind() string
	Children() []Node
}

// Granularity is a date_trunc unit, ordered coarsest to finest for the
// granularity lattice used by rule family 7.
type Granularity int

const (
	GranUnknown Granularity = iota
	GranYear
	GranQuarter
	GranMonth
	GranWeek
	GranDay
	GranHour
	GranMinute
	GranSecond
)

// granAliases normalises the alternate spellings the original allows
// before lattice comparison.
var granAliases = map[string]Granularity{
	"year": GranYear, "yr": GranYear,
	"quarter": GranQuarter, "qtr": GranQuarter,
	"month": GranMonth, "mon": GranMonth,
	"week": GranWeek, "wk": GranWeek,
	"day": GranDay,
	"hour": GranHour,
	"minute": GranMinute, "min": GranMinute,
	"second": GranSecond, "sec": GranSecond,
}

// ParseGranularity normalises a date_trunc unit name to its lattice
// value, honouring the week/wk and quarter/qtr aliases named in
// rule family 7.
func ParseGranularity(name string) Granularity {
	if g, ok := granAliases[name]; ok {
		return g
	}
	return GranUnknown
}

// Finer returns the finer (more granular) of a and b; week combined
// with month yields day. The boolean result is always true.
func Finer(a, b Granularity) (Granularity, bool) {
	if a == GranUnknown {
		return b, true
	}
	if b == GranUnknown {
		return a, true
	}
	if (a == GranWeek && b == GranMonth) || (a == GranMonth && b == GranWeek) {
		return GranDay, true
	}
	if a > b {
		return a, true
	}
	return b, true
}

// --- relational nodes ---

// TableScan is a leaf reading a named base table.
type TableScan struct {
	Table      string
	Projection []string // nil means "all columns"
	HasFilter  bool
	HasFetch   bool
}

func (n TableScan) Kind() string     { return "TableScan" }
func (n TableScan) Children() []Node { return nil }

// Projection computes Exprs over Input.
type Projection struct {
	Exprs []Node
	Input Node
}

func (n Projection) Kind() string     { return "Projection" }
func (n Projection) Children() []Node { return append([]Node{n.Input}, n.Exprs...) }

// Filter applies Predicate to Input's rows.
type Filter struct {
	Predicate Node
	Input     Node
}

func (n Filter) Kind() string     { return "Filter" }
func (n Filter) Children() []Node { return []Node{n.Input, n.Predicate} }

// Aggregate groups Input by Group and computes Aggr.
type Aggregate struct {
	Group []Node
	Aggr  []Node
	Input Node
}

func (n Aggregate) Kind() string     { return "Aggregate" }
func (n Aggregate) Children() []Node { return append(append([]Node{n.Input}, n.Group...), n.Aggr...) }

// Join combines Left and Right on Cond.
type Join struct {
	Left, Right Node
	Cond        Node
}

func (n Join) Kind() string     { return "Join" }
func (n Join) Children() []Node { return []Node{n.Left, n.Right, n.Cond} }

// CrossJoin combines Left and Right with no condition.
type CrossJoin struct{ Left, Right Node }

func (n CrossJoin) Kind() string     { return "CrossJoin" }
func (n CrossJoin) Children() []Node { return []Node{n.Left, n.Right} }

// Union concatenates Inputs.
type Union struct{ Inputs []Node }

func (n Union) Kind() string     { return "Union" }
func (n Union) Children() []Node { return n.Inputs }

// Limit applies Skip/Fetch to Input; nil Fetch means unbounded.
type Limit struct {
	Skip  int64
	Fetch *int64
	Input Node
}

func (n Limit) Kind() string     { return "Limit" }
func (n Limit) Children() []Node { return []Node{n.Input} }

// Sort orders Input by Exprs.
type Sort struct {
	Exprs []Node
	Input Node
}

func (n Sort) Kind() string     { return "Sort" }
func (n Sort) Children() []Node { return append([]Node{n.Input}, n.Exprs...) }

// Distinct deduplicates Input's rows.
type Distinct struct{ Input Node }

func (n Distinct) Kind() string     { return "Distinct" }
func (n Distinct) Children() []Node { return []Node{n.Input} }

// WrappedSelect wraps a plan the rewriter could not fully push down
// into a CubeScan, carrying the residual SQL-shaped wrapper.
type WrappedSelect struct {
	Input Node
}

func (n WrappedSelect) Kind() string     { return "WrappedSelect" }
func (n WrappedSelect) Children() []Node { return []Node{n.Input} }

// --- CubeScan and its member vocabulary (§4.3.2) ---

// AliasedCube pairs a query alias with a cube name.
type AliasedCube struct {
	Alias string
	Cube  string
}

// JoinHint is one ordered pair of cubes joined to form a scan
// (§4.3.2 point 5; extended by rule families 9/10).
type JoinHint []string

// CubeScan represents a query pushed down to the upstream cube data
// source.
type CubeScan struct {
	AliasToCube     []AliasedCube
	Members         []Node // AllMembers, or Dimension/Measure/Segment/TimeDimension/LiteralMember/VirtualField/ChangeUser
	Filters         []Node
	Orders          []Node
	Limit           *int64
	Offset          *int64
	Split           bool
	CanPushdownJoin bool
	Wrapped         bool
	Ungrouped       bool
	JoinHints       []JoinHint
}

func (n CubeScan) Kind() string { return "CubeScan" }
func (n CubeScan) Children() []Node {
	out := append([]Node{}, n.Members...)
	out = append(out, n.Filters...)
	out = append(out, n.Orders...)
	return out
}

// AllMembers is the virtual "every member of cube, under alias"
// member list.
type AllMembers struct {
	Cube  string
	Alias string
}

func (n AllMembers) Kind() string     { return "AllMembers" }
func (n AllMembers) Children() []Node { return nil }

// Dimension is a resolved dimension member reference.
type Dimension struct {
	Alias string
	Name  string
}

func (n Dimension) Kind() string     { return "Dimension" }
func (n Dimension) Children() []Node { return nil }

// Measure is a resolved measure member reference, AggType naming the
// measure's declared aggregation ("sum", "count", "countDistinct", ...).
type Measure struct {
	Alias   string
	Name    string
	AggType string
}

func (n Measure) Kind() string     { return "Measure" }
func (n Measure) Children() []Node { return nil }

// Segment is a resolved boolean segment member reference.
type Segment struct {
	Alias string
	Name  string
}

func (n Segment) Kind() string     { return "Segment" }
func (n Segment) Children() []Node { return nil }

// TimeDimension is a dimension sliced by a date_trunc granularity,
// the target of rule family 7.
type TimeDimension struct {
	Alias       string
	Name        string
	Granularity string
	DateRange   [2]string // empty strings mean unbounded
}

func (n TimeDimension) Kind() string     { return "TimeDimension" }
func (n TimeDimension) Children() []Node { return nil }

// LiteralMember wraps a constant projected alongside real members.
type LiteralMember struct {
	Alias string
	Value Literal
}

func (n LiteralMember) Kind() string     { return "LiteralMember" }
func (n LiteralMember) Children() []Node { return []Node{n.Value} }

// VirtualField is a computed, non-cube-backed member (row-level
// expressions the source cube does not define).
type VirtualField struct {
	Alias string
	Expr  Node
}

func (n VirtualField) Kind() string     { return "VirtualField" }
func (n VirtualField) Children() []Node { return []Node{n.Expr} }

// ChangeUser is the row-level-security member pass-through.
type ChangeUser struct {
	Alias string
	User  Node
}

func (n ChangeUser) Kind() string     { return "ChangeUser" }
func (n ChangeUser) Children() []Node { return []Node{n.User} }

// CaseMember wraps a CASE WHEN expression resolved over a dimension,
// kept opaque for the (out-of-scope) SQL generator.
type CaseMember struct {
	Alias string
	Expr  Node
}

func (n CaseMember) Kind() string     { return "CaseMember" }
func (n CaseMember) Children() []Node { return []Node{n.Expr} }

// MemberError represents a failed member resolution in-graph, per §7:
// not an exception, just a high-cost node extraction avoids when a
// cheaper alternative exists.
type MemberError struct {
	Message     string
	Priority    int
	Expr        Node
	AliasToCube []AliasedCube
}

func (n MemberError) Kind() string     { return "MemberError" }
func (n MemberError) Children() []Node { return []Node{n.Expr} }

// MemberReplacer rewrites a list of expressions into cube members
// against a fixed member list (rule family 6).
type MemberReplacer struct {
	Exprs       []Node
	AliasToCube []AliasedCube
}

func (n MemberReplacer) Kind() string     { return "MemberReplacer" }
func (n MemberReplacer) Children() []Node { return n.Exprs }

// MemberPushdownReplacer is MemberReplacer specialised for pushing a
// projection/aggregate's expressions into an existing CubeScan's
// member list (rule families 2/3).
type MemberPushdownReplacer struct {
	Exprs        []Node
	OldMembers   []Node
	AliasToCube  []AliasedCube
	NewAliasFrom string // projection output alias prefix, "" if none
}

func (n MemberPushdownReplacer) Kind() string { return "MemberPushdownReplacer" }
func (n MemberPushdownReplacer) Children() []Node {
	return append(append([]Node{}, n.Exprs...), n.OldMembers...)
}

// ListConcatReplacer flattens nested CubeScanMembers lists (rule
// family 13).
type ListConcatReplacer struct {
	Left, Right Node
}

func (n ListConcatReplacer) Kind() string     { return "ListConcatReplacer" }
func (n ListConcatReplacer) Children() []Node { return []Node{n.Left, n.Right} }

// CubeScanMembers is an intermediate concat-list of member nodes,
// the shape ListConcatReplacer flattens.
type CubeScanMembers struct{ Members []Node }

func (n CubeScanMembers) Kind() string     { return "CubeScanMembers" }
func (n CubeScanMembers) Children() []Node { return n.Members }

// --- expressions ---

// Column is a bare column reference, optionally relation-qualified.
type Column struct {
	Relation string
	Name     string
}

func (n Column) Kind() string     { return "Column" }
func (n Column) Children() []Node { return nil }

// Literal is a folded scalar constant.
type Literal struct {
	Value interface{}
}

func (n Literal) Kind() string     { return "Literal" }
func (n Literal) Children() []Node { return nil }

// Cast converts Input to DataType; only String->Utf8 and
// Decimal->Decimal are "trivial" per rule family 6.
type Cast struct {
	Input    Node
	DataType string
}

func (n Cast) Kind() string     { return "Cast" }
func (n Cast) Children() []Node { return []Node{n.Input} }

// Alias names an expression's output column.
type Alias struct {
	Input Node
	Name  string
}

func (n Alias) Kind() string     { return "Alias" }
func (n Alias) Children() []Node { return []Node{n.Input} }

// AggregateFunction is agg-fn(Arg), Arg a Column/Cast/Literal.
type AggregateFunction struct {
	Fn       string // "sum", "count", "min", "max", "avg", "countDistinct", ...
	Arg      Node
	Distinct bool
}

func (n AggregateFunction) Kind() string     { return "AggregateFunction" }
func (n AggregateFunction) Children() []Node { return []Node{n.Arg} }

// MeasureUDAF is the dedicated MEASURE(column) user-defined aggregate.
type MeasureUDAF struct{ Arg Node }

func (n MeasureUDAF) Kind() string     { return "MeasureUDAF" }
func (n MeasureUDAF) Children() []Node { return []Node{n.Arg} }

// DateTrunc is date_trunc(Granularity, Arg).
type DateTrunc struct {
	Granularity string
	Arg         Node
}

func (n DateTrunc) Kind() string     { return "DateTrunc" }
func (n DateTrunc) Children() []Node { return []Node{n.Arg} }

// BinaryOp names a binary expression operator.
type BinaryOp int

const (
	OpEq BinaryOp = iota
	OpMod
	OpLike
	OpNotLike
	OpILike
	OpNotILike
)

// BinaryExpr is a two-operand expression, the target of rule
// families 11 (LIKE) and 12 (MOD).
type BinaryExpr struct {
	Left, Right Node
	Op          BinaryOp
}

func (n BinaryExpr) Kind() string     { return "BinaryExpr" }
func (n BinaryExpr) Children() []Node { return []Node{n.Left, n.Right} }

// Like is the source LIKE/ILIKE expression rule family 11 rewrites.
type Like struct {
	CaseInsensitive bool
	Negated         bool
	Expr            Node
	Pattern         Node
	Escape          *rune
}

func (n Like) Kind() string     { return "Like" }
func (n Like) Children() []Node { return []Node{n.Expr, n.Pattern} }

// Mod is the source modulo expression rule family 12 rewrites.
type Mod struct {
	Left, Right Node
	Alias       string
}

func (n Mod) Kind() string     { return "Mod" }
func (n Mod) Children() []Node { return []Node{n.Left, n.Right} }
