// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

// Package types defines the row/key/value model shared by the
// metastore, chunk store and compaction engine: typed column values,
// lexicographic key comparison with NULL-sorts-first semantics, and
// millisecond timestamp truncation on insert.
package types

import (
	"bytes"
	"math/big"
	"time"
)

// Kind identifies the runtime type of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindDecimal
	KindTimestamp
	KindString
	KindBytes
)

// Decimal is a fixed-point value with declared precision/scale,
// matching the metastore's DECIMAL(precision, scale) columns.
type Decimal struct {
	Unscaled *big.Int
	Scale    int32
}

// Value is one column of one row. Exactly one field is meaningful,
// selected by Kind; KindNull carries no payload.
type Value struct {
	Kind      Kind
	Bool      bool
	Int       int64
	Float     float64
	Decimal   Decimal
	Timestamp time.Time
	String    string
	Bytes     []byte
}

// Null is the canonical null value.
var Null = Value{Kind: KindNull}

// TruncateToMillis truncates a Timestamp value to millisecond
// precision, the conversion every inserted row undergoes per the
// storage format (Parquet TIMESTAMP_MILLIS).
func (v Value) TruncateToMillis() Value {
	if v.Kind != KindTimestamp {
		return v
	}
	v.Timestamp = v.Timestamp.Truncate(time.Millisecond)
	return v
}

// Compare orders two values of the same column. Null sorts before
// every non-null value; values of differing Kind other than Null are
// compared by Kind ordinal, which is only meaningful for
// already-type-checked columns (the metastore guarantees a column
// has one declared type).
func (v Value) Compare(other Value) int {
	if v.Kind == KindNull && other.Kind == KindNull {
		return 0
	}
	if v.Kind == KindNull {
		return -1
	}
	if other.Kind == KindNull {
		return 1
	}
	if v.Kind != other.Kind {
		if v.Kind < other.Kind {
			return -1
		}
		return 1
	}
	switch v.Kind {
	case KindBool:
		return boolCompare(v.Bool, other.Bool)
	case KindInt:
		return int64Compare(v.Int, other.Int)
	case KindFloat:
		return float64Compare(v.Float, other.Float)
	case KindDecimal:
		return decimalCompare(v.Decimal, other.Decimal)
	case KindTimestamp:
		a, b := v.Timestamp.Truncate(time.Millisecond), other.Timestamp.Truncate(time.Millisecond)
		switch {
		case a.Before(b):
			return -1
		case a.After(b):
			return 1
		default:
			return 0
		}
	case KindString:
		return bytes.Compare([]byte(v.String), []byte(other.String))
	case KindBytes:
		return bytes.Compare(v.Bytes, other.Bytes)
	default:
		return 0
	}
}

func boolCompare(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

func int64Compare(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func float64Compare(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func decimalCompare(a, b Decimal) int {
	// Align scales before comparing unscaled magnitudes.
	au, bu := new(big.Int).Set(a.Unscaled), new(big.Int).Set(b.Unscaled)
	switch {
	case a.Scale < b.Scale:
		au.Mul(au, pow10(b.Scale-a.Scale))
	case b.Scale < a.Scale:
		bu.Mul(bu, pow10(a.Scale-b.Scale))
	}
	return au.Cmp(bu)
}

func pow10(n int32) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// Row is an ordered sequence of typed values.
type Row []Value

// Key is the ordered prefix of a Row's columns used as the sort/
// partition key.
type Key []Value

// Compare orders two keys lexicographically, column by column.
func (k Key) Compare(other Key) int {
	n := len(k)
	if len(other) < n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		if c := k[i].Compare(other[i]); c != 0 {
			return c
		}
	}
	return int64Compare(int64(len(k)), int64(len(other)))
}

// Equal reports whether two keys compare equal.
func (k Key) Equal(other Key) bool { return k.Compare(other) == 0 }

// KeyOf extracts the first n columns of row as a Key.
func KeyOf(row Row, n int) Key {
	if n > len(row) {
		n = len(row)
	}
	key := make(Key, n)
	copy(key, row[:n])
	return key
}
