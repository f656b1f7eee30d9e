// Copyright (C) 2026 Lattice Authors.
// See LICENSE for copying information.

package types_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/pkg/types"
)

func TestNullSortsFirst(t *testing.T) {
	require.Equal(t, -1, types.Null.Compare(types.Value{Kind: types.KindInt, Int: -100}))
	require.Equal(t, 1, types.Value{Kind: types.KindInt, Int: -100}.Compare(types.Null))
	require.Equal(t, 0, types.Null.Compare(types.Null))
}

func TestStringCompareLexicographic(t *testing.T) {
	a := types.Value{Kind: types.KindString, String: "foo6"}
	b := types.Value{Kind: types.KindString, String: "foo15"}
	require.Equal(t, 1, a.Compare(b))
}

func TestTimestampTruncatedToMillis(t *testing.T) {
	ts := types.Value{Kind: types.KindTimestamp, Timestamp: time.Unix(0, 1234567)}
	truncated := ts.TruncateToMillis()
	require.Equal(t, time.Unix(0, 1000000), truncated.Timestamp)
}

func TestDecimalCompareDifferentScales(t *testing.T) {
	a := types.Value{Kind: types.KindDecimal, Decimal: types.Decimal{Unscaled: big.NewInt(150), Scale: 2}}  // 1.50
	b := types.Value{Kind: types.KindDecimal, Decimal: types.Decimal{Unscaled: big.NewInt(15), Scale: 1}}   // 1.5
	require.Equal(t, 0, a.Compare(b))
	c := types.Value{Kind: types.KindDecimal, Decimal: types.Decimal{Unscaled: big.NewInt(151), Scale: 2}} // 1.51
	require.Equal(t, -1, a.Compare(c))
}

func TestKeyCompare(t *testing.T) {
	k1 := types.Key{types.Value{Kind: types.KindString, String: "a"}, types.Value{Kind: types.KindInt, Int: 1}}
	k2 := types.Key{types.Value{Kind: types.KindString, String: "a"}, types.Value{Kind: types.KindInt, Int: 2}}
	require.Equal(t, -1, k1.Compare(k2))
	require.False(t, k1.Equal(k2))
}
