package infra

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrderedKeyCompare(t *testing.T) {
	require.Equal(t, int64(0), OrderedKeyCompare(1, 1))
	require.Equal(t, int64(-1), OrderedKeyCompare(1, 2))
	require.Equal(t, int64(1), OrderedKeyCompare(2, 1))
	require.Equal(t, int64(-1), OrderedKeyCompare("abc", "abd"))
	require.Equal(t, int64(1), OrderedKeyCompare(uint8(255), uint8(0)))
	require.Equal(t, int64(-1), OrderedKeyCompare(-0.5, 0.25))
}

func TestOrderedKeyCompare_NaN(t *testing.T) {
	require.Panics(t, func() {
		OrderedKeyCompare(math.NaN(), 1.0)
	})
	require.Panics(t, func() {
		OrderedKeyCompare(float32(1.0), float32(math.NaN()))
	})
}

func TestReversedKeyComparator(t *testing.T) {
	cmp := ReversedKeyComparator[int](OrderedKeyCompare[int])
	require.Equal(t, int64(1), cmp(1, 2))
	require.Equal(t, int64(-1), cmp(2, 1))
	require.Equal(t, int64(0), cmp(3, 3))
}
