package gjinverse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionTiles(t *testing.T) {
	for n := 1; n <= 40; n++ {
		for size := 1; size <= n+3; size++ {
			ranges := Ranges(n, size)
			require.Len(t, ranges, size)

			next := 0
			for rank, r := range ranges {
				require.Equalf(t, next, r.Start, "n=%d size=%d rank=%d not contiguous", n, size, rank)
				require.GreaterOrEqual(t, r.Len(), 0)
				next = r.End
				if rank > 0 {
					prev := ranges[rank-1].Len()
					assert.LessOrEqualf(t, r.Len(), prev, "n=%d size=%d: rank %d larger than rank %d", n, size, rank, rank-1)
					assert.LessOrEqualf(t, prev-r.Len(), 1, "n=%d size=%d: sizes differ by more than 1", n, size)
				}
				for row := r.Start; row < r.End; row++ {
					require.Equalf(t, rank, Owner(n, size, row), "n=%d size=%d row=%d", n, size, row)
				}
			}
			require.Equalf(t, n, next, "n=%d size=%d does not cover all rows", n, size)
		}
	}
}

func TestPartition(t *testing.T) {
	testCases := []struct {
		n, size int
		want    []Range
	}{
		{n: 5, size: 1, want: []Range{{0, 5}}},
		{n: 5, size: 2, want: []Range{{0, 3}, {3, 5}}},
		{n: 7, size: 3, want: []Range{{0, 3}, {3, 5}, {5, 7}}},
		{n: 2, size: 4, want: []Range{{0, 1}, {1, 2}, {2, 2}, {2, 2}}},
	}
	for _, tc := range testCases {
		assert.Equalf(t, tc.want, Ranges(tc.n, tc.size), "n=%d size=%d", tc.n, tc.size)
	}
}

func TestRangeContains(t *testing.T) {
	r := Range{Start: 2, End: 4}
	assert.False(t, r.Contains(1))
	assert.True(t, r.Contains(2))
	assert.True(t, r.Contains(3))
	assert.False(t, r.Contains(4))
	assert.False(t, Range{Start: 3, End: 3}.Contains(3))
}
