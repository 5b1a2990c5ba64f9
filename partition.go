package gjinverse

// Range is a half-open range [Start, End) of global row indices.
type Range struct {
	Start int
	End   int
}

// Len returns the number of rows in r.
func (r Range) Len() int {
	return r.End - r.Start
}

// Contains reports whether the global row is in r.
func (r Range) Contains(row int) bool {
	return r.Start <= row && row < r.End
}

// Partition returns the contiguous rows owned by rank when n rows are split
// across size workers. The first n%size ranks get one extra row, so ranks
// beyond n get an empty range when n < size.
//
// Partition is pure: the coordinator and every worker compute identical
// results without communicating.
func Partition(n, size, rank int) Range {
	base := n / size
	rem := n % size
	start := rank*base + min(rank, rem)
	end := start + base
	if rank < rem {
		end++
	}
	return Range{Start: start, End: end}
}

// Ranges returns the partitions of all ranks in rank order.
func Ranges(n, size int) []Range {
	ranges := make([]Range, size)
	for rank := range ranges {
		ranges[rank] = Partition(n, size, rank)
	}
	return ranges
}

// Owner returns the rank whose partition contains the global row.
func Owner(n, size, row int) int {
	base := n / size
	rem := n % size
	// The first rem ranks hold base+1 rows each.
	if row < rem*(base+1) {
		return row / (base + 1)
	}
	return rem + (row-rem*(base+1))/base
}
