package gjinverse

import "github.com/pkg/errors"

// Augmented is the n x 2n working matrix [A|I]. Only the coordinator holds
// a full Augmented; workers hold a RowSlice.
type Augmented struct {
	N    int
	Rows [][]float64
}

// NewAugmented builds [A|I] from the square matrix a. a is copied.
func NewAugmented(a [][]float64) (*Augmented, error) {
	n := len(a)
	if n == 0 {
		return nil, errors.Wrap(ErrNotSquare, "empty matrix")
	}
	rows := make([][]float64, n)
	for i, src := range a {
		if len(src) != n {
			return nil, errors.Wrapf(ErrNotSquare, "row %d has %d columns, want %d", i, len(src), n)
		}
		row := make([]float64, 2*n)
		copy(row, src)
		row[n+i] = 1.0
		rows[i] = row
	}
	return &Augmented{N: n, Rows: rows}, nil
}

// Inverse returns a copy of the right half of the matrix, columns n..2n-1.
func (m *Augmented) Inverse() [][]float64 {
	inv := make([][]float64, m.N)
	for i, row := range m.Rows {
		inv[i] = append([]float64(nil), row[m.N:2*m.N]...)
	}
	return inv
}

// RowSlice holds the rows of the augmented matrix owned by one worker.
type RowSlice struct {
	N     int
	Range Range
	Rows  [][]float64
}

func newRowSlice(n int, r Range) *RowSlice {
	rows := make([][]float64, r.Len())
	for i := range rows {
		rows[i] = make([]float64, 2*n)
	}
	return &RowSlice{N: n, Range: r, Rows: rows}
}

// Global returns the global row index of the local row i.
func (s *RowSlice) Global(i int) int {
	return s.Range.Start + i
}

// Row returns the locally stored row with global index g.
func (s *RowSlice) Row(g int) []float64 {
	return s.Rows[g-s.Range.Start]
}
