package gjinverse

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// NewAugmentedFromDense builds [A|I] from a gonum matrix.
func NewAugmentedFromDense(a mat.Matrix) (*Augmented, error) {
	r, c := a.Dims()
	if r != c {
		return nil, errors.Wrapf(ErrNotSquare, "%dx%d matrix", r, c)
	}
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = make([]float64, c)
		for j := range rows[i] {
			rows[i][j] = a.At(i, j)
		}
	}
	return NewAugmented(rows)
}

// InverseDense returns the right half of m as a gonum matrix.
func (m *Augmented) InverseDense() *mat.Dense {
	inv := mat.NewDense(m.N, m.N, nil)
	for i, row := range m.Rows {
		inv.SetRow(i, row[m.N:2*m.N])
	}
	return inv
}
