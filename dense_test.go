package gjinverse

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestDenseRoundTrip(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{4, 7, 2, 6})
	m, err := NewAugmentedFromDense(a)
	require.NoError(t, err)

	m, err = RunLocal(context.Background(), m, 2)
	require.NoError(t, err)

	var want mat.Dense
	require.NoError(t, want.Inverse(a))
	assert.True(t, mat.EqualApprox(&want, m.InverseDense(), 1e-12))
}

func TestDenseNotSquare(t *testing.T) {
	_, err := NewAugmentedFromDense(mat.NewDense(2, 3, nil))
	assert.True(t, errors.Is(err, ErrNotSquare))
}
