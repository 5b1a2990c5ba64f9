package gjinverse

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAugmented(t *testing.T) {
	a := [][]float64{{1, 2}, {3, 4}}
	m, err := NewAugmented(a)
	require.NoError(t, err)
	assert.Equal(t, 2, m.N)
	assert.Equal(t, [][]float64{{1, 2, 1, 0}, {3, 4, 0, 1}}, m.Rows)

	m.Rows[0][0] = 9
	assert.Equal(t, 1.0, a[0][0], "input must be copied")
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}}, m.Inverse())
}

func TestNewAugmentedNotSquare(t *testing.T) {
	_, err := NewAugmented(nil)
	assert.True(t, errors.Is(err, ErrNotSquare))

	_, err = NewAugmented([][]float64{{1, 2}, {3}})
	assert.True(t, errors.Is(err, ErrNotSquare))

	_, err = NewAugmented([][]float64{{1, 2, 3}, {4, 5, 6}})
	assert.True(t, errors.Is(err, ErrNotSquare))
}

func TestRowSlice(t *testing.T) {
	s := newRowSlice(4, Range{Start: 2, End: 4})
	require.Len(t, s.Rows, 2)
	assert.Len(t, s.Rows[0], 8)
	assert.Equal(t, 3, s.Global(1))
	s.Rows[1][0] = 7
	assert.Equal(t, 7.0, s.Row(3)[0])
}
