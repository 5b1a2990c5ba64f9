package gjinverse

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/hnakamur/gjinverse/msg"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// diagonallyDominant returns a random n x n matrix whose natural pivots are
// all nonzero.
func diagonallyDominant(n int, seed uint64) [][]float64 {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	a := make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, n)
		sum := 0.0
		for j := range a[i] {
			a[i][j] = rng.Float64()*2 - 1
			sum += math.Abs(a[i][j])
		}
		a[i][i] = sum + 1
	}
	return a
}

func toDense(a [][]float64) *mat.Dense {
	d := mat.NewDense(len(a), len(a), nil)
	for i, row := range a {
		d.SetRow(i, row)
	}
	return d
}

func requireIdentityProduct(t *testing.T, a, inv [][]float64) {
	t.Helper()
	var p mat.Dense
	p.Mul(toDense(a), toDense(inv))
	n := len(a)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			require.InDeltaf(t, want, p.At(i, j), 1e-6, "(A*R)[%d][%d]", i, j)
		}
	}
}

func TestInvertAcrossGroupSizes(t *testing.T) {
	ctx := context.Background()
	for _, n := range []int{1, 2, 3, 7, 16} {
		a := diagonallyDominant(n, uint64(n))
		ref, err := Invert(ctx, a, 1)
		require.NoError(t, err)
		requireIdentityProduct(t, a, ref)

		for _, size := range []int{2, n, n + 2} {
			inv, err := Invert(ctx, a, size)
			require.NoErrorf(t, err, "n=%d size=%d", n, size)
			requireIdentityProduct(t, a, inv)
			for i := range ref {
				assert.InDeltaSlicef(t, ref[i], inv[i], 1e-9, "n=%d size=%d row=%d", n, size, i)
			}
		}
	}
}

func TestInvertBoundaries(t *testing.T) {
	ctx := context.Background()

	inv, err := Invert(ctx, [][]float64{{2}}, 1)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.5}}, inv)

	inv, err = Invert(ctx, [][]float64{{1, 0}, {0, 1}}, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}}, inv)
}

func TestInvertPreservesRowIdentity(t *testing.T) {
	// The inverse of diag(1..n) identifies every row by its value.
	n := 6
	a := make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, n)
		a[i][i] = float64(i + 1)
	}
	inv, err := Invert(context.Background(), a, 4)
	require.NoError(t, err)
	for i := range inv {
		for j := range inv[i] {
			want := 0.0
			if i == j {
				want = 1 / float64(i+1)
			}
			assert.InDeltaf(t, want, inv[i][j], 1e-15, "(%d,%d)", i, j)
		}
	}
}

func TestInvertZeroPivotPropagates(t *testing.T) {
	for _, size := range []int{1, 2} {
		inv, err := Invert(context.Background(), [][]float64{{0, 1}, {1, 0}}, size)
		require.NoError(t, err)
		found := false
		for _, row := range inv {
			for _, v := range row {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					found = true
				}
			}
		}
		assert.Truef(t, found, "size=%d: want Inf or NaN in %v", size, inv)
	}
}

func TestInvertTolerance(t *testing.T) {
	testCases := []struct {
		name string
		a    [][]float64
	}{
		// Zero pivot on the coordinator in round 0.
		{name: "coordinatorOwner", a: [][]float64{{0, 1}, {1, 0}}},
		// Singular matrix whose zero pivot appears on rank 1 in round 1.
		{name: "workerOwner", a: [][]float64{{1, 2}, {2, 4}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for _, size := range []int{1, 2} {
				_, err := Invert(context.Background(), tc.a, size, WithTolerance(1e-12))
				assert.Truef(t, errors.Is(err, ErrSingular), "size=%d: got %v", size, err)
			}
		})
	}
}

func TestRunRoundHook(t *testing.T) {
	a := diagonallyDominant(5, 42)
	m, err := NewAugmented(a)
	require.NoError(t, err)

	var cols []int
	hook := func(rank, col, n int) {
		if rank == Coordinator {
			assert.Equal(t, 5, n)
			cols = append(cols, col)
		}
	}
	_, err = RunLocal(context.Background(), m, 2, WithRoundHook(hook))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, cols)
}

func TestRunTopologyMismatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	comms := NewLocalGroup(2)

	// Rank 1 of a group of 2 owns [2,4) of a 4x4 matrix, not [1,4).
	bad := make([][]float64, 3)
	for i := range bad {
		bad[i] = make([]float64, 8)
	}
	require.NoError(t, comms[0].Send(ctx, 1, &msg.Rows{N: 4, Start: 1, Data: bad}))

	_, err := Run(ctx, comms[1], nil)
	assert.True(t, errors.Is(err, ErrTopologyMismatch), "got %v", err)
}

func TestRunBlocksUntilContextDone(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	comms := NewLocalGroup(2)
	m, err := NewAugmented(diagonallyDominant(4, 7))
	require.NoError(t, err)

	// Rank 1 never runs, so the coordinator stalls at the first broadcast.
	_, err = Run(ctx, comms[0], m)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestRunCoordinatorWithoutMatrix(t *testing.T) {
	_, err := Run(context.Background(), NewLocalGroup(1)[0], nil)
	assert.True(t, errors.Is(err, ErrNotSquare))
}
