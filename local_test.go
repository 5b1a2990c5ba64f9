package gjinverse

import (
	"context"
	"testing"

	"github.com/hnakamur/gjinverse/msg"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestLocalSendCopiesRows(t *testing.T) {
	ctx := context.Background()
	comms := NewLocalGroup(2)
	rows := [][]float64{{1, 2}}
	require.NoError(t, comms[0].Send(ctx, 1, &msg.Rows{N: 1, Start: 0, Data: rows}))
	rows[0][0] = 99

	m, err := comms[1].Recv(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}}, m.Data)
}

func TestLocalBcast(t *testing.T) {
	ctx := context.Background()
	comms := NewLocalGroup(3)
	got := make([][]float64, 3)
	var eg errgroup.Group
	for _, c := range comms {
		eg.Go(func() error {
			buf := make([]float64, 2)
			if c.Rank() == 1 {
				buf[0], buf[1] = 3, 4
			}
			if err := c.Bcast(ctx, 1, buf); err != nil {
				return err
			}
			got[c.Rank()] = buf
			return nil
		})
	}
	require.NoError(t, eg.Wait())
	for rank, buf := range got {
		assert.Equalf(t, []float64{3, 4}, buf, "rank %d", rank)
	}
}

func TestLocalBadRank(t *testing.T) {
	ctx := context.Background()
	comms := NewLocalGroup(2)
	assert.True(t, errors.Is(comms[0].Send(ctx, 0, &msg.Rows{}), ErrBadRank))
	assert.True(t, errors.Is(comms[0].Send(ctx, 2, &msg.Rows{}), ErrBadRank))
	_, err := comms[1].Recv(ctx, -1)
	assert.True(t, errors.Is(err, ErrBadRank))
	assert.True(t, errors.Is(comms[1].Bcast(ctx, 5, nil), ErrBadRank))

	_, err = RunLocal(ctx, nil, 0)
	assert.True(t, errors.Is(err, ErrBadRank))
}
