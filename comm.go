package gjinverse

import (
	"context"

	"github.com/hnakamur/gjinverse/msg"
)

// Comm is one rank's view of a fixed group of cooperating workers.
//
// Send and Recv are point-to-point and ordered per peer. Bcast is a
// collective operation: every rank calls it with the same root for the same
// round; on the root buf is the data to share, on every other rank buf is
// overwritten with the root's data before Bcast returns.
//
// All calls block until they complete or ctx is done.
type Comm interface {
	Rank() int
	Size() int
	Send(ctx context.Context, dest int, rows *msg.Rows) error
	Recv(ctx context.Context, src int) (*msg.Rows, error)
	Bcast(ctx context.Context, root int, buf []float64) error
}

func cloneRows(rows [][]float64) [][]float64 {
	c := make([][]float64, len(rows))
	for i, row := range rows {
		c[i] = append([]float64(nil), row...)
	}
	return c
}
