package gjinverse

import (
	"context"

	"github.com/hnakamur/gjinverse/msg"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

type localPivot struct {
	seq  uint64
	data []float64
}

// localGroup wires size ranks of one process together with channels.
// rowsC[src][dst] carries point-to-point rows and pivotC[root][dst] carries
// broadcasts. Pivot channels are unbuffered so the root hands its row to
// each peer directly.
type localGroup struct {
	size   int
	rowsC  [][]chan *msg.Rows
	pivotC [][]chan localPivot
}

type localComm struct {
	g    *localGroup
	rank int
	seq  uint64
}

// NewLocalGroup returns one Comm per rank for a group of size workers that
// live in the same process. Each Comm must be used by a single goroutine.
func NewLocalGroup(size int) []Comm {
	g := &localGroup{
		size:   size,
		rowsC:  make([][]chan *msg.Rows, size),
		pivotC: make([][]chan localPivot, size),
	}
	for src := 0; src < size; src++ {
		g.rowsC[src] = make([]chan *msg.Rows, size)
		g.pivotC[src] = make([]chan localPivot, size)
		for dst := 0; dst < size; dst++ {
			g.rowsC[src][dst] = make(chan *msg.Rows, 1)
			g.pivotC[src][dst] = make(chan localPivot)
		}
	}
	comms := make([]Comm, size)
	for rank := range comms {
		comms[rank] = &localComm{g: g, rank: rank}
	}
	return comms
}

func (c *localComm) Rank() int { return c.rank }
func (c *localComm) Size() int { return c.g.size }

func (c *localComm) checkPeer(peer int) error {
	if peer < 0 || peer >= c.g.size || peer == c.rank {
		return errors.Wrapf(ErrBadRank, "peer %d of rank %d, size %d", peer, c.rank, c.g.size)
	}
	return nil
}

func (c *localComm) Send(ctx context.Context, dest int, rows *msg.Rows) error {
	if err := c.checkPeer(dest); err != nil {
		return err
	}
	// Copy so sender and receiver never share row storage.
	m := *rows
	m.Data = cloneRows(rows.Data)
	select {
	case c.g.rowsC[c.rank][dest] <- &m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *localComm) Recv(ctx context.Context, src int) (*msg.Rows, error) {
	if err := c.checkPeer(src); err != nil {
		return nil, err
	}
	select {
	case m := <-c.g.rowsC[src][c.rank]:
		return m, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *localComm) Bcast(ctx context.Context, root int, buf []float64) error {
	if root < 0 || root >= c.g.size {
		return errors.Wrapf(ErrBadRank, "broadcast root %d, size %d", root, c.g.size)
	}
	c.seq++
	if root == c.rank {
		for dst := 0; dst < c.g.size; dst++ {
			if dst == c.rank {
				continue
			}
			p := localPivot{seq: c.seq, data: append([]float64(nil), buf...)}
			select {
			case c.g.pivotC[root][dst] <- p:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}

	select {
	case p := <-c.g.pivotC[root][c.rank]:
		if p.seq != c.seq {
			return errors.Wrapf(ErrUnexpectedMessage, "broadcast %d from rank %d, want %d", p.seq, root, c.seq)
		}
		copy(buf, p.data)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunLocal inverts a with size in-process workers, one goroutine per rank,
// and returns the coordinator's matrix. The first rank error cancels the
// others.
func RunLocal(ctx context.Context, a *Augmented, size int, opts ...Option) (*Augmented, error) {
	if size < 1 {
		return nil, errors.Wrapf(ErrBadRank, "group size %d", size)
	}
	comms := NewLocalGroup(size)
	eg, ctx := errgroup.WithContext(ctx)
	var result *Augmented
	for _, comm := range comms {
		eg.Go(func() error {
			if comm.Rank() != Coordinator {
				_, err := Run(ctx, comm, nil, opts...)
				return errors.Wrapf(err, "rank %d", comm.Rank())
			}
			m, err := Run(ctx, comm, a, opts...)
			if err != nil {
				return errors.Wrap(err, "coordinator")
			}
			result = m
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// Invert returns the inverse of the square matrix a computed by size
// in-process workers.
func Invert(ctx context.Context, a [][]float64, size int, opts ...Option) ([][]float64, error) {
	m, err := NewAugmented(a)
	if err != nil {
		return nil, err
	}
	m, err = RunLocal(ctx, m, size, opts...)
	if err != nil {
		return nil, err
	}
	return m.Inverse(), nil
}
