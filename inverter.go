package gjinverse

import (
	"context"
	"math"

	"github.com/hnakamur/gjinverse/msg"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Coordinator is the rank that holds the full augmented matrix before
// distribution and after gathering.
const Coordinator = 0

type inverter struct {
	comm      Comm
	full      *Augmented
	rows      *RowSlice
	tolerance float64
	roundHook func(rank, col, n int)
}

// Run executes the distributed Gauss-Jordan elimination for the rank of comm.
//
// On the coordinator, a is the full augmented matrix [A|I]. Its rows are
// distributed, reduced in place and gathered back, so on success a holds
// [I|A^-1] and is returned. On every other rank a is ignored and Run returns
// a nil matrix once its rows are sent back.
//
// Every rank of the group must call Run; a rank that never reaches a
// broadcast blocks the others until ctx is done.
func Run(ctx context.Context, comm Comm, a *Augmented, opts ...Option) (*Augmented, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	v := &inverter{
		comm:      comm,
		tolerance: o.tolerance,
		roundHook: o.roundHook,
	}
	if comm.Rank() == Coordinator {
		if a == nil {
			return nil, errors.Wrap(ErrNotSquare, "coordinator has no matrix")
		}
		v.full = a
	}

	if err := v.distribute(ctx); err != nil {
		return nil, err
	}
	if err := v.eliminate(ctx); err != nil {
		return nil, err
	}
	if err := v.gather(ctx); err != nil {
		return nil, err
	}
	return v.full, nil
}

func (v *inverter) distribute(ctx context.Context) error {
	rank, size := v.comm.Rank(), v.comm.Size()
	if rank != Coordinator {
		m, err := v.comm.Recv(ctx, Coordinator)
		if err != nil {
			return errors.Wrap(err, "receive rows")
		}
		if m.N <= 0 {
			return errors.Wrapf(ErrTopologyMismatch, "rank %d received matrix size %d", rank, m.N)
		}
		r := Partition(m.N, size, rank)
		if err := checkRows(m, m.N, r); err != nil {
			return err
		}
		v.rows = &RowSlice{N: m.N, Range: r, Rows: m.Data}
		v.tolerance = m.Tolerance
		klog.V(1).InfoS("received rows", "rank", rank, "n", m.N, "start", r.Start, "end", r.End)
		return nil
	}

	n := v.full.N
	for dest := 1; dest < size; dest++ {
		r := Partition(n, size, dest)
		err := v.comm.Send(ctx, dest, &msg.Rows{
			N:         n,
			Start:     r.Start,
			Tolerance: v.tolerance,
			Data:      v.full.Rows[r.Start:r.End],
		})
		if err != nil {
			return errors.Wrapf(err, "send rows to rank %d", dest)
		}
		klog.V(1).InfoS("sent rows", "dest", dest, "start", r.Start, "end", r.End)
	}
	// The coordinator's own rows stay in the full matrix.
	r := Partition(n, size, Coordinator)
	v.rows = &RowSlice{N: n, Range: r, Rows: v.full.Rows[r.Start:r.End]}
	return nil
}

func (v *inverter) eliminate(ctx context.Context) error {
	rank, size := v.comm.Rank(), v.comm.Size()
	n := v.rows.N
	pivot := make([]float64, 2*n)
	for col := 0; col < n; col++ {
		owner := Owner(n, size, col)
		var singular error
		if owner == rank {
			row := v.rows.Row(col)
			if v.tolerance > 0 && !(math.Abs(row[col]) > v.tolerance) {
				singular = errors.Wrapf(ErrSingular, "pivot %g at column %d", row[col], col)
				// Peers learn about the abort from the NaN pivot.
				for j := range pivot {
					pivot[j] = math.NaN()
				}
			} else {
				normalize(row, col)
				copy(pivot, row)
			}
		}

		if err := v.comm.Bcast(ctx, owner, pivot); err != nil {
			return errors.Wrapf(err, "broadcast pivot row %d from rank %d", col, owner)
		}
		if singular != nil {
			return singular
		}
		if v.tolerance > 0 && math.IsNaN(pivot[col]) {
			return errors.Wrapf(ErrSingular, "rank %d reported a singular pivot at column %d", owner, col)
		}

		eliminate(v.rows, col, pivot)
		if klog.V(2).Enabled() {
			klog.V(2).InfoS("eliminated column", "rank", rank, "col", col, "owner", owner)
		}
		if v.roundHook != nil {
			v.roundHook(rank, col, n)
		}
	}
	return nil
}

func (v *inverter) gather(ctx context.Context) error {
	rank, size := v.comm.Rank(), v.comm.Size()
	if rank != Coordinator {
		err := v.comm.Send(ctx, Coordinator, &msg.Rows{
			N:     v.rows.N,
			Start: v.rows.Range.Start,
			Data:  v.rows.Rows,
		})
		if err != nil {
			return errors.Wrap(err, "send rows back")
		}
		return nil
	}

	n := v.full.N
	for src := 1; src < size; src++ {
		m, err := v.comm.Recv(ctx, src)
		if err != nil {
			return errors.Wrapf(err, "gather rows from rank %d", src)
		}
		if err := checkRows(m, n, Partition(n, size, src)); err != nil {
			return err
		}
		for i, row := range m.Data {
			copy(v.full.Rows[m.Start+i], row)
		}
		klog.V(1).InfoS("gathered rows", "src", src, "start", m.Start, "rows", len(m.Data))
	}
	return nil
}

func checkRows(m *msg.Rows, n int, want Range) error {
	if m.N != n {
		return errors.Wrapf(ErrTopologyMismatch, "got matrix size %d, want %d", m.N, n)
	}
	if m.Start != want.Start || len(m.Data) != want.Len() {
		return errors.Wrapf(ErrTopologyMismatch, "got rows [%d,%d), want [%d,%d)",
			m.Start, m.Start+len(m.Data), want.Start, want.End)
	}
	for i, row := range m.Data {
		if len(row) != 2*n {
			return errors.Wrapf(ErrTopologyMismatch, "row %d has %d columns, want %d",
				m.Start+i, len(row), 2*n)
		}
	}
	return nil
}
