// Package gjinverse inverts a square matrix with Gauss-Jordan elimination,
// with the rows of the augmented matrix [A|I] split across a fixed group of
// cooperating workers.
//
// Every worker runs the same program (Run) against its own contiguous block
// of rows, as computed by Partition. Rank 0, the coordinator, holds the full
// matrix: it sends each worker its rows, takes part in the elimination like
// any other rank, and gathers the rows back at the end.
//
// The elimination is n lock-step rounds. In round c the owner of row c
// divides that row by its diagonal entry and broadcasts it; every rank then
// subtracts a multiple of the broadcast row from each of its other rows so
// that column c becomes zero everywhere except on the diagonal. After n
// rounds the right half of the matrix is the inverse.
//
// No pivoting is done. A zero pivot produces Inf/NaN in the result unless
// a tolerance is set with WithTolerance, in which case every rank stops with
// ErrSingular in the same round.
//
// Workers communicate through a Comm. NewLocalGroup wires ranks living in
// one process with channels; Hub and package worker connect remote workers
// to the coordinator with websockets, the coordinator relaying broadcasts.
package gjinverse
