package gjinverse

import "github.com/pkg/errors"

var (
	// ErrNotSquare is returned when the input matrix is empty or its rows
	// do not all have n columns.
	ErrNotSquare = errors.New("gjinverse: matrix is not square")

	// ErrSingular is returned when a pivot is within the configured tolerance
	// of zero. It is only produced when a tolerance is set; otherwise a zero
	// pivot propagates Inf/NaN into the result.
	ErrSingular = errors.New("gjinverse: singular or ill-conditioned matrix")

	// ErrTopologyMismatch is returned when the rows a worker receives do not
	// match the partition it computes for itself.
	ErrTopologyMismatch = errors.New("gjinverse: partition/topology mismatch")

	// ErrWorkerLost is returned when a peer connection goes away before the
	// computation is complete.
	ErrWorkerLost = errors.New("gjinverse: worker connection lost")

	// ErrUnexpectedMessage is returned when a message arrives out of protocol order.
	ErrUnexpectedMessage = errors.New("gjinverse: unexpected message")

	// ErrBadRank is returned for ranks outside [0, size).
	ErrBadRank = errors.New("gjinverse: rank out of range")
)
