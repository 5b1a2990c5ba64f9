package gjinverse

import (
	"context"
	"net/http"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hnakamur/gjinverse/msg"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Hub is the coordinator's end of the websocket transport. It registers
// one remote worker per rank in [1, size) and, once all of them are
// connected, serves as rank 0's Comm. Broadcasts from a remote root are
// relayed by the hub to every other worker.
type Hub struct {
	size   int
	runID  string
	config ConnConfig

	// Registered workers, owned by Run.
	workers map[int]*Conn

	// Register worker requests from connections.
	registerWorkerC chan registerWorkerRequest

	// Unregister worker requests from connections.
	unregisterWorkerC chan *Conn

	// Closed by Run once every rank has registered. conns is written
	// before that and read-only afterwards.
	readyC chan struct{}
	conns  []*Conn

	// Closed when Run returns.
	stoppedC chan struct{}
}

type registerWorkerRequest struct {
	conn    *Conn
	resultC chan error
}

// NewHub creates a hub for a group of size ranks, including the
// coordinator itself.
func NewHub(size int, config ConnConfig) *Hub {
	h := &Hub{
		size:              size,
		runID:             uuid.NewString(),
		config:            config,
		workers:           make(map[int]*Conn),
		registerWorkerC:   make(chan registerWorkerRequest),
		unregisterWorkerC: make(chan *Conn),
		readyC:            make(chan struct{}),
		stoppedC:          make(chan struct{}),
	}
	if size <= 1 {
		close(h.readyC)
	}
	return h
}

// RunID returns the identifier sent to every worker of this run.
func (h *Hub) RunID() string {
	return h.runID
}

// Run runs a hub until ctx is done. It closes every worker connection
// before returning.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.stoppedC)
	for {
		select {
		case req := <-h.registerWorkerC:
			rank := req.conn.rank
			if err := h.checkRegister(rank); err != nil {
				req.resultC <- err
				continue
			}
			h.workers[rank] = req.conn
			klog.InfoS("registered worker", "rank", rank, "ranks", h.ranks(), "runID", h.runID)
			if len(h.workers) == h.size-1 {
				h.conns = make([]*Conn, h.size)
				for r, conn := range h.workers {
					h.conns[r] = conn
				}
				close(h.readyC)
				klog.InfoS("all workers registered", "size", h.size, "runID", h.runID)
			}
			req.resultC <- nil
		case conn := <-h.unregisterWorkerC:
			if h.workers[conn.rank] != conn {
				continue
			}
			delete(h.workers, conn.rank)
			klog.InfoS("unregistered worker", "rank", conn.rank, "ranks", h.ranks())
		case <-ctx.Done():
			for rank, conn := range h.workers {
				conn.close()
				delete(h.workers, rank)
			}
			return nil
		}
	}
}

func (h *Hub) checkRegister(rank int) error {
	if rank <= Coordinator || rank >= h.size {
		return errors.Wrapf(ErrBadRank, "rank %d, size %d", rank, h.size)
	}
	if _, exists := h.workers[rank]; exists {
		return errors.Errorf("worker with rank %d already exists", rank)
	}
	if h.ready() {
		return errors.Errorf("run %s already started", h.runID)
	}
	return nil
}

func (h *Hub) ready() bool {
	select {
	case <-h.readyC:
		return true
	default:
		return false
	}
}

func (h *Hub) ranks() []int {
	ranks := make([]int, 0, len(h.workers))
	for rank := range h.workers {
		ranks = append(ranks, rank)
	}
	sort.Ints(ranks)
	return ranks
}

// WaitWorkers blocks until every rank in [1, size) has registered.
func (h *Hub) WaitWorkers(ctx context.Context) error {
	select {
	case <-h.readyC:
		return nil
	case <-h.stoppedC:
		return errors.New("hub stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeWS handles a websocket request from a remote worker.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	rank, err := strconv.Atoi(r.Header.Get(WorkerRankHeaderName))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		klog.ErrorS(err, "failed to upgrade to websocket", "rank", rank)
		return
	}
	conn := NewConn(ws, rank, h.config)
	if err := conn.RegisterToHub(h); err != nil {
		klog.ErrorS(err, "failed to register connection to hub", "rank", rank)
		return
	}
	conn.Run(h)
}

// Comm returns rank 0's Comm. It must only be used after WaitWorkers
// returns nil.
func (h *Hub) Comm() Comm {
	return &hubComm{h: h}
}

type hubComm struct {
	h   *Hub
	seq uint64
}

func (c *hubComm) Rank() int { return Coordinator }
func (c *hubComm) Size() int { return c.h.size }

func (c *hubComm) conn(rank int) (*Conn, error) {
	if !c.h.ready() {
		return nil, errors.New("workers are not registered yet")
	}
	if rank <= Coordinator || rank >= c.h.size {
		return nil, errors.Wrapf(ErrBadRank, "peer %d, size %d", rank, c.h.size)
	}
	return c.h.conns[rank], nil
}

func (c *hubComm) Send(ctx context.Context, dest int, rows *msg.Rows) error {
	conn, err := c.conn(dest)
	if err != nil {
		return err
	}
	message, err := msg.Encode(msg.RowsMsg, rows)
	if err != nil {
		return err
	}
	klog.V(1).InfoS("sending Rows", "rank", dest, "start", rows.Start, "rows", len(rows.Data), "size", humanize.Bytes(uint64(len(message))))
	return conn.send(ctx, message)
}

func (c *hubComm) Recv(ctx context.Context, src int) (*msg.Rows, error) {
	conn, err := c.conn(src)
	if err != nil {
		return nil, err
	}
	return conn.recvRows(ctx)
}

func (c *hubComm) Bcast(ctx context.Context, root int, buf []float64) error {
	if root < 0 || root >= c.h.size {
		return errors.Wrapf(ErrBadRank, "broadcast root %d, size %d", root, c.h.size)
	}
	if !c.h.ready() {
		return errors.New("workers are not registered yet")
	}
	c.seq++
	if root != Coordinator {
		conn, err := c.conn(root)
		if err != nil {
			return err
		}
		p, err := conn.recvPivot(ctx)
		if err != nil {
			return err
		}
		if p.Root != root || p.Seq != c.seq || len(p.Data) != len(buf) {
			return errors.Wrapf(ErrUnexpectedMessage, "pivot root=%d seq=%d len=%d, want root=%d seq=%d len=%d",
				p.Root, p.Seq, len(p.Data), root, c.seq, len(buf))
		}
		copy(buf, p.Data)
	}

	message, err := msg.Encode(msg.PivotMsg, &msg.Pivot{Root: root, Seq: c.seq, Data: buf})
	if err != nil {
		return err
	}
	for rank := 1; rank < c.h.size; rank++ {
		if rank == root {
			continue
		}
		if err := c.h.conns[rank].send(ctx, message); err != nil {
			return err
		}
	}
	return nil
}
