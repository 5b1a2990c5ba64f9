// Package worker implements a remote rank that joins a coordinator's group
// over a websocket connection.
package worker

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hnakamur/gjinverse"
	"github.com/hnakamur/gjinverse/msg"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

type Worker struct {
	serverURL url.URL
	rank      int
	config    gjinverse.WorkerConfig

	conn  *websocket.Conn
	size  int
	runID string

	sendC  chan []byte
	rowsC  chan *msg.Rows
	pivotC chan *msg.Pivot

	// doneC is closed when the read pump stops, closeC when Close is called.
	doneC     chan struct{}
	closeC    chan struct{}
	closeOnce sync.Once
	writeDone chan struct{}
}

func NewWorker(serverURL url.URL, rank int, config gjinverse.WorkerConfig) *Worker {
	return &Worker{
		serverURL: serverURL,
		rank:      rank,
		config:    config,
	}
}

// Size returns the group size announced by the coordinator. It is valid
// after Connect returns nil.
func (w *Worker) Size() int { return w.size }

// RunID returns the coordinator's run identifier.
func (w *Worker) RunID() string { return w.runID }

// Connect dials the coordinator, retrying until it accepts the connection
// or ctx is done, and waits for the registration result.
func (w *Worker) Connect(ctx context.Context) error {
	header := http.Header{}
	header.Set(gjinverse.WorkerRankHeaderName, strconv.Itoa(w.rank))
	for {
		klog.V(1).InfoS("connecting to server", "address", w.serverURL.String(), "rank", w.rank)
		c, _, err := websocket.DefaultDialer.DialContext(ctx, w.serverURL.String(), header)
		if err == nil {
			w.conn = c
			break
		}
		klog.ErrorS(err, "dial error", "address", w.serverURL.String())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.config.DelayBeforeReconnecting):
			klog.V(1).InfoS("retrying connect to server")
		}
	}
	w.conn.SetReadLimit(w.config.MaxMessageSize)

	if err := w.register(); err != nil {
		w.conn.Close()
		w.conn = nil
		return err
	}
	klog.InfoS("registered myself as worker", "rank", w.rank, "size", w.size, "runID", w.runID)

	w.sendC = make(chan []byte, w.config.SendChannelLength)
	w.rowsC = make(chan *msg.Rows, 1)
	w.pivotC = make(chan *msg.Pivot, w.config.SendChannelLength)
	w.doneC = make(chan struct{})
	w.closeC = make(chan struct{})
	w.writeDone = make(chan struct{})
	go w.readPump()
	go w.writePump()
	return nil
}

func (w *Worker) register() error {
	wsMsgType, r, err := w.conn.NextReader()
	if err != nil {
		return errors.Wrap(err, "read registration result")
	}
	if wsMsgType != websocket.BinaryMessage {
		return errors.Wrapf(gjinverse.ErrUnexpectedMessage, "websocket message type %d", wsMsgType)
	}
	_, m, err := msg.Decode(r)
	if err != nil {
		return err
	}
	res, ok := m.(*msg.RegisterWorkerResult)
	if !ok {
		return errors.Wrapf(gjinverse.ErrUnexpectedMessage, "%T before registration", m)
	}
	if res.Error != "" {
		return errors.Errorf("failed to register worker: %s", res.Error)
	}
	w.size = res.Size
	w.runID = res.RunID
	return nil
}

func (w *Worker) readPump() {
	defer close(w.doneC)
	for {
		wsMsgType, r, err := w.conn.NextReader()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				klog.ErrorS(err, "read error", "rank", w.rank)
			}
			return
		}
		if wsMsgType != websocket.BinaryMessage {
			klog.ErrorS(gjinverse.ErrUnexpectedMessage, "unexpected websocket message type", "wsMsgType", wsMsgType)
			return
		}
		msgType, m, err := msg.Decode(r)
		if err != nil {
			klog.ErrorS(err, "decode error", "rank", w.rank)
			return
		}
		switch m := m.(type) {
		case *msg.Rows:
			klog.V(1).InfoS("received Rows", "rank", w.rank, "start", m.Start, "rows", len(m.Data))
			w.rowsC <- m
		case *msg.Pivot:
			w.pivotC <- m
		default:
			klog.ErrorS(gjinverse.ErrUnexpectedMessage, "unexpected message from server", "messageType", msgType)
			return
		}
	}
}

func (w *Worker) writePump() {
	defer close(w.writeDone)
	for {
		select {
		case b := <-w.sendC:
			if err := w.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
				klog.ErrorS(err, "write error", "rank", w.rank)
				return
			}
		case <-w.closeC:
			// Flush what Send already queued before the close frame.
		flush:
			for {
				select {
				case b := <-w.sendC:
					if err := w.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
						klog.ErrorS(err, "write error", "rank", w.rank)
						return
					}
				default:
					break flush
				}
			}
			// To cleanly close a connection, a worker should send a close
			// frame and wait for the server to close the connection.
			err := w.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				klog.ErrorS(err, "write close error", "rank", w.rank)
			}
			return
		case <-w.doneC:
			return
		}
	}
}

// Close sends a close frame after any queued messages and waits for the
// server to close the connection, at most DelayAfterSendingClose.
func (w *Worker) Close() error {
	if w.conn == nil || w.closeC == nil {
		return nil
	}
	w.closeOnce.Do(func() { close(w.closeC) })
	<-w.writeDone
	select {
	case <-w.doneC:
	case <-time.After(w.config.DelayAfterSendingClose):
	}
	return w.conn.Close()
}

// Comm returns this worker's Comm. Point-to-point messages only go to and
// come from the coordinator.
func (w *Worker) Comm() gjinverse.Comm {
	return &workerComm{w: w}
}

// Run connects, takes part in one inversion and closes the connection.
func (w *Worker) Run(ctx context.Context, opts ...gjinverse.Option) error {
	if err := w.Connect(ctx); err != nil {
		return err
	}
	defer w.Close()
	_, err := gjinverse.Run(ctx, w.Comm(), nil, opts...)
	return err
}

type workerComm struct {
	w   *Worker
	seq uint64
}

func (c *workerComm) Rank() int { return c.w.rank }
func (c *workerComm) Size() int { return c.w.size }

func (c *workerComm) send(ctx context.Context, t msg.MessageType, v interface{}) error {
	b, err := msg.Encode(t, v)
	if err != nil {
		return err
	}
	select {
	case c.w.sendC <- b:
		return nil
	case <-c.w.doneC:
		return errors.Wrap(gjinverse.ErrWorkerLost, "coordinator closed the connection")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *workerComm) Send(ctx context.Context, dest int, rows *msg.Rows) error {
	if dest != gjinverse.Coordinator {
		return errors.Wrapf(gjinverse.ErrBadRank, "remote workers only send to the coordinator, not %d", dest)
	}
	return c.send(ctx, msg.RowsMsg, rows)
}

func (c *workerComm) Recv(ctx context.Context, src int) (*msg.Rows, error) {
	if src != gjinverse.Coordinator {
		return nil, errors.Wrapf(gjinverse.ErrBadRank, "remote workers only receive from the coordinator, not %d", src)
	}
	select {
	case m := <-c.w.rowsC:
		return m, nil
	default:
	}
	select {
	case m := <-c.w.rowsC:
		return m, nil
	case <-c.w.doneC:
		select {
		case m := <-c.w.rowsC:
			return m, nil
		default:
		}
		return nil, errors.Wrap(gjinverse.ErrWorkerLost, "coordinator closed the connection")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *workerComm) Bcast(ctx context.Context, root int, buf []float64) error {
	if root < 0 || root >= c.w.size {
		return errors.Wrapf(gjinverse.ErrBadRank, "broadcast root %d, size %d", root, c.w.size)
	}
	c.seq++
	if root == c.w.rank {
		return c.send(ctx, msg.PivotMsg, &msg.Pivot{Root: root, Seq: c.seq, Data: buf})
	}
	p, err := c.recvPivot(ctx)
	if err != nil {
		return err
	}
	if p.Root != root || p.Seq != c.seq || len(p.Data) != len(buf) {
		return errors.Wrapf(gjinverse.ErrUnexpectedMessage, "pivot root=%d seq=%d len=%d, want root=%d seq=%d len=%d",
			p.Root, p.Seq, len(p.Data), root, c.seq, len(buf))
	}
	copy(buf, p.Data)
	return nil
}

// recvPivot prefers a buffered pivot over doneC, as Recv does for rows.
func (c *workerComm) recvPivot(ctx context.Context) (*msg.Pivot, error) {
	select {
	case p := <-c.w.pivotC:
		return p, nil
	default:
	}
	select {
	case p := <-c.w.pivotC:
		return p, nil
	case <-c.w.doneC:
		select {
		case p := <-c.w.pivotC:
			return p, nil
		default:
		}
		return nil, errors.Wrap(gjinverse.ErrWorkerLost, "coordinator closed the connection")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
