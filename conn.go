package gjinverse

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hnakamur/gjinverse/msg"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Conn is a middleman between a remote worker's websocket connection and
// the hub.
type Conn struct {
	// The websocket connection.
	ws *websocket.Conn

	// Rank announced by the worker.
	rank int

	config ConnConfig

	// Buffered channel of outbound messages.
	sendC chan []byte

	// Inbound messages, in the order the worker sent them.
	rowsC  chan *msg.Rows
	pivotC chan *msg.Pivot

	// Closed when the read pump stops.
	doneC     chan struct{}
	closeOnce sync.Once
}

// NewConn creates a Conn for a worker of the given rank.
func NewConn(ws *websocket.Conn, rank int, config ConnConfig) *Conn {
	return &Conn{
		ws:     ws,
		rank:   rank,
		config: config,
		sendC:  make(chan []byte, config.SendChannelLength),
		rowsC:  make(chan *msg.Rows, 1),
		pivotC: make(chan *msg.Pivot, config.SendChannelLength),
		doneC:  make(chan struct{}),
	}
}

// RegisterToHub registers c to h and tells the worker the outcome.
func (c *Conn) RegisterToHub(h *Hub) error {
	registeredC := make(chan error)
	req := registerWorkerRequest{
		conn:    c,
		resultC: registeredC,
	}
	var regErr error
	select {
	case h.registerWorkerC <- req:
		regErr = <-registeredC
	case <-h.stoppedC:
		regErr = errors.New("hub stopped")
	}
	res := msg.RegisterWorkerResult{RunID: h.runID, Size: h.size}
	if regErr != nil {
		res.Error = regErr.Error()
	}
	message, err := msg.Encode(msg.RegisterWorkerResultMsg, &res)
	if err != nil {
		return err
	}
	if regErr != nil {
		// No pumps run for a rejected worker.
		c.write(websocket.BinaryMessage, message)
		c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, res.Error))
		c.ws.Close()
		return regErr
	}
	c.sendC <- message
	return nil
}

// Run pumps messages in both directions until the connection is closed.
func (c *Conn) Run(h *Hub) {
	go c.writePump()
	c.readPump(h)
}

func (c *Conn) done() {
	c.closeOnce.Do(func() { close(c.doneC) })
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Conn) readPump(h *Hub) {
	defer func() {
		c.done()
		select {
		case h.unregisterWorkerC <- c:
		case <-h.stoppedC:
		}
		c.ws.Close()
	}()
	c.ws.SetReadLimit(c.config.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})
	for {
		wsMsgType, r, err := c.ws.NextReader()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				klog.ErrorS(err, "read error", "rank", c.rank)
			}
			return
		}
		if wsMsgType != websocket.BinaryMessage {
			klog.ErrorS(ErrUnexpectedMessage, "unexpected websocket message type", "rank", c.rank, "wsMsgType", wsMsgType)
			return
		}
		msgType, m, err := msg.Decode(r)
		if err != nil {
			klog.ErrorS(err, "decode error", "rank", c.rank)
			return
		}
		switch m := m.(type) {
		case *msg.Rows:
			klog.V(1).InfoS("received Rows", "rank", c.rank, "start", m.Start, "rows", len(m.Data))
			c.rowsC <- m
		case *msg.Pivot:
			c.pivotC <- m
		default:
			klog.ErrorS(ErrUnexpectedMessage, "unexpected message from worker", "rank", c.rank, "messageType", msgType)
			return
		}
	}
}

// write writes a message with the given message type and payload.
func (c *Conn) write(mt int, payload []byte) error {
	c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
	return c.ws.WriteMessage(mt, payload)
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()
	for {
		select {
		case message := <-c.sendC:
			if err := c.write(websocket.BinaryMessage, message); err != nil {
				klog.ErrorS(err, "write error", "rank", c.rank)
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		case <-c.doneC:
			c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// send queues message for the worker.
func (c *Conn) send(ctx context.Context, message []byte) error {
	select {
	case c.sendC <- message:
		return nil
	case <-c.doneC:
		return errors.Wrapf(ErrWorkerLost, "rank %d", c.rank)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// recvRows and recvPivot prefer a buffered message over doneC: readPump
// closes doneC only after its last push, so a worker that sent its final
// messages and closed is not reported lost.
func (c *Conn) recvRows(ctx context.Context) (*msg.Rows, error) {
	select {
	case m := <-c.rowsC:
		return m, nil
	default:
	}
	select {
	case m := <-c.rowsC:
		return m, nil
	case <-c.doneC:
		select {
		case m := <-c.rowsC:
			return m, nil
		default:
		}
		return nil, errors.Wrapf(ErrWorkerLost, "rank %d", c.rank)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Conn) recvPivot(ctx context.Context) (*msg.Pivot, error) {
	select {
	case p := <-c.pivotC:
		return p, nil
	default:
	}
	select {
	case p := <-c.pivotC:
		return p, nil
	case <-c.doneC:
		select {
		case p := <-c.pivotC:
			return p, nil
		default:
		}
		return nil, errors.Wrapf(ErrWorkerLost, "rank %d", c.rank)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// close stops the connection from the hub side.
func (c *Conn) close() {
	c.done()
}
