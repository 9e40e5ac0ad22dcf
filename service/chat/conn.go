package chat

import (
	"net"
	"sync"
	"time"

	"duochat/logger"
	"duochat/tools/ids"

	"github.com/gorilla/websocket"
)

const (
	sendQueueSize = 256
	writeWait     = 5 * time.Second
)

// Handle is one live connection as the registry sees it. At most one handle
// per user id is retained at a time.
type Handle interface {
	SessionID() string
	UserID() string
	// Deliver enqueues a wire frame; it never blocks and never reports
	// failure. A full queue or a closed connection drops the frame.
	Deliver(frame []byte)
	Close()
}

// ClientConn wraps one websocket connection: a buffered send queue drained by
// a single write pump. FIFO queue + single writer is what preserves delivery
// order per handle.
type ClientConn struct {
	sessionID string
	userID    string
	Remote    net.Addr
	CreatedAt time.Time

	conn      *websocket.Conn
	sendCh    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClientConn(userID string, ws *websocket.Conn) *ClientConn {
	c := &ClientConn{
		sessionID: ids.GenerateString(),
		userID:    userID,
		conn:      ws,
		sendCh:    make(chan []byte, sendQueueSize),
		done:      make(chan struct{}),
		CreatedAt: time.Now(),
	}
	if ra := ws.RemoteAddr(); ra != nil {
		c.Remote = ra
	}
	go c.writePump()
	return c
}

func (c *ClientConn) SessionID() string { return c.sessionID }
func (c *ClientConn) UserID() string    { return c.userID }

func (c *ClientConn) Deliver(frame []byte) {
	select {
	case <-c.done:
	case c.sendCh <- frame:
	default:
		logger.Warnf("[ClientConn] send queue full, drop frame user=%s session=%s", c.userID, c.sessionID)
	}
}

// Close stops the write pump and the physical connection. Idempotent; safe to
// call for an already-orphaned handle.
func (c *ClientConn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *ClientConn) writePump() {
	defer func() {
		_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.sendCh:
			if err := writeText(c.conn, frame, writeWait); err != nil {
				logger.Infof("[ClientConn] write err user=%s session=%s err=%v", c.userID, c.sessionID, err)
				c.Close()
				return
			}
		}
	}
}

func writeText(conn *websocket.Conn, data []byte, wait time.Duration) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
