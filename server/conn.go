package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// PeerConn wraps one websocket with a buffered send queue and a write
// pump, so the broadcast loop never blocks on a slow peer.
type PeerConn struct {
	ws           *websocket.Conn
	send         chan []byte
	writeTimeout time.Duration

	closeOnce sync.Once
	closed    chan struct{}
}

func NewPeerConn(ws *websocket.Conn, queueSize int, writeTimeout time.Duration) *PeerConn {
	return &PeerConn{
		ws:           ws,
		send:         make(chan []byte, queueSize),
		writeTimeout: writeTimeout,
		closed:       make(chan struct{}),
	}
}

// Enqueue queues a frame for the write pump. Non-blocking: a full queue
// means the peer is backpressured and the frame is dropped in favor of
// fresher ones; a closing connection refuses the frame outright.
func (c *PeerConn) Enqueue(frame []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close shuts the connection down. Safe to call from any goroutine and
// more than once.
func (c *PeerConn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.ws.Close()
	})
}

// WritePump drains the send queue onto the socket. Runs as its own
// goroutine per connection; exits when the connection closes or a write
// fails.
func (c *PeerConn) WritePump() {
	defer c.Close()
	for {
		select {
		case <-c.closed:
			return
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
	}
}
