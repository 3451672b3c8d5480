package client

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"relay/protocol"
)

// State is the connection manager's lifecycle position.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// wsConn is the slice of *websocket.Conn the manager uses, kept narrow so
// tests can substitute a fake transport.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type dialFunc func(url string) (wsConn, error)

func gorillaDial(url string) (wsConn, error) {
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil {
		resp.Body.Close()
	}
	return conn, err
}

// Manager owns the single outbound connection. It dials on Start,
// redials on a fixed delay after every drop, and exposes a send-if-open
// primitive. Outbound state is never queued across disconnects; a
// reconnected peer just resumes sending fresh state.
type Manager struct {
	url            string
	reconnectDelay time.Duration
	cache          *EntityCache
	log            *zap.SugaredLogger
	dial           dialFunc

	mu     sync.Mutex
	state  State
	conn   wsConn
	id     protocol.PeerID
	hasID  bool
	seq    uint64
	closed bool
	retry  *time.Timer
}

// NewManager builds a manager for the given ws URL. reconnectDelay is the
// fixed backoff between a drop and the next dial attempt.
func NewManager(url string, reconnectDelay time.Duration, cache *EntityCache, log *zap.SugaredLogger) *Manager {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Manager{
		url:            url,
		reconnectDelay: reconnectDelay,
		cache:          cache,
		log:            log,
		dial:           gorillaDial,
	}
}

// Start begins connecting. It returns immediately; connection progress is
// observable via State.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.closed || m.state != StateDisconnected {
		m.mu.Unlock()
		return
	}
	m.state = StateConnecting
	m.mu.Unlock()
	go m.connect()
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ID returns the peer id assigned by the server and whether one has been
// received on the current connection.
func (m *Manager) ID() (protocol.PeerID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, m.hasID
}

// Send transmits the local state if the connection is open. Anything else
// is a silent drop: no queueing, no error.
func (m *Manager) Send(state protocol.PeerState) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConnected || m.conn == nil {
		return false
	}
	m.seq++
	frame, err := protocol.EncodeUpdate(state, m.seq)
	if err != nil {
		m.log.Errorf("encode update: %v", err)
		return false
	}
	if err := m.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		// The read loop notices the broken transport and reconnects.
		m.log.Debugf("send failed: %v", err)
		return false
	}
	return true
}

// Close tears the manager down: no further reconnects, connection closed,
// remote entity cache cleared so no remote outlives the session.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.state = StateDisconnected
	m.hasID = false
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if m.cache != nil {
		m.cache.Clear()
	}
}

func (m *Manager) connect() {
	conn, err := m.dial(m.url)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		m.state = StateDisconnected
		m.scheduleReconnectLocked()
		m.mu.Unlock()
		m.log.Warnf("connect to %s failed: %v", m.url, err)
		return
	}
	m.state = StateConnected
	m.conn = conn
	m.seq = 0
	m.mu.Unlock()

	m.log.Infof("connected to %s", m.url)
	go m.readLoop(conn)
}

// scheduleReconnectLocked arms the fixed-delay retry timer. Caller holds
// m.mu.
func (m *Manager) scheduleReconnectLocked() {
	m.retry = time.AfterFunc(m.reconnectDelay, func() {
		m.mu.Lock()
		if m.closed || m.state != StateDisconnected {
			m.mu.Unlock()
			return
		}
		m.state = StateConnecting
		m.mu.Unlock()
		m.connect()
	})
}

// readLoop processes inbound frames in arrival order until the transport
// drops, then flips to Disconnected and arms the reconnect timer.
func (m *Manager) readLoop(conn wsConn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			m.onDisconnect(conn, err)
			return
		}
		m.handle(payload)
	}
}

func (m *Manager) onDisconnect(conn wsConn, cause error) {
	_ = conn.Close()

	m.mu.Lock()
	if m.closed || m.conn != conn {
		m.mu.Unlock()
		return
	}
	m.state = StateDisconnected
	m.conn = nil
	m.hasID = false
	m.scheduleReconnectLocked()
	m.mu.Unlock()

	m.log.Warnf("connection lost: %v; retrying in %s", cause, m.reconnectDelay)
	// Degrade to "no remote peers visible" while offline.
	if m.cache != nil {
		m.cache.Clear()
	}
}

func (m *Manager) handle(payload []byte) {
	msg, err := protocol.Decode(payload)
	if err != nil {
		m.log.Debugf("discarding inbound frame: %v", err)
		return
	}

	switch frame := msg.(type) {
	case *protocol.IdentityAssignment:
		m.mu.Lock()
		if !m.hasID {
			m.id = frame.ID
			m.hasID = true
		}
		m.mu.Unlock()
		m.log.Infof("assigned peer id %d", frame.ID)
	case *protocol.SnapshotBroadcast:
		m.mu.Lock()
		id, hasID := m.id, m.hasID
		m.mu.Unlock()
		// Handed over unconditionally, empty ticks included.
		if m.cache != nil {
			m.cache.Reconcile(frame.Positions, id, hasID)
		}
	default:
		m.log.Debugf("discarding unexpected %T frame", msg)
	}
}
