package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"relay/protocol"
)

// HandlerConfig carries the per-connection tunables.
type HandlerConfig struct {
	SendQueueSize int
	ReadLimit     int64
	WriteTimeout  time.Duration
	PongTimeout   time.Duration
}

// Handler accepts websocket connections and runs their read side:
// assign an id, register the session, decode inbound updates into the
// registry, evict on close or error.
type Handler struct {
	registry *Registry
	metrics  *Metrics
	log      *zap.SugaredLogger
	cfg      HandlerConfig
	upgrader websocket.Upgrader
}

func NewHandler(registry *Registry, metrics *Metrics, log *zap.SugaredLogger, cfg HandlerConfig) *Handler {
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = 64
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = 1 << 20
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 60 * time.Second
	}
	return &Handler{
		registry: registry,
		metrics:  metrics,
		log:      log,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from arbitrary origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleWS upgrades the request and serves the connection until it
// closes. The session is registered before the id frame is sent: the
// client does not need its id to receive broadcasts, and this ordering
// guarantees it never misses a tick it appears in.
func (h *Handler) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("upgrade failed: %v", err)
		return
	}

	id := h.registry.AllocateID()
	conn := NewPeerConn(ws, h.cfg.SendQueueSize, h.cfg.WriteTimeout)
	h.registry.Put(id, &Session{ID: id, Conn: conn})
	h.metrics.IncSessionJoined()
	h.log.Infof("peer %d connected from %s", id, r.RemoteAddr)

	go conn.WritePump()

	frame, err := protocol.EncodeIdentity(id)
	if err != nil {
		h.log.Errorf("encode identity for peer %d: %v", id, err)
		h.evict(id, conn)
		return
	}
	if !conn.Enqueue(frame) {
		h.evict(id, conn)
		return
	}

	h.readPump(id, conn, ws)
}

// readPump decodes inbound frames until the connection dies. Malformed
// or unknown frames are logged and dropped, never fatal to the
// connection.
func (h *Handler) readPump(id protocol.PeerID, conn *PeerConn, ws *websocket.Conn) {
	defer h.evict(id, conn)

	ws.SetReadLimit(h.cfg.ReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	})

	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			return
		}

		msg, err := protocol.Decode(payload)
		if err != nil {
			var unknown protocol.ErrUnknownKind
			if errors.As(err, &unknown) {
				h.metrics.IncUnknownFrame()
				h.log.Debugf("discarding frame from peer %d: %v", id, err)
			} else {
				h.metrics.IncMalformed()
				h.log.Debugf("discarding malformed frame from peer %d: %v", id, err)
			}
			continue
		}

		switch m := msg.(type) {
		case *protocol.InboundUpdate:
			applied, stale := h.registry.UpdateState(id, m.Position, m.Seq)
			if applied {
				h.metrics.IncUpdateApplied()
			} else if stale {
				h.metrics.IncStaleSeq()
			}
		default:
			// Server-bound traffic is position updates only.
			h.metrics.IncUnknownFrame()
			h.log.Debugf("discarding unexpected %T from peer %d", msg, id)
		}
	}
}

// evict removes the session exactly once, even when close and error fire
// for the same connection.
func (h *Handler) evict(id protocol.PeerID, conn *PeerConn) {
	conn.Close()
	if h.registry.Remove(id) {
		h.metrics.IncSessionEvicted()
		h.log.Infof("peer %d disconnected", id)
	}
}
