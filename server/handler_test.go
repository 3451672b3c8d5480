package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"relay/protocol"
)

type testRelay struct {
	registry *Registry
	metrics  *Metrics
	bcast    *Broadcaster
	srv      *httptest.Server
}

func newTestRelay(t *testing.T) *testRelay {
	t.Helper()
	registry := NewRegistry()
	metrics := &Metrics{}
	log := zap.NewNop().Sugar()
	handler := NewHandler(registry, metrics, log, HandlerConfig{})
	srv := httptest.NewServer(http.HandlerFunc(handler.HandleWS))
	t.Cleanup(srv.Close)
	return &testRelay{
		registry: registry,
		metrics:  metrics,
		bcast:    NewBroadcaster(registry, metrics, log, 33*time.Millisecond),
		srv:      srv,
	}
}

func (tr *testRelay) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(tr.srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readIdentity(t *testing.T, conn *websocket.Conn) protocol.PeerID {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := protocol.Decode(payload)
	require.NoError(t, err)
	ident, ok := msg.(*protocol.IdentityAssignment)
	require.True(t, ok, "first frame must be the identity assignment, got %T", msg)
	return ident.ID
}

func readSnapshot(t *testing.T, conn *websocket.Conn) *protocol.SnapshotBroadcast {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := protocol.Decode(payload)
	require.NoError(t, err)
	snap, ok := msg.(*protocol.SnapshotBroadcast)
	require.True(t, ok, "expected snapshot frame, got %T", msg)
	return snap
}

func waitForSessions(t *testing.T, registry *Registry, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return registry.Len() == n },
		2*time.Second, 5*time.Millisecond)
}

func TestConnectReceivesIdentityFirst(t *testing.T) {
	tr := newTestRelay(t)
	conn := tr.dial(t)

	id := readIdentity(t, conn)
	assert.NotZero(t, id)
	waitForSessions(t, tr.registry, 1)
}

func TestUpdateIsRelayedToOtherPeer(t *testing.T) {
	tr := newTestRelay(t)

	connA := tr.dial(t)
	connB := tr.dial(t)
	idA := readIdentity(t, connA)
	_ = readIdentity(t, connB)
	waitForSessions(t, tr.registry, 2)

	frame, err := protocol.EncodeUpdate(protocol.PeerState{
		X: 1, Y: 2, Z: 3, Rotation: 0, Animation: protocol.AnimWalk,
	}, 1)
	require.NoError(t, err)
	require.NoError(t, connA.WriteMessage(websocket.TextMessage, frame))

	// The update lands in the registry before the tick that relays it.
	require.Eventually(t, func() bool {
		return tr.registry.Snapshot()[idA].X == 1
	}, 2*time.Second, 5*time.Millisecond)

	tr.bcast.Tick()
	snap := readSnapshot(t, connB)

	require.Contains(t, snap.Positions, idA)
	state := snap.Positions[idA]
	assert.Equal(t, 1.0, state.X)
	assert.Equal(t, 2.0, state.Y)
	assert.Equal(t, 3.0, state.Z)
	assert.Equal(t, 0.0, state.Rotation)
	assert.Equal(t, protocol.AnimWalk, state.Animation)
}

func TestDisconnectedPeerLeavesNextSnapshot(t *testing.T) {
	tr := newTestRelay(t)

	connA := tr.dial(t)
	connB := tr.dial(t)
	idA := readIdentity(t, connA)
	_ = readIdentity(t, connB)
	waitForSessions(t, tr.registry, 2)

	connA.Close()
	waitForSessions(t, tr.registry, 1)

	tr.bcast.Tick()
	snap := readSnapshot(t, connB)
	assert.NotContains(t, snap.Positions, idA)
}

func TestMalformedFrameDoesNotCloseConnection(t *testing.T) {
	tr := newTestRelay(t)
	conn := tr.dial(t)
	id := readIdentity(t, conn)
	waitForSessions(t, tr.registry, 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{not json`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"kind":"teleport"}`)))

	frame, err := protocol.EncodeUpdate(protocol.PeerState{X: 5, Animation: protocol.AnimRun}, 0)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))

	// The session survived the garbage and still applies good updates.
	require.Eventually(t, func() bool {
		return tr.registry.Snapshot()[id].X == 5
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, tr.registry.Len())
	assert.Equal(t, int64(1), tr.metrics.Snapshot()["malformed_frames"])
	assert.Equal(t, int64(1), tr.metrics.Snapshot()["unknown_frames"])
}

func TestStaleSeqIsDiscarded(t *testing.T) {
	tr := newTestRelay(t)
	conn := tr.dial(t)
	id := readIdentity(t, conn)
	waitForSessions(t, tr.registry, 1)

	send := func(x float64, seq uint64) {
		frame, err := protocol.EncodeUpdate(protocol.PeerState{X: x, Animation: protocol.AnimIdle}, seq)
		require.NoError(t, err)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
	}

	send(10, 5)
	require.Eventually(t, func() bool {
		return tr.registry.Snapshot()[id].X == 10
	}, 2*time.Second, 5*time.Millisecond)

	send(99, 4)
	require.Eventually(t, func() bool {
		return tr.metrics.Snapshot()["stale_seq_ignored"].(int64) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 10.0, tr.registry.Snapshot()[id].X)
}
