package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeIdentity(t *testing.T) {
	msg, err := Decode([]byte(`{"kind":"id","id":7}`))
	require.NoError(t, err)

	ident, ok := msg.(*IdentityAssignment)
	require.True(t, ok, "expected *IdentityAssignment, got %T", msg)
	assert.Equal(t, PeerID(7), ident.ID)
}

func TestDecodeSnapshot(t *testing.T) {
	raw := `{"kind":"positions","positions":{"3":{"x":1,"y":2,"z":3,"rotation":0.5,"animation":"walk"}}}`
	msg, err := Decode([]byte(raw))
	require.NoError(t, err)

	snap, ok := msg.(*SnapshotBroadcast)
	require.True(t, ok, "expected *SnapshotBroadcast, got %T", msg)
	require.Len(t, snap.Positions, 1)
	state := snap.Positions[PeerID(3)]
	assert.Equal(t, 1.0, state.X)
	assert.Equal(t, 2.0, state.Y)
	assert.Equal(t, 3.0, state.Z)
	assert.Equal(t, 0.5, state.Rotation)
	assert.Equal(t, AnimWalk, state.Animation)
}

func TestDecodeSnapshotWithoutPositionsYieldsEmptyMap(t *testing.T) {
	msg, err := Decode([]byte(`{"kind":"positions"}`))
	require.NoError(t, err)

	snap, ok := msg.(*SnapshotBroadcast)
	require.True(t, ok)
	assert.NotNil(t, snap.Positions)
	assert.Empty(t, snap.Positions)
}

func TestDecodeUpdate(t *testing.T) {
	raw := `{"kind":"position","position":{"x":-4,"y":0,"z":9.5,"rotation":3.14,"animation":"dash"},"seq":12}`
	msg, err := Decode([]byte(raw))
	require.NoError(t, err)

	update, ok := msg.(*InboundUpdate)
	require.True(t, ok, "expected *InboundUpdate, got %T", msg)
	assert.Equal(t, uint64(12), update.Seq)
	assert.Equal(t, AnimDash, update.Position.Animation)
	assert.Equal(t, -4.0, update.Position.X)
}

func TestDecodeUnknownKind(t *testing.T) {
	_, err := Decode([]byte(`{"kind":"teleport"}`))
	var unknown ErrUnknownKind
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "teleport", unknown.Kind)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode([]byte(`{"kind":`))
	assert.Error(t, err)
}

func TestEncodeDecodeSnapshotRoundTrip(t *testing.T) {
	in := map[PeerID]PeerState{
		1: {X: 1, Y: 2, Z: 3, Rotation: 0, Animation: AnimWalk},
		2: {X: -7, Y: 0.25, Z: 0, Rotation: 1.5, Animation: AnimJump},
	}
	data, err := EncodeSnapshot(in)
	require.NoError(t, err)

	msg, err := Decode(data)
	require.NoError(t, err)
	snap, ok := msg.(*SnapshotBroadcast)
	require.True(t, ok)
	assert.Equal(t, in, snap.Positions)
}
