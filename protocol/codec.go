package protocol

import (
	"encoding/json"
	"fmt"
)

// ErrUnknownKind is returned by Decode for frames whose kind has no
// handler. Callers log and drop these; they are never fatal to the
// connection.
type ErrUnknownKind struct {
	Kind string
}

func (e ErrUnknownKind) Error() string {
	return fmt.Sprintf("unknown message kind %q", e.Kind)
}

// Decode parses one wire frame into its concrete message type. The result
// is one of *IdentityAssignment, *SnapshotBroadcast or *InboundUpdate.
func Decode(data []byte) (any, error) {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	switch probe.Kind {
	case KindIdentity:
		var msg IdentityAssignment
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode %s frame: %w", probe.Kind, err)
		}
		return &msg, nil
	case KindPositions:
		var msg SnapshotBroadcast
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode %s frame: %w", probe.Kind, err)
		}
		if msg.Positions == nil {
			msg.Positions = map[PeerID]PeerState{}
		}
		return &msg, nil
	case KindPosition:
		var msg InboundUpdate
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode %s frame: %w", probe.Kind, err)
		}
		return &msg, nil
	default:
		return nil, ErrUnknownKind{Kind: probe.Kind}
	}
}

// EncodeIdentity builds the one-shot id assignment frame.
func EncodeIdentity(id PeerID) ([]byte, error) {
	return json.Marshal(IdentityAssignment{Kind: KindIdentity, ID: id})
}

// EncodeSnapshot builds a positions frame from a registry snapshot.
func EncodeSnapshot(positions map[PeerID]PeerState) ([]byte, error) {
	return json.Marshal(SnapshotBroadcast{Kind: KindPositions, Positions: positions})
}

// EncodeUpdate builds a client state report.
func EncodeUpdate(state PeerState, seq uint64) ([]byte, error) {
	return json.Marshal(InboundUpdate{Kind: KindPosition, Position: state, Seq: seq})
}
