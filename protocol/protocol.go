package protocol

// Message kinds carried in the "kind" field of every frame.
const (
	// KindIdentity is sent once per connection, server to client, before
	// any snapshot reaches that connection.
	KindIdentity = "id"
	// KindPositions is the per-tick snapshot of every registered peer.
	KindPositions = "positions"
	// KindPosition is a client's latest transform and animation state.
	KindPosition = "position"
)

// PeerID identifies one connected peer for the lifetime of its connection.
type PeerID uint64

// PeerState is the last transform a peer reported. The relay never
// interpolates or corrects it.
type PeerState struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	Rotation  float64   `json:"rotation"` // yaw, radians
	Animation Animation `json:"animation"`
}

// IdentityAssignment tells a freshly accepted connection its peer id.
type IdentityAssignment struct {
	Kind string `json:"kind"`
	ID   PeerID `json:"id"`
}

// SnapshotBroadcast carries the state of every registered peer,
// unchanged peers included.
type SnapshotBroadcast struct {
	Kind      string               `json:"kind"`
	Positions map[PeerID]PeerState `json:"positions"`
}

// InboundUpdate is a client's state report. Seq is optional; when set it
// increases monotonically per connection so the relay can discard updates
// that arrive behind the last applied one.
type InboundUpdate struct {
	Kind     string    `json:"kind"`
	Position PeerState `json:"position"`
	Seq      uint64    `json:"seq,omitempty"`
}
