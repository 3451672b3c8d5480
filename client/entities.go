package client

import (
	"sync"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"relay/protocol"
)

// Renderer is the visual side of a remote entity, out of scope here.
// Create/Update/SetAnimation/Destroy are invoked from the reconcile pass
// on the connection manager's read goroutine.
type Renderer interface {
	Create(id protocol.PeerID, state protocol.PeerState)
	Update(id protocol.PeerID, position mgl64.Vec3, yaw float64)
	SetAnimation(id protocol.PeerID, anim protocol.Animation)
	Destroy(id protocol.PeerID)
}

// RemoteEntity is the local stand-in for another peer.
type RemoteEntity struct {
	PeerID        protocol.PeerID
	Position      mgl64.Vec3
	Yaw           float64
	LastAnimation protocol.Animation
}

// EntityCache reconciles each snapshot against the set of instantiated
// remote entities. Entities are created lazily on first sight and
// disposed the first tick their peer is absent. Insertion order is kept
// so update and dispose callbacks fire deterministically.
type EntityCache struct {
	renderer Renderer
	log      *zap.SugaredLogger

	mu       sync.Mutex
	entities *orderedmap.OrderedMap[protocol.PeerID, *RemoteEntity]
}

func NewEntityCache(renderer Renderer, log *zap.SugaredLogger) *EntityCache {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &EntityCache{
		renderer: renderer,
		log:      log,
		entities: orderedmap.NewOrderedMap[protocol.PeerID, *RemoteEntity](),
	}
}

// Reconcile applies one snapshot. Idempotent: a second pass with the same
// snapshot creates and disposes nothing. Runs in O(peers in snapshot +
// entities in cache).
func (c *EntityCache) Reconcile(peers map[protocol.PeerID]protocol.PeerState, localID protocol.PeerID, haveLocalID bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Known entities first, in first-seen order: update present ones,
	// dispose the rest. The local peer's entry (possible while the id was
	// still unknown) is disposed the moment the id arrives.
	var gone []protocol.PeerID
	for el := c.entities.Front(); el != nil; el = el.Next() {
		state, present := peers[el.Key]
		if !present || (haveLocalID && el.Key == localID) {
			gone = append(gone, el.Key)
			continue
		}
		c.updateEntity(el.Value, state)
	}
	for _, id := range gone {
		c.entities.Delete(id)
		c.renderer.Destroy(id)
		c.log.Debugf("remote entity %d disposed", id)
	}

	// Newly seen peers.
	for id, state := range peers {
		if haveLocalID && id == localID {
			continue
		}
		if _, ok := c.entities.Get(id); ok {
			continue
		}
		entity := &RemoteEntity{
			PeerID:        id,
			Position:      mgl64.Vec3{state.X, state.Y, state.Z},
			Yaw:           state.Rotation,
			LastAnimation: state.Animation,
		}
		c.entities.Set(id, entity)
		c.renderer.Create(id, state)
		c.log.Debugf("remote entity %d created", id)
	}
}

func (c *EntityCache) updateEntity(e *RemoteEntity, state protocol.PeerState) {
	e.Position = mgl64.Vec3{state.X, state.Y, state.Z}
	e.Yaw = state.Rotation
	c.renderer.Update(e.PeerID, e.Position, e.Yaw)
	if state.Animation != e.LastAnimation {
		e.LastAnimation = state.Animation
		c.renderer.SetAnimation(e.PeerID, state.Animation)
	}
}

// Clear disposes every entity. Called on teardown and on connection loss.
func (c *EntityCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for el := c.entities.Front(); el != nil; el = el.Next() {
		c.renderer.Destroy(el.Key)
	}
	c.entities = orderedmap.NewOrderedMap[protocol.PeerID, *RemoteEntity]()
}

// Len returns the number of live remote entities.
func (c *EntityCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entities.Len()
}

// Get returns a copy of the entity for id, if present.
func (c *EntityCache) Get(id protocol.PeerID) (RemoteEntity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entities.Get(id)
	if !ok {
		return RemoteEntity{}, false
	}
	return *e, true
}
