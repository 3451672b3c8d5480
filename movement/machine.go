package movement

import (
	"go.uber.org/zap"

	"relay/protocol"
)

// TargetSet is the set of animation states the current skin can actually
// play. States outside the set are substituted via the fallback chain.
type TargetSet map[protocol.Animation]struct{}

// NewTargetSet builds a TargetSet from the given states.
func NewTargetSet(states ...protocol.Animation) TargetSet {
	set := make(TargetSet, len(states))
	for _, s := range states {
		set[s] = struct{}{}
	}
	return set
}

// Has reports whether the set contains s. A nil set has every state, so a
// Machine without an explicit target set never substitutes.
func (s TargetSet) Has(a protocol.Animation) bool {
	if s == nil {
		return true
	}
	_, ok := s[a]
	return ok
}

// Select reduces the flag bag to one discrete state. Not a transition
// table: the first true flag in priority order wins, so short exclusive
// abilities are never masked by jump/fall even while airborne.
func Select(f Flags) protocol.Animation {
	switch {
	case f.Dashing:
		return protocol.AnimDash
	case f.Sliding:
		return protocol.AnimSlide
	case f.WallRunning:
		return protocol.AnimWallRun
	case f.DoubleJumping:
		return protocol.AnimDoubleJump
	case f.Jumping:
		return protocol.AnimJump
	case f.Falling:
		return protocol.AnimFall
	case f.Running:
		return protocol.AnimRun
	case f.Moving:
		return protocol.AnimWalk
	default:
		return protocol.AnimIdle
	}
}

// Resolve walks the fallback chain from want until it finds a state the
// target set contains. ok is false when the chain is exhausted without a
// playable state.
func Resolve(want protocol.Animation, targets TargetSet) (protocol.Animation, bool) {
	cur := want
	for {
		if targets.Has(cur) {
			return cur, true
		}
		next := cur.Fallback()
		if next == cur {
			// Reached the chain's fixed point without a target.
			return cur, false
		}
		cur = next
	}
}

// Machine derives the discrete movement state for one controlled actor.
// The selected state is what the local animation driver plays and what
// the outbound payload carries.
type Machine struct {
	targets TargetSet
	current protocol.Animation
	log     *zap.SugaredLogger
}

// NewMachine returns a machine starting at idle. targets may be nil, in
// which case every state is playable.
func NewMachine(targets TargetSet, log *zap.SugaredLogger) *Machine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Machine{
		targets: targets,
		current: protocol.AnimIdle,
		log:     log,
	}
}

// Current returns the last selected state.
func (m *Machine) Current() protocol.Animation {
	return m.current
}

// Step selects the state for this simulation step. When no state along
// the fallback chain is playable the machine holds its previous state and
// logs a warning; that condition is recoverable, never fatal.
func (m *Machine) Step(f Flags) protocol.Animation {
	want := Select(f)
	resolved, ok := Resolve(want, m.targets)
	if !ok {
		m.log.Warnw("no playable state on fallback chain, holding previous",
			"want", want, "held", m.current)
		return m.current
	}
	m.current = resolved
	return m.current
}
