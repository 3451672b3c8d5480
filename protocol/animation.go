package protocol

// Animation is the discrete movement state that crosses the wire and
// drives animation playback on both ends.
type Animation string

const (
	AnimIdle       Animation = "idle"
	AnimWalk       Animation = "walk"
	AnimRun        Animation = "run"
	AnimJump       Animation = "jump"
	AnimFall       Animation = "fall"
	AnimDoubleJump Animation = "doubleJump"
	AnimWallRun    Animation = "wallRun"
	AnimSlide      Animation = "slide"
	AnimDash       Animation = "dash"
)

// Fallback returns the substitute to try when a renderable target for the
// state is missing. Total: every state maps somewhere, and idle maps to
// itself so chain walks terminate.
func (a Animation) Fallback() Animation {
	switch a {
	case AnimDash, AnimSlide:
		return AnimRun
	case AnimWallRun, AnimDoubleJump:
		return AnimJump
	case AnimJump, AnimFall:
		return AnimIdle
	case AnimRun:
		return AnimWalk
	case AnimWalk:
		return AnimIdle
	default:
		return AnimIdle
	}
}

// Valid reports whether a is one of the known animation states.
func (a Animation) Valid() bool {
	switch a {
	case AnimIdle, AnimWalk, AnimRun, AnimJump, AnimFall,
		AnimDoubleJump, AnimWallRun, AnimSlide, AnimDash:
		return true
	}
	return false
}
