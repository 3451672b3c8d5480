package movement

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Flags is the continuous-physics view of one controlled actor, updated
// once per simulation step by the owning actor's input/physics code and
// read by Machine.Step.
type Flags struct {
	Moving        bool
	Running       bool
	Jumping       bool
	Falling       bool
	DoubleJumping bool
	WallRunning   bool
	Sliding       bool
	Dashing       bool
}

// FlagsFromVelocity derives the locomotion flags from a velocity sample.
// runThreshold is the horizontal speed above which movement counts as
// running. Ability flags (dash, slide, wall-run, double jump) come from
// the ability timers, not from velocity, and stay false here.
func FlagsFromVelocity(vel mgl64.Vec3, grounded bool, runThreshold float64) Flags {
	horizontal := mgl64.Vec3{vel.X(), 0, vel.Z()}
	speed := horizontal.Len()

	f := Flags{Moving: speed > 1e-3}
	f.Running = f.Moving && speed >= runThreshold
	if !grounded {
		if vel.Y() > 0 {
			f.Jumping = true
		} else {
			f.Falling = true
		}
	}
	return f
}

// AbilityTimer tracks one ability with an active duration and a cooldown
// that starts when the ability fires.
type AbilityTimer struct {
	Duration time.Duration
	Cooldown time.Duration

	firedAt time.Time
	fired   bool
}

// Trigger starts the ability if it is off cooldown and reports whether it
// fired.
func (t *AbilityTimer) Trigger(now time.Time) bool {
	if !t.Ready(now) {
		return false
	}
	t.firedAt = now
	t.fired = true
	return true
}

// Active reports whether the ability's duration window is still open.
func (t *AbilityTimer) Active(now time.Time) bool {
	return t.fired && now.Sub(t.firedAt) < t.Duration
}

// Ready reports whether the ability may fire again.
func (t *AbilityTimer) Ready(now time.Time) bool {
	return !t.fired || now.Sub(t.firedAt) >= t.Cooldown
}
