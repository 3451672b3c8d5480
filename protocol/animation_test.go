package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallbackIsTotal(t *testing.T) {
	all := []Animation{
		AnimIdle, AnimWalk, AnimRun, AnimJump, AnimFall,
		AnimDoubleJump, AnimWallRun, AnimSlide, AnimDash,
	}
	for _, a := range all {
		assert.True(t, a.Fallback().Valid(), "fallback of %s must be a known state", a)
	}
	// Unknown states still map somewhere.
	assert.Equal(t, AnimIdle, Animation("somersault").Fallback())
}

func TestFallbackChainsTerminateAtIdle(t *testing.T) {
	for _, a := range []Animation{AnimDash, AnimSlide, AnimWallRun, AnimDoubleJump, AnimJump, AnimFall, AnimRun, AnimWalk} {
		cur := a
		for i := 0; cur != AnimIdle; i++ {
			cur = cur.Fallback()
			if i > 10 {
				t.Fatalf("fallback chain from %s does not terminate", a)
			}
		}
	}
	assert.Equal(t, AnimIdle, AnimIdle.Fallback())
}
