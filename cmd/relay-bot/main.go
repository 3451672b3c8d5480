// relay-bot is a headless peer: it connects to a relay, walks a circle
// through the movement state machine, and publishes its state at a fixed
// rate. Useful for soak-testing a relay without a browser.
package main

import (
	"flag"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"relay/client"
	"relay/config"
	"relay/movement"
	"relay/protocol"
	"relay/server"
)

// logRenderer stands in for the real renderer: remote entities only show
// up in the log.
type logRenderer struct {
	log *zap.SugaredLogger
}

func (r *logRenderer) Create(id protocol.PeerID, state protocol.PeerState) {
	r.log.Infof("peer %d appeared at (%.1f, %.1f, %.1f)", id, state.X, state.Y, state.Z)
}

func (r *logRenderer) Update(id protocol.PeerID, position mgl64.Vec3, yaw float64) {}

func (r *logRenderer) SetAnimation(id protocol.PeerID, anim protocol.Animation) {
	r.log.Infof("peer %d now %s", id, anim)
}

func (r *logRenderer) Destroy(id protocol.PeerID) {
	r.log.Infof("peer %d left", id)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	var (
		url  string
		rate time.Duration
	)
	flag.StringVar(&url, "url", "ws://localhost:8080/ws", "relay websocket URL")
	flag.DurationVar(&rate, "rate", 33*time.Millisecond, "state publish interval")
	flag.Parse()

	log := server.NewLogger("relay-bot.log")
	defer log.Sync()

	cache := client.NewEntityCache(&logRenderer{log: log}, log)
	manager := client.NewManager(url, cfg.ReconnectDelay, cache, log)
	manager.Start()
	defer manager.Close()

	machine := movement.NewMachine(nil, log)
	dash := movement.AbilityTimer{Duration: 200 * time.Millisecond, Cooldown: 5 * time.Second}

	const (
		radius       = 20.0
		angularSpeed = 0.6 // rad/s
		runThreshold = 8.0
	)

	ticker := time.NewTicker(rate)
	defer ticker.Stop()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	start := time.Now()
	for {
		select {
		case <-quit:
			log.Info("bot stopping")
			return
		case now := <-ticker.C:
			t := now.Sub(start).Seconds()
			angle := angularSpeed * t
			pos := mgl64.Vec3{radius * math.Cos(angle), 0, radius * math.Sin(angle)}
			vel := mgl64.Vec3{-radius * angularSpeed * math.Sin(angle), 0, radius * angularSpeed * math.Cos(angle)}

			flags := movement.FlagsFromVelocity(vel, true, runThreshold)
			if dash.Trigger(now) || dash.Active(now) {
				flags.Dashing = true
			}

			state := machine.Step(flags)
			manager.Send(protocol.PeerState{
				X:         pos.X(),
				Y:         pos.Y(),
				Z:         pos.Z(),
				Rotation:  math.Atan2(vel.X(), vel.Z()),
				Animation: state,
			})
		}
	}
}
