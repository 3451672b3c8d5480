package server

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"relay/protocol"
)

// Broadcaster snapshots the registry at a fixed interval and fans one
// encoded frame out to every open connection. It holds no lock while
// writing: snapshot copy-out and enqueue are separate phases.
type Broadcaster struct {
	registry *Registry
	metrics  *Metrics
	log      *zap.SugaredLogger

	intervalNs int64 // atomic, hot-updatable via /admin/config

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

func NewBroadcaster(registry *Registry, metrics *Metrics, log *zap.SugaredLogger, interval time.Duration) *Broadcaster {
	b := &Broadcaster{
		registry: registry,
		metrics:  metrics,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	atomic.StoreInt64(&b.intervalNs, int64(interval))
	return b
}

// Interval returns the current broadcast interval.
func (b *Broadcaster) Interval() time.Duration {
	return time.Duration(atomic.LoadInt64(&b.intervalNs))
}

// SetInterval changes the broadcast interval; the timer picks it up on
// the next tick. Non-positive values are ignored.
func (b *Broadcaster) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	atomic.StoreInt64(&b.intervalNs, int64(d))
}

// Start launches the tick loop. Idempotent.
func (b *Broadcaster) Start() {
	b.startOnce.Do(func() {
		go b.run()
	})
}

// Stop halts the tick loop and waits for the in-flight tick to finish.
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() {
		close(b.stop)
	})
	<-b.done
}

func (b *Broadcaster) run() {
	defer close(b.done)
	ticker := time.NewTicker(b.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			start := time.Now()
			b.Tick()
			b.metrics.AddTick(time.Since(start).Nanoseconds())
			ticker.Reset(b.Interval())
		}
	}
}

// Tick performs one broadcast pass. An empty registry does nothing: no
// frame is built and no connection is touched. A peer that refuses the
// frame (closing, or backpressured past its queue) is skipped; one bad
// peer never blocks delivery to the rest.
func (b *Broadcaster) Tick() {
	if b.registry.Len() == 0 {
		b.metrics.IncEmptyTick()
		return
	}

	states, conns := b.registry.SnapshotWithConns()
	frame, err := protocol.EncodeSnapshot(states)
	if err != nil {
		b.log.Errorf("encode snapshot: %v", err)
		return
	}

	for _, conn := range conns {
		if conn == nil {
			b.metrics.IncPeerSkipped()
			continue
		}
		if conn.Enqueue(frame) {
			b.metrics.IncFrameSent()
		} else {
			b.metrics.IncSendDropped()
		}
	}
}
