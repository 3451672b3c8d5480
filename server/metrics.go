package server

import "sync/atomic"

// Metrics counts what the relay has done since start. All counters are
// updated with atomics so pumps and the broadcast loop never contend.
type Metrics struct {
	BroadcastTicks  int64 // tick loop iterations, empty ones included
	EmptyTicks      int64 // ticks skipped because no session was registered
	FramesSent      int64 // frames enqueued to peer connections
	SendDropped     int64 // frames dropped because a peer's queue was full
	PeersSkipped    int64 // broadcast writes skipped on closing connections
	MalformedFrames int64 // inbound payloads that failed to parse
	UnknownFrames   int64 // inbound payloads with an unknown kind
	StaleSeqIgnored int64 // position updates behind the last applied seq
	UpdatesApplied  int64 // position updates written to the registry
	SessionsJoined  int64
	SessionsEvicted int64
	TotalTickNs     int64
}

func (m *Metrics) IncEmptyTick()      { atomic.AddInt64(&m.EmptyTicks, 1) }
func (m *Metrics) IncFrameSent()      { atomic.AddInt64(&m.FramesSent, 1) }
func (m *Metrics) IncSendDropped()    { atomic.AddInt64(&m.SendDropped, 1) }
func (m *Metrics) IncPeerSkipped()    { atomic.AddInt64(&m.PeersSkipped, 1) }
func (m *Metrics) IncMalformed()      { atomic.AddInt64(&m.MalformedFrames, 1) }
func (m *Metrics) IncUnknownFrame()   { atomic.AddInt64(&m.UnknownFrames, 1) }
func (m *Metrics) IncStaleSeq()       { atomic.AddInt64(&m.StaleSeqIgnored, 1) }
func (m *Metrics) IncUpdateApplied()  { atomic.AddInt64(&m.UpdatesApplied, 1) }
func (m *Metrics) IncSessionJoined()  { atomic.AddInt64(&m.SessionsJoined, 1) }
func (m *Metrics) IncSessionEvicted() { atomic.AddInt64(&m.SessionsEvicted, 1) }

func (m *Metrics) AddTick(ns int64) {
	atomic.AddInt64(&m.BroadcastTicks, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot returns a read-only copy for HTTP output.
func (m *Metrics) Snapshot() map[string]any {
	ticks := atomic.LoadInt64(&m.BroadcastTicks)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if ticks > 0 {
		avgMs = float64(total) / float64(ticks) / 1e6
	}
	return map[string]any{
		"broadcast_ticks":   ticks,
		"empty_ticks":       atomic.LoadInt64(&m.EmptyTicks),
		"frames_sent":       atomic.LoadInt64(&m.FramesSent),
		"send_dropped":      atomic.LoadInt64(&m.SendDropped),
		"peers_skipped":     atomic.LoadInt64(&m.PeersSkipped),
		"malformed_frames":  atomic.LoadInt64(&m.MalformedFrames),
		"unknown_frames":    atomic.LoadInt64(&m.UnknownFrames),
		"stale_seq_ignored": atomic.LoadInt64(&m.StaleSeqIgnored),
		"updates_applied":   atomic.LoadInt64(&m.UpdatesApplied),
		"sessions_joined":   atomic.LoadInt64(&m.SessionsJoined),
		"sessions_evicted":  atomic.LoadInt64(&m.SessionsEvicted),
		"avg_tick_ms":       avgMs,
	}
}
