// Package status renders the session orchestrator's state as structured
// status lines for a presenter layer (spec §7 "status lines are structured
// as {lines, tone}") and, for the `verify` CLI command, an SVG bar chart of
// frame-completion progress.
package status

import "sync/atomic"

// Tone classifies a Snapshot's overall severity for a presenter to color or
// prioritize (spec §7).
type Tone string

const (
	ToneOK       Tone = "ok"
	ToneWarn     Tone = "warn"
	ToneError    Tone = "error"
	ToneProgress Tone = "progress"
	ToneIdle     Tone = "idle"
)

// Snapshot is the structured status report of spec §7: a list of
// human-readable lines and one overall tone.
type Snapshot struct {
	Lines []string
	Tone  Tone
}

// Guard is a single-flight re-entrancy guard for auth verification (spec §5,
// §9): a second concurrent call while one is in flight is dropped; the first
// completes and its result is the one callers observe.
type Guard struct {
	inFlight int32
}

// TryEnter reports whether the caller may proceed; if it returns false, a
// verification is already in flight and the caller must drop its request
// rather than queue it (spec §9: "a queued second request MAY be dropped").
func (g *Guard) TryEnter() bool {
	return atomic.CompareAndSwapInt32(&g.inFlight, 0, 1)
}

// Leave releases the guard. Callers must call it exactly once after a
// successful TryEnter, typically via defer.
func (g *Guard) Leave() {
	atomic.StoreInt32(&g.inFlight, 0)
}
