// Package timer implements the Pomodoro countdown engine.
//
// The engine is a plain state machine. It never schedules anything itself: the
// host delivers frames through Tick with a timestamp, and the engine measures the
// real time elapsed between frames. That keeps the countdown accurate no matter
// how irregularly frames arrive (slow terminals, suspended processes, tests).
//
// An Engine is not safe for concurrent use. The host must serialize control calls
// and ticks, which a bubbletea Update loop does naturally.
package timer

import (
	"math"
	"time"
)

// longBreakEvery routes every Nth completed focus phase to a long break.
const longBreakEvery = 4

// Advance describes an automatic phase transition performed by Tick.
type Advance struct {
	From   Phase
	To     Phase
	Length float64 // configured length of the finished phase, in seconds
	Cycles int     // completed focus phases after the transition
}

type Engine struct {
	lengths   PhaseLengths
	phase     Phase
	running   bool
	remaining float64
	cycles    int
	lastTick  time.Time
	usage     float64
}

func New(lengths PhaseLengths) *Engine {
	return &Engine{
		lengths:   lengths,
		phase:     PhaseFocus,
		remaining: clampLength(lengths.Focus),
	}
}

// Start begins the countdown. Starting a running or exhausted timer does nothing.
func (e *Engine) Start() {
	if e.running || e.remaining <= 0 {
		return
	}
	e.running = true
	e.lastTick = time.Time{}
}

// Pause stops the countdown and forgets the last frame timestamp.
func (e *Engine) Pause() {
	e.running = false
	e.lastTick = time.Time{}
}

func (e *Engine) Toggle() {
	if e.running {
		e.Pause()
		return
	}
	e.Start()
}

// Reset reloads the current phase's full length and stops the timer.
func (e *Engine) Reset() {
	e.ResetTo(e.phase)
}

// ResetTo switches to p, loads its full length and stops the timer. Invalid
// phases keep the current one. Completed cycles are never touched.
func (e *Engine) ResetTo(p Phase) {
	if !p.Valid() {
		p = e.phase
	}
	e.phase = p
	e.remaining = clampLength(e.lengths.Of(p))
	e.running = false
	e.lastTick = time.Time{}
}

// Tick advances the countdown to now. The first tick after a start only records
// the timestamp, so time spent before the first frame is never charged.
//
// When the current phase runs out, Tick stops the timer and moves to the next
// phase, reporting the transition. An exhausted phase (for example one with a
// non-positive configured length) advances on the next tick even while stopped.
//
// Timestamps must be non-decreasing; that is not checked.
func (e *Engine) Tick(now time.Time) (Advance, bool) {
	if e.remaining <= 0 {
		return e.advance(), true
	}
	if !e.running {
		return Advance{}, false
	}

	if e.lastTick.IsZero() {
		e.lastTick = now
		return Advance{}, false
	}

	delta := now.Sub(e.lastTick).Seconds()
	e.lastTick = now
	e.remaining = math.Max(0, e.remaining-delta)

	if e.remaining <= 0 {
		return e.advance(), true
	}
	return Advance{}, false
}

func (e *Engine) advance() Advance {
	from := e.phase
	length := e.lengths.Of(from)

	e.running = false
	e.lastTick = time.Time{}
	if length > 0 {
		e.usage += length
	}

	next := PhaseFocus
	if from == PhaseFocus {
		e.cycles++
		if e.cycles%longBreakEvery == 0 {
			next = PhaseLongBreak
		} else {
			next = PhaseShortBreak
		}
	}
	e.ResetTo(next)

	return Advance{
		From:   from,
		To:     next,
		Length: length,
		Cycles: e.cycles,
	}
}

// SetLengths replaces the phase lengths. While the timer is stopped, an edit to
// the current phase's length is previewed immediately by reloading the
// remaining time. A running countdown is left alone.
func (e *Engine) SetLengths(l PhaseLengths) {
	changed := l.Of(e.phase) != e.lengths.Of(e.phase)
	e.lengths = l
	if changed && !e.running {
		e.remaining = clampLength(l.Of(e.phase))
	}
}

func (e *Engine) Lengths() PhaseLengths { return e.lengths }
func (e *Engine) Phase() Phase          { return e.phase }
func (e *Engine) Running() bool         { return e.running }
func (e *Engine) Remaining() float64    { return e.remaining }
func (e *Engine) Cycles() int           { return e.cycles }

// Length is the configured length of the current phase.
func (e *Engine) Length() float64 {
	return e.lengths.Of(e.phase)
}

// RemainingRounded is the remaining time rounded to the nearest second.
func (e *Engine) RemainingRounded() int {
	return int(math.Round(e.remaining))
}

// Progress is the completed fraction of the current phase in [0, 1].
func (e *Engine) Progress() float64 {
	length := e.Length()
	if length <= 0 {
		return 1
	}
	progress := 1 - e.remaining/length
	if progress < 0 {
		return 0
	}
	if progress > 1 {
		return 1
	}
	return progress
}

func (e *Engine) Formatted() string {
	return FormatClock(e.remaining)
}

// Usage is the total configured length of every phase completed so far.
func (e *Engine) Usage() time.Duration {
	return time.Duration(e.usage * float64(time.Second))
}

// NeedsTick reports whether the host should keep delivering frames.
func (e *Engine) NeedsTick() bool {
	return e.running || e.remaining <= 0
}

// Snapshot is a read-only view of the engine for rendering.
type Snapshot struct {
	Phase     Phase
	Running   bool
	Remaining float64
	Length    float64
	Cycles    int
	Progress  float64
	Formatted string
	Usage     time.Duration
}

func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Phase:     e.phase,
		Running:   e.running,
		Remaining: e.remaining,
		Length:    e.Length(),
		Cycles:    e.cycles,
		Progress:  e.Progress(),
		Formatted: e.Formatted(),
		Usage:     e.Usage(),
	}
}

func clampLength(seconds float64) float64 {
	if seconds < 0 || math.IsNaN(seconds) {
		return 0
	}
	return seconds
}
