package app

import "time"

// FirstFrameDelta is the step used before a previous frame time exists.
const FirstFrameDelta = 1.0 / 60.0

// Clock reports monotonic seconds.
type Clock interface {
	Now() float64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() float64

func (f ClockFunc) Now() float64 { return f() }

type systemClock struct{ start time.Time }

// SystemClock counts seconds from its creation on the monotonic clock.
func SystemClock() Clock { return &systemClock{start: time.Now()} }

func (c *systemClock) Now() float64 { return time.Since(c.start).Seconds() }

// FrameTimer derives the per-frame delta. The last frame time advances
// exactly once per Tick.
type FrameTimer struct {
	last    float64
	started bool
}

// Tick returns FirstFrameDelta on the first call and now-last afterwards,
// clamped at zero.
func (t *FrameTimer) Tick(c Clock) float32 {
	now := c.Now()
	if !t.started {
		t.started = true
		t.last = now
		return FirstFrameDelta
	}
	dt := now - t.last
	t.last = now
	if dt < 0 {
		return 0
	}
	return float32(dt)
}

// Last is the clock reading of the most recent Tick.
func (t *FrameTimer) Last() float64 { return t.last }
