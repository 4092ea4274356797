package timing

import (
	"sync"
	"time"
)

// FpsCounter tracks ticks-per-second over a sliding window and, on each
// interval rollover, reports the window's FPS alongside the per-stage
// averages of whatever timers it was given. It is purely observational.
type FpsCounter struct {
	window time.Duration
	onTick func(fps float64, timers []*Timer)

	mu          sync.Mutex
	windowStart time.Time
	ticks       int
	lastFPS     float64
}

// NewFpsCounter creates a counter that rolls its window over every
// `window` duration. onTick, if non-nil, is invoked synchronously from
// within TickWith on every rollover.
func NewFpsCounter(window time.Duration, onTick func(fps float64, timers []*Timer)) *FpsCounter {
	return &FpsCounter{
		window:      window,
		onTick:      onTick,
		windowStart: time.Now(),
	}
}

// TickWith records one frame and, on window rollover, computes the
// window's FPS and invokes onTick with it and the given timers.
func (f *FpsCounter) TickWith(timers ...*Timer) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ticks++
	elapsed := time.Since(f.windowStart)
	if elapsed < f.window {
		return
	}

	f.lastFPS = float64(f.ticks) / elapsed.Seconds()
	f.ticks = 0
	f.windowStart = time.Now()

	if f.onTick != nil {
		f.onTick(f.lastFPS, timers)
	}
}

// Tick is TickWith with no timers to report.
func (f *FpsCounter) Tick() { f.TickWith() }

// FPS returns the most recently computed window FPS, or 0 before the
// first rollover.
func (f *FpsCounter) FPS() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastFPS
}
