// Package capture turns raw cursor samples into normalized pointer events
// ready for broadcast: absolute virtual-desktop coordinates plus the
// position relative to the display under the cursor and that display's
// pixel dimensions.
package capture

import (
	"log"
	"sync"
	"time"

	"crosscursors/internal/display"
	"crosscursors/internal/protocol"
)

// DefaultInterval is the cursor sampling period.
const DefaultInterval = 50 * time.Millisecond

// Tracker samples the cursor on a fixed period and emits a Move event on its
// channel whenever the position changed. The display under the cursor is
// resolved from a fresh topology snapshot each cycle; when no display
// contains the point, the event falls back to absolute-only coordinates.
type Tracker struct {
	interval time.Duration
	cursor   func() (int, int)
	displays display.Provider

	events chan protocol.Event

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// NewTracker creates a tracker sampling through the given cursor function.
func NewTracker(provider display.Provider, cursor func() (int, int), interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Tracker{
		interval: interval,
		cursor:   cursor,
		displays: provider,
		events:   make(chan protocol.Event, 128),
	}
}

// Events returns the channel tracked Move events are delivered on. Events
// are dropped, not queued, when the consumer falls behind.
func (t *Tracker) Events() <-chan protocol.Event {
	return t.events
}

// Start begins sampling. Calling Start while running is a no-op.
func (t *Tracker) Start() {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.done = make(chan struct{})
	done := t.done
	t.mu.Unlock()

	log.Printf("Capture: cursor tracking started")
	go t.loop(done)
}

// Running reports whether the tracker is currently sampling.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Tracker) loop(done chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	lastX, lastY := t.cursor()
	for {
		select {
		case <-ticker.C:
			x, y := t.cursor()
			if x == lastX && y == lastY {
				continue
			}
			lastX, lastY = x, y
			t.emit(t.makeMove(x, y))
		case <-done:
			return
		}
	}
}

// makeMove builds the Move event for a cursor position, carrying the
// relative-mapping fields when a display contains the point.
func (t *Tracker) makeMove(x, y int) protocol.Event {
	snap := t.displays.Snapshot()
	if d, ok := display.At(snap, x, y); ok {
		return protocol.Move(x, y, x-d.X, y-d.Y, d.Width, d.Height)
	}
	return protocol.MoveAbsolute(x, y)
}

func (t *Tracker) emit(ev protocol.Event) {
	select {
	case t.events <- ev:
	default:
		// Consumer is behind; pointer motion is superseded by the next sample.
	}
}

// Stop ends sampling. The events channel stays open so a tracker can be
// restarted. Safe to call while stopped.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.running = false
	close(t.done)
	log.Printf("Capture: cursor tracking stopped")
}
