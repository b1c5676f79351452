// Package corner implements the hot-corner trigger: a hysteresis latch over
// periodic cursor samples that fires exactly once when the cursor crosses
// into a configured corner hot-zone.
package corner

import (
	"log"
	"sync"
	"time"

	"crosscursors/internal/display"
)

// DefaultInterval is the poll period for the timer-driven watcher.
const DefaultInterval = 75 * time.Millisecond

// Watcher polls the cursor against the current display topology and invokes
// OnEnter on the outside-to-inside transition of the hot-zone. While the
// cursor lingers inside, no further notifications fire; leaving the zone
// re-arms the latch silently.
type Watcher struct {
	// OnEnter is invoked once per entry into the hot-zone.
	OnEnter func()

	provider display.Provider
	cursor   func() (int, int)
	interval time.Duration

	mu        sync.Mutex
	threshold int
	position  display.Corner
	enabled   bool
	target    string // display name filter; "" checks all displays
	inCorner  bool

	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher sampling the cursor through the given
// function. It starts enabled, bottom-left, threshold 60, checking all
// displays.
func NewWatcher(provider display.Provider, cursor func() (int, int)) *Watcher {
	return &Watcher{
		provider:  provider,
		cursor:    cursor,
		interval:  DefaultInterval,
		threshold: 60,
		position:  display.BottomLeft,
		enabled:   true,
		done:      make(chan struct{}),
	}
}

// Any configuration change resets the latch so a stale value cannot cause a
// missed or phantom trigger.

// SetThreshold updates the hot-zone size in pixels (minimum 1).
func (w *Watcher) SetThreshold(px int) {
	if px < 1 {
		px = 1
	}
	w.mu.Lock()
	w.threshold = px
	w.inCorner = false
	w.mu.Unlock()
}

// SetPosition updates the corner the hot-zone anchors to.
func (w *Watcher) SetPosition(pos display.Corner) {
	w.mu.Lock()
	w.position = pos
	w.inCorner = false
	w.mu.Unlock()
}

// SetTargetDisplay restricts the watch to one display by name; "" watches
// all. A name missing from the current topology falls back to all displays.
func (w *Watcher) SetTargetDisplay(name string) {
	w.mu.Lock()
	w.target = name
	w.inCorner = false
	w.mu.Unlock()
}

// SetEnabled toggles the watcher without stopping its timer.
func (w *Watcher) SetEnabled(enabled bool) {
	w.mu.Lock()
	w.enabled = enabled
	w.inCorner = false
	w.mu.Unlock()
}

// Enabled reports the current toggle state.
func (w *Watcher) Enabled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enabled
}

// Poll runs one detection cycle against an explicit cursor position and
// topology snapshot. An empty snapshot means no containment, never an error.
func (w *Watcher) Poll(x, y int, displays []display.Geometry) {
	w.mu.Lock()
	if !w.enabled {
		w.mu.Unlock()
		return
	}

	checked := displays
	if w.target != "" {
		for _, d := range displays {
			if d.Name == w.target {
				checked = []display.Geometry{d}
				break
			}
		}
	}

	in := false
	for _, d := range checked {
		if display.InCorner(d, x, y, w.threshold, w.position) {
			in = true
			break
		}
	}

	fire := in && !w.inCorner
	w.inCorner = in
	w.mu.Unlock()

	if fire {
		log.Printf("Corner: hot corner entered at (%d, %d)", x, y)
		if w.OnEnter != nil {
			w.OnEnter()
		}
	}
}

// Start launches the timer-driven poll loop in its own goroutine. Polls
// never run concurrently with each other.
func (w *Watcher) Start() {
	go w.loop()
}

func (w *Watcher) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			x, y := w.cursor()
			w.Poll(x, y, w.provider.Snapshot())
		case <-w.done:
			return
		}
	}
}

// Stop ends the poll loop. Safe to call repeatedly.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}
