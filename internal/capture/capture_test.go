package capture

import (
	"sync"
	"testing"
	"time"

	"crosscursors/internal/display"
	"crosscursors/internal/protocol"
)

type staticDisplays struct {
	snap []display.Geometry
}

func (s staticDisplays) Snapshot() []display.Geometry { return s.snap }

func (s staticDisplays) Primary() (display.Geometry, bool) {
	if len(s.snap) == 0 {
		return display.Geometry{}, false
	}
	return s.snap[0], true
}

// scriptedCursor replays a fixed sequence of positions, holding the last.
type scriptedCursor struct {
	mu        sync.Mutex
	positions [][2]int
	i         int
}

func (c *scriptedCursor) next() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.positions[c.i]
	if c.i < len(c.positions)-1 {
		c.i++
	}
	return p[0], p[1]
}

// TestTrackerEmitsRelativeMoves tests that a cursor move inside a known
// display carries the relative-mapping fields.
func TestTrackerEmitsRelativeMoves(t *testing.T) {
	cursor := &scriptedCursor{positions: [][2]int{{0, 0}, {2000, 100}}}
	provider := staticDisplays{[]display.Geometry{
		{Name: "display-0", X: 0, Y: 0, Width: 1920, Height: 1080},
		{Name: "display-1", X: 1920, Y: 0, Width: 2560, Height: 1440},
	}}

	tracker := NewTracker(provider, cursor.next, time.Millisecond)
	tracker.Start()
	defer tracker.Stop()

	select {
	case ev := <-tracker.Events():
		want := protocol.Move(2000, 100, 80, 100, 2560, 1440)
		if ev != want {
			t.Errorf("Got %+v, want %+v", ev, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for a move event")
	}
}

// TestTrackerFallsBackOffDisplay tests absolute-only events for positions
// outside every display.
func TestTrackerFallsBackOffDisplay(t *testing.T) {
	cursor := &scriptedCursor{positions: [][2]int{{0, 0}, {-100, -100}}}
	tracker := NewTracker(staticDisplays{}, cursor.next, time.Millisecond)
	tracker.Start()
	defer tracker.Stop()

	select {
	case ev := <-tracker.Events():
		if ev.HasRel {
			t.Errorf("Expected absolute-only event, got %+v", ev)
		}
		if ev.X != -100 || ev.Y != -100 {
			t.Errorf("Expected (-100, -100), got (%d, %d)", ev.X, ev.Y)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for a move event")
	}
}

// TestTrackerIgnoresStationaryCursor tests that no event is emitted while
// the cursor does not move.
func TestTrackerIgnoresStationaryCursor(t *testing.T) {
	cursor := &scriptedCursor{positions: [][2]int{{10, 10}}}
	tracker := NewTracker(staticDisplays{}, cursor.next, time.Millisecond)
	tracker.Start()
	defer tracker.Stop()

	select {
	case ev := <-tracker.Events():
		t.Errorf("Expected no event for a stationary cursor, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestTrackerRestart tests the stop/start cycle driven by the hot corner.
func TestTrackerRestart(t *testing.T) {
	cursor := &scriptedCursor{positions: [][2]int{{0, 0}}}
	tracker := NewTracker(staticDisplays{}, cursor.next, time.Millisecond)

	tracker.Start()
	tracker.Start() // idempotent
	if !tracker.Running() {
		t.Fatal("Expected tracker to be running")
	}

	tracker.Stop()
	tracker.Stop() // safe while stopped
	if tracker.Running() {
		t.Fatal("Expected tracker to be stopped")
	}

	tracker.Start()
	if !tracker.Running() {
		t.Fatal("Expected tracker to restart")
	}
	tracker.Stop()
}
