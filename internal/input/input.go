// Package input provides the pointer-injection sink that replays received
// events on the local machine.
package input

// Injector is the sink a receiver feeds decoded events into. Coordinates are
// absolute in the local virtual desktop; buttons use the wire identifiers
// ("left", "right", "middle").
type Injector interface {
	MoveTo(x, y int)
	Press(button string)
	Release(button string)
	Scroll(dx, dy int)
}
