// Package protocol defines the wire records exchanged between the event
// broadcaster and its followers: newline-delimited JSON frames, one pointer
// event per frame.
package protocol

import (
	"bytes"
	"encoding/json"
)

// DefaultPort is the TCP port the broadcaster listens on unless configured.
const DefaultPort = 8765

// Event types carried in the "type" field of every frame.
const (
	TypeMove    = "move"
	TypePress   = "press"
	TypeRelease = "release"
	TypeScroll  = "scroll"
)

// Mouse button identifiers for press/release events.
const (
	ButtonLeft   = "left"
	ButtonRight  = "right"
	ButtonMiddle = "middle"
)

// Event represents a single pointer event. Events are constructed once at
// capture time and never mutated after serialization.
//
// Wire format per type (one JSON object, '\n' terminated):
//
//	move    {"type":"move","x":..,"y":..[,"x_rel":..,"y_rel":..,"screen_width":..,"screen_height":..]}
//	press   {"type":"press","button":"left"|"right"|"middle"}
//	release {"type":"release","button":"left"|"right"|"middle"}
//	scroll  {"type":"scroll","dx":..,"dy":..}
type Event struct {
	Type string

	// Move: absolute virtual-desktop coordinates, plus coordinates relative
	// to the origin display and that display's pixel dimensions. HasRel is
	// true only when all four relative-mapping fields are present.
	X, Y         int
	XRel, YRel   int
	ScreenWidth  int
	ScreenHeight int
	HasRel       bool

	// Press / Release.
	Button string

	// Scroll: signed wheel deltas.
	DX, DY int
}

// Move builds a move event carrying display-relative coordinates.
func Move(x, y, xRel, yRel, screenWidth, screenHeight int) Event {
	return Event{
		Type: TypeMove,
		X:    x, Y: y,
		XRel: xRel, YRel: yRel,
		ScreenWidth:  screenWidth,
		ScreenHeight: screenHeight,
		HasRel:       true,
	}
}

// MoveAbsolute builds a move event without the relative-mapping fields.
// Receivers inject the raw coordinates unscaled.
func MoveAbsolute(x, y int) Event {
	return Event{Type: TypeMove, X: x, Y: y}
}

// Press builds a button press event.
func Press(button string) Event {
	return Event{Type: TypePress, Button: button}
}

// Release builds a button release event.
func Release(button string) Event {
	return Event{Type: TypeRelease, Button: button}
}

// Scroll builds a wheel scroll event.
func Scroll(dx, dy int) Event {
	return Event{Type: TypeScroll, DX: dx, DY: dy}
}

// wireEvent is the JSON shape of a frame. Pointer fields distinguish a field
// that is absent from one that is zero.
type wireEvent struct {
	Type         string `json:"type"`
	X            *int   `json:"x,omitempty"`
	Y            *int   `json:"y,omitempty"`
	XRel         *int   `json:"x_rel,omitempty"`
	YRel         *int   `json:"y_rel,omitempty"`
	ScreenWidth  *int   `json:"screen_width,omitempty"`
	ScreenHeight *int   `json:"screen_height,omitempty"`
	Button       string `json:"button,omitempty"`
	DX           *int   `json:"dx,omitempty"`
	DY           *int   `json:"dy,omitempty"`
}

// Encode serializes an event to one newline-terminated frame.
func Encode(ev Event) []byte {
	w := wireEvent{Type: ev.Type}

	switch ev.Type {
	case TypeMove:
		x, y := ev.X, ev.Y
		w.X, w.Y = &x, &y
		if ev.HasRel {
			xr, yr, sw, sh := ev.XRel, ev.YRel, ev.ScreenWidth, ev.ScreenHeight
			w.XRel, w.YRel = &xr, &yr
			w.ScreenWidth, w.ScreenHeight = &sw, &sh
		}
	case TypePress, TypeRelease:
		w.Button = ev.Button
	case TypeScroll:
		dx, dy := ev.DX, ev.DY
		w.DX, w.DY = &dx, &dy
	}

	data, err := json.Marshal(w)
	if err != nil {
		// The wire struct holds only ints and strings; Marshal cannot fail.
		return nil
	}
	return append(data, '\n')
}

// Decode parses one frame line (without the trailing newline). It is total:
// blank lines, malformed JSON, unknown types and frames missing required
// fields all report ok=false, never an error.
func Decode(line []byte) (Event, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Event{}, false
	}

	var w wireEvent
	if err := json.Unmarshal(line, &w); err != nil {
		return Event{}, false
	}

	switch w.Type {
	case TypeMove:
		if w.X == nil || w.Y == nil {
			return Event{}, false
		}
		ev := Event{Type: TypeMove, X: *w.X, Y: *w.Y}
		if w.XRel != nil && w.YRel != nil && w.ScreenWidth != nil && w.ScreenHeight != nil {
			ev.XRel, ev.YRel = *w.XRel, *w.YRel
			ev.ScreenWidth, ev.ScreenHeight = *w.ScreenWidth, *w.ScreenHeight
			ev.HasRel = true
		}
		return ev, true

	case TypePress, TypeRelease:
		if !validButton(w.Button) {
			return Event{}, false
		}
		return Event{Type: w.Type, Button: w.Button}, true

	case TypeScroll:
		if w.DX == nil || w.DY == nil {
			return Event{}, false
		}
		return Event{Type: TypeScroll, DX: *w.DX, DY: *w.DY}, true
	}

	return Event{}, false
}

func validButton(b string) bool {
	switch b {
	case ButtonLeft, ButtonRight, ButtonMiddle:
		return true
	}
	return false
}
