// Package display models the virtual-desktop display topology and the
// geometry math shared by the corner trigger and the event receiver.
package display

import (
	"fmt"
	"math"

	"github.com/kbinani/screenshot"
)

// Geometry describes one display in virtual-desktop pixel coordinates.
// Name is unique per display and stable for the process lifetime.
type Geometry struct {
	Name   string `json:"name"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Corner identifies the display corner a hot-zone is anchored to.
type Corner string

const (
	BottomLeft  Corner = "bottom-left"
	BottomRight Corner = "bottom-right"
	TopLeft     Corner = "top-left"
	TopRight    Corner = "top-right"
)

// Corners lists the valid corner positions, for UI and config validation.
var Corners = []Corner{BottomLeft, BottomRight, TopLeft, TopRight}

// Provider yields the current display topology. Snapshots are recomputed on
// every call so display hot-plug is picked up without a restart; callers must
// not cache a snapshot beyond one detection or remap cycle.
type Provider interface {
	Snapshot() []Geometry
	Primary() (Geometry, bool)
}

// Screens is the live topology provider backed by the OS display list.
type Screens struct{}

// Snapshot returns the currently attached displays.
func (Screens) Snapshot() []Geometry {
	num := screenshot.NumActiveDisplays()
	out := make([]Geometry, 0, num)
	for d := 0; d < num; d++ {
		bounds := screenshot.GetDisplayBounds(d)
		out = append(out, Geometry{
			Name:   fmt.Sprintf("display-%d", d),
			X:      bounds.Min.X,
			Y:      bounds.Min.Y,
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
		})
	}
	return out
}

// Primary returns the primary display, if any is attached.
func (s Screens) Primary() (Geometry, bool) {
	snap := s.Snapshot()
	if len(snap) == 0 {
		return Geometry{}, false
	}
	return snap[0], true
}

// At returns the display containing the point (x, y).
func At(displays []Geometry, x, y int) (Geometry, bool) {
	for _, d := range displays {
		if x >= d.X && x < d.X+d.Width && y >= d.Y && y < d.Y+d.Height {
			return d, true
		}
	}
	return Geometry{}, false
}

// InCorner reports whether (x, y) lies inside the hot-zone anchored to the
// given corner of the display, sized by threshold pixels along each edge.
// Unrecognized corner values behave as bottom-left.
func InCorner(g Geometry, x, y, threshold int, corner Corner) bool {
	switch corner {
	case BottomRight:
		return x >= g.X+g.Width-threshold && y >= g.Y+g.Height-threshold
	case TopLeft:
		return x <= g.X+threshold && y <= g.Y+threshold
	case TopRight:
		return x >= g.X+g.Width-threshold && y <= g.Y+threshold
	default:
		return x <= g.X+threshold && y >= g.Y+g.Height-threshold
	}
}

// Remap rescales a point expressed relative to an origin display of
// originWidth x originHeight pixels onto the local display, preserving the
// proportional position across different resolutions and aspect ratios.
func Remap(xRel, yRel, originWidth, originHeight int, local Geometry) (int, int) {
	x := local.X + int(math.Round(float64(xRel)/float64(originWidth)*float64(local.Width)))
	y := local.Y + int(math.Round(float64(yRel)/float64(originHeight)*float64(local.Height)))
	return x, y
}
