package input

import (
	"github.com/go-vgo/robotgo"

	"crosscursors/internal/protocol"
)

// Robot injects pointer events through robotgo.
type Robot struct{}

// NewRobot creates the robotgo-backed injector.
func NewRobot() Robot {
	return Robot{}
}

func (Robot) MoveTo(x, y int) {
	robotgo.Move(x, y)
}

func (Robot) Press(button string) {
	robotgo.Toggle(robotButton(button), "down")
}

func (Robot) Release(button string) {
	robotgo.Toggle(robotButton(button), "up")
}

func (Robot) Scroll(dx, dy int) {
	robotgo.Scroll(dx, dy)
}

// CursorPos samples the current cursor position in virtual-desktop pixels.
func CursorPos() (int, int) {
	return robotgo.GetMousePos()
}

// robotgo names the middle button "center".
func robotButton(b string) string {
	if b == protocol.ButtonMiddle {
		return "center"
	}
	return b
}
