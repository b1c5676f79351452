// Package tray provides the system tray menu using getlantern/systray.
package tray

import (
	"github.com/getlantern/systray"
)

// item is one menu entry; nil entries are separators.
type item struct {
	title    string
	checked  bool
	toggle   func(bool) // set for check items
	activate func()     // set for plain items
	menuItem *systray.MenuItem
}

// Tray manages the system tray icon and menu. Build the menu with AddItem /
// AddToggle / AddSeparator before calling Run.
type Tray struct {
	title   string
	tooltip string
	items   []*item
	quitCh  chan struct{}
}

// New creates a new system tray.
func New(title, tooltip string) *Tray {
	return &Tray{
		title:   title,
		tooltip: tooltip,
		quitCh:  make(chan struct{}),
	}
}

// AddItem adds a plain menu item.
func (t *Tray) AddItem(title string, activate func()) {
	t.items = append(t.items, &item{title: title, activate: activate})
}

// AddToggle adds a checkable menu item. The callback receives the new state
// after each click.
func (t *Tray) AddToggle(title string, checked bool, toggle func(bool)) {
	t.items = append(t.items, &item{title: title, checked: checked, toggle: toggle})
}

// AddSeparator adds a separator to the menu.
func (t *Tray) AddSeparator() {
	t.items = append(t.items, nil)
}

// Run starts the tray event loop. Blocks until Stop.
func (t *Tray) Run() {
	systray.Run(t.setup, func() {})
}

func (t *Tray) setup() {
	systray.SetTitle(t.title)
	systray.SetTooltip(t.tooltip)
	systray.SetIcon(getIcon())

	for _, it := range t.items {
		if it == nil {
			systray.AddSeparator()
			continue
		}
		it.menuItem = systray.AddMenuItem(it.title, "")
		if it.checked {
			it.menuItem.Check()
		}
		go t.watch(it)
	}
}

func (t *Tray) watch(it *item) {
	for {
		select {
		case <-it.menuItem.ClickedCh:
			if it.toggle != nil {
				it.checked = !it.checked
				if it.checked {
					it.menuItem.Check()
				} else {
					it.menuItem.Uncheck()
				}
				it.toggle(it.checked)
			} else if it.activate != nil {
				it.activate()
			}
		case <-t.quitCh:
			return
		}
	}
}

// SetChecked updates a toggle's displayed state when it changes outside the
// menu (hot corner firing, remote config update).
func (t *Tray) SetChecked(title string, checked bool) {
	for _, it := range t.items {
		if it == nil || it.title != title || it.menuItem == nil {
			continue
		}
		it.checked = checked
		if checked {
			it.menuItem.Check()
		} else {
			it.menuItem.Uncheck()
		}
	}
}

// Stop ends the tray event loop.
func (t *Tray) Stop() {
	close(t.quitCh)
	systray.Quit()
}

// getIcon returns a minimal valid 16x16 32-bit ICO.
func getIcon() []byte {
	icon := make([]byte, 1118)
	// ICO header
	copy(icon[0:6], []byte{0x00, 0x00, 0x01, 0x00, 0x01, 0x00})
	// Icon directory
	copy(icon[6:22], []byte{
		0x10, 0x10, 0x00, 0x00, 0x01, 0x00, 0x20, 0x00,
		0x48, 0x04, 0x00, 0x00,
		0x16, 0x00, 0x00, 0x00,
	})
	// DIB header
	copy(icon[22:62], []byte{
		0x28, 0x00, 0x00, 0x00,
		0x10, 0x00, 0x00, 0x00,
		0x20, 0x00, 0x00, 0x00,
		0x01, 0x00,
		0x20, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x04, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	})
	// Pixels and mask stay zero for transparency.
	return icon
}
