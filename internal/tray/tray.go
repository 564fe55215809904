// Package tray provides a system tray interface for winkmouse.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle    func(enabled bool)
	onDashboard func()
	onQuit      func()
	enabled     bool
	lastClick   string
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggle    *systray.MenuItem
	menuLastClick *systray.MenuItem
	menuDashboard *systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnDashboard sets the callback for the "Open Dashboard..." item. Without
// one the item is disabled.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called and must run on the main thread.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray event loop.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("winkmouse")
	systray.SetTooltip("winkmouse: wink to click")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(ToggleTitle(t.enabled), "Toggle blink clicks")
	systray.AddSeparator()

	t.menuLastClick = systray.AddMenuItem(LastClickTitle(t.lastClick), "Last emitted click")
	t.menuLastClick.Disable()
	systray.AddSeparator()

	t.menuDashboard = systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	if t.onDashboard == nil {
		t.menuDashboard.Disable()
	}
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit winkmouse")
	toggleCh := t.menuToggle.ClickedCh
	dashboardCh := t.menuDashboard.ClickedCh
	t.mu.Unlock()

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-toggleCh:
				t.handleToggle()
			case <-dashboardCh:
				t.handleDashboard()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				systray.Quit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(ToggleTitle(enabled))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleDashboard handles the dashboard menu item click.
func (t *Tray) handleDashboard() {
	t.mu.RLock()
	callback := t.onDashboard
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// SetEnabled updates the toggle item when the state changed elsewhere,
// without calling the toggle callback.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(ToggleTitle(enabled))
	}
}

// SetLastClick updates the last click display in the menu.
func (t *Tray) SetLastClick(side string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastClick = side
	if t.menuLastClick != nil {
		t.menuLastClick.SetTitle(LastClickTitle(side))
	}
}

// LastClick returns the side of the last click shown in the menu.
func (t *Tray) LastClick() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastClick
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// ToggleTitle is the toggle item label for the given state.
func ToggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

// LastClickTitle is the label of the last click item.
func LastClickTitle(side string) string {
	if side == "" {
		return "Last: none"
	}
	return "Last: " + side
}
