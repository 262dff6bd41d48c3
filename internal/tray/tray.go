// Package tray provides a system tray menu for the intelevision labelling service.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/intelevision/internal/snapshot"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle       func(enabled bool) bool
	onSwitchCamera func()
	onSettings     func()
	onQuit         func()
	enabled        bool
	summary        string
	mu             sync.RWMutex

	// Menu items stored for later updates
	menuToggle  *systray.MenuItem
	menuSummary *systray.MenuItem
}

// New creates a new Tray. Detection shows as disabled until SetEnabled.
func New() *Tray {
	return &Tray{summary: Summary(snapshot.Empty())}
}

// OnToggle sets the callback run when detection is toggled. It returns the
// resulting state, which may differ from the request when enabling fails.
func (t *Tray) OnToggle(fn func(enabled bool) bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSwitchCamera sets the callback for the switch camera menu item.
func (t *Tray) OnSwitchCamera(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSwitchCamera = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Attach keeps the summary line in step with store.
func (t *Tray) Attach(store *snapshot.Store) *snapshot.Subscription {
	return store.Subscribe(func(s snapshot.Snapshot) {
		t.SetSummary(Summary(s))
	})
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Intelevision")
	systray.SetTooltip("Intelevision scene labelling")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle detection")
	systray.AddSeparator()

	t.menuSummary = systray.AddMenuItem(t.summary, "Latest snapshot")
	t.menuSummary.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuSwitch := systray.AddMenuItem("Switch Camera", "Flip between front and back cameras")
	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Intelevision")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSwitch.ClickedCh:
				t.handleSwitchCamera()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Detection on"
	}
	return "○ Detection off"
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.RLock()
	want := !t.enabled
	callback := t.onToggle
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	got := want
	if callback != nil {
		got = callback(want)
	}
	t.SetEnabled(got)
}

func (t *Tray) handleSwitchCamera() {
	t.mu.RLock()
	callback := t.onSwitchCamera
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleSettings handles the settings menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
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

	systray.Quit()
}

// SetEnabled updates the toggle item to match the detection state.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// SetSummary updates the snapshot line in the menu.
func (t *Tray) SetSummary(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.summary = text
	if t.menuSummary != nil {
		t.menuSummary.SetTitle(text)
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// LastSummary returns the text of the snapshot line.
func (t *Tray) LastSummary() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.summary
}

// Summary renders a snapshot as a short menu line such as "2 people, 1 object".
func Summary(s snapshot.Snapshot) string {
	if !s.CameraActive {
		return "Camera idle"
	}
	return fmt.Sprintf("%s, %s",
		plural(len(s.Persons), "person", "people"),
		plural(len(s.Objects), "object", "objects"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}
