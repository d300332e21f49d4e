// Package tray provides a system tray menu as a second way to control facecam.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/facecam/internal/control"
)

// commandBuffer bounds how many menu clicks can queue between two loop
// iterations. Extra clicks are dropped.
const commandBuffer = 4

// Tray is the system tray menu. Clicks are turned into control.Commands
// which the frame loop drains once per iteration.
type Tray struct {
	cmds    chan control.Command
	done    chan struct{}
	mu      sync.RWMutex
	started bool
	stopped bool

	// Menu items stored for later updates
	menuLastSaved *systray.MenuItem
}

// New creates a Tray. Nothing is shown until Start is called.
func New() *Tray {
	return &Tray{
		cmds: make(chan control.Command, commandBuffer),
		done: make(chan struct{}),
	}
}

// Commands returns the channel menu clicks are delivered on.
func (t *Tray) Commands() <-chan control.Command {
	return t.cmds
}

// Start registers the tray icon. It does not block: the native event loop
// is pumped by the preview window's key polling, so the frame loop stays
// on the main goroutine. Enabling the tray adds one background goroutine
// that forwards menu clicks, so the process is no longer single-threaded.
func (t *Tray) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started || t.stopped {
		return
	}
	t.started = true
	systray.Register(t.onReady, t.onExit)
}

// Stop ends click forwarding. It does not call systray.Quit since
// systray.Run never owned the native loop; the icon goes away with the
// process.
func (t *Tray) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	t.stopped = true
	close(t.done)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Facecam")
	systray.SetTooltip("Facecam face detection")

	menuScreenshot := systray.AddMenuItem("Save Screenshot", "Save the current frame")
	menuFaces := systray.AddMenuItem("Save Detected Faces", "Save each detected face")
	systray.AddSeparator()

	lastSaved := systray.AddMenuItem("Last saved: none", "Most recently written file")
	lastSaved.Disable()
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Facecam")

	t.mu.Lock()
	t.menuLastSaved = lastSaved
	t.mu.Unlock()

	go t.forward(menuScreenshot.ClickedCh, menuFaces.ClickedCh, menuQuit.ClickedCh)
}

// forward turns menu clicks into commands until Quit is clicked or the
// tray is stopped.
func (t *Tray) forward(screenshot, faces, quit <-chan struct{}) {
	for {
		select {
		case <-t.done:
			return
		case <-screenshot:
			t.emit(control.Screenshot)
		case <-faces:
			t.emit(control.SaveFaces)
		case <-quit:
			t.emit(control.Quit)
			return
		}
	}
}

func (t *Tray) onExit() {}

// emit queues cmd without blocking the menu goroutine.
func (t *Tray) emit(cmd control.Command) bool {
	select {
	case t.cmds <- cmd:
		return true
	default:
		return false
	}
}

// SetLastSaved updates the "last saved" menu line.
func (t *Tray) SetLastSaved(path string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLastSaved == nil {
		return
	}
	if path == "" {
		t.menuLastSaved.SetTitle("Last saved: none")
	} else {
		t.menuLastSaved.SetTitle("Last saved: " + path)
	}
}
