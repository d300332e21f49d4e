// Package display shows annotated frames and samples keyboard input.
package display

import (
	"errors"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// ErrWindowClosed is returned when showing a frame on a closed window.
var ErrWindowClosed = errors.New("window is closed")

// Window is a display surface that can also report key presses.
type Window interface {
	// Show renders frame. The frame is not retained.
	Show(frame *gocv.Mat) error
	// PollKey waits up to wait for a key press and returns its code,
	// or -1 if none arrived.
	PollKey(wait time.Duration) int
	// Close destroys the window. It is safe to call more than once.
	Close() error
}

// highguiWindow is a Window backed by an OpenCV highgui window.
type highguiWindow struct {
	window *gocv.Window
	mu     sync.Mutex
}

// NewWindow opens a named highgui window.
func NewWindow(title string) Window {
	return &highguiWindow{window: gocv.NewWindow(title)}
}

func (w *highguiWindow) Show(frame *gocv.Mat) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.window == nil {
		return ErrWindowClosed
	}
	if frame == nil || frame.Empty() {
		return errors.New("cannot show empty frame")
	}

	w.window.IMShow(*frame)
	return nil
}

// PollKey rounds wait up to whole milliseconds; highgui treats 0 as
// "wait forever", so the minimum is 1ms.
func (w *highguiWindow) PollKey(wait time.Duration) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.window == nil {
		return -1
	}

	ms := int((wait + time.Millisecond - 1) / time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	return w.window.WaitKey(ms)
}

func (w *highguiWindow) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.window == nil {
		return nil
	}
	err := w.window.Close()
	w.window = nil
	return err
}
