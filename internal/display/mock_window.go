package display

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MockWindow records shown frames and replays a scripted key sequence.
// Once the script is exhausted PollKey reports no key.
type MockWindow struct {
	keys   []int
	shown  int
	polls  int
	closed int
	last   []byte
	mu     sync.Mutex
}

// NewMockWindow returns a window that yields keys in order, one per poll.
// Use -1 for "no key" entries.
func NewMockWindow(keys ...int) *MockWindow {
	return &MockWindow{keys: keys}
}

func (w *MockWindow) Show(frame *gocv.Mat) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed > 0 {
		return ErrWindowClosed
	}
	w.shown++
	if frame != nil && !frame.Empty() {
		w.last = frame.ToBytes()
	}
	return nil
}

func (w *MockWindow) PollKey(wait time.Duration) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.polls++
	if len(w.keys) == 0 {
		return -1
	}
	k := w.keys[0]
	w.keys = w.keys[1:]
	return k
}

func (w *MockWindow) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed++
	return nil
}

// Shown returns how many frames were displayed.
func (w *MockWindow) Shown() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shown
}

// Polls returns how many times PollKey was called.
func (w *MockWindow) Polls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polls
}

// Closed returns how many times Close was called.
func (w *MockWindow) Closed() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// LastFrame returns the raw bytes of the most recently shown frame.
func (w *MockWindow) LastFrame() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}
