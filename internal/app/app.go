// Package app runs the facecam capture, detect, display loop.
package app

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ayusman/facecam/internal/capture"
	"github.com/ayusman/facecam/internal/control"
	"github.com/ayusman/facecam/internal/detector"
	"github.com/ayusman/facecam/internal/display"
	"github.com/ayusman/facecam/internal/log"
	"github.com/ayusman/facecam/internal/sink"
)

// Loop timing defaults.
const (
	// DefaultKeyWait is how long each iteration waits for a key press.
	DefaultKeyWait = time.Millisecond
	// DefaultFrameDelay caps the loop rate.
	DefaultFrameDelay = 30 * time.Millisecond
)

// State is the lifecycle phase of an App.
type State int

const (
	StateNew State = iota
	StateStarting
	StateRunning
	StateShuttingDown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting-down"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FaultKind says where a fault happened, which decides how it is reported.
type FaultKind int

const (
	// FaultConfig is a startup configuration problem such as a missing model file.
	FaultConfig FaultKind = iota + 1
	// FaultDevice means the camera or display could not be acquired.
	FaultDevice
	// FaultRuntime is any failure inside the running loop.
	FaultRuntime
)

func (k FaultKind) String() string {
	switch k {
	case FaultConfig:
		return "configuration"
	case FaultDevice:
		return "device"
	case FaultRuntime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Fault is returned by Run for every abnormal exit.
type Fault struct {
	Kind FaultKind
	Err  error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s fault: %v", f.Kind, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// Remote is an optional second command source, such as the tray menu.
type Remote interface {
	Commands() <-chan control.Command
	SetLastSaved(path string)
}

// Config holds loop behaviour.
type Config struct {
	KeyWait    time.Duration
	FrameDelay time.Duration
	Mirror     bool
	Style      detector.Style
}

// DefaultConfig returns the loop settings the application ships with.
func DefaultConfig() Config {
	return Config{
		KeyWait:    DefaultKeyWait,
		FrameDelay: DefaultFrameDelay,
		Mirror:     true,
		Style:      detector.DefaultStyle(),
	}
}

// Deps are the external capabilities the loop drives. Detector and window
// are created through factories so that Run controls acquisition order:
// model first, then camera, then window.
type Deps struct {
	OpenDetector func() (detector.Detector, error)
	Camera       capture.Camera
	OpenWindow   func() (display.Window, error)
	Sink         *sink.Sink
	Remote       Remote
}

// App owns the detector, camera and window for one session.
type App struct {
	config Config
	deps   Deps

	mu     sync.RWMutex
	state  State
	frames int
	saved  int
}

// New creates an App. Zero KeyWait falls back to 1ms.
func New(config Config, deps Deps) (*App, error) {
	if deps.OpenDetector == nil {
		return nil, errors.New("app: OpenDetector is required")
	}
	if deps.Camera == nil {
		return nil, errors.New("app: Camera is required")
	}
	if deps.OpenWindow == nil {
		return nil, errors.New("app: OpenWindow is required")
	}
	if deps.Sink == nil {
		deps.Sink = sink.New("", "")
	}
	if config.KeyWait <= 0 {
		config.KeyWait = DefaultKeyWait
	}
	if config.FrameDelay < 0 {
		config.FrameDelay = 0
	}

	return &App{
		config: config,
		deps:   deps,
		state:  StateNew,
	}, nil
}

// Run acquires resources, runs the loop until quit or fault, and always
// releases what was acquired before returning. It returns nil after a
// normal quit and a *Fault otherwise.
func (a *App) Run() (err error) {
	a.setState(StateStarting)

	var (
		det    held[detector.Detector]
		window held[display.Window]
	)

	defer func() {
		a.shutdown(&det, &window)
		if err != nil {
			log.Error("an error occurred", "err", err)
		}
		log.Info("application closed", "frames", a.Frames(), "saved", a.Saved())
	}()

	d, err := a.deps.OpenDetector()
	if err != nil {
		return &Fault{Kind: FaultConfig, Err: err}
	}
	det.set(d)

	if err := a.deps.Camera.Open(); err != nil {
		return &Fault{Kind: FaultDevice, Err: err}
	}

	w, err := a.deps.OpenWindow()
	if err != nil {
		return &Fault{Kind: FaultDevice, Err: fmt.Errorf("open window: %w", err)}
	}
	window.set(w)

	a.setState(StateRunning)
	log.Info(control.Help)

	return a.loop(det.v, window.v)
}

// shutdown releases the camera and window. The camera's Close is a no-op
// if it was never opened.
func (a *App) shutdown(det *held[detector.Detector], window *held[display.Window]) {
	a.setState(StateShuttingDown)

	if err := a.deps.Camera.Close(); err != nil {
		log.Warn("error closing camera", "err", err)
	}
	if err := window.release(); err != nil {
		log.Warn("error closing window", "err", err)
	}
	if err := det.release(); err != nil {
		log.Warn("error closing detector", "err", err)
	}

	a.setState(StateTerminated)
}

// State returns the current lifecycle phase.
func (a *App) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *App) setState(s State) {
	a.mu.Lock()
	prev := a.state
	a.state = s
	a.mu.Unlock()

	log.Debug("state change", "from", prev, "to", s)
}

// Frames returns how many frames have been displayed.
func (a *App) Frames() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.frames
}

// Saved returns how many image files have been written.
func (a *App) Saved() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.saved
}

// held is a resource that may or may not have been acquired.
// release closes it at most once.
type held[T interface{ Close() error }] struct {
	v  T
	ok bool
}

func (h *held[T]) set(v T) {
	h.v = v
	h.ok = true
}

func (h *held[T]) release() error {
	if !h.ok {
		return nil
	}
	h.ok = false
	return h.v.Close()
}
