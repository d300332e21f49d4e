package app

import (
	"bytes"
	"errors"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/facecam/internal/capture"
	"github.com/ayusman/facecam/internal/control"
	"github.com/ayusman/facecam/internal/detector"
	"github.com/ayusman/facecam/internal/display"
	"github.com/ayusman/facecam/internal/sink"
	"github.com/ayusman/facecam/internal/testframes"
)

// harness wires mocks into an App and records what Run acquired.
type harness struct {
	t           *testing.T
	camera      *capture.MockCamera
	detector    *detector.MockDetector
	window      *display.MockWindow
	windowOpens int
	dir         string
	deps        Deps
}

func newHarness(t *testing.T, keys ...int) *harness {
	t.Helper()

	frame := testframes.Noise(480, 640)
	t.Cleanup(func() { frame.Close() })

	h := &harness{
		t:        t,
		camera:   capture.NewMockCamera([]*gocv.Mat{&frame}, true),
		detector: detector.NewMockDetector(),
		window:   display.NewMockWindow(keys...),
		dir:      t.TempDir(),
	}

	h.deps = Deps{
		OpenDetector: func() (detector.Detector, error) { return h.detector, nil },
		Camera:       h.camera,
		OpenWindow: func() (display.Window, error) {
			h.windowOpens++
			return h.window, nil
		},
		Sink: sink.New(
			filepath.Join(h.dir, "screenshots"),
			filepath.Join(h.dir, "detected_faces"),
		),
	}
	return h
}

func (h *harness) run() (*App, error) {
	h.t.Helper()

	cfg := DefaultConfig()
	cfg.FrameDelay = 0

	a, err := New(cfg, h.deps)
	if err != nil {
		h.t.Fatalf("New() error = %v", err)
	}
	return a, a.Run()
}

func TestNew_RequiresDeps(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name   string
		mutate func(*Deps)
	}{
		{"no detector", func(d *Deps) { d.OpenDetector = nil }},
		{"no camera", func(d *Deps) { d.Camera = nil }},
		{"no window", func(d *Deps) { d.OpenWindow = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := h.deps
			tt.mutate(&deps)
			if _, err := New(DefaultConfig(), deps); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestApp_QuitReleasesCameraOnce(t *testing.T) {
	h := newHarness(t, -1, -1, 'q')

	a, err := h.run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if a.State() != StateTerminated {
		t.Errorf("State() = %v, want terminated", a.State())
	}
	if a.Frames() != 3 {
		t.Errorf("Frames() = %d, want 3", a.Frames())
	}
	if h.camera.Opens() != 1 {
		t.Errorf("camera opened %d times, want 1", h.camera.Opens())
	}
	if h.camera.Reads() != 3 {
		t.Errorf("camera read %d frames, want 3", h.camera.Reads())
	}
	if h.camera.Releases() != 1 {
		t.Errorf("camera released %d times, want 1", h.camera.Releases())
	}
	if h.camera.IsOpen() {
		t.Error("camera still open after Run")
	}
	if h.window.Closed() != 1 {
		t.Errorf("window closed %d times, want 1", h.window.Closed())
	}
	if h.detector.Closed() != 1 {
		t.Errorf("detector closed %d times, want 1", h.detector.Closed())
	}
	if h.window.Polls() != 3 {
		t.Errorf("keys polled %d times, want 3", h.window.Polls())
	}
}

func TestApp_MissingModelStopsBeforeDevices(t *testing.T) {
	h := newHarness(t, 'q')
	h.deps.OpenDetector = func() (detector.Detector, error) {
		cfg := detector.DefaultConfig()
		cfg.CascadePath = filepath.Join(h.dir, "haarcascade_frontalface_default.xml")
		return detector.NewCascadeDetector(cfg)
	}

	a, err := h.run()

	var fault *Fault
	if !errors.As(err, &fault) {
		t.Fatalf("Run() error = %v, want *Fault", err)
	}
	if fault.Kind != FaultConfig {
		t.Errorf("fault kind = %v, want configuration", fault.Kind)
	}
	if !errors.Is(err, detector.ErrModelNotFound) || !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not-found error, got %v", err)
	}

	if h.camera.Opens() != 0 {
		t.Errorf("camera opened %d times, want 0", h.camera.Opens())
	}
	if h.camera.Releases() != 0 {
		t.Errorf("camera released %d times, want 0", h.camera.Releases())
	}
	if h.windowOpens != 0 {
		t.Errorf("window opened %d times, want 0", h.windowOpens)
	}
	if a.Frames() != 0 {
		t.Errorf("Frames() = %d, want 0", a.Frames())
	}
	if a.State() != StateTerminated {
		t.Errorf("State() = %v, want terminated", a.State())
	}
}

func TestApp_CameraOpenFailure(t *testing.T) {
	h := newHarness(t, 'q')
	h.camera.SetOpenError(errors.New("device busy"))

	_, err := h.run()

	var fault *Fault
	if !errors.As(err, &fault) || fault.Kind != FaultDevice {
		t.Fatalf("Run() error = %v, want device fault", err)
	}
	if !errors.Is(err, capture.ErrCameraOpen) {
		t.Errorf("expected ErrCameraOpen, got %v", err)
	}
	if h.windowOpens != 0 {
		t.Errorf("window opened %d times, want 0", h.windowOpens)
	}
	if h.camera.Releases() != 0 {
		t.Errorf("camera released %d times, want 0", h.camera.Releases())
	}
	if h.detector.Closed() != 1 {
		t.Errorf("detector closed %d times, want 1", h.detector.Closed())
	}
}

func TestApp_WindowOpenFailure(t *testing.T) {
	h := newHarness(t)
	h.deps.OpenWindow = func() (display.Window, error) {
		return nil, errors.New("no display")
	}

	_, err := h.run()

	var fault *Fault
	if !errors.As(err, &fault) || fault.Kind != FaultDevice {
		t.Fatalf("Run() error = %v, want device fault", err)
	}
	if h.camera.Releases() != 1 {
		t.Errorf("camera released %d times, want 1", h.camera.Releases())
	}
}

func TestApp_ReadFailureIsFatal(t *testing.T) {
	frame := testframes.Black(48, 64)
	defer frame.Close()

	h := newHarness(t)
	// Two frames, no loop: the third read fails.
	h.camera = capture.NewMockCamera([]*gocv.Mat{&frame, &frame}, false)
	h.deps.Camera = h.camera

	a, err := h.run()

	var fault *Fault
	if !errors.As(err, &fault) || fault.Kind != FaultRuntime {
		t.Fatalf("Run() error = %v, want runtime fault", err)
	}
	if !errors.Is(err, capture.ErrReadFrame) {
		t.Errorf("expected ErrReadFrame, got %v", err)
	}
	if a.Frames() != 2 {
		t.Errorf("Frames() = %d, want 2", a.Frames())
	}
	if h.camera.Reads() != 2 {
		t.Errorf("camera read %d frames, want 2", h.camera.Reads())
	}
	if h.camera.Releases() != 1 {
		t.Errorf("camera released %d times, want 1", h.camera.Releases())
	}
	if h.window.Closed() != 1 {
		t.Errorf("window closed %d times, want 1", h.window.Closed())
	}
}

func TestApp_DetectorErrorIsFatal(t *testing.T) {
	h := newHarness(t)
	h.detector.SetError(errors.New("classifier failed"))

	_, err := h.run()

	var fault *Fault
	if !errors.As(err, &fault) || fault.Kind != FaultRuntime {
		t.Fatalf("Run() error = %v, want runtime fault", err)
	}
	if h.camera.Releases() != 1 {
		t.Errorf("camera released %d times, want 1", h.camera.Releases())
	}
	if h.window.Shown() != 0 {
		t.Errorf("window showed %d frames, want 0", h.window.Shown())
	}
}

type panicDetector struct{ closed int }

func (p *panicDetector) Detect(*gocv.Mat) ([]image.Rectangle, error) { panic("bad frame") }
func (p *panicDetector) Close() error                                 { p.closed++; return nil }

func TestApp_PanicBecomesRuntimeFault(t *testing.T) {
	h := newHarness(t)
	pd := &panicDetector{}
	h.deps.OpenDetector = func() (detector.Detector, error) { return pd, nil }

	a, err := h.run()

	var fault *Fault
	if !errors.As(err, &fault) || fault.Kind != FaultRuntime {
		t.Fatalf("Run() error = %v, want runtime fault", err)
	}
	if h.camera.Releases() != 1 {
		t.Errorf("camera released %d times, want 1", h.camera.Releases())
	}
	if pd.closed != 1 {
		t.Errorf("detector closed %d times, want 1", pd.closed)
	}
	if a.State() != StateTerminated {
		t.Errorf("State() = %v, want terminated", a.State())
	}
}

func TestApp_NoFacesShowsMirroredFrame(t *testing.T) {
	h := newHarness(t, 'q')

	src := testframes.Noise(48, 64)
	defer src.Close()
	h.camera = capture.NewMockCamera([]*gocv.Mat{&src}, true)
	h.deps.Camera = h.camera

	if _, err := h.run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := gocv.NewMat()
	defer want.Close()
	gocv.Flip(src, &want, 1)

	if !bytes.Equal(h.window.LastFrame(), want.ToBytes()) {
		t.Error("displayed frame differs from the mirrored input")
	}
}

func TestApp_Screenshot(t *testing.T) {
	h := newHarness(t, 's', 'q')

	a, err := h.run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(h.dir, "screenshots"))
	if err != nil {
		t.Fatalf("screenshot directory missing: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 screenshot, got %d", len(entries))
	}
	name := entries[0].Name()
	if _, err := time.Parse("screenshot_"+sink.TimestampLayout+".png", name); err != nil {
		t.Errorf("unexpected screenshot name %q: %v", name, err)
	}
	if a.Saved() != 1 {
		t.Errorf("Saved() = %d, want 1", a.Saved())
	}
}

func TestApp_SaveFaces(t *testing.T) {
	h := newHarness(t, 'f', 'q')
	h.detector.SetFaces([]image.Rectangle{
		image.Rect(10, 10, 70, 70),
		detector.CenteredFace(640, 480, 120),
	})

	a, err := h.run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(h.dir, "detected_faces"))
	if err != nil {
		t.Fatalf("faces directory missing: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 face files, got %d", len(entries))
	}
	if a.Saved() != 2 {
		t.Errorf("Saved() = %d, want 2", a.Saved())
	}
}

func TestApp_SaveFacesWithoutFacesIsNoop(t *testing.T) {
	h := newHarness(t, 'f', 'f', 'q')

	a, err := h.run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(h.dir, "detected_faces")); !os.IsNotExist(err) {
		t.Errorf("faces directory should not be created, stat err = %v", err)
	}
	if a.Saved() != 0 {
		t.Errorf("Saved() = %d, want 0", a.Saved())
	}
}

type fakeRemote struct {
	cmds  chan control.Command
	saved []string
}

func (r *fakeRemote) Commands() <-chan control.Command { return r.cmds }
func (r *fakeRemote) SetLastSaved(path string)         { r.saved = append(r.saved, path) }

func TestApp_RemoteCommands(t *testing.T) {
	h := newHarness(t)
	remote := &fakeRemote{cmds: make(chan control.Command, 2)}
	remote.cmds <- control.Screenshot
	remote.cmds <- control.Quit
	h.deps.Remote = remote

	a, err := h.run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if a.Frames() != 2 {
		t.Errorf("Frames() = %d, want 2", a.Frames())
	}
	if len(remote.saved) != 1 {
		t.Fatalf("remote notified %d times, want 1", len(remote.saved))
	}
	if filepath.Dir(remote.saved[0]) != filepath.Join(h.dir, "screenshots") {
		t.Errorf("remote got %q", remote.saved[0])
	}
	if h.camera.Releases() != 1 {
		t.Errorf("camera released %d times, want 1", h.camera.Releases())
	}
}

func TestApp_KeyTakesPrecedenceOverRemote(t *testing.T) {
	h := newHarness(t, 'q')
	remote := &fakeRemote{cmds: make(chan control.Command, 1)}
	remote.cmds <- control.Screenshot
	h.deps.Remote = remote

	if _, err := h.run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(remote.saved) != 0 {
		t.Error("remote screenshot should not run after a quit key")
	}
}

func TestFault_Error(t *testing.T) {
	base := errors.New("boom")
	f := &Fault{Kind: FaultRuntime, Err: base}

	if f.Error() != "runtime fault: boom" {
		t.Errorf("Error() = %q", f.Error())
	}
	if !errors.Is(f, base) {
		t.Error("Fault should unwrap to its cause")
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateNew:          "new",
		StateStarting:     "starting",
		StateRunning:      "running",
		StateShuttingDown: "shutting-down",
		StateTerminated:   "terminated",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}

func TestHeld_ReleaseOnce(t *testing.T) {
	var h held[*detector.MockDetector]

	if err := h.release(); err != nil {
		t.Errorf("release of unacquired resource = %v, want nil", err)
	}

	m := detector.NewMockDetector()
	h.set(m)
	h.release()
	h.release()

	if m.Closed() != 1 {
		t.Errorf("Closed() = %d, want 1", m.Closed())
	}
}
