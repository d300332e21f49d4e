package app

import (
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/facecam/internal/control"
	"github.com/ayusman/facecam/internal/detector"
	"github.com/ayusman/facecam/internal/display"
	"github.com/ayusman/facecam/internal/log"
)

// flipHorizontal is OpenCV's flip code for mirroring around the y axis.
const flipHorizontal = 1

// loop runs iterations until a quit command or the first fault.
// There is no per-frame retry: any error ends the session.
//
// Per iteration:
// 1. Blocking read of one frame
// 2. Mirror it (selfie view)
// 3. Detect faces and draw their boxes
// 4. Show the annotated frame
// 5. Sample one key (or a remote command) and act on it
// 6. Sleep to cap the loop rate
func (a *App) loop(det detector.Detector, window display.Window) error {
	for {
		cmd, err := a.step(det, window)
		if err != nil {
			return &Fault{Kind: FaultRuntime, Err: err}
		}
		if cmd == control.Quit {
			log.Info("quit requested")
			return nil
		}

		if a.config.FrameDelay > 0 {
			time.Sleep(a.config.FrameDelay)
		}
	}
}

// step runs one iteration. A panic from the vision library is turned into
// an error so the shutdown path still runs.
func (a *App) step(det detector.Detector, window display.Window) (cmd control.Command, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in frame loop: %v", r)
		}
	}()

	frame, err := a.deps.Camera.ReadFrame()
	if err != nil {
		return control.None, err
	}
	defer frame.Close()

	if a.config.Mirror {
		gocv.Flip(*frame, frame, flipHorizontal)
	}

	faces, err := detector.DetectAndAnnotate(det, frame, a.config.Style)
	if err != nil {
		return control.None, fmt.Errorf("detect faces: %w", err)
	}

	if err := window.Show(frame); err != nil {
		return control.None, fmt.Errorf("show frame: %w", err)
	}

	a.mu.Lock()
	a.frames++
	a.mu.Unlock()

	cmd = control.FromKey(window.PollKey(a.config.KeyWait))
	if cmd == control.None {
		cmd = a.pollRemote()
	}

	if err := a.execute(cmd, frame, faces); err != nil {
		return control.None, err
	}
	return cmd, nil
}

// pollRemote returns a queued remote command without blocking.
func (a *App) pollRemote() control.Command {
	if a.deps.Remote == nil {
		return control.None
	}
	select {
	case cmd := <-a.deps.Remote.Commands():
		return cmd
	default:
		return control.None
	}
}

// execute performs the save commands against the annotated frame.
// SaveFaces with no faces in view is skipped without touching the disk.
func (a *App) execute(cmd control.Command, frame *gocv.Mat, faces []image.Rectangle) error {
	switch cmd {
	case control.Screenshot:
		path, err := a.deps.Sink.SaveScreenshot(frame)
		if err != nil {
			return fmt.Errorf("save screenshot: %w", err)
		}
		log.Info("screenshot saved", "path", path)
		a.recordSaved(path, 1)

	case control.SaveFaces:
		if len(faces) == 0 {
			log.Debug("no faces to save")
			return nil
		}
		paths, err := a.deps.Sink.SaveFaces(frame, faces)
		for _, p := range paths {
			log.Info("face image saved", "path", p)
		}
		if len(paths) > 0 {
			a.recordSaved(paths[len(paths)-1], len(paths))
		}
		if err != nil {
			return fmt.Errorf("save faces: %w", err)
		}
	}

	return nil
}

func (a *App) recordSaved(last string, n int) {
	a.mu.Lock()
	a.saved += n
	a.mu.Unlock()

	if a.deps.Remote != nil {
		a.deps.Remote.SetLastSaved(last)
	}
}
