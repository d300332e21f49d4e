// Package sink writes screenshots and cropped faces to timestamped PNG files.
package sink

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"gocv.io/x/gocv"
)

// TimestampLayout gives second granularity: 20240131_235959.
const TimestampLayout = "20060102_150405"

// Default output directories.
const (
	DefaultScreenshotDir = "screenshots"
	DefaultFacesDir      = "detected_faces"
)

// ErrWrite is returned when OpenCV fails to encode or write an image.
var ErrWrite = errors.New("failed to write image")

// Sink persists frames. Files are named from the wall clock at second
// granularity and are not de-duplicated: two saves of the same kind in
// the same second overwrite each other.
type Sink struct {
	screenshotDir string
	facesDir      string
	now           func() time.Time
}

// Option configures a Sink.
type Option func(*Sink)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Sink) {
		s.now = now
	}
}

// New creates a Sink writing into the given directories. Empty names
// fall back to "screenshots" and "detected_faces".
func New(screenshotDir, facesDir string, opts ...Option) *Sink {
	if screenshotDir == "" {
		screenshotDir = DefaultScreenshotDir
	}
	if facesDir == "" {
		facesDir = DefaultFacesDir
	}

	s := &Sink{
		screenshotDir: screenshotDir,
		facesDir:      facesDir,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScreenshotPath returns the file a screenshot taken at t is written to.
func (s *Sink) ScreenshotPath(t time.Time) string {
	return filepath.Join(s.screenshotDir, fmt.Sprintf("screenshot_%s.png", t.Format(TimestampLayout)))
}

// FacePath returns the file the index-th face saved at t is written to.
func (s *Sink) FacePath(t time.Time, index int) string {
	return filepath.Join(s.facesDir, fmt.Sprintf("face_%s_%d.png", t.Format(TimestampLayout), index))
}

// SaveScreenshot writes frame as a PNG, creating the screenshot directory
// if needed, and returns the path written.
func (s *Sink) SaveScreenshot(frame *gocv.Mat) (string, error) {
	if frame == nil || frame.Empty() {
		return "", fmt.Errorf("%w: empty frame", ErrWrite)
	}

	if err := os.MkdirAll(s.screenshotDir, 0755); err != nil {
		return "", fmt.Errorf("create screenshot directory: %w", err)
	}

	path := s.ScreenshotPath(s.now())
	if !gocv.IMWrite(path, *frame) {
		return "", fmt.Errorf("%w: %s", ErrWrite, path)
	}

	return path, nil
}

// SaveFaces writes one PNG per rectangle, cropped from frame. All files
// from one call share a timestamp and are told apart by a zero-based
// index. With no rectangles nothing is created, not even the directory.
//
// Rectangles are used as given; they must already lie within the frame.
// Paths written before a failure are returned along with the error.
func (s *Sink) SaveFaces(frame *gocv.Mat, faces []image.Rectangle) ([]string, error) {
	if len(faces) == 0 {
		return nil, nil
	}
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("%w: empty frame", ErrWrite)
	}

	if err := os.MkdirAll(s.facesDir, 0755); err != nil {
		return nil, fmt.Errorf("create faces directory: %w", err)
	}

	ts := s.now()
	paths := make([]string, 0, len(faces))

	for i, r := range faces {
		path := s.FacePath(ts, i)

		crop := frame.Region(r)
		ok := gocv.IMWrite(path, crop)
		crop.Close()

		if !ok {
			return paths, fmt.Errorf("%w: %s", ErrWrite, path)
		}
		paths = append(paths, path)
	}

	return paths, nil
}
