// Package detector finds faces in video frames and draws their boxes.
package detector

import (
	"image"

	"gocv.io/x/gocv"
)

// Detector defines the interface for face detection implementations.
type Detector interface {
	// Detect analyzes a color frame and returns one rectangle per face,
	// in frame pixel coordinates. Returns an empty slice if no faces are
	// detected. The frame is not modified.
	Detect(frame *gocv.Mat) ([]image.Rectangle, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for cascade face detection.
type Config struct {
	// CascadePath is the Haar cascade XML model file.
	CascadePath string

	// ScaleFactor is the ratio between successive search window sizes (default: 1.1).
	ScaleFactor float64

	// MinNeighbors is how many overlapping raw hits a candidate needs to
	// be kept. Zero is legal and keeps every raw hit; only a negative
	// value falls back to the default of 5.
	MinNeighbors int

	// MinSize is the smallest face edge in pixels (default: 30).
	MinSize int
}

// DefaultConfig returns a Config with the detection policy the
// application ships with. CascadePath is left empty.
func DefaultConfig() Config {
	return Config{
		ScaleFactor:  1.1,
		MinNeighbors: 5,
		MinSize:      30,
	}
}
