package detector

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// cascadeScaleImage is OpenCV's CASCADE_SCALE_IMAGE flag.
const cascadeScaleImage = 2

var (
	// ErrModelNotFound is returned when the cascade file does not exist.
	// It wraps fs.ErrNotExist.
	ErrModelNotFound = fmt.Errorf("cascade model not found: %w", fs.ErrNotExist)
	// ErrModelLoad is returned when the cascade file exists but OpenCV
	// cannot parse it.
	ErrModelLoad = errors.New("failed to load cascade model")
	// ErrEmptyFrame is returned when Detect is given an empty frame.
	ErrEmptyFrame = errors.New("empty frame")
)

// CascadeDetector implements Detector with an OpenCV Haar cascade.
// The classifier is loaded once and reused for every frame.
type CascadeDetector struct {
	config     Config
	classifier gocv.CascadeClassifier
	gray       gocv.Mat
	mu         sync.Mutex
	closed     bool
}

// NewCascadeDetector loads the cascade named by config.CascadePath.
// A ScaleFactor of at most 1, a non-positive MinSize and a negative
// MinNeighbors are replaced by DefaultConfig values.
// A missing file is reported as ErrModelNotFound before OpenCV is touched.
func NewCascadeDetector(config Config) (*CascadeDetector, error) {
	def := DefaultConfig()
	if config.ScaleFactor <= 1.0 {
		config.ScaleFactor = def.ScaleFactor
	}
	if config.MinNeighbors < 0 {
		config.MinNeighbors = def.MinNeighbors
	}
	if config.MinSize <= 0 {
		config.MinSize = def.MinSize
	}

	info, err := os.Stat(config.CascadePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at: %s", ErrModelNotFound, config.CascadePath)
		}
		return nil, fmt.Errorf("stat cascade model: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrModelLoad, config.CascadePath)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(config.CascadePath) {
		classifier.Close()
		return nil, fmt.Errorf("%w: %s", ErrModelLoad, config.CascadePath)
	}

	return &CascadeDetector{
		config:     config,
		classifier: classifier,
		gray:       gocv.NewMat(),
	}, nil
}

// Detect converts the frame to gray-scale and runs multi-scale detection.
// Color is not used. Returned rectangles lie within the frame bounds.
func (d *CascadeDetector) Detect(frame *gocv.Mat) ([]image.Rectangle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, errors.New("detector is closed")
	}
	if frame == nil || frame.Empty() {
		return nil, ErrEmptyFrame
	}

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &d.gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&d.gray)
	}

	minSize := image.Pt(d.config.MinSize, d.config.MinSize)
	rects := d.classifier.DetectMultiScaleWithParams(
		d.gray,
		d.config.ScaleFactor,
		d.config.MinNeighbors,
		cascadeScaleImage,
		minSize,
		image.Pt(0, 0),
	)

	if rects == nil {
		rects = []image.Rectangle{}
	}
	return rects, nil
}

// Config returns the effective detection policy.
func (d *CascadeDetector) Config() Config {
	return d.config
}

// Close releases the classifier. Calling it more than once is safe.
func (d *CascadeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	d.gray.Close()
	return d.classifier.Close()
}
