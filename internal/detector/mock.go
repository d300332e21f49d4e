package detector

import (
	"image"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	faces  []image.Rectangle
	err    error
	calls  int
	closed int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFaces sets the rectangles that will be returned by Detect.
func (m *MockDetector) SetFaces(faces []image.Rectangle) {
	m.faces = faces
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns a copy of the pre-configured faces or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]image.Rectangle, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]image.Rectangle, len(m.faces))
	copy(out, m.faces)
	return out, nil
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	return m.calls
}

// Closed returns how many times Close was invoked.
func (m *MockDetector) Closed() int {
	return m.closed
}

func (m *MockDetector) Close() error {
	m.closed++
	return nil
}

// CenteredFace returns a square face box of the given size centered in a
// frame of width x height.
func CenteredFace(width, height, size int) image.Rectangle {
	x := (width - size) / 2
	y := (height - size) / 2
	return image.Rect(x, y, x+size, y+size)
}
