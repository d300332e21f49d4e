// Package testframes builds frames for tests without a camera.
package testframes

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"

	"gocv.io/x/gocv"
)

// Files shipped in the gocv module source, relative to its root.
const (
	// FaceImage is a photo with exactly one frontal face.
	FaceImage = "images/face.jpg"
	// FaceCascade is OpenCV's default frontal face Haar cascade.
	FaceCascade = "data/haarcascade_frontalface_default.xml"
)

// ErrNoAssets is returned when the gocv module source cannot be found,
// for example in a binary built with -trimpath.
var ErrNoAssets = errors.New("gocv module source not available")

// Solid returns a rows x cols BGR frame filled with one color.
func Solid(rows, cols int, b, g, r float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(b, g, r, 0), rows, cols, gocv.MatTypeCV8UC3)
}

// Black returns an all-zero BGR frame.
func Black(rows, cols int) gocv.Mat {
	return Solid(rows, cols, 0, 0, 0)
}

// Noise returns a BGR frame of uniform random pixels. It is useful where
// a test needs every pixel to differ from its mirror image.
func Noise(rows, cols int) gocv.Mat {
	m := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC3)
	gocv.RandU(&m, gocv.NewScalar(0, 0, 0, 0), gocv.NewScalar(255, 255, 255, 0))
	return m
}

// Load reads an image file as a color frame.
func Load(path string) (*gocv.Mat, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("load frame %s: %w", path, err)
	}

	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("decode frame %s: not an image", path)
	}

	return &mat, nil
}

// GocvAsset returns the path of a file in the gocv module source the
// test binary was compiled from.
func GocvAsset(rel string) (string, error) {
	pc := reflect.ValueOf(gocv.NewMat).Pointer()
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "", ErrNoAssets
	}
	file, _ := fn.FileLine(pc)
	if !filepath.IsAbs(file) {
		return "", fmt.Errorf("%w: source path %q", ErrNoAssets, file)
	}

	path := filepath.Join(filepath.Dir(file), filepath.FromSlash(rel))
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoAssets, err)
	}
	return path, nil
}

// Face loads gocv's single-face photo.
func Face() (*gocv.Mat, error) {
	path, err := GocvAsset(FaceImage)
	if err != nil {
		return nil, err
	}
	return Load(path)
}
