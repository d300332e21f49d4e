package detector

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Style is how detection boxes are drawn.
type Style struct {
	Color     color.RGBA
	Thickness int
}

// DefaultStyle draws 2px green boxes.
func DefaultStyle() Style {
	return Style{
		Color:     color.RGBA{R: 0, G: 255, B: 0, A: 0},
		Thickness: 2,
	}
}

// Annotate draws one box per rectangle onto frame, in place.
// The rectangles themselves are left untouched, and an empty slice leaves
// the frame unchanged.
func Annotate(frame *gocv.Mat, rects []image.Rectangle, style Style) {
	if frame == nil || frame.Empty() {
		return
	}
	if style.Thickness <= 0 {
		style.Thickness = DefaultStyle().Thickness
	}

	for _, r := range rects {
		gocv.Rectangle(frame, r, style.Color, style.Thickness)
	}
}

// DetectAndAnnotate runs d on frame and draws the results onto it.
// The returned rectangles describe the faces as detected, before drawing.
func DetectAndAnnotate(d Detector, frame *gocv.Mat, style Style) ([]image.Rectangle, error) {
	rects, err := d.Detect(frame)
	if err != nil {
		return nil, err
	}

	Annotate(frame, rects, style)
	return rects, nil
}
