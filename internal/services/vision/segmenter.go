// Package vision holds the OpenCV side of the counter: background
// segmentation, contour extraction and frame annotation.
package vision

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// SegmenterConfig holds the MOG2 parameters
type SegmenterConfig struct {
	History   int
	Threshold float64
}

// Segmenter turns BGR frames into binary motion masks. It keeps a background
// model across frames and must only be used from one goroutine.
type Segmenter struct {
	mog2   gocv.BackgroundSubtractorMOG2
	gray   gocv.Mat
	fg     gocv.Mat
	binary gocv.Mat
}

func NewSegmenter(cfg SegmenterConfig) *Segmenter {
	return &Segmenter{
		mog2:   gocv.NewBackgroundSubtractorMOG2WithParams(cfg.History, cfg.Threshold, false),
		gray:   gocv.NewMat(),
		fg:     gocv.NewMat(),
		binary: gocv.NewMat(),
	}
}

// Segment updates the background model with frame and returns the foreground
// mask as a frame sized *image.Gray with 255 for motion and 0 elsewhere.
func (s *Segmenter) Segment(frame gocv.Mat) (*image.Gray, error) {
	if frame.Empty() {
		return nil, errors.New("empty frame")
	}

	gocv.CvtColor(frame, &s.gray, gocv.ColorBGRToGray)
	gocv.Normalize(s.gray, &s.gray, 0, 255, gocv.NormMinMax)
	s.mog2.Apply(s.gray, &s.fg)
	gocv.Threshold(s.fg, &s.binary, 127, 255, gocv.ThresholdBinary)

	if s.binary.Empty() {
		return nil, errors.New("background subtractor produced no mask")
	}
	return MatToGray(s.binary)
}

// Mask returns the last binary mask for display. It is overwritten by the next Segment call.
func (s *Segmenter) Mask() gocv.Mat {
	return s.binary
}

func (s *Segmenter) Close() {
	s.mog2.Close()
	s.gray.Close()
	s.fg.Close()
	s.binary.Close()
}

// MatToGray copies a single channel 8 bit Mat into an *image.Gray
func MatToGray(m gocv.Mat) (*image.Gray, error) {
	if m.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("expected single channel 8 bit mat, got type %v", m.Type())
	}
	rows, cols := m.Rows(), m.Cols()
	pix := m.ToBytes()
	if len(pix) != rows*cols {
		return nil, fmt.Errorf("mat data has %d bytes, want %d", len(pix), rows*cols)
	}
	return &image.Gray{Pix: pix, Stride: cols, Rect: image.Rect(0, 0, cols, rows)}, nil
}

// GrayToMat copies img, which may be a SubImage view, into a new Mat.
// The caller owns the returned Mat.
func GrayToMat(img *image.Gray) (gocv.Mat, error) {
	b := img.Rect
	compact := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		copy(compact.Pix[y*compact.Stride:(y+1)*compact.Stride], src[:b.Dx()])
	}
	return gocv.ImageGrayToMatGray(compact)
}
