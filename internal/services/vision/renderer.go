package vision

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"lanecount-worker-go/internal/models"
)

// MatPublisher shows or streams an annotated frame next to its motion mask
type MatPublisher interface {
	PublishFrame(frame gocv.Mat, mask gocv.Mat, frameID int64) (quit bool, err error)
}

// FrameRenderer owns the decoded frame in flight. Segment decodes and
// segments it, the counting boxes are drawn onto it, and Finish draws the
// overlay, publishes and releases it. One frame at a time, one goroutine.
type FrameRenderer struct {
	segmenter *Segmenter
	publisher MatPublisher
	frame     gocv.Mat
	inFlight  bool
}

// NewFrameRenderer wires seg to pub; pub may be nil
func NewFrameRenderer(seg *Segmenter, pub MatPublisher) *FrameRenderer {
	return &FrameRenderer{segmenter: seg, publisher: pub}
}

func (r *FrameRenderer) Segment(raw *models.RawFrame) (*image.Gray, error) {
	r.release()

	frame, err := gocv.NewMatFromBytes(raw.Height, raw.Width, gocv.MatTypeCV8UC3, raw.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create Mat from frame data: %w", err)
	}
	r.frame = frame
	r.inFlight = true

	mask, err := r.segmenter.Segment(r.frame)
	if err != nil {
		return nil, fmt.Errorf("segmentation: %w", err)
	}
	return mask, nil
}

func (r *FrameRenderer) DrawBox(rect image.Rectangle, col color.RGBA, thickness int) {
	if !r.inFlight {
		return
	}
	MatCanvas{Mat: &r.frame}.DrawBox(rect, col, thickness)
}

func (r *FrameRenderer) Finish(o models.Overlay) (quit bool, err error) {
	if !r.inFlight {
		return false, errors.New("no frame in flight")
	}
	defer r.release()

	DrawOverlay(&r.frame, o)
	if r.publisher == nil {
		return false, nil
	}
	return r.publisher.PublishFrame(r.frame, r.segmenter.Mask(), o.FrameID)
}

func (r *FrameRenderer) release() {
	if r.inFlight {
		r.frame.Close()
		r.inFlight = false
	}
}

// Close releases a frame left in flight by a failed iteration
func (r *FrameRenderer) Close() {
	r.release()
}
