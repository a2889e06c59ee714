package vision

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// MatCanvas draws counting boxes onto a BGR frame
type MatCanvas struct {
	Mat *gocv.Mat
}

func (c MatCanvas) DrawBox(r image.Rectangle, col color.RGBA, thickness int) {
	if c.Mat == nil || c.Mat.Empty() {
		return
	}
	gocv.Rectangle(c.Mat, r, col, thickness)
}
