package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"lanecount-worker-go/internal/models"
	"lanecount-worker-go/internal/services/counting"
)

var (
	textWhite   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	lineYellow  = color.RGBA{R: 255, G: 215, B: 0, A: 255}
	guideGray   = color.RGBA{R: 90, G: 90, B: 90, A: 255}
	westCounter = color.RGBA{R: 100, G: 255, B: 100, A: 255}
	eastCounter = color.RGBA{R: 255, G: 100, B: 100, A: 255}
)

// DrawOverlay draws lane guides, the crossing line and the counter panel
func DrawOverlay(mat *gocv.Mat, o models.Overlay) {
	if mat == nil || mat.Empty() {
		return
	}
	width, height := mat.Cols(), mat.Rows()

	for _, lane := range o.Occupancy {
		gocv.Line(mat, image.Pt(0, lane.Bottom), image.Pt(width, lane.Bottom), guideGray, 1)
		if lane.Occupied {
			marker := image.Rect(o.CrossingLineX-6, lane.Top, o.CrossingLineX+6, lane.Bottom)
			gocv.Rectangle(mat, marker, counting.DirectionColor(lane.Direction), -1)
		}
	}

	gocv.Line(mat, image.Pt(o.CrossingLineX, 0), image.Pt(o.CrossingLineX, height), lineYellow, 2)

	x, y := 20, 40
	w := DrawCounter(mat, "WESTBOUND", o.Counts.Westbound, x, y, westCounter)
	DrawCounter(mat, "EASTBOUND", o.Counts.Eastbound, x+w+12, y, eastCounter)

	DrawTextEnhanced(mat, fmt.Sprintf("%s  frame %d", o.SourceID, o.FrameID), x+8, height-20, textWhite, 0.55, 1)
}

// DrawCounter draws "TITLE | N" on a dark background and returns its width
func DrawCounter(mat *gocv.Mat, title string, value int64, x, y int, valueColor color.RGBA) int {
	if mat == nil {
		return 0
	}

	fontFace := gocv.FontHersheySimplex
	fontScale := 0.65
	thickness := 2
	padding := 10
	spacing := 10

	titleSize := gocv.GetTextSize(title, fontFace, fontScale, thickness)
	valueText := fmt.Sprintf("%d", value)
	valueSize := gocv.GetTextSize(valueText, fontFace, fontScale, thickness)
	separator := "|"
	sepSize := gocv.GetTextSize(separator, fontFace, fontScale, thickness)

	totalWidth := titleSize.X + sepSize.X + valueSize.X + spacing*2 + padding*2
	textHeight := titleSize.Y

	bgRect := image.Rect(x, y-textHeight-padding, x+totalWidth, y+padding)
	gocv.Rectangle(mat, bgRect, color.RGBA{A: 240}, -1)
	gocv.Rectangle(mat, bgRect, color.RGBA{R: 80, G: 80, B: 80, A: 255}, 1)

	shadow := color.RGBA{A: 150}
	textX := x + padding
	gocv.PutText(mat, title, image.Pt(textX+1, y+1), fontFace, fontScale, shadow, thickness)
	gocv.PutText(mat, title, image.Pt(textX, y), fontFace, fontScale, textWhite, thickness)
	textX += titleSize.X + spacing

	gocv.PutText(mat, separator, image.Pt(textX, y), fontFace, fontScale, color.RGBA{R: 120, G: 120, B: 120, A: 255}, thickness)
	textX += sepSize.X + spacing

	gocv.PutText(mat, valueText, image.Pt(textX+1, y+1), fontFace, fontScale, shadow, thickness)
	gocv.PutText(mat, valueText, image.Pt(textX, y), fontFace, fontScale, valueColor, thickness)

	return totalWidth
}

// DrawTextEnhanced draws text with customizable font scale and thickness
func DrawTextEnhanced(mat *gocv.Mat, text string, x, y int, textColor color.RGBA, fontScale float64, thickness int) {
	fontFace := gocv.FontHersheySimplex
	textSize := gocv.GetTextSize(text, fontFace, fontScale, thickness)

	padding := 8
	bgRect := image.Rect(x-padding, y-textSize.Y-padding, x+textSize.X+padding, y+padding)
	gocv.Rectangle(mat, bgRect, color.RGBA{A: 200}, -1)
	gocv.Rectangle(mat, bgRect, color.RGBA{R: 40, G: 40, B: 40, A: 255}, 1)

	gocv.PutText(mat, text, image.Pt(x+1, y+1), fontFace, fontScale, color.RGBA{A: 100}, thickness)
	gocv.PutText(mat, text, image.Pt(x, y), fontFace, fontScale, textColor, thickness)
}
