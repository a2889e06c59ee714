package models

import (
	"errors"
	"image"
	"image/color"
	"time"
)

// ErrFrameUnavailable means the source has no more frames: end of file, or a
// live stream that kept failing.
var ErrFrameUnavailable = errors.New("frame unavailable")

// RawFrame represents a frame read from the video source
type RawFrame struct {
	SourceID  string
	Data      []byte // BGR24
	Timestamp time.Time
	FrameID   int64
	Width     int
	Height    int
	Format    string
}

// DrawCommand is a rectangle the merge phase draws onto the annotated frame
type DrawCommand struct {
	LaneID    int
	Box       image.Rectangle
	Color     color.RGBA
	Thickness int
}

// Overlay is everything drawn on top of a frame besides the vehicle boxes
type Overlay struct {
	Counts        CountSnapshot
	Occupancy     []LaneOccupancy
	CrossingLineX int
	FrameID       int64
	SourceID      string
}
