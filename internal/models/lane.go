package models

import "image"

// Direction is the travel direction assigned to a lane
type Direction string

const (
	DirectionWest Direction = "west"
	DirectionEast Direction = "east"
)

// String returns the string representation of Direction
func (d Direction) String() string {
	return string(d)
}

// IsValid checks if the direction is valid
func (d Direction) IsValid() bool {
	switch d {
	case DirectionWest, DirectionEast:
		return true
	default:
		return false
	}
}

// LaneRegion is one horizontal band of the frame. Top and Bottom bound the
// inner band, [Top, Bottom), after the margin gap was removed on both sides.
type LaneRegion struct {
	ID        int       `json:"id"`
	Top       int       `json:"top"`
	Bottom    int       `json:"bottom"`
	Width     int       `json:"width"`
	Direction Direction `json:"direction"`
	MarginGap int       `json:"margin_gap"`
}

// Height returns the inner band height
func (l LaneRegion) Height() int {
	return l.Bottom - l.Top
}

// Rect returns the inner band as a frame rectangle
func (l LaneRegion) Rect() image.Rectangle {
	return image.Rect(0, l.Top, l.Width, l.Bottom)
}

// BandTop is the top of the band including the margin gap
func (l LaneRegion) BandTop() int {
	return l.Top - l.MarginGap
}

// BandHeight is the band height including both margin gaps
func (l LaneRegion) BandHeight() int {
	return l.Height() + 2*l.MarginGap
}

// CrossingState is the debounce state kept for a single lane across frames
type CrossingState struct {
	LaneID       int  `json:"lane_id"`
	Occupied     bool `json:"occupied"`
	AbsentFrames int  `json:"absent_frames"`
}

// LaneOccupancy is a diagnostics view of one lane
type LaneOccupancy struct {
	LaneID    int       `json:"lane_id"`
	Direction Direction `json:"direction"`
	Occupied  bool      `json:"occupied"`
	Top       int       `json:"top"`
	Bottom    int       `json:"bottom"`
}
