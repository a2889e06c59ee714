package models

import "image"

// Region is a connected mask region as reported by a region finder, in the
// coordinates of the mask it was found in
type Region struct {
	Box    image.Rectangle
	Area   float64
	Points int
}

// CandidateBlob is an accepted, normalized vehicle box in frame coordinates
type CandidateBlob struct {
	Box    image.Rectangle `json:"box"`
	Area   float64         `json:"area"`
	LaneID int             `json:"lane_id"`
}

// Straddles reports whether the blob's horizontal extent covers x
func (b CandidateBlob) Straddles(x int) bool {
	return b.Box.Min.X <= x && x <= b.Box.Max.X
}
