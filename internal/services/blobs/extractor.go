// Package blobs turns the motion pixels of one lane into candidate vehicle boxes.
package blobs

import (
	"errors"
	"fmt"
	"image"

	"lanecount-worker-go/internal/models"
)

// RegionFinder cleans a mask and reports its connected regions with boxes
// relative to mask.Rect.Min. Implementations must not retain the mask.
type RegionFinder interface {
	FindRegions(mask *image.Gray) ([]models.Region, error)
}

// Thresholds are the acceptance rules for a region
type Thresholds struct {
	MinBoundaryPoints int
	MinHeightRatio    float64
	MinArea           float64
	MaxArea           float64
}

// DefaultThresholds returns the values observed to work on 1080p highway footage
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinBoundaryPoints: 25,
		MinHeightRatio:    0.4,
		MinArea:           8000,
		MaxArea:           120000,
	}
}

// Validate checks the thresholds are usable
func (t Thresholds) Validate() error {
	if t.MinBoundaryPoints < 0 {
		return fmt.Errorf("min boundary points must not be negative, got %d", t.MinBoundaryPoints)
	}
	if t.MinHeightRatio < 0 || t.MinHeightRatio > 1 {
		return fmt.Errorf("min height ratio must be within [0,1], got %g", t.MinHeightRatio)
	}
	if t.MinArea < 0 || t.MaxArea <= 0 || t.MinArea > t.MaxArea {
		return fmt.Errorf("area window [%g,%g] is invalid", t.MinArea, t.MaxArea)
	}
	return nil
}

// Rejection is why a region was dropped
type Rejection string

const (
	RejectNone      Rejection = ""
	RejectPoints    Rejection = "boundary_points"
	RejectHeight    Rejection = "height"
	RejectAreaSmall Rejection = "area_below_min"
	RejectAreaLarge Rejection = "area_above_max"
)

// Extractor filters the regions of a lane's mask slice
type Extractor struct {
	finder     RegionFinder
	thresholds Thresholds
}

func NewExtractor(finder RegionFinder, thresholds Thresholds) (*Extractor, error) {
	if finder == nil {
		return nil, errors.New("region finder is required")
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{finder: finder, thresholds: thresholds}, nil
}

// Extract returns the accepted blobs of one lane. mask must be the lane's
// slice of the frame mask, i.e. its bounds equal lane.Rect().
func (e *Extractor) Extract(mask *image.Gray, lane models.LaneRegion) ([]models.CandidateBlob, error) {
	if mask == nil || mask.Rect.Empty() {
		return nil, fmt.Errorf("lane %d: empty mask slice", lane.ID)
	}
	if mask.Rect != lane.Rect() {
		return nil, fmt.Errorf("lane %d: mask slice %v does not match lane rect %v", lane.ID, mask.Rect, lane.Rect())
	}

	regions, err := e.finder.FindRegions(mask)
	if err != nil {
		return nil, fmt.Errorf("lane %d: find regions: %w", lane.ID, err)
	}

	var blobs []models.CandidateBlob
	for _, region := range regions {
		if e.Check(region, lane) != RejectNone {
			continue
		}
		blobs = append(blobs, models.CandidateBlob{
			Box:    normalize(region.Box, mask.Rect.Min, lane),
			Area:   region.Area,
			LaneID: lane.ID,
		})
	}
	return blobs, nil
}

// Check applies the acceptance rules to a single region
func (e *Extractor) Check(region models.Region, lane models.LaneRegion) Rejection {
	t := e.thresholds
	switch {
	case region.Points < t.MinBoundaryPoints:
		return RejectPoints
	case float64(region.Box.Dy()) < t.MinHeightRatio*float64(lane.Height()):
		return RejectHeight
	case region.Area < t.MinArea:
		return RejectAreaSmall
	case region.Area > t.MaxArea:
		return RejectAreaLarge
	}
	return RejectNone
}

// normalize maps a region box found relative to origin into frame space and
// stretches it to the full band of the lane, margins included.
func normalize(box image.Rectangle, origin image.Point, lane models.LaneRegion) image.Rectangle {
	x := box.Min.X + origin.X
	return image.Rect(x, lane.BandTop(), x+box.Dx(), lane.BandTop()+lane.BandHeight())
}
