package blobs

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lanecount-worker-go/internal/models"
)

type stubFinder struct {
	regions []models.Region
	err     error
	calls   int
}

func (s *stubFinder) FindRegions(mask *image.Gray) ([]models.Region, error) {
	s.calls++
	return s.regions, s.err
}

// lane of height 200 between y=300 and y=500, margin 25
var testLane = models.LaneRegion{ID: 2, Top: 300, Bottom: 500, Width: 1920, Direction: models.DirectionWest, MarginGap: 25}

func laneMask(lane models.LaneRegion) *image.Gray {
	frame := image.NewGray(image.Rect(0, 0, lane.Width, 1080))
	return frame.SubImage(lane.Rect()).(*image.Gray)
}

func TestExtract_Filters(t *testing.T) {
	t.Parallel()

	good := models.Region{Box: image.Rect(900, 20, 1100, 180), Area: 30000, Points: 60}
	tests := []struct {
		name   string
		region models.Region
		reason Rejection
	}{
		{"accepted", good, RejectNone},
		{"too few points", models.Region{Box: good.Box, Area: 30000, Points: 10}, RejectPoints},
		{"area below min", models.Region{Box: good.Box, Area: 500, Points: 60}, RejectAreaSmall},
		{"area above max", models.Region{Box: good.Box, Area: 200000, Points: 60}, RejectAreaLarge},
		{"30 percent height", models.Region{Box: image.Rect(900, 20, 1100, 80), Area: 30000, Points: 60}, RejectHeight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			finder := &stubFinder{regions: []models.Region{tt.region}}
			ex, err := NewExtractor(finder, DefaultThresholds())
			require.NoError(t, err)

			assert.Equal(t, tt.reason, ex.Check(tt.region, testLane))

			blobs, err := ex.Extract(laneMask(testLane), testLane)
			require.NoError(t, err)
			if tt.reason == RejectNone {
				assert.Len(t, blobs, 1)
			} else {
				assert.Empty(t, blobs)
			}
		})
	}
}

func TestExtract_NormalizesBox(t *testing.T) {
	t.Parallel()

	finder := &stubFinder{regions: []models.Region{
		{Box: image.Rect(900, 40, 1100, 160), Area: 24000, Points: 40},
	}}
	ex, err := NewExtractor(finder, DefaultThresholds())
	require.NoError(t, err)

	blobs, err := ex.Extract(laneMask(testLane), testLane)
	require.NoError(t, err)
	require.Len(t, blobs, 1)

	assert.Equal(t, image.Rect(900, 275, 1100, 525), blobs[0].Box)
	assert.Equal(t, 250, blobs[0].Box.Dy())
	assert.Equal(t, testLane.ID, blobs[0].LaneID)
	assert.Equal(t, 24000.0, blobs[0].Area)
}

func TestExtract_Errors(t *testing.T) {
	t.Parallel()

	finder := &stubFinder{err: errors.New("boom")}
	ex, err := NewExtractor(finder, DefaultThresholds())
	require.NoError(t, err)

	_, err = ex.Extract(nil, testLane)
	assert.Error(t, err)

	wrong := image.NewGray(image.Rect(0, 0, 1920, 100))
	_, err = ex.Extract(wrong, testLane)
	assert.Error(t, err)
	assert.Equal(t, 0, finder.calls)

	_, err = ex.Extract(laneMask(testLane), testLane)
	require.Error(t, err)
	assert.ErrorContains(t, err, "boom")
}

func TestNewExtractor_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewExtractor(nil, DefaultThresholds())
	assert.Error(t, err)

	bad := DefaultThresholds()
	bad.MinArea = bad.MaxArea + 1
	_, err = NewExtractor(&stubFinder{}, bad)
	assert.Error(t, err)

	bad = DefaultThresholds()
	bad.MinHeightRatio = 1.5
	_, err = NewExtractor(&stubFinder{}, bad)
	assert.Error(t, err)
}
