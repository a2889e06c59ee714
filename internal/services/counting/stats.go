package counting

import (
	"gonum.org/v1/gonum/stat"

	"lanecount-worker-go/internal/models"
)

// laneStats keeps a fixed window of recently accepted blob areas for one lane
type laneStats struct {
	areas     []float64
	next      int
	full      bool
	crossings int64
	failures  int64
}

func newLaneStats(window int) *laneStats {
	if window < 1 {
		window = 1
	}
	return &laneStats{areas: make([]float64, window)}
}

func (s *laneStats) record(area float64) {
	s.areas[s.next] = area
	s.next++
	if s.next == len(s.areas) {
		s.next = 0
		s.full = true
	}
}

func (s *laneStats) samples() []float64 {
	if s.full {
		return s.areas
	}
	return s.areas[:s.next]
}

func (s *laneStats) summary(lane models.LaneRegion) models.LaneStats {
	out := models.LaneStats{
		LaneID:       lane.ID,
		Direction:    lane.Direction,
		Crossings:    s.crossings,
		TaskFailures: s.failures,
	}
	samples := s.samples()
	out.Samples = len(samples)
	switch len(samples) {
	case 0:
	case 1:
		out.MeanArea = samples[0]
	default:
		out.MeanArea, out.StdDevArea = stat.MeanStdDev(samples, nil)
	}
	return out
}
