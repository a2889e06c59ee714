package models

import (
	"image"
	"time"
)

// CrossingEvent is emitted once per IDLE to OCCUPIED transition of a lane
type CrossingEvent struct {
	ID        string          `json:"id"`
	SourceID  string          `json:"source_id"`
	LaneID    int             `json:"lane_id"`
	Direction Direction       `json:"direction"`
	FrameID   int64           `json:"frame_id"`
	Timestamp time.Time       `json:"timestamp"`
	Box       image.Rectangle `json:"box"`
}

// CountSnapshot is a point-in-time copy of the directional counters
type CountSnapshot struct {
	Westbound int64 `json:"westbound"`
	Eastbound int64 `json:"eastbound"`
	Total     int64 `json:"total"`
}

// LaneStats summarizes accepted blob areas seen recently in a lane
type LaneStats struct {
	LaneID       int       `json:"lane_id"`
	Direction    Direction `json:"direction"`
	Crossings    int64     `json:"crossings"`
	Samples      int       `json:"samples"`
	MeanArea     float64   `json:"mean_area"`
	StdDevArea   float64   `json:"stddev_area"`
	TaskFailures int64     `json:"task_failures"`
}
