package models

import "time"

// WorkerStatus describes the frame loop for health and diagnostics endpoints
type WorkerStatus struct {
	Running           bool          `json:"running"`
	StartedAt         time.Time     `json:"started_at"`
	FramesProcessed   int64         `json:"frames_processed"`
	LastFrameID       int64         `json:"last_frame_id"`
	LastFrameTime     time.Time     `json:"last_frame_time"`
	LastFrameDuration time.Duration `json:"last_frame_duration_ns"`
	LaneFailures      int64         `json:"lane_failures"`
	FrameErrors       int64         `json:"frame_errors"`
	SinkFailures      int64         `json:"sink_failures"`
	DroppedBatches    int64         `json:"dropped_batches"`
	StopReason        string        `json:"stop_reason,omitempty"`
}
