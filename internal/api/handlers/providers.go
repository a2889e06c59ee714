package handlers

import (
	"context"
	"net/http"
	"time"

	"lanecount-worker-go/internal/models"
)

// Counter is the read side of the counting orchestrator
type Counter interface {
	Counts() models.CountSnapshot
	Lanes() []models.LaneRegion
	Occupancy() []models.LaneOccupancy
	LaneStats() []models.LaneStats
	CrossingLineX() int
}

// StatusProvider reports the frame loop state
type StatusProvider interface {
	Status() models.WorkerStatus
}

// CrossingHistory reads the crossing journal
type CrossingHistory interface {
	// Recent lists journaled crossings, newest first
	Recent(ctx context.Context, limit int) ([]models.CrossingEvent, error)
	DirectionTotals(ctx context.Context) (map[models.Direction]int64, error)
}

// SourceMonitor reports the capture rate of the video source
type SourceMonitor interface {
	FPS() float64
	LastFrameTime() time.Time
}

// BrokerMonitor reports whether the event broker is reachable
type BrokerMonitor interface {
	IsConnected() bool
}

// FrameStreamer serves annotated frames
type FrameStreamer interface {
	StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request)
	Latest() ([]byte, int64)
	Clients() int
}

// ErrorResponse is returned with every non 2xx status
type ErrorResponse struct {
	Error string `json:"error" example:"journal disabled"`
}
