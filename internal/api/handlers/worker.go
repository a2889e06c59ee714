package handlers

import (
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"lanecount-worker-go/internal/config"
	"lanecount-worker-go/internal/logging"
)

type WorkerHandler struct {
	cfg *config.Config
}

func NewWorkerHandler(cfg *config.Config) *WorkerHandler {
	return &WorkerHandler{cfg: cfg}
}

type WorkerDetailsResponse struct {
	WorkerID    string       `json:"worker_id"`
	Version     string       `json:"version"`
	Environment string       `json:"environment"`
	Port        int          `json:"port"`
	SourceID    string       `json:"source_id"`
	StartTime   time.Time    `json:"start_time"`
	Config      WorkerConfig `json:"config"`
}

type WorkerConfig struct {
	LaneBoundaries     []int   `json:"lane_boundaries"`
	LaneMarginGap      int     `json:"lane_margin_gap"`
	LaneDirectionSplit int     `json:"lane_direction_split"`
	CrossingLineX      int     `json:"crossing_line_x"`
	MinBoundaryPoints  int     `json:"min_boundary_points"`
	MinHeightRatio     float64 `json:"min_height_ratio"`
	MinArea            float64 `json:"min_area"`
	MaxArea            float64 `json:"max_area"`
	RearmAfterFrames   int     `json:"rearm_after_frames"`
	DilateIterations   int     `json:"dilate_iterations"`
	ErodeIterations    int     `json:"erode_iterations"`
	MaxFPS             int     `json:"max_fps"`
}

type ShutdownRequest struct {
	Force bool `json:"force,omitempty"`
}

type ShutdownResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

var startTime = time.Now()

// GetInfo godoc
// @Summary Get worker information
// @Description Get the worker identity and its counting configuration
// @Tags worker
// @Accept json
// @Produce json
// @Success 200 {object} WorkerDetailsResponse
// @Router /worker/info [get]
func (h *WorkerHandler) GetInfo(c *gin.Context) {
	c.JSON(http.StatusOK, WorkerDetailsResponse{
		WorkerID:    h.cfg.WorkerID,
		Version:     h.cfg.Version,
		Environment: h.cfg.Environment,
		Port:        h.cfg.Port,
		SourceID:    h.cfg.SourceID,
		StartTime:   startTime,
		Config: WorkerConfig{
			LaneBoundaries:     h.cfg.LaneBoundaries,
			LaneMarginGap:      h.cfg.LaneMarginGap,
			LaneDirectionSplit: h.cfg.LaneDirectionSplit,
			CrossingLineX:      h.cfg.CrossingLineX,
			MinBoundaryPoints:  h.cfg.MinBoundaryPoints,
			MinHeightRatio:     h.cfg.MinHeightRatio,
			MinArea:            h.cfg.MinArea,
			MaxArea:            h.cfg.MaxArea,
			RearmAfterFrames:   h.cfg.RearmAfterFrames,
			DilateIterations:   h.cfg.DilateIterations,
			ErodeIterations:    h.cfg.ErodeIterations,
			MaxFPS:             h.cfg.MaxFPS,
		},
	})
}

// Shutdown godoc
// @Summary Shutdown worker
// @Description Gracefully shutdown the worker service
// @Tags worker
// @Accept json
// @Produce json
// @Param shutdown body ShutdownRequest false "Shutdown options"
// @Success 200 {object} ShutdownResponse
// @Router /worker/shutdown [post]
func (h *WorkerHandler) Shutdown(c *gin.Context) {
	var req ShutdownRequest
	c.ShouldBindJSON(&req) // Optional body

	event := logging.Info(c)
	if req.Force {
		event = logging.Warn(c)
	}
	event.Bool("force", req.Force).Msg("Shutdown requested over HTTP")

	c.JSON(http.StatusOK, ShutdownResponse{
		Status:    "shutting_down",
		Message:   "Worker shutdown initiated",
		Timestamp: time.Now(),
	})

	// Initiate shutdown in a goroutine to allow response to be sent
	go func() {
		time.Sleep(100 * time.Millisecond)
		if req.Force {
			os.Exit(0)
		}
		process, _ := os.FindProcess(os.Getpid())
		process.Signal(syscall.SIGTERM)
	}()
}
