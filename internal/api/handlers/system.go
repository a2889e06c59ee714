package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// SystemHandler handles system-related endpoints
type SystemHandler struct {
	WorkerID  string
	startedAt time.Time
	status    StatusProvider
	streamer  FrameStreamer
	source    SourceMonitor
	broker    BrokerMonitor
}

// NewSystemHandler creates a new system handler. source and broker may be nil.
func NewSystemHandler(workerID string, status StatusProvider, streamer FrameStreamer, source SourceMonitor, broker BrokerMonitor) *SystemHandler {
	return &SystemHandler{
		WorkerID:  workerID,
		startedAt: time.Now(),
		status:    status,
		streamer:  streamer,
		source:    source,
		broker:    broker,
	}
}

// @Summary Get system stats
// @Description Get system statistics and frame loop metrics
// @Tags system
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /system/stats [get]
func (h *SystemHandler) GetStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	st := h.status.Status()
	stats := gin.H{
		"worker_id":            h.WorkerID,
		"uptime_seconds":       int64(time.Since(h.startedAt).Seconds()),
		"memory_mb":            m.Alloc / 1024 / 1024,
		"cpu_cores":            runtime.NumCPU(),
		"goroutines":           runtime.NumGoroutine(),
		"go_version":           runtime.Version(),
		"frames_processed":     st.FramesProcessed,
		"last_frame_id":        st.LastFrameID,
		"last_frame_ms":        st.LastFrameDuration.Milliseconds(),
		"lane_failures":        st.LaneFailures,
		"frame_errors":         st.FrameErrors,
		"sink_failures":        st.SinkFailures,
		"dropped_sink_batches": st.DroppedBatches,
		"mjpeg_clients":        h.streamer.Clients(),
	}
	if h.source != nil {
		stats["source_fps"] = h.source.FPS()
		stats["last_capture_time"] = h.source.LastFrameTime()
	}
	if h.broker != nil {
		stats["nats_connected"] = h.broker.IsConnected()
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"stats":     stats,
		"timestamp": time.Now().Unix(),
	})
}

// @Summary Get debug info
// @Description Get frame loop state for troubleshooting
// @Tags system
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /system/debug [get]
func (h *SystemHandler) GetDebugInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"debug": gin.H{
			"worker_id":  h.WorkerID,
			"status":     h.status.Status(),
			"endpoints":  []string{"/health", "/counts", "/lanes", "/lanes/stats", "/crossings/recent", "/crossings/totals", "/stream.mjpeg", "/system"},
			"components": []string{"stream_capture", "segmenter", "counting", "mjpeg_publisher"},
		},
		"timestamp": time.Now().Unix(),
	})
}
