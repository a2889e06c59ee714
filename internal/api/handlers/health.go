package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	WorkerID string
	Version  string
	status   StatusProvider
}

func NewHealthHandler(workerID, version string, status StatusProvider) *HealthHandler {
	return &HealthHandler{WorkerID: workerID, Version: version, status: status}
}

type HealthResponse struct {
	Status          string `json:"status" example:"healthy"`
	WorkerID        string `json:"worker_id" example:"worker-1"`
	FramesProcessed int64  `json:"frames_processed" example:"1024"`
}

type WorkerInfoResponse struct {
	WorkerID     string   `json:"worker_id" example:"worker-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Healthy while the frame loop is running
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	st := h.status.Status()
	resp := HealthResponse{
		Status:          "healthy",
		WorkerID:        h.WorkerID,
		FramesProcessed: st.FramesProcessed,
	}
	if !st.Running {
		resp.Status = "stopped"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Worker information
// @Description Get basic worker information and capabilities
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} WorkerInfoResponse
// @Router / [get]
func (h *HealthHandler) WorkerInfo(c *gin.Context) {
	status := "stopped"
	if h.status.Status().Running {
		status = "running"
	}
	c.JSON(http.StatusOK, WorkerInfoResponse{
		WorkerID: h.WorkerID,
		Status:   status,
		Version:  h.Version,
		Capabilities: []string{
			"lane_partitioning",
			"vehicle_counting",
			"mjpeg_streaming",
		},
	})
}
