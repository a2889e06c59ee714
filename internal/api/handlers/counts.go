package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lanecount-worker-go/internal/logging"
	"lanecount-worker-go/internal/models"
)

type CountsHandler struct {
	counter Counter
	history CrossingHistory
}

// NewCountsHandler wires the counter; history may be nil when the journal is disabled
func NewCountsHandler(counter Counter, history CrossingHistory) *CountsHandler {
	return &CountsHandler{counter: counter, history: history}
}

type LanesResponse struct {
	CrossingLineX int                    `json:"crossing_line_x" example:"960"`
	Lanes         []models.LaneRegion    `json:"lanes"`
	Occupancy     []models.LaneOccupancy `json:"occupancy"`
}

type CrossingsResponse struct {
	Count     int                    `json:"count" example:"2"`
	Crossings []models.CrossingEvent `json:"crossings"`
}

// @Summary Directional counts
// @Description Westbound and eastbound totals since start
// @Tags counts
// @Produce json
// @Success 200 {object} models.CountSnapshot
// @Router /counts [get]
func (h *CountsHandler) GetCounts(c *gin.Context) {
	c.JSON(http.StatusOK, h.counter.Counts())
}

// @Summary Lane layout and occupancy
// @Description Lane bands, their direction and whether a vehicle is on the line
// @Tags lanes
// @Produce json
// @Success 200 {object} LanesResponse
// @Router /lanes [get]
func (h *CountsHandler) GetLanes(c *gin.Context) {
	c.JSON(http.StatusOK, LanesResponse{
		CrossingLineX: h.counter.CrossingLineX(),
		Lanes:         h.counter.Lanes(),
		Occupancy:     h.counter.Occupancy(),
	})
}

// @Summary Lane diagnostics
// @Description Per lane crossings, task failures and recent blob area statistics
// @Tags lanes
// @Produce json
// @Success 200 {array} models.LaneStats
// @Router /lanes/stats [get]
func (h *CountsHandler) GetLaneStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.counter.LaneStats())
}

// @Summary Recent crossings
// @Description Latest journaled crossings, newest first
// @Tags counts
// @Produce json
// @Param limit query int false "Maximum number of crossings (default: 50, max: 500)"
// @Success 200 {object} CrossingsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /crossings/recent [get]
func (h *CountsHandler) GetRecentCrossings(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "journal disabled"})
		return
	}

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(parsed, 500)
	}

	crossings, err := h.history.Recent(c.Request.Context(), limit)
	if err != nil {
		logging.Error(c).Err(err).Msg("Failed to read crossing journal")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to read crossings"})
		return
	}

	logging.Debug(c).Int("limit", limit).Int("count", len(crossings)).Msg("Read recent crossings")
	c.JSON(http.StatusOK, CrossingsResponse{Count: len(crossings), Crossings: crossings})
}

// @Summary Journaled totals
// @Description Crossings per direction as recorded in the journal, across restarts
// @Tags counts
// @Produce json
// @Success 200 {object} models.CountSnapshot
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /crossings/totals [get]
func (h *CountsHandler) GetCrossingTotals(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "journal disabled"})
		return
	}

	totals, err := h.history.DirectionTotals(c.Request.Context())
	if err != nil {
		logging.Error(c).Err(err).Msg("Failed to total crossing journal")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to read crossing totals"})
		return
	}

	west, east := totals[models.DirectionWest], totals[models.DirectionEast]
	c.JSON(http.StatusOK, models.CountSnapshot{Westbound: west, Eastbound: east, Total: west + east})
}
