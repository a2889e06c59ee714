package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type StreamHandler struct {
	streamer FrameStreamer
}

func NewStreamHandler(streamer FrameStreamer) *StreamHandler {
	return &StreamHandler{streamer: streamer}
}

// @Summary Annotated video stream
// @Description Multipart MJPEG stream of annotated frames
// @Tags stream
// @Produce multipart/x-mixed-replace
// @Success 200
// @Router /stream.mjpeg [get]
func (h *StreamHandler) StreamMJPEG(c *gin.Context) {
	h.streamer.StreamMJPEGHTTP(c.Writer, c.Request)
}

// @Summary Latest annotated frame
// @Description The last annotated frame as a JPEG image
// @Tags stream
// @Produce image/jpeg
// @Success 200
// @Failure 404 {object} ErrorResponse
// @Router /frame.jpg [get]
func (h *StreamHandler) LatestFrame(c *gin.Context) {
	jpeg, frameID := h.streamer.Latest()
	if len(jpeg) == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no frame published yet"})
		return
	}
	c.Header("X-Frame-ID", strconv.FormatInt(frameID, 10))
	c.Data(http.StatusOK, "image/jpeg", jpeg)
}
