package streamcapture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"lanecount-worker-go/internal/config"
	"lanecount-worker-go/internal/models"
)

// ErrFrameUnavailable means the source has no more frames: end of file, or a
// live stream that kept failing.
var ErrFrameUnavailable = models.ErrFrameUnavailable

const (
	maxConsecutiveErrors = 10
	fpsWindowSize        = 30
)

// Kind is how a video source is opened
type Kind string

const (
	KindFile   Kind = "file"
	KindRTSP   Kind = "rtsp"
	KindDevice Kind = "device"
)

// ClassifySource decides how VIDEO_SOURCE should be opened
func ClassifySource(source string) Kind {
	lower := strings.ToLower(source)
	switch {
	case strings.HasPrefix(lower, "rtsp://"), strings.HasPrefix(lower, "rtsps://"),
		strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return KindRTSP
	}
	if _, err := strconv.Atoi(source); err == nil {
		return KindDevice
	}
	return KindFile
}

// Service reads frames from a single video source
type Service struct {
	cfg  *config.Config
	log  zerolog.Logger
	kind Kind

	cap *gocv.VideoCapture
	img gocv.Mat

	frameID int64
	width   int
	height  int

	mu          sync.Mutex
	recentTimes []time.Time
	lastFrame   time.Time
}

// NewService opens cfg.VideoSource
func NewService(cfg *config.Config) (*Service, error) {
	s := &Service{
		cfg:  cfg,
		log:  log.With().Str("service", "streamcapture").Str("source_id", cfg.SourceID).Logger(),
		kind: ClassifySource(cfg.VideoSource),
	}

	s.log.Info().
		Str("source", cfg.VideoSource).
		Str("kind", string(s.kind)).
		Msg("Opening video source")

	cap, err := s.open()
	if err != nil {
		return nil, err
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("video source %q could not be opened", cfg.VideoSource)
	}

	s.cap = cap
	s.img = gocv.NewMat()
	s.width = int(cap.Get(gocv.VideoCaptureFrameWidth))
	s.height = int(cap.Get(gocv.VideoCaptureFrameHeight))
	if cfg.FrameWidth > 0 && cfg.FrameHeight > 0 {
		s.width, s.height = cfg.FrameWidth, cfg.FrameHeight
	}

	s.log.Info().
		Float64("source_fps", cap.Get(gocv.VideoCaptureFPS)).
		Int("width", s.width).
		Int("height", s.height).
		Msg("VideoCapture opened successfully")

	return s, nil
}

func (s *Service) open() (*gocv.VideoCapture, error) {
	switch s.kind {
	case KindRTSP:
		s.configureFFmpegOptions()
		cap, err := gocv.OpenVideoCaptureWithAPI(s.cfg.VideoSource, gocv.VideoCaptureFFmpeg)
		if err != nil {
			return nil, fmt.Errorf("failed to open stream %s: %w", s.cfg.VideoSource, err)
		}
		cap.Set(gocv.VideoCaptureBufferSize, 1)
		return cap, nil
	case KindDevice:
		device, _ := strconv.Atoi(s.cfg.VideoSource)
		cap, err := gocv.OpenVideoCapture(device)
		if err != nil {
			return nil, fmt.Errorf("failed to open device %d: %w", device, err)
		}
		return cap, nil
	default:
		if _, err := os.Stat(s.cfg.VideoSource); err != nil {
			return nil, fmt.Errorf("video file %s: %w", s.cfg.VideoSource, err)
		}
		cap, err := gocv.OpenVideoCapture(s.cfg.VideoSource)
		if err != nil {
			return nil, fmt.Errorf("failed to open video file %s: %w", s.cfg.VideoSource, err)
		}
		return cap, nil
	}
}

// FrameSize is the size of every frame Read returns
func (s *Service) FrameSize() (int, int) {
	return s.width, s.height
}

// Read returns the next frame as BGR24 bytes. Files end with
// ErrFrameUnavailable on their first failed read; live sources are retried
// with a growing delay first.
func (s *Service) Read(ctx context.Context) (*models.RawFrame, error) {
	consecutiveErrors := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if s.cap.Read(&s.img) && !s.img.Empty() {
			break
		}

		if s.kind == KindFile {
			return nil, ErrFrameUnavailable
		}

		consecutiveErrors++
		s.log.Warn().
			Int("consecutive_errors", consecutiveErrors).
			Msg("Failed to read frame from VideoCapture")
		if consecutiveErrors >= maxConsecutiveErrors {
			return nil, fmt.Errorf("%w: %d consecutive read errors", ErrFrameUnavailable, consecutiveErrors)
		}

		delay := time.Duration(consecutiveErrors*50) * time.Millisecond
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	data, err := s.toBGR(s.img)
	if err != nil {
		return nil, err
	}

	s.frameID++
	now := time.Now()
	s.trackFrameTime(now)

	return &models.RawFrame{
		SourceID:  s.cfg.SourceID,
		Data:      data,
		Timestamp: now,
		FrameID:   s.frameID,
		Width:     s.width,
		Height:    s.height,
		Format:    "BGR24",
	}, nil
}

func (s *Service) toBGR(img gocv.Mat) ([]byte, error) {
	if img.Cols() == s.width && img.Rows() == s.height {
		return img.ToBytes(), nil
	}
	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(img, &resized, image.Pt(s.width, s.height), 0, 0, gocv.InterpolationLinear)
	if resized.Empty() {
		return nil, errors.New("resize produced an empty frame")
	}
	return resized.ToBytes(), nil
}

func (s *Service) trackFrameTime(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFrame = t
	s.recentTimes = append(s.recentTimes, t)
	if len(s.recentTimes) > fpsWindowSize {
		s.recentTimes = s.recentTimes[1:]
	}
}

// FPS is the read rate over the last frames
func (s *Service) FPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.recentTimes) < 2 {
		return 0
	}
	span := s.recentTimes[len(s.recentTimes)-1].Sub(s.recentTimes[0]).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(len(s.recentTimes)-1) / span
}

// LastFrameTime is when the last frame was read
func (s *Service) LastFrameTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFrame
}

func (s *Service) Close() {
	if s.cap != nil {
		s.cap.Close()
	}
	s.img.Close()
}

// configureFFmpegOptions sets FFmpeg capture options for network streams
func (s *Service) configureFFmpegOptions() {
	options := []string{
		"rtsp_transport;tcp",
		"buffer_size;2097152",
		"max_delay;500000",
		"stimeout;5000000",
		"rw_timeout;5000000",
		"flags;low_delay",
		"fflags;nobuffer+flush_packets",
		"analyzeduration;500000",
		"probesize;2000000",
		"allowed_media_types;video",
		"reconnect;1",
		"reconnect_streamed;1",
		"reconnect_delay_max;2",
	}
	opts := strings.Join(options, "|")
	os.Setenv("OPENCV_FFMPEG_CAPTURE_OPTIONS", opts)
	s.log.Debug().Str("ffmpeg_options", opts).Msg("FFmpeg options configured for OpenCV")
}
