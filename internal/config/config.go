package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"lanecount-worker-go/internal/services/lanes"
)

type Config struct {
	// Application
	Version     string
	Environment string
	WorkerID    string
	Port        int
	GRPCPort    int
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Source
	VideoSource string // file path, RTSP URL or device index
	SourceID    string
	FrameWidth  int // 0 keeps the source size
	FrameHeight int
	MaxFPS      int // 0 processes as fast as frames arrive
	ShowWindow  bool

	// Lane layout
	LaneBoundaries     []int
	LaneMarginGap      int
	LaneDirectionSplit int
	CrossingLineX      int

	// laneBoundariesErr keeps a malformed LANE_BOUNDARIES for Validate
	laneBoundariesErr error

	// Blob acceptance
	MinBoundaryPoints int
	MinHeightRatio    float64
	MinArea           float64
	MaxArea           float64

	// Debounce
	RearmAfterFrames int

	// Segmentation
	BackgroundHistory   int
	BackgroundThreshold float64
	DilateIterations    int
	ErodeIterations     int

	// Diagnostics
	LaneStatsWindow int

	// NATS (crossing events)
	NatsEnabled        bool
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	CrossingsSubject   string

	// Crossing journal, disabled when empty
	JournalPath string

	// Stream Output
	MJPEGQuality int

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	cfg := &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		WorkerID:    getEnv("WORKER_ID", "worker-1"),
		Port:        getEnvInt("PORT", 8000),
		GRPCPort:    getEnvInt("GRPC_PORT", 8001),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// Source
		VideoSource: getEnv("VIDEO_SOURCE", ""),
		SourceID:    getEnv("SOURCE_ID", "lane-camera-1"),
		FrameWidth:  getEnvInt("FRAME_WIDTH", 0),
		FrameHeight: getEnvInt("FRAME_HEIGHT", 0),
		MaxFPS:      getEnvInt("MAX_FPS", 0),
		ShowWindow:  getEnvBool("SHOW_WINDOW", false),

		// Lane layout
		LaneMarginGap:      getEnvInt("LANE_MARGIN_GAP", 0),
		LaneDirectionSplit: getEnvInt("LANE_DIRECTION_SPLIT", 410),
		CrossingLineX:      getEnvInt("CROSSING_LINE_X", 960),

		// Blob acceptance
		MinBoundaryPoints: getEnvInt("MIN_BOUNDARY_POINTS", 25),
		MinHeightRatio:    getEnvFloat("MIN_HEIGHT_RATIO", 0.4),
		MinArea:           getEnvFloat("MIN_AREA", 8000),
		MaxArea:           getEnvFloat("MAX_AREA", 120000),

		RearmAfterFrames: getEnvInt("REARM_AFTER_FRAMES", 1),

		// Segmentation
		BackgroundHistory:   getEnvInt("BG_HISTORY", 150),
		BackgroundThreshold: getEnvFloat("BG_THRESHOLD", 75),
		DilateIterations:    getEnvInt("DILATE_ITERATIONS", 50),
		ErodeIterations:     getEnvInt("ERODE_ITERATIONS", 50),

		LaneStatsWindow: getEnvInt("LANE_STATS_WINDOW", 100),

		// NATS
		NatsEnabled:        getEnvBool("NATS_ENABLED", false),
		NatsURL:            getNatsURL(),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		CrossingsSubject:   getEnv("CROSSINGS_SUBJECT", "traffic.crossings"),

		JournalPath: getEnv("JOURNAL_PATH", ""),

		MJPEGQuality: getEnvInt("MJPEG_QUALITY", 80),

		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	// Lane layout (1080p highway camera)
	cfg.LaneBoundaries, cfg.laneBoundariesErr = getEnvIntList("LANE_BOUNDARIES", []int{100, 270, 410, 630, 885})

	return cfg
}

// Validate checks the settings that cannot be defaulted away. A malformed
// LANE_BOUNDARIES is a *lanes.ConfigurationError; the rest of the lane layout
// is checked by the partitioner once the frame size is known.
func (c *Config) Validate() error {
	var errs []error
	if c.VideoSource == "" {
		errs = append(errs, errors.New("VIDEO_SOURCE is required"))
	}
	if c.laneBoundariesErr != nil {
		errs = append(errs, &lanes.ConfigurationError{Field: "LANE_BOUNDARIES", Reason: c.laneBoundariesErr.Error()})
	}
	if c.CrossingLineX < 0 {
		errs = append(errs, fmt.Errorf("CROSSING_LINE_X must not be negative, got %d", c.CrossingLineX))
	}
	if c.MinBoundaryPoints < 0 {
		errs = append(errs, fmt.Errorf("MIN_BOUNDARY_POINTS must not be negative, got %d", c.MinBoundaryPoints))
	}
	if c.MinHeightRatio < 0 || c.MinHeightRatio > 1 {
		errs = append(errs, fmt.Errorf("MIN_HEIGHT_RATIO must be within [0,1], got %g", c.MinHeightRatio))
	}
	if c.MinArea < 0 || c.MaxArea <= 0 || c.MinArea > c.MaxArea {
		errs = append(errs, fmt.Errorf("MIN_AREA/MAX_AREA window [%g,%g] is invalid", c.MinArea, c.MaxArea))
	}
	if c.RearmAfterFrames < 1 {
		errs = append(errs, fmt.Errorf("REARM_AFTER_FRAMES must be at least 1, got %d", c.RearmAfterFrames))
	}
	if c.DilateIterations < 0 || c.ErodeIterations < 0 {
		errs = append(errs, errors.New("DILATE_ITERATIONS and ERODE_ITERATIONS must not be negative"))
	}
	if c.BackgroundHistory <= 0 {
		errs = append(errs, fmt.Errorf("BG_HISTORY must be positive, got %d", c.BackgroundHistory))
	}
	if c.MJPEGQuality < 1 || c.MJPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("MJPEG_QUALITY must be within [1,100], got %d", c.MJPEGQuality))
	}
	if (c.FrameWidth == 0) != (c.FrameHeight == 0) {
		errs = append(errs, errors.New("FRAME_WIDTH and FRAME_HEIGHT must be set together"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvIntList parses a comma separated list. A malformed list is returned
// as an error together with the default.
func getEnvIntList(key string, defaultValue []int) ([]int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		parsed, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return defaultValue, fmt.Errorf("%q is not a list of integers", value)
		}
		out = append(out, parsed)
	}
	return out, nil
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Helper functions for Docker environment detection
func isRunningInDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}
	if isRunningInDocker() {
		return "nats://nats:4222"
	}
	return "nats://localhost:4222"
}
