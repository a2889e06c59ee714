package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"lanecount-worker-go/internal/config"
	"lanecount-worker-go/internal/logging"
	"lanecount-worker-go/internal/services/blobs"
	"lanecount-worker-go/internal/services/counting"
	"lanecount-worker-go/internal/services/crossing"
	"lanecount-worker-go/internal/services/health"
	"lanecount-worker-go/internal/services/journal"
	"lanecount-worker-go/internal/services/lanes"
	"lanecount-worker-go/internal/services/messaging"
	"lanecount-worker-go/internal/services/publisher"
	"lanecount-worker-go/internal/services/streamcapture"
	"lanecount-worker-go/internal/services/vision"
	"lanecount-worker-go/internal/worker"
)

const cleanupTimeout = 5 * time.Second

// ServiceContainer holds all services
type ServiceContainer struct {
	Config       *config.Config
	Capture      *streamcapture.Service
	Segmenter    *vision.Segmenter
	Renderer     *vision.FrameRenderer
	Orchestrator *counting.Orchestrator
	Publisher    *publisher.Service
	Health       *health.Service
	Messaging    *messaging.Service // nil unless NATS_ENABLED
	Journal      *journal.Journal   // nil unless JOURNAL_PATH is set
	Worker       *worker.Worker
}

// NewServiceContainer opens the source, derives the lanes from its frame size
// and wires the counting pipeline. Everything opened so far is closed on error.
func NewServiceContainer(cfg *config.Config) (*ServiceContainer, error) {
	sc := &ServiceContainer{Config: cfg}
	if err := sc.build(); err != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		if shutdownErr := sc.Shutdown(ctx); shutdownErr != nil {
			log.Warn().Err(shutdownErr).Msg("Failed to release services after startup error")
		}
		return nil, err
	}
	return sc, nil
}

func (sc *ServiceContainer) build() (err error) {
	cfg := sc.Config

	sc.Capture, err = streamcapture.NewService(cfg)
	if err != nil {
		return fmt.Errorf("failed to open video source: %w", err)
	}

	width, height := sc.Capture.FrameSize()
	regions, err := lanes.ComputeLanes(width, height, lanes.Config{
		Boundaries:     cfg.LaneBoundaries,
		MarginGap:      cfg.LaneMarginGap,
		DirectionSplit: cfg.LaneDirectionSplit,
	})
	if err != nil {
		return err
	}

	countingLog := logging.NewServiceLogger(cfg, "counting")
	sc.Orchestrator, err = counting.New(regions, counting.Config{
		SourceID:      cfg.SourceID,
		FrameWidth:    width,
		FrameHeight:   height,
		CrossingLineX: cfg.CrossingLineX,
		Thresholds: blobs.Thresholds{
			MinBoundaryPoints: cfg.MinBoundaryPoints,
			MinHeightRatio:    cfg.MinHeightRatio,
			MinArea:           cfg.MinArea,
			MaxArea:           cfg.MaxArea,
		},
		Crossing:    crossing.Options{RearmAfterFrames: cfg.RearmAfterFrames},
		StatsWindow: cfg.LaneStatsWindow,
		Logger:      &countingLog,
	}, vision.NewContourFinder(cfg.DilateIterations, cfg.ErodeIterations))
	if err != nil {
		return fmt.Errorf("failed to start lane workers: %w", err)
	}

	sc.Segmenter = vision.NewSegmenter(vision.SegmenterConfig{
		History:   cfg.BackgroundHistory,
		Threshold: cfg.BackgroundThreshold,
	})
	sc.Publisher = publisher.NewService(cfg)
	sc.Renderer = vision.NewFrameRenderer(sc.Segmenter, sc.Publisher)
	sc.Health = health.NewService(cfg)

	opts := []worker.Option{worker.WithHealth(sc.Health)}

	if cfg.NatsEnabled {
		sc.Messaging, err = messaging.NewService(cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		opts = append(opts, worker.WithSink("nats", sc.Messaging))
	}

	if cfg.JournalPath != "" {
		sc.Journal, err = journal.Open(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("failed to open crossing journal: %w", err)
		}
		opts = append(opts, worker.WithSink("journal", sc.Journal))
	}

	sc.Worker = worker.New(cfg, sc.Capture, sc.Renderer, sc.Orchestrator, opts...)

	log.Info().
		Int("frame_width", width).
		Int("frame_height", height).
		Int("lanes", len(regions)).
		Bool("nats", sc.Messaging != nil).
		Bool("journal", sc.Journal != nil).
		Msg("Services initialized")

	return nil
}

// Shutdown gracefully shuts down all services. The frame loop must have
// returned before it is called.
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	var errs []error
	if sc.Health != nil {
		errs = append(errs, sc.Health.Shutdown(ctx))
	}
	if sc.Publisher != nil {
		errs = append(errs, sc.Publisher.Shutdown(ctx))
	}
	if sc.Messaging != nil {
		errs = append(errs, sc.Messaging.Shutdown(ctx))
	}
	sc.close()
	return errors.Join(errs...)
}

// close releases the resources that have no graceful shutdown
func (sc *ServiceContainer) close() {
	if sc.Orchestrator != nil {
		sc.Orchestrator.Close()
	}
	if sc.Renderer != nil {
		sc.Renderer.Close()
		sc.Renderer = nil
	}
	if sc.Segmenter != nil {
		sc.Segmenter.Close()
		sc.Segmenter = nil
	}
	if sc.Capture != nil {
		sc.Capture.Close()
		sc.Capture = nil
	}
	if sc.Journal != nil {
		if err := sc.Journal.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close crossing journal")
		}
		sc.Journal = nil
	}
}
