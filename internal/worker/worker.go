package worker

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"lanecount-worker-go/internal/config"
	"lanecount-worker-go/internal/logging"
	"lanecount-worker-go/internal/models"
	"lanecount-worker-go/internal/services/counting"
)

// ErrAlreadyRunning is returned by Run while another Run is in progress
var ErrAlreadyRunning = errors.New("frame loop already running")

// FrameSource yields decoded BGR frames
type FrameSource interface {
	Read(ctx context.Context) (*models.RawFrame, error)
}

// Renderer owns the image of the frame in flight. Segment returns its motion
// mask, the counting boxes are drawn through the Canvas methods, and Finish
// draws the overlay and publishes it. quit reports a request to stop.
type Renderer interface {
	counting.Canvas
	Segment(raw *models.RawFrame) (*image.Gray, error)
	Finish(o models.Overlay) (quit bool, err error)
}

// HealthReporter is told when the loop starts and stops serving
type HealthReporter interface {
	SetServing(serving bool)
}

// Worker runs the per-frame loop: capture, segment, count, annotate, publish.
// Frames are processed one at a time; the loop only stops between frames.
type Worker struct {
	cfg *config.Config
	log zerolog.Logger

	source       FrameSource
	renderer     Renderer
	orchestrator *counting.Orchestrator
	health       HealthReporter

	sinks     []namedSink
	sinkStats sinkCounters
	running   atomic.Bool

	mu     sync.RWMutex
	status models.WorkerStatus
}

// Option adds optional collaborators
type Option func(*Worker)

// WithSink registers a crossing sink under name
func WithSink(name string, sink CrossingSink) Option {
	return func(w *Worker) {
		w.sinks = append(w.sinks, namedSink{name: name, sink: sink})
	}
}

func WithHealth(h HealthReporter) Option {
	return func(w *Worker) {
		w.health = h
	}
}

func New(cfg *config.Config, source FrameSource, renderer Renderer, orchestrator *counting.Orchestrator, opts ...Option) *Worker {
	w := &Worker{
		cfg:          cfg,
		log:          logging.NewServiceLogger(cfg, "worker"),
		source:       source,
		renderer:     renderer,
		orchestrator: orchestrator,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run processes frames until the source is exhausted, the window asks to
// quit, or ctx is cancelled. An exhausted source is not an error. Run may be
// called again after it returns; each run flushes its queued crossings.
func (w *Worker) Run(ctx context.Context) (err error) {
	if !w.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer w.running.Store(false)

	dispatch := newDispatcher(w.log, w.sinks, &w.sinkStats)
	dispatch.start(context.WithoutCancel(ctx))
	defer dispatch.stop()

	w.setRunning(true)
	defer func() {
		reason := "stopped"
		if err != nil {
			reason = err.Error()
		}
		w.setStopped(reason)
	}()

	var minInterval time.Duration
	if w.cfg.MaxFPS > 0 {
		minInterval = time.Second / time.Duration(w.cfg.MaxFPS)
	}

	w.log.Info().
		Int("lanes", len(w.orchestrator.Lanes())).
		Int("crossing_line_x", w.orchestrator.CrossingLineX()).
		Msg("Frame loop started")

	for {
		// cancellation is only observed between frames
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping frame loop due to context cancel")
			return nil
		default:
		}

		start := time.Now()

		raw, err := w.source.Read(ctx)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrFrameUnavailable):
				counts := w.orchestrator.Counts()
				w.log.Info().
					Err(err).
					Int64("westbound", counts.Westbound).
					Int64("eastbound", counts.Eastbound).
					Msg("Video source exhausted")
				return nil
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return nil
			default:
				return fmt.Errorf("failed to read frame: %w", err)
			}
		}

		quit, err := w.processFrame(raw, dispatch)
		if err != nil {
			if errors.Is(err, counting.ErrClosed) {
				return err
			}
			w.recordFrameError()
			w.log.Error().Err(err).Int64("frame_id", raw.FrameID).Msg("Frame processing failed")
		}
		if quit {
			w.log.Info().Msg("Quit requested from display window")
			return nil
		}

		if minInterval > 0 {
			if wait := minInterval - time.Since(start); wait > 0 {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(wait):
				}
			}
		}
	}
}

// processFrame runs one frame through the pipeline
func (w *Worker) processFrame(raw *models.RawFrame, dispatch *dispatcher) (quit bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error().
				Int64("frame_id", raw.FrameID).
				Interface("panic", r).
				Msg("Process frame panic recovered")
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	mask, err := w.renderer.Segment(raw)
	if err != nil {
		return false, err
	}

	result, err := w.orchestrator.ProcessFrame(raw.FrameID, mask, w.renderer)
	if err != nil {
		return false, err
	}

	if len(result.Events) > 0 {
		dispatch.enqueue(sinkBatch{frameID: raw.FrameID, events: result.Events, counts: result.Counts})
	}

	w.recordFrame(raw, result)

	quit, err = w.renderer.Finish(models.Overlay{
		Counts:        result.Counts,
		Occupancy:     w.orchestrator.Occupancy(),
		CrossingLineX: w.orchestrator.CrossingLineX(),
		FrameID:       raw.FrameID,
		SourceID:      raw.SourceID,
	})
	if err != nil {
		w.log.Debug().Err(err).Int64("frame_id", raw.FrameID).Msg("Failed to publish frame")
	}

	frameLog := logging.WithFrame(w.log, raw.FrameID)
	frameLog.Debug().
		Int("blobs", len(result.Blobs)).
		Int("events", len(result.Events)).
		Int("lane_failures", len(result.Failures)).
		Dur("count_duration", result.Duration).
		Msg("Frame processed")

	return quit, nil
}

func (w *Worker) setRunning(running bool) {
	w.mu.Lock()
	w.status.Running = running
	w.status.StartedAt = time.Now()
	w.status.StopReason = ""
	w.mu.Unlock()

	if w.health != nil {
		w.health.SetServing(running)
	}
}

func (w *Worker) setStopped(reason string) {
	w.mu.Lock()
	w.status.Running = false
	w.status.StopReason = reason
	w.mu.Unlock()

	if w.health != nil {
		w.health.SetServing(false)
	}
	w.log.Info().Str("reason", reason).Msg("Frame loop stopped")
}

func (w *Worker) recordFrame(raw *models.RawFrame, result *counting.FrameResult) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status.FramesProcessed++
	w.status.LastFrameID = raw.FrameID
	w.status.LastFrameTime = raw.Timestamp
	w.status.LastFrameDuration = result.Duration
	w.status.LaneFailures += int64(len(result.Failures))
}

func (w *Worker) recordFrameError() {
	w.mu.Lock()
	w.status.FrameErrors++
	w.mu.Unlock()
}

// Status returns a copy of the loop state
func (w *Worker) Status() models.WorkerStatus {
	w.mu.RLock()
	status := w.status
	w.mu.RUnlock()

	status.SinkFailures = w.sinkStats.failures.Load()
	status.DroppedBatches = w.sinkStats.dropped.Load()
	return status
}
