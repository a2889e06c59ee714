// Package counting runs blob extraction and crossing detection for every lane
// of a frame in parallel and merges the results into shared counters.
package counting

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lanecount-worker-go/internal/models"
	"lanecount-worker-go/internal/services/blobs"
	"lanecount-worker-go/internal/services/crossing"
)

// ErrClosed is returned by ProcessFrame after Close
var ErrClosed = errors.New("orchestrator closed")

var (
	westColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	eastColor = color.RGBA{R: 255, G: 0, B: 0, A: 255}
)

const boxThickness = 5

// Canvas receives the boxes drawn during the merge phase
type Canvas interface {
	DrawBox(r image.Rectangle, c color.RGBA, thickness int)
}

// Config holds everything the orchestrator needs besides the lanes
type Config struct {
	SourceID      string
	FrameWidth    int
	FrameHeight   int
	CrossingLineX int
	Thresholds    blobs.Thresholds
	Crossing      crossing.Options
	StatsWindow   int

	Logger *zerolog.Logger
	Clock  func() time.Time
}

// LaneTaskError reports a lane whose work failed for one frame
type LaneTaskError struct {
	LaneID  int
	FrameID int64
	Err     error
}

func (e *LaneTaskError) Error() string {
	return fmt.Sprintf("lane %d frame %d: %v", e.LaneID, e.FrameID, e.Err)
}

func (e *LaneTaskError) Unwrap() error {
	return e.Err
}

// FrameResult is what one ProcessFrame call produced
type FrameResult struct {
	FrameID  int64
	Blobs    []models.CandidateBlob
	Events   []models.CrossingEvent
	Draws    []models.DrawCommand
	Failures []*LaneTaskError
	Counts   models.CountSnapshot
	Duration time.Duration
}

type laneTask struct {
	frameID int64
	mask    *image.Gray
	state   models.CrossingState
}

type laneResult struct {
	laneID  int
	blobs   []models.CandidateBlob
	state   models.CrossingState
	event   bool
	trigger models.CandidateBlob
	err     error
}

// Orchestrator owns the lane workers, the crossing states and the counters
type Orchestrator struct {
	cfg       Config
	lanes     []models.LaneRegion
	extractor *blobs.Extractor
	log       zerolog.Logger

	tasks   []chan laneTask
	results chan laneResult
	wg      sync.WaitGroup

	// frameMu serializes frames; one barrier at a time
	frameMu sync.Mutex
	closed  bool

	mu       sync.RWMutex
	states   []models.CrossingState
	stats    []*laneStats
	counters Counters
}

// New starts one worker per lane. Lane IDs must be 0..len(lanes)-1 in order.
func New(lanes []models.LaneRegion, cfg Config, finder blobs.RegionFinder) (*Orchestrator, error) {
	if len(lanes) == 0 {
		return nil, errors.New("at least one lane is required")
	}
	for i, lane := range lanes {
		if lane.ID != i {
			return nil, fmt.Errorf("lane at index %d has id %d", i, lane.ID)
		}
	}
	if cfg.FrameWidth <= 0 || cfg.FrameHeight <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", cfg.FrameWidth, cfg.FrameHeight)
	}

	extractor, err := blobs.NewExtractor(finder, cfg.Thresholds)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob extractor: %w", err)
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 100
	}

	logger := log.With().Str("service", "counting").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	o := &Orchestrator{
		cfg:       cfg,
		lanes:     append([]models.LaneRegion(nil), lanes...),
		extractor: extractor,
		log:       logger,
		tasks:     make([]chan laneTask, len(lanes)),
		results:   make(chan laneResult, len(lanes)),
		states:    make([]models.CrossingState, len(lanes)),
		stats:     make([]*laneStats, len(lanes)),
	}

	for i, lane := range o.lanes {
		o.states[i] = crossing.NewState(lane.ID)
		o.stats[i] = newLaneStats(cfg.StatsWindow)
		o.tasks[i] = make(chan laneTask, 1)
		o.wg.Add(1)
		go o.runLane(lane, o.tasks[i])
	}

	o.log.Info().
		Int("lanes", len(lanes)).
		Int("crossing_line_x", cfg.CrossingLineX).
		Int("rearm_after_frames", cfg.Crossing.RearmAfterFrames).
		Msg("Lane workers started")

	return o, nil
}

// runLane is the long-lived worker for one lane
func (o *Orchestrator) runLane(lane models.LaneRegion, tasks <-chan laneTask) {
	defer o.wg.Done()
	for task := range tasks {
		o.results <- o.runTask(lane, task)
	}
}

// runTask extracts and detects for one lane. It touches nothing shared.
func (o *Orchestrator) runTask(lane models.LaneRegion, task laneTask) (res laneResult) {
	res = laneResult{laneID: lane.ID, state: task.state}

	defer func() {
		if r := recover(); r != nil {
			res = laneResult{laneID: lane.ID, state: task.state, err: fmt.Errorf("panic: %v", r)}
		}
	}()

	found, err := o.extractor.Extract(task.mask, lane)
	if err != nil {
		res.err = err
		return res
	}

	state, event := crossing.Detect(found, o.cfg.CrossingLineX, task.state, o.cfg.Crossing)
	res.blobs = found
	res.state = state
	res.event = event
	if event {
		res.trigger, _ = crossing.Trigger(found, o.cfg.CrossingLineX)
	}
	return res
}

// ProcessFrame runs every lane against mask, waits for all of them, then
// applies states, counters and drawing in lane order. canvas may be nil.
func (o *Orchestrator) ProcessFrame(frameID int64, mask *image.Gray, canvas Canvas) (*FrameResult, error) {
	o.frameMu.Lock()
	defer o.frameMu.Unlock()

	if o.closed {
		return nil, ErrClosed
	}
	if mask == nil {
		return nil, errors.New("nil mask")
	}
	want := image.Rect(0, 0, o.cfg.FrameWidth, o.cfg.FrameHeight)
	if mask.Rect != want {
		return nil, fmt.Errorf("mask bounds %v do not match frame %v", mask.Rect, want)
	}

	start := time.Now()

	o.mu.RLock()
	states := append([]models.CrossingState(nil), o.states...)
	o.mu.RUnlock()

	for i, lane := range o.lanes {
		o.tasks[i] <- laneTask{
			frameID: frameID,
			mask:    mask.SubImage(lane.Rect()).(*image.Gray),
			state:   states[i],
		}
	}

	// barrier
	results := make([]laneResult, len(o.lanes))
	for range o.lanes {
		res := <-o.results
		results[res.laneID] = res
	}

	result := o.merge(frameID, results, canvas)
	result.Duration = time.Since(start)
	return result, nil
}

// merge is the only place shared state changes
func (o *Orchestrator) merge(frameID int64, results []laneResult, canvas Canvas) *FrameResult {
	out := &FrameResult{FrameID: frameID}
	now := o.cfg.Clock()

	o.mu.Lock()
	for i, res := range results {
		lane := o.lanes[i]

		if res.err != nil {
			o.stats[i].failures++
			taskErr := &LaneTaskError{LaneID: lane.ID, FrameID: frameID, Err: res.err}
			out.Failures = append(out.Failures, taskErr)
			o.log.Warn().
				Err(res.err).
				Int("lane_id", lane.ID).
				Int64("frame_id", frameID).
				Msg("Lane task failed, treating as no detection")
			continue
		}

		o.states[i] = res.state

		if res.event {
			o.counters.increment(lane.Direction)
			o.stats[i].crossings++
			out.Events = append(out.Events, models.CrossingEvent{
				ID:        uuid.NewString(),
				SourceID:  o.cfg.SourceID,
				LaneID:    lane.ID,
				Direction: lane.Direction,
				FrameID:   frameID,
				Timestamp: now,
				Box:       res.trigger.Box,
			})
		}

		for _, b := range res.blobs {
			o.stats[i].record(b.Area)
			out.Blobs = append(out.Blobs, b)
			out.Draws = append(out.Draws, models.DrawCommand{
				LaneID:    lane.ID,
				Box:       b.Box,
				Color:     DirectionColor(lane.Direction),
				Thickness: boxThickness,
			})
		}
	}
	o.mu.Unlock()

	if canvas != nil {
		for _, d := range out.Draws {
			canvas.DrawBox(d.Box, d.Color, d.Thickness)
		}
	}

	out.Counts = o.counters.Snapshot()

	for _, ev := range out.Events {
		o.log.Info().
			Str("event_id", ev.ID).
			Int("lane_id", ev.LaneID).
			Str("direction", ev.Direction.String()).
			Int64("frame_id", frameID).
			Int64("westbound", out.Counts.Westbound).
			Int64("eastbound", out.Counts.Eastbound).
			Msg("Vehicle crossing counted")
	}

	return out
}

// DirectionColor is the box color used for a lane direction
func DirectionColor(d models.Direction) color.RGBA {
	if d == models.DirectionWest {
		return westColor
	}
	return eastColor
}

// Counts returns the current directional totals
func (o *Orchestrator) Counts() models.CountSnapshot {
	return o.counters.Snapshot()
}

// Lanes returns a copy of the lane layout
func (o *Orchestrator) Lanes() []models.LaneRegion {
	return append([]models.LaneRegion(nil), o.lanes...)
}

// CrossingLineX is the x coordinate of the counting line
func (o *Orchestrator) CrossingLineX() int {
	return o.cfg.CrossingLineX
}

// Occupancy returns the debounce state of every lane
func (o *Orchestrator) Occupancy() []models.LaneOccupancy {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]models.LaneOccupancy, len(o.lanes))
	for i, lane := range o.lanes {
		out[i] = models.LaneOccupancy{
			LaneID:    lane.ID,
			Direction: lane.Direction,
			Occupied:  o.states[i].Occupied,
			Top:       lane.Top,
			Bottom:    lane.Bottom,
		}
	}
	return out
}

// LaneStats returns per-lane crossing and blob area diagnostics
func (o *Orchestrator) LaneStats() []models.LaneStats {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]models.LaneStats, len(o.lanes))
	for i, lane := range o.lanes {
		out[i] = o.stats[i].summary(lane)
	}
	return out
}

// Close stops the lane workers. It waits for an in-flight frame to finish.
func (o *Orchestrator) Close() {
	o.frameMu.Lock()
	defer o.frameMu.Unlock()

	if o.closed {
		return
	}
	o.closed = true
	for _, tasks := range o.tasks {
		close(tasks)
	}
	o.wg.Wait()
	o.log.Info().Msg("Lane workers stopped")
}
