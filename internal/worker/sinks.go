package worker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"lanecount-worker-go/internal/models"
)

const sinkQueueSize = 64

// CrossingSink receives the crossings counted on one frame
type CrossingSink interface {
	RecordCrossings(ctx context.Context, events []models.CrossingEvent, counts models.CountSnapshot) error
}

type namedSink struct {
	name string
	sink CrossingSink
}

type sinkBatch struct {
	frameID int64
	events  []models.CrossingEvent
	counts  models.CountSnapshot
}

// sinkCounters outlive a single run
type sinkCounters struct {
	failures atomic.Int64
	dropped  atomic.Int64
}

// dispatcher hands crossing batches to the sinks off the frame loop. A full
// queue drops the batch; counting never waits on a sink. One per Run.
type dispatcher struct {
	log   zerolog.Logger
	sinks []namedSink
	queue chan sinkBatch
	wg    sync.WaitGroup

	stats *sinkCounters
}

func newDispatcher(log zerolog.Logger, sinks []namedSink, stats *sinkCounters) *dispatcher {
	if stats == nil {
		stats = &sinkCounters{}
	}
	return &dispatcher{
		log:   log,
		sinks: sinks,
		queue: make(chan sinkBatch, sinkQueueSize),
		stats: stats,
	}
}

func (d *dispatcher) start(ctx context.Context) {
	d.wg.Add(1)
	go d.run(ctx)
}

func (d *dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for batch := range d.queue {
		d.deliver(ctx, batch)
	}
}

func (d *dispatcher) deliver(ctx context.Context, batch sinkBatch) {
	for _, s := range d.sinks {
		d.deliverOne(ctx, s, batch)
	}
}

func (d *dispatcher) deliverOne(ctx context.Context, s namedSink, batch sinkBatch) {
	defer func() {
		if r := recover(); r != nil {
			d.stats.failures.Add(1)
			d.log.Error().
				Str("sink", s.name).
				Interface("panic", r).
				Msg("Crossing sink panic recovered")
		}
	}()

	if err := s.sink.RecordCrossings(ctx, batch.events, batch.counts); err != nil {
		d.stats.failures.Add(1)
		d.log.Warn().
			Err(err).
			Str("sink", s.name).
			Int64("frame_id", batch.frameID).
			Int("events", len(batch.events)).
			Msg("Failed to record crossings")
	}
}

func (d *dispatcher) enqueue(batch sinkBatch) {
	if len(d.sinks) == 0 {
		return
	}
	select {
	case d.queue <- batch:
	default:
		d.stats.dropped.Add(1)
		d.log.Warn().
			Int64("frame_id", batch.frameID).
			Int("events", len(batch.events)).
			Msg("Crossing sink queue full, dropping batch")
	}
}

// stop delivers what is queued and waits
func (d *dispatcher) stop() {
	close(d.queue)
	d.wg.Wait()
}
