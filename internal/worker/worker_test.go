package worker

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lanecount-worker-go/internal/config"
	"lanecount-worker-go/internal/models"
	"lanecount-worker-go/internal/services/blobs"
	"lanecount-worker-go/internal/services/counting"
	"lanecount-worker-go/internal/services/crossing"
	"lanecount-worker-go/internal/services/lanes"
)

const (
	testWidth  = 200
	testHeight = 100
	testLineX  = 100
)

// bboxFinder reports the bounding box of all set pixels as a single region
type bboxFinder struct{}

func (bboxFinder) FindRegions(mask *image.Gray) ([]models.Region, error) {
	box := image.Rectangle{}
	for y := mask.Rect.Min.Y; y < mask.Rect.Max.Y; y++ {
		for x := mask.Rect.Min.X; x < mask.Rect.Max.X; x++ {
			if mask.GrayAt(x, y).Y != 0 {
				box = box.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	if box.Empty() {
		return nil, nil
	}
	box = box.Sub(mask.Rect.Min)
	return []models.Region{{Box: box, Area: float64(box.Dx() * box.Dy()), Points: 100}}, nil
}

// fakeSource serves queued masks as raw frames, then reports exhaustion
type fakeSource struct {
	frames []*image.Gray
	next   int64
	onRead func(frameID int64)
}

func (s *fakeSource) Read(context.Context) (*models.RawFrame, error) {
	if int(s.next) >= len(s.frames) {
		return nil, fmt.Errorf("end of file: %w", models.ErrFrameUnavailable)
	}
	mask := s.frames[s.next]
	s.next++
	if s.onRead != nil {
		s.onRead(s.next)
	}
	return &models.RawFrame{
		SourceID:  "test",
		Data:      mask.Pix,
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		FrameID:   s.next,
		Width:     mask.Rect.Dx(),
		Height:    mask.Rect.Dy(),
	}, nil
}

// fakeRenderer treats the frame bytes as the motion mask
type fakeRenderer struct {
	failAt   int64
	quitAt   int64
	boxes    int
	finished []models.Overlay
}

func (r *fakeRenderer) Segment(raw *models.RawFrame) (*image.Gray, error) {
	if raw.FrameID == r.failAt {
		return nil, fmt.Errorf("segmentation: corrupt frame %d", raw.FrameID)
	}
	return &image.Gray{Pix: raw.Data, Stride: raw.Width, Rect: image.Rect(0, 0, raw.Width, raw.Height)}, nil
}

func (r *fakeRenderer) DrawBox(image.Rectangle, color.RGBA, int) {
	r.boxes++
}

func (r *fakeRenderer) Finish(o models.Overlay) (bool, error) {
	r.finished = append(r.finished, o)
	return o.FrameID == r.quitAt, nil
}

func (r *fakeRenderer) finishedIDs() []int64 {
	var ids []int64
	for _, o := range r.finished {
		ids = append(ids, o.FrameID)
	}
	return ids
}

type fakeHealth struct {
	mu    sync.Mutex
	calls []bool
}

func (h *fakeHealth) SetServing(serving bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, serving)
}

// two lanes: 0 is [0,50) westbound, 1 is [50,100) eastbound
func testRegions(t *testing.T) []models.LaneRegion {
	t.Helper()
	regions, err := lanes.ComputeLanes(testWidth, testHeight, lanes.Config{
		Boundaries:     []int{50},
		DirectionSplit: 50,
	})
	require.NoError(t, err)
	return regions
}

func newTestWorker(t *testing.T, source FrameSource, renderer Renderer, opts ...Option) (*Worker, *counting.Orchestrator) {
	t.Helper()
	o, err := counting.New(testRegions(t), counting.Config{
		SourceID:      "test",
		FrameWidth:    testWidth,
		FrameHeight:   testHeight,
		CrossingLineX: testLineX,
		Thresholds:    blobs.Thresholds{MinHeightRatio: 0.4, MinArea: 1, MaxArea: 1e6},
		Crossing:      crossing.DefaultOptions(),
	}, bboxFinder{})
	require.NoError(t, err)
	t.Cleanup(o.Close)

	cfg := &config.Config{WorkerID: "worker-test", SourceID: "test"}
	return New(cfg, source, renderer, o, opts...), o
}

// mask draws a vehicle straddling the crossing line in each listed lane
func mask(t *testing.T, laneIDs ...int) *image.Gray {
	t.Helper()
	regions := testRegions(t)
	m := image.NewGray(image.Rect(0, 0, testWidth, testHeight))
	for _, id := range laneIDs {
		lane := regions[id]
		for y := lane.Top; y < lane.Bottom; y++ {
			for x := testLineX - 20; x < testLineX+20; x++ {
				m.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return m
}

func TestRun_ExhaustedSourceEndsCleanly(t *testing.T) {
	t.Parallel()

	source := &fakeSource{frames: []*image.Gray{
		mask(t, 0), mask(t, 0), mask(t), mask(t, 1), mask(t),
	}}
	renderer := &fakeRenderer{}
	health := &fakeHealth{}
	w, o := newTestWorker(t, source, renderer, WithHealth(health))

	require.NoError(t, w.Run(context.Background()))

	assert.Equal(t, models.CountSnapshot{Westbound: 1, Eastbound: 1, Total: 2}, o.Counts())

	status := w.Status()
	assert.False(t, status.Running)
	assert.Equal(t, "stopped", status.StopReason)
	assert.Equal(t, int64(5), status.FramesProcessed)
	assert.Equal(t, int64(5), status.LastFrameID)
	assert.Zero(t, status.FrameErrors)

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, renderer.finishedIDs())
	assert.Equal(t, models.CountSnapshot{Westbound: 1, Eastbound: 1, Total: 2}, renderer.finished[4].Counts)
	assert.Equal(t, testLineX, renderer.finished[0].CrossingLineX)
	assert.Equal(t, 3, renderer.boxes)
	assert.Equal(t, []bool{true, false}, health.calls)
}

func TestRun_CancelIsObservedBetweenFrames(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &fakeSource{
		frames: []*image.Gray{mask(t, 0), mask(t), mask(t, 1), mask(t), mask(t, 0)},
		onRead: func(frameID int64) {
			if frameID == 3 {
				cancel()
			}
		},
	}
	renderer := &fakeRenderer{}
	w, o := newTestWorker(t, source, renderer)

	require.NoError(t, w.Run(ctx))

	// frame 3 was already read when the cancel landed and is finished in full
	assert.Equal(t, int64(3), source.next)
	assert.Equal(t, []int64{1, 2, 3}, renderer.finishedIDs())
	assert.Equal(t, int64(3), w.Status().FramesProcessed)
	assert.Equal(t, models.CountSnapshot{Westbound: 1, Eastbound: 1, Total: 2}, o.Counts())
}

func TestRun_FrameErrorIsCountedAndLoopContinues(t *testing.T) {
	t.Parallel()

	source := &fakeSource{frames: []*image.Gray{
		mask(t, 0), mask(t, 0), mask(t), mask(t, 1),
	}}
	renderer := &fakeRenderer{failAt: 2}
	w, o := newTestWorker(t, source, renderer)

	require.NoError(t, w.Run(context.Background()))

	status := w.Status()
	assert.Equal(t, int64(1), status.FrameErrors)
	assert.Equal(t, int64(3), status.FramesProcessed)
	assert.Equal(t, int64(4), status.LastFrameID)
	assert.Equal(t, "stopped", status.StopReason)
	assert.Equal(t, []int64{1, 3, 4}, renderer.finishedIDs())
	assert.Equal(t, models.CountSnapshot{Westbound: 1, Eastbound: 1, Total: 2}, o.Counts())
}

func TestRun_QuitStopsLoop(t *testing.T) {
	t.Parallel()

	source := &fakeSource{frames: []*image.Gray{mask(t), mask(t), mask(t), mask(t)}}
	renderer := &fakeRenderer{quitAt: 2}
	w, _ := newTestWorker(t, source, renderer)

	require.NoError(t, w.Run(context.Background()))

	assert.Equal(t, int64(2), source.next)
	assert.Equal(t, int64(2), w.Status().FramesProcessed)
}

func TestRun_SinksAreFlushedAndRunCanRepeat(t *testing.T) {
	t.Parallel()

	source := &fakeSource{frames: []*image.Gray{mask(t, 0), mask(t)}}
	sink := &recordingSink{}
	w, o := newTestWorker(t, source, &fakeRenderer{}, WithSink("journal", sink))

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, 1, sink.count())

	source.frames = append(source.frames, mask(t, 1), mask(t))
	require.NoError(t, w.Run(context.Background()))

	assert.Equal(t, 2, sink.count())
	status := w.Status()
	assert.Zero(t, status.FrameErrors)
	assert.Zero(t, status.DroppedBatches)
	assert.Equal(t, int64(4), status.FramesProcessed)
	assert.Equal(t, models.CountSnapshot{Westbound: 1, Eastbound: 1, Total: 2}, o.Counts())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.batches[1], 1)
	assert.Equal(t, models.DirectionEast, sink.batches[1][0].Direction)
}

func TestRun_RejectsConcurrentRun(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	source := &fakeSource{
		frames: []*image.Gray{mask(t)},
		onRead: func(int64) {
			close(started)
			<-release
		},
	}
	w, _ := newTestWorker(t, source, &fakeRenderer{})

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	<-started
	require.ErrorIs(t, w.Run(context.Background()), ErrAlreadyRunning)
	assert.True(t, w.Status().Running)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, w.Status().Running)
}
