package crossing

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"

	"lanecount-worker-go/internal/models"
)

const lineX = 960

func blobAt(x1, x2 int) []models.CandidateBlob {
	return []models.CandidateBlob{{Box: image.Rect(x1, 100, x2, 300), Area: 20000}}
}

// run feeds one blob set per frame and returns the frames (1-based) that emitted an event
func run(frames [][]models.CandidateBlob, opts Options) []int {
	state := NewState(0)
	var events []int
	for i, blobs := range frames {
		var event bool
		state, event = Detect(blobs, lineX, state, opts)
		if event {
			events = append(events, i+1)
		}
	}
	return events
}

func TestDetect_Debounce(t *testing.T) {
	t.Parallel()

	frames := make([][]models.CandidateBlob, 10)
	for f := 3; f <= 7; f++ {
		frames[f-1] = blobAt(900, 1100)
	}

	assert.Equal(t, []int{3}, run(frames, DefaultOptions()))
}

func TestDetect_Rearm(t *testing.T) {
	t.Parallel()

	frames := [][]models.CandidateBlob{
		blobAt(900, 1100),
		blobAt(900, 1100),
		nil,
		blobAt(920, 1000),
		blobAt(920, 1000),
	}

	assert.Equal(t, []int{1, 4}, run(frames, DefaultOptions()))
}

func TestDetect_BlobOffLineDoesNotCount(t *testing.T) {
	t.Parallel()

	frames := [][]models.CandidateBlob{
		blobAt(100, 400),
		blobAt(1000, 1200),
		blobAt(961, 1300),
	}

	assert.Empty(t, run(frames, DefaultOptions()))
}

func TestDetect_EdgesAreInclusive(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []int{1}, run([][]models.CandidateBlob{blobAt(960, 1000)}, DefaultOptions()))
	assert.Equal(t, []int{1}, run([][]models.CandidateBlob{blobAt(800, 960)}, DefaultOptions()))
}

func TestDetect_RearmThresholdBridgesFlicker(t *testing.T) {
	t.Parallel()

	frames := [][]models.CandidateBlob{
		blobAt(900, 1100),
		nil, // single-frame detection gap
		blobAt(900, 1100),
		nil,
		nil,
		blobAt(900, 1100),
	}

	assert.Equal(t, []int{1, 3, 6}, run(frames, DefaultOptions()))
	assert.Equal(t, []int{1, 6}, run(frames, Options{RearmAfterFrames: 2}))
}

func TestDetect_IdleStaysIdle(t *testing.T) {
	t.Parallel()

	state, event := Detect(nil, lineX, NewState(4), DefaultOptions())
	assert.False(t, event)
	assert.Equal(t, models.CrossingState{LaneID: 4}, state)
}

func TestDetect_ZeroOptionsBehaveLikeDefault(t *testing.T) {
	t.Parallel()

	state, event := Detect(blobAt(900, 1100), lineX, NewState(1), Options{})
	assert.True(t, event)
	assert.True(t, state.Occupied)

	state, event = Detect(nil, lineX, state, Options{})
	assert.False(t, event)
	assert.False(t, state.Occupied)
}

func TestTrigger(t *testing.T) {
	t.Parallel()

	blobs := append(blobAt(0, 100), blobAt(950, 970)...)
	b, ok := Trigger(blobs, lineX)
	assert.True(t, ok)
	assert.Equal(t, 950, b.Box.Min.X)

	_, ok = Trigger(blobAt(0, 100), lineX)
	assert.False(t, ok)
}
