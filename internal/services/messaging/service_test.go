package messaging

import (
	"encoding/json"
	"image"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"lanecount-worker-go/internal/models"
)

func TestNewCrossingMessage(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	ev := models.CrossingEvent{
		ID:        "0b7c6a4e-1f0e-4c55-9a43-6f1f2f0f9c11",
		SourceID:  "lane-camera-1",
		LaneID:    4,
		Direction: models.DirectionEast,
		FrameID:   1207,
		Timestamp: ts,
		Box:       image.Rect(900, 630, 1100, 885),
	}
	counts := models.CountSnapshot{Westbound: 10, Eastbound: 7, Total: 17}

	msg := NewCrossingMessage("worker-2", ev, counts)

	want := CrossingMessage{
		EventID:   ev.ID,
		WorkerID:  "worker-2",
		SourceID:  "lane-camera-1",
		LaneID:    4,
		Direction: models.DirectionEast,
		FrameID:   1207,
		Timestamp: ts,
		Box:       Box{X: 900, Y: 630, Width: 200, Height: 255},
		Counts:    counts,
	}
	if diff := cmp.Diff(want, msg); diff != "" {
		t.Errorf("message mismatch (-want +got):\n%s", diff)
	}

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "east", decoded["direction"])
	require.Equal(t, map[string]any{"x": 900.0, "y": 630.0, "width": 200.0, "height": 255.0}, decoded["box"])
}
