package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lanecount-worker-go/internal/api/handlers"
	"lanecount-worker-go/internal/config"
	"lanecount-worker-go/internal/models"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeCounter struct{}

func (fakeCounter) Counts() models.CountSnapshot {
	return models.CountSnapshot{Westbound: 3, Eastbound: 2, Total: 5}
}

func (fakeCounter) Lanes() []models.LaneRegion {
	return []models.LaneRegion{
		{ID: 0, Top: 100, Bottom: 270, Width: 1920, Direction: models.DirectionWest},
		{ID: 1, Top: 270, Bottom: 410, Width: 1920, Direction: models.DirectionWest},
		{ID: 2, Top: 410, Bottom: 630, Width: 1920, Direction: models.DirectionEast},
	}
}

func (fakeCounter) Occupancy() []models.LaneOccupancy {
	return []models.LaneOccupancy{
		{LaneID: 0, Direction: models.DirectionWest, Top: 100, Bottom: 270},
		{LaneID: 1, Direction: models.DirectionWest, Occupied: true, Top: 270, Bottom: 410},
		{LaneID: 2, Direction: models.DirectionEast, Top: 410, Bottom: 630},
	}
}

func (fakeCounter) LaneStats() []models.LaneStats {
	return []models.LaneStats{{LaneID: 1, Direction: models.DirectionWest, Crossings: 3, Samples: 12, MeanArea: 24000}}
}

func (fakeCounter) CrossingLineX() int { return 960 }

type fakeStatus struct{ running bool }

func (f fakeStatus) Status() models.WorkerStatus {
	return models.WorkerStatus{Running: f.running, FramesProcessed: 42}
}

type fakeStreamer struct {
	jpeg    []byte
	frameID int64
}

func (f fakeStreamer) StreamMJPEGHTTP(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (f fakeStreamer) Latest() ([]byte, int64) { return f.jpeg, f.frameID }
func (f fakeStreamer) Clients() int            { return 0 }

type fakeHistory struct {
	events    []models.CrossingEvent
	totals    map[models.Direction]int64
	err       error
	lastLimit int
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]models.CrossingEvent, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func (f *fakeHistory) DirectionTotals(context.Context) (map[models.Direction]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.totals, nil
}

type fakeSource struct {
	fps  float64
	last time.Time
}

func (f fakeSource) FPS() float64             { return f.fps }
func (f fakeSource) LastFrameTime() time.Time { return f.last }

type fakeBroker struct{ connected bool }

func (f fakeBroker) IsConnected() bool { return f.connected }

func testConfig() *config.Config {
	return &config.Config{
		Version:        "1.0.0",
		Environment:    "development",
		WorkerID:       "worker-test",
		SourceID:       "cam-test",
		Port:           0,
		LaneBoundaries: []int{100, 270, 410, 630},
	}
}

func newTestServer(t *testing.T, deps Dependencies) http.Handler {
	t.Helper()
	if deps.Counter == nil {
		deps.Counter = fakeCounter{}
	}
	if deps.Status == nil {
		deps.Status = fakeStatus{running: true}
	}
	if deps.Streamer == nil {
		deps.Streamer = fakeStreamer{}
	}
	s, err := NewServer(testConfig(), deps)
	require.NoError(t, err)
	return s.Handler()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(testConfig(), Dependencies{Counter: fakeCounter{}})
	assert.Error(t, err)
}

func TestCounts(t *testing.T) {
	rec := get(t, newTestServer(t, Dependencies{}), "/counts")
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.CountSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, models.CountSnapshot{Westbound: 3, Eastbound: 2, Total: 5}, got)
}

func TestLanes(t *testing.T) {
	rec := get(t, newTestServer(t, Dependencies{}), "/lanes")
	require.Equal(t, http.StatusOK, rec.Code)

	var got handlers.LanesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	want := handlers.LanesResponse{
		CrossingLineX: 960,
		Lanes:         fakeCounter{}.Lanes(),
		Occupancy:     fakeCounter{}.Occupancy(),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lanes mismatch (-want +got):\n%s", diff)
	}
}

func TestLaneStats(t *testing.T) {
	rec := get(t, newTestServer(t, Dependencies{}), "/lanes/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []models.LaneStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].Crossings)
	assert.InDelta(t, 24000, got[0].MeanArea, 1e-9)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		running bool
		code    int
		status  string
	}{
		{"running", true, http.StatusOK, "healthy"},
		{"stopped", false, http.StatusServiceUnavailable, "stopped"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, newTestServer(t, Dependencies{Status: fakeStatus{running: tt.running}}), "/health")
			require.Equal(t, tt.code, rec.Code)

			var got handlers.HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, "worker-test", got.WorkerID)
			assert.Equal(t, int64(42), got.FramesProcessed)
		})
	}
}

func TestRecentCrossings_JournalDisabled(t *testing.T) {
	rec := get(t, newTestServer(t, Dependencies{}), "/crossings/recent")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecentCrossings(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	history := &fakeHistory{events: []models.CrossingEvent{
		{ID: "b", SourceID: "cam-test", LaneID: 3, Direction: models.DirectionEast, FrameID: 20, Timestamp: ts},
		{ID: "a", SourceID: "cam-test", LaneID: 1, Direction: models.DirectionWest, FrameID: 11, Timestamp: ts.Add(-time.Second)},
	}}
	h := newTestServer(t, Dependencies{History: history})

	rec := get(t, h, "/crossings/recent")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, history.lastLimit)

	var got handlers.CrossingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Count)
	if diff := cmp.Diff(history.events, got.Crossings); diff != "" {
		t.Errorf("crossings mismatch (-want +got):\n%s", diff)
	}

	rec = get(t, h, "/crossings/recent?limit=9000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 500, history.lastLimit)

	for _, bad := range []string{"abc", "0", "-3"} {
		rec = get(t, h, "/crossings/recent?limit="+bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", bad)
	}
}

func TestRecentCrossings_JournalError(t *testing.T) {
	history := &fakeHistory{err: errors.New("database is locked")}
	rec := get(t, newTestServer(t, Dependencies{History: history}), "/crossings/recent")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCrossingTotals(t *testing.T) {
	rec := get(t, newTestServer(t, Dependencies{}), "/crossings/totals")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	history := &fakeHistory{totals: map[models.Direction]int64{models.DirectionWest: 7, models.DirectionEast: 4}}
	rec = get(t, newTestServer(t, Dependencies{History: history}), "/crossings/totals")
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.CountSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, models.CountSnapshot{Westbound: 7, Eastbound: 4, Total: 11}, got)

	rec = get(t, newTestServer(t, Dependencies{History: &fakeHistory{}}), "/crossings/totals")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, models.CountSnapshot{}, got)

	rec = get(t, newTestServer(t, Dependencies{History: &fakeHistory{err: errors.New("database is locked")}}), "/crossings/totals")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSystemStats(t *testing.T) {
	type statsResponse struct {
		Success bool           `json:"success"`
		Stats   map[string]any `json:"stats"`
	}

	rec := get(t, newTestServer(t, Dependencies{}), "/system/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var got statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Success)
	assert.EqualValues(t, 42, got.Stats["frames_processed"])
	assert.NotContains(t, got.Stats, "source_fps")
	assert.NotContains(t, got.Stats, "nats_connected")

	last := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec = get(t, newTestServer(t, Dependencies{
		Source: fakeSource{fps: 25, last: last},
		Broker: fakeBroker{connected: true},
	}), "/system/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	got = statsResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.EqualValues(t, 25, got.Stats["source_fps"])
	assert.Equal(t, last.Format(time.RFC3339), got.Stats["last_capture_time"])
	assert.Equal(t, true, got.Stats["nats_connected"])
}

func TestLatestFrame(t *testing.T) {
	rec := get(t, newTestServer(t, Dependencies{}), "/frame.jpg")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	rec = get(t, newTestServer(t, Dependencies{Streamer: fakeStreamer{jpeg: jpeg, frameID: 77}}), "/frame.jpg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "77", rec.Header().Get("X-Frame-ID"))
	assert.Equal(t, jpeg, rec.Body.Bytes())
}

func TestRequestID(t *testing.T) {
	h := newTestServer(t, Dependencies{})

	rec := get(t, h, "/counts")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/counts", nil)
	req.Header.Set("X-Request-ID", "trace-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "trace-123", rec.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/counts", nil)
	rec := httptest.NewRecorder()
	newTestServer(t, Dependencies{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWorkerInfo(t *testing.T) {
	rec := get(t, newTestServer(t, Dependencies{}), "/worker/info")
	require.Equal(t, http.StatusOK, rec.Code)

	var got handlers.WorkerDetailsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "cam-test", got.SourceID)
	assert.Equal(t, []int{100, 270, 410, 630}, got.Config.LaneBoundaries)
}
