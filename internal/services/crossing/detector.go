// Package crossing implements the per-lane debounce state machine that turns
// candidate blobs into crossing events.
package crossing

import "lanecount-worker-go/internal/models"

// Options tune the debounce
type Options struct {
	// RearmAfterFrames is how many consecutive frames without a blob on the
	// line are needed before the lane can count again. 1 re-arms on the first
	// empty frame.
	RearmAfterFrames int
}

// DefaultOptions re-arms on the first empty frame
func DefaultOptions() Options {
	return Options{RearmAfterFrames: 1}
}

// NewState returns the initial IDLE state of a lane
func NewState(laneID int) models.CrossingState {
	return models.CrossingState{LaneID: laneID}
}

// Detect advances a lane's state by one frame and reports whether a new
// crossing started on this frame.
func Detect(blobs []models.CandidateBlob, lineX int, state models.CrossingState, opts Options) (models.CrossingState, bool) {
	rearm := opts.RearmAfterFrames
	if rearm < 1 {
		rearm = 1
	}

	if straddling(blobs, lineX) {
		event := !state.Occupied
		state.Occupied = true
		state.AbsentFrames = 0
		return state, event
	}

	if state.Occupied {
		state.AbsentFrames++
		if state.AbsentFrames >= rearm {
			state.Occupied = false
			state.AbsentFrames = 0
		}
	}
	return state, false
}

// Trigger returns the first blob straddling the line, if any
func Trigger(blobs []models.CandidateBlob, lineX int) (models.CandidateBlob, bool) {
	for _, b := range blobs {
		if b.Straddles(lineX) {
			return b, true
		}
	}
	return models.CandidateBlob{}, false
}

func straddling(blobs []models.CandidateBlob, lineX int) bool {
	_, ok := Trigger(blobs, lineX)
	return ok
}
