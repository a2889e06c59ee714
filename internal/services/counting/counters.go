package counting

import (
	"sync/atomic"

	"lanecount-worker-go/internal/models"
)

// Counters holds the directional totals. Only the merge phase increments
// them; readers may snapshot at any time.
type Counters struct {
	westbound atomic.Int64
	eastbound atomic.Int64
}

func (c *Counters) increment(direction models.Direction) {
	switch direction {
	case models.DirectionWest:
		c.westbound.Add(1)
	case models.DirectionEast:
		c.eastbound.Add(1)
	}
}

// Snapshot returns the current totals
func (c *Counters) Snapshot() models.CountSnapshot {
	west := c.westbound.Load()
	east := c.eastbound.Load()
	return models.CountSnapshot{
		Westbound: west,
		Eastbound: east,
		Total:     west + east,
	}
}
