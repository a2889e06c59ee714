// Package lanes derives the fixed set of lane regions a frame is split into.
package lanes

import (
	"errors"
	"fmt"

	"lanecount-worker-go/internal/models"
)

// ErrConfiguration is matched by every ConfigurationError
var ErrConfiguration = errors.New("invalid lane configuration")

// ConfigurationError describes an invalid lane layout
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid lane configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErr(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Config lists the lane boundaries as ascending y coordinates
type Config struct {
	Boundaries     []int
	MarginGap      int
	DirectionSplit int
}

// ComputeLanes splits the frame height into one band per gap between
// consecutive boundaries, plus the bands before the first and after the last.
// Bands above DirectionSplit travel west, bands below travel east.
func ComputeLanes(frameWidth, frameHeight int, cfg Config) ([]models.LaneRegion, error) {
	if frameWidth <= 0 || frameHeight <= 0 {
		return nil, configErr("frame", "dimensions must be positive, got %dx%d", frameWidth, frameHeight)
	}
	if cfg.MarginGap < 0 {
		return nil, configErr("margin_gap", "must not be negative, got %d", cfg.MarginGap)
	}
	if len(cfg.Boundaries) == 0 {
		return nil, configErr("boundaries", "at least one boundary is required")
	}

	splitFound := false
	for i, b := range cfg.Boundaries {
		if b <= 0 || b >= frameHeight {
			return nil, configErr("boundaries", "boundary %d outside frame height %d", b, frameHeight)
		}
		if i > 0 && b <= cfg.Boundaries[i-1] {
			return nil, configErr("boundaries", "not strictly ascending at index %d (%d after %d)", i, b, cfg.Boundaries[i-1])
		}
		if b == cfg.DirectionSplit {
			splitFound = true
		}
	}
	if !splitFound {
		return nil, configErr("direction_split", "%d does not match any boundary", cfg.DirectionSplit)
	}

	edges := make([]int, 0, len(cfg.Boundaries)+2)
	edges = append(edges, 0)
	edges = append(edges, cfg.Boundaries...)
	edges = append(edges, frameHeight)

	regions := make([]models.LaneRegion, 0, len(edges)-1)
	for i := 0; i < len(edges)-1; i++ {
		start, end := edges[i], edges[i+1]
		top := start + cfg.MarginGap
		bottom := end - cfg.MarginGap
		if bottom-top <= 0 {
			return nil, configErr("margin_gap", "band [%d,%d) has no height left after margin %d", start, end, cfg.MarginGap)
		}

		direction := models.DirectionEast
		if end <= cfg.DirectionSplit {
			direction = models.DirectionWest
		}

		regions = append(regions, models.LaneRegion{
			ID:        i,
			Top:       top,
			Bottom:    bottom,
			Width:     frameWidth,
			Direction: direction,
			MarginGap: cfg.MarginGap,
		})
	}

	return regions, nil
}
