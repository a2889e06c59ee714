package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lanecount-worker-go/internal/config"
)

func NewServiceLogger(cfg *config.Config, service string) zerolog.Logger {
	return log.With().
		Str("worker_id", cfg.WorkerID).
		Str("source_id", cfg.SourceID).
		Str("service", service).
		Logger()
}

func WithFrame(base zerolog.Logger, frameID int64) zerolog.Logger {
	return base.With().Int64("frame_id", frameID).Logger()
}
