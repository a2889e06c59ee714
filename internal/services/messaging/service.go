package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lanecount-worker-go/internal/config"
	"lanecount-worker-go/internal/models"
)

// Box is a rectangle in frame pixels
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CrossingMessage is the payload published for every counted vehicle
type CrossingMessage struct {
	EventID   string               `json:"event_id"`
	WorkerID  string               `json:"worker_id"`
	SourceID  string               `json:"source_id"`
	LaneID    int                  `json:"lane_id"`
	Direction models.Direction     `json:"direction"`
	FrameID   int64                `json:"frame_id"`
	Timestamp time.Time            `json:"timestamp"`
	Box       Box                  `json:"box"`
	Counts    models.CountSnapshot `json:"counts"`
}

// NewCrossingMessage builds the payload for ev; counts are the totals after ev was applied
func NewCrossingMessage(workerID string, ev models.CrossingEvent, counts models.CountSnapshot) CrossingMessage {
	return CrossingMessage{
		EventID:   ev.ID,
		WorkerID:  workerID,
		SourceID:  ev.SourceID,
		LaneID:    ev.LaneID,
		Direction: ev.Direction,
		FrameID:   ev.FrameID,
		Timestamp: ev.Timestamp,
		Box: Box{
			X:      ev.Box.Min.X,
			Y:      ev.Box.Min.Y,
			Width:  ev.Box.Dx(),
			Height: ev.Box.Dy(),
		},
		Counts: counts,
	}
}

type Service struct {
	conn *nats.Conn
	cfg  *config.Config
	log  zerolog.Logger
}

func NewService(cfg *config.Config) (*Service, error) {
	logger := log.With().Str("service", "messaging").Logger()

	opts := []nats.Option{
		nats.Name("lanecount-worker-" + cfg.WorkerID),
		nats.Timeout(cfg.NatsConnectTimeout),
		nats.ReconnectWait(cfg.NatsReconnectWait),
		nats.MaxReconnects(cfg.NatsMaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(cfg.NatsURL, opts...)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("url", cfg.NatsURL).Str("subject", cfg.CrossingsSubject).Msg("NATS connection established")

	return &Service{
		conn: conn,
		cfg:  cfg,
		log:  logger,
	}, nil
}

func (s *Service) Publish(subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return s.conn.Publish(subject, payload)
}

// RecordCrossings publishes one message per event on the crossings subject
func (s *Service) RecordCrossings(ctx context.Context, events []models.CrossingEvent, counts models.CountSnapshot) error {
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Publish(s.cfg.CrossingsSubject, NewCrossingMessage(s.cfg.WorkerID, ev, counts)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

func (s *Service) Shutdown(ctx context.Context) error {
	if s.conn != nil {
		// Try graceful drain, fallback to immediate close
		if err := s.conn.Drain(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to drain NATS connection gracefully, closing immediately")
			s.conn.Close()
		}
	}
	return nil
}
