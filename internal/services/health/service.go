// Package health exposes the worker loop state over the standard gRPC health protocol.
package health

import (
	"context"
	"fmt"
	"net"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"lanecount-worker-go/internal/config"
)

// ServiceName is the name reported for the counting loop
const ServiceName = "lanecount.Worker"

type Service struct {
	port   int
	server *grpc.Server
	health *health.Server
}

func NewService(cfg *config.Config) *Service {
	server := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(server, hs)
	reflection.Register(server)

	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Service{
		port:   cfg.GRPCPort,
		server: server,
		health: hs,
	}
}

// Start listens on the configured port and blocks until the server stops
func (s *Service) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC port %d: %w", s.port, err)
	}
	return s.Serve(lis)
}

func (s *Service) Serve(lis net.Listener) error {
	log.Info().Str("addr", lis.Addr().String()).Msg("gRPC health server listening")
	return s.server.Serve(lis)
}

// SetServing flips the counting loop status; the overall server status follows it
func (s *Service) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
	s.health.SetServingStatus("", status)
}

func (s *Service) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return ctx.Err()
	}
}
