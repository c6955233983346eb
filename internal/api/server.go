package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/miradorstack/mirador-intel/internal/config"
)

// Server hosts the IntelEngine service with health, reflection and
// Prometheus interceptors on one listener.
type Server struct {
	logger   *slog.Logger
	grpc     *grpc.Server
	health   *health.Server
	listener net.Listener
	drain    time.Duration
}

// NewServer binds cfg.Address and registers service. Extra options are
// appended after the metrics interceptors.
func NewServer(cfg config.ServerConfig, service IntelEngineServer, logger *slog.Logger, opts ...grpc.ServerOption) (*Server, error) {
	if service == nil {
		return nil, errors.New("intel engine service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	lis, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Address, err)
	}

	grpc_prometheus.EnableHandlingTimeHistogram()
	gs := grpc.NewServer(append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
		grpc.ChainStreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	}, opts...)...)
	RegisterIntelEngineServer(gs, service)
	grpc_prometheus.Register(gs)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	return &Server{
		logger:   logger,
		grpc:     gs,
		health:   hs,
		listener: lis,
		drain:    cfg.GracefulTimeout,
	}, nil
}

// Run serves until ctx is cancelled or the listener fails. On cancellation
// the IntelEngine health status flips to NOT_SERVING before in-flight calls
// are drained; calls still running after the graceful timeout are cut.
func (s *Server) Run(ctx context.Context) error {
	s.setServing(healthpb.HealthCheckResponse_SERVING)

	served := make(chan error, 1)
	go func() { served <- s.grpc.Serve(s.listener) }()

	select {
	case err := <-served:
		s.health.Shutdown()
		return err
	case <-ctx.Done():
	}

	s.setServing(healthpb.HealthCheckResponse_NOT_SERVING)
	s.health.Shutdown()

	drained := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(drained)
	}()
	timer := time.NewTimer(s.gracefulTimeout())
	defer timer.Stop()
	select {
	case <-drained:
	case <-timer.C:
		s.logger.Warn("graceful drain timed out, closing open calls", slog.Duration("timeout", s.gracefulTimeout()))
		s.grpc.Stop()
	}
	return <-served
}

// Address is the bound listener address.
func (s *Server) Address() string {
	return s.listener.Addr().String()
}

func (s *Server) setServing(st healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

func (s *Server) gracefulTimeout() time.Duration {
	if s.drain <= 0 {
		return 10 * time.Second
	}
	return s.drain
}
