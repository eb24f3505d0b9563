// Package health serves the standard gRPC health checking protocol for the daemon.
// The overall status ("") and the ServiceName service flip together.
package health

import (
	"errors"
	"net"
	"sync"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/elys-network/lbp/internal/logger"
)

// ServiceName is the service name clients pass to Check.
const ServiceName = "lbp.Engine"

// Server wraps a gRPC server that only exposes the health service.
type Server struct {
	mu sync.Mutex

	grpcServer *grpc.Server
	health     *grpchealth.Server
	listener   net.Listener
	running    bool
	serving    bool

	logger zerolog.Logger
}

// NewServer creates a health server reporting NOT_SERVING until SetServing(true) is called.
func NewServer() *Server {
	hs := grpchealth.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	s := &Server{
		grpcServer: gs,
		health:     hs,
		logger:     logger.GetForComponent("health"),
	}
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Start listens on addr and serves until Stop. It blocks.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("health server is already running")
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.listener = listener
	s.running = true
	s.mu.Unlock()

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("Starting gRPC health server")
	err = s.grpcServer.Serve(listener)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// Stop marks every service NOT_SERVING and stops the gRPC server gracefully.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// SetServing flips the reported status. Transitions are logged.
func (s *Server) SetServing(serving bool) {
	s.mu.Lock()
	changed := s.serving != serving
	s.serving = serving
	s.mu.Unlock()

	if serving {
		s.setStatus(healthpb.HealthCheckResponse_SERVING)
	} else {
		s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	}
	if changed {
		s.logger.Info().Bool("serving", serving).Msg("Health status changed")
	}
}

// Serving reports the last status set.
func (s *Server) Serving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serving
}

// Checker returns the underlying health service, for in-process checks.
func (s *Server) Checker() healthpb.HealthServer {
	return s.health
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
