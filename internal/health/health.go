package health

import (
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/blueprintdash/blueprintdash/internal/auth"
	"github.com/blueprintdash/blueprintdash/internal/config"
)

// Service is the health service name reported for the blueprint poller.
const Service = "blueprintdash.poller"

// Server is a gRPC server carrying only the health service. The poller
// service starts NOT_SERVING until the first collection arrives.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

// New creates a Server guarded by the inbound API key settings.
func New(cfg config.ServerAuthConfig) *Server {
	mode, header, key := cfg.Mode, cfg.EffectiveHeader(), cfg.Key()
	srv := grpc.NewServer(
		grpc.UnaryInterceptor(auth.APIKeyInterceptor(mode, header, key)),
		grpc.StreamInterceptor(auth.APIKeyStreamInterceptor(mode, header, key)),
	)
	hs := health.NewServer()
	hs.SetServingStatus(Service, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return &Server{grpc: srv, health: hs}
}

// SetServing flips the poller service between SERVING and NOT_SERVING.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(Service, st)
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	slog.Info("gRPC health listening", "addr", lis.Addr().String())
	return s.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
