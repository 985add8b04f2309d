// Package grpc exposes the account flows as the timecaddy.v1.AccountService
// gRPC service.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/timecaddy/internal/logging"
	"github.com/dmitrijs2005/timecaddy/internal/timex"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Options tune the server. A zero RateLimitRPS disables rate limiting.
type Options struct {
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	Clock          timex.Clock
}

type GRPCServer struct {
	address  string
	accounts AccountService
	logger   logging.Logger
	opts     Options
	now      timex.Clock
}

func NewGRPCServer(a string, l logging.Logger, svc AccountService, opts Options) *GRPCServer {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &GRPCServer{
		address:  a,
		accounts: svc,
		logger:   l.With("module", "grpc_server"),
		opts:     opts,
		now:      now,
	}
}

func (s *GRPCServer) newServer() (*grpc.Server, *health.Server) {
	var chain []grpc.UnaryServerInterceptor
	if s.opts.RateLimitRPS > 0 {
		burst := s.opts.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		chain = append(chain, newPeerLimiter(s.opts.RateLimitRPS, burst).interceptor)
	}
	chain = append(chain, timeoutInterceptor(s.opts.RequestTimeout))

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(chain...))
	srv.RegisterService(&serviceDesc, s)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return srv, hs
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is cancelled, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv, hs := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
