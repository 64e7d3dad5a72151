// grpc поднимает вспомогательный gRPC-листенер catalog-service.
// Прикладного API по gRPC нет: регистрируются только grpc.health.v1.Health
// (для проб оркестратора/сервис-меша) и, в local/dev, reflection.
package grpc

import (
	"context"
	"log/slog"
	"net"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

// Options — параметры gRPC-сервера.
type Options struct {
	Logger     *slog.Logger
	Timeout    time.Duration
	Reflection bool
	// Metrics включает go-grpc-prometheus (DefaultRegisterer).
	Metrics bool
}

// Server — gRPC-сервер с health-сервисом.
type Server struct {
	srv    *grpc.Server
	health *health.Server
	log    *slog.Logger
}

// NewServer собирает gRPC-сервер. До вызова SetServing(true) health отвечает NOT_SERVING.
func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	unary := []grpc.UnaryServerInterceptor{
		Recover(log),
		UnaryLogging(log),
		WithTimeout(opts.Timeout),
	}
	var stream []grpc.StreamServerInterceptor

	if opts.Metrics {
		grpc_prometheus.EnableHandlingTimeHistogram()
		unary = append(unary, grpc_prometheus.UnaryServerInterceptor)
		stream = append(stream, grpc_prometheus.StreamServerInterceptor)
	}

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(unary...),
		grpc.ChainStreamInterceptor(stream...),
	)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	if opts.Reflection {
		reflection.Register(srv)
	}

	if opts.Metrics {
		grpc_prometheus.Register(srv)
	}

	return &Server{srv: srv, health: hs, log: log}
}

// SetServing переключает статус health-сервиса.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
}

// Serve блокируется до остановки сервера.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("grpc_listen_start", slog.String("addr", ln.Addr().String()))

	if err := s.srv.Serve(ln); err != nil && err != grpc.ErrServerStopped {
		return err
	}

	return nil
}

// Shutdown переводит health в NOT_SERVING и делает GracefulStop;
// по истечении ctx соединения рвутся принудительно.
func (s *Server) Shutdown(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("grpc_stopped")
	case <-ctx.Done():
		s.log.Warn("grpc_force_stop")
		s.srv.Stop()
	}
}
