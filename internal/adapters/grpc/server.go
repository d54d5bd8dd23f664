// Package grpcadapter serves the dispatcher over gRPC and provides a typed
// route guide client.
package grpcadapter

import (
	"context"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/samirrijal/routeguide/internal/core/dispatch"
)

// Server is a gRPC server whose every non-health method is routed through a
// dispatch.Dispatcher.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

// NewServer creates a server for d. Extra options are appended to the
// codec and unknown-service handler this package installs.
func NewServer(d *dispatch.Dispatcher, opts ...grpc.ServerOption) *Server {
	base := []grpc.ServerOption{
		grpc.ForceServerCodec(Codec{}),
		grpc.UnknownServiceHandler(streamHandler(d)),
	}
	srv := grpc.NewServer(append(base, opts...)...)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(dispatch.RouteGuideService, healthpb.HealthCheckResponse_SERVING)

	return &Server{grpc: srv, health: hs}
}

// streamHandler receives every call for which no service was registered
// with the grpc.Server.
func streamHandler(d *dispatch.Dispatcher) grpc.StreamHandler {
	return func(_ any, stream grpc.ServerStream) error {
		method, ok := grpc.MethodFromServerStream(stream)
		if !ok {
			return status.Error(codes.Internal, "method name unavailable")
		}
		return toStatus(d.Dispatch(method, stream))
	}
}

// Serve accepts connections on lis until Shutdown.
func (s *Server) Serve(lis net.Listener) error {
	slog.Info("gRPC server starting", "addr", lis.Addr().String())
	return s.grpc.Serve(lis)
}

// Shutdown marks the service as not serving and drains in-flight calls.
// When ctx ends first, remaining calls are cut off.
func (s *Server) Shutdown(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("gRPC graceful stop timed out, forcing")
		s.grpc.Stop()
		<-done
	}
}
