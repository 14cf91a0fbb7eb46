// Package grpc provides gRPC server implementations for the application.
package grpc

import (
	"context"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"breakerkit/pkg/breaker"
)

// CircuitServicePrefix maps a breaker name onto a gRPC health service name.
// Checking service "circuit/anthropic" reports the anthropic breaker.
const CircuitServicePrefix = "circuit/"

// watchPollInterval is how often Watch re-evaluates breaker state.
const watchPollInterval = time.Second

// HealthServer implements the standard gRPC health protocol on top of
// breaker state. The empty service name reports overall health: NOT_SERVING
// while any breaker is open. Service names with the circuit prefix report a
// single breaker.
type HealthServer struct {
	healthpb.UnimplementedHealthServer
	registry *breaker.Registry
}

// NewHealthServer creates a HealthServer backed by the given registry.
func NewHealthServer(registry *breaker.Registry) *HealthServer {
	return &HealthServer{registry: registry}
}

// Check reports the current serving status for the requested service.
func (s *HealthServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	st, err := s.status(req.GetService())
	if err != nil {
		return nil, err
	}
	return &healthpb.HealthCheckResponse{Status: st}, nil
}

// Watch streams the serving status for the requested service, sending an
// update whenever it changes.
func (s *HealthServer) Watch(req *healthpb.HealthCheckRequest, stream healthpb.Health_WatchServer) error {
	last, err := s.status(req.GetService())
	if err != nil {
		return err
	}
	if err := stream.Send(&healthpb.HealthCheckResponse{Status: last}); err != nil {
		return err
	}

	ticker := time.NewTicker(watchPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stream.Context().Done():
			return status.FromContextError(stream.Context().Err()).Err()
		case <-ticker.C:
			current, err := s.status(req.GetService())
			if err != nil {
				return err
			}
			if current == last {
				continue
			}
			if err := stream.Send(&healthpb.HealthCheckResponse{Status: current}); err != nil {
				return err
			}
			last = current
		}
	}
}

func (s *HealthServer) status(service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	if service == "" {
		if len(s.registry.ListOpen()) > 0 {
			return healthpb.HealthCheckResponse_NOT_SERVING, nil
		}
		return healthpb.HealthCheckResponse_SERVING, nil
	}

	name, ok := strings.CutPrefix(service, CircuitServicePrefix)
	if !ok {
		return 0, status.Errorf(codes.NotFound, "unknown service %q", service)
	}

	b, exists := s.registry.Get(name)
	if !exists {
		return 0, status.Errorf(codes.NotFound, "unknown circuit %q", name)
	}

	if b.IsOpen() {
		return healthpb.HealthCheckResponse_NOT_SERVING, nil
	}
	return healthpb.HealthCheckResponse_SERVING, nil
}
