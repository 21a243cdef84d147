// Package transport defines the interface for pluggable request surfaces.
//
// Each transport (HTTP, gRPC, MQTT) decodes requests in its own wire format
// and hands them to the same Service. The service doesn't care how requests
// arrive; it only works with the Transport contract.
package transport

import (
	"context"
	"errors"

	"github.com/nadzzz/agrisaarthi/internal/dispatch"
	"github.com/nadzzz/agrisaarthi/internal/message"
	"github.com/nadzzz/agrisaarthi/internal/weather"
)

// Service is the set of operations every transport exposes.
// *dispatch.Dispatcher implements it.
type Service interface {
	FarmerAgent(ctx context.Context, req *message.Request) (*message.AgentResult, error)
	Weather(ctx context.Context, city string) weather.Snapshot
	Advisory(ctx context.Context, req message.AdvisoryRequest) (*message.AdvisoryResult, error)
}

var _ Service = (*dispatch.Dispatcher)(nil)

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http", "mqtt").
	Name() string

	// Listen starts accepting requests and hands them to svc.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, svc Service) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}

// Outcome labels a finished request for the requests_total metric.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, dispatch.ErrInvalidRequest):
		return "rejected"
	default:
		return "error"
	}
}
