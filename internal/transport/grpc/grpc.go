// Package grpc implements the gRPC transport for AgriSaarthi.
//
// The Advisor service is described by hand and carried with a JSON codec, so
// the message package types are the wire format and no protoc step is
// needed. Clients must call with content-subtype "json"
// (grpc.CallContentSubtype). The standard grpc.health.v1 service is
// registered alongside it.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/nadzzz/agrisaarthi/internal/dispatch"
	"github.com/nadzzz/agrisaarthi/internal/message"
	"github.com/nadzzz/agrisaarthi/internal/metrics"
	"github.com/nadzzz/agrisaarthi/internal/transport"
	"github.com/nadzzz/agrisaarthi/internal/weather"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "agrisaarthi.v1.Advisor"

// WeatherRequest is the request message of the Weather method.
type WeatherRequest struct {
	City string `json:"city,omitempty"`
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*transport.Service)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "FarmerAgent", Handler: farmerAgentHandler},
		{MethodName: "Weather", Handler: weatherHandler},
		{MethodName: "Advisory", Handler: advisoryHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "agrisaarthi/v1/advisor",
}

// routes maps method names to the route label used by the HTTP transport.
var routes = map[string]string{
	"FarmerAgent": "farmer-agent",
	"Weather":     "weather",
	"Advisory":    "advisory",
}

func farmerAgentHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(message.Request)
	if err := dec(req); err != nil {
		return nil, err
	}
	handle := func(ctx context.Context, r any) (any, error) {
		req := r.(*message.Request)
		if req.Timestamp.IsZero() {
			req.Timestamp = time.Now()
		}
		res, err := srv.(transport.Service).FarmerAgent(ctx, req)
		return res, toStatus(err)
	}
	if interceptor == nil {
		return handle(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/FarmerAgent"}
	return interceptor(ctx, req, info, handle)
}

func weatherHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(WeatherRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	handle := func(ctx context.Context, r any) (any, error) {
		snap := srv.(transport.Service).Weather(ctx, r.(*WeatherRequest).City)
		return &snap, nil
	}
	if interceptor == nil {
		return handle(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Weather"}
	return interceptor(ctx, req, info, handle)
}

func advisoryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(message.AdvisoryRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	handle := func(ctx context.Context, r any) (any, error) {
		res, err := srv.(transport.Service).Advisory(ctx, *r.(*message.AdvisoryRequest))
		return res, toStatus(err)
	}
	if interceptor == nil {
		return handle(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Advisory"}
	return interceptor(ctx, req, info, handle)
}

// toStatus maps pipeline errors to gRPC status codes.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, dispatch.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, dispatch.ErrWeatherUnavailable):
		return status.Error(codes.Unavailable, dispatch.ErrWeatherUnavailable.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// observe records request metrics for every unary call.
func observe(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	route, ok := routes[path.Base(info.FullMethod)]
	if !ok {
		return resp, err
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if status.Code(err) == codes.InvalidArgument {
			outcome = "rejected"
		}
	}
	metrics.RequestsTotal.WithLabelValues(route, outcome).Inc()
	metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	return resp, err
}

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	server *grpc.Server
	health *health.Server
}

// New creates a new gRPC transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server and routes incoming requests to svc.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	slog.Info("grpc transport listening", "port", t.port)
	return t.Serve(ctx, lis, svc)
}

// Serve runs the server on lis until the context is cancelled.
func (t *Transport) Serve(ctx context.Context, lis net.Listener, svc transport.Service) error {
	t.server = grpc.NewServer(grpc.UnaryInterceptor(observe))
	t.server.RegisterService(&serviceDesc, svc)

	t.health = health.NewServer()
	healthpb.RegisterHealthServer(t.server, t.health)
	t.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		_ = t.Close()
	}()

	if err := t.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Close marks the service as not serving and gracefully stops the server.
func (t *Transport) Close() error {
	if t.health != nil {
		t.health.Shutdown()
	}
	if t.server != nil {
		t.server.GracefulStop()
	}
	return nil
}

// Client calls the Advisor service over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a client connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, grpc.CallContentSubtype(codecName))
}

// FarmerAgent runs the full advisory pipeline.
func (c *Client) FarmerAgent(ctx context.Context, req *message.Request) (*message.AgentResult, error) {
	out := new(message.AgentResult)
	if err := c.invoke(ctx, "FarmerAgent", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Weather returns the current weather for city.
func (c *Client) Weather(ctx context.Context, city string) (weather.Snapshot, error) {
	var out weather.Snapshot
	err := c.invoke(ctx, "Weather", &WeatherRequest{City: city}, &out)
	return out, err
}

// Advisory returns crop advice for the request.
func (c *Client) Advisory(ctx context.Context, req message.AdvisoryRequest) (*message.AdvisoryResult, error) {
	out := new(message.AdvisoryResult)
	if err := c.invoke(ctx, "Advisory", &req, out); err != nil {
		return nil, err
	}
	return out, nil
}
