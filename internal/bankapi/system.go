package bankapi

import (
	"context"
	"net/http"

	"github.com/dvloznov/bankx-client/internal/gateway"
)

// System covers the unauthenticated diagnostic endpoints.
type System struct {
	d Doer
}

// Ping returns the server's plain text reply.
func (s *System) Ping(ctx context.Context) (string, error) {
	var out string
	err := call(ctx, s.d, gateway.Request{Method: http.MethodGet, Path: "/ping"}, &out, "Ping failed")
	return out, err
}

func (s *System) Health(ctx context.Context) (map[string]any, error) {
	out := map[string]any{}
	err := call(ctx, s.d, gateway.Request{Method: http.MethodGet, Path: "/test/health"}, &out, "Health check failed")
	return out, err
}

func (s *System) Echo(ctx context.Context, v any) (map[string]any, error) {
	out := map[string]any{}
	err := call(ctx, s.d, gateway.Request{Method: http.MethodPost, Path: "/test/echo", Body: v}, &out, "Echo failed")
	return out, err
}
