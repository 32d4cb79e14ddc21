// Package gateway is the single HTTP client used to talk to the bank API.
// It attaches the session's bearer token to every request and turns a 401
// into ErrUnauthenticated after expiring the session.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/bankx-client/internal/logger"
)

const (
	DefaultBaseURL = "http://localhost:8080/api"
	DefaultTimeout = 10 * time.Second

	// RequestIDHeader is set on every outgoing request.
	RequestIDHeader = "X-Request-ID"

	maxBodySize = 10 << 20
)

// TokenSource supplies the bearer token and is told when the server rejects it.
// *session.Store satisfies it.
type TokenSource interface {
	Token() string
	Expire()
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Tokens     TokenSource
	Logger     zerolog.Logger
	// Mask hides credentials and emails in logged error bodies.
	Mask bool
}

// Request describes one API call. Path is relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     zerolog.Logger
	mask    bool
}

// New creates a Client, applying defaults for empty fields.
func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    hc,
		tokens:  cfg.Tokens,
		log:     cfg.Logger.With().Str("component", "gateway").Logger(),
		mask:    cfg.Mask,
	}
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// WithTokens returns a copy of c that authenticates with ts. The portal uses
// it to bind one shared transport to per-request sessions.
func (c *Client) WithTokens(ts TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

// Get is shorthand for a GET without query parameters.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path}, out)
}

// Do sends req and decodes a 2xx JSON response into out. out may be nil, and
// a *string receives plain-text bodies verbatim.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := c.newRequest(ctx, method, req)
	if err != nil {
		return err
	}
	requestID := httpReq.Header.Get(RequestIDHeader)
	log := c.log.With().Str("method", method).Str("path", req.Path).Str("request_id", requestID).Logger()

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return fmt.Errorf("%s %s: %w", method, req.Path, ctx.Err())
		}
		log.Warn().Err(err).Dur("duration", time.Since(start)).Msg("Request failed")
		return fmt.Errorf("%s %s: %w: %w", method, req.Path, ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w: %w", method, req.Path, ErrNetwork, err)
	}

	log.Debug().Int("status", resp.StatusCode).Dur("duration", time.Since(start)).Msg("Request completed")

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if c.tokens != nil {
			c.tokens.Expire()
		}
		return fmt.Errorf("%s %s: %w", method, req.Path, ErrUnauthenticated)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		apiErr := &APIError{Status: resp.StatusCode, Message: extractMessage(body), Body: body}
		msg := apiErr.Message
		if c.mask {
			msg = logger.Sanitize(msg)
		}
		log.Info().Int("status", resp.StatusCode).Str("message", msg).Msg("API returned an error")
		return fmt.Errorf("%s %s: %w", method, req.Path, apiErr)
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if s, ok := out.(*string); ok && !json.Valid(body) {
		*s = string(body)
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, req.Path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method string, req Request) (*http.Request, error) {
	u := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encode body: %w", method, req.Path, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: build request: %w", method, req.Path, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, requestIDFrom(ctx))
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			httpReq.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return httpReq, nil
}

type requestIDKey struct{}

// ContextWithRequestID makes outgoing calls reuse id instead of minting one,
// so a portal request and the API calls it causes share an id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}
