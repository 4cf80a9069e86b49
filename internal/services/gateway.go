package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/aerox/internal/shared"
	"golang.org/x/time/rate"
)

// TokenSource is the token store as seen by the [Gateway].
type TokenSource interface {
	Get() (string, bool)
	Clear(ctx context.Context) error
}

// Response is a buffered 2xx response from the remote API.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// NoContent reports a 204 response.
func (r *Response) NoContent() bool {
	return r.Status == http.StatusNoContent
}

// Decode unmarshals the JSON body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Gateway sends authorized requests to the remote API.
//
// Every request carries the current bearer token. A 401 clears the token store before the call returns
// [shared.ErrUnauthorized]; other non-2xx statuses return a [*shared.APIError]. Nothing is retried.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
	logger     *log.Logger
}

// GatewayOpts configures a [Gateway].
type GatewayOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	// RequestsPerSecond throttles outbound calls; zero disables throttling.
	RequestsPerSecond float64
	Logger            *log.Logger
}

// NewGateway creates a [Gateway], defaulting to the Spotify Web API base URL.
func NewGateway(opts GatewayOpts) *Gateway {
	if opts.BaseURL == "" {
		opts.BaseURL = SpotifyBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Gateway{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		tokens:     opts.Tokens,
		limiter:    limiter,
		logger:     shared.WithLogger(opts.Logger, "component", "gateway"),
	}
}

// Request performs method on path with an optional JSON body.
//
// path is relative to the base URL unless it is absolute.
func (g *Gateway) Request(ctx context.Context, method, path string, body any) (*Response, error) {
	if _, ok := g.tokens.Get(); !ok {
		return nil, shared.ErrNotAuthenticated
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	// Read again after waiting: a 401 may have cleared the token meanwhile.
	token, ok := g.tokens.Get()
	if !ok {
		return nil, shared.ErrNotAuthenticated
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.url(path), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		g.logger.Warn("token rejected, clearing", "method", method, "path", path)
		if err := g.tokens.Clear(context.WithoutCancel(ctx)); err != nil {
			g.logger.Error("failed to clear token", "error", err)
		}
		return nil, fmt.Errorf("%w: %s %s", shared.ErrUnauthorized, method, path)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &shared.APIError{Status: resp.StatusCode, Body: data}
	}

	g.logger.Debug("request complete", "method", method, "path", path, "status", resp.StatusCode)
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// Do performs a request and decodes a JSON response into out when out is non-nil.
func (g *Gateway) Do(ctx context.Context, method, path string, body, out any) error {
	resp, err := g.Request(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || resp.NoContent() {
		return nil
	}
	return resp.Decode(out)
}

func (g *Gateway) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return g.baseURL + path
}
