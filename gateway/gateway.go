// Package gateway sends backend requests on behalf of the current session. It attaches the
// bearer token and, on a 401, refreshes once and replays the request once.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-session/gateway/apierror"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/token"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const RequestIDHeader = "X-Request-ID"

// TokenSource is the part of the identity provider adapter the gateway relies on.
type TokenSource interface {
	Token(ctx context.Context) (string, bool)
	IsTokenValid() bool
	RefreshToken(ctx context.Context) *token.Pair
}

type Option func(*Gateway)

func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		g.client = c
	}
}

// WithBaseURL sets the prefix used by GetJSON and PostJSON.
func WithBaseURL(baseURL string) Option {
	return func(g *Gateway) {
		g.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

func WithRateLimiter(l *rate.Limiter) Option {
	return func(g *Gateway) {
		g.limiter = l
	}
}

func WithMetrics(m *Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithOnUnauthorized registers the hook run when a 401 cannot be recovered, typically
// sending the user back to the login entry point.
func WithOnUnauthorized(fn func(ctx context.Context)) Option {
	return func(g *Gateway) {
		g.onUnauthorized = fn
	}
}

type Gateway struct {
	tokens         TokenSource
	client         *http.Client
	baseURL        string
	limiter        *rate.Limiter
	metrics        *Metrics
	onUnauthorized func(ctx context.Context)
}

func New(tokens TokenSource, options ...Option) *Gateway {
	g := &Gateway{
		tokens: tokens,
		client: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Do sends req with the current bearer token. A 2xx response is returned unchanged. A 401
// triggers exactly one refresh and one replay. Any other failure, or a second 401, returns
// an error that matches the internal/errors taxonomy and closes the response body. The
// unauthorized hook runs only when the refresh fails or the replay is rejected; a request
// whose body cannot be replayed returns the original 401 and leaves the session alone.
func (g *Gateway) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}

	bearer := ""
	if tok, ok := g.tokens.Token(ctx); ok && g.tokens.IsTokenValid() {
		bearer = tok
	}

	resp, err := g.send(req.Clone(ctx), bearer)
	if err != nil {
		g.metrics.request(OutcomeTransport)
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return g.finish(resp, OutcomeOK)
	}

	first := apierror.FromResponse(resp)
	pair := g.tokens.RefreshToken(ctx)
	g.metrics.refresh(pair != nil && pair.AccessToken != "")
	if pair == nil || pair.AccessToken == "" {
		return nil, g.unauthorized(ctx, first)
	}

	retry, err := replayable(req)
	if err != nil {
		// The session is still good, only this request is lost.
		log.Warn().Str("url", req.URL.String()).Msg("Token refreshed but the request cannot be replayed")
		g.metrics.request(OutcomeUnauthorized)
		return nil, first
	}

	resp, err = g.send(retry, pair.AccessToken)
	if err != nil {
		g.metrics.request(OutcomeTransport)
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, g.unauthorized(ctx, apierror.FromResponse(resp))
	}
	return g.finish(resp, OutcomeRetriedOK)
}

func (g *Gateway) send(req *http.Request, bearer string) (*http.Response, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrRateLimited, err)
		}
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	} else {
		req.Header.Del("Authorization")
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	g.metrics.observe(req.Method, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

func (g *Gateway) finish(resp *http.Response, outcome string) (*http.Response, error) {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		g.metrics.request(outcome)
		return resp, nil
	}
	g.metrics.request(OutcomeAPIError)
	return nil, apierror.FromResponse(resp)
}

func (g *Gateway) unauthorized(ctx context.Context, cause *apierror.Error) error {
	g.metrics.request(OutcomeUnauthorized)
	if g.onUnauthorized != nil {
		g.onUnauthorized(ctx)
	}
	return cause
}

// replayable returns a fresh copy of req whose body can be sent again.
func replayable(req *http.Request) (*http.Request, error) {
	retry := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return retry, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("%s %s: body cannot be replayed", req.Method, req.URL)
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	retry.Body = body
	return retry, nil
}

// GetJSON fetches path relative to the base URL and decodes the JSON response into out.
func (g *Gateway) GetJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return g.doJSON(req, out)
}

// PostJSON sends in as a JSON body and decodes the response into out when out is non-nil.
func (g *Gateway) PostJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return g.doJSON(req, out)
}

func (g *Gateway) doJSON(req *http.Request, out any) error {
	resp, err := g.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
