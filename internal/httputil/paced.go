// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across collaborators.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when the remote answers HTTP 429. Requests
// are not retried; the caller decides what to do.
var ErrRateLimited = errors.New("rate limited by remote")

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected HTTP status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected HTTP status %d: %s", e.StatusCode, e.Body)
}

// Unwrap maps 429 to ErrRateLimited.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	return nil
}

// maxErrorBody caps how much of an error response is kept in StatusError.
const maxErrorBody = 512

// PacedClient spaces outgoing requests so that no more than one request
// starts per interval. Safe for concurrent use.
type PacedClient struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewPacedClient returns a client allowing one request per interval. An
// interval of zero or less disables pacing. A nil client uses
// http.DefaultClient.
func NewPacedClient(client *http.Client, interval time.Duration, userAgent string) *PacedClient {
	if client == nil {
		client = http.DefaultClient
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &PacedClient{
		client:    client,
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: userAgent,
	}
}

// Do waits for a pacing slot and executes req under ctx. A non-2xx
// response is returned as a *StatusError after the body is drained and
// closed. On success the caller owns the response body.
func (c *PacedClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req = req.Clone(ctx)
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return resp, nil
}

// Get is a convenience wrapper for a paced GET of url.
func (c *PacedClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return c.Do(ctx, req)
}
