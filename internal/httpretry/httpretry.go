// Package httpretry performs JSON HTTP calls with exponential backoff.
package httpretry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

// Client wraps an http.Client with a retry budget.
type Client struct {
	HTTP           *http.Client
	MaxElapsedTime time.Duration
}

func New(timeout, maxElapsed time.Duration) *Client {
	return &Client{
		HTTP:           &http.Client{Timeout: timeout},
		MaxElapsedTime: maxElapsed,
	}
}

// DoJSON sends the request produced by build and decodes the JSON answer into
// target. Transport errors, 429 and 5xx answers are retried; other 4xx
// answers are not.
// build is invoked once per attempt so request bodies can be replayed.
func (c *Client) DoJSON(ctx context.Context, build func(ctx context.Context) (*http.Request, error), target any) error {
	body, err := c.Do(ctx, build)
	if err != nil {
		return err
	}
	if target == nil {
		return nil
	}
	if len(body) == 0 {
		return fmt.Errorf("empty body")
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("json decode error: %v body=%s", err, truncate(body))
	}
	return nil
}

// Do returns the raw body of the first successful attempt.
func (c *Client) Do(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.MaxElapsedTime
	var (
		lastErr error
		out     []byte
	)
	op := func() error {
		req, err := build(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.HTTP.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = &StatusError{Code: resp.StatusCode, Body: truncate(body)}
			return lastErr
		}
		if resp.StatusCode >= 300 {
			lastErr = &StatusError{Code: resp.StatusCode, Body: truncate(body)}
			return backoff.Permanent(lastErr)
		}
		out = body
		lastErr = nil
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, err
	}
	return out, nil
}

func truncate(b []byte) string {
	const limit = 2048
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
