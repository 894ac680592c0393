package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/dvcrn/ups-proxy/internal/upserr"
	"github.com/rs/zerolog"
)

// Doer is the transport the Client sends attempts through.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client sends requests through a Doer and retries transient failures
// according to its RetryPolicy.
type Client struct {
	doer   Doer
	policy RetryPolicy
	logger zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

type Option func(*Client)

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithSleeper replaces the wait between attempts.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithJitterSource replaces the uniform [-1, 1] jitter generator.
func WithJitterSource(jitter func() float64) Option {
	return func(c *Client) { c.jitter = jitter }
}

func New(doer Doer, policy RetryPolicy, opts ...Option) *Client {
	c := &Client{
		doer:   doer,
		policy: policy,
		logger: zerolog.Nop(),
		sleep:  sleepContext,
		jitter: func() float64 { return rand.Float64()*2 - 1 },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Policy() RetryPolicy {
	return c.policy
}

// Execute sends req, retrying retryable statuses and transport errors up to
// MaxRetries times. Any other response, including 4xx and 5xx statuses not in
// the retryable set, is returned as-is. Running out of attempts yields a
// KindRetryLimitExceeded error wrapping the last failure.
func (c *Client) Execute(ctx context.Context, req Request) (*Response, error) {
	for attempt := 1; ; attempt++ {
		resp, err := c.do(ctx, req)

		var (
			lastErr    error
			retryAfter string
		)
		switch {
		case err != nil:
			if e, ok := upserr.As(err); ok && e.Kind == upserr.KindInvalidURL {
				return nil, e
			}
			if ctx.Err() != nil {
				return nil, upserr.Network(ctx.Err())
			}
			lastErr = err
		case c.policy.IsRetryableStatus(resp.StatusCode):
			lastErr = upserr.FromStatus(resp.StatusCode, resp.Header, resp.Body)
			retryAfter = resp.Header.Get("Retry-After")
		default:
			return resp, nil
		}

		if attempt > c.policy.MaxRetries {
			c.logger.Error().
				Err(lastErr).
				Int("attempts", attempt).
				Str("method", req.Method).
				Str("url", req.URL).
				Msg("Giving up after retry limit")
			return nil, upserr.RetryLimitExceeded(attempt, lastErr)
		}

		delay := c.policy.Delay(attempt, retryAfter, c.jitter())
		evt := c.logger.Warn().
			Err(lastErr).
			Int("attempt", attempt).
			Int("max_retries", c.policy.MaxRetries).
			Dur("delay", delay).
			Str("method", req.Method).
			Str("url", req.URL)
		if resp != nil {
			evt = evt.Int("status_code", resp.StatusCode)
		}
		evt.Msg("Transient failure, retrying")

		if err := c.sleep(ctx, delay); err != nil {
			return nil, upserr.Network(err)
		}
	}
}

// do performs exactly one attempt.
func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, upserr.InvalidURL(fmt.Sprintf("%s %s: %v", req.Method, req.URL, err))
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	httpResp, err := c.doer.Do(httpReq)
	if err != nil {
		return nil, upserr.Network(err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, upserr.Network(fmt.Errorf("failed to read response body: %w", err))
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
