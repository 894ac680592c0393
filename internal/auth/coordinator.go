package auth

import (
	"context"
	"net/http"

	"github.com/dvcrn/ups-proxy/internal/httpclient"
	"github.com/rs/zerolog"
)

// TokenProvider is the part of TokenCache the Coordinator depends on.
type TokenProvider interface {
	Token(ctx context.Context) (*Token, error)
	InvalidateIfCurrent(tok *Token) bool
}

// Coordinator attaches the bearer header to carrier requests and re-authenticates
// once when the carrier answers 401.
type Coordinator struct {
	tokens   TokenProvider
	executor Executor
	logger   zerolog.Logger
}

func NewCoordinator(tokens TokenProvider, executor Executor, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		tokens:   tokens,
		executor: executor,
		logger:   logger,
	}
}

// Do sends req with a valid token. On a 401 the rejected token is dropped
// from the cache, a fresh token is fetched and the request is retried exactly
// once; whatever that second attempt yields is returned, including another
// 401. Concurrent 401s for the same token share one refresh.
func (c *Coordinator) Do(ctx context.Context, req httpclient.Request) (*httpclient.Response, error) {
	tok, resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	dropped := c.tokens.InvalidateIfCurrent(tok)
	c.logger.Warn().
		Str("method", req.Method).
		Str("url", req.URL).
		Bool("token_dropped", dropped).
		Msg("Received 401 Unauthorized, forcing token refresh")

	_, resp, err = c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Error().Msg("Still received 401 after token refresh, giving up")
	} else {
		c.logger.Info().Int("status_code", resp.StatusCode).Msg("Request succeeded after token refresh")
	}
	return resp, nil
}

func (c *Coordinator) send(ctx context.Context, req httpclient.Request) (*Token, *httpclient.Response, error) {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, nil, err
	}
	resp, err := c.executor.Execute(ctx, req.WithHeader("Authorization", tok.AuthorizationHeader()))
	return tok, resp, err
}
