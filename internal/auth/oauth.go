package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dvcrn/ups-proxy/internal/httpclient"
	"github.com/dvcrn/ups-proxy/internal/upserr"
	"github.com/rs/zerolog"
)

const (
	// TokenPath is appended to the OAuth base URL.
	TokenPath = "/security/v1/oauth/token"
	// MerchantIDHeader carries the optional UPS account number on token requests.
	MerchantIDHeader = "x-merchant-id"
)

// Executor sends a request and returns the read response.
type Executor interface {
	Execute(ctx context.Context, req httpclient.Request) (*httpclient.Response, error)
}

// OAuthConfig holds what the client-credentials exchange needs.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	MerchantID   string
	BaseURL      string
	Now          func() time.Time
}

// OAuthRefresher exchanges client credentials for a Token.
type OAuthRefresher struct {
	config   OAuthConfig
	tokenURL string
	executor Executor
	logger   zerolog.Logger
}

// NewOAuthRefresher validates cfg up front so a bad configuration surfaces
// before any network call.
func NewOAuthRefresher(cfg OAuthConfig, executor Executor, logger zerolog.Logger) (*OAuthRefresher, error) {
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.ClientSecret = strings.TrimSpace(cfg.ClientSecret)
	cfg.MerchantID = strings.TrimSpace(cfg.MerchantID)
	if cfg.ClientID == "" {
		return nil, upserr.Configuration("OAuth client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, upserr.Configuration("OAuth client secret is required")
	}
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, upserr.Configuration("invalid OAuth base URL: %q", cfg.BaseURL)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &OAuthRefresher{
		config:   cfg,
		tokenURL: strings.TrimRight(base.String(), "/") + TokenPath,
		executor: executor,
		logger:   logger,
	}, nil
}

func (o *OAuthRefresher) TokenURL() string {
	return o.tokenURL
}

// Refresh performs one client-credentials exchange.
func (o *OAuthRefresher) Refresh(ctx context.Context) (*Token, error) {
	req := httpclient.NewFormRequest(http.MethodPost, o.tokenURL, url.Values{
		"grant_type": {"client_credentials"},
	})
	req.Header.Set("Authorization", "Basic "+basicCredentials(o.config.ClientID, o.config.ClientSecret))
	req.Header.Set("Accept", "application/json")
	if o.config.MerchantID != "" {
		req.Header.Set(MerchantIDHeader, o.config.MerchantID)
	}

	o.logger.Debug().Str("token_url", o.tokenURL).Msg("Requesting OAuth token")

	resp, err := o.executor.Execute(ctx, req)
	if err != nil {
		return nil, upserr.TokenRefreshFailed(err)
	}

	if !resp.IsSuccess() {
		oauthErr := oauthErrorFromResponse(resp.StatusCode, resp.Body)
		o.logger.Error().
			Int("status_code", resp.StatusCode).
			Str("response_body", resp.Preview(600)).
			Msg("OAuth token request rejected")
		return nil, oauthErr
	}

	var body tokenResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return nil, upserr.Decoding(err, resp.Body)
	}
	if body.AccessToken == "" {
		return nil, upserr.InvalidResponse("token response is missing access_token")
	}

	now := o.config.Now()
	tok := &Token{
		AccessToken: body.AccessToken,
		TokenType:   body.TokenType,
		ExpiresAt:   body.expiresAt(now),
		Scope:       body.Scope,
	}
	if tok.TokenType == "" {
		tok.TokenType = "Bearer"
	}

	o.logger.Info().
		Str("token_preview", tokenPreview(tok.AccessToken)).
		Int64("expires_in_seconds", int64(tok.TimeUntilExpiry(now).Seconds())).
		Msg("OAuth token issued")

	return tok, nil
}

// oauthErrorFromResponse maps a rejected token request. A body that is not a
// UPS error envelope falls back to status-only mapping.
func oauthErrorFromResponse(status int, body []byte) *upserr.Error {
	if errs, ok := upserr.ParseProviderErrors(body); ok {
		first := errs[0]
		switch {
		case status == http.StatusUnauthorized:
			return upserr.AuthFailed(status, first.Message)
		case status == http.StatusTooManyRequests:
			return upserr.RateLimited(nil)
		case status >= 500 && status <= 599:
			return upserr.ServerError(status, first.Message)
		default:
			return upserr.HTTPStatus(status, body)
		}
	}

	switch {
	case status == http.StatusUnauthorized:
		return upserr.InvalidCredentials()
	case status == http.StatusTooManyRequests:
		return upserr.RateLimited(nil)
	case status >= 500 && status <= 599:
		return upserr.ServerError(status, "")
	default:
		return upserr.HTTPStatus(status, body)
	}
}

func basicCredentials(clientID, clientSecret string) string {
	return base64.StdEncoding.EncodeToString([]byte(clientID + ":" + clientSecret))
}
