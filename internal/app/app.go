package app

import (
	"github.com/dvcrn/ups-proxy/internal/auth"
	"github.com/dvcrn/ups-proxy/internal/config"
	"github.com/dvcrn/ups-proxy/internal/httpclient"
	"github.com/dvcrn/ups-proxy/internal/server"
	"github.com/dvcrn/ups-proxy/internal/ups"
	"github.com/rs/zerolog"
)

// App holds the wired components shared by the server, the CLI commands and
// the worker.
type App struct {
	Config      *config.Config
	Executor    *httpclient.Client
	Refresher   *auth.OAuthRefresher
	Tokens      *auth.TokenCache
	Coordinator *auth.Coordinator
	Addresses   *ups.AddressValidator
	Rating      *ups.RatingService

	logger zerolog.Logger
}

// New validates cfg and wires the components on the platform HTTP client.
func New(cfg *config.Config, logger zerolog.Logger, opts ...httpclient.Option) (*App, error) {
	return NewWithDoer(cfg, httpclient.NewHTTPClient(cfg.RequestTimeout), logger, opts...)
}

// NewWithDoer is New with an explicit transport.
func NewWithDoer(cfg *config.Config, doer httpclient.Doer, logger zerolog.Logger, opts ...httpclient.Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts = append([]httpclient.Option{httpclient.WithLogger(logger)}, opts...)
	executor := httpclient.New(doer, cfg.RetryPolicy(), opts...)

	refresher, err := auth.NewOAuthRefresher(auth.OAuthConfig{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		MerchantID:   cfg.MerchantID,
		BaseURL:      cfg.OAuthBaseURL,
	}, executor, logger)
	if err != nil {
		return nil, err
	}

	tokens := auth.NewTokenCache(refresher, auth.TokenCacheConfig{
		Threshold: cfg.TokenRefreshThreshold,
		Logger:    logger,
	})
	coordinator := auth.NewCoordinator(tokens, executor, logger)

	client := ups.NewClient(coordinator, ups.ClientConfig{
		APIBaseURL:        cfg.APIBaseURL,
		TransactionSource: cfg.TransactionSource,
		AccountNumber:     cfg.AccountNumber,
		RatingVersion:     cfg.RatingVersion,
	}, logger)

	return &App{
		Config:      cfg,
		Executor:    executor,
		Refresher:   refresher,
		Tokens:      tokens,
		Coordinator: coordinator,
		Addresses:   ups.NewAddressValidator(client),
		Rating:      ups.NewRatingService(client),
		logger:      logger,
	}, nil
}

// NewServer creates the HTTP façade over the app's services.
func (a *App) NewServer() *server.Server {
	return server.New(a.logger, a.Addresses, a.Rating, a.Tokens, a.Config.AdminAPIKey)
}
