package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dvcrn/ups-proxy/internal/app"
	"github.com/dvcrn/ups-proxy/internal/config"
	"github.com/dvcrn/ups-proxy/internal/credentials"
	"github.com/dvcrn/ups-proxy/internal/logger"
	"github.com/dvcrn/ups-proxy/internal/upserr"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	v   = viper.New()
	log zerolog.Logger

	configFile  string
	envFile     string
	useKeychain bool
)

var rootCmd = &cobra.Command{
	Use:   "ups-proxy",
	Short: "UPS API proxy",
	Long: `A proxy for the UPS address validation and rating APIs that owns the
OAuth client-credentials token lifecycle.

Configuration is read from UPS_* environment variables, an optional .env
file, an optional config file and the credentials file written by
'ups-proxy init'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env file is fine; only the explicit path must exist.
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("failed to load env file %s: %w", envFile, err)
			}
		} else {
			_ = godotenv.Load()
		}
		if configFile != "" {
			v.SetConfigFile(configFile)
		}
		log = logger.New()
		return nil
	},
	RunE: runServe,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Path to a config file (yaml, json or toml)")
	pf.StringVar(&envFile, "env-file", "", "Path to a .env file (default: ./.env if present)")
	pf.BoolVar(&useKeychain, "use-keychain", false, "Read client credentials from the macOS keychain")
	pf.String("creds-file", credentials.DefaultCredsPath(), "Path to the credentials file")
	pf.String("api-base-url", config.DefaultBaseURL, "UPS API base URL")
	pf.String("oauth-base-url", config.DefaultBaseURL, "UPS OAuth base URL")
	_ = v.BindPFlag(config.KeyCredentialsFile, pf.Lookup("creds-file"))
	_ = v.BindPFlag(config.KeyAPIBaseURL, pf.Lookup("api-base-url"))
	_ = v.BindPFlag(config.KeyOAuthBaseURL, pf.Lookup("oauth-base-url"))

	rootCmd.AddCommand(serveCmd, validateCmd, rateCmd, tokenCmd, initCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, upserr.UserMessage(err))
		os.Exit(1)
	}
}

// loadConfig reads the configuration and fills in client credentials from
// the credentials sources when neither env nor config file supplied them.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if cfg.HasCredentials() {
		return cfg, nil
	}

	chain := credentials.Chain{
		credentials.NewEnvCredentialsFetcher(),
		credentials.NewFSCredentialsFetcher(cfg.CredentialsFile),
	}
	if useKeychain {
		keychain := credentials.NewKeychainCredentialsFetcherWithLogger(log)
		defer keychain.Close()
		chain = append(chain, keychain)
	}

	creds, err := chain.GetCredentials()
	switch {
	case err == nil:
		cfg.ApplyCredentials(creds)
	case errors.Is(err, credentials.ErrNotFound):
		log.Debug().Err(err).Msg("No credentials found in credential sources")
	default:
		log.Warn().Err(err).Msg("⚠️  Failed to read credentials")
	}
	return cfg, nil
}

func newApp() (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(cfg, log)
}
