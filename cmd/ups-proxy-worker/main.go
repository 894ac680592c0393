//go:build js && wasm

package main

import (
	"github.com/dvcrn/ups-proxy/internal/app"
	"github.com/dvcrn/ups-proxy/internal/config"
	"github.com/dvcrn/ups-proxy/internal/credentials"
	"github.com/dvcrn/ups-proxy/internal/logger"
	"github.com/spf13/viper"
	"github.com/syumai/workers"
)

func main() {
	log := logger.New()

	// Worker vars arrive as environment variables.
	cfg, err := config.Load(viper.New())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if !cfg.HasCredentials() {
		log.Info().Msg("📦 Using Cloudflare KV credentials fetcher")
		kvFetcher, err := credentials.NewCloudflareKVFetcher()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Cloudflare KV fetcher")
		}
		creds, err := kvFetcher.GetCredentials()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read credentials from KV")
		}
		cfg.ApplyCredentials(creds)
	}

	a, err := app.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize proxy")
	}

	// Serve using workers - it handles all the HTTP server setup
	workers.Serve(a.NewServer())
}
