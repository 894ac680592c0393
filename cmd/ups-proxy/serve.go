package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvcrn/ups-proxy/internal/app"
	"github.com/dvcrn/ups-proxy/internal/config"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP proxy (default)",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("port", config.DefaultPort, "Port to listen on")
	serveCmd.Flags().String("admin-key", "", "API key for the /admin endpoints")
	_ = v.BindPFlag(config.KeyPort, serveCmd.Flags().Lookup("port"))
	_ = v.BindPFlag(config.KeyAdminAPIKey, serveCmd.Flags().Lookup("admin-key"))
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validateCredentialsAtStartup(ctx, a)

	srv := &http.Server{
		Addr:              ":" + a.Config.Port,
		Handler:           a.NewServer(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", a.Config.Port).Msg("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// validateCredentialsAtStartup warms the token cache. A failure is logged and
// the server still starts; requests will retry the exchange.
func validateCredentialsAtStartup(ctx context.Context, a *app.App) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := a.Tokens.Token(ctx); err != nil {
		log.Error().Err(err).Msg("⚠️  Failed to obtain OAuth token at startup")
		return
	}

	st := a.Tokens.Status()
	minutes := int64(st.TimeRemaining.Minutes())
	if minutes <= 60 {
		log.Warn().Int64("minutes_until_expiry", minutes).Msg("⚠️  Token expires soon, will refresh shortly")
		return
	}
	log.Info().Int64("minutes_until_expiry", minutes).Msg("✅ Credentials loaded successfully")
}
