package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dvcrn/ups-proxy/internal/config"
	"github.com/dvcrn/ups-proxy/internal/credentials"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetGlobals(t *testing.T) {
	t.Helper()
	v = viper.New()
	log = zerolog.Nop()
	useKeychain = false
	for _, k := range []string{"UPS_CLIENT_ID", "UPS_CLIENT_SECRET", "UPS_MERCHANT_ID"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfigReadsCredentialsFile(t *testing.T) {
	resetGlobals(t)
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"client_id":"file-id","client_secret":"file-secret","merchant_id":"<FILL-ME>"}`), 0600))
	v.Set(config.KeyCredentialsFile, path)

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "file-id", cfg.ClientID)
	assert.Equal(t, "file-secret", cfg.ClientSecret)
	assert.Empty(t, cfg.MerchantID)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigPrefersEnvironment(t *testing.T) {
	resetGlobals(t)
	t.Setenv("UPS_CLIENT_ID", "env-id")
	t.Setenv("UPS_CLIENT_SECRET", "env-secret")
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"client_id":"file-id","client_secret":"file-secret"}`), 0600))
	v.Set(config.KeyCredentialsFile, path)

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "env-id", cfg.ClientID)
}

func TestLoadConfigWithoutCredentials(t *testing.T) {
	resetGlobals(t)
	v.Set(config.KeyCredentialsFile, filepath.Join(t.TempDir(), "missing.json"))

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.HasCredentials())
	assert.Error(t, cfg.Validate())
}

func TestInitTakesEnvValuesIndividually(t *testing.T) {
	resetGlobals(t)
	t.Setenv("UPS_MERCHANT_ID", "A1B2C3")

	creds := withEnvDefaults(credentials.ClientCredentials{ClientID: "flag-id"}, credentials.NewEnvCredentialsFetcher().Partial())
	assert.Equal(t, "flag-id", creds.ClientID)
	assert.Empty(t, creds.ClientSecret)
	assert.Equal(t, "A1B2C3", creds.MerchantID)

	path := filepath.Join(t.TempDir(), "credentials.json")
	v.Set(config.KeyCredentialsFile, path)
	initCreds = credentials.ClientCredentials{ClientID: "flag-id"}
	t.Cleanup(func() { initCreds = credentials.ClientCredentials{} })
	require.NoError(t, runInit(initCmd, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"client_id":"flag-id","client_secret":"<FILL-ME>","merchant_id":"A1B2C3"}`, string(data))
}
