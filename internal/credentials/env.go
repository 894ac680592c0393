package credentials

import (
	"fmt"
	"os"
)

const (
	EnvClientID     = "UPS_CLIENT_ID"
	EnvClientSecret = "UPS_CLIENT_SECRET"
	EnvMerchantID   = "UPS_MERCHANT_ID"
)

// EnvCredentialsFetcher retrieves credentials from environment variables
type EnvCredentialsFetcher struct {
	lookup func(string) string
}

// NewEnvCredentialsFetcher creates a new environment-based credentials fetcher
func NewEnvCredentialsFetcher() *EnvCredentialsFetcher {
	return &EnvCredentialsFetcher{lookup: os.Getenv}
}

// Partial returns whichever of the variables are set, without requiring a
// complete pair.
func (e *EnvCredentialsFetcher) Partial() *ClientCredentials {
	creds := &ClientCredentials{
		ClientID:     e.lookup(EnvClientID),
		ClientSecret: e.lookup(EnvClientSecret),
		MerchantID:   e.lookup(EnvMerchantID),
	}
	creds.normalize()
	return creds
}

// GetCredentials reads UPS_CLIENT_ID, UPS_CLIENT_SECRET and UPS_MERCHANT_ID.
func (e *EnvCredentialsFetcher) GetCredentials() (*ClientCredentials, error) {
	creds := e.Partial()
	if !creds.Complete() {
		return nil, fmt.Errorf("%w: %s and %s must be set", ErrNotFound, EnvClientID, EnvClientSecret)
	}
	return creds, nil
}
