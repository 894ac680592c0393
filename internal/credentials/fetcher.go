package credentials

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by a Fetcher that has no credentials to offer.
var ErrNotFound = errors.New("credentials not found")

// placeholder is what `ups-proxy init` writes for values left to fill in.
const placeholder = "<FILL-ME>"

// ClientCredentials are the UPS OAuth client-credentials values.
type ClientCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	MerchantID   string `json:"merchant_id,omitempty"`
}

// Complete reports whether both the client ID and secret are usable.
func (c *ClientCredentials) Complete() bool {
	return usable(c.ClientID) && usable(c.ClientSecret)
}

// normalize trims whitespace and drops placeholder values.
func (c *ClientCredentials) normalize() {
	c.ClientID = clean(c.ClientID)
	c.ClientSecret = clean(c.ClientSecret)
	c.MerchantID = clean(c.MerchantID)
}

func clean(s string) string {
	s = strings.TrimSpace(s)
	if s == placeholder {
		return ""
	}
	return s
}

func usable(s string) bool {
	return clean(s) != ""
}

// Fetcher defines the interface for retrieving client credentials
type Fetcher interface {
	GetCredentials() (*ClientCredentials, error)
}

// Chain returns the first complete credentials any of its fetchers yields.
type Chain []Fetcher

func (c Chain) GetCredentials() (*ClientCredentials, error) {
	var errs []error
	for _, f := range c {
		creds, err := f.GetCredentials()
		if err == nil && creds.Complete() {
			return creds, nil
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, errors.Join(errs...))
	}
	return nil, ErrNotFound
}
