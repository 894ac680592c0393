//go:build js && wasm

package credentials

import (
	"encoding/json"
	"fmt"

	"github.com/syumai/workers/cloudflare/kv"
)

const (
	// KVNamespace is the binding name configured in wrangler.toml.
	KVNamespace = "ups_proxy_kv"
	kvKey       = "ups_client_credentials"
)

// CloudflareKVFetcher retrieves credentials from Cloudflare KV
type CloudflareKVFetcher struct {
	kvStore *kv.Namespace
}

// NewCloudflareKVFetcher creates a new Cloudflare KV-based credentials fetcher
func NewCloudflareKVFetcher() (*CloudflareKVFetcher, error) {
	kvStore, err := kv.NewNamespace(KVNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize KV namespace: %w", err)
	}
	return &CloudflareKVFetcher{kvStore: kvStore}, nil
}

// GetCredentials retrieves credentials from Cloudflare KV
func (c *CloudflareKVFetcher) GetCredentials() (*ClientCredentials, error) {
	credsJSON, err := c.kvStore.GetString(kvKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials from KV: %w", err)
	}
	if credsJSON == "" {
		return nil, fmt.Errorf("%w: no credentials found in KV", ErrNotFound)
	}

	var creds ClientCredentials
	if err := json.Unmarshal([]byte(credsJSON), &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials JSON: %w", err)
	}
	creds.normalize()
	if !creds.Complete() {
		return nil, fmt.Errorf("client_id or client_secret is empty in KV credentials")
	}
	return &creds, nil
}
