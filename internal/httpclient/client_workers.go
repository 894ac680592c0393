//go:build js && wasm

package httpclient

import (
	"net/http"
	"time"
)

// NewHTTPClient creates a client for the Workers runtime, where the default
// transport is backed by the platform fetch API.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
