package credentials

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// KeychainService is the generic-password service name the credentials
	// are stored under.
	KeychainService = "ups-proxy-credentials"
	keychainAccount = "ups-proxy"
)

// commandRunner runs an external command and returns its stdout.
type commandRunner func(name string, args ...string) ([]byte, error)

func execRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// KeychainCredentialsFetcher retrieves credentials from macOS keychain with caching
type KeychainCredentialsFetcher struct {
	mu          sync.RWMutex
	cached      *ClientCredentials
	lastRefresh time.Time
	cacheTTL    time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	logger      *zerolog.Logger
	run         commandRunner
}

// NewKeychainCredentialsFetcher creates a new keychain-based credentials fetcher
func NewKeychainCredentialsFetcher() *KeychainCredentialsFetcher {
	return newKeychainFetcher(nil, execRunner)
}

// NewKeychainCredentialsFetcherWithLogger creates a new keychain-based credentials fetcher with logger
func NewKeychainCredentialsFetcherWithLogger(logger zerolog.Logger) *KeychainCredentialsFetcher {
	return newKeychainFetcher(&logger, execRunner)
}

func newKeychainFetcher(logger *zerolog.Logger, run commandRunner) *KeychainCredentialsFetcher {
	f := &KeychainCredentialsFetcher{
		cacheTTL: 5 * time.Minute,
		stopCh:   make(chan struct{}),
		logger:   logger,
		run:      run,
	}
	go f.backgroundRefresh()
	return f
}

// GetCredentials retrieves credentials from cache or keychain
func (k *KeychainCredentialsFetcher) GetCredentials() (*ClientCredentials, error) {
	k.mu.RLock()
	if k.cached != nil && time.Since(k.lastRefresh) < k.cacheTTL {
		creds := *k.cached
		k.mu.RUnlock()
		return &creds, nil
	}
	k.mu.RUnlock()
	return k.refreshAndGet()
}

// RefreshCredentials forces a fresh fetch from keychain
func (k *KeychainCredentialsFetcher) RefreshCredentials() error {
	_, err := k.refreshAndGet()
	return err
}

// Store replaces the keychain entry with creds.
func (k *KeychainCredentialsFetcher) Store(creds *ClientCredentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if _, err := k.run("security", "add-generic-password", "-U",
		"-s", KeychainService, "-a", keychainAccount, "-w", string(data)); err != nil {
		return fmt.Errorf("failed to update keychain: %w", err)
	}

	k.mu.Lock()
	stored := *creds
	k.cached = &stored
	k.lastRefresh = time.Now()
	k.mu.Unlock()
	return nil
}

func (k *KeychainCredentialsFetcher) refreshAndGet() (*ClientCredentials, error) {
	output, err := k.run("security", "find-generic-password", "-s", KeychainService, "-w")
	if err != nil {
		return nil, fmt.Errorf("%w: keychain item %q: %v", ErrNotFound, KeychainService, err)
	}

	var creds ClientCredentials
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(output))), &creds); err != nil {
		return nil, fmt.Errorf("failed to parse JSON from keychain: %w", err)
	}
	creds.normalize()
	if !creds.Complete() {
		return nil, fmt.Errorf("client_id or client_secret is empty in keychain credentials")
	}

	k.mu.Lock()
	k.cached = &creds
	k.lastRefresh = time.Now()
	k.mu.Unlock()

	out := creds
	return &out, nil
}

func (k *KeychainCredentialsFetcher) backgroundRefresh() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			err := k.RefreshCredentials()
			if k.logger != nil {
				if err != nil {
					k.logger.Error().Err(err).Msg("Failed to refresh credentials from keychain")
				} else {
					k.logger.Info().Msg("🔄 Refreshed credentials from keychain")
				}
			}
		case <-k.stopCh:
			return
		}
	}
}

// Close stops the background refresh goroutine
func (k *KeychainCredentialsFetcher) Close() {
	k.stopOnce.Do(func() { close(k.stopCh) })
}
