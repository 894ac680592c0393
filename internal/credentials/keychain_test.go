package credentials

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeKeychain struct {
	mu    sync.Mutex
	item  string
	calls []string
}

func (f *fakeKeychain) run(name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, args[0])
	switch args[0] {
	case "find-generic-password":
		if f.item == "" {
			return nil, errors.New("exit status 44")
		}
		return []byte(f.item + "\n"), nil
	case "add-generic-password":
		f.item = args[len(args)-1]
		return nil, nil
	}
	return nil, errors.New("unexpected command")
}

func (f *fakeKeychain) lookups() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == "find-generic-password" {
			n++
		}
	}
	return n
}

func TestKeychainCredentialsFetcher(t *testing.T) {
	fetcher := NewKeychainCredentialsFetcher()
	defer fetcher.Close()

	if fetcher.cacheTTL != 5*time.Minute {
		t.Errorf("Expected cacheTTL to be 5 minutes, got %v", fetcher.cacheTTL)
	}
	if fetcher.stopCh == nil {
		t.Error("Expected stopCh to be created")
	}
	fetcher.Close()
}

func TestKeychainCredentialsFetcherCaches(t *testing.T) {
	kc := &fakeKeychain{item: `{"client_id":"client","client_secret":"secret","merchant_id":"A1"}`}
	fetcher := newKeychainFetcher(nil, kc.run)
	defer fetcher.Close()

	for i := 0; i < 3; i++ {
		creds, err := fetcher.GetCredentials()
		if err != nil {
			t.Fatalf("GetCredentials failed: %v", err)
		}
		if creds.ClientID != "client" || creds.MerchantID != "A1" {
			t.Errorf("Unexpected credentials %+v", creds)
		}
	}
	if n := kc.lookups(); n != 1 {
		t.Errorf("Expected 1 keychain lookup, got %d", n)
	}

	if err := fetcher.RefreshCredentials(); err != nil {
		t.Fatalf("RefreshCredentials failed: %v", err)
	}
	if n := kc.lookups(); n != 2 {
		t.Errorf("Expected forced refresh to hit keychain, got %d lookups", n)
	}
}

func TestKeychainCredentialsFetcherMissingItem(t *testing.T) {
	fetcher := newKeychainFetcher(nil, (&fakeKeychain{}).run)
	defer fetcher.Close()

	_, err := fetcher.GetCredentials()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestKeychainCredentialsFetcherStore(t *testing.T) {
	kc := &fakeKeychain{}
	fetcher := newKeychainFetcher(nil, kc.run)
	defer fetcher.Close()

	if err := fetcher.Store(&ClientCredentials{ClientID: "c", ClientSecret: "s"}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if !strings.Contains(kc.item, `"client_id":"c"`) {
		t.Errorf("Unexpected keychain item %q", kc.item)
	}

	creds, err := fetcher.GetCredentials()
	if err != nil {
		t.Fatalf("GetCredentials failed: %v", err)
	}
	if creds.ClientSecret != "s" {
		t.Errorf("Unexpected credentials %+v", creds)
	}
	if n := kc.lookups(); n != 0 {
		t.Errorf("Expected stored credentials to be served from cache, got %d lookups", n)
	}
}
