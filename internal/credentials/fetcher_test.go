package credentials

import (
	"errors"
	"testing"
)

type staticFetcher struct {
	creds *ClientCredentials
	err   error
}

func (s staticFetcher) GetCredentials() (*ClientCredentials, error) {
	return s.creds, s.err
}

func TestChainReturnsFirstComplete(t *testing.T) {
	chain := Chain{
		staticFetcher{err: ErrNotFound},
		staticFetcher{creds: &ClientCredentials{ClientID: "a", ClientSecret: "b"}},
		staticFetcher{creds: &ClientCredentials{ClientID: "x", ClientSecret: "y"}},
	}

	creds, err := chain.GetCredentials()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if creds.ClientID != "a" {
		t.Errorf("Expected first complete credentials, got %+v", creds)
	}
}

func TestChainCollectsErrors(t *testing.T) {
	boom := errors.New("boom")
	chain := Chain{staticFetcher{err: ErrNotFound}, staticFetcher{err: boom}}

	_, err := chain.GetCredentials()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("Expected underlying error to be kept, got %v", err)
	}

	_, err = Chain{}.GetCredentials()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for empty chain, got %v", err)
	}
}

func TestClientCredentialsComplete(t *testing.T) {
	tests := []struct {
		creds ClientCredentials
		want  bool
	}{
		{ClientCredentials{ClientID: "a", ClientSecret: "b"}, true},
		{ClientCredentials{ClientID: "a"}, false},
		{ClientCredentials{ClientID: "<FILL-ME>", ClientSecret: "b"}, false},
		{ClientCredentials{ClientID: " ", ClientSecret: "b"}, false},
	}
	for _, tt := range tests {
		if got := tt.creds.Complete(); got != tt.want {
			t.Errorf("Complete(%+v) = %v, want %v", tt.creds, got, tt.want)
		}
	}
}
