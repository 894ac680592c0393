package credentials

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestInitFromCredentials(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "credentials.json")

	err := InitFromCredentials(path, &ClientCredentials{ClientID: "client", ClientSecret: "secret"})
	if err != nil {
		t.Fatalf("InitFromCredentials failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat created file: %v", err)
	}
	if info.Mode().Perm() != os.FileMode(0600) {
		t.Errorf("Expected file permissions 0600, got %v", info.Mode().Perm())
	}

	dirInfo, err := os.Stat(filepath.Dir(path))
	if err != nil {
		t.Fatalf("Parent directory was not created: %v", err)
	}
	if dirInfo.Mode().Perm() != os.FileMode(0700) {
		t.Errorf("Expected directory permissions 0700, got %v", dirInfo.Mode().Perm())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read created file: %v", err)
	}
	var raw ClientCredentials
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Failed to parse created JSON: %v", err)
	}
	if raw.MerchantID != placeholder {
		t.Errorf("Expected merchant placeholder, got %q", raw.MerchantID)
	}

	creds, err := NewFSCredentialsFetcher(path).GetCredentials()
	if err != nil {
		t.Fatalf("GetCredentials failed: %v", err)
	}
	if creds.ClientID != "client" || creds.ClientSecret != "secret" || creds.MerchantID != "" {
		t.Errorf("Unexpected credentials %+v", creds)
	}
}

func TestInitFromCredentialsTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := InitFromCredentials(path, nil); err != nil {
		t.Fatalf("InitFromCredentials failed: %v", err)
	}

	_, err := NewFSCredentialsFetcher(path).GetCredentials()
	if err == nil {
		t.Fatal("Expected an error for a template with placeholders")
	}
	if errors.Is(err, ErrNotFound) {
		t.Errorf("A present but incomplete file should not be reported as not found")
	}
}

func TestFSCredentialsFetcherMissingFile(t *testing.T) {
	_, err := NewFSCredentialsFetcher(filepath.Join(t.TempDir(), "nope.json")).GetCredentials()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestFSCredentialsFetcherBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte("{"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFSCredentialsFetcher(path).GetCredentials(); err == nil {
		t.Error("Expected parse error")
	}
}
