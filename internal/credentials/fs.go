package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

type FSCredentialsFetcher struct {
	Path string
}

func NewFSCredentialsFetcher(path string) *FSCredentialsFetcher {
	return &FSCredentialsFetcher{Path: path}
}

func (f *FSCredentialsFetcher) GetCredentials() (*ClientCredentials, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s does not exist", ErrNotFound, f.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	var creds ClientCredentials
	if err := json.Unmarshal(b, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	creds.normalize()
	if !creds.Complete() {
		return nil, fmt.Errorf("missing client_id or client_secret in credentials file %s", f.Path)
	}
	return &creds, nil
}

// InitFromCredentials writes creds to path with owner-only permissions,
// creating the parent directory. Empty fields are written as placeholders so
// the file documents what needs filling in.
func InitFromCredentials(path string, creds *ClientCredentials) error {
	if err := EnsureParentDir(path); err != nil {
		return err
	}

	out := ClientCredentials{ClientID: placeholder, ClientSecret: placeholder, MerchantID: placeholder}
	if creds != nil {
		if usable(creds.ClientID) {
			out.ClientID = clean(creds.ClientID)
		}
		if usable(creds.ClientSecret) {
			out.ClientSecret = clean(creds.ClientSecret)
		}
		if usable(creds.MerchantID) {
			out.MerchantID = clean(creds.MerchantID)
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set credentials file permissions: %w", err)
	}
	return nil
}
