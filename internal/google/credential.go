package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// CredentialType is the type tag written into credential files.
const CredentialType = "authorized_user"

var (
	// ErrNoCredential is returned when no credential file exists yet.
	ErrNoCredential = errors.New("no stored credential")

	// ErrAuthorization marks every failure to obtain calendar access.
	ErrAuthorization = errors.New("calendar authorization failed")
)

// Credential is the persisted form of an authorized user. The layout matches
// the files written by Google's client libraries.
type Credential struct {
	Type         string `json:"type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
}

// Validate checks that the credential can be used to mint access tokens.
func (c *Credential) Validate() error {
	if c.Type != CredentialType {
		return fmt.Errorf("unsupported credential type %q", c.Type)
	}
	if c.ClientID == "" {
		return errors.New("credential is missing client_id")
	}
	if c.RefreshToken == "" {
		return errors.New("credential is missing refresh_token")
	}
	return nil
}

// LoadCredential reads a credential file. A missing file yields ErrNoCredential.
func LoadCredential(path string) (*Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoCredential
		}
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("failed to parse credential file %s: %w", path, err)
	}
	if err := cred.Validate(); err != nil {
		return nil, fmt.Errorf("invalid credential file %s: %w", path, err)
	}
	return &cred, nil
}

// SaveCredential writes the credential with 0600 permissions. The data is
// written to a temporary file in the same directory and renamed into place,
// so an interrupted save never leaves a truncated credential behind.
func SaveCredential(path string, cred *Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary credential file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once the rename succeeded
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to restrict credential file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close credential file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move credential file into place: %w", err)
	}
	return nil
}

// HasCredential reports whether a usable credential file exists at path.
func HasCredential(path string) bool {
	_, err := LoadCredential(path)
	return err == nil
}
