package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Tokens is the credential triple returned by the identity provider.
//
// JSON field names match the on-disk format the original mobile-app
// integrations use, so an existing credential file is readable as-is.
type Tokens struct {
	IDToken      string `json:"idToken"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Store persists the credential triple between restarts.
type Store interface {
	// Load returns the stored tokens, or (nil, nil) when no usable
	// record exists. Absence is not an error: the caller falls back
	// to a full login.
	Load() (*Tokens, error)

	// Save replaces the stored record wholesale.
	Save(tokens *Tokens) error
}

// FileStore is a JSON file credential store.
//
// Load treats a missing or unparseable file as "no stored credentials"
// rather than an error, so a corrupt file degrades to a fresh login
// instead of blocking startup. Save writes via a temp file and rename
// so a crash mid-write never leaves a truncated record.
type FileStore struct {
	path string
}

// NewFileStore creates a credential store backed by the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the credential file.
//
// Returns:
//   - (*Tokens, nil): stored credentials found and parsed
//   - (nil, nil): file absent or unparseable (fresh login required)
//   - (nil, error): unexpected I/O failure (permissions etc.)
func (s *FileStore) Load() (*Tokens, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading credential store: %w", err)
	}

	var tokens Tokens
	if err := json.Unmarshal(data, &tokens); err != nil {
		// Corrupt file: fall back to a fresh login.
		return nil, nil
	}

	return &tokens, nil
}

// Save writes the credential triple, replacing any previous record.
func (s *FileStore) Save(tokens *Tokens) error {
	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating credential directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.json")
	if err != nil {
		return fmt.Errorf("creating temp credential file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp credential file: %w", err)
	}

	if err := os.Chmod(tmpPath, 0600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("restricting credential file permissions: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing credential file: %w", err)
	}

	return nil
}
