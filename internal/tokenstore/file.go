package tokenstore

import (
	"context"
	"fmt"
	"os"
)

const recordFilePermMode = 0o600

// FileStore keeps each provider's credential record in its own JSON file,
// at a fixed path configured per provider.
type FileStore struct {
	paths map[string]string // provider -> file path
}

// NewFileStore creates a file-backed store. The paths map assigns one file
// per provider; providers without an entry cannot be saved or loaded.
func NewFileStore(paths map[string]string) *FileStore {
	return &FileStore{paths: paths}
}

func (s *FileStore) path(provider string) (string, error) {
	p, ok := s.paths[provider]
	if !ok {
		return "", fmt.Errorf("tokenstore: no file configured for provider %q", provider)
	}
	return p, nil
}

// Save writes the record to the provider's file, replacing any previous content.
func (s *FileStore) Save(_ context.Context, provider string, record []byte) error {
	path, err := s.path(provider)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, record, recordFilePermMode); err != nil {
		return fmt.Errorf("tokenstore: write %s: %w", path, err)
	}
	return nil
}

// Load reads the provider's file. A missing file maps to ErrNotFound.
func (s *FileStore) Load(_ context.Context, provider string) ([]byte, error) {
	path, err := s.path(provider)
	if err != nil {
		return nil, err
	}
	record, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tokenstore: read %s: %w", path, err)
	}
	return record, nil
}
