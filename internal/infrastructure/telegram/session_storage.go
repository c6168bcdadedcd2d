package telegram

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gotd/td/session"
)

// FileSessionStorage implements session.Storage on top of a per-phone file.
// Sessions are created out of band; this service only restores them.
type FileSessionStorage struct {
	filePath string
}

// NewFileSessionStorage creates a file-based session storage in sessionDir
func NewFileSessionStorage(sessionDir, phoneNumber string) (*FileSessionStorage, error) {
	if err := os.MkdirAll(sessionDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	fileName := fmt.Sprintf("session_%s.json", strings.TrimPrefix(phoneNumber, "+"))

	return &FileSessionStorage{
		filePath: filepath.Join(sessionDir, fileName),
	}, nil
}

// LoadSession loads session data from file
func (s *FileSessionStorage) LoadSession(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	if len(data) == 0 {
		return nil, session.ErrNotFound
	}

	return data, nil
}

// StoreSession persists refreshed session data (new salts, DC migrations)
func (s *FileSessionStorage) StoreSession(ctx context.Context, data []byte) error {
	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Exists reports whether a session file is present
func (s *FileSessionStorage) Exists() bool {
	_, err := os.Stat(s.filePath)
	return err == nil
}

// FilePath returns the path to the session file
func (s *FileSessionStorage) FilePath() string {
	return s.filePath
}

var _ session.Storage = (*FileSessionStorage)(nil)
