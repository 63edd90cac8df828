package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage writes images below Root and serves them from BaseURL.
type LocalStorage struct {
	Root    string
	BaseURL string
}

func NewLocalStorage(root, baseURL string) *LocalStorage {
	return &LocalStorage{Root: root, BaseURL: baseURL}
}

// path resolves key below Root and returns the file path and the cleaned key.
func (s *LocalStorage) path(key string) (string, string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.Root, clean), strings.TrimPrefix(filepath.ToSlash(clean), "/"), nil
}

func (s *LocalStorage) Save(_ context.Context, key string, data []byte, _ string) (string, error) {
	p, rel, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return strings.TrimRight(s.BaseURL, "/") + "/" + rel, nil
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	p, _, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
