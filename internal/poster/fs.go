package poster

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FSStore guarda afiches en disco. Los archivos quedan bajo Dir y se
// sirven en /posters/{key} por el server HTTP.
type FSStore struct {
	Dir     string
	BaseURL string // base pública, ej: http://localhost:8080
}

func NewFSStore(dir, baseURL string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("poster: mkdir %s: %w", dir, err)
	}
	return &FSStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Save escribe de forma atómica: tmp → fsync → rename. Un upload cortado
// a la mitad nunca deja un afiche corrupto visible.
func (s *FSStore) Save(_ context.Context, key, _ string, r io.Reader) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(s.Dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("poster: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return "", fmt.Errorf("poster: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("poster: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("poster: close: %w", err)
	}
	_ = os.Chmod(tmpPath, 0o644)

	dst := filepath.Join(s.Dir, key)
	if err := os.Rename(tmpPath, dst); err != nil {
		return "", fmt.Errorf("poster: rename: %w", err)
	}
	return s.BaseURL + "/posters/" + key, nil
}

func (s *FSStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := validKey(key); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.Dir, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("poster: remove: %w", err)
	}
	return nil
}

// validKey rechaza claves con separadores o traversal: las claves las
// genera NewKey, cualquier otra cosa es un bug o un ataque.
func validKey(key string) error {
	if key == "" || strings.ContainsAny(key, "/\\") || strings.Contains(key, "..") {
		return fmt.Errorf("poster: invalid key %q", key)
	}
	return nil
}
