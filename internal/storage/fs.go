package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// FSStore keeps documents as files below a root directory.
type FSStore struct {
	fs afero.Fs
}

// NewFS creates a store rooted at root on base.
func NewFS(base afero.Fs, root string) *FSStore {
	if root == "" || root == "." {
		return &FSStore{fs: base}
	}
	return &FSStore{fs: afero.NewBasePathFs(base, root)}
}

// Read returns a document's content.
func (s *FSStore) Read(_ context.Context, name string) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}

	data, err := afero.ReadFile(s.fs, filepath.FromSlash(clean))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", clean, ErrNotFound)
		}
		return "", fmt.Errorf("failed to read %s: %w", clean, err)
	}
	return string(data), nil
}

// Write replaces a document. The content goes to a temporary file first and is
// renamed into place.
func (s *FSStore) Write(_ context.Context, name, content string) error {
	clean, err := cleanName(name)
	if err != nil {
		return err
	}
	target := filepath.FromSlash(clean)

	if dir := filepath.Dir(target); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", clean, err)
		}
	}

	tmp := target + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", clean, err)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", clean, err)
	}
	return nil
}

// List returns the names of documents ending in ext, sorted.
func (s *FSStore) List(_ context.Context, ext string) ([]string, error) {
	var names []string
	err := afero.Walk(s.fs, ".", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(p, ext) {
			return nil
		}
		names = append(names, filepath.ToSlash(strings.TrimPrefix(p, "./")))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	sort.Strings(names)
	return names, nil
}
