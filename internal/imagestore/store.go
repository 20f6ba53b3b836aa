package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// URLPrefix is the path under which stored images are served.
const URLPrefix = "/uploads/"

// Store is a directory-backed blob store for uploaded images. Filenames
// are generated, never taken from the upload, so two uploads with the
// same original name can never collide and attacker-controlled names
// can never escape the directory.
type Store interface {
	// Save persists content under a generated name and returns the
	// relative URL (/uploads/<uuid><ext>) of the stored file.
	Save(ctx context.Context, originalName string, content io.Reader) (string, error)
	// Remove deletes the file a relative URL points at. A missing file
	// is not an error.
	Remove(ctx context.Context, imageURL string) error
}

type fsStore struct {
	dir string
}

// New returns a Store rooted at dir, creating it if needed.
func New(dir string) (Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("imagestore: dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("imagestore: create dir: %w", err)
	}
	return &fsStore{dir: dir}, nil
}

func (s *fsStore) Save(ctx context.Context, originalName string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(originalName))

	// Write-then-rename so a concurrent reader never observes a
	// partially written file.
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("imagestore: create temp: %w", err)
	}
	if _, err := io.Copy(tmp, content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("imagestore: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("imagestore: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("imagestore: rename: %w", err)
	}

	return URLPrefix + name, nil
}

func (s *fsStore) Remove(ctx context.Context, imageURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name, err := fileName(imageURL)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("imagestore: remove: %w", err)
	}
	return nil
}

func fileName(imageURL string) (string, error) {
	if !strings.HasPrefix(imageURL, URLPrefix) {
		return "", fmt.Errorf("imagestore: %q is not a stored image URL", imageURL)
	}
	name := strings.TrimPrefix(imageURL, URLPrefix)
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) {
		return "", fmt.Errorf("imagestore: invalid image name %q", name)
	}
	return name, nil
}
