package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"deskplan/internal/models"

	"github.com/rs/zerolog"
)

// FileStore persists the document as a JSON file. Saves write a
// temporary file next to the target and rename it into place, so
// readers see either the old or the new document.
type FileStore struct {
	path   string
	logger *zerolog.Logger
}

func NewFileStore(path string, logger *zerolog.Logger) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("file store: create directory: %w", err)
	}
	return &FileStore{path: path, logger: logger}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(ctx context.Context) (*models.Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	doc, repairs, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	LogRepairs(s.logger, s.path, repairs)
	return doc, nil
}

// SetAside copies the current file next to itself so a following save
// cannot destroy it. It returns the path of the copy.
func (s *FileStore) SetAside(ctx context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", s.path, err)
	}
	dst := s.path + ".unreadable-" + time.Now().Format(setAsideLayout)
	if err := WriteFileAtomic(dst, data, 0o644); err != nil {
		return "", err
	}
	return dst, nil
}

func (s *FileStore) Save(ctx context.Context, doc *models.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return WriteFileAtomic(s.path, data, 0o644)
}

// Ping checks that the directory of the document is reachable.
func (s *FileStore) Ping(ctx context.Context) error {
	_, err := os.Stat(filepath.Dir(s.path))
	return err
}

// WriteFileAtomic writes data to a temporary file in the directory of
// path, syncs it and renames it over path.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Chmod(perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	if d, errDir := os.Open(dir); errDir == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
