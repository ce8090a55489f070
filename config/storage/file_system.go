package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ccdash/config/models"
)

// Store performs file operations scoped to a single configuration directory.
// Names passed to it are plain file names; anything with a path separator is
// rejected as not found so callers cannot escape the directory.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir. The directory need not exist yet.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the absolute path of name inside the root directory.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// DirExists reports whether the root directory exists.
func (s *Store) DirExists() bool {
	info, err := os.Stat(s.dir)
	return err == nil && info.IsDir()
}

// EnsureDir creates the root directory if needed.
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return models.E(models.KindWriteFailure, "mkdir", s.dir, err)
	}
	return nil
}

// ListFiles returns the names of regular files in the directory, sorted.
func (s *Store) ListFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.E(models.KindDirectoryUnavailable, "list", s.dir, err)
		}
		return nil, models.E(models.KindReadFailure, "list", s.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ReadFile returns the content of name.
func (s *Store) ReadFile(name string) ([]byte, error) {
	if !validName(name) {
		return nil, models.E(models.KindNotFound, "read", name, nil)
	}
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.E(models.KindNotFound, "read", name, err)
		}
		return nil, models.E(models.KindReadFailure, "read", name, err)
	}
	return data, nil
}

// WriteFile overwrites name with data. Concurrent writers to the same name race.
func (s *Store) WriteFile(name string, data []byte) error {
	if !validName(name) {
		return models.E(models.KindWriteFailure, "write", name, fmt.Errorf("invalid file name"))
	}
	if err := os.WriteFile(s.Path(name), data, 0600); err != nil {
		return models.E(models.KindWriteFailure, "write", name, err)
	}
	return nil
}

// WriteFileAtomic writes data to a hidden temporary file and renames it over
// name, so readers see either the old or the new content.
func (s *Store) WriteFileAtomic(name string, data []byte) error {
	if !validName(name) {
		return models.E(models.KindWriteFailure, "write", name, fmt.Errorf("invalid file name"))
	}
	if err := AtomicFileUpdate(s.Path(name), data); err != nil {
		return models.E(models.KindWriteFailure, "write", name, err)
	}
	return nil
}

// DeleteFile removes name.
func (s *Store) DeleteFile(name string) error {
	if !validName(name) {
		return models.E(models.KindNotFound, "delete", name, nil)
	}
	if err := os.Remove(s.Path(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.E(models.KindNotFound, "delete", name, err)
		}
		return models.E(models.KindWriteFailure, "delete", name, err)
	}
	return nil
}

// FileExists reports whether name exists.
func (s *Store) FileExists(name string) bool {
	if !validName(name) {
		return false
	}
	return FileExists(s.Path(name))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// AtomicFileUpdate ensures atomic file update to prevent data corruption.
// The temporary file is dot-prefixed so directory listings never mistake it
// for a configuration.
func AtomicFileUpdate(filePath string, content []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(filePath), "."+filepath.Base(filePath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmpFile.Name()) // Clean up on failure

	if _, err := tmpFile.Write(content); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write to temporary file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Chmod(tmpFile.Name(), 0600); err != nil {
		return fmt.Errorf("failed to set permissions on temporary file: %w", err)
	}

	// Same-directory rename is atomic on POSIX systems
	if err := os.Rename(tmpFile.Name(), filePath); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
