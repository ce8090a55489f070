package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// LockName is the advisory lock file kept inside the configuration directory.
// The leading dot keeps it out of the catalog and the backup listing.
const LockName = ".ccdash.lock"

// dirLock serializes mutations across processes sharing one directory. It is
// advisory: the Claude CLI itself never takes it.
type dirLock struct {
	path string
}

func newDirLock(dir string) dirLock {
	return dirLock{path: filepath.Join(dir, LockName)}
}

// acquire blocks until the lock is held and returns its release function. A
// missing directory has nothing to protect, so it yields a no-op release.
func (l dirLock) acquire() (func(), error) {
	file, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return func() {}, nil
		}
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := lockFileExclusive(file); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to lock configuration directory: %w", err)
	}

	return func() {
		if err := unlockFile(file); err != nil {
			log.WithError(err).Warn("failed to unlock configuration directory")
		}
		file.Close()
	}, nil
}
