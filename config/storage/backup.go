package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"ccdash/config/models"
)

// BackupTimeFormat is UTC ISO-8601 with the colons replaced, so names sort
// lexicographically in creation order and are safe on every filesystem.
const BackupTimeFormat = "2006-01-02T15-04-05"

// Validator checks a configuration payload before it is restored.
type Validator interface {
	Validate(content []byte) error
}

// BackupManager manages timestamped snapshots of the canonical configuration
type BackupManager struct {
	store     *Store
	validator Validator
	now       func() time.Time
}

// NewBackupManager creates a new BackupManager over store.
func NewBackupManager(store *Store, validator Validator) *BackupManager {
	return &BackupManager{
		store:     store,
		validator: validator,
		now:       time.Now,
	}
}

// SetClock replaces the time source; tests use it to create distinct backups.
func (bm *BackupManager) SetClock(now func() time.Time) {
	bm.now = now
}

// IsBackupName reports whether name belongs to the backup namespace.
func IsBackupName(name string) bool {
	prefix := models.CanonicalName + models.BackupInfix
	return strings.HasPrefix(name, prefix) && len(name) > len(prefix)
}

// CreateBackup snapshots the canonical file and returns the backup name, or
// models.NoBackup if there is no canonical file.
func (bm *BackupManager) CreateBackup() (string, error) {
	content, err := bm.store.ReadFile(models.CanonicalName)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.NoBackup, nil
		}
		return "", err
	}

	name := bm.nextName()
	if err := bm.store.WriteFile(name, content); err != nil {
		return "", err
	}
	return name, nil
}

// nextName derives a backup name from the clock. Further backups within the
// same second get a zero-padded -NNN suffix so they keep sorting in order.
func (bm *BackupManager) nextName() string {
	base := models.CanonicalName + models.BackupInfix + bm.now().UTC().Format(BackupTimeFormat)
	name := base
	for i := 1; bm.store.FileExists(name); i++ {
		name = fmt.Sprintf("%s-%03d", base, i)
	}
	return name
}

// ListBackups returns backup names, newest first. A missing directory yields
// an empty list.
func (bm *BackupManager) ListBackups() ([]string, error) {
	files, err := bm.store.ListFiles()
	if err != nil {
		if errors.Is(err, models.ErrDirectoryUnavailable) {
			return []string{}, nil
		}
		return nil, err
	}

	backups := make([]string, 0, len(files))
	for _, name := range files {
		if IsBackupName(name) {
			backups = append(backups, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

// RestoreBackup validates the named backup, snapshots the current canonical
// file, then writes the backup's content into the canonical slot. It returns
// the name of the safety backup (or models.NoBackup).
func (bm *BackupManager) RestoreBackup(name string) (string, error) {
	if !IsBackupName(name) || !bm.store.FileExists(name) {
		return "", models.E(models.KindNotFound, "restore", name, nil)
	}

	content, err := bm.store.ReadFile(name)
	if err != nil {
		return "", err
	}

	if err := bm.validator.Validate(content); err != nil {
		return "", models.E(models.KindConfigInvalid, "restore", name, err)
	}

	safety, err := bm.CreateBackup()
	if err != nil {
		return "", fmt.Errorf("safety backup before restore failed: %w", err)
	}

	if err := bm.store.WriteFileAtomic(models.CanonicalName, content); err != nil {
		return safety, err
	}
	return safety, nil
}

// Prune removes the oldest backups, retaining only the newest keep. It
// returns the removed names. keep <= 0 removes nothing.
func (bm *BackupManager) Prune(keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	backups, err := bm.ListBackups()
	if err != nil {
		return nil, err
	}
	if len(backups) <= keep {
		return nil, nil
	}

	var removed []string
	for _, old := range backups[keep:] {
		if err := bm.store.DeleteFile(old); err != nil {
			return removed, fmt.Errorf("failed to remove old backup %s: %w", old, err)
		}
		removed = append(removed, old)
	}
	return removed, nil
}
