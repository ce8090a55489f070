package config

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"ccdash/config/models"
	"ccdash/config/storage"
	syncpkg "ccdash/config/sync"
	"ccdash/config/validation"

	log "github.com/sirupsen/logrus"
)

// Manager owns one Claude configuration directory. Reads are lock-free and
// tolerate concurrent writers; every mutation runs under mu and the
// directory's advisory file lock.
type Manager struct {
	store     *storage.Store
	validator *validation.Validator
	inputs    *validation.InputValidator
	backups   *storage.BackupManager
	lock      dirLock
	retention int
	mu        sync.Mutex // Serializes mutations within this process

	// beforeSourceRead runs between the catalog scan and reading the switch
	// target. Tests use it to stand in for another process.
	beforeSourceRead func(name string)
}

// NewManager creates a Manager over dir. The directory need not exist yet.
func NewManager(dir string) *Manager {
	store := storage.NewStore(dir)
	validator := validation.NewValidator()
	return &Manager{
		store:     store,
		validator: validator,
		inputs:    validation.NewInputValidator(),
		backups:   storage.NewBackupManager(store, validator),
		lock:      newDirLock(dir),
	}
}

// Dir returns the managed configuration directory.
func (m *Manager) Dir() string {
	return m.store.Dir()
}

// SetBackupRetention keeps only the newest keep backups after each backup the
// Manager takes. Zero or less disables pruning.
func (m *Manager) SetBackupRetention(keep int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retention = keep
}

// SetClock replaces the time source used to name backups.
func (m *Manager) SetClock(now func() time.Time) {
	m.backups.SetClock(now)
}

// mutate runs fn holding both the process mutex and the directory lock.
func (m *Manager) mutate(fn func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	release, err := m.lock.acquire()
	if err != nil {
		return err
	}
	defer release()

	return fn()
}

// Create validates req, renders it as a settings file and stores it under its
// archived name. It never touches the canonical file.
func (m *Manager) Create(req models.CreateRequest) (*models.Summary, error) {
	if err := m.inputs.ValidateCreate(req); err != nil {
		return nil, err
	}

	payload, err := syncpkg.BuildPayload(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build configuration: %w", err)
	}
	if err := m.validator.Validate(payload); err != nil {
		return nil, models.E(models.KindConfigInvalid, "create", req.ID, err)
	}

	if err := m.store.EnsureDir(); err != nil {
		return nil, err
	}

	name := models.CanonicalName + "." + req.ID
	var created *models.Summary
	err = m.mutate(func() error {
		if m.store.FileExists(name) {
			return models.E(models.KindAlreadyExists, "create", req.ID, nil)
		}
		summaries, err := m.list()
		if err != nil {
			return err
		}
		if find(summaries, req.ID) != nil {
			return models.E(models.KindAlreadyExists, "create", req.ID, nil)
		}

		if err := m.store.WriteFileAtomic(name, payload); err != nil {
			return err
		}
		created, err = m.summarize(name)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"id": req.ID, "file": name}).Info("configuration created")
	return created, nil
}

// Delete removes an archived configuration. The active configuration and a
// canonical file with the generic default id cannot be deleted; an archived
// settings.json.default can.
func (m *Manager) Delete(id string) error {
	if id == "" {
		return models.E(models.KindMissingRequiredField, "delete", "id", nil)
	}

	var removed string
	err := m.mutate(func() error {
		summaries, err := m.list()
		if err != nil {
			return err
		}
		target := find(summaries, id)
		switch {
		case target == nil:
			return models.E(models.KindUnknownConfig, "delete", id, nil)
		case target.ID == models.DefaultID && target.File == models.CanonicalName:
			return models.E(models.KindCannotDeleteDefault, "delete", id, nil)
		case target.IsActive:
			return models.E(models.KindCannotDeleteActive, "delete", id, nil)
		}

		if err := m.store.DeleteFile(target.File); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return models.E(models.KindUnknownConfig, "delete", id, err)
			}
			return err
		}
		removed = target.File
		return nil
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{"id": id, "file": removed}).Info("configuration deleted")
	return nil
}

// CreateBackup snapshots the canonical file. It returns models.NoBackup when
// there is nothing to snapshot.
func (m *Manager) CreateBackup() (string, error) {
	var name string
	err := m.mutate(func() error {
		var err error
		name, err = m.backups.CreateBackup()
		if err != nil {
			return err
		}
		m.pruneBackups()
		return nil
	})
	if err != nil {
		return "", err
	}
	if name != models.NoBackup {
		log.WithField("backup", name).Info("backup created")
	}
	return name, nil
}

// ListBackups returns backup names, newest first.
func (m *Manager) ListBackups() ([]string, error) {
	return m.backups.ListBackups()
}

// RestoreBackup validates the named backup and makes it the canonical file,
// snapshotting the current canonical file first. It returns the name of that
// safety backup.
func (m *Manager) RestoreBackup(name string) (string, error) {
	if name == "" {
		return "", models.E(models.KindMissingRequiredField, "restore", "backupFile", nil)
	}

	var safety string
	err := m.mutate(func() error {
		var err error
		safety, err = m.backups.RestoreBackup(name)
		if err != nil {
			return err
		}
		m.pruneBackups()
		return nil
	})
	if err != nil {
		return "", err
	}

	log.WithFields(log.Fields{"backup": name, "safety": safety}).Info("backup restored")
	return safety, nil
}

// PruneBackups deletes all but the newest keep backups and returns the
// removed names.
func (m *Manager) PruneBackups(keep int) ([]string, error) {
	var removed []string
	err := m.mutate(func() error {
		var err error
		removed, err = m.backups.Prune(keep)
		return err
	})
	return removed, err
}

// pruneBackups applies the retention setting. Callers hold mu. Failures are
// logged; the backup that triggered the prune has already succeeded.
func (m *Manager) pruneBackups() {
	if m.retention <= 0 {
		return
	}
	removed, err := m.backups.Prune(m.retention)
	if err != nil {
		log.WithError(err).Warn("failed to prune old backups")
		return
	}
	for _, name := range removed {
		log.WithField("backup", name).Debug("pruned old backup")
	}
}
