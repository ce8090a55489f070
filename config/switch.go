package config

import (
	"errors"

	"ccdash/config/models"

	log "github.com/sirupsen/logrus"
)

// Switch makes targetID the active configuration.
//
// The current configuration is first copied to settings.json.<id>; a
// configuration with the generic default id has no archival name, so it is
// preserved as a timestamped backup instead, as is a canonical file the
// catalog could not parse. The target is then validated and
// written over the canonical file through a temp file and rename. Archival
// never removes the canonical file, so a failed validation leaves the previous
// configuration active.
func (m *Manager) Switch(targetID string) (*models.SwitchReceipt, error) {
	if targetID == "" {
		return nil, models.E(models.KindMissingRequiredField, "switch", "configId", nil)
	}

	var receipt *models.SwitchReceipt
	err := m.mutate(func() error {
		var err error
		receipt, err = m.switchTo(targetID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"previous": receipt.Previous,
		"current":  receipt.Current,
		"backup":   receipt.BackupCreated,
	}).Info("configuration switched")
	return receipt, nil
}

func (m *Manager) switchTo(targetID string) (*models.SwitchReceipt, error) {
	summaries, err := m.list()
	if err != nil {
		return nil, err
	}

	target := find(summaries, targetID)
	if target == nil {
		return nil, models.E(models.KindUnknownConfig, "switch", targetID, nil)
	}
	if target.IsActive {
		return nil, models.E(models.KindAlreadyActive, "switch", targetID, nil)
	}

	receipt := &models.SwitchReceipt{
		Previous:      models.UnknownID,
		Current:       targetID,
		BackupCreated: models.NoBackup,
	}

	if active := activeOf(summaries); active != nil {
		receipt.Previous = active.ID
		archived, err := m.archive(active.ID)
		if err != nil {
			return nil, models.E(models.KindArchiveFailure, "switch", active.ID, err)
		}
		receipt.BackupCreated = archived
	} else if m.store.FileExists(models.CanonicalName) {
		// The catalog skipped an unreadable canonical file; keep a copy
		// before it is overwritten.
		name, err := m.backups.CreateBackup()
		if err != nil {
			return nil, models.E(models.KindArchiveFailure, "switch", models.CanonicalName, err)
		}
		m.pruneBackups()
		receipt.BackupCreated = name
	}

	if m.beforeSourceRead != nil {
		m.beforeSourceRead(target.File)
	}
	content, err := m.store.ReadFile(target.File)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.E(models.KindSourceMissing, "switch", target.File, err)
		}
		return nil, err
	}

	if err := m.validator.Validate(content); err != nil {
		return nil, models.E(models.KindConfigInvalid, "switch", targetID, err)
	}

	if err := m.store.WriteFileAtomic(models.CanonicalName, content); err != nil {
		return nil, err
	}
	return receipt, nil
}

// archive copies the canonical file to its archival name and returns that
// name. The default configuration is snapshotted as a backup instead.
func (m *Manager) archive(activeID string) (string, error) {
	if activeID == models.DefaultID {
		name, err := m.backups.CreateBackup()
		if err != nil {
			return "", err
		}
		m.pruneBackups()
		return name, nil
	}

	content, err := m.store.ReadFile(models.CanonicalName)
	if err != nil {
		return "", err
	}
	name := models.CanonicalName + "." + activeID
	if err := m.store.WriteFileAtomic(name, content); err != nil {
		return "", err
	}
	return name, nil
}
