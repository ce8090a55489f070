package config

import (
	"errors"
	"sort"
	"strings"

	"ccdash/config/models"
	"ccdash/config/storage"
	syncpkg "ccdash/config/sync"
	"ccdash/internal/providers"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// maxConcurrentReads bounds the catalog's parallel file reads.
const maxConcurrentReads = 8

// IsConfigName reports whether name is the canonical file or an archived
// configuration. Backups live in their own namespace and are excluded.
func IsConfigName(name string) bool {
	if name == models.CanonicalName {
		return true
	}
	prefix := models.CanonicalName + "."
	if !strings.HasPrefix(name, prefix) || len(name) == len(prefix) {
		return false
	}
	return !storage.IsBackupName(name)
}

// List returns every configuration on disk, the active one first and the rest
// ordered by display name. A missing directory yields an empty list.
func (m *Manager) List() ([]models.Summary, error) {
	return m.list()
}

// Current returns the active configuration, or nil if the canonical slot is
// empty or unreadable.
func (m *Manager) Current() (*models.Summary, error) {
	summaries, err := m.list()
	if err != nil {
		return nil, err
	}
	return activeOf(summaries), nil
}

func (m *Manager) list() ([]models.Summary, error) {
	files, err := m.store.ListFiles()
	if err != nil {
		if errors.Is(err, models.ErrDirectoryUnavailable) {
			return []models.Summary{}, nil
		}
		return nil, err
	}

	var names []string
	for _, name := range files {
		if IsConfigName(name) {
			names = append(names, name)
		}
	}

	// Each goroutine owns one slot; unreadable files leave theirs nil.
	slots := make([]*models.Summary, len(names))
	var g errgroup.Group
	g.SetLimit(maxConcurrentReads)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			summary, err := m.summarize(name)
			if err != nil {
				log.WithError(err).WithField("file", name).Warn("skipping unreadable configuration")
				return nil
			}
			slots[i] = summary
			return nil
		})
	}
	_ = g.Wait()

	summaries := make([]models.Summary, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			summaries = append(summaries, *s)
		}
	}
	sortSummaries(summaries)
	return summaries, nil
}

// summarize reads one file and derives its summary.
func (m *Manager) summarize(name string) (*models.Summary, error) {
	content, err := m.store.ReadFile(name)
	if err != nil {
		return nil, err
	}
	settings, err := syncpkg.ParseSettings(content)
	if err != nil {
		return nil, models.E(models.KindInvalidStructure, "list", name, err)
	}

	active := name == models.CanonicalName
	var id string
	switch {
	case !active:
		id = strings.TrimPrefix(name, models.CanonicalName+".")
	case settings.Meta != nil:
		id = settings.Meta.ID
	default:
		id = providers.Infer(settings.Env)
	}

	display := providers.DisplayName(id)
	if settings.Meta != nil && settings.Meta.ID == id && settings.Meta.Name != "" {
		display = settings.Meta.Name
	}

	return &models.Summary{
		ID:       id,
		Name:     display,
		File:     name,
		IsActive: active,
		Preview:  syncpkg.PreviewOf(settings.Env),
	}, nil
}

// sortSummaries puts the active configuration first and orders the rest by
// display name, breaking ties on file name so listings are stable.
func sortSummaries(summaries []models.Summary) {
	collator := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.IsActive != b.IsActive {
			return a.IsActive
		}
		if c := collator.CompareString(a.Name, b.Name); c != 0 {
			return c < 0
		}
		return a.File < b.File
	})
}

func activeOf(summaries []models.Summary) *models.Summary {
	for i := range summaries {
		if summaries[i].IsActive {
			s := summaries[i]
			return &s
		}
	}
	return nil
}

// find resolves an id to a summary. The active configuration wins when an
// archived copy with the same id also exists.
func find(summaries []models.Summary, id string) *models.Summary {
	var match *models.Summary
	for i := range summaries {
		if summaries[i].ID != id {
			continue
		}
		if summaries[i].IsActive {
			s := summaries[i]
			return &s
		}
		if match == nil {
			s := summaries[i]
			match = &s
		}
	}
	return match
}
