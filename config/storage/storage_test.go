package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ccdash/config/models"
)

type validatorFunc func([]byte) error

func (f validatorFunc) Validate(content []byte) error { return f(content) }

func acceptAll() Validator {
	return validatorFunc(func([]byte) error { return nil })
}

func TestStoreRejectsPathNames(t *testing.T) {
	store := NewStore(t.TempDir())

	for _, name := range []string{"", ".", "..", "../settings.json", `sub\settings.json`, "sub/settings.json"} {
		if _, err := store.ReadFile(name); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("ReadFile(%q) = %v, want not found", name, err)
		}
		if err := store.WriteFile(name, []byte("{}")); models.KindOf(err) != models.KindWriteFailure {
			t.Errorf("WriteFile(%q) = %v, want write failure", name, err)
		}
		if store.FileExists(name) {
			t.Errorf("FileExists(%q) = true", name)
		}
	}
}

func TestStoreListFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	for _, name := range []string{"settings.json.b", "settings.json", "settings.json.a"} {
		if err := store.WriteFile(name, []byte("{}")); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "settings.json.dir"), 0755); err != nil {
		t.Fatal(err)
	}

	names, err := store.ListFiles()
	if err != nil {
		t.Fatalf("ListFiles() error: %v", err)
	}
	want := []string{"settings.json", "settings.json.a", "settings.json.b"}
	if len(names) != len(want) {
		t.Fatalf("ListFiles() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("ListFiles()[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	missing := NewStore(filepath.Join(dir, "missing"))
	if _, err := missing.ListFiles(); !errors.Is(err, models.ErrDirectoryUnavailable) {
		t.Errorf("Expected directory unavailable, got %v", err)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if err := store.WriteFileAtomic(models.CanonicalName, []byte(`{"env":{}}`)); err != nil {
		t.Fatalf("WriteFileAtomic() error: %v", err)
	}
	if err := store.WriteFileAtomic(models.CanonicalName, []byte(`{"env":{"A":"1"}}`)); err != nil {
		t.Fatalf("WriteFileAtomic() error: %v", err)
	}

	data, err := store.ReadFile(models.CanonicalName)
	if err != nil || string(data) != `{"env":{"A":"1"}}` {
		t.Errorf("ReadFile() = %q, %v", data, err)
	}
	info, err := os.Stat(store.Path(models.CanonicalName))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected 0600 permissions, got %v", info.Mode().Perm())
	}

	names, _ := store.ListFiles()
	if len(names) != 1 {
		t.Errorf("Expected temp files cleaned up, got %v", names)
	}
}

func TestDeleteFile(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.DeleteFile("settings.json.gone"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("DeleteFile() of missing file = %v, want not found", err)
	}
}

func TestIsBackupName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"settings.json.backup.2024-01-02T03-04-05", true},
		{"settings.json.backup.2024-01-02T03-04-05-001", true},
		{"settings.json.backup.", false},
		{"settings.json.kimi", false},
		{"settings.json", false},
		{"notes.backup.2024", false},
	}
	for _, tt := range tests {
		if got := IsBackupName(tt.name); got != tt.want {
			t.Errorf("IsBackupName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestBackupSameSecondGetsSuffix(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.WriteFile(models.CanonicalName, []byte(`{"env":{}}`)); err != nil {
		t.Fatal(err)
	}

	bm := NewBackupManager(store, acceptAll())
	fixed := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	bm.SetClock(func() time.Time { return fixed })

	var names []string
	for i := 0; i < 12; i++ {
		name, err := bm.CreateBackup()
		if err != nil {
			t.Fatalf("CreateBackup() error: %v", err)
		}
		names = append(names, name)
	}

	want := map[int]string{
		0:  "settings.json.backup.2024-05-06T07-08-09",
		1:  "settings.json.backup.2024-05-06T07-08-09-001",
		9:  "settings.json.backup.2024-05-06T07-08-09-009",
		10: "settings.json.backup.2024-05-06T07-08-09-010",
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("backup %d = %q, want %q", i, names[i], name)
		}
	}

	// Listing is newest first, i.e. exactly creation order reversed.
	listed, err := bm.ListBackups()
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != len(names) {
		t.Fatalf("Expected %d backups, got %v", len(names), listed)
	}
	for i := range listed {
		if listed[i] != names[len(names)-1-i] {
			t.Errorf("listed[%d] = %q, want %q", i, listed[i], names[len(names)-1-i])
		}
	}

	removed, err := bm.Prune(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 2 || removed[0] != names[1] || removed[1] != names[0] {
		t.Errorf("Prune(10) removed %v, want the two oldest", removed)
	}
}

func TestBackupWithoutCanonical(t *testing.T) {
	bm := NewBackupManager(NewStore(t.TempDir()), acceptAll())
	name, err := bm.CreateBackup()
	if err != nil || name != models.NoBackup {
		t.Errorf("CreateBackup() = %q, %v; want %q", name, err, models.NoBackup)
	}

	missing := NewBackupManager(NewStore(filepath.Join(t.TempDir(), "missing")), acceptAll())
	backups, err := missing.ListBackups()
	if err != nil || len(backups) != 0 {
		t.Errorf("ListBackups() on missing dir = %v, %v", backups, err)
	}
}

func TestRestoreRejectsInvalidBackup(t *testing.T) {
	store := NewStore(t.TempDir())
	name := "settings.json.backup.2024-01-01T00-00-00"
	if err := store.WriteFile(name, []byte(`not json`)); err != nil {
		t.Fatal(err)
	}
	if err := store.WriteFile(models.CanonicalName, []byte(`{"env":{}}`)); err != nil {
		t.Fatal(err)
	}

	bm := NewBackupManager(store, validatorFunc(func([]byte) error { return errors.New("malformed") }))
	if _, err := bm.RestoreBackup(name); models.KindOf(err) != models.KindConfigInvalid {
		t.Errorf("RestoreBackup() = %v, want config invalid", err)
	}

	data, _ := store.ReadFile(models.CanonicalName)
	if string(data) != `{"env":{}}` {
		t.Errorf("Canonical file changed to %q", data)
	}
	backups, _ := bm.ListBackups()
	if len(backups) != 1 {
		t.Errorf("Expected no safety backup, got %v", backups)
	}
}

func TestPrune(t *testing.T) {
	store := NewStore(t.TempDir())
	for _, ts := range []string{"2024-01-01T00-00-00", "2024-01-02T00-00-00", "2024-01-03T00-00-00"} {
		if err := store.WriteFile(models.CanonicalName+models.BackupInfix+ts, []byte(`{}`)); err != nil {
			t.Fatal(err)
		}
	}
	bm := NewBackupManager(store, acceptAll())

	if removed, err := bm.Prune(0); err != nil || len(removed) != 0 {
		t.Errorf("Prune(0) = %v, %v; want nothing removed", removed, err)
	}

	removed, err := bm.Prune(1)
	if err != nil {
		t.Fatalf("Prune(1) error: %v", err)
	}
	if len(removed) != 2 || removed[1] != "settings.json.backup.2024-01-01T00-00-00" {
		t.Errorf("Prune(1) removed %v", removed)
	}
	left, _ := bm.ListBackups()
	if len(left) != 1 || left[0] != "settings.json.backup.2024-01-03T00-00-00" {
		t.Errorf("Expected newest backup kept, got %v", left)
	}
}
