package tui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ccdash/config"
	"ccdash/config/models"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	kimiSettings = `{"env":{"ANTHROPIC_AUTH_TOKEN":"sk-kimi","ANTHROPIC_BASE_URL":"https://api.moonshot.cn/anthropic","ANTHROPIC_MODEL":"kimi-k2-turbo"}}`
	glmSettings  = `{"env":{"ANTHROPIC_AUTH_TOKEN":"sk-glm","ANTHROPIC_BASE_URL":"https://glm.example.com/api/anthropic","ANTHROPIC_DEFAULT_SONNET_MODEL":"glm-4.6"}}`
)

// setupTestModel returns a model over kimi (active) and glm, already loaded.
func setupTestModel(t *testing.T) (Model, string) {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		models.CanonicalName:          kimiSettings,
		models.CanonicalName + ".glm": glmSettings,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}

	manager := config.NewManager(dir)
	m := NewModel(manager, nil)
	m = update(t, m, loadConfigs(manager)())
	return m, dir
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// press sends a key and runs the resulting command, feeding its message back.
func press(t *testing.T, m Model, k tea.KeyMsg) Model {
	t.Helper()
	next, cmd := m.Update(k)
	m = next.(Model)
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			break
		}
		if _, isBatch := msg.(tea.BatchMsg); isBatch {
			break
		}
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var enter = tea.KeyMsg{Type: tea.KeyEnter}

func TestLoadShowsActiveFirst(t *testing.T) {
	m, _ := setupTestModel(t)
	if len(m.summaries) != 2 || !m.summaries[0].IsActive || m.summaries[0].ID != "kimi" {
		t.Fatalf("Unexpected summaries %+v", m.summaries)
	}
	view := m.View()
	for _, want := range []string{"Kimi (kimi)", "GLM (glm)", "kimi-k2-turbo", "glm-4.6", "api.moonshot.cn"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected %q in main view", want)
		}
	}
}

func TestNavigation(t *testing.T) {
	m, _ := setupTestModel(t)

	tests := []struct {
		key  tea.KeyMsg
		want int
	}{
		{runes("j"), 1},
		{runes("j"), 1},
		{runes("k"), 0},
		{runes("G"), 1},
		{runes("g"), 0},
	}
	for i, tt := range tests {
		m = press(t, m, tt.key)
		if m.cursor != tt.want {
			t.Errorf("step %d: cursor = %d, want %d", i, m.cursor, tt.want)
		}
	}
}

func TestEnterSwitches(t *testing.T) {
	m, dir := setupTestModel(t)

	m = press(t, m, runes("j"))
	m = press(t, m, enter)

	if m.errorMsg != "" {
		t.Fatalf("Unexpected error %q", m.errorMsg)
	}
	if !strings.Contains(m.message, "kimi → glm") {
		t.Errorf("Unexpected message %q", m.message)
	}
	if m.busy {
		t.Error("Expected busy to clear after switch")
	}
	if m.summaries[0].ID != "glm" || !m.summaries[0].IsActive {
		t.Errorf("Expected glm active after reload, got %+v", m.summaries)
	}
	if _, err := os.Stat(filepath.Join(dir, "settings.json.kimi")); err != nil {
		t.Errorf("Expected kimi archived: %v", err)
	}
}

func TestEnterOnActiveIsNoop(t *testing.T) {
	m, _ := setupTestModel(t)
	m = press(t, m, enter)
	if !strings.Contains(m.message, "already active") {
		t.Errorf("Unexpected message %q", m.message)
	}
}

func TestBackupKey(t *testing.T) {
	m, dir := setupTestModel(t)
	m = press(t, m, runes("b"))

	if !strings.HasPrefix(m.message, "Backup created: settings.json.backup.") {
		t.Errorf("Unexpected message %q", m.message)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "settings.json.backup.*"))
	if len(matches) != 1 {
		t.Errorf("Expected one backup file, got %v", matches)
	}
}

func TestDeleteFlow(t *testing.T) {
	m, dir := setupTestModel(t)

	// The active configuration is refused.
	m = press(t, m, runes("d"))
	if m.viewState != ViewDelete {
		t.Fatalf("Expected delete dialog, got %v", m.viewState)
	}
	if !strings.Contains(m.View(), "cannot be deleted") {
		t.Error("Expected active warning in dialog")
	}
	m = press(t, m, runes("y"))
	if m.viewState != ViewMain || m.errorMsg == "" {
		t.Errorf("Expected error after deleting active, got view %v err %q", m.viewState, m.errorMsg)
	}

	// Cancel leaves the file alone.
	m = press(t, m, runes("j"))
	m = press(t, m, runes("d"))
	m = press(t, m, runes("n"))
	if _, err := os.Stat(filepath.Join(dir, "settings.json.glm")); err != nil {
		t.Fatalf("Cancel should keep the file: %v", err)
	}

	m = press(t, m, runes("d"))
	m = press(t, m, runes("y"))
	if m.message != "Configuration deleted: glm" || len(m.summaries) != 1 {
		t.Errorf("Unexpected state after delete: %q %+v", m.message, m.summaries)
	}
	if m.cursor != 0 {
		t.Errorf("Expected cursor clamped to 0, got %d", m.cursor)
	}
}

func TestCopyBaseURL(t *testing.T) {
	m, _ := setupTestModel(t)
	var copied string
	m.clip = func(s string) error { copied = s; return nil }

	m = press(t, m, runes("c"))
	if copied != "https://api.moonshot.cn/anthropic" {
		t.Errorf("Copied %q", copied)
	}
	if !strings.HasPrefix(m.message, "Copied ") {
		t.Errorf("Unexpected message %q", m.message)
	}

	m.clip = func(string) error { return errors.New("no display") }
	m = press(t, m, runes("c"))
	if !strings.Contains(m.errorMsg, "no display") {
		t.Errorf("Unexpected error %q", m.errorMsg)
	}
}

func TestAddForm(t *testing.T) {
	m, dir := setupTestModel(t)

	m = press(t, m, runes("a"))
	if m.viewState != ViewAdd {
		t.Fatalf("Expected add form, got %v", m.viewState)
	}

	// Submitting an empty form reports the first problem and stays open.
	m = press(t, m, enter)
	if m.viewState != ViewAdd || m.errorMsg == "" {
		t.Fatalf("Expected validation error, got view %v err %q", m.viewState, m.errorMsg)
	}

	values := map[int]string{
		FormFieldID:      "work",
		FormFieldName:    "Work",
		FormFieldBaseURL: "https://work.example.com",
		FormFieldAPIKey:  "sk-work",
		FormFieldModel:   "work-1",
	}
	for i, v := range values {
		m.formInputs[i].SetValue(v)
	}
	m = press(t, m, enter)

	if m.viewState != ViewMain || m.message != "Configuration added: work" {
		t.Errorf("Unexpected state view %v message %q err %q", m.viewState, m.message, m.errorMsg)
	}
	if _, err := os.Stat(filepath.Join(dir, "settings.json.work")); err != nil {
		t.Errorf("Expected new file: %v", err)
	}
	if len(m.summaries) != 3 {
		t.Errorf("Expected 3 configurations, got %d", len(m.summaries))
	}
}

func TestHelpToggle(t *testing.T) {
	m, _ := setupTestModel(t)
	m = press(t, m, runes("?"))
	if m.viewState != ViewHelp || !strings.Contains(m.View(), "copy base URL") {
		t.Fatalf("Expected full help view")
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.viewState != ViewMain {
		t.Errorf("Expected main view after esc, got %v", m.viewState)
	}
}

func TestDirChangedReloads(t *testing.T) {
	m, dir := setupTestModel(t)
	if err := os.WriteFile(filepath.Join(dir, "settings.json.extra"), []byte(glmSettings), 0600); err != nil {
		t.Fatal(err)
	}

	_, cmd := m.Update(DirChangedMsg{Version: 2})
	if cmd == nil {
		t.Fatal("Expected reload command")
	}
	m = update(t, m, loadConfigs(m.manager)())
	if len(m.summaries) != 3 {
		t.Errorf("Expected 3 configurations after reload, got %d", len(m.summaries))
	}
}

func TestWaitForChange(t *testing.T) {
	if waitForChange(nil) != nil {
		t.Error("Expected no command without a watcher")
	}
	ch := make(chan int64, 1)
	ch <- 7
	if msg, ok := waitForChange(ch)().(DirChangedMsg); !ok || msg.Version != 7 {
		t.Errorf("Unexpected message %#v", msg)
	}
	close(ch)
	if msg := waitForChange(ch)(); msg != nil {
		t.Errorf("Expected nil after close, got %#v", msg)
	}
}

func TestQuit(t *testing.T) {
	m, _ := setupTestModel(t)
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
}
