package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"ccdash/config"
	"ccdash/config/models"
	"ccdash/internal/metrics"
	"ccdash/internal/usage"
	"ccdash/internal/watcher"
)

const (
	kimiSettings = `{"env":{"ANTHROPIC_AUTH_TOKEN":"sk-kimi","ANTHROPIC_BASE_URL":"https://api.moonshot.cn/anthropic","ANTHROPIC_MODEL":"kimi-k2-turbo"}}`
	glmSettings  = `{"env":{"ANTHROPIC_AUTH_TOKEN":"sk-glm","ANTHROPIC_BASE_URL":"https://glm.example.com/api/anthropic","ANTHROPIC_DEFAULT_SONNET_MODEL":"glm-4.6"}}`
)

type testEnv struct {
	server  *Server
	dir     string
	watcher *watcher.Watcher
}

func newTestServer(t *testing.T, files map[string]string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
			t.Fatalf("failed to seed %s: %v", name, err)
		}
	}

	store, err := usage.OpenStore(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	manager := config.NewManager(dir)
	w := watcher.New(dir)
	srv := NewServer(Options{Addr: "127.0.0.1:0", CORSOrigins: []string{"http://localhost:5173"}},
		manager, usage.NewService(nil, store), metrics.New(manager), w)
	return &testEnv{server: srv, dir: dir, watcher: w}
}

type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, response) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)

	var resp response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode %s %s: %v", method, path, err)
		}
	}
	return rec.Code, resp
}

func TestHealth(t *testing.T) {
	env := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestListAndCurrent(t *testing.T) {
	env := newTestServer(t, map[string]string{
		models.CanonicalName:          kimiSettings,
		models.CanonicalName + ".glm": glmSettings,
	})

	code, resp := env.do(t, http.MethodGet, "/api/config/list", "")
	if code != http.StatusOK || !resp.Success {
		t.Fatalf("list failed: %d %+v", code, resp)
	}
	var summaries []models.Summary
	if err := json.Unmarshal(resp.Data, &summaries); err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 || summaries[0].ID != "kimi" || !summaries[0].IsActive {
		t.Errorf("unexpected summaries %+v", summaries)
	}

	code, resp = env.do(t, http.MethodGet, "/api/config/current", "")
	if code != http.StatusOK || !strings.Contains(string(resp.Data), `"id":"kimi"`) {
		t.Errorf("unexpected current response %d %s", code, resp.Data)
	}
}

func TestCurrentWithoutActive(t *testing.T) {
	env := newTestServer(t, map[string]string{models.CanonicalName + ".glm": glmSettings})
	if code, resp := env.do(t, http.MethodGet, "/api/config/current", ""); code != http.StatusNotFound || resp.Success {
		t.Errorf("expected 404, got %d %+v", code, resp)
	}
}

func TestSwitchBumpsVersion(t *testing.T) {
	env := newTestServer(t, map[string]string{
		models.CanonicalName:          kimiSettings,
		models.CanonicalName + ".glm": glmSettings,
	})
	before := env.watcher.Version()

	code, resp := env.do(t, http.MethodPost, "/api/config/switch", `{"configId":"glm"}`)
	if code != http.StatusOK || !resp.Success {
		t.Fatalf("switch failed: %d %+v", code, resp)
	}
	var receipt models.SwitchReceipt
	if err := json.Unmarshal(resp.Data, &receipt); err != nil {
		t.Fatal(err)
	}
	want := models.SwitchReceipt{Previous: "kimi", Current: "glm", BackupCreated: "settings.json.kimi"}
	if receipt != want {
		t.Errorf("expected %+v, got %+v", want, receipt)
	}
	if env.watcher.Version() <= before {
		t.Error("expected version to advance after switch")
	}

	_, resp = env.do(t, http.MethodGet, "/api/config/version", "")
	if !strings.Contains(string(resp.Data), `"version"`) {
		t.Errorf("unexpected version payload %s", resp.Data)
	}
}

func TestErrorStatuses(t *testing.T) {
	files := map[string]string{
		models.CanonicalName:          kimiSettings,
		models.CanonicalName + ".glm": glmSettings,
	}
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown config", http.MethodPost, "/api/config/switch", `{"configId":"nope"}`, http.StatusNotFound},
		{"already active", http.MethodPost, "/api/config/switch", `{"configId":"kimi"}`, http.StatusConflict},
		{"missing id", http.MethodPost, "/api/config/switch", `{}`, http.StatusBadRequest},
		{"bad body", http.MethodPost, "/api/config/switch", `{`, http.StatusBadRequest},
		{"delete active", http.MethodDelete, "/api/config/kimi", "", http.StatusForbidden},
		{"delete unknown", http.MethodDelete, "/api/config/nope", "", http.StatusNotFound},
		{"restore missing", http.MethodPost, "/api/config/backups/restore", `{"backupFile":"settings.json.backup.2020-01-01T00-00-00"}`, http.StatusNotFound},
		{"restore empty", http.MethodPost, "/api/config/backups/restore", `{}`, http.StatusBadRequest},
		{"bad date", http.MethodGet, "/api/usage/dashboard?date=yesterday", "", http.StatusBadRequest},
		{"bad days", http.MethodGet, "/api/usage/statistics?days=-2", "", http.StatusBadRequest},
		{"negative record", http.MethodPost, "/api/usage/records", `{"cost":-1}`, http.StatusBadRequest},
		{"no route", http.MethodGet, "/api/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestServer(t, files)
			code, resp := env.do(t, tt.method, tt.path, tt.body)
			if code != tt.want {
				t.Errorf("expected %d, got %d (%+v)", tt.want, code, resp)
			}
			if resp.Success || resp.Error == "" {
				t.Errorf("expected failure envelope, got %+v", resp)
			}
		})
	}
}

func TestCreateAndDelete(t *testing.T) {
	env := newTestServer(t, map[string]string{models.CanonicalName: kimiSettings})

	body := `{"id":"work","name":"Work","config":{"baseUrl":"https://work.example.com","apiKey":"sk-work","modelType":"single","model":"work-1"}}`
	code, resp := env.do(t, http.MethodPost, "/api/config/create", body)
	if code != http.StatusCreated || !resp.Success {
		t.Fatalf("create failed: %d %+v", code, resp)
	}
	if _, err := os.Stat(filepath.Join(env.dir, "settings.json.work")); err != nil {
		t.Errorf("expected created file: %v", err)
	}

	if code, _ := env.do(t, http.MethodPost, "/api/config/create", body); code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate, got %d", code)
	}

	if code, resp := env.do(t, http.MethodDelete, "/api/config/work", ""); code != http.StatusOK || !resp.Success {
		t.Errorf("delete failed: %d %+v", code, resp)
	}
}

func TestBackupEndpoints(t *testing.T) {
	env := newTestServer(t, map[string]string{models.CanonicalName: kimiSettings})

	code, resp := env.do(t, http.MethodPost, "/api/config/backups", "")
	if code != http.StatusCreated {
		t.Fatalf("backup create failed: %d %+v", code, resp)
	}
	var created struct {
		BackupFile string `json:"backupFile"`
	}
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		t.Fatal(err)
	}

	_, resp = env.do(t, http.MethodGet, "/api/config/backups", "")
	var backups []string
	if err := json.Unmarshal(resp.Data, &backups); err != nil {
		t.Fatal(err)
	}
	if len(backups) != 1 || backups[0] != created.BackupFile {
		t.Errorf("expected [%s], got %v", created.BackupFile, backups)
	}

	code, resp = env.do(t, http.MethodPost, "/api/config/backups/restore", `{"backupFile":"`+created.BackupFile+`"}`)
	if code != http.StatusOK || !resp.Success {
		t.Errorf("restore failed: %d %+v", code, resp)
	}
}

func TestUsageEndpoints(t *testing.T) {
	env := newTestServer(t, nil)

	code, resp := env.do(t, http.MethodPost, "/api/usage/records", `{"project_id":"shop","input_tokens":10,"output_tokens":5,"cost":0.5}`)
	if code != http.StatusCreated || !strings.Contains(string(resp.Data), `"id"`) {
		t.Fatalf("record failed: %d %+v", code, resp)
	}

	code, resp = env.do(t, http.MethodGet, "/api/usage/statistics?days=7", "")
	if code != http.StatusOK || !strings.Contains(string(resp.Data), `"total_tokens":15`) {
		t.Errorf("unexpected statistics %d %s", code, resp.Data)
	}

	code, resp = env.do(t, http.MethodGet, "/api/usage/dashboard", "")
	if code != http.StatusOK || !strings.Contains(string(resp.Data), `"source":"history"`) {
		t.Errorf("unexpected dashboard %d %s", code, resp.Data)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestServer(t, map[string]string{models.CanonicalName: kimiSettings})
	env.do(t, http.MethodPost, "/api/config/switch", `{"configId":"kimi"}`)

	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`ccdash_config_switches_total{result="already_active"} 1`,
		`ccdash_active_configuration{id="kimi"} 1`,
		`ccdash_configurations 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}

func TestCORS(t *testing.T) {
	env := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/config/list", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Errorf("unexpected preflight %d %v", rec.Code, rec.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/config/list", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow origin %q", got)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.E(models.KindSourceMissing, "switch", "x", nil), http.StatusConflict},
		{models.E(models.KindCannotDeleteDefault, "delete", "default", nil), http.StatusForbidden},
		{models.E(models.KindMalformedJSON, "validate", "", nil), http.StatusBadRequest},
		{models.E(models.KindArchiveFailure, "switch", "x", nil), http.StatusInternalServerError},
		{usage.ErrHistoryUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
