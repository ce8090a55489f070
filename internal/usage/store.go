package usage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// timeLayout stores timestamps as fixed-width UTC text so range queries can
// compare them as strings.
const timeLayout = "2006-01-02T15:04:05.000Z"

// Store persists usage records in sqlite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the usage database at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS usage_records (
			id TEXT PRIMARY KEY,
			project_id TEXT REFERENCES projects(id),
			usage_type TEXT NOT NULL,
			input_tokens INTEGER NOT NULL,
			output_tokens INTEGER NOT NULL,
			cost REAL NOT NULL,
			duration INTEGER NOT NULL DEFAULT 0,
			model_version TEXT,
			created_at TEXT NOT NULL
		)`,
		"CREATE INDEX IF NOT EXISTS idx_usage_records_created_at ON usage_records(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_usage_records_project ON usage_records(project_id)",
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Insert stores a new record and returns its id. An empty id is replaced with
// a fresh UUID and a zero CreatedAt with the current time.
func (s *Store) Insert(ctx context.Context, rec Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := s.save(ctx, []Record{rec}, "INSERT"); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// Upsert stores records, replacing any with the same id. ccusage sessions are
// mirrored this way so the history store can stand in for ccusage later.
func (s *Store) Upsert(ctx context.Context, records []Record) error {
	return s.save(ctx, records, "INSERT OR REPLACE")
}

func (s *Store) save(ctx context.Context, records []Record, verb string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	insertRecord := verb + ` INTO usage_records (
		id, project_id, usage_type, input_tokens, output_tokens, cost, duration, model_version, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, rec := range records {
		if rec.ID == "" {
			return fmt.Errorf("usage record id cannot be empty")
		}
		if rec.UsageType == "" {
			rec.UsageType = "claude_usage"
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}

		var projectID any
		if rec.ProjectID != "" {
			projectID = rec.ProjectID
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO projects (id, name, created_at) VALUES (?, ?, ?)",
				rec.ProjectID, rec.ProjectID, formatTime(now)); err != nil {
				return fmt.Errorf("failed to store project %s: %w", rec.ProjectID, err)
			}
		}

		if _, err := tx.ExecContext(ctx, insertRecord,
			rec.ID, projectID, rec.UsageType, rec.InputTokens, rec.OutputTokens,
			rec.Cost, rec.Duration, rec.ModelVersion, formatTime(rec.CreatedAt)); err != nil {
			return fmt.Errorf("failed to store usage record %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit usage records: %w", err)
	}
	return nil
}

// Statistics totals records created in [from, to).
func (s *Store) Statistics(ctx context.Context, from, to time.Time) (Statistics, error) {
	var stats Statistics
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(input_tokens), 0),
			COALESCE(SUM(output_tokens), 0),
			COALESCE(SUM(cost), 0),
			COALESCE(AVG(duration), 0)
		FROM usage_records
		WHERE created_at >= ? AND created_at < ?`,
		formatTime(from), formatTime(to))
	if err := row.Scan(&stats.SessionCount, &stats.TotalInputTokens, &stats.TotalOutputTokens,
		&stats.TotalCost, &stats.AverageDuration); err != nil {
		return Statistics{}, fmt.Errorf("failed to query usage statistics: %w", err)
	}
	stats.TotalTokens = stats.TotalInputTokens + stats.TotalOutputTokens
	return stats, nil
}

// Recent returns the newest records.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(project_id, ''), usage_type, input_tokens, output_tokens,
			cost, duration, COALESCE(model_version, ''), created_at
		FROM usage_records
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent usage: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var rec Record
		var created string
		if err := rows.Scan(&rec.ID, &rec.ProjectID, &rec.UsageType, &rec.InputTokens,
			&rec.OutputTokens, &rec.Cost, &rec.Duration, &rec.ModelVersion, &created); err != nil {
			return nil, fmt.Errorf("failed to scan usage record: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(timeLayout, created)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// TopProjects ranks projects by cost over records created since since.
func (s *Store) TopProjects(ctx context.Context, since time.Time, limit int) ([]ProjectUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			ur.project_id,
			COALESCE(p.name, ur.project_id),
			SUM(ur.cost) AS total_cost,
			SUM(ur.input_tokens + ur.output_tokens)
		FROM usage_records ur
		LEFT JOIN projects p ON ur.project_id = p.id
		WHERE ur.project_id IS NOT NULL AND ur.created_at >= ?
		GROUP BY ur.project_id, p.name
		ORDER BY total_cost DESC
		LIMIT ?`, formatTime(since), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top projects: %w", err)
	}
	defer rows.Close()

	projects := []ProjectUsage{}
	for rows.Next() {
		var p ProjectUsage
		if err := rows.Scan(&p.ProjectID, &p.ProjectName, &p.TotalCost, &p.TotalTokens); err != nil {
			return nil, fmt.Errorf("failed to scan project usage: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
