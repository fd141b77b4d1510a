// Package sqlite provides the persistent state ledger and run history
// backed by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/vecsync/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to the
// state and run store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.vecsync/data/state.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".vecsync", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "state.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// StateStore returns a StateStore interface backed by this store.
func (s *Store) StateStore() driven.StateStore {
	return &stateStore{store: s}
}

// RunStore returns a RunStore interface backed by this store.
func (s *Store) RunStore() driven.RunStore {
	return &runStore{store: s}
}

func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// stateStore implements driven.StateStore.
//
// Upserts use ON CONFLICT row-level semantics, so concurrent writes for
// different document ids never contend on application-level locks.
type stateStore struct {
	store *Store
}

// Get retrieves the ledger entry for a document.
func (s *stateStore) Get(ctx context.Context, documentID string) (*domain.StateEntry, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT document_id, content_hash, project_id, source_type, status, last_run_id, updated_at
		FROM state_entries WHERE document_id = ?
	`, documentID)

	entry, err := scanStateEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning state entry: %v", domain.ErrStateStore, err)
	}
	return entry, nil
}

// Upsert stores or updates an entry, keyed by DocumentID.
func (s *stateStore) Upsert(ctx context.Context, entry domain.StateEntry) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO state_entries (document_id, content_hash, project_id, source_type, status, last_run_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			content_hash = excluded.content_hash,
			project_id = excluded.project_id,
			source_type = excluded.source_type,
			status = excluded.status,
			last_run_id = excluded.last_run_id,
			updated_at = excluded.updated_at
	`, entry.DocumentID, entry.ContentHash, entry.ProjectID, entry.SourceType,
		string(entry.Status), entry.LastRunID, entry.UpdatedAt)

	if err != nil {
		return fmt.Errorf("%w: upserting state entry: %v", domain.ErrStateStore, err)
	}
	return nil
}

// Tombstone marks an entry as deleted without removing the row.
func (s *stateStore) Tombstone(ctx context.Context, documentID, runID string) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE state_entries
		SET status = ?, last_run_id = ?, updated_at = ?
		WHERE document_id = ?
	`, string(domain.StatusTombstoned), runID, time.Now().UTC(), documentID)

	if err != nil {
		return fmt.Errorf("%w: tombstoning %s: %v", domain.ErrStateStore, documentID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: tombstoning %s: %v", domain.ErrStateStore, documentID, err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns all entries for a (project, source type) pair.
func (s *stateStore) List(ctx context.Context, projectID, sourceType string) ([]domain.StateEntry, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT document_id, content_hash, project_id, source_type, status, last_run_id, updated_at
		FROM state_entries
		WHERE project_id = ? AND source_type = ?
	`, projectID, sourceType)
	if err != nil {
		return nil, fmt.Errorf("%w: listing state entries: %v", domain.ErrStateStore, err)
	}
	defer rows.Close()

	var entries []domain.StateEntry
	for rows.Next() {
		entry, err := scanStateEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning state entry: %v", domain.ErrStateStore, err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating state entries: %v", domain.ErrStateStore, err)
	}
	return entries, nil
}

// Ping verifies the store is reachable.
func (s *stateStore) Ping(ctx context.Context) error {
	if err := s.store.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStateStore, err)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanStateEntry(row scanner) (*domain.StateEntry, error) {
	var (
		entry     domain.StateEntry
		status    string
		updatedAt sql.NullTime
	)
	if err := row.Scan(&entry.DocumentID, &entry.ContentHash, &entry.ProjectID,
		&entry.SourceType, &status, &entry.LastRunID, &updatedAt); err != nil {
		return nil, err
	}
	entry.Status = domain.EntryStatus(status)
	if updatedAt.Valid {
		entry.UpdatedAt = updatedAt.Time
	}
	return &entry, nil
}

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

// SaveRun stores or updates a run report.
func (s *runStore) SaveRun(ctx context.Context, run *domain.PipelineRun) error {
	failures, err := json.Marshal(run.Failures)
	if err != nil {
		return fmt.Errorf("marshalling failures: %w", err)
	}

	var finished any
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (run_id, project_filter, source_filter, status, started_at,
			finished_at, seen, new_count, changed, unchanged, deleted, failed, failures)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			status = excluded.status,
			finished_at = excluded.finished_at,
			seen = excluded.seen,
			new_count = excluded.new_count,
			changed = excluded.changed,
			unchanged = excluded.unchanged,
			deleted = excluded.deleted,
			failed = excluded.failed,
			failures = excluded.failures
	`, run.RunID, run.ProjectFilter, run.SourceFilter, string(run.Status), run.StartedAt,
		finished, run.Counts.Seen, run.Counts.New, run.Counts.Changed, run.Counts.Unchanged,
		run.Counts.Deleted, run.Counts.Failed, string(failures))

	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *runStore) GetRun(ctx context.Context, runID string) (*domain.PipelineRun, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT run_id, project_filter, source_filter, status, started_at, finished_at,
			seen, new_count, changed, unchanged, deleted, failed, failures
		FROM pipeline_runs WHERE run_id = ?
	`, runID)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *runStore) ListRuns(ctx context.Context, limit int) ([]domain.PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT run_id, project_filter, source_filter, status, started_at, finished_at,
			seen, new_count, changed, unchanged, deleted, failed, failures
		FROM pipeline_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.PipelineRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

func scanRun(row scanner) (*domain.PipelineRun, error) {
	var (
		run      domain.PipelineRun
		status   string
		started  sql.NullTime
		finished sql.NullTime
		failures string
	)
	if err := row.Scan(&run.RunID, &run.ProjectFilter, &run.SourceFilter, &status,
		&started, &finished, &run.Counts.Seen, &run.Counts.New, &run.Counts.Changed,
		&run.Counts.Unchanged, &run.Counts.Deleted, &run.Counts.Failed, &failures); err != nil {
		return nil, err
	}
	run.Status = domain.RunStatus(status)
	if started.Valid {
		run.StartedAt = started.Time
	}
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	if failures != "" {
		if err := json.Unmarshal([]byte(failures), &run.Failures); err != nil {
			return nil, err
		}
	}
	return &run, nil
}
