// Package journal persists processing outcomes in a SQLite database.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/brianly1003/sfpoll/internal/domain"
	"github.com/brianly1003/sfpoll/internal/domain/ports"
	"github.com/brianly1003/sfpoll/internal/sync"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const schemaVersion = 1

// Journal implements the ProcessingRecorder port on top of SQLite.
type Journal struct {
	db     *sql.DB
	dbPath string

	mu     sync.RWMutex
	closed bool

	stmtInsert *sql.Stmt
}

var _ ports.ProcessingRecorder = (*Journal)(nil)

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000", // a second sfpoll may read history concurrently
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			log.Warn().Err(err).Str("pragma", pragma).Msg("failed to set pragma")
		}
	}

	j := &Journal{db: db, dbPath: path}

	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	j.stmtInsert, err = db.Prepare(`
		INSERT INTO processing_records
			(cycle_id, path, outcome, outputs, deleted, error, duration_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return j, nil
}

// initSchema creates the schema if the database is new.
func (j *Journal) initSchema() error {
	var currentVersion int
	err := j.db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&currentVersion)
	if err != nil && err != sql.ErrNoRows {
		// Table might not exist
		currentVersion = 0
	}

	if currentVersion >= schemaVersion {
		return nil
	}

	log.Debug().Int("current", currentVersion).Int("target", schemaVersion).Str("path", j.dbPath).Msg("creating journal schema")

	schema := `
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT
		);

		CREATE TABLE IF NOT EXISTS processing_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id TEXT NOT NULL,
			path TEXT NOT NULL,
			outcome TEXT NOT NULL,
			outputs TEXT NOT NULL DEFAULT '[]',
			deleted INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0,
			recorded_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_records_path ON processing_records(path);
		CREATE INDEX IF NOT EXISTS idx_records_outcome ON processing_records(outcome);
	`
	if _, err := j.db.Exec(schema); err != nil {
		return err
	}

	_, err = j.db.Exec(
		"INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)",
		fmt.Sprint(schemaVersion),
	)
	return err
}

// Path returns the database file path.
func (j *Journal) Path() string {
	return j.dbPath
}

// Record stores one processing outcome.
func (j *Journal) Record(ctx context.Context, rec domain.ProcessingRecord) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return domain.ErrJournalClosed
	}

	outputs := rec.Outputs
	if outputs == nil {
		outputs = []string{}
	}
	encoded, err := json.Marshal(outputs)
	if err != nil {
		return fmt.Errorf("encode outputs: %w", err)
	}

	recordedAt := rec.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	_, err = j.stmtInsert.ExecContext(ctx,
		rec.CycleID,
		rec.Path,
		string(rec.Outcome),
		string(encoded),
		rec.Deleted,
		rec.Error,
		rec.Duration.Milliseconds(),
		recordedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Query filters the records returned by Recent.
type Query struct {
	Limit   int
	Outcome domain.Outcome // empty for all outcomes
	Path    string         // exact input path, empty for all
}

// Recent returns the newest records first.
func (j *Journal) Recent(ctx context.Context, q Query) ([]domain.ProcessingRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, domain.ErrJournalClosed
	}

	query := `SELECT cycle_id, path, outcome, outputs, deleted, error, duration_ms, recorded_at
		FROM processing_records WHERE 1=1`
	var args []any
	if q.Outcome != "" {
		query += " AND outcome = ?"
		args = append(args, string(q.Outcome))
	}
	if q.Path != "" {
		query += " AND path = ?"
		args = append(args, q.Path)
	}
	query += " ORDER BY id DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []domain.ProcessingRecord
	for rows.Next() {
		var (
			rec        domain.ProcessingRecord
			outcome    string
			outputs    string
			durationMS int64
			recordedAt int64
		)
		if err := rows.Scan(&rec.CycleID, &rec.Path, &outcome, &outputs, &rec.Deleted, &rec.Error, &durationMS, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Outcome = domain.Outcome(outcome)
		if err := json.Unmarshal([]byte(outputs), &rec.Outputs); err != nil {
			log.Warn().Err(err).Str("path", rec.Path).Msg("corrupt outputs column")
		}
		if len(rec.Outputs) == 0 {
			rec.Outputs = nil
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.RecordedAt = time.UnixMilli(recordedAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Summary returns the number of records per outcome.
func (j *Journal) Summary(ctx context.Context) (map[domain.Outcome]int64, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, domain.ErrJournalClosed
	}

	rows, err := j.db.QueryContext(ctx, "SELECT outcome, COUNT(*) FROM processing_records GROUP BY outcome")
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	summary := make(map[domain.Outcome]int64)
	for rows.Next() {
		var outcome string
		var count int64
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summary[domain.Outcome(outcome)] = count
	}
	return summary, rows.Err()
}

// Close closes the database. Further calls return ErrJournalClosed.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true

	if j.stmtInsert != nil {
		j.stmtInsert.Close()
	}
	return j.db.Close()
}
