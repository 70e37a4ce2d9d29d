// Package store persists score outputs in SQLite, keyed by video and
// ruleset version.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dotcommander/viralscore/internal/scoring"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no score exists for a video and version.
var ErrNotFound = errors.New("score not found")

// Store handles SQLite persistence. All methods are safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Record is one stored score.
type Record struct {
	VideoID    string
	Version    string
	Overall    float64
	Confidence string
	RunID      string
	ScoredAt   time.Time
	Output     json.RawMessage
}

// Decode unmarshals the stored output document.
func (r Record) Decode() (*scoring.Output, error) {
	var out scoring.Output
	if err := json.Unmarshal(r.Output, &out); err != nil {
		return nil, fmt.Errorf("decode stored output for %s: %w", r.VideoID, err)
	}
	return &out, nil
}

// Open opens (or creates) the database at path. ":memory:" is supported.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scores (
		video_id TEXT NOT NULL,
		version TEXT NOT NULL,
		overall REAL NOT NULL,
		confidence TEXT NOT NULL,
		run_id TEXT,
		scored_at TEXT NOT NULL,
		output_json TEXT NOT NULL,
		PRIMARY KEY (video_id, version)
	);

	CREATE INDEX IF NOT EXISTS idx_scores_version_overall ON scores(version, overall DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Save stores outputs in one transaction, replacing any earlier score for
// the same video and version. It returns the number of rows written.
func (s *Store) Save(ctx context.Context, runID string, scoredAt time.Time, outputs ...*scoring.Output) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scores (video_id, version, overall, confidence, run_id, scored_at, output_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(video_id, version) DO UPDATE SET
			overall = excluded.overall,
			confidence = excluded.confidence,
			run_id = excluded.run_id,
			scored_at = excluded.scored_at,
			output_json = excluded.output_json
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	at := scoredAt.UTC().Format(time.RFC3339)
	for _, out := range outputs {
		data, err := json.Marshal(out)
		if err != nil {
			return 0, fmt.Errorf("encode output for %s: %w", out.VideoID, err)
		}
		if _, err := stmt.ExecContext(ctx, out.VideoID, out.Version, out.Overall,
			out.Diagnostics.Confidence, runID, at, string(data)); err != nil {
			return 0, fmt.Errorf("insert score for %s: %w", out.VideoID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(outputs), nil
}

// Get returns the stored score for a video under a ruleset version.
func (s *Store) Get(ctx context.Context, videoID, version string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT video_id, version, overall, confidence, run_id, scored_at, output_json
		FROM scores WHERE video_id = ? AND version = ?
	`, videoID, version)

	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get score %s@%s: %w", videoID, version, err)
	}
	return r, nil
}

// Rank lists scores for a version by overall descending, ties by video id.
// A limit of zero or less returns every row.
func (s *Store) Rank(ctx context.Context, version string, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT video_id, version, overall, confidence, run_id, scored_at, output_json
		FROM scores WHERE version = ?
		ORDER BY overall DESC, video_id ASC
	`
	args := []any{version}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ranking: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ranking: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// Versions lists the ruleset versions with stored scores.
func (s *Store) Versions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT version FROM scores ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var (
		r        Record
		runID    sql.NullString
		scoredAt string
		output   string
	)
	if err := sc.Scan(&r.VideoID, &r.Version, &r.Overall, &r.Confidence, &runID, &scoredAt, &output); err != nil {
		return nil, err
	}
	r.RunID = runID.String
	r.Output = json.RawMessage(output)
	if t, err := time.Parse(time.RFC3339, scoredAt); err == nil {
		r.ScoredAt = t
	}
	return &r, nil
}
