// Package store handles SQLite persistence of exercise history.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/tuinote/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout is fixed width so that TEXT comparison matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for session data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			key_name TEXT NOT NULL,
			clef TEXT NOT NULL,
			length INTEGER NOT NULL,
			policy TEXT NOT NULL,
			correct INTEGER NOT NULL,
			attempted INTEGER NOT NULL,
			accuracy REAL NOT NULL,
			duration_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_note_stats (
			session_id INTEGER NOT NULL,
			pitch INTEGER NOT NULL,
			name TEXT NOT NULL,
			correct INTEGER NOT NULL,
			incorrect INTEGER NOT NULL,
			latency_sum_ms INTEGER NOT NULL,
			latency_count INTEGER NOT NULL,
			PRIMARY KEY (session_id, pitch)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_session_note_stats_pitch ON session_note_stats(pitch);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSession stores a completed exercise and its per-note stats.
func (s *Store) InsertSession(ctx context.Context, stats model.SessionStats, notes []model.NoteStats) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (started_at, ended_at, key_name, clef, length, policy, correct, attempted, accuracy, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stats.StartedAt.UTC().Format(timeLayout),
		stats.EndedAt.UTC().Format(timeLayout),
		stats.Key,
		stats.Clef,
		stats.Length,
		stats.Policy,
		stats.Correct,
		stats.Attempted,
		stats.Accuracy,
		stats.DurationMs,
	)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(notes) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO session_note_stats (session_id, pitch, name, correct, incorrect, latency_sum_ms, latency_count)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, ns := range notes {
			if _, err = stmt.ExecContext(ctx, id, ns.Pitch, ns.Name, ns.Correct, ns.Incorrect, ns.LatencySumMs, ns.LatencyCount); err != nil {
				return 0, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// GetWeakNotes aggregates note stats over the most recent sessions.
func (s *Store) GetWeakNotes(ctx context.Context, window int, key string) ([]model.NoteAggregate, error) {
	if window <= 0 {
		return nil, nil
	}
	query := `WITH recent_sessions AS (
		SELECT id FROM sessions
		WHERE (? = '' OR key_name = ?)
		ORDER BY ended_at DESC, id DESC
		LIMIT ?
	)
	SELECT ns.pitch, SUM(ns.correct), SUM(ns.incorrect), SUM(ns.latency_sum_ms), SUM(ns.latency_count)
	FROM session_note_stats ns
	JOIN recent_sessions r ON r.id = ns.session_id
	GROUP BY ns.pitch`
	rows, err := s.db.QueryContext(ctx, query, key, key, window)
	if err != nil {
		return nil, err
	}
	return scanNoteAggregates(rows)
}

// ListSessions returns session aggregates filtered by stats config.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Key != "" {
		clauses = append(clauses, "key_name = ?")
		args = append(args, cfg.Key)
	}
	if cfg.Clef != "" {
		clauses = append(clauses, "clef = ?")
		args = append(args, cfg.Clef)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.UTC().Format(timeLayout))
	}
	query := fmt.Sprintf(`SELECT id, ended_at, key_name, clef, correct, attempted, accuracy, duration_ms
		FROM sessions
		WHERE %s
		ORDER BY ended_at ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var sessions []model.SessionAggregate
	for rows.Next() {
		var agg model.SessionAggregate
		var endedAt string
		if err := rows.Scan(&agg.SessionID, &endedAt, &agg.Key, &agg.Clef, &agg.Correct, &agg.Attempted, &agg.Accuracy, &agg.DurationMs); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(timeLayout, endedAt)
		if err != nil {
			return nil, err
		}
		agg.EndedAt = parsed
		sessions = append(sessions, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListRecords returns the full history as (accuracy, seconds) records in
// completion order.
func (s *Store) ListRecords(ctx context.Context) ([]model.SessionRecord, error) {
	sessions, err := s.ListSessions(ctx, model.StatsConfig{})
	if err != nil {
		return nil, err
	}
	records := make([]model.SessionRecord, len(sessions))
	for i, sess := range sessions {
		records[i] = model.SessionRecord{
			Accuracy: sess.Accuracy,
			Seconds:  float64(sess.DurationMs) / 1000,
		}
	}
	return records, nil
}

// ListNoteAggregatesForSessions aggregates per-note stats across sessions.
func (s *Store) ListNoteAggregatesForSessions(ctx context.Context, sessionIDs []int64) ([]model.NoteAggregate, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(sessionIDs))
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT pitch, SUM(correct), SUM(incorrect), SUM(latency_sum_ms), SUM(latency_count)
		FROM session_note_stats
		WHERE session_id IN (%s)
		GROUP BY pitch`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanNoteAggregates(rows)
}

func scanNoteAggregates(rows *sql.Rows) ([]model.NoteAggregate, error) {
	defer closeRows(rows)
	var result []model.NoteAggregate
	for rows.Next() {
		var agg model.NoteAggregate
		if err := rows.Scan(&agg.Pitch, &agg.Correct, &agg.Incorrect, &agg.LatencySumMs, &agg.LatencyCount); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func closeRows(rows *sql.Rows) {
	if cerr := rows.Close(); cerr != nil {
		// Best-effort rows close.
		_ = cerr
	}
}
