// Package history persists collection sessions so past runs can be
// summarized without re-scanning the results tree.
package history

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// Session statuses.
const (
	StatusClean      = "clean"      // every benchmark within threshold
	StatusUnresolved = "unresolved" // variance residue after all retries
	StatusFailed     = "failed"     // infrastructure failure
)

// SessionRecord is one version's collection session.
type SessionRecord struct {
	ID         int64
	Version    string
	StartedAt  time.Time
	ReportPath string
	Retries    int
	Status     string
	Unresolved []string
}

// Measurement is the final per-benchmark variance outcome of a session.
type Measurement struct {
	Name     string
	Samples  int
	Mean     float64
	CV       float64
	Category string
}

// VersionSummary aggregates the most recent session per version.
type VersionSummary struct {
	Version    string
	Sessions   int
	LastStatus string
	LastRun    time.Time
	ReportPath string
	Unresolved int
}

// Store records collection sessions in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the history database at path.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		version TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		report_path TEXT NOT NULL,
		retries INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		unresolved TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS measurements (
		session_id INTEGER NOT NULL REFERENCES sessions(id),
		name TEXT NOT NULL,
		samples INTEGER NOT NULL,
		mean REAL NOT NULL,
		cv REAL NOT NULL,
		category TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_version ON sessions(version, started_at);
	`
	_, err := s.db.Exec(query)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordSession saves a completed session and its final measurements.
func (s *Store) RecordSession(rec SessionRecord, measurements []Measurement) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.Exec(
		`INSERT INTO sessions (version, started_at, report_path, retries, status, unresolved) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Version, rec.StartedAt, rec.ReportPath, rec.Retries, rec.Status, strings.Join(rec.Unresolved, "\n"),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, m := range measurements {
		if _, err := tx.Exec(
			`INSERT INTO measurements (session_id, name, samples, mean, cv, category) VALUES (?, ?, ?, ?, ?, ?)`,
			id, m.Name, m.Samples, m.Mean, m.CV, m.Category,
		); err != nil {
			return 0, fmt.Errorf("failed to insert measurement %s: %w", m.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// LatestSessions returns the most recent sessions for a version, newest
// first.
func (s *Store) LatestSessions(version string, limit int) ([]SessionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, version, started_at, report_path, retries, status, unresolved
		 FROM sessions WHERE version = ? ORDER BY started_at DESC LIMIT ?`,
		version, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSessions(rows)
}

// Measurements returns a session's final per-benchmark outcomes sorted by
// name.
func (s *Store) Measurements(sessionID int64) ([]Measurement, error) {
	rows, err := s.db.Query(
		`SELECT name, samples, mean, cv, category FROM measurements WHERE session_id = ? ORDER BY name`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Measurement
	for rows.Next() {
		var m Measurement
		if err := rows.Scan(&m.Name, &m.Samples, &m.Mean, &m.CV, &m.Category); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Summary aggregates the latest session per version.
func (s *Store) Summary() ([]VersionSummary, error) {
	rows, err := s.db.Query(
		`SELECT version, COUNT(*) AS sessions FROM sessions GROUP BY version ORDER BY version`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []VersionSummary
	for rows.Next() {
		var vs VersionSummary
		if err := rows.Scan(&vs.Version, &vs.Sessions); err != nil {
			return nil, err
		}
		summaries = append(summaries, vs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range summaries {
		latest, err := s.LatestSessions(summaries[i].Version, 1)
		if err != nil {
			return nil, err
		}
		if len(latest) > 0 {
			summaries[i].LastStatus = latest[0].Status
			summaries[i].LastRun = latest[0].StartedAt
			summaries[i].ReportPath = latest[0].ReportPath
			summaries[i].Unresolved = len(latest[0].Unresolved)
		}
	}

	return summaries, nil
}

func scanSessions(rows *sql.Rows) ([]SessionRecord, error) {
	var out []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var unresolved string
		if err := rows.Scan(&rec.ID, &rec.Version, &rec.StartedAt, &rec.ReportPath, &rec.Retries, &rec.Status, &unresolved); err != nil {
			return nil, err
		}
		if unresolved != "" {
			rec.Unresolved = strings.Split(unresolved, "\n")
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
