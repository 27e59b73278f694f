// Package report records generator runs in a SQLite database so that
// output sizes can be compared across metadata changes.
package report

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoRuns indicates the database holds no runs.
var ErrNoRuns = errors.New("no runs recorded")

// Output is one generated file.
type Output struct {
	Target string `json:"target"`
	Order  string `json:"order,omitempty"`
	File   string `json:"file"`
	Bytes  int    `json:"bytes"`
}

// Run is one generator invocation.
type Run struct {
	ID      int64
	Time    time.Time
	Source  string
	Stats   json.RawMessage
	Outputs []Output
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		time TEXT NOT NULL,
		source TEXT NOT NULL,
		stats JSON NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS outputs (
		run_id INTEGER NOT NULL REFERENCES runs(id),
		target TEXT NOT NULL,
		byte_order TEXT NOT NULL,
		file TEXT NOT NULL,
		bytes INTEGER NOT NULL
	)`,
}

// Store handles SQLite storage for runs.
type Store struct {
	db *sql.DB
}

// Open opens or creates the report database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	_, err = db.Exec("PRAGMA busy_timeout = 5000")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating tables: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores a run with its outputs and returns the run id. stats is
// stored as JSON.
func (s *Store) Record(source string, stats any, outputs []Output) (int64, error) {
	data, err := json.Marshal(stats)
	if err != nil {
		return 0, fmt.Errorf("marshaling stats: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO runs (time, source, stats) VALUES (?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano), source, string(data))
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, o := range outputs {
		_, err := tx.Exec(`INSERT INTO outputs (run_id, target, byte_order, file, bytes) VALUES (?, ?, ?, ?, ?)`,
			id, o.Target, o.Order, o.File, o.Bytes)
		if err != nil {
			return 0, fmt.Errorf("inserting output: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Latest returns the most recent run.
func (s *Store) Latest() (*Run, error) {
	var r Run
	var ts, stats string
	err := s.db.QueryRow(`SELECT id, time, source, stats FROM runs ORDER BY id DESC LIMIT 1`).
		Scan(&r.ID, &ts, &r.Source, &stats)
	if err == sql.ErrNoRows {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, err
	}
	if r.Time, err = time.Parse(time.RFC3339Nano, ts); err != nil {
		return nil, fmt.Errorf("run %d: bad time %q: %w", r.ID, ts, err)
	}
	r.Stats = json.RawMessage(stats)

	rows, err := s.db.Query(`SELECT target, byte_order, file, bytes FROM outputs WHERE run_id = ? ORDER BY rowid`, r.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var o Output
		if err := rows.Scan(&o.Target, &o.Order, &o.File, &o.Bytes); err != nil {
			return nil, err
		}
		r.Outputs = append(r.Outputs, o)
	}
	return &r, rows.Err()
}

// SizeDelta returns the byte size change of file between the two most
// recent runs that produced it, and false when it was produced fewer than
// twice.
func (s *Store) SizeDelta(file string) (int, bool, error) {
	rows, err := s.db.Query(`SELECT bytes FROM outputs WHERE file = ? ORDER BY run_id DESC LIMIT 2`, file)
	if err != nil {
		return 0, false, err
	}
	defer rows.Close()
	var sizes []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return 0, false, err
		}
		sizes = append(sizes, n)
	}
	if err := rows.Err(); err != nil {
		return 0, false, err
	}
	if len(sizes) < 2 {
		return 0, false, nil
	}
	return sizes[0] - sizes[1], true, nil
}
