package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists fetch history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so the history endpoint can read while a refresh sweep writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS fetch_history (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			fetched_at INTEGER NOT NULL,
			name       TEXT NOT NULL,
			code       TEXT,
			source     TEXT,
			current    REAL,
			high_value REAL,
			high_date  TEXT,
			low_value  REAL,
			low_date   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fetch_name_ts ON fetch_history(name, fetched_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordFetch(rec *FetchRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fetchedAt := rec.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}
	m := rec.Metrics
	_, err := r.db.Exec(`INSERT INTO fetch_history
		(fetched_at, name, code, source, current, high_value, high_date, low_value, low_date)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		fetchedAt.Unix(), rec.Name, rec.Code, rec.Source,
		m.Current, m.HighValue, m.HighDate.Format("2006-01-02"),
		m.LowValue, m.LowDate.Format("2006-01-02"),
	)
	return err
}

// Recent returns the latest records for an index, newest first.
func (r *SQLiteRecorder) Recent(name string, limit int) ([]FetchRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`SELECT fetched_at, name, code, source, current,
			high_value, high_date, low_value, low_date
		FROM fetch_history WHERE name = ? ORDER BY fetched_at DESC LIMIT ?`,
		name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FetchRecord
	for rows.Next() {
		var rec FetchRecord
		var ts int64
		var highDate, lowDate string
		if err := rows.Scan(&ts, &rec.Name, &rec.Code, &rec.Source, &rec.Metrics.Current,
			&rec.Metrics.HighValue, &highDate, &rec.Metrics.LowValue, &lowDate); err != nil {
			return nil, err
		}
		rec.FetchedAt = time.Unix(ts, 0)
		rec.Metrics.Source = rec.Source
		rec.Metrics.HighDate, _ = time.Parse("2006-01-02", highDate)
		rec.Metrics.LowDate, _ = time.Parse("2006-01-02", lowDate)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
