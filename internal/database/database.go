// Package database keeps an offline snapshot of the accident list in SQLite
// so the map can still be served when the API is unreachable.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/acmap/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNoSnapshot is returned when no snapshot has been saved yet
var ErrNoSnapshot = errors.New("no accident snapshot saved")

// DB is the snapshot repository
type DB struct {
	db *sql.DB
}

// New opens (or creates) the snapshot database at path
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	d := &DB{db: db}
	if err := d.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return d, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS accidents (
			position INTEGER PRIMARY KEY,
			date TEXT,
			operator TEXT NOT NULL,
			aircraft_type TEXT NOT NULL,
			fatalities INTEGER NOT NULL,
			data TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			saved_at TIMESTAMP NOT NULL,
			count INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accidents_operator ON accidents(operator)`,
		`CREATE INDEX IF NOT EXISTS idx_accidents_date ON accidents(date)`,
	}

	for _, stmt := range statements {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// SaveSnapshot replaces the stored accident list in a single transaction.
// Input order is preserved.
func (d *DB) SaveSnapshot(ctx context.Context, accidents []model.Accident) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM accidents`); err != nil {
		return fmt.Errorf("failed to clear accidents: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO accidents (
		position, date, operator, aircraft_type, fatalities, data
	) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, a := range accidents {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("failed to encode accident %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, i, a.Date.String(), a.Operator, a.AircraftType, a.Fatalities, string(data)); err != nil {
			return fmt.Errorf("failed to insert accident %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO snapshots (id, saved_at, count) VALUES (1, ?, ?)`,
		time.Now().UTC(), len(accidents)); err != nil {
		return fmt.Errorf("failed to record snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// LoadSnapshot returns the stored accident list in saved order
func (d *DB) LoadSnapshot(ctx context.Context) ([]model.Accident, error) {
	if _, err := d.SnapshotInfo(ctx); err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, `SELECT data FROM accidents ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accidents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	accidents := []model.Accident{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan accident: %w", err)
		}
		var a model.Accident
		if err := json.Unmarshal([]byte(data), &a); err != nil {
			return nil, fmt.Errorf("failed to decode accident: %w", err)
		}
		accidents = append(accidents, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read accidents: %w", err)
	}

	return accidents, nil
}

// SnapshotInfo describes the stored snapshot
type SnapshotInfo struct {
	SavedAt time.Time
	Count   int
}

// SnapshotInfo returns when the snapshot was saved, or ErrNoSnapshot
func (d *DB) SnapshotInfo(ctx context.Context) (*SnapshotInfo, error) {
	var info SnapshotInfo
	err := d.db.QueryRowContext(ctx, `SELECT saved_at, count FROM snapshots WHERE id = 1`).Scan(&info.SavedAt, &info.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	return &info, nil
}

// FetchAccidents lets the snapshot act as an accident source
func (d *DB) FetchAccidents(ctx context.Context) ([]model.Accident, error) {
	return d.LoadSnapshot(ctx)
}
