// Package sqlite persists the normalized incident table in a SQLite file,
// one row per incident in table Crime.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/crime-map-etl/internal/domain"
)

const timestampLayout = "2006-01-02 15:04:05"

const createTable = `CREATE TABLE Crime (
	Dc_Dist            TEXT,
	Psa                TEXT,
	Dispatch_Date_Time TEXT,
	Dispatch_Date      TEXT,
	Dispatch_Time      TEXT,
	Hour               TEXT,
	Dc_Key             TEXT,
	Location_Block     TEXT,
	UCR_General        TEXT,
	Text_General_Code  TEXT,
	Police_Districts   TEXT,
	Month              TEXT,
	Lon                REAL NOT NULL,
	Lat                REAL NOT NULL
)`

const insertRow = `INSERT INTO Crime (
	Dc_Dist, Psa, Dispatch_Date_Time, Dispatch_Date, Dispatch_Time, Hour, Dc_Key,
	Location_Block, UCR_General, Text_General_Code, Police_Districts, Month, Lon, Lat
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectRows = `SELECT
	Dc_Dist, Psa, Dispatch_Date_Time, Dispatch_Date, Dispatch_Time, Hour, Dc_Key,
	Location_Block, UCR_General, Text_General_Code, Police_Districts, Month, Lon, Lat
FROM Crime ORDER BY rowid`

// Store is the relational copy of the incident table. The database file is
// opened on first Save or Restore, so a run that never touches the store
// leaves no file behind.
type Store struct {
	path   string
	logger *slog.Logger
	db     *sql.DB
}

// New returns a Store for the SQLite database at path without opening it.
func New(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Open opens (creating if needed) the SQLite database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	s := New(path, logger)
	if _, err := s.conn(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) conn() (*sql.DB, error) {
	if s.db != nil {
		return s.db, nil
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", s.path, err)
	}
	// One writer, no concurrent access.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", s.path, err)
	}
	s.db = db
	return db, nil
}

// Close closes the database if it was opened.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// HasCrimeTable reports whether the database at path holds table Crime. It
// opens the file read-only and never creates it.
func HasCrimeTable(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	db, err := sql.Open("sqlite", "file:"+filepath.ToSlash(path)+"?mode=ro")
	if err != nil {
		return false, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	defer db.Close()

	var one int
	err = db.QueryRow(`SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'Crime'`).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("inspect sqlite %s: %w", path, err)
	}
	return true, nil
}

// Save replaces table Crime with incidents in a single transaction.
func (s *Store) Save(ctx context.Context, incidents []domain.Incident) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS Crime`); err != nil {
		return fmt.Errorf("drop Crime: %w", err)
	}
	if _, err := tx.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create Crime: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertRow)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range incidents {
		inc := &incidents[i]
		if _, err := stmt.ExecContext(ctx,
			inc.DcDist, inc.Psa, formatTimestamp(inc.DispatchDateTime), inc.DispatchDate,
			inc.DispatchTime, inc.Hour, inc.DcKey, inc.LocationBlock, inc.UCRGeneral,
			inc.Category, inc.PoliceDistricts, domain.FormatMonth(inc.Month), inc.Lon, inc.Lat,
		); err != nil {
			return fmt.Errorf("insert incident %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.logger.Info("crime table stored", "rows", len(incidents))
	return nil
}

// Restore reads every row of table Crime in insertion order.
func (s *Store) Restore(ctx context.Context) ([]domain.Incident, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, selectRows)
	if err != nil {
		return nil, fmt.Errorf("query Crime: %w", err)
	}
	defer rows.Close()

	var out []domain.Incident
	for rows.Next() {
		var (
			inc                  domain.Incident
			dispatched, monthStr string
		)
		if err := rows.Scan(
			&inc.DcDist, &inc.Psa, &dispatched, &inc.DispatchDate, &inc.DispatchTime,
			&inc.Hour, &inc.DcKey, &inc.LocationBlock, &inc.UCRGeneral, &inc.Category,
			&inc.PoliceDistricts, &monthStr, &inc.Lon, &inc.Lat,
		); err != nil {
			return nil, fmt.Errorf("scan Crime row: %w", err)
		}
		if inc.DispatchDateTime, err = parseTimestamp(dispatched); err != nil {
			return nil, fmt.Errorf("row %d of Crime: %w", len(out)+1, err)
		}
		if inc.Month, err = domain.ParseMonth(monthStr); err != nil {
			return nil, fmt.Errorf("row %d of Crime: %w", len(out)+1, err)
		}
		out = append(out, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate Crime: %w", err)
	}
	return out, nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timestampLayout, s)
}
