// Package snapshot keeps a serialized copy of the normalized incident table
// so later runs can skip CSV parsing.
package snapshot

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/crime-map-etl/internal/domain"
)

// formatVersion changes whenever domain.Incident changes shape.
const formatVersion = 1

// Snapshot is the on-disk payload.
type Snapshot struct {
	Version   int
	SavedAt   time.Time
	Incidents []domain.Incident
}

// File is a snapshot stored at a fixed path.
type File struct {
	path   string
	logger *slog.Logger
}

// NewFile returns a snapshot handle for path.
func NewFile(path string, logger *slog.Logger) *File {
	return &File{path: path, logger: logger}
}

// Path returns the snapshot location.
func (f *File) Path() string { return f.path }

// Save overwrites the snapshot with incidents.
func (f *File) Save(_ context.Context, incidents []domain.Incident) error {
	fh, err := os.Create(f.path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	w := bufio.NewWriter(fh)

	snap := Snapshot{Version: formatVersion, SavedAt: domain.Now(), Incidents: incidents}
	if err := gob.NewEncoder(w).Encode(&snap); err != nil {
		fh.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := w.Flush(); err != nil {
		fh.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	f.logger.Info("snapshot written", "path", f.path, "incidents", len(incidents))
	return nil
}

// Read decodes the snapshot file.
func (f *File) Read() (*Snapshot, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer fh.Close()

	var snap Snapshot
	if err := gob.NewDecoder(bufio.NewReader(fh)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", f.path, err)
	}
	if snap.Version != formatVersion {
		return nil, fmt.Errorf("snapshot %s has format version %d, want %d", f.path, snap.Version, formatVersion)
	}
	return &snap, nil
}

// Restore returns the snapshot's incidents.
func (f *File) Restore(_ context.Context) ([]domain.Incident, error) {
	snap, err := f.Read()
	if err != nil {
		return nil, err
	}
	f.logger.Debug("snapshot restored", "path", f.path, "saved_at", snap.SavedAt, "incidents", len(snap.Incidents))
	return snap.Incidents, nil
}
