package snapshot

import (
	"context"
	"encoding/gob"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crime-map-etl/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFile_SaveRestore(t *testing.T) {
	savedAt := time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(savedAt))
	defer domain.SetClock(nil)

	incidents := []domain.Incident{
		{
			DcDist:           "18",
			DispatchDateTime: time.Date(2009, time.October, 2, 14, 24, 0, 0, time.UTC),
			Category:         "Thefts",
			Month:            time.Date(2009, time.October, 1, 0, 0, 0, 0, time.UTC),
			Lon:              -75.19,
			Lat:              39.95,
		},
		{Category: domain.UnknownCategory, Month: time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC), Lon: -75.1, Lat: 40},
	}

	f := NewFile(filepath.Join(t.TempDir(), "crime.gob"), discardLogger())
	require.NoError(t, f.Save(context.Background(), incidents))

	snap, err := f.Read()
	require.NoError(t, err)
	assert.True(t, savedAt.Equal(snap.SavedAt))
	assert.Equal(t, formatVersion, snap.Version)

	got, err := f.Restore(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range incidents {
		assert.Equal(t, incidents[i].Category, got[i].Category)
		assert.True(t, incidents[i].Month.Equal(got[i].Month))
		assert.True(t, incidents[i].DispatchDateTime.Equal(got[i].DispatchDateTime))
		assert.Equal(t, incidents[i].Lon, got[i].Lon)
		assert.Equal(t, incidents[i].Lat, got[i].Lat)
	}
}

func TestFile_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing", func(t *testing.T) {
		_, err := NewFile(filepath.Join(dir, "missing.gob"), discardLogger()).Restore(context.Background())
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("corrupt", func(t *testing.T) {
		path := filepath.Join(dir, "corrupt.gob")
		require.NoError(t, os.WriteFile(path, []byte("not a gob stream"), 0o644))
		_, err := NewFile(path, discardLogger()).Restore(context.Background())
		assert.ErrorContains(t, err, "decode snapshot")
	})

	t.Run("version mismatch", func(t *testing.T) {
		path := filepath.Join(dir, "old.gob")
		fh, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, gob.NewEncoder(fh).Encode(&Snapshot{Version: 0}))
		require.NoError(t, fh.Close())

		_, err = NewFile(path, discardLogger()).Read()
		assert.ErrorContains(t, err, "format version")
	})
}
