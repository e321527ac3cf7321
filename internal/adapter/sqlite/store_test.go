package sqlite

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crime-map-etl/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleIncidents() []domain.Incident {
	return []domain.Incident{
		{
			DcDist:           "18",
			Psa:              "3",
			DispatchDateTime: time.Date(2009, time.October, 2, 14, 24, 0, 0, time.UTC),
			DispatchDate:     "2009-10-02",
			DispatchTime:     "14:24:00",
			Hour:             "14",
			DcKey:            "200918067518",
			LocationBlock:    "S 38TH ST  / MARKETUT ST",
			UCRGeneral:       "800",
			Category:         "Other Assaults",
			Month:            time.Date(2009, time.October, 1, 0, 0, 0, 0, time.UTC),
			Lon:              -75.19,
			Lat:              39.95,
		},
		{
			Category: domain.UnknownCategory,
			Month:    time.Date(2010, time.March, 1, 0, 0, 0, 0, time.UTC),
			Lon:      -75.16,
			Lat:      39.97,
		},
	}
}

func TestStore_SaveRestore(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "crime.db"), discardLogger())
	require.NoError(t, err)
	defer store.Close()

	want := sampleIncidents()
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Restore(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("restored incidents mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "crime.db"), discardLogger())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(ctx, sampleIncidents()))
	require.NoError(t, store.Save(ctx, sampleIncidents()[:1]))

	got, err := store.Restore(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStore_RestoreWithoutTable(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "empty.db"), discardLogger())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Restore(context.Background())
	assert.ErrorContains(t, err, "query Crime")
}

func TestStore_ReopenPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "crime.db")

	store, err := Open(path, discardLogger())
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, sampleIncidents()))
	require.NoError(t, store.Close())

	reopened, err := Open(path, discardLogger())
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Restore(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStore_NewDefersFileCreation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crime.db")

	store := New(path, discardLogger())
	require.NoError(t, store.Close())
	assert.NoFileExists(t, path)

	store = New(path, discardLogger())
	defer store.Close()
	require.NoError(t, store.Save(context.Background(), sampleIncidents()))
	assert.FileExists(t, path)
}

func TestHasCrimeTable(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, path string)
		want    bool
		wantErr bool
	}{
		{
			name:  "missing file",
			setup: func(*testing.T, string) {},
		},
		{
			name: "opened but never saved",
			setup: func(t *testing.T, path string) {
				store, err := Open(path, discardLogger())
				require.NoError(t, err)
				require.NoError(t, store.Close())
			},
		},
		{
			name: "zero-byte file",
			setup: func(t *testing.T, path string) {
				require.NoError(t, os.WriteFile(path, nil, 0o644))
			},
		},
		{
			name: "saved table",
			setup: func(t *testing.T, path string) {
				store, err := Open(path, discardLogger())
				require.NoError(t, err)
				require.NoError(t, store.Save(context.Background(), sampleIncidents()))
				require.NoError(t, store.Close())
			},
			want: true,
		},
		{
			name: "not a database",
			setup: func(t *testing.T, path string) {
				require.NoError(t, os.WriteFile(path, []byte("Dc_Dist,Psa\n24,2\n"), 0o644))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "crime.db")
			tt.setup(t, path)

			got, err := HasCrimeTable(path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHasCrimeTable_DoesNotCreateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crime.db")
	ok, err := HasCrimeTable(path)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoFileExists(t, path)
}
