package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crime-map-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/crime-map-etl/internal/config"
	"github.com/couchcryptid/crime-map-etl/internal/observability"
	"github.com/couchcryptid/crime-map-etl/internal/source"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(dir string) *config.Config {
	return &config.Config{
		CSVPath:         filepath.Join(dir, "crime.csv"),
		StorePath:       filepath.Join(dir, "crime.db"),
		SnapshotPath:    filepath.Join(dir, "crime.gob"),
		Source:          "auto",
		ClusterCacheDir: filepath.Join(dir, "cache"),
		ClusterCounts:   []int{1},
		ClusterLabel:    "crime",
		ClusterSeed:     1,
		ClusterMaxIter:  300,
		ClusterRuns:     1,
		OutputDir:       filepath.Join(dir, "out"),
		MapZoom:         11,
		PlotPrecision:   2,
		PointSizeScale:  0.0003,
		MarkerPrecision: 2,
		MarkerScale:     0.5,
		MarkerColor:     "crimson",
		MapboxKeyFile:   filepath.Join(dir, "mapbox_api.txt"),
	}
}

func writeCSV(t *testing.T, path string, rows ...string) {
	t.Helper()
	content := strings.Join(source.Columns[:], ",") + "\n" + strings.Join(rows, "")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const (
	goodRow     = "24,2,,,,,,,,Thefts,,2015-03,-75.13,39.99\n"
	badMonthRow = "24,2,,,,,,,,Thefts,,March 2015,-75.13,39.99\n"
)

func resolve(t *testing.T, cfg *config.Config) source.Kind {
	t.Helper()
	kind, err := source.Resolve(sourcePaths(cfg, discardLogger()), cfg.Source)
	require.NoError(t, err)
	return kind
}

func TestRun_FailedLoadLeavesNoStore(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.PersistStore = true
	cfg.PersistSnapshot = true
	writeCSV(t, cfg.CSVPath, goodRow, badMonthRow)

	err := run(cfg, discardLogger(), observability.NewMetrics())
	require.Error(t, err)
	var rowErr *source.RowError
	require.ErrorAs(t, err, &rowErr)

	assert.NoFileExists(t, cfg.StorePath)
	assert.NoFileExists(t, cfg.SnapshotPath)

	// Once the CSV is fixed the next run parses it again.
	writeCSV(t, cfg.CSVPath, goodRow)
	assert.Equal(t, source.FreshLoad, resolve(t, cfg))
	require.NoError(t, run(cfg, discardLogger(), observability.NewMetrics()))
	assert.Equal(t, source.RestoreFromStore, resolve(t, cfg))
}

func TestRun_StoreWithoutTableIsSkipped(t *testing.T) {
	cfg := testConfig(t.TempDir())
	writeCSV(t, cfg.CSVPath, goodRow)

	// A database file holding no Crime table.
	leftover, err := sqlite.Open(cfg.StorePath, discardLogger())
	require.NoError(t, err)
	require.NoError(t, leftover.Close())

	assert.Equal(t, source.FreshLoad, resolve(t, cfg))
	require.NoError(t, run(cfg, discardLogger(), observability.NewMetrics()))
	assert.Equal(t, source.FreshLoad, resolve(t, cfg), "persistence is off, store stays empty")

	cfg.PersistStore = true
	require.NoError(t, run(cfg, discardLogger(), observability.NewMetrics()))
	assert.Equal(t, source.RestoreFromStore, resolve(t, cfg))
	require.NoError(t, run(cfg, discardLogger(), observability.NewMetrics()))
}

func TestRun_PersistOffCreatesNoStore(t *testing.T) {
	cfg := testConfig(t.TempDir())
	writeCSV(t, cfg.CSVPath, goodRow)

	require.NoError(t, run(cfg, discardLogger(), observability.NewMetrics()))
	assert.NoFileExists(t, cfg.StorePath)
	assert.NoFileExists(t, cfg.SnapshotPath)
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "crime_plot.html"))
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "crime_plot.geojson"))
}
