package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "crime.csv", cfg.CSVPath)
	assert.Equal(t, "crime.db", cfg.StorePath)
	assert.Equal(t, "crime.gob", cfg.SnapshotPath)
	assert.Equal(t, "auto", cfg.Source)
	assert.True(t, cfg.PersistStore)
	assert.True(t, cfg.PersistSnapshot)

	assert.Equal(t, "cache", cfg.ClusterCacheDir)
	assert.Equal(t, []int{5}, cfg.ClusterCounts)
	assert.Equal(t, "crime", cfg.ClusterLabel)
	assert.Empty(t, cfg.ClusterCategories)
	assert.Equal(t, uint64(1), cfg.ClusterSeed)
	assert.Equal(t, 300, cfg.ClusterMaxIter)
	assert.Equal(t, 10, cfg.ClusterRuns)

	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, 39.992003865395425, cfg.MapCenterLat)
	assert.Equal(t, -75.14991150054124, cfg.MapCenterLng)
	assert.Equal(t, 11, cfg.MapZoom)
	assert.Equal(t, "mapbox/streets-v12", cfg.MapStyle)
	assert.Equal(t, 2, cfg.PlotPrecision)
	assert.Equal(t, 0.0003, cfg.PointSizeScale)
	assert.Equal(t, 2, cfg.MarkerPrecision)
	assert.Equal(t, 0.5, cfg.MarkerScale)
	assert.Equal(t, "crimson", cfg.MarkerColor)
	assert.False(t, cfg.GeoJSONExport)

	assert.Equal(t, "mapbox_api.txt", cfg.MapboxKeyFile)
	assert.False(t, cfg.MapboxGeocoding)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)

	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.ExportEnabled())
	assert.Equal(t, "crime-aggregates", cfg.KafkaTopic)
	assert.Empty(t, cfg.MetricsFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("CRIME_CSV_PATH", "/data/incidents.csv")
	t.Setenv("CRIME_SOURCE", "Snapshot")
	t.Setenv("PERSIST_STORE", "false")
	t.Setenv("CLUSTER_COUNTS", "5, 10,20")
	t.Setenv("CLUSTER_CATEGORIES", "Thefts, Burglary Residential,")
	t.Setenv("CLUSTER_SEED", "42")
	t.Setenv("MAP_ZOOM", "13")
	t.Setenv("MARKER_PRECISION", "5")
	t.Setenv("MARKER_COLOR", "#3388ff")
	t.Setenv("GEOJSON_EXPORT", "true")
	t.Setenv("MAPBOX_GEOCODING", "true")
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-topic")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/incidents.csv", cfg.CSVPath)
	assert.Equal(t, "snapshot", cfg.Source)
	assert.False(t, cfg.PersistStore)
	assert.Equal(t, []int{5, 10, 20}, cfg.ClusterCounts)
	assert.Equal(t, []string{"Thefts", "Burglary Residential"}, cfg.ClusterCategories)
	assert.Equal(t, uint64(42), cfg.ClusterSeed)
	assert.Equal(t, 13, cfg.MapZoom)
	assert.Equal(t, 5, cfg.MarkerPrecision)
	assert.Equal(t, "#3388ff", cfg.MarkerColor)
	assert.True(t, cfg.GeoJSONExport)
	assert.True(t, cfg.MapboxGeocoding)
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.ExportEnabled())
	assert.Equal(t, "custom-topic", cfg.KafkaTopic)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown source", "CRIME_SOURCE", "parquet"},
		{"zero cluster count", "CLUSTER_COUNTS", "5,0"},
		{"non-numeric cluster count", "CLUSTER_COUNTS", "five"},
		{"negative seed", "CLUSTER_SEED", "-1"},
		{"zero max iter", "CLUSTER_MAX_ITER", "0"},
		{"latitude out of range", "MAP_CENTER_LAT", "91"},
		{"longitude not a number", "MAP_CENTER_LNG", "west"},
		{"zoom too deep", "MAP_ZOOM", "30"},
		{"precision too large", "PLOT_PRECISION", "11"},
		{"negative marker scale", "MARKER_SCALE", "-0.5"},
		{"bad bool", "MAPBOX_GEOCODING", "maybe"},
		{"bad geojson flag", "GEOJSON_EXPORT", "sometimes"},
		{"bad mapbox timeout", "MAPBOX_TIMEOUT", "bad"},
		{"negative mapbox timeout", "MAPBOX_TIMEOUT", "-1s"},
		{"zero cache size", "MAPBOX_CACHE_SIZE", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_FirstErrorWins(t *testing.T) {
	t.Setenv("MAP_ZOOM", "99")
	t.Setenv("MAPBOX_TIMEOUT", "bad")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAP_ZOOM")
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Nil(t, splitList(" , ,"))
	assert.Equal(t, []string{"a", "b c"}, splitList(" a, b c ,"))
}
