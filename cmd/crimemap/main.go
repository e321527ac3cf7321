package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	kafkaadapter "github.com/couchcryptid/crime-map-etl/internal/adapter/kafka"
	"github.com/couchcryptid/crime-map-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/crime-map-etl/internal/adapter/snapshot"
	"github.com/couchcryptid/crime-map-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/crime-map-etl/internal/cluster"
	"github.com/couchcryptid/crime-map-etl/internal/config"
	"github.com/couchcryptid/crime-map-etl/internal/domain"
	"github.com/couchcryptid/crime-map-etl/internal/observability"
	"github.com/couchcryptid/crime-map-etl/internal/pipeline"
	"github.com/couchcryptid/crime-map-etl/internal/render"
	"github.com/couchcryptid/crime-map-etl/internal/source"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	if err := run(cfg, logger, metrics); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kind, err := source.Resolve(sourcePaths(cfg, logger), cfg.Source)
	if err != nil {
		return err
	}

	// The database file is only created by a restore or a save, so a run
	// that fails before persisting cannot leave a tableless store behind.
	store := sqlite.New(cfg.StorePath, logger)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("sqlite close error", "error", err)
		}
	}()
	snap := snapshot.NewFile(cfg.SnapshotPath, logger)

	stages := pipeline.Stages{
		Loader:    source.NewLoader(cfg.CSVPath, store, snap, logger, metrics),
		Clusterer: cluster.NewEngine(cluster.NewFileCache(cfg.ClusterCacheDir), cluster.Options{MaxIter: cfg.ClusterMaxIter, Runs: cfg.ClusterRuns, Seed: cfg.ClusterSeed}, logger, metrics),
		Renderer:  render.New(logger, metrics),
		Geocoder:  newGeocoder(cfg, logger, metrics),
	}
	if cfg.PersistStore {
		stages.Store = store
	}
	if cfg.PersistSnapshot {
		stages.Snapshot = snap
	}
	if cfg.ExportEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		stages.Exporter = writer
		logger.Info("kafka export enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	p := pipeline.New(stages, settings(cfg), logger, metrics)
	report, err := p.Run(ctx, kind)
	if err != nil {
		return err
	}
	for _, f := range report.ClusterFailures() {
		logger.Warn("no cluster map written", "label", f.Label, "clusters", f.K, "error", f.Err)
	}

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("metrics textfile write error", "path", cfg.MetricsFile, "error", err)
		}
	}
	return nil
}

// sourcePaths locates the three sources. The store only counts once a
// previous run has saved table Crime into it.
func sourcePaths(cfg *config.Config, logger *slog.Logger) source.Paths {
	return source.Paths{
		CSV:      cfg.CSVPath,
		Store:    cfg.StorePath,
		Snapshot: cfg.SnapshotPath,
		StoreReady: func(path string) bool {
			ok, err := sqlite.HasCrimeTable(path)
			if err != nil {
				logger.Warn("sqlite store unreadable, skipping it", "path", path, "error", err)
			}
			return ok
		},
	}
}

// newGeocoder returns nil unless reverse geocoding is enabled and the key
// file holds a token.
func newGeocoder(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) domain.Geocoder {
	if !cfg.MapboxGeocoding {
		logger.Info("mapbox geocoding disabled")
		return nil
	}
	token, err := mapbox.ReadAPIKey(cfg.MapboxKeyFile)
	if err != nil {
		logger.Warn("mapbox geocoding enabled but no API key, cluster sites stay unlabelled",
			"key_file", cfg.MapboxKeyFile, "error", err)
		return nil
	}
	client := mapbox.NewClient(token, cfg.MapboxTimeout, metrics, logger)
	logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	return mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
}

func settings(cfg *config.Config) pipeline.Settings {
	return pipeline.Settings{
		OutputDir: cfg.OutputDir,
		Map: render.MapOptions{
			CenterLat:     cfg.MapCenterLat,
			CenterLng:     cfg.MapCenterLng,
			Zoom:          cfg.MapZoom,
			Title:         "Philadelphia crime incidents",
			ExportGeoJSON: cfg.GeoJSONExport,
		},
		PlotPrecision:     cfg.PlotPrecision,
		PointSizeScale:    cfg.PointSizeScale,
		MapStyle:          cfg.MapStyle,
		KeyFile:           cfg.MapboxKeyFile,
		MarkerPrecision:   cfg.MarkerPrecision,
		MarkerScale:       cfg.MarkerScale,
		MarkerColor:       cfg.MarkerColor,
		ClusterCounts:     cfg.ClusterCounts,
		ClusterLabel:      cfg.ClusterLabel,
		ClusterCategories: cfg.ClusterCategories,
	}
}
