package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// maxPrecision bounds the rounding precisions accepted for aggregation.
const maxPrecision = 10

// Config holds all run settings, populated from environment variables.
type Config struct {
	// Input and persisted copies of the incident table.
	CSVPath         string
	StorePath       string
	SnapshotPath    string
	Source          string // auto, csv, store, snapshot
	PersistStore    bool
	PersistSnapshot bool

	// Clustering.
	ClusterCacheDir   string
	ClusterCounts     []int
	ClusterLabel      string
	ClusterCategories []string
	ClusterSeed       uint64
	ClusterMaxIter    int
	ClusterRuns       int

	// Map rendering.
	OutputDir       string
	MapCenterLat    float64
	MapCenterLng    float64
	MapZoom         int
	MapStyle        string
	PlotPrecision   int
	PointSizeScale  float64
	MarkerPrecision int
	MarkerScale     float64
	MarkerColor     string
	GeoJSONExport   bool

	// Mapbox key file and reverse geocoding.
	MapboxKeyFile   string
	MapboxGeocoding bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Optional export.
	KafkaBrokers []string
	KafkaTopic   string

	MetricsFile string
	LogLevel    string
	LogFormat   string
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is read first if present;
// variables already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	var p parser
	cfg := &Config{
		CSVPath:         sharedcfg.EnvOrDefault("CRIME_CSV_PATH", "crime.csv"),
		StorePath:       sharedcfg.EnvOrDefault("CRIME_DB_PATH", "crime.db"),
		SnapshotPath:    sharedcfg.EnvOrDefault("CRIME_SNAPSHOT_PATH", "crime.gob"),
		Source:          strings.ToLower(sharedcfg.EnvOrDefault("CRIME_SOURCE", "auto")),
		PersistStore:    p.boolean("PERSIST_STORE", true),
		PersistSnapshot: p.boolean("PERSIST_SNAPSHOT", true),

		ClusterCacheDir:   sharedcfg.EnvOrDefault("CLUSTER_CACHE_DIR", "cache"),
		ClusterCounts:     p.intList("CLUSTER_COUNTS", "5", 1),
		ClusterLabel:      sharedcfg.EnvOrDefault("CLUSTER_LABEL", "crime"),
		ClusterCategories: splitList(sharedcfg.EnvOrDefault("CLUSTER_CATEGORIES", "")),
		ClusterSeed:       p.uint("CLUSTER_SEED", 1),
		ClusterMaxIter:    p.integer("CLUSTER_MAX_ITER", 300, 1, math.MaxInt32),
		ClusterRuns:       p.integer("CLUSTER_RUNS", 10, 1, 1000),

		OutputDir:       sharedcfg.EnvOrDefault("OUTPUT_DIR", "."),
		MapCenterLat:    p.float("MAP_CENTER_LAT", 39.992003865395425, -90, 90),
		MapCenterLng:    p.float("MAP_CENTER_LNG", -75.14991150054124, -180, 180),
		MapZoom:         p.integer("MAP_ZOOM", 11, 0, 22),
		MapStyle:        sharedcfg.EnvOrDefault("MAP_STYLE", "mapbox/streets-v12"),
		PlotPrecision:   p.integer("PLOT_PRECISION", 2, 0, maxPrecision),
		PointSizeScale:  p.float("POINT_SIZE_SCALE", 0.0003, 0, math.MaxFloat64),
		MarkerPrecision: p.integer("MARKER_PRECISION", 2, 0, maxPrecision),
		MarkerScale:     p.float("MARKER_SCALE", 0.5, 0, math.MaxFloat64),
		MarkerColor:     sharedcfg.EnvOrDefault("MARKER_COLOR", "crimson"),
		GeoJSONExport:   p.boolean("GEOJSON_EXPORT", false),

		MapboxKeyFile:   sharedcfg.EnvOrDefault("MAPBOX_KEY_FILE", "mapbox_api.txt"),
		MapboxGeocoding: p.boolean("MAPBOX_GEOCODING", false),
		MapboxTimeout:   p.duration("MAPBOX_TIMEOUT", 5*time.Second),
		MapboxCacheSize: p.integer("MAPBOX_CACHE_SIZE", 1000, 1, math.MaxInt32),

		KafkaTopic: sharedcfg.EnvOrDefault("KAFKA_TOPIC", "crime-aggregates"),

		MetricsFile: sharedcfg.EnvOrDefault("METRICS_FILE", ""),
		LogLevel:    sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:   sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
	}
	if brokers := sharedcfg.EnvOrDefault("KAFKA_BROKERS", ""); strings.TrimSpace(brokers) != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}

	if p.err != nil {
		return nil, p.err
	}

	switch cfg.Source {
	case "auto", "csv", "store", "snapshot":
	default:
		return nil, fmt.Errorf("invalid CRIME_SOURCE %q: want auto, csv, store, or snapshot", cfg.Source)
	}
	if cfg.CSVPath == "" {
		return nil, fmt.Errorf("CRIME_CSV_PATH is required")
	}
	if cfg.ClusterLabel == "" {
		return nil, fmt.Errorf("CLUSTER_LABEL is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// ExportEnabled reports whether aggregates are published to Kafka.
func (c *Config) ExportEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// parser reads typed variables and keeps the first error.
type parser struct {
	err error
}

func (p *parser) fail(name, value, want string) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %s", name, value, want)
	}
}

func (p *parser) integer(name string, def, lo, hi int) int {
	s := sharedcfg.EnvOrDefault(name, "")
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < lo || n > hi {
		p.fail(name, s, fmt.Sprintf("want an integer in [%d, %d]", lo, hi))
		return def
	}
	return n
}

func (p *parser) uint(name string, def uint64) uint64 {
	s := sharedcfg.EnvOrDefault(name, "")
	if s == "" {
		return def
	}
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		p.fail(name, s, "want a non-negative integer")
		return def
	}
	return n
}

func (p *parser) float(name string, def, lo, hi float64) float64 {
	s := sharedcfg.EnvOrDefault(name, "")
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || v < lo || v > hi {
		p.fail(name, s, fmt.Sprintf("want a number in [%g, %g]", lo, hi))
		return def
	}
	return v
}

func (p *parser) boolean(name string, def bool) bool {
	s := sharedcfg.EnvOrDefault(name, "")
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		p.fail(name, s, "want true or false")
		return def
	}
	return v
}

func (p *parser) duration(name string, def time.Duration) time.Duration {
	s := sharedcfg.EnvOrDefault(name, "")
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		p.fail(name, s, "want a positive duration")
		return def
	}
	return d
}

func (p *parser) intList(name, def string, lo int) []int {
	s := sharedcfg.EnvOrDefault(name, def)
	parts := splitList(s)
	if len(parts) == 0 {
		p.fail(name, s, "want a comma-separated list of integers")
		return nil
	}
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < lo {
			p.fail(name, s, fmt.Sprintf("want integers of at least %d", lo))
			return nil
		}
		out = append(out, n)
	}
	return out
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
