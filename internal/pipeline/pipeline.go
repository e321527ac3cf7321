package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/crime-map-etl/internal/aggregate"
	"github.com/couchcryptid/crime-map-etl/internal/cluster"
	"github.com/couchcryptid/crime-map-etl/internal/domain"
	"github.com/couchcryptid/crime-map-etl/internal/observability"
	"github.com/couchcryptid/crime-map-etl/internal/render"
	"github.com/couchcryptid/crime-map-etl/internal/source"
)

// Output file names, relative to Settings.OutputDir.
const (
	PlotFile    = "crime_plot.html"
	MarkersFile = "crime_markers.html"
)

// TableLoader builds the incident table from the resolved source.
type TableLoader interface {
	Load(ctx context.Context, kind source.Kind) (*domain.Table, error)
}

// Persister stores a freshly loaded table for later runs.
type Persister interface {
	Save(ctx context.Context, incidents []domain.Incident) error
}

// Clusterer partitions points into k clusters, caching by label.
type Clusterer interface {
	Cluster(points []domain.Coordinate, k int, label string) (domain.ClusterResult, error)
}

// MapRenderer writes the two HTML map kinds.
type MapRenderer interface {
	Tiled(src *render.PointSource, size render.Size, opts render.TiledOptions, path string) (*render.TiledResult, error)
	Markers(input any, opts render.MarkerOptions, path string) (*render.MarkerResult, error)
}

// Exporter publishes aggregates and clusters downstream.
type Exporter interface {
	ExportCounts(ctx context.Context, precision int, series []domain.CoordinateCount) (int, error)
	ExportClusters(ctx context.Context, label string, sites []domain.ClusterSite) (int, error)
}

// Stages are the run's collaborators. Store, Snapshot, Geocoder, and
// Exporter are optional.
type Stages struct {
	Loader    TableLoader
	Store     Persister
	Snapshot  Persister
	Clusterer Clusterer
	Renderer  MapRenderer
	Geocoder  domain.Geocoder
	Exporter  Exporter
}

// Settings are the per-run parameters.
type Settings struct {
	OutputDir string
	Map       render.MapOptions

	PlotPrecision  int
	PointSizeScale float64
	MapStyle       string
	KeyFile        string

	MarkerPrecision int
	MarkerScale     float64
	MarkerColor     string

	ClusterCounts     []int
	ClusterLabel      string
	ClusterCategories []string
}

// ClusterOutcome is the result of one (label, k) clustering. Exactly one of
// Sites and Err is set.
type ClusterOutcome struct {
	Label string
	K     int
	Sites []domain.ClusterSite
	Path  string
	Err   error
}

// Report summarizes a run.
type Report struct {
	Source       source.Kind
	Incidents    int
	PlotGroups   int
	MarkerGroups int
	Plot         *render.TiledResult
	Markers      *render.MarkerResult
	Clusters     []ClusterOutcome
	PersistErrs  []error
	Exported     int
	ExportErr    error
	Duration     time.Duration
}

// ClusterFailures returns the outcomes whose clustering was unavailable.
func (r *Report) ClusterFailures() []ClusterOutcome {
	var out []ClusterOutcome
	for _, c := range r.Clusters {
		if c.Err != nil {
			out = append(out, c)
		}
	}
	return out
}

// Pipeline runs one load, aggregate, cluster, render pass.
type Pipeline struct {
	stages   Stages
	settings Settings
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// New creates a Pipeline.
func New(stages Stages, settings Settings, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{stages: stages, settings: settings, logger: logger, metrics: metrics}
}

// Run executes the batch once. It fails on load, aggregation, or map write
// errors. Clustering failures, persistence failures, and export failures
// are logged and returned in the Report.
func (p *Pipeline) Run(ctx context.Context, kind source.Kind) (*Report, error) {
	start := time.Now()
	report := &Report{Source: kind}
	p.logger.Info("run started", "source", kind.String())

	tbl, err := p.stages.Loader.Load(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	report.Incidents = tbl.Len()

	if kind == source.FreshLoad {
		report.PersistErrs = p.persist(ctx, tbl)
	}

	series, err := p.plot(tbl, report)
	if err != nil {
		return nil, err
	}
	if err := p.markers(tbl, report); err != nil {
		return nil, err
	}
	if p.stages.Exporter != nil {
		p.export(report, func() (int, error) {
			return p.stages.Exporter.ExportCounts(ctx, p.settings.PlotPrecision, series)
		})
	}

	for _, job := range clusterJobs(tbl, p.settings.ClusterLabel, p.settings.ClusterCategories) {
		for _, k := range p.settings.ClusterCounts {
			outcome, err := p.cluster(ctx, job, k, report)
			if err != nil {
				return nil, err
			}
			report.Clusters = append(report.Clusters, outcome)
		}
	}

	report.Duration = time.Since(start)
	if p.metrics != nil {
		p.metrics.RunDuration.Set(report.Duration.Seconds())
	}
	p.logger.Info("run finished",
		"source", kind.String(),
		"incidents", report.Incidents,
		"clusters", len(report.Clusters),
		"cluster_failures", len(report.ClusterFailures()),
		"duration", report.Duration,
	)
	return report, nil
}

func (p *Pipeline) persist(ctx context.Context, tbl *domain.Table) []error {
	var errs []error
	for _, target := range []struct {
		name string
		p    Persister
	}{
		{"store", p.stages.Store},
		{"snapshot", p.stages.Snapshot},
	} {
		if target.p == nil {
			continue
		}
		if err := target.p.Save(ctx, tbl.Incidents); err != nil {
			p.logger.Warn("persist failed; next run will parse the CSV again", "target", target.name, "error", err)
			errs = append(errs, fmt.Errorf("persist %s: %w", target.name, err))
		}
	}
	return errs
}

// plot aggregates at the plot precision and draws the tiled overlay.
func (p *Pipeline) plot(tbl *domain.Table, report *Report) ([]domain.CoordinateCount, error) {
	counts, err := aggregate.Counts(tbl, domain.ColumnLon, domain.ColumnLat, p.settings.PlotPrecision)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	p.observeGroups(p.settings.PlotPrecision, len(counts))
	series := aggregate.Series(counts)
	report.PlotGroups = len(series)

	res, err := p.stages.Renderer.Tiled(
		render.CountSource(series, p.settings.PointSizeScale),
		render.SizeFromColumn(render.ColumnSize),
		render.TiledOptions{MapOptions: p.settings.Map, Style: p.settings.MapStyle, KeyFile: p.settings.KeyFile},
		filepath.Join(p.settings.OutputDir, PlotFile),
	)
	if err != nil {
		return nil, fmt.Errorf("render plot: %w", err)
	}
	report.Plot = res
	return series, nil
}

// markers aggregates at the marker precision and draws the marker overlay.
func (p *Pipeline) markers(tbl *domain.Table, report *Report) error {
	counts, err := aggregate.Counts(tbl, domain.ColumnLon, domain.ColumnLat, p.settings.MarkerPrecision)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}
	p.observeGroups(p.settings.MarkerPrecision, len(counts))
	report.MarkerGroups = len(counts)

	res, err := p.stages.Renderer.Markers(counts, p.markerOptions(), filepath.Join(p.settings.OutputDir, MarkersFile))
	if err != nil {
		return fmt.Errorf("render markers: %w", err)
	}
	report.Markers = res
	return nil
}

func (p *Pipeline) cluster(ctx context.Context, job clusterJob, k int, report *Report) (ClusterOutcome, error) {
	outcome := ClusterOutcome{Label: job.label, K: k}

	result, err := p.stages.Clusterer.Cluster(job.table.Coordinates(), k, job.label)
	if err != nil {
		outcome.Err = err
		return outcome, nil
	}

	outcome.Sites = domain.LabelClusters(ctx, result, p.stages.Geocoder, p.logger)
	outcome.Path = filepath.Join(p.settings.OutputDir, ClusterFile(job.label, k))
	if _, err := p.stages.Renderer.Markers(outcome.Sites, p.markerOptions(), outcome.Path); err != nil {
		return outcome, fmt.Errorf("render clusters %s: %w", job.label, err)
	}

	if p.stages.Exporter != nil {
		p.export(report, func() (int, error) {
			return p.stages.Exporter.ExportClusters(ctx, job.label, outcome.Sites)
		})
	}
	return outcome, nil
}

// export runs one export call. After the first failure later exports are
// skipped.
func (p *Pipeline) export(report *Report, fn func() (int, error)) {
	if report.ExportErr != nil {
		return
	}
	n, err := fn()
	if err != nil {
		p.logger.Warn("export failed, skipping remaining exports", "error", err)
		report.ExportErr = err
		return
	}
	report.Exported += n
	if p.metrics != nil {
		p.metrics.MessagesExported.Add(float64(n))
	}
}

func (p *Pipeline) markerOptions() render.MarkerOptions {
	return render.MarkerOptions{
		MapOptions: p.settings.Map,
		Scale:      p.settings.MarkerScale,
		FillColor:  p.settings.MarkerColor,
	}
}

func (p *Pipeline) observeGroups(precision, groups int) {
	if p.metrics != nil {
		p.metrics.CoordinateGroups.WithLabelValues(strconv.Itoa(precision)).Set(float64(groups))
	}
}

// ClusterFile names the marker map for one (label, k), e.g.
// "clusters_crime_5.html". The label is sanitized like cache file names, so
// it never adds a directory.
func ClusterFile(label string, k int) string {
	return fmt.Sprintf("clusters_%s_%d.html", cluster.FileLabel(label), k)
}
