package cluster

import (
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/crime-map-etl/internal/domain"
	"github.com/couchcryptid/crime-map-etl/internal/observability"
)

// Engine clusters coordinates with k-means, serving repeated (label, k)
// requests from a cache.
type Engine struct {
	cache   Cache
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewEngine creates an Engine. cache and metrics may be nil.
func NewEngine(cache Cache, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{cache: cache, opts: opts, logger: logger, metrics: metrics}
}

// Cluster returns exactly k clusters for points. A cached result for
// (label, k) is returned as-is without looking at points. On failure the
// error is a *Error matching ErrClusteringUnavailable.
func (e *Engine) Cluster(points []domain.Coordinate, k int, label string) (domain.ClusterResult, error) {
	if cached, ok := e.lookup(label, k); ok {
		return cached, nil
	}

	start := time.Now()
	result, err := KMeans(points, k, e.opts)
	if err != nil {
		e.countRun("error")
		e.logger.Warn("clustering failed; no cluster result for this label",
			"label", label, "clusters", k, "points", len(points), "error", err)
		return nil, &Error{Label: label, K: k, Err: err}
	}
	e.countRun("success")
	if e.metrics != nil {
		e.metrics.ClusterDuration.Observe(time.Since(start).Seconds())
	}
	e.logger.Info("clusters computed",
		"label", label, "clusters", k, "points", len(points), "duration", time.Since(start))

	if e.cache != nil {
		if err := e.cache.Store(label, k, result); err != nil {
			e.logger.Warn("cluster cache write failed", "label", label, "clusters", k, "error", err)
		}
	}
	return result, nil
}

func (e *Engine) lookup(label string, k int) (domain.ClusterResult, bool) {
	if e.cache == nil {
		return nil, false
	}
	cached, err := e.cache.Load(label, k)
	switch {
	case err == nil:
		e.countCache("hit")
		e.logger.Debug("cluster cache hit", "label", label, "clusters", k)
		return cached, true
	case errors.Is(err, ErrCacheMiss):
		e.countCache("miss")
	default:
		e.countCache("error")
		e.logger.Warn("cluster cache unreadable, recomputing", "label", label, "clusters", k, "error", err)
	}
	return nil, false
}

func (e *Engine) countCache(result string) {
	if e.metrics != nil {
		e.metrics.ClusterCache.WithLabelValues(result).Inc()
	}
}

func (e *Engine) countRun(outcome string) {
	if e.metrics != nil {
		e.metrics.ClusterRuns.WithLabelValues(outcome).Inc()
	}
}
