package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/crime-map-etl/internal/domain"
	"github.com/couchcryptid/crime-map-etl/internal/observability"
)

// Restorer reads back a table persisted by an earlier run. Restored rows are
// assumed normalized.
type Restorer interface {
	Restore(ctx context.Context) ([]domain.Incident, error)
}

// Loader builds the incident table from the resolved source.
type Loader struct {
	csvPath  string
	store    Restorer
	snapshot Restorer
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewLoader creates a Loader. store and snapshot may be nil when the
// corresponding source is never selected.
func NewLoader(csvPath string, store, snapshot Restorer, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{
		csvPath:  csvPath,
		store:    store,
		snapshot: snapshot,
		logger:   logger,
		metrics:  metrics,
	}
}

// Load reads the table from the source named by kind.
func (l *Loader) Load(ctx context.Context, kind Kind) (*domain.Table, error) {
	l.logger.Info("loading crime data", "source", kind.String())

	var incidents []domain.Incident
	switch kind {
	case FreshLoad:
		res, err := LoadCSV(l.csvPath)
		if err != nil {
			return nil, err
		}
		if res.Dropped > 0 {
			l.logger.Info("dropped rows without coordinates", "dropped", res.Dropped, "rows", res.Rows)
		}
		if l.metrics != nil {
			l.metrics.RowsDropped.Add(float64(res.Dropped))
		}
		incidents = res.Incidents
	case RestoreFromStore, RestoreFromSnapshot:
		r := l.store
		if kind == RestoreFromSnapshot {
			r = l.snapshot
		}
		if r == nil {
			return nil, fmt.Errorf("no restorer configured for %s source", kind)
		}
		restored, err := r.Restore(ctx)
		if err != nil {
			return nil, fmt.Errorf("restore from %s: %w", kind, err)
		}
		incidents = restored
	default:
		return nil, fmt.Errorf("unsupported source kind %s", kind)
	}

	if l.metrics != nil {
		l.metrics.IncidentsLoaded.WithLabelValues(kind.String()).Add(float64(len(incidents)))
	}
	l.logger.Info("crime data loaded", "source", kind.String(), "incidents", len(incidents))
	return domain.NewTable(incidents), nil
}
