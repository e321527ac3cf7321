// Package render writes incident aggregates and clusters as standalone
// Leaflet HTML maps. A GeoJSON copy of each map's data is written beside it
// only when MapOptions.ExportGeoJSON is set.
package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/crime-map-etl/internal/domain"
	"github.com/couchcryptid/crime-map-etl/internal/observability"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// MapOptions positions the initial view. ExportGeoJSON adds a .geojson
// side file next to the HTML.
type MapOptions struct {
	CenterLat     float64
	CenterLng     float64
	Zoom          int
	Title         string
	ExportGeoJSON bool
}

func (o MapOptions) center() [2]float64 {
	return [2]float64{o.CenterLat, o.CenterLng}
}

// Renderer writes HTML maps.
type Renderer struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Renderer. metrics may be nil.
func New(logger *slog.Logger, metrics *observability.Metrics) *Renderer {
	return &Renderer{logger: logger, metrics: metrics}
}

func (r *Renderer) count(backend, outcome string) {
	if r.metrics != nil {
		r.metrics.MapsRendered.WithLabelValues(backend, outcome).Inc()
	}
}

// marshalTemplateJS encodes value as JSON and marks it safe for a script
// context.
func marshalTemplateJS(value any) (template.JS, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return template.JS(""), err
	}
	return template.JS(payload), nil
}

// GeoJSONPath returns the side file written next to an HTML map,
// e.g. "crime_plot.html" -> "crime_plot.geojson".
func GeoJSONPath(htmlPath string) string {
	return strings.TrimSuffix(htmlPath, filepath.Ext(htmlPath)) + ".geojson"
}

// writeMap executes the named template and writes the HTML file, plus the
// GeoJSON side file when sidecar is set.
func writeMap(name, path string, fc *geojson.FeatureCollection, data map[string]any, sidecar bool) error {
	payload, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	data["GeoJSON"] = template.JS(payload)
	data["GeneratedAt"] = domain.Now().UTC().Format(time.RFC3339)

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("execute %s: %w", name, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write map %s: %w", path, err)
	}
	if !sidecar {
		return nil
	}
	if err := os.WriteFile(GeoJSONPath(path), payload, 0o644); err != nil {
		return fmt.Errorf("write geojson %s: %w", GeoJSONPath(path), err)
	}
	return nil
}
