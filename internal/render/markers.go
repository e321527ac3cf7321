package render

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/crime-map-etl/internal/domain"
)

// ErrUnsupportedInput is reported in MarkerResult.Err when Markers receives
// a value it cannot draw.
var ErrUnsupportedInput = errors.New("unsupported marker input")

// MarkerOptions configure the open-tile marker overlay.
type MarkerOptions struct {
	MapOptions
	Scale     float64 // marker radius in meters per incident
	FillColor string
}

// MarkerResult describes a written marker map. GeoJSONPath is empty unless
// the side file was written. Err is set, and Markers is zero, when the input
// type was not recognized.
type MarkerResult struct {
	Path        string
	GeoJSONPath string
	Markers     int
	Err         error
}

type marker struct {
	lon, lat float64
	count    int
	tooltip  string
}

// Markers draws one circle per entry of input on an OpenStreetMap basemap,
// with radius count×Scale meters and a popup holding the count. input may be
// a map[domain.CoordinateKey]int, a []domain.CoordinateCount series, a
// domain.ClusterResult, or a []domain.ClusterSite. Anything else writes an
// empty map and sets Err to ErrUnsupportedInput.
func (r *Renderer) Markers(input any, opts MarkerOptions, path string) (*MarkerResult, error) {
	res := &MarkerResult{Path: path}
	if opts.ExportGeoJSON {
		res.GeoJSONPath = GeoJSONPath(path)
	}

	markers, ok := toMarkers(input)
	if !ok {
		res.Err = fmt.Errorf("%w: %T", ErrUnsupportedInput, input)
		r.logger.Warn("marker input not recognized, rendering an empty map",
			"path", path, "type", fmt.Sprintf("%T", input))
	}

	fc := geojson.NewFeatureCollection()
	for _, m := range markers {
		f := geojson.NewFeature(orb.Point{m.lon, m.lat})
		f.Properties["count"] = m.count
		f.Properties["radius"] = float64(m.count) * opts.Scale
		f.Properties["popup"] = strconv.Itoa(m.count)
		if m.tooltip != "" {
			f.Properties["tooltip"] = m.tooltip
		}
		fc.Append(f)
	}
	res.Markers = len(fc.Features)

	options, err := marshalTemplateJS(struct {
		Center [2]float64 `json:"center"`
		Zoom   int        `json:"zoom"`
		Fill   string     `json:"fill"`
	}{Center: opts.center(), Zoom: opts.Zoom, Fill: opts.FillColor})
	if err != nil {
		return nil, fmt.Errorf("encode map options: %w", err)
	}

	err = writeMap("markers.html", path, fc, map[string]any{
		"Title":   opts.Title,
		"Options": options,
	}, opts.ExportGeoJSON)
	if err != nil {
		return nil, err
	}

	outcome := "ok"
	if res.Markers == 0 {
		outcome = "empty"
	}
	r.count("marker", outcome)
	r.logger.Info("marker map written", "path", path, "markers", res.Markers)
	return res, nil
}

func toMarkers(input any) ([]marker, bool) {
	switch v := input.(type) {
	case map[domain.CoordinateKey]int:
		keys := make([]domain.CoordinateKey, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].Lon != keys[j].Lon {
				return keys[i].Lon < keys[j].Lon
			}
			return keys[i].Lat < keys[j].Lat
		})
		out := make([]marker, len(keys))
		for i, k := range keys {
			out[i] = marker{lon: k.Lon, lat: k.Lat, count: v[k]}
		}
		return out, true
	case []domain.CoordinateCount:
		out := make([]marker, len(v))
		for i, c := range v {
			out[i] = marker{lon: c.Key.Lon, lat: c.Key.Lat, count: c.Count}
		}
		return out, true
	case domain.ClusterResult:
		out := make([]marker, len(v))
		for i, c := range v {
			out[i] = marker{lon: c.Center.Lon, lat: c.Center.Lat, count: c.Count}
		}
		return out, true
	case []domain.ClusterSite:
		out := make([]marker, len(v))
		for i, s := range v {
			out[i] = marker{lon: s.Center.Lon, lat: s.Center.Lat, count: s.Count, tooltip: siteTooltip(s)}
		}
		return out, true
	default:
		return nil, false
	}
}

func siteTooltip(s domain.ClusterSite) string {
	switch {
	case s.PlaceName != "" && s.FormattedAddress != "":
		return s.PlaceName + " (" + s.FormattedAddress + ")"
	case s.FormattedAddress != "":
		return s.FormattedAddress
	default:
		return s.PlaceName
	}
}
