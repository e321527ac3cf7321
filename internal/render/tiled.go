package render

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/crime-map-etl/internal/adapter/mapbox"
)

// hoverTooltips turns on the coordinate/size tooltip of the tiled overlay.
// Off until tooltips stay readable over dense areas.
const hoverTooltips = false

const (
	pointFill       = "blue"
	pointSelectFill = "orange"
	pointOpacity    = 0.8
	mapboxAttrib    = `&copy; <a href="https://www.mapbox.com/about/maps/">Mapbox</a> &copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a>`
)

// KeyStatus reports whether the tiled overlay got authenticated tiles.
type KeyStatus string

const (
	KeyLoaded     KeyStatus = "loaded"
	KeyMissing    KeyStatus = "missing"    // key file absent
	KeyEmpty      KeyStatus = "empty"      // key file has no key
	KeyUnreadable KeyStatus = "unreadable" // key file could not be read
)

// Degraded reports whether the map was rendered without a tile backdrop.
func (k KeyStatus) Degraded() bool { return k != KeyLoaded }

// TiledOptions configure the tiled-service overlay.
type TiledOptions struct {
	MapOptions
	Style   string // Mapbox style, e.g. "mapbox/streets-v12"
	KeyFile string // first line holds the access token
}

// TiledResult describes a written tiled-service map. GeoJSONPath is empty
// unless the side file was written.
type TiledResult struct {
	Path        string
	GeoJSONPath string
	Points      int
	Key         KeyStatus
	KeyErr      error
}

// Tiled draws src as circles over Mapbox raster tiles and writes the map to
// path. A missing or unusable key file degrades the map to no backdrop and
// is reported in the result, not as an error.
func (r *Renderer) Tiled(src *PointSource, size Size, opts TiledOptions, path string) (*TiledResult, error) {
	sizes, err := size.resolve(src)
	if err != nil {
		return nil, err
	}

	res := &TiledResult{Path: path, Points: src.Len()}
	if opts.ExportGeoJSON {
		res.GeoJSONPath = GeoJSONPath(path)
	}
	tileURL := ""
	token, keyErr := mapbox.ReadAPIKey(opts.KeyFile)
	switch {
	case keyErr == nil:
		res.Key = KeyLoaded
		tileURL = mapbox.TileURL(opts.Style, token)
	case errors.Is(keyErr, fs.ErrNotExist):
		res.Key = KeyMissing
	case errors.Is(keyErr, mapbox.ErrNoAPIKey):
		res.Key = KeyEmpty
	default:
		res.Key = KeyUnreadable
	}
	res.KeyErr = keyErr
	if res.Key.Degraded() {
		r.logger.Warn("no Mapbox API key, rendering without map tiles",
			"key_file", opts.KeyFile, "status", string(res.Key), "error", keyErr)
	}

	fc := tiledFeatures(src, sizes)
	options, err := marshalTemplateJS(struct {
		Center      [2]float64 `json:"center"`
		Zoom        int        `json:"zoom"`
		TileURL     string     `json:"tileURL"`
		Attribution string     `json:"attribution"`
		Hover       bool       `json:"hover"`
		Fill        string     `json:"fill"`
		SelectFill  string     `json:"selectFill"`
		FillOpacity float64    `json:"fillOpacity"`
	}{
		Center:      opts.center(),
		Zoom:        opts.Zoom,
		TileURL:     tileURL,
		Attribution: mapboxAttrib,
		Hover:       hoverTooltips,
		Fill:        pointFill,
		SelectFill:  pointSelectFill,
		FillOpacity: pointOpacity,
	})
	if err != nil {
		return nil, fmt.Errorf("encode map options: %w", err)
	}

	notice := ""
	if res.Key.Degraded() {
		notice = fmt.Sprintf("Map tiles unavailable: no Mapbox API key in %s.", opts.KeyFile)
	}

	err = writeMap("tiled.html", path, fc, map[string]any{
		"Title":     opts.Title,
		"Options":   options,
		"KeyNotice": notice,
		"Points":    src.Len(),
	}, opts.ExportGeoJSON)
	if err != nil {
		return nil, err
	}

	outcome := "ok"
	if res.Key.Degraded() {
		outcome = "degraded"
	}
	r.count("tiled", outcome)
	r.logger.Info("tiled map written", "path", path, "points", src.Len(), "size", size.String(), "key", string(res.Key))
	return res, nil
}

func tiledFeatures(src *PointSource, sizes []float64) *geojson.FeatureCollection {
	lon, _ := src.Column(ColumnLon)
	lat, _ := src.Column(ColumnLat)
	names := src.names()

	fc := geojson.NewFeatureCollection()
	for i := 0; i < src.Len(); i++ {
		f := geojson.NewFeature(orb.Point{lon[i], lat[i]})
		for _, name := range names {
			if name == ColumnLon || name == ColumnLat {
				continue
			}
			f.Properties[name] = src.columns[name][i]
		}
		f.Properties["marker_size"] = sizes[i]
		fc.Append(f)
	}
	return fc
}
