package render

import (
	"fmt"
	"math"
	"sort"

	"github.com/couchcryptid/crime-map-etl/internal/domain"
)

// Column names used by CountSource.
const (
	ColumnLon  = "lon"
	ColumnLat  = "lat"
	ColumnQty  = "qty"
	ColumnSize = "size"
)

// PointSource is a column-oriented point table: equal-length numeric
// columns, two of which hold longitude and latitude.
type PointSource struct {
	columns map[string][]float64
	n       int
}

// NewPointSource starts a source from longitude and latitude columns.
func NewPointSource(lon, lat []float64) (*PointSource, error) {
	if len(lon) != len(lat) {
		return nil, fmt.Errorf("lon has %d values, lat has %d", len(lon), len(lat))
	}
	return &PointSource{
		columns: map[string][]float64{ColumnLon: lon, ColumnLat: lat},
		n:       len(lon),
	}, nil
}

// AddColumn attaches another column. Its length must match.
func (s *PointSource) AddColumn(name string, values []float64) error {
	if len(values) != s.n {
		return fmt.Errorf("column %s has %d values, want %d", name, len(values), s.n)
	}
	s.columns[name] = values
	return nil
}

// Len reports the number of points.
func (s *PointSource) Len() int { return s.n }

// Column returns a column by name.
func (s *PointSource) Column(name string) ([]float64, bool) {
	c, ok := s.columns[name]
	return c, ok
}

func (s *PointSource) names() []string {
	out := make([]string, 0, len(s.columns))
	for name := range s.columns {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CountSource builds the lon/lat/qty/size source for an aggregate series;
// size is the count times sizeScale.
func CountSource(series []domain.CoordinateCount, sizeScale float64) *PointSource {
	n := len(series)
	lon, lat := make([]float64, n), make([]float64, n)
	qty, size := make([]float64, n), make([]float64, n)
	for i, c := range series {
		lon[i], lat[i] = c.Key.Lon, c.Key.Lat
		qty[i] = float64(c.Count)
		size[i] = float64(c.Count) * sizeScale
	}
	return &PointSource{
		columns: map[string][]float64{
			ColumnLon:  lon,
			ColumnLat:  lat,
			ColumnQty:  qty,
			ColumnSize: size,
		},
		n: n,
	}
}

// Size selects point size from a named column or a constant.
type Size struct {
	Column   string
	Constant float64
}

// SizeFromColumn sizes each point by a column value.
func SizeFromColumn(name string) Size { return Size{Column: name} }

// ConstantSize gives every point the same size.
func ConstantSize(v float64) Size { return Size{Constant: v} }

func (sz Size) String() string {
	if sz.Column != "" {
		return sz.Column
	}
	return fmt.Sprintf("%g", sz.Constant)
}

func (sz Size) resolve(s *PointSource) ([]float64, error) {
	if sz.Column == "" {
		out := make([]float64, s.n)
		for i := range out {
			out[i] = sz.Constant
		}
		return out, nil
	}
	col, ok := s.columns[sz.Column]
	if !ok {
		return nil, fmt.Errorf("size column %q not in point source", sz.Column)
	}
	for i, v := range col {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("size column %q: non-finite value at row %d", sz.Column, i)
		}
	}
	return col, nil
}
