package domain

import "fmt"

// Table is the in-memory incident table for one run.
//
// Derived coordinate-key columns are memoized per (lon column, lat column,
// precision), so repeated aggregation at the same precision reuses them.
type Table struct {
	Incidents []Incident

	derived map[string][]CoordinateKey
}

// NewTable wraps incidents in a Table.
func NewTable(incidents []Incident) *Table {
	return &Table{Incidents: incidents}
}

// Len reports the number of incidents.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Incidents)
}

// Column returns a numeric column by name. Only Lon and Lat are numeric.
func (t *Table) Column(name string) ([]float64, error) {
	var pick func(Incident) float64
	switch name {
	case ColumnLon:
		pick = func(i Incident) float64 { return i.Lon }
	case ColumnLat:
		pick = func(i Incident) float64 { return i.Lat }
	default:
		return nil, fmt.Errorf("unknown numeric column %q", name)
	}
	out := make([]float64, len(t.Incidents))
	for i := range t.Incidents {
		out[i] = pick(t.Incidents[i])
	}
	return out, nil
}

// CoordinateKeys returns the derived key column for the given columns and
// precision, computing it on first use.
func (t *Table) CoordinateKeys(lonCol, latCol string, precision int) ([]CoordinateKey, error) {
	id := fmt.Sprintf("%s|%s|%d", lonCol, latCol, precision)
	if keys, ok := t.derived[id]; ok {
		return keys, nil
	}

	lons, err := t.Column(lonCol)
	if err != nil {
		return nil, err
	}
	lats, err := t.Column(latCol)
	if err != nil {
		return nil, err
	}

	keys := make([]CoordinateKey, len(lons))
	for i := range lons {
		keys[i] = NewCoordinateKey(lons[i], lats[i], precision)
	}
	if t.derived == nil {
		t.derived = make(map[string][]CoordinateKey)
	}
	t.derived[id] = keys
	return keys, nil
}

// Coordinates returns every incident's unrounded coordinate.
func (t *Table) Coordinates() []Coordinate {
	out := make([]Coordinate, len(t.Incidents))
	for i := range t.Incidents {
		out[i] = Coordinate{Lon: t.Incidents[i].Lon, Lat: t.Incidents[i].Lat}
	}
	return out
}

// Filter returns a new Table holding the incidents for which keep is true.
func (t *Table) Filter(keep func(Incident) bool) *Table {
	var out []Incident
	for i := range t.Incidents {
		if keep(t.Incidents[i]) {
			out = append(out, t.Incidents[i])
		}
	}
	return NewTable(out)
}
