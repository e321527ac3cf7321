// Package aggregate reduces an incident table to per-location counts.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/couchcryptid/crime-map-etl/internal/domain"
)

// MaxPrecision bounds the rounding precision; beyond it float64 rounding is noise.
const MaxPrecision = 10

// Counts groups the table by coordinate key at the given precision and counts
// the members of each group. Grouping is exact match on the rounded value.
func Counts(tbl *domain.Table, lonCol, latCol string, precision int) (map[domain.CoordinateKey]int, error) {
	if precision < 0 || precision > MaxPrecision {
		return nil, fmt.Errorf("precision %d out of range [0, %d]", precision, MaxPrecision)
	}

	keys, err := tbl.CoordinateKeys(lonCol, latCol, precision)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	counts := make(map[domain.CoordinateKey]int)
	for _, k := range keys {
		counts[k]++
	}
	return counts, nil
}

// Series orders a count mapping by descending count, then by longitude and
// latitude, giving a deterministic ordered series.
func Series(counts map[domain.CoordinateKey]int) []domain.CoordinateCount {
	out := make([]domain.CoordinateCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, domain.CoordinateCount{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Key.Lon != out[j].Key.Lon {
			return out[i].Key.Lon < out[j].Key.Lon
		}
		return out[i].Key.Lat < out[j].Key.Lat
	})
	return out
}

// Total sums all counts in the mapping.
func Total(counts map[domain.CoordinateKey]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}
