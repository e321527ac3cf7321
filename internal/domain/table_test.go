package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Column(t *testing.T) {
	tbl := NewTable([]Incident{{Lon: 1, Lat: 2}, {Lon: 3, Lat: 4}})

	lons, err := tbl.Column(ColumnLon)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, lons)

	lats, err := tbl.Column(ColumnLat)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4}, lats)

	_, err = tbl.Column("Hour")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Hour")
}

func TestTable_CoordinateKeys_Memoized(t *testing.T) {
	tbl := NewTable([]Incident{{Lon: -75.151, Lat: 39.994}})

	first, err := tbl.CoordinateKeys(ColumnLon, ColumnLat, 2)
	require.NoError(t, err)
	assert.Equal(t, []CoordinateKey{{Lon: -75.15, Lat: 39.99}}, first)

	// Mutating the table does not invalidate an existing derived column.
	tbl.Incidents[0].Lon = 10
	again, err := tbl.CoordinateKeys(ColumnLon, ColumnLat, 2)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	// A different precision is derived afresh.
	fine, err := tbl.CoordinateKeys(ColumnLon, ColumnLat, 1)
	require.NoError(t, err)
	assert.Equal(t, []CoordinateKey{{Lon: 10, Lat: 40}}, fine)
}

func TestTable_Filter(t *testing.T) {
	tbl := NewTable([]Incident{
		{Category: "Thefts"},
		{Category: "Fraud"},
		{Category: "Thefts"},
	})

	thefts := tbl.Filter(func(i Incident) bool { return i.Category == "Thefts" })

	assert.Equal(t, 2, thefts.Len())
	assert.Equal(t, 3, tbl.Len())
}

func TestClusterResult_Total(t *testing.T) {
	r := ClusterResult{{Count: 3}, {Count: 0}, {Count: 7}}
	assert.Equal(t, 10, r.Total())
}
