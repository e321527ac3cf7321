package source

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crime-map-etl/internal/domain"
)

const header = "Dc_Dist,Psa,Dispatch_Date_Time,Dispatch_Date,Dispatch_Time,Hour,Dc_Key,Location_Block,UCR_General,Text_General_Code,Police_Districts,Month,Lon,Lat\n"

func row(category, month, lon, lat string) string {
	return strings.Join([]string{
		"18", "3", "2009-10-02 14:24:00", "2009-10-02", "14:24:00", "14",
		"200918067518", "S 38TH ST  / MARKETUT ST", "800", category, "", month, lon, lat,
	}, ",") + "\n"
}

func TestReadCSV(t *testing.T) {
	input := header +
		row("Other Assaults", "2009-10", "-75.19", "39.95") +
		row("", "2009-10", "-75.16", "39.97") +
		row("Thefts", "2009-11", "-75.10", "") +
		row("Thefts", "2009-11", "", "40.01")

	res, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 4, res.Rows)
	assert.Equal(t, 2, res.Dropped)
	require.Len(t, res.Incidents, 2)

	first := res.Incidents[0]
	assert.Equal(t, "Other Assaults", first.Category)
	assert.Equal(t, time.Date(2009, time.October, 1, 0, 0, 0, 0, time.UTC), first.Month)
	assert.Equal(t, time.Date(2009, time.October, 2, 14, 24, 0, 0, time.UTC), first.DispatchDateTime)
	assert.InDelta(t, -75.19, first.Lon, 1e-12)
	assert.InDelta(t, 39.95, first.Lat, 1e-12)
	assert.Equal(t, "S 38TH ST  / MARKETUT ST", first.LocationBlock)

	assert.Equal(t, domain.UnknownCategory, res.Incidents[1].Category)

	for _, inc := range res.Incidents {
		assert.NotZero(t, inc.Lat)
	}
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		line   int
		column string
	}{
		{
			name:   "bad month",
			input:  header + row("Thefts", "2009-10", "-75.1", "39.9") + row("Thefts", "10/2009", "-75.1", "39.9"),
			line:   3,
			column: "Month",
		},
		{
			name:   "bad month on a row without coordinates",
			input:  header + row("Thefts", "2009-1", "", ""),
			line:   2,
			column: "Month",
		},
		{
			name:   "bad latitude",
			input:  header + row("Thefts", "2009-10", "-75.1", "north"),
			line:   2,
			column: "Lat",
		},
		{
			name:   "bad dispatch time",
			input:  header + strings.Replace(row("Thefts", "2009-10", "-75.1", "39.9"), "2009-10-02 14:24:00", "yesterday", 1),
			line:   2,
			column: "Dispatch_Date_Time",
		},
		{
			name:  "short row",
			input: header + "18,3,2009-10-02\n",
			line:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			require.Error(t, err)

			var rowErr *RowError
			require.ErrorAs(t, err, &rowErr)
			assert.Equal(t, tt.line, rowErr.Line)
			assert.Equal(t, tt.column, rowErr.Column)
		})
	}
}

func TestReadCSV_FieldCountError(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(header + "a,b\n"))
	assert.ErrorIs(t, err, csv.ErrFieldCount)
}

func TestReadCSV_Empty(t *testing.T) {
	t.Run("no bytes", func(t *testing.T) {
		res, err := ReadCSV(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, res.Incidents)
	})

	t.Run("header only", func(t *testing.T) {
		res, err := ReadCSV(strings.NewReader(header))
		require.NoError(t, err)
		assert.Equal(t, 0, res.Rows)
		assert.Empty(t, res.Incidents)
	})
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crime.csv")
	require.NoError(t, os.WriteFile(path, []byte(header+row("Thefts", "2010-01", "-75.2", "39.9")), 0o644))

	res, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Len(t, res.Incidents, 1)

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
