package domain

import (
	"fmt"
	"math"
	"time"
)

// Column names accepted by Table.Column and Table.CoordinateKeys.
const (
	ColumnLon = "Lon"
	ColumnLat = "Lat"
)

// UnknownCategory replaces an empty Text_General_Code.
const UnknownCategory = "Unknown"

// RawCSVRecord is one input row, positionally mapped from the 14-column schema.
type RawCSVRecord struct {
	DcDist           string
	Psa              string
	DispatchDateTime string
	DispatchDate     string
	DispatchTime     string
	Hour             string
	DcKey            string
	LocationBlock    string
	UCRGeneral       string
	TextGeneralCode  string
	PoliceDistricts  string
	Month            string
	Lon              string
	Lat              string
}

// Incident is one normalized crime event.
type Incident struct {
	DcDist           string    `json:"dc_dist"`
	Psa              string    `json:"psa"`
	DispatchDateTime time.Time `json:"dispatch_date_time"`
	DispatchDate     string    `json:"dispatch_date"`
	DispatchTime     string    `json:"dispatch_time"`
	Hour             string    `json:"hour"`
	DcKey            string    `json:"dc_key"`
	LocationBlock    string    `json:"location_block"`
	UCRGeneral       string    `json:"ucr_general"`
	Category         string    `json:"text_general_code"`
	PoliceDistricts  string    `json:"police_districts"`
	Month            time.Time `json:"month"`
	Lon              float64   `json:"lon"`
	Lat              float64   `json:"lat"`
}

// Coordinate is an unrounded WGS-84 longitude/latitude pair.
type Coordinate struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// CoordinateKey is a coordinate rounded to a fixed precision, used for grouping.
type CoordinateKey struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// String renders the key as "lon,lat" with full precision.
func (k CoordinateKey) String() string {
	return fmt.Sprintf("%g,%g", k.Lon, k.Lat)
}

// NewCoordinateKey rounds lon/lat half-to-even at the given number of decimals.
func NewCoordinateKey(lon, lat float64, precision int) CoordinateKey {
	return CoordinateKey{Lon: Round(lon, precision), Lat: Round(lat, precision)}
}

// Round rounds v half-to-even at the given number of decimals.
func Round(v float64, precision int) float64 {
	scale := math.Pow(10, float64(precision))
	return math.RoundToEven(v*scale) / scale
}

// CoordinateCount is one entry of an ordered coordinate -> count series.
type CoordinateCount struct {
	Key   CoordinateKey `json:"key"`
	Count int           `json:"count"`
}

// ClusterCount is one centroid of a clustering run and the number of points
// assigned to it. SpreadMeters is the distance from the center to its
// farthest member; zero for empty clusters.
type ClusterCount struct {
	Center       Coordinate `json:"center"`
	Count        int        `json:"count"`
	SpreadMeters float64    `json:"spread_meters"`
}

// ClusterResult holds exactly k clusters, in centroid order.
type ClusterResult []ClusterCount

// Total sums the member counts of all clusters.
func (r ClusterResult) Total() int {
	n := 0
	for _, c := range r {
		n += c.Count
	}
	return n
}

// ClusterSite is a cluster center annotated with reverse-geocoded place data.
type ClusterSite struct {
	ClusterCount
	PlaceName        string `json:"place_name,omitempty"`
	FormattedAddress string `json:"formatted_address,omitempty"`
	GeoSource        string `json:"geo_source,omitempty"` // "reverse", "original", "failed"
}
