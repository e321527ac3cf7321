package domain

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNoCoordinates marks a record without latitude or longitude. Such rows
// are dropped by the loader rather than failing the load.
var ErrNoCoordinates = errors.New("record has no coordinates")

var (
	// categorySlugRe collapses runs of non-alphanumerics for cache labels.
	categorySlugRe = regexp.MustCompile(`[^a-z0-9]+`)

	dispatchLayouts = []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006-01-02 15:04",
		"1/2/2006 15:04",
	}
)

// FieldError reports which field of a record failed coercion.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: invalid value %q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// ParseRawRecord coerces and normalizes one raw row. A malformed field
// returns a *FieldError. A row without coordinates returns ErrNoCoordinates
// after every other field has been validated, so a bad Month still fails the
// load even on rows that would be dropped.
func ParseRawRecord(rec RawCSVRecord) (Incident, error) {
	month, err := ParseMonth(rec.Month)
	if err != nil {
		return Incident{}, &FieldError{Field: "Month", Value: rec.Month, Err: err}
	}

	dispatched, err := parseDispatchTime(rec.DispatchDateTime)
	if err != nil {
		return Incident{}, &FieldError{Field: "Dispatch_Date_Time", Value: rec.DispatchDateTime, Err: err}
	}

	lon, hasLon, err := parseOptionalFloat(rec.Lon)
	if err != nil {
		return Incident{}, &FieldError{Field: "Lon", Value: rec.Lon, Err: err}
	}
	lat, hasLat, err := parseOptionalFloat(rec.Lat)
	if err != nil {
		return Incident{}, &FieldError{Field: "Lat", Value: rec.Lat, Err: err}
	}

	inc := Incident{
		DcDist:           rec.DcDist,
		Psa:              rec.Psa,
		DispatchDateTime: dispatched,
		DispatchDate:     rec.DispatchDate,
		DispatchTime:     rec.DispatchTime,
		Hour:             rec.Hour,
		DcKey:            rec.DcKey,
		LocationBlock:    rec.LocationBlock,
		UCRGeneral:       rec.UCRGeneral,
		Category:         NormalizeCategory(rec.TextGeneralCode),
		PoliceDistricts:  rec.PoliceDistricts,
		Month:            month,
		Lon:              lon,
		Lat:              lat,
	}

	if !hasLat || !hasLon {
		return inc, ErrNoCoordinates
	}
	return inc, nil
}

// ParseMonth parses an exact "YYYY-MM" string into the first instant of that
// month in UTC.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("month %q does not match YYYY-MM", s)
	}
	return t, nil
}

// FormatMonth is the inverse of ParseMonth.
func FormatMonth(t time.Time) string {
	return t.Format("2006-01")
}

// NormalizeCategory substitutes UnknownCategory for an empty category.
func NormalizeCategory(category string) string {
	if category == "" {
		return UnknownCategory
	}
	return category
}

// CategoryLabel derives a cache label from a category name,
// e.g. "Thefts From Vehicle" -> "thefts_from_vehicle".
func CategoryLabel(category string) string {
	s := categorySlugRe.ReplaceAllString(strings.ToLower(category), "_")
	return strings.Trim(s, "_")
}

// parseDispatchTime accepts the timestamp layouts seen in dispatch exports.
// An empty value yields the zero time.
func parseDispatchTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dispatchLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized timestamp layout")
}

// parseOptionalFloat parses s as float64. An empty value is reported as
// missing rather than as an error.
func parseOptionalFloat(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(v) {
		return 0, false, nil
	}
	return v, true, nil
}
