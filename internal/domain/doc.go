// Package domain models municipal crime-incident data and the spatial
// aggregates derived from it.
//
// # Data Source
//
// Incidents come from a city police dispatch export: one CSV row per incident,
// one header row, fourteen fixed columns. The header names in the file are
// ignored; columns are read by position in this order:
//
//	Dc_Dist, Psa, Dispatch_Date_Time, Dispatch_Date, Dispatch_Time, Hour,
//	Dc_Key, Location_Block, UCR_General, Text_General_Code,
//	Police_Districts, Month, Lon, Lat
//
// All columns are kept as strings except Dispatch_Date_Time (timestamp),
// Month (first day of the month) and Lon/Lat (float64).
//
// # Normalization
//
// Month:
//
//	"YYYY-MM", e.g. "2016-03". Anything else fails the whole load.
//
// Category (Text_General_Code):
//
//	Empty values become the literal "Unknown".
//
// Coordinates:
//
//	Rows with an empty Lat or Lon are dropped at load time and never
//	recovered. Every Incident in a Table has both coordinates.
//
// # Coordinate keys
//
// A CoordinateKey is a (lon, lat) pair rounded half-to-even to a fixed number
// of decimals. Two decimals is roughly a 1 km cell at Philadelphia's
// latitude, five decimals roughly a 1 m cell. Incidents sharing a key are
// treated as co-located. The precision is always chosen by the caller.
package domain
