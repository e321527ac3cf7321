package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/crime-map-etl/internal/domain"
)

// Columns is the fixed input schema, in file order. The header row is
// skipped; fields are mapped by position.
var Columns = [...]string{
	"Dc_Dist", "Psa", "Dispatch_Date_Time", "Dispatch_Date",
	"Dispatch_Time", "Hour", "Dc_Key", "Location_Block", "UCR_General",
	"Text_General_Code", "Police_Districts", "Month", "Lon", "Lat",
}

// RowError reports a malformed input row. It aborts the whole load.
type RowError struct {
	Line   int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: column %s: %v", e.Line, e.Column, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// CSVResult is the outcome of parsing a crime CSV.
type CSVResult struct {
	Incidents []domain.Incident
	Rows      int // data rows read, excluding the header
	Dropped   int // rows without coordinates
}

// LoadCSV opens and parses the crime CSV at path.
func LoadCSV(path string) (*CSVResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open crime csv: %w", err)
	}
	defer f.Close()

	res, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return res, nil
}

// ReadCSV parses and normalizes crime rows from r. Any malformed row fails
// the whole read with a *RowError; rows lacking a coordinate are dropped and
// counted.
func ReadCSV(r io.Reader) (*CSVResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(Columns)
	reader.ReuseRecord = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return &CSVResult{}, nil
		}
		return nil, toRowError(err, 1)
	}

	res := &CSVResult{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, toRowError(err, res.Rows+2)
		}
		line, _ := reader.FieldPos(0)
		res.Rows++

		inc, err := domain.ParseRawRecord(recordFromRow(row))
		if errors.Is(err, domain.ErrNoCoordinates) {
			res.Dropped++
			continue
		}
		if err != nil {
			rowErr := &RowError{Line: line, Err: err}
			var fe *domain.FieldError
			if errors.As(err, &fe) {
				rowErr.Column = fe.Field
			}
			return nil, rowErr
		}
		res.Incidents = append(res.Incidents, inc)
	}
	return res, nil
}

func recordFromRow(row []string) domain.RawCSVRecord {
	return domain.RawCSVRecord{
		DcDist:           row[0],
		Psa:              row[1],
		DispatchDateTime: row[2],
		DispatchDate:     row[3],
		DispatchTime:     row[4],
		Hour:             row[5],
		DcKey:            row[6],
		LocationBlock:    row[7],
		UCRGeneral:       row[8],
		TextGeneralCode:  row[9],
		PoliceDistricts:  row[10],
		Month:            row[11],
		Lon:              row[12],
		Lat:              row[13],
	}
}

func toRowError(err error, line int) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &RowError{Line: pe.Line, Err: pe.Err}
	}
	return &RowError{Line: line, Err: err}
}
