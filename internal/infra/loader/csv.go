package loader

import (
	"encoding/csv"
	"errors"
	"io"

	"license_notification_bot/internal/domain/license"
)

// ParseCSV streams delimited rows; the first row holds the column headers.
// An empty source yields no records.
func ParseCSV(name string, r io.Reader) ([]license.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = false

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []license.Record{}, nil
	}
	if err != nil {
		return nil, &license.ParseError{Path: name, Err: err}
	}

	rows := [][]string{header}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &license.ParseError{Path: name, Err: err}
		}
		rows = append(rows, row)
	}

	return license.FromRows(name, rows), nil
}
