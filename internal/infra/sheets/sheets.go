// internal/infra/sheets/sheets.go
package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"license_notification_bot/internal/domain/license"
)

// Source reads license rows from one range of a Google spreadsheet. The first
// row of the range is the header.
type Source struct {
	service       *gsheets.Service
	spreadsheetID string
	readRange     string
}

// Credentials selects how the Sheets client authenticates. CredentialsFile
// wins over APIKey when both are set.
type Credentials struct {
	CredentialsFile string
	APIKey          string
}

func (c Credentials) clientOptions() []option.ClientOption {
	opts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsReadonlyScope)}
	switch {
	case c.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(c.CredentialsFile))
	case c.APIKey != "":
		opts = append(opts, option.WithAPIKey(c.APIKey))
	}
	return opts
}

// NewSource builds a Sheets-backed source. Extra options are appended after
// the credential options.
func NewSource(ctx context.Context, spreadsheetID, readRange string, creds Credentials, extra ...option.ClientOption) (*Source, error) {
	opts := append(creds.clientOptions(), extra...)
	service, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return &Source{service: service, spreadsheetID: spreadsheetID, readRange: readRange}, nil
}

func (s *Source) Name() string {
	return fmt.Sprintf("sheet:%s!%s", s.spreadsheetID, s.readRange)
}

// Load fetches the range and maps each data row to a record. Transport and
// authorization failures are returned as *license.RemoteLoadError.
func (s *Source) Load(ctx context.Context) ([]license.Record, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).Context(ctx).Do()
	if err != nil {
		return nil, &license.RemoteLoadError{Source: s.Name(), Err: err}
	}
	return license.FromRows(s.Name(), stringifyRows(resp.Values)), nil
}

func stringifyRows(values [][]interface{}) [][]string {
	rows := make([][]string, 0, len(values))
	for _, v := range values {
		row := make([]string, len(v))
		for i, cell := range v {
			if cell == nil {
				continue
			}
			row[i] = fmt.Sprint(cell)
		}
		rows = append(rows, row)
	}
	return rows
}
