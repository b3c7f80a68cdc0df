package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq" // For QuoteIdentifier

	"license_notification_bot/internal/domain/license"
)

// rows is the subset of *sql.Rows read by the license table source.
type rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

type queryFunc func(ctx context.Context, query string) (rows, error)

// PostgresLicenseSource reads every row of a license table. Column names are
// treated like a spreadsheet header, so any column layout with the known
// keys (or their aliases) works.
type PostgresLicenseSource struct {
	table string
	query queryFunc
}

func NewPostgresLicenseSource(db *sql.DB, table string) *PostgresLicenseSource {
	return &PostgresLicenseSource{
		table: table,
		query: func(ctx context.Context, q string) (rows, error) {
			return db.QueryContext(ctx, q)
		},
	}
}

func (s *PostgresLicenseSource) Name() string {
	return "postgres:" + s.table
}

func (s *PostgresLicenseSource) Load(ctx context.Context) ([]license.Record, error) {
	query := fmt.Sprintf("SELECT * FROM %s", pq.QuoteIdentifier(s.table))
	rs, err := s.query(ctx, query)
	if err != nil {
		return nil, &license.RemoteLoadError{Source: s.Name(), Err: err}
	}
	defer rs.Close()

	columns, err := rs.Columns()
	if err != nil {
		return nil, &license.RemoteLoadError{Source: s.Name(), Err: fmt.Errorf("error reading columns: %w", err)}
	}

	table := [][]string{columns}
	values := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	for rs.Next() {
		if err := rs.Scan(dest...); err != nil {
			return nil, &license.RemoteLoadError{Source: s.Name(), Err: fmt.Errorf("error scanning license row: %w", err)}
		}
		row := make([]string, len(values))
		for i, v := range values {
			if v.Valid {
				row[i] = v.String
			}
		}
		table = append(table, row)
	}
	if err := rs.Err(); err != nil {
		return nil, &license.RemoteLoadError{Source: s.Name(), Err: fmt.Errorf("error iterating license rows: %w", err)}
	}

	return license.FromRows(s.Name(), table), nil
}
