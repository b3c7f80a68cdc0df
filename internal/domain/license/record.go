// internal/domain/license/record.go
package license

import (
	"strconv"
	"strings"
	"time"
)

// Canonical keys as they appear in license source data.
const (
	KeyBankName    = "nama_bank"
	KeyLicense     = "license"
	KeyExpiredDate = "expired_date"
	KeyLastRenewed = "last_license"
)

// keyAliases maps accepted alternative column names onto the canonical keys.
var keyAliases = map[string]string{
	"bank_name":         KeyBankName,
	"bank":              KeyBankName,
	"license_id":        KeyLicense,
	"licence":           KeyLicense,
	"expiry_date":       KeyExpiredDate,
	"expiration_date":   KeyExpiredDate,
	"expires_at":        KeyExpiredDate,
	"last_renewed_date": KeyLastRenewed,
	"last_renewed":      KeyLastRenewed,
}

// Record is one license entry loaded from a source. Empty strings mean the
// field was absent. Records have no identity beyond their values.
type Record struct {
	BankName        string
	LicenseID       string
	ExpiredDate     string
	LastRenewedDate string
	Extra           map[string]string // uninterpreted fields from the source
	Source          string            // where the record was loaded from, for logging only
}

// Evaluation pairs a record with the whole days left until it expires.
type Evaluation struct {
	Record   Record
	DaysLeft int
}

// NormalizeKey lowercases a source key and folds spaces and dashes to underscores.
func NormalizeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.NewReplacer(" ", "_", "-", "_").Replace(k)
	if canonical, ok := keyAliases[k]; ok {
		return canonical
	}
	return k
}

// FromFields builds a Record from a flat key/value view of one source entry.
func FromFields(source string, fields map[string]string) Record {
	rec := Record{Source: source}
	for rawKey, rawValue := range fields {
		value := strings.TrimSpace(rawValue)
		switch key := NormalizeKey(rawKey); key {
		case KeyBankName:
			rec.BankName = value
		case KeyLicense:
			rec.LicenseID = value
		case KeyExpiredDate:
			rec.ExpiredDate = value
		case KeyLastRenewed:
			rec.LastRenewedDate = value
		default:
			if key == "" || value == "" {
				continue
			}
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[key] = value
		}
	}
	return rec
}

// FromRow maps one tabular row onto a Record using the header row as keys.
// Missing trailing cells are absent; cells beyond the header are kept as "_<index>".
func FromRow(source string, header, row []string) Record {
	fields := make(map[string]string, len(row))
	for i, cell := range row {
		if i < len(header) {
			fields[header[i]] = cell
			continue
		}
		fields["_"+strconv.Itoa(i)] = cell
	}
	return FromFields(source, fields)
}

// FromRows treats rows[0] as the header and maps every following row.
// Rows with no non-blank cell are skipped.
func FromRows(source string, rows [][]string) []Record {
	if len(rows) == 0 {
		return nil
	}
	header := append([]string(nil), rows[0]...)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		records = append(records, FromRow(source, header, row))
	}
	return records
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-1-2",
	"2006/1/2",
	"1/2/2006", // month/day as rendered by spreadsheets, padded or not
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

// ParseDate parses a textual calendar date and returns it as UTC midnight.
// Values carrying an offset are converted to UTC before the time of day is dropped.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		return DateOf(t.UTC()), true
	}
	return time.Time{}, false
}

// DateOf drops the time of day, keeping the calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ExpiryDate returns the parsed expiry date, or false when absent or unparseable.
func (r Record) ExpiryDate() (time.Time, bool) {
	return ParseDate(r.ExpiredDate)
}
