package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"license_notification_bot/internal/domain/license"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"a.yaml", FormatYAML},
		{"a.YML", FormatYAML},
		{"dir/b.csv", FormatCSV},
	}
	for _, tc := range tests {
		got, err := FormatOf(tc.name)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := FormatOf("notes.txt")
	var unsupported *license.UnsupportedFormatError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "notes.txt", unsupported.Path)
}

func TestParseYAMLSingleMapping(t *testing.T) {
	records, err := ParseYAML("acme.yaml", strings.NewReader(`
nama_bank: Acme
license: L1
expired_date: 2025-03-01
last_license: 2024-03-01
tier: gold
`))
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "Acme", rec.BankName)
	assert.Equal(t, "L1", rec.LicenseID)
	assert.Equal(t, "2025-03-01", rec.ExpiredDate, "dates keep their literal text")
	assert.Equal(t, "2024-03-01", rec.LastRenewedDate)
	assert.Equal(t, "gold", rec.Extra["tier"])
	assert.Equal(t, "acme.yaml", rec.Source)
}

func TestParseYAMLSequence(t *testing.T) {
	records, err := ParseYAML("list.yml", strings.NewReader(`
- nama_bank: Acme
  license: L1
  expired_date: "2025-03-01"
- just a string
- nama_bank: Beta
  expired_date: ~
  contacts:
    - ops@beta.example
`))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Acme", records[0].BankName)
	assert.Equal(t, "Beta", records[1].BankName)
	assert.Empty(t, records[1].ExpiredDate)
	assert.Nil(t, records[1].Extra)
}

func TestParseYAMLMultipleDocumentsAndAliases(t *testing.T) {
	records, err := ParseYAML("multi.yaml", strings.NewReader(`
nama_bank: Acme
license: L1
---
- nama_bank: &bank Beta
  license: L2
- nama_bank: *bank
  license: L3
`))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Acme", records[0].BankName)
	assert.Equal(t, "Beta", records[2].BankName)
	assert.Equal(t, "L3", records[2].LicenseID)
}

func TestParseYAMLEmpty(t *testing.T) {
	records, err := ParseYAML("empty.yaml", strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = ParseYAML("null.yaml", strings.NewReader("---\n~\n"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseYAMLMalformed(t *testing.T) {
	_, err := ParseYAML("bad.yaml", strings.NewReader("nama_bank: [unclosed\n"))

	var parseErr *license.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "bad.yaml", parseErr.Path)
}

func TestParseYAMLTopLevelScalar(t *testing.T) {
	_, err := ParseYAML("scalar.yaml", strings.NewReader("hello\n"))

	var parseErr *license.ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestParseCSV(t *testing.T) {
	records, err := ParseCSV("licenses.csv", strings.NewReader(
		"nama_bank,license,expired_date,last_license\n"+
			"Acme,L1,2025-03-01,2024-03-01\n"+
			"\n"+
			"Beta,L2\n"))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Acme", records[0].BankName)
	assert.Equal(t, "2024-03-01", records[0].LastRenewedDate)
	assert.Equal(t, "Beta", records[1].BankName)
	assert.Empty(t, records[1].ExpiredDate)
}

func TestParseCSVEmpty(t *testing.T) {
	records, err := ParseCSV("empty.csv", strings.NewReader(""))
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)

	records, err = ParseCSV("header.csv", strings.NewReader("nama_bank,license\n"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseCSVMalformed(t *testing.T) {
	_, err := ParseCSV("bad.csv", strings.NewReader("nama_bank,license\nAcme,\"L1\n"))

	var parseErr *license.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "bad.csv", parseErr.Path)
}

func TestFileLoaderLoadFile(t *testing.T) {
	dir := t.TempDir()
	yamlPath := writeFile(t, dir, "acme.yaml", "nama_bank: Acme\nlicense: L1\n")
	csvPath := writeFile(t, dir, "list.csv", "nama_bank,license\nBeta,L2\n")
	txtPath := writeFile(t, dir, "notes.txt", "nama_bank: Gamma\n")

	l := NewFileLoader()

	records, err := l.LoadFile(yamlPath)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, yamlPath, records[0].Source)

	records, err = l.LoadFile(csvPath)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Beta", records[0].BankName)

	records, err = l.LoadFile(txtPath)
	assert.Nil(t, records)
	var unsupported *license.UnsupportedFormatError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, txtPath, unsupported.Path)

	before, err := os.ReadFile(yamlPath)
	require.NoError(t, err)
	_, _ = l.LoadFile(yamlPath)
	after, err := os.ReadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFileLoaderMissingFile(t *testing.T) {
	_, err := NewFileLoader().LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
