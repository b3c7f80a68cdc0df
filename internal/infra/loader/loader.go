// internal/infra/loader/loader.go
package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"license_notification_bot/internal/domain/license"
)

// Format identifies which adapter decodes a source.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// FormatOf resolves the adapter for a file name by its extension.
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", &license.UnsupportedFormatError{Path: name}
	}
}

// FileLoader implements license.FileLoader for local files.
type FileLoader struct{}

func NewFileLoader() *FileLoader {
	return &FileLoader{}
}

// LoadFile opens path read-only and decodes it according to its extension.
func (l *FileLoader) LoadFile(path string) ([]license.Record, error) {
	if _, err := FormatOf(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open license file: %w", err)
	}
	defer f.Close()

	return Load(path, f)
}

// Load decodes r using the adapter chosen by name's extension.
// name is also used as the Source label of every produced record.
func Load(name string, r io.Reader) ([]license.Record, error) {
	format, err := FormatOf(name)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatYAML:
		return ParseYAML(name, r)
	default:
		return ParseCSV(name, r)
	}
}
