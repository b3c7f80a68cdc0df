package license

import "context"

// Source is a remote provider of license records, loaded once per cycle.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]Record, error)
}

// FileLoader reads a single local file into records.
type FileLoader interface {
	LoadFile(path string) ([]Record, error)
}
