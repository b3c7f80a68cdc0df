package license

import "fmt"

// ParseError reports a source whose content could not be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// UnsupportedFormatError reports a file whose extension has no loader.
type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format: %s", e.Path)
}

// RemoteLoadError reports a transport or authorization failure of a remote source.
type RemoteLoadError struct {
	Source string
	Err    error
}

func (e *RemoteLoadError) Error() string {
	return fmt.Sprintf("failed to load remote source %s: %v", e.Source, e.Err)
}

func (e *RemoteLoadError) Unwrap() error { return e.Err }
