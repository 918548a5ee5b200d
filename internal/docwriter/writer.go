// Package docwriter streams scoped key/value pairs into a self-describing
// text document. Callers open a scope, emit its pairs, close it, and finally
// collect the finished bytes. A writer that produced no scopes yields an
// empty document.
package docwriter

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Format names a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

var (
	// ErrTooLarge indicates the document outgrew the writer's size limit.
	ErrTooLarge = errors.New("docwriter: document exceeds size limit")
	// ErrState indicates calls arrived out of order (pair outside a scope,
	// nested scopes, unterminated scope).
	ErrState = errors.New("docwriter: invalid writer state")
	// ErrFormat indicates an unsupported format name.
	ErrFormat = errors.New("docwriter: unsupported format")
	// ErrEncoding indicates a scope, key or value that is not valid UTF-8.
	// None of the formats can carry such text without altering it.
	ErrEncoding = errors.New("docwriter: text is not valid UTF-8")
)

// Writer receives a document one scope at a time.
type Writer interface {
	BeginScope(name string) error
	Pair(key, value string) error
	EndScope() error
	Bytes() ([]byte, error)
}

// New returns a Writer for format. A positive limit caps the document size
// in bytes.
func New(format Format, limit int) (Writer, error) {
	switch format {
	case "", FormatJSON:
		return &jsonWriter{limit: limit}, nil
	case FormatYAML:
		return newYAMLWriter(limit), nil
	case FormatTOML:
		return &tomlWriter{limit: limit}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrFormat, format)
	}
}

// ParseFormat converts a name into a Format.
func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	case FormatTOML:
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrFormat, value)
	}
}

func checkText(values ...string) error {
	for _, v := range values {
		if !utf8.ValidString(v) {
			return fmt.Errorf("%w: %q", ErrEncoding, v)
		}
	}
	return nil
}

func checkLimit(limit, size int) error {
	if limit > 0 && size > limit {
		return fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, size, limit)
	}
	return nil
}

// scopeTracker implements the begin/pair/end bookkeeping shared by the
// tree-building writers.
type scopeTracker struct {
	open bool
}

func (t *scopeTracker) begin() error {
	if t.open {
		return fmt.Errorf("%w: scope already open", ErrState)
	}
	t.open = true
	return nil
}

func (t *scopeTracker) pair() error {
	if !t.open {
		return fmt.Errorf("%w: pair outside scope", ErrState)
	}
	return nil
}

func (t *scopeTracker) end() error {
	if !t.open {
		return fmt.Errorf("%w: no open scope", ErrState)
	}
	t.open = false
	return nil
}

func (t *scopeTracker) finish() error {
	if t.open {
		return fmt.Errorf("%w: unterminated scope", ErrState)
	}
	return nil
}
