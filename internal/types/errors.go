package types

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure modes.
var (
	ErrTimeout         = errors.New("timed out waiting for element")
	ErrNotInteractable = errors.New("element is not interactable")
	ErrUnsupported     = errors.New("operation not supported by this session")
	ErrSessionClosed   = errors.New("session has been closed")
)

// TransientPageError reports a page-level condition that ends pagination
// early without failing the run (load timeout, missing "next" control).
type TransientPageError struct {
	Stage string
	URL   string
	Err   error
}

func (e *TransientPageError) Error() string {
	return fmt.Sprintf("transient page error during %s at %s: %v", e.Stage, e.URL, e.Err)
}

func (e *TransientPageError) Unwrap() error { return e.Err }

// TileExtractionError reports a product tile whose mandatory fields could not
// be located. The tile is skipped.
type TileExtractionError struct {
	Index int
	Field string
	Err   error
}

func (e *TileExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tile %d: mandatory field %q: %v", e.Index, e.Field, e.Err)
	}
	return fmt.Sprintf("tile %d: mandatory field %q not found", e.Index, e.Field)
}

func (e *TileExtractionError) Unwrap() error { return e.Err }

// ParseError wraps a malformed field value.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s (value=%q): %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError reports required columns absent from a tabular input.
type SchemaError struct {
	Path    string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error in %s: missing required column(s) %s", e.Path, strings.Join(e.Missing, ", "))
}

// InputNotFoundError reports that a stage's input file does not exist.
type InputNotFoundError struct {
	Path string
	Hint string
}

func (e *InputNotFoundError) Error() string {
	msg := fmt.Sprintf("input file %q was not found", e.Path)
	if e.Hint != "" {
		msg += "; " + e.Hint
	}
	return msg
}

// StorageError wraps errors that occur during storage/export.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps errors that occur in the normalization pipeline.
type PipelineError struct {
	Stage string
	URL   string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q (url=%s): %v", e.Stage, e.URL, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
