package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest signals caller input that cannot be served.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrDataAccess signals a failed remote SQL execution.
	ErrDataAccess = errors.New("data access failed")
	// ErrUnsupportedType signals an outbound value the codec cannot encode.
	ErrUnsupportedType = errors.New("unsupported parameter type")
	// ErrMalformedField signals an inbound wire field the codec could not decode.
	ErrMalformedField = errors.New("malformed field")
	// ErrRankingDegraded signals that hybrid ranking fell back to a weaker strategy.
	ErrRankingDegraded = errors.New("ranking degraded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// DataAccessError is a remote execution failure. Err carries the upstream message.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", ErrDataAccess.Error(), e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrDataAccess.Error(), e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() []error { return nonNil(ErrDataAccess, e.Err) }

// NewDataAccess creates a data access error for the given operation.
func NewDataAccess(op string, err error) error {
	return &DataAccessError{Op: op, Err: err}
}

// EncodeError reports a parameter the codec has no wire variant for.
// It is a programmer error and always fatal for the statement.
type EncodeError struct {
	Index int
	Type  string
	Err   error
}

func (e *EncodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: p%d (%s): %v", ErrUnsupportedType.Error(), e.Index, e.Type, e.Err)
	}
	return fmt.Sprintf("%s: p%d (%s)", ErrUnsupportedType.Error(), e.Index, e.Type)
}

func (e *EncodeError) Unwrap() []error { return nonNil(ErrUnsupportedType, e.Err) }

// DecodeError reports a field that decoded to nil. Never fatal.
type DecodeError struct {
	Row    int
	Column string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: row %d column %q: %s", ErrMalformedField.Error(), e.Row, e.Column, e.Reason)
}

func (e *DecodeError) Unwrap() error { return ErrMalformedField }

// RankingDegradation records why hybrid ranking was abandoned.
// Stage is "embed" or "query".
type RankingDegradation struct {
	Stage string
	Err   error
}

func (e *RankingDegradation) Error() string {
	return fmt.Sprintf("%s at %s: %v", ErrRankingDegraded.Error(), e.Stage, e.Err)
}

func (e *RankingDegradation) Unwrap() []error { return nonNil(ErrRankingDegraded, e.Err) }

func nonNil(errs ...error) []error {
	out := errs[:0:0]
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
