package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
	ErrNoRows      = errors.New("db: no rows")
)

// Op names used for error context.
const (
	OpExecuteStatement = "ExecuteStatement"
	OpRunQuery         = "run_query"
	OpGet              = "GET"
	OpSet              = "SET"
	OpPing             = "PING"
	OpConnect          = "connect"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
