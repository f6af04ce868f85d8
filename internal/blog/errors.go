package blog

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a path has no valid current document, or an
// entity lookup names something that is not materialized.
var ErrNotFound = errors.New("not found")

// ParseError reports a malformed source document. The synchronizer recovers
// from it by indexing a degraded document instead of failing the lookup.
type ParseError struct {
	Message string
	Line    int // 1-based line in the source file, 0 if unknown
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// StoreError wraps a failure of the index store. It is fatal for the call
// that hit it and is never retried.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("index store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
