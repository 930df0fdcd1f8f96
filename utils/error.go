package utils

import (
	"errors"
	"fmt"
)

var (
	ErrorObjectNotFound = errors.New("object not found")
	ErrorRunLocked      = errors.New("run lock held by another instance")
)

// ErrorKind classifies why an invocation produced no output.
type ErrorKind string

const (
	ErrorKindConfiguration  ErrorKind = "configuration"
	ErrorKindMalformedInput ErrorKind = "malformed_input"
	ErrorKindStorage        ErrorKind = "storage"
	ErrorKindExtraction     ErrorKind = "extraction"
	ErrorKindBusy           ErrorKind = "busy"
	ErrorKindUnknown        ErrorKind = "unknown"
)

type AuditError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *AuditError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *AuditError) Unwrap() error {
	return e.Err
}

func NewAuditError(kind ErrorKind, op string, err error) error {
	return &AuditError{Kind: kind, Op: op, Err: err}
}

// ErrorKindOf returns the classified kind of err, or ErrorKindUnknown.
func ErrorKindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var auditErr *AuditError
	if errors.As(err, &auditErr) {
		return auditErr.Kind
	}
	return ErrorKindUnknown
}

// IsTransientError reports whether a retry of the same input could succeed.
func IsTransientError(err error) bool {
	switch ErrorKindOf(err) {
	case ErrorKindConfiguration, ErrorKindStorage, ErrorKindBusy:
		return true
	default:
		return false
	}
}
