package nutrition

import (
	"errors"
	"fmt"
)

// Sentinel kinds for analysis failures. Callers classify with errors.Is or KindOf.
var (
	ErrConfiguration      = errors.New("configuration error")
	ErrNotFound           = errors.New("not found")
	ErrParseFailure       = errors.New("parse failure")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Kind is the closed set of failure categories surfaced to callers.
type Kind string

const (
	KindConfiguration      Kind = "configuration"
	KindNotFound           Kind = "not_found"
	KindParseFailure       Kind = "parse_failure"
	KindStorageUnavailable Kind = "storage_unavailable"
	KindInternal           Kind = "internal"
)

// KindOf classifies err. Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrParseFailure):
		return KindParseFailure
	case errors.Is(err, ErrStorageUnavailable):
		return KindStorageUnavailable
	default:
		return KindInternal
	}
}

// NotFoundError reports a filter that matched no rows.
type NotFoundError struct {
	Filter string
}

func (e *NotFoundError) Error() string {
	return "No data found for diet type: " + e.Filter
}

// Is makes errors.Is(err, ErrNotFound) hold.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Wrap attaches a kind sentinel and an operation name to err.
// The returned message keeps err's text so it can be surfaced verbatim.
func Wrap(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &opError{op: op, kind: kind, err: err}
}

// Errorf builds a new error of the given kind.
func Errorf(op string, kind error, format string, args ...any) error {
	return Wrap(op, kind, fmt.Errorf(format, args...))
}

type opError struct {
	op   string
	kind error
	err  error
}

func (e *opError) Error() string { return e.err.Error() }

func (e *opError) Unwrap() []error { return []error{e.kind, e.err} }

// Op returns the operation that produced err, if any.
func Op(err error) string {
	var oe *opError
	if errors.As(err, &oe) {
		return oe.op
	}
	return ""
}
