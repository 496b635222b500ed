package domain

import (
	"errors"
	"fmt"
)

// Kind tags a failure so callers can decide what to do without string matching.
type Kind string

const (
	KindUnknown       Kind = "unknown"
	KindTransport     Kind = "transport_failure"
	KindNotFound      Kind = "not_found"
	KindMalformed     Kind = "malformed_data"
	KindRouteNotFound Kind = "route_not_found"
	KindOrder         Kind = "order_failure"
	KindConfig        Kind = "config_invalid"
)

// Sentinels for errors.Is checks. They match any *Error of the same kind.
var (
	ErrTransportFailure = &Error{Kind: KindTransport}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrMalformedData    = &Error{Kind: KindMalformed}
	ErrRouteNotFound    = &Error{Kind: KindRouteNotFound}
	ErrOrderFailure     = &Error{Kind: KindOrder}
	ErrConfigInvalid    = &Error{Kind: KindConfig}
)

// Error is a tagged failure with the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// E wraps err with a kind and operation name.
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf is E with a formatted cause.
func Errorf(kind Kind, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the outermost kind in the chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
