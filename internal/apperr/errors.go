// Package apperr defines the error taxonomy shared by services, repositories
// and HTTP handlers. Every failure a service surfaces carries a Kind that the
// transport layer maps to a status code.
package apperr

import "errors"

type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthenticated
	KindPermissionDenied
	KindNotFound
	KindConflict
	KindInvalidArgument
	KindTimeout
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindPermissionDenied:
		return "permission_denied"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindTimeout:
		return "timeout"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func Unauthenticated(msg string) error {
	return &Error{Kind: KindUnauthenticated, Msg: msg}
}

func PermissionDenied(msg string) error {
	return &Error{Kind: KindPermissionDenied, Msg: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Msg: msg}
}

func InvalidArgument(msg string) error {
	return &Error{Kind: KindInvalidArgument, Msg: msg}
}

func Timeout(msg string, err error) error {
	return &Error{Kind: KindTimeout, Msg: msg, Err: err}
}

// Storage wraps an unexpected persistence failure. The enclosing transaction
// is rolled back by the runner; callers see a single normalized kind.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindStorage, Msg: "database error", Err: err}
}

// KindOf reports the Kind carried by err, or KindUnknown if err was not
// produced by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, k Kind) bool { return KindOf(err) == k }
