package storage

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure by the contract operation that produced it.
type Kind int

const (
	// KindRetrieval marks a failed GetObject.
	KindRetrieval Kind = iota + 1
	// KindWrite marks a failed PutObject.
	KindWrite
	// KindCopy marks a failed CopyObject.
	KindCopy
	// KindDelete marks a failed DeleteObject.
	KindDelete
)

// Sentinels for errors.Is matching against an *Error's Kind.
var (
	ErrRetrieval = errors.New("storage: retrieval failed")
	ErrWrite     = errors.New("storage: write failed")
	ErrCopy      = errors.New("storage: copy failed")
	ErrDelete    = errors.New("storage: delete failed")

	// ErrConfigMismatch is returned by New when the request's Details do not
	// belong to its Type.
	ErrConfigMismatch = errors.New("storage: backend details do not match backend type")
)

// String returns the error kind name.
func (k Kind) String() string {
	switch k {
	case KindRetrieval:
		return "RetrievalError"
	case KindWrite:
		return "WriteError"
	case KindCopy:
		return "CopyError"
	case KindDelete:
		return "DeleteError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindRetrieval:
		return ErrRetrieval
	case KindWrite:
		return ErrWrite
	case KindCopy:
		return ErrCopy
	case KindDelete:
		return ErrDelete
	default:
		return nil
	}
}

// Error is the single error type produced by adapters. Message carries the
// backend-reported detail (HTTP status, vendor summary). Err, when set, is
// the native client error and is reachable through errors.Unwrap.
type Error struct {
	Kind    Kind
	Backend BackendType
	Message string
	// StatusCode is the HTTP status reported by the backend, or 0 when the
	// backend does not speak HTTP or no response was received.
	StatusCode int
	Err        error
}

// Error returns Message verbatim when there is no wrapped error, so vendor
// summaries come through untouched.
func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Message
	case e.Message == "":
		return e.Err.Error()
	default:
		return e.Message + ": " + e.Err.Error()
	}
}

// Unwrap returns the native client error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func newError(kind Kind, backend BackendType, msg string, err error) *Error {
	return &Error{Kind: kind, Backend: backend, Message: msg, Err: err}
}

// UnsupportedBackendError is returned by New for a discriminant tag that
// names no adapter.
type UnsupportedBackendError struct {
	Type string
}

func (e *UnsupportedBackendError) Error() string {
	return fmt.Sprintf("storage: unsupported backend type %q", e.Type)
}

// IsNotFound reports whether err is an adapter error caused by the backend
// answering 404.
func IsNotFound(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusNotFound
	}
	return false
}

// KindOf returns the operation kind of an adapter error, or 0.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}
