// Package errors defines the S3-compatible error responses returned by the
// bleepbridge gateway.
package errors

import "fmt"

// S3Error represents an S3 API error with a machine-readable code,
// human-readable message, HTTP status code, and optional extra fields.
type S3Error struct {
	// Code is the S3 error code (e.g., "NoSuchKey", "InternalError").
	Code string
	// Message is a human-readable description of the error.
	Message string
	// HTTPStatus is the HTTP status code to return (e.g., 404, 502).
	HTTPStatus int
	// ExtraFields holds additional key-value pairs included in the XML error response.
	ExtraFields map[string]string
}

// Error implements the error interface for S3Error.
func (e *S3Error) Error() string {
	return fmt.Sprintf("S3Error %s (%d): %s", e.Code, e.HTTPStatus, e.Message)
}

// WithExtra returns a copy of the S3Error with the given extra field set.
func (e *S3Error) WithExtra(key, value string) *S3Error {
	cp := *e
	cp.ExtraFields = make(map[string]string, len(e.ExtraFields)+1)
	for k, v := range e.ExtraFields {
		cp.ExtraFields[k] = v
	}
	cp.ExtraFields[key] = value
	return &cp
}

// WithMessage returns a copy of the S3Error carrying msg instead of the
// default message.
func (e *S3Error) WithMessage(msg string) *S3Error {
	cp := *e
	cp.Message = msg
	return &cp
}

// Pre-defined S3 errors for the conditions the gateway reports.
var (
	// ErrNoSuchKey is returned when the backend reports the object missing.
	ErrNoSuchKey = &S3Error{
		Code:       "NoSuchKey",
		Message:    "The specified key does not exist",
		HTTPStatus: 404,
	}

	// ErrAccessDenied is returned when the backend rejects the credentials.
	ErrAccessDenied = &S3Error{
		Code:       "AccessDenied",
		Message:    "Access Denied",
		HTTPStatus: 403,
	}

	// ErrInternalError is returned for unexpected internal failures.
	ErrInternalError = &S3Error{
		Code:       "InternalError",
		Message:    "We encountered an internal error. Please try again.",
		HTTPStatus: 500,
	}

	// ErrBadGateway is returned when the upstream storage backend fails.
	ErrBadGateway = &S3Error{
		Code:       "InternalError",
		Message:    "The storage backend returned an error",
		HTTPStatus: 502,
	}

	// ErrNotImplemented is returned for S3 operations the gateway does not offer.
	ErrNotImplemented = &S3Error{
		Code:       "NotImplemented",
		Message:    "A header or operation you provided implies functionality that is not implemented",
		HTTPStatus: 501,
	}

	// ErrInvalidArgument is returned when a request argument is invalid.
	ErrInvalidArgument = &S3Error{
		Code:       "InvalidArgument",
		Message:    "Invalid Argument",
		HTTPStatus: 400,
	}

	// ErrInvalidRequest is returned when the request is malformed.
	ErrInvalidRequest = &S3Error{
		Code:       "InvalidRequest",
		Message:    "Invalid Request",
		HTTPStatus: 400,
	}

	// ErrServiceUnavailable is returned when no backend is configured.
	ErrServiceUnavailable = &S3Error{
		Code:       "ServiceUnavailable",
		Message:    "Reduce your request rate",
		HTTPStatus: 503,
	}
)
