// Package storage defines the uniform object storage contract for bleepbridge
// and the backend adapters that implement it.
//
// Every adapter translates the same four operations (fetch, write, copy,
// delete) into calls against one vendor client. Adapters hold nothing but
// their native client handle, so a caller can swap providers by changing
// the SelectionRequest handed to New.
package storage

import (
	"context"
	"io"
)

// ObjectLocation identifies one object on a backend. Neither field is
// validated here; an empty bucket or key surfaces as a backend error.
type ObjectLocation struct {
	Bucket string
	Key    string
}

// GetObjectParams selects the object to fetch.
type GetObjectParams = ObjectLocation

// DeleteObjectParams selects the object to delete.
type DeleteObjectParams = ObjectLocation

// PutObjectParams describes an upload. Body is consumed once. ContentType
// is optional; backends that cannot store it ignore it.
type PutObjectParams struct {
	Bucket      string
	Key         string
	Body        io.Reader
	ContentType string
}

// Location returns the target of the upload.
func (p PutObjectParams) Location() ObjectLocation {
	return ObjectLocation{Bucket: p.Bucket, Key: p.Key}
}

// CopyObjectParams names the source and destination of a copy.
type CopyObjectParams struct {
	Source      ObjectLocation
	Destination ObjectLocation
}

// ObjectStorageClient is the capability contract implemented by every
// backend adapter. Operations are independent of each other and carry no
// state between calls.
type ObjectStorageClient interface {
	// GetObject returns a stream positioned at the start of the object's
	// content. The caller must close it. Failures are RetrievalErrors.
	GetObject(ctx context.Context, params GetObjectParams) (io.ReadCloser, error)

	// PutObject uploads Body to the target location, replacing any existing
	// object. Failures are WriteErrors.
	PutObject(ctx context.Context, params PutObjectParams) error

	// CopyObject duplicates Source to Destination using the backend's native
	// copy mechanism. Failures are CopyErrors.
	CopyObject(ctx context.Context, params CopyObjectParams) error

	// DeleteObject removes the object. Whether deleting a missing object
	// fails is up to the backend. Failures are DeleteErrors.
	DeleteObject(ctx context.Context, params DeleteObjectParams) error
}
