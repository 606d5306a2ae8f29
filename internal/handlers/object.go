// Package handlers implements HTTP request handlers that expose a storage
// adapter through S3-shaped object operations.
package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	s3err "github.com/bleepstore/bleepbridge/internal/errors"
	"github.com/bleepstore/bleepbridge/internal/storage"
	"github.com/bleepstore/bleepbridge/internal/xmlutil"
)

// ObjectHandler contains handlers for object-level operations. Every request
// is forwarded to the configured adapter; nothing is stored locally.
type ObjectHandler struct {
	store storage.ObjectStorageClient
	// now is replaced in tests.
	now func() time.Time
}

// NewObjectHandler creates a new ObjectHandler over the given adapter.
func NewObjectHandler(store storage.ObjectStorageClient) *ObjectHandler {
	return &ObjectHandler{store: store, now: time.Now}
}

// PutObject handles PUT /{bucket}/{object}. The request body is streamed to
// the adapter and Content-Type is forwarded.
func (h *ObjectHandler) PutObject(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		xmlutil.WriteErrorResponse(w, r, s3err.ErrServiceUnavailable)
		return
	}

	params := storage.PutObjectParams{
		Bucket:      extractBucketName(r),
		Key:         extractObjectKey(r),
		Body:        r.Body,
		ContentType: r.Header.Get("Content-Type"),
	}
	if err := h.store.PutObject(r.Context(), params); err != nil {
		writeStorageError(w, r, "PutObject", err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetObject handles GET /{bucket}/{object} and streams the object body.
func (h *ObjectHandler) GetObject(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		xmlutil.WriteErrorResponse(w, r, s3err.ErrServiceUnavailable)
		return
	}

	reader, err := h.store.GetObject(r.Context(), storage.GetObjectParams{
		Bucket: extractBucketName(r),
		Key:    extractObjectKey(r),
	})
	if err != nil {
		writeStorageError(w, r, "GetObject", err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		// Headers are already sent; the client sees a truncated body.
		slog.Warn("GetObject stream error", "path", r.URL.Path, "error", err)
	}
}

// CopyObject handles PUT /{bucket}/{object} with an x-amz-copy-source header.
func (h *ObjectHandler) CopyObject(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		xmlutil.WriteErrorResponse(w, r, s3err.ErrServiceUnavailable)
		return
	}

	copySource := r.Header.Get("X-Amz-Copy-Source")
	srcBucket, srcKey, ok := parseCopySource(copySource)
	if !ok {
		xmlutil.WriteErrorResponse(w, r, s3err.ErrInvalidArgument.
			WithMessage("Copy Source must mention the source bucket and key: sourcebucket/sourcekey").
			WithExtra("ArgumentName", "x-amz-copy-source").
			WithExtra("ArgumentValue", copySource))
		return
	}

	params := storage.CopyObjectParams{
		Source:      storage.ObjectLocation{Bucket: srcBucket, Key: srcKey},
		Destination: storage.ObjectLocation{Bucket: extractBucketName(r), Key: extractObjectKey(r)},
	}
	if err := h.store.CopyObject(r.Context(), params); err != nil {
		writeStorageError(w, r, "CopyObject", err)
		return
	}

	xmlutil.RenderCopyObject(w, &xmlutil.CopyObjectResult{
		LastModified: xmlutil.FormatTimeS3(h.now()),
	})
}

// DeleteObject handles DELETE /{bucket}/{object}.
func (h *ObjectHandler) DeleteObject(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		xmlutil.WriteErrorResponse(w, r, s3err.ErrServiceUnavailable)
		return
	}

	err := h.store.DeleteObject(r.Context(), storage.DeleteObjectParams{
		Bucket: extractBucketName(r),
		Key:    extractObjectKey(r),
	})
	if err != nil {
		writeStorageError(w, r, "DeleteObject", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
