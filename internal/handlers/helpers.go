package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	s3err "github.com/bleepstore/bleepbridge/internal/errors"
	"github.com/bleepstore/bleepbridge/internal/storage"
	"github.com/bleepstore/bleepbridge/internal/xmlutil"
)

// extractBucketName extracts the bucket name from the URL path.
func extractBucketName(r *http.Request) string {
	path := strings.TrimPrefix(r.URL.Path, "/")
	// Find the first slash (if any) to separate bucket from key.
	if idx := strings.IndexByte(path, '/'); idx >= 0 {
		return path[:idx]
	}
	return path
}

// extractObjectKey extracts the object key from the request URL path.
// The key is everything after the bucket name in the path.
func extractObjectKey(r *http.Request) string {
	path := strings.TrimPrefix(r.URL.Path, "/")
	idx := strings.IndexByte(path, '/')
	if idx < 0 {
		return ""
	}
	return path[idx+1:]
}

// parseCopySource parses an x-amz-copy-source header value into bucket and key.
// The header may be URL-encoded and may or may not have a leading slash.
// Format: "/bucket/key" or "bucket/key".
func parseCopySource(header string) (bucket, key string, ok bool) {
	// URL-decode the header value.
	decoded, err := url.PathUnescape(header)
	if err != nil {
		return "", "", false
	}

	// S3 allows a trailing ?versionId=...; versions are not addressable here.
	if idx := strings.Index(decoded, "?versionId="); idx >= 0 {
		decoded = decoded[:idx]
	}

	// Trim leading slash.
	decoded = strings.TrimPrefix(decoded, "/")
	if decoded == "" {
		return "", "", false
	}

	// Split into bucket/key at the first slash.
	idx := strings.IndexByte(decoded, '/')
	if idx <= 0 || idx == len(decoded)-1 {
		return "", "", false
	}

	return decoded[:idx], decoded[idx+1:], true
}

// storageErrorResponse maps an adapter error to the S3 error the gateway
// returns. A backend 404 is NoSuchKey and a backend 403 is AccessDenied;
// every other adapter failure is reported as a 502 carrying the backend's
// message.
func storageErrorResponse(err error) *s3err.S3Error {
	var se *storage.Error
	if !errors.As(err, &se) {
		return s3err.ErrInternalError
	}
	switch se.StatusCode {
	case http.StatusNotFound:
		return s3err.ErrNoSuchKey
	case http.StatusForbidden:
		return s3err.ErrAccessDenied
	}
	return s3err.ErrBadGateway.WithMessage(se.Error())
}

// writeStorageError logs an adapter failure and renders the mapped error.
func writeStorageError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s3e := storageErrorResponse(err)
	level := slog.LevelWarn
	if s3e.HTTPStatus < http.StatusInternalServerError {
		level = slog.LevelDebug
	}
	slog.Log(r.Context(), level, "Storage operation failed",
		"operation", op, "path", r.URL.Path, "kind", storage.KindOf(err), "status", s3e.HTTPStatus, "error", err)
	xmlutil.WriteErrorResponse(w, r, s3e)
}
