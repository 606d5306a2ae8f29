package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// SelectionRequest pairs a discriminant tag with the configuration variant
// for that backend.
type SelectionRequest struct {
	Type    BackendType
	Details BackendConfig
}

// Constructors used by New. Tests replace them to capture arguments.
var (
	newS3Client = func(ctx context.Context, cfg S3Config) (ObjectStorageClient, error) {
		return NewS3Client(ctx, cfg)
	}
	newOCIClient = func(ctx context.Context, cfg OCIConfig) (ObjectStorageClient, error) {
		return NewOCIClient(ctx, cfg)
	}
	newAzureClient = func(ctx context.Context, cfg AzureConfig) (ObjectStorageClient, error) {
		return NewAzureClient(ctx, cfg)
	}
	newDropboxClient = func(_ context.Context, cfg DropboxConfig) (ObjectStorageClient, error) {
		return NewDropboxClient(cfg), nil
	}
	newFTPClient = func(_ context.Context, cfg FTPConfig) (ObjectStorageClient, error) {
		return NewFTPClient(cfg), nil
	}
)

// New constructs the adapter named by req.Type from req.Details. Every call
// builds a new adapter. An unknown tag yields *UnsupportedBackendError;
// Details belonging to another backend yield ErrConfigMismatch.
func New(ctx context.Context, req SelectionRequest) (ObjectStorageClient, error) {
	typ, err := ParseBackendType(string(req.Type))
	if err != nil {
		return nil, err
	}
	if req.Details == nil {
		return nil, fmt.Errorf("%w: no details for %s", ErrConfigMismatch, typ)
	}
	if got := req.Details.BackendType(); got != typ {
		return nil, fmt.Errorf("%w: type %s, details for %s", ErrConfigMismatch, typ, got)
	}

	var client ObjectStorageClient
	switch d := req.Details.(type) {
	case S3Config:
		client, err = newS3Client(ctx, d)
	case *S3Config:
		client, err = newS3Client(ctx, *d)
	case OCIConfig:
		client, err = newOCIClient(ctx, d)
	case *OCIConfig:
		client, err = newOCIClient(ctx, *d)
	case AzureConfig:
		client, err = newAzureClient(ctx, d)
	case *AzureConfig:
		client, err = newAzureClient(ctx, *d)
	case DropboxConfig:
		client, err = newDropboxClient(ctx, d)
	case *DropboxConfig:
		client, err = newDropboxClient(ctx, *d)
	case FTPConfig:
		client, err = newFTPClient(ctx, d)
	case *FTPConfig:
		client, err = newFTPClient(ctx, *d)
	default:
		return nil, fmt.Errorf("%w: unrecognized details type %T", ErrConfigMismatch, req.Details)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s storage client: %w", typ, err)
	}

	slog.Debug("Storage client selected", "backend", typ)
	return client, nil
}
