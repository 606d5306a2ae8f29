package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ociCompatEndpoint returns the tenant-specific S3 compatibility endpoint
// for OCI Object Storage.
func ociCompatEndpoint(namespace, region string) string {
	return fmt.Sprintf("https://%s.compat.objectstorage.%s.oraclecloud.com", namespace, region)
}

// NewOCIClient creates an adapter for OCI Object Storage. It is the S3
// adapter pointed at the namespace's compatibility endpoint, with
// path-style addressing forced because the endpoint does not serve
// virtual-hosted buckets.
func NewOCIClient(ctx context.Context, cfg OCIConfig) (*S3Client, error) {
	awsCfg, err := loadAWSConfig(ctx, cfg.Region, cfg.Credentials)
	if err != nil {
		return nil, err
	}

	endpoint := ociCompatEndpoint(cfg.Namespace, cfg.Region)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	slog.Info("OCI storage client initialized", "region", cfg.Region, "namespace", cfg.Namespace, "endpoint", endpoint)
	return &S3Client{backend: BackendOCI, name: "OCIClient", client: client}, nil
}
