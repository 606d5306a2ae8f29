package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// S3API defines the subset of the AWS S3 client interface that the adapter
// uses. This allows mocking in tests.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Client implements ObjectStorageClient against any endpoint that speaks
// the S3 API. It backs both the AWS and the OCI tags; only client
// construction differs between them.
type S3Client struct {
	backend BackendType
	name    string
	client  S3API
}

// NewS3Client creates an adapter for Amazon S3 in the configured region.
// Static credentials are used when given, otherwise the default AWS
// credential chain (env vars, ~/.aws/credentials, IAM role) applies.
func NewS3Client(ctx context.Context, cfg S3Config) (*S3Client, error) {
	awsCfg, err := loadAWSConfig(ctx, cfg.Region, cfg.Credentials)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg)

	slog.Info("S3 storage client initialized", "region", cfg.Region, "static_credentials", cfg.Credentials != nil)
	return &S3Client{backend: BackendAWS, name: "S3Client", client: client}, nil
}

// NewS3ClientWithAPI creates an S3Client around a pre-configured client.
// This is primarily used for testing with mock clients.
func NewS3ClientWithAPI(backend BackendType, client S3API) *S3Client {
	name := "S3Client"
	if backend == BackendOCI {
		name = "OCIClient"
	}
	return &S3Client{backend: backend, name: name, client: client}
}

// API returns the underlying S3 client.
func (c *S3Client) API() S3API {
	return c.client
}

func loadAWSConfig(ctx context.Context, region string, creds *StaticCredentials) (aws.Config, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	loadOpts = append(loadOpts, awsconfig.WithRegion(region))

	if creds != nil && creds.AccessKeyID != "" && creds.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}

// GetObject issues a GetObject call and returns the response body. A
// response without a body is treated as a failure and reported with the
// HTTP status the service returned.
func (c *S3Client) GetObject(ctx context.Context, params GetObjectParams) (io.ReadCloser, error) {
	resp, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(params.Bucket),
		Key:    aws.String(params.Key),
	})
	if err != nil {
		status := httpStatusFromError(err)
		e := newError(KindRetrieval, c.backend, c.statusMessage("GetObject", status), err)
		e.StatusCode = status
		return nil, e
	}

	if resp.Body == nil {
		status := httpStatusFromMetadata(resp.ResultMetadata)
		e := newError(KindRetrieval, c.backend, c.statusMessage("GetObject", status), nil)
		e.StatusCode = status
		return nil, e
	}

	slog.Debug("Fetched object", "backend", c.backend, "bucket", params.Bucket, "key", params.Key)
	return resp.Body, nil
}

// PutObject uploads the body with its content type.
func (c *S3Client) PutObject(ctx context.Context, params PutObjectParams) error {
	body, size, err := seekableBody(params.Body)
	if err != nil {
		return newError(KindWrite, c.backend, fmt.Sprintf("Error in %s.PutObject", c.name), err)
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(params.Bucket),
		Key:           aws.String(params.Key),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if params.ContentType != "" {
		input.ContentType = aws.String(params.ContentType)
	}

	if _, err := c.client.PutObject(ctx, input); err != nil {
		status := httpStatusFromError(err)
		e := newError(KindWrite, c.backend, c.statusMessage("PutObject", status), err)
		e.StatusCode = status
		return e
	}
	return nil
}

// CopyObject performs a server-side copy. The source is sent as a single
// URL-encoded "bucket/key" string.
func (c *S3Client) CopyObject(ctx context.Context, params CopyObjectParams) error {
	_, err := c.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(params.Destination.Bucket),
		Key:        aws.String(params.Destination.Key),
		CopySource: aws.String(copySource(params.Source)),
	})
	if err != nil {
		status := httpStatusFromError(err)
		e := newError(KindCopy, c.backend, c.statusMessage("CopyObject", status), err)
		e.StatusCode = status
		return e
	}
	return nil
}

// DeleteObject removes the object. S3 does not fail on missing keys.
func (c *S3Client) DeleteObject(ctx context.Context, params DeleteObjectParams) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(params.Bucket),
		Key:    aws.String(params.Key),
	})
	if err != nil {
		status := httpStatusFromError(err)
		e := newError(KindDelete, c.backend, c.statusMessage("DeleteObject", status), err)
		e.StatusCode = status
		return e
	}
	return nil
}

func (c *S3Client) statusMessage(op string, status int) string {
	if status == 0 {
		return fmt.Sprintf("Error in %s.%s. Status received: unknown", c.name, op)
	}
	return fmt.Sprintf("Error in %s.%s. Status received: %d", c.name, op, status)
}

// copySource encodes "bucket/key" as one URI component: every byte outside
// A-Z a-z 0-9 and - _ . ! ~ * ' ( ) is percent-encoded, including the
// separator and '+', which S3 would otherwise read as a space.
func copySource(src ObjectLocation) string {
	s := src.Bucket + "/" + src.Key
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isURIUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isURIUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

// httpStatusFromError extracts the HTTP status from an AWS SDK error.
func httpStatusFromError(err error) int {
	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return 404
		}
	}
	return 0
}

// httpStatusFromMetadata reads the status of the raw HTTP response recorded
// in an operation's result metadata.
func httpStatusFromMetadata(md middleware.Metadata) int {
	if raw, ok := awsmiddleware.GetRawResponse(md).(*smithyhttp.Response); ok && raw != nil && raw.Response != nil {
		return raw.StatusCode
	}
	return 0
}

// Ensure S3Client implements ObjectStorageClient at compile time.
var _ ObjectStorageClient = (*S3Client)(nil)
