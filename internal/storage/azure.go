package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
)

// AzureBlobAPI defines the subset of the Azure Blob Storage client interface
// that the adapter uses. This allows mocking in tests.
type AzureBlobAPI interface {
	// DownloadStream opens the blob's content. A nil reader with a nil error
	// means the service answered without a body.
	DownloadStream(ctx context.Context, containerName, blobName string) (io.ReadCloser, error)
	// UploadBlob uploads size bytes from body as a block blob, overwriting
	// any existing blob.
	UploadBlob(ctx context.Context, containerName, blobName string, body io.ReadSeeker, size int64, contentType string) error
	// StartCopyFromURL starts an asynchronous server-side copy into the blob.
	StartCopyFromURL(ctx context.Context, containerName, blobName, sourceURL string) (copyID, copyStatus string, err error)
	// DeleteBlob deletes a blob.
	DeleteBlob(ctx context.Context, containerName, blobName string) error
	// URL returns the storage account's service URL.
	URL() string
}

// AzureClient implements ObjectStorageClient for Azure Blob Storage. Buckets
// map to containers and keys to blob names.
type AzureClient struct {
	// AccountName is the storage account name.
	AccountName string
	client      AzureBlobAPI
}

// azureServiceURL returns https://{account}.blob.{suffix}.
func azureServiceURL(accountName, endpointSuffix string) string {
	return fmt.Sprintf("https://%s.blob.%s", accountName, endpointSuffix)
}

// NewAzureClient creates an adapter authenticated with the account's shared
// key.
func NewAzureClient(ctx context.Context, cfg AzureConfig) (*AzureClient, error) {
	serviceURL := azureServiceURL(cfg.AccountName, cfg.EndpointSuffix)
	client, err := newRealAzureClient(serviceURL, cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("creating Azure client: %w", err)
	}

	slog.Info("Azure storage client initialized", "account", cfg.AccountName, "service_url", serviceURL)
	return &AzureClient{AccountName: cfg.AccountName, client: client}, nil
}

// NewAzureClientWithAPI creates an AzureClient with a pre-configured Azure
// client. This is primarily used for testing with mock clients.
func NewAzureClientWithAPI(accountName string, client AzureBlobAPI) *AzureClient {
	return &AzureClient{AccountName: accountName, client: client}
}

// GetObject downloads the blob. The presence of a body is the only success
// signal checked.
func (c *AzureClient) GetObject(ctx context.Context, params GetObjectParams) (io.ReadCloser, error) {
	body, err := c.client.DownloadStream(ctx, params.Bucket, params.Key)
	if err != nil {
		e := newError(KindRetrieval, BackendAzure, "Error in AzureClient.GetObject", err)
		e.StatusCode = azureStatusCode(err)
		return nil, e
	}
	if body == nil {
		return nil, newError(KindRetrieval, BackendAzure,
			"Error in AzureClient.GetObject. No data stream available for the requested blob.", nil)
	}
	return body, nil
}

// PutObject uploads the body as a block blob with an explicit length.
func (c *AzureClient) PutObject(ctx context.Context, params PutObjectParams) error {
	body, size, err := seekableBody(params.Body)
	if err != nil {
		return newError(KindWrite, BackendAzure, "Error in AzureClient.PutObject", err)
	}

	if err := c.client.UploadBlob(ctx, params.Bucket, params.Key, body, size, params.ContentType); err != nil {
		e := newError(KindWrite, BackendAzure, "Error in AzureClient.PutObject", err)
		e.StatusCode = azureStatusCode(err)
		return e
	}
	return nil
}

// CopyObject starts a server-side copy from the source blob's URL and
// returns once the service has accepted it. Completion is not awaited.
func (c *AzureClient) CopyObject(ctx context.Context, params CopyObjectParams) error {
	sourceURL, err := c.sourceURL(params.Source)
	if err != nil {
		return newError(KindCopy, BackendAzure, "Error in AzureClient.CopyObject", err)
	}

	copyID, status, err := c.client.StartCopyFromURL(ctx, params.Destination.Bucket, params.Destination.Key, sourceURL)
	if err != nil {
		e := newError(KindCopy, BackendAzure, "Error in AzureClient.CopyObject", err)
		e.StatusCode = azureStatusCode(err)
		return e
	}

	slog.Debug("Azure copy started", "source", sourceURL,
		"container", params.Destination.Bucket, "blob", params.Destination.Key,
		"copy_id", copyID, "copy_status", status)
	return nil
}

// DeleteObject deletes the blob. Azure fails on a missing blob.
func (c *AzureClient) DeleteObject(ctx context.Context, params DeleteObjectParams) error {
	if err := c.client.DeleteBlob(ctx, params.Bucket, params.Key); err != nil {
		e := newError(KindDelete, BackendAzure, "Error in AzureClient.DeleteObject", err)
		e.StatusCode = azureStatusCode(err)
		return e
	}
	return nil
}

// sourceURL builds {scheme}://{host}/{container}/{blob} from the service URL.
func (c *AzureClient) sourceURL(src ObjectLocation) (string, error) {
	svc, err := url.Parse(c.client.URL())
	if err != nil {
		return "", fmt.Errorf("parsing service URL: %w", err)
	}
	u := url.URL{
		Scheme: svc.Scheme,
		Host:   svc.Host,
		Path:   "/" + src.Bucket + "/" + src.Key,
	}
	return u.String(), nil
}

// Ensure AzureClient implements ObjectStorageClient at compile time.
var _ ObjectStorageClient = (*AzureClient)(nil)
