package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
)

// realAzureClient wraps the official Azure SDK client to satisfy AzureBlobAPI.
type realAzureClient struct {
	client *azblob.Client
}

// newRealAzureClient creates an Azure Blob client authenticated with a
// shared account key.
func newRealAzureClient(serviceURL, accountName, accountKey string) (*realAzureClient, error) {
	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("creating Azure shared key credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("creating Azure Blob client: %w", err)
	}
	return &realAzureClient{client: client}, nil
}

func (c *realAzureClient) blobClient(containerName, blobName string) *blob.Client {
	return c.client.ServiceClient().NewContainerClient(containerName).NewBlobClient(blobName)
}

func (c *realAzureClient) DownloadStream(ctx context.Context, containerName, blobName string) (io.ReadCloser, error) {
	resp, err := c.blobClient(containerName, blobName).DownloadStream(ctx, nil)
	if err != nil {
		return nil, err
	}
	if resp.Body == nil {
		return nil, nil
	}
	return resp.Body, nil
}

func (c *realAzureClient) UploadBlob(ctx context.Context, containerName, blobName string, body io.ReadSeeker, size int64, contentType string) error {
	bbClient := c.client.ServiceClient().NewContainerClient(containerName).NewBlockBlobClient(blobName)

	opts := &blockblob.UploadOptions{}
	if contentType != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &contentType}
	}
	// Upload sets Content-Length from the seeker's remaining span.
	_, err := bbClient.Upload(ctx, streaming.NopCloser(boundedBody(body, size)), opts)
	return err
}

func (c *realAzureClient) StartCopyFromURL(ctx context.Context, containerName, blobName, sourceURL string) (string, string, error) {
	resp, err := c.blobClient(containerName, blobName).StartCopyFromURL(ctx, sourceURL, nil)
	if err != nil {
		return "", "", err
	}
	var copyID, status string
	if resp.CopyID != nil {
		copyID = *resp.CopyID
	}
	if resp.CopyStatus != nil {
		status = string(*resp.CopyStatus)
	}
	return copyID, status, nil
}

func (c *realAzureClient) DeleteBlob(ctx context.Context, containerName, blobName string) error {
	_, err := c.blobClient(containerName, blobName).Delete(ctx, nil)
	return err
}

func (c *realAzureClient) URL() string {
	return c.client.URL()
}

// azureStatusCode extracts the HTTP status from an Azure SDK error.
func azureStatusCode(err error) int {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}
