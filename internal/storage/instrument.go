package storage

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/bleepstore/bleepbridge/internal/metrics"
)

// InstrumentedClient wraps an ObjectStorageClient, recording Prometheus
// operation metrics and logging failures. It adds no retries and no state.
type InstrumentedClient struct {
	next    ObjectStorageClient
	backend BackendType
}

// Instrument wraps client so every operation is counted and timed under the
// given backend label.
func Instrument(client ObjectStorageClient, backend BackendType) *InstrumentedClient {
	return &InstrumentedClient{next: client, backend: backend}
}

// Unwrap returns the wrapped client.
func (c *InstrumentedClient) Unwrap() ObjectStorageClient {
	return c.next
}

func (c *InstrumentedClient) observe(op string, start time.Time, loc ObjectLocation, err error) {
	status := "success"
	if err != nil {
		status = "error"
		slog.Warn("Storage operation failed",
			"backend", c.backend, "operation", op,
			"bucket", loc.Bucket, "key", loc.Key, "error", err)
	}
	metrics.StorageOperationsTotal.WithLabelValues(string(c.backend), op, status).Inc()
	metrics.StorageOperationDuration.WithLabelValues(string(c.backend), op).Observe(time.Since(start).Seconds())
}

func (c *InstrumentedClient) GetObject(ctx context.Context, params GetObjectParams) (io.ReadCloser, error) {
	start := time.Now()
	rc, err := c.next.GetObject(ctx, params)
	c.observe("GetObject", start, params, err)
	return rc, err
}

func (c *InstrumentedClient) PutObject(ctx context.Context, params PutObjectParams) error {
	start := time.Now()
	err := c.next.PutObject(ctx, params)
	c.observe("PutObject", start, params.Location(), err)
	return err
}

func (c *InstrumentedClient) CopyObject(ctx context.Context, params CopyObjectParams) error {
	start := time.Now()
	err := c.next.CopyObject(ctx, params)
	c.observe("CopyObject", start, params.Destination, err)
	return err
}

func (c *InstrumentedClient) DeleteObject(ctx context.Context, params DeleteObjectParams) error {
	start := time.Now()
	err := c.next.DeleteObject(ctx, params)
	c.observe("DeleteObject", start, params, err)
	return err
}

// Ensure InstrumentedClient implements ObjectStorageClient at compile time.
var _ ObjectStorageClient = (*InstrumentedClient)(nil)
