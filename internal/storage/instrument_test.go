package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bleepstore/bleepbridge/internal/metrics"
)

func TestInstrumentRecordsOutcomes(t *testing.T) {
	mock := newMockS3Client()
	client := Instrument(NewS3ClientWithAPI(BackendAWS, mock), BackendAWS)
	ctx := context.Background()

	okCounter := metrics.StorageOperationsTotal.WithLabelValues("AWS", "PutObject", "success")
	errCounter := metrics.StorageOperationsTotal.WithLabelValues("AWS", "GetObject", "error")
	okBefore := testutil.ToFloat64(okCounter)
	errBefore := testutil.ToFloat64(errCounter)

	if err := client.PutObject(ctx, PutObjectParams{Bucket: "b", Key: "k", Body: strings.NewReader("v")}); err != nil {
		t.Fatalf("PutObject failed: %v", err)
	}
	rc, err := client.GetObject(ctx, GetObjectParams{Bucket: "b", Key: "k"})
	if err != nil {
		t.Fatalf("GetObject failed: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "v" {
		t.Errorf("data = %q", data)
	}

	_, err = client.GetObject(ctx, GetObjectParams{Bucket: "b", Key: "missing"})
	if !errors.Is(err, ErrRetrieval) {
		t.Fatalf("errors must pass through unchanged, got %v", err)
	}

	if got := testutil.ToFloat64(okCounter) - okBefore; got != 1 {
		t.Errorf("PutObject success delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(errCounter) - errBefore; got != 1 {
		t.Errorf("GetObject error delta = %v, want 1", got)
	}
}

func TestInstrumentCopyAndDelete(t *testing.T) {
	mock := newMockS3Client()
	mock.objects["a/src"] = []byte("x")
	inner := NewS3ClientWithAPI(BackendOCI, mock)
	client := Instrument(inner, BackendOCI)
	ctx := context.Background()

	if client.Unwrap() != inner {
		t.Error("Unwrap should return the wrapped client")
	}
	if err := client.CopyObject(ctx, CopyObjectParams{
		Source:      ObjectLocation{Bucket: "a", Key: "src"},
		Destination: ObjectLocation{Bucket: "a", Key: "dst"},
	}); err != nil {
		t.Fatalf("CopyObject failed: %v", err)
	}
	if err := client.DeleteObject(ctx, DeleteObjectParams{Bucket: "a", Key: "src"}); err != nil {
		t.Fatalf("DeleteObject failed: %v", err)
	}
	if mock.copyObjectCalls != 1 || mock.deleteObjectCalls != 1 {
		t.Errorf("calls: copy=%d delete=%d", mock.copyObjectCalls, mock.deleteObjectCalls)
	}
}
