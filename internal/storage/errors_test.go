package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	native := errors.New("native failure")

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"message only", newError(KindRetrieval, BackendDropbox, "path/not_found/..", nil), "path/not_found/.."},
		{"wrapped only", newError(KindWrite, BackendFTP, "", native), "native failure"},
		{"both", newError(KindCopy, BackendAzure, "Error in AzureClient.CopyObject", native), "Error in AzureClient.CopyObject: native failure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorIsMatchesOnlyItsKind(t *testing.T) {
	sentinels := map[Kind]error{
		KindRetrieval: ErrRetrieval,
		KindWrite:     ErrWrite,
		KindCopy:      ErrCopy,
		KindDelete:    ErrDelete,
	}
	for kind, want := range sentinels {
		err := fmt.Errorf("wrapped: %w", newError(kind, BackendAWS, "x", nil))
		for other, sentinel := range sentinels {
			if got := errors.Is(err, sentinel); got != (other == kind) {
				t.Errorf("errors.Is(%s, %v) = %v", kind, sentinel, got)
			}
		}
		if !errors.Is(err, want) {
			t.Errorf("%s should match its sentinel", kind)
		}
	}
}

func TestErrorUnwrapReachesNativeError(t *testing.T) {
	err := newError(KindRetrieval, BackendFTP, "", io.ErrUnexpectedEOF)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("native error should be reachable with errors.Is")
	}
}

func TestKindString(t *testing.T) {
	if KindDelete.String() != "DeleteError" {
		t.Errorf("KindDelete = %q", KindDelete.String())
	}
	if !strings.HasPrefix(Kind(42).String(), "Kind(") {
		t.Errorf("unknown kind = %q", Kind(42).String())
	}
}

func TestIsNotFoundAndKindOf(t *testing.T) {
	e := newError(KindRetrieval, BackendAWS, "missing", nil)
	e.StatusCode = 404
	if !IsNotFound(fmt.Errorf("ctx: %w", e)) {
		t.Error("404 should be not found")
	}
	if IsNotFound(errors.New("plain")) {
		t.Error("plain errors are never not found")
	}
	if KindOf(e) != KindRetrieval {
		t.Errorf("KindOf = %v", KindOf(e))
	}
	if KindOf(errors.New("plain")) != 0 {
		t.Error("KindOf plain error should be 0")
	}
}

func TestSeekableBody(t *testing.T) {
	r := strings.NewReader("0123456789")
	_, _ = r.Seek(4, io.SeekStart)

	rs, n, err := seekableBody(r)
	if err != nil {
		t.Fatal(err)
	}
	if n != 6 {
		t.Errorf("size = %d, want remaining 6", n)
	}
	data, _ := io.ReadAll(rs)
	if string(data) != "456789" {
		t.Errorf("data = %q", data)
	}

	rs, n, err = seekableBody(nil)
	if err != nil || n != 0 {
		t.Fatalf("nil body: n=%d err=%v", n, err)
	}
	if data, _ := io.ReadAll(rs); len(data) != 0 {
		t.Errorf("nil body should read empty, got %q", data)
	}
}

func TestSeekableBodyPipe(t *testing.T) {
	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer pr.Close()
	go func() {
		pw.WriteString("piped stdin")
		pw.Close()
	}()

	rs, n, err := seekableBody(pr)
	if err != nil {
		t.Fatalf("pipe body should be buffered, got %v", err)
	}
	if n != 11 {
		t.Errorf("size = %d, want 11", n)
	}
	data, _ := io.ReadAll(rs)
	if string(data) != "piped stdin" {
		t.Errorf("data = %q", data)
	}
}

func TestBoundedBody(t *testing.T) {
	r := strings.NewReader("0123456789")
	_, _ = r.Seek(2, io.SeekStart)

	data, _ := io.ReadAll(boundedBody(r, 3))
	if string(data) != "234" {
		t.Errorf("bounded data = %q, want %q", data, "234")
	}

	type onlySeeker struct{ io.ReadSeeker }
	plain := onlySeeker{strings.NewReader("abc")}
	if boundedBody(plain, 1) != io.ReadSeeker(plain) {
		t.Error("body without ReaderAt should be returned unchanged")
	}
}
