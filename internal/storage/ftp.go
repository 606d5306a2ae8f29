package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/jlaffaye/ftp"
)

// FTPConn defines the subset of an FTP control connection that the adapter
// uses. This allows mocking in tests.
type FTPConn interface {
	Login(user, password string) error
	// Retr opens the file for reading. The reader must be closed before the
	// next command is issued on the connection.
	Retr(path string) (io.ReadCloser, error)
	Stor(path string, r io.Reader) error
	Delete(path string) error
	Quit() error
}

// FTPDialer opens a new control connection to addr.
type FTPDialer func(ctx context.Context, addr string) (FTPConn, error)

// defaultFTPDialTimeout bounds connection setup when ctx has no deadline.
const defaultFTPDialTimeout = 30 * time.Second

// FTPClient implements ObjectStorageClient over FTP. Objects live at
// "{bucket}/{key}". FTP has no server-side copy, so CopyObject downloads and
// re-uploads over one connection.
//
// Each operation dials its own connection and closes it before returning,
// on success and on failure, so concurrent calls never share a handle.
type FTPClient struct {
	cfg  FTPConfig
	dial FTPDialer
}

// NewFTPClient creates an FTP adapter. No connection is opened until the
// first operation.
func NewFTPClient(cfg FTPConfig) *FTPClient {
	return &FTPClient{cfg: cfg, dial: dialFTP}
}

// NewFTPClientWithDialer creates an FTPClient that obtains connections from
// dial. This is primarily used for testing with mock connections.
func NewFTPClientWithDialer(cfg FTPConfig, dial FTPDialer) *FTPClient {
	return &FTPClient{cfg: cfg, dial: dial}
}

func dialFTP(ctx context.Context, addr string) (FTPConn, error) {
	conn, err := ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(defaultFTPDialTimeout))
	if err != nil {
		return nil, err
	}
	return ftpServerConn{conn}, nil
}

// ftpServerConn adapts *ftp.ServerConn to FTPConn.
type ftpServerConn struct {
	*ftp.ServerConn
}

func (c ftpServerConn) Retr(path string) (io.ReadCloser, error) {
	resp, err := c.ServerConn.Retr(path)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *FTPClient) addr() string {
	port := c.cfg.Port
	if port == 0 {
		port = 21
	}
	return net.JoinHostPort(c.cfg.Host, strconv.Itoa(port))
}

// withConn connects, logs in, runs fn, and always quits the connection.
// The error from fn (or from connecting) is returned unchanged; a failure
// to quit is only logged.
func (c *FTPClient) withConn(ctx context.Context, fn func(conn FTPConn) error) error {
	conn, err := c.dial(ctx, c.addr())
	if err != nil {
		return fmt.Errorf("connecting to FTP server %s: %w", c.addr(), err)
	}
	defer func() {
		if qerr := conn.Quit(); qerr != nil {
			slog.Debug("FTP quit failed", "host", c.cfg.Host, "error", qerr)
		}
	}()

	if err := conn.Login(c.cfg.Username, c.cfg.Password); err != nil {
		return fmt.Errorf("logging in to FTP server %s: %w", c.addr(), err)
	}
	return fn(conn)
}

func ftpPath(loc ObjectLocation) string {
	return loc.Bucket + "/" + loc.Key
}

// download reads the whole file into memory and closes the transfer.
func download(conn FTPConn, path string) ([]byte, error) {
	r, err := conn.Retr(path)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	_, readErr := io.Copy(&buf, r)
	closeErr := r.Close()
	if readErr != nil {
		return nil, readErr
	}
	if closeErr != nil {
		return nil, closeErr
	}
	return buf.Bytes(), nil
}

// GetObject downloads the file into a buffer and returns a reader over it.
// The connection is closed before the reader is handed back.
func (c *FTPClient) GetObject(ctx context.Context, params GetObjectParams) (io.ReadCloser, error) {
	var data []byte
	err := c.withConn(ctx, func(conn FTPConn) error {
		var err error
		data, err = download(conn, ftpPath(params))
		return err
	})
	if err != nil {
		return nil, newError(KindRetrieval, BackendFTP, "", err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// PutObject uploads the body, replacing any existing file.
func (c *FTPClient) PutObject(ctx context.Context, params PutObjectParams) error {
	body := params.Body
	if body == nil {
		body = bytes.NewReader(nil)
	}
	err := c.withConn(ctx, func(conn FTPConn) error {
		return conn.Stor(ftpPath(params.Location()), body)
	})
	if err != nil {
		return newError(KindWrite, BackendFTP, "", err)
	}
	return nil
}

// CopyObject downloads the source and uploads it to the destination over a
// single connection.
func (c *FTPClient) CopyObject(ctx context.Context, params CopyObjectParams) error {
	err := c.withConn(ctx, func(conn FTPConn) error {
		data, err := download(conn, ftpPath(params.Source))
		if err != nil {
			return err
		}
		return conn.Stor(ftpPath(params.Destination), bytes.NewReader(data))
	})
	if err != nil {
		return newError(KindCopy, BackendFTP, "", err)
	}
	return nil
}

// DeleteObject removes the file.
func (c *FTPClient) DeleteObject(ctx context.Context, params DeleteObjectParams) error {
	err := c.withConn(ctx, func(conn FTPConn) error {
		return conn.Delete(ftpPath(params))
	})
	if err != nil {
		return newError(KindDelete, BackendFTP, "", err)
	}
	return nil
}

// Ensure FTPClient implements ObjectStorageClient at compile time.
var _ ObjectStorageClient = (*FTPClient)(nil)
