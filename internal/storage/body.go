package storage

import (
	"bytes"
	"fmt"
	"io"
)

// seekableBody returns body as an io.ReadSeeker together with the number of
// bytes remaining from its current offset. Readers that cannot seek are
// buffered in memory, including those whose Seek method fails, such as an
// *os.File wrapping a pipe.
func seekableBody(body io.Reader) (io.ReadSeeker, int64, error) {
	if body == nil {
		return bytes.NewReader(nil), 0, nil
	}
	if rs, ok := body.(io.ReadSeeker); ok {
		if cur, err := rs.Seek(0, io.SeekCurrent); err == nil {
			end, err := rs.Seek(0, io.SeekEnd)
			if err != nil {
				return nil, 0, fmt.Errorf("seeking body: %w", err)
			}
			if _, err := rs.Seek(cur, io.SeekStart); err != nil {
				return nil, 0, fmt.Errorf("seeking body: %w", err)
			}
			return rs, end - cur, nil
		}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading body: %w", err)
	}
	return bytes.NewReader(data), int64(len(data)), nil
}

// boundedBody limits a body returned by seekableBody to size bytes from its
// current offset. Bodies without random access are returned unchanged.
func boundedBody(body io.ReadSeeker, size int64) io.ReadSeeker {
	ra, ok := body.(io.ReaderAt)
	if !ok {
		return body
	}
	cur, err := body.Seek(0, io.SeekCurrent)
	if err != nil {
		return body
	}
	return io.NewSectionReader(ra, cur, size)
}
