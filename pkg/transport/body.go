package transport

import (
	"bytes"
	"io"

	pkgerrors "github.com/glorpus-work/fetchurl/pkg/errors"
)

// bodyBuffer collects a response body while advancing the transfer's
// progress counter.
type bodyBuffer struct {
	t     *Transfer
	buf   bytes.Buffer
	limit int64
}

func (b *bodyBuffer) Write(p []byte) (int, error) {
	if b.limit > 0 && int64(b.buf.Len()+len(p)) > b.limit {
		return 0, pkgerrors.ErrBodyTooLarge
	}
	n, err := b.buf.Write(p)
	b.t.addReceived(n)
	return n, err
}

// readBody drains r into memory. The returned slice is never nil on success.
func readBody(t *Transfer, r io.Reader, limit int64) ([]byte, int64, error) {
	b := &bodyBuffer{t: t, limit: limit}
	n, err := io.Copy(b, r)
	if err != nil {
		return nil, n, err
	}
	data := b.buf.Bytes()
	if data == nil {
		data = []byte{}
	}
	return data, n, nil
}
