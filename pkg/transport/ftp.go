package transport

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	pkgerrors "github.com/glorpus-work/fetchurl/pkg/errors"
)

const (
	anonymousUser     = "anonymous"
	anonymousPassword = "anonymous@"
	defaultFTPPort    = "21"
)

// FTPDriver performs ftp transfers with github.com/jlaffaye/ftp.
// Post bodies are ignored.
type FTPDriver struct {
	connectTimeout time.Duration
	maxBodySize    int64
}

// NewFTPDriver creates an FTP driver.
func NewFTPDriver(connectTimeout time.Duration, maxBodySize int64) *FTPDriver {
	return &FTPDriver{connectTimeout: connectTimeout, maxBodySize: maxBodySize}
}

// Do implements Driver.
func (d *FTPDriver) Do(ctx context.Context, t *Transfer) Result {
	meta := Meta{FileSize: -1}

	path := t.URL.Path
	if path == "" || strings.HasSuffix(path, "/") {
		return failed(pkgerrors.ErrFTPPath, meta)
	}

	addr := t.URL.Host
	if t.URL.Port() == "" {
		addr = net.JoinHostPort(t.URL.Hostname(), defaultFTPPort)
	}

	opts := []ftp.DialOption{ftp.DialWithContext(ctx)}
	if d.connectTimeout > 0 {
		opts = append(opts, ftp.DialWithTimeout(d.connectTimeout))
	}
	conn, err := ftp.Dial(addr, opts...)
	if err != nil {
		meta.Code = replyCode(err)
		return failed(pkgerrors.Wrap(err, "ftp connect failed"), meta)
	}

	// Quitting the control connection unblocks any pending command.
	stop := context.AfterFunc(ctx, func() { _ = conn.Quit() })
	defer func() {
		if stop() {
			_ = conn.Quit()
		}
	}()

	user, password := anonymousUser, anonymousPassword
	if u := t.URL.User; u != nil {
		user = u.Username()
		if p, ok := u.Password(); ok {
			password = p
		}
	}
	if err := conn.Login(user, password); err != nil {
		meta.Code = replyCode(err)
		return failed(pkgerrors.Wrap(err, "ftp login failed"), meta)
	}

	size, sizeErr := conn.FileSize(path)
	if sizeErr == nil {
		meta.FileSize = size
		meta.Code = ftp.StatusFile
	}
	if t.RequestFileTime && conn.IsGetTimeSupported() {
		if modTime, err := conn.GetTime(path); err == nil {
			meta.FileTime = modTime
		}
	}

	if t.Head {
		if sizeErr != nil {
			meta.Code = replyCode(sizeErr)
			return failed(pkgerrors.Wrapf(pkgerrors.ErrFTPPath, "no such file %s", path), meta)
		}
		return Result{Data: []byte{}, Good: true, Meta: meta}
	}

	resp, err := conn.Retr(path)
	if err != nil {
		meta.Code = replyCode(err)
		return failed(pkgerrors.Wrap(err, "ftp retrieve failed"), meta)
	}
	data, n, err := readBody(t, resp, d.maxBodySize)
	closeErr := resp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		if code := replyCode(err); code != 0 {
			meta.Code = code
		}
		return Result{Length: n, Err: pkgerrors.Wrap(err, "ftp transfer failed"), Meta: meta}
	}

	meta.Code = ftp.StatusClosingDataConnection
	return Result{Data: data, Length: n, Good: true, Meta: meta}
}

// replyCode extracts the server reply code carried by err, or 0.
func replyCode(err error) int {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code
	}
	return 0
}
