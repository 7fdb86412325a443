package transport

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/glorpus-work/fetchurl/pkg/errors"
)

const formContentType = "application/x-www-form-urlencoded"

// HTTPDriver performs http transfers with net/http.
type HTTPDriver struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
}

// NewHTTPDriver creates a driver whose dials give up after connectTimeout.
// A maxBodySize of 0 means unlimited.
func NewHTTPDriver(connectTimeout time.Duration, userAgent string, maxBodySize int64) *HTTPDriver {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.DialContext = (&net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}).DialContext
	return &HTTPDriver{
		client:      &http.Client{Transport: base},
		userAgent:   userAgent,
		maxBodySize: maxBodySize,
	}
}

// Do implements Driver.
func (d *HTTPDriver) Do(ctx context.Context, t *Transfer) Result {
	meta := Meta{FileSize: -1}

	var body io.Reader = http.NoBody
	if t.Method() == http.MethodPost {
		body = strings.NewReader(*t.Post)
	}

	req, err := http.NewRequestWithContext(ctx, t.Method(), t.URL.String(), body)
	if err != nil {
		return failed(pkgerrors.Wrap(err, "failed to create request"), meta)
	}
	req.Header.Set("User-Agent", d.userAgent)
	if t.Method() == http.MethodPost {
		req.Header.Set("Content-Type", formContentType)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return failed(pkgerrors.Wrap(err, "request failed"), meta)
	}
	defer func() { _ = resp.Body.Close() }()

	meta.Code = resp.StatusCode
	meta.FileSize = resp.ContentLength
	if t.RequestFileTime {
		if lm := resp.Header.Get("Last-Modified"); lm != "" {
			if modTime, perr := http.ParseTime(lm); perr == nil {
				meta.FileTime = modTime
			}
		}
	}

	if t.FailOnError && resp.StatusCode >= http.StatusBadRequest {
		return failed(pkgerrors.ErrHTTPStatusWithCode(resp.StatusCode), meta)
	}
	if t.Head {
		return Result{Data: []byte{}, Good: true, Meta: meta}
	}

	data, n, err := readBody(t, resp.Body, d.maxBodySize)
	if err != nil {
		return Result{Length: n, Err: pkgerrors.Wrap(err, "failed to read response body"), Meta: meta}
	}
	return Result{Data: data, Length: n, Good: true, Meta: meta}
}
