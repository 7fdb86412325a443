package fetch

import (
	"fmt"
	"strconv"
	"time"

	"github.com/glorpus-work/fetchurl/internal/logger"
)

// FileTimeLayout formats captured modification times (UTC).
const FileTimeLayout = "2006-01-02/15:04:05"

// Options configure a single fetch.
type Options struct {
	// Post switches the request to POST with this body.
	Post *string
	// Timeout bounds the whole transfer. Zero selects the manager default.
	Timeout time.Duration
	// Head suppresses body retrieval.
	Head bool
	// FailOnError treats HTTP status codes >= 400 as failures.
	FailOnError bool
}

// Request is one fetch operation. It is driven by the goroutine that owns
// its Manager; accessors stay usable after the request terminates.
type Request struct {
	m      *Manager
	handle Handle
	url    string

	post        *string
	head        bool
	failOnError bool
	timeout     time.Duration

	active   bool
	success  bool
	length   int64
	fileSize int64
	fileTime time.Time
	code     int

	selfRef Ref
	cbRef   Ref
	xfer    *transferHandle
}

// Handle returns the registry handle of the request.
func (r *Request) Handle() Handle {
	return r.handle
}

// URL returns the normalized URL.
func (r *Request) URL() string {
	return r.url
}

// PostData returns the POST body, if any.
func (r *Request) PostData() (string, bool) {
	if r.post == nil {
		return "", false
	}
	return *r.post, true
}

// Head reports whether body retrieval is suppressed.
func (r *Request) Head() bool {
	return r.head
}

// FailOnError reports whether HTTP error statuses count as failures.
func (r *Request) FailOnError() bool {
	return r.failOnError
}

// Timeout returns the effective transfer timeout.
func (r *Request) Timeout() time.Duration {
	return r.timeout
}

// IsActive reports whether the transfer is still outstanding.
func (r *Request) IsActive() bool {
	return r.active
}

// Success reports whether the request completed with a body.
func (r *Request) Success() bool {
	return r.success
}

// Length returns the bytes received so far while active, and the final
// count afterwards.
func (r *Request) Length() int64 {
	if r.active {
		return r.xfer.received()
	}
	return r.length
}

// FileSize returns the advertised size, -1 when unknown.
func (r *Request) FileSize() int64 {
	return r.fileSize
}

// FileTime returns the remote modification time formatted with
// FileTimeLayout and as raw Unix seconds.
func (r *Request) FileTime() (formatted, raw string, ok bool) {
	if r.fileTime.IsZero() {
		return "", "", false
	}
	return r.fileTime.UTC().Format(FileTimeLayout), strconv.FormatInt(r.fileTime.Unix(), 10), true
}

// HTTPCode returns the captured protocol status code, 0 when none.
func (r *Request) HTTPCode() int {
	return r.code
}

// Callback returns the callback while it is still pinned.
func (r *Request) Callback() (Callback, bool) {
	v, ok := r.m.refs.Get(r.cbRef)
	if !ok {
		return nil, false
	}
	cb, ok := v.(Callback)
	return cb, ok
}

// Cancel aborts an active request without invoking its callback.
// It returns false when there is nothing to cancel.
func (r *Request) Cancel() bool {
	if !r.active {
		return false
	}
	r.active = false
	r.length = r.xfer.received()
	r.xfer.release()
	r.m.registry.deregister(r.handle)
	r.releasePins()

	logger.Debug("Fetch cancelled", logger.Fields{"handle": uint64(r.handle), "url": r.url})
	return true
}

// Close tears the request down like Cancel.
func (r *Request) Close() error {
	r.Cancel()
	return nil
}

func (r *Request) releasePins() {
	r.m.refs.Unpin(r.selfRef)
	r.m.refs.Unpin(r.cbRef)
	r.selfRef = NoRef
	r.cbRef = NoRef
}

// String renders the request as url(<handle>,<url>).
func (r *Request) String() string {
	return fmt.Sprintf("url(%d,%s)", r.handle, r.url)
}
