package transport

import (
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/glorpus-work/fetchurl/pkg/location"
)

// Meta is what the transport learned about the remote resource.
type Meta struct {
	// FileTime is the remote modification time, zero when unknown.
	FileTime time.Time
	// FileSize is the advertised size, -1 when unknown.
	FileSize int64
	// Code is the last protocol status code, 0 when none was received.
	Code int
}

// Result is the completion notification of one transfer.
type Result struct {
	// Data is nil when no body is available.
	Data   []byte
	Length int64
	Good   bool
	Err    error
	Meta   Meta
}

// failed builds a Result for a transfer that could not finish.
func failed(err error, meta Meta) Result {
	return Result{Err: err, Meta: meta}
}

// NotifyFunc receives the completion of a transfer. It runs on a transport
// goroutine and must not block.
type NotifyFunc func(t *Transfer, r Result)

// Transfer describes one registered transfer.
type Transfer struct {
	ID              uuid.UUID
	URL             *url.URL
	Protocol        string
	Post            *string
	Head            bool
	FailOnError     bool
	Timeout         time.Duration
	RequestFileTime bool

	received atomic.Int64
	notify   NotifyFunc

	mu   sync.Mutex
	done bool
}

// NewTransfer creates a transfer for loc that reports to notify.
func NewTransfer(loc *location.Location, notify NotifyFunc) *Transfer {
	return &Transfer{
		ID:       uuid.New(),
		URL:      loc.URL(),
		Protocol: loc.Protocol,
		notify:   notify,
	}
}

// Method returns the HTTP method implied by the configuration.
func (t *Transfer) Method() string {
	switch {
	case t.Head:
		return http.MethodHead
	case t.Post != nil:
		return http.MethodPost
	default:
		return http.MethodGet
	}
}

// Received returns the number of body bytes read so far.
func (t *Transfer) Received() int64 {
	return t.received.Load()
}

func (t *Transfer) addReceived(n int) {
	t.received.Add(int64(n))
}

// Complete delivers r unless a result was already delivered or the
// transfer was detached. It reports whether r was delivered.
func (t *Transfer) Complete(r Result) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	if t.notify != nil {
		t.notify(t, r)
	}
	return true
}

// detach suppresses any later completion.
func (t *Transfer) detach() {
	t.mu.Lock()
	t.done = true
	t.mu.Unlock()
}
