// Package fetch implements asynchronous URL fetches for a single owner
// goroutine.
//
// The owner calls Fetch, Request.Cancel, Poll, Wait and Shutdown. The
// transport reports completions from its own goroutines; they are queued
// and only dispatched from Poll or Wait, so callbacks always run on the
// owner goroutine and never overlap with other request mutations.
package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/glorpus-work/fetchurl/internal/logger"
	"github.com/glorpus-work/fetchurl/pkg/access"
	pkgerrors "github.com/glorpus-work/fetchurl/pkg/errors"
	"github.com/glorpus-work/fetchurl/pkg/location"
	"github.com/glorpus-work/fetchurl/pkg/transport"
)

// DefaultQueueSize is the initial capacity of the completion queue.
const DefaultQueueSize = 64

// Config assembles a Manager.
type Config struct {
	Transport transport.Transport
	// Access may be nil to allow every host.
	Access *access.Policy
	// DefaultTimeout applies to fetches that set no timeout. Zero means none.
	DefaultTimeout time.Duration
	QueueSize      int
}

// Manager owns the registry, the pin table, the transport and the
// completion queue.
type Manager struct {
	transport      transport.Transport
	access         *access.Policy
	defaultTimeout time.Duration
	queueSize      int

	registry *Registry
	refs     *RefTable

	mu     sync.Mutex
	queue  []completion
	ready  chan struct{}
	closed bool
}

type completion struct {
	handle   Handle
	transfer *transport.Transfer
	result   transport.Result
}

// NewManager creates a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Transport == nil {
		return nil, pkgerrors.ErrNoTransport
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	return &Manager{
		transport:      cfg.Transport,
		access:         cfg.Access,
		defaultTimeout: cfg.DefaultTimeout,
		queueSize:      cfg.QueueSize,
		registry:       newRegistry(),
		refs:           NewRefTable(),
		queue:          make([]completion, 0, cfg.QueueSize),
		ready:          make(chan struct{}, 1),
	}, nil
}

// Fetch validates rawURL and starts an asynchronous transfer. cb may be nil.
// On error no request exists and nothing stays pinned.
func (m *Manager) Fetch(rawURL string, opts Options, cb Callback) (*Request, error) {
	if m.isClosed() {
		return nil, pkgerrors.ErrManagerClosed
	}

	loc, err := location.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	req := &Request{
		m:        m,
		url:      loc.Raw,
		fileSize: -1,
	}
	req.selfRef = m.refs.Pin(req)
	if cb != nil {
		req.cbRef = m.refs.Pin(cb)
	}

	if opts.Post != nil {
		body := *opts.Post
		req.post = &body
	}
	req.head = opts.Head
	req.failOnError = opts.FailOnError
	req.timeout = opts.Timeout
	if req.timeout <= 0 {
		req.timeout = m.defaultTimeout
	}

	if err := m.access.Check(loc); err != nil {
		req.releasePins()
		return nil, err
	}

	req.handle = m.registry.register(req)
	handle := req.handle
	req.xfer = newTransferHandle(m.transport, loc, func(t *transport.Transfer, r transport.Result) {
		m.enqueue(completion{handle: handle, transfer: t, result: r})
	})
	req.xfer.configure(req.post, req.head, req.failOnError, req.timeout)

	if err := req.xfer.register(); err != nil {
		m.registry.deregister(handle)
		req.xfer = nil
		req.releasePins()
		return nil, err
	}
	req.active = true

	logger.Debug("Fetch started", logger.Fields{
		"handle": uint64(handle),
		"url":    req.url,
		"method": req.xfer.transfer.Method(),
	})
	return req, nil
}

// Lookup resolves a live request.
func (m *Manager) Lookup(h Handle) (*Request, bool) {
	return m.registry.Validate(h)
}

// Requests returns the live requests ordered by handle.
func (m *Manager) Requests() []*Request {
	handles := m.registry.Handles()
	reqs := make([]*Request, 0, len(handles))
	for _, h := range handles {
		if req, ok := m.registry.Validate(h); ok {
			reqs = append(reqs, req)
		}
	}
	return reqs
}

// Active returns the number of live requests.
func (m *Manager) Active() int {
	return m.registry.Len()
}

// Pinned returns the number of pinned references.
func (m *Manager) Pinned() int {
	return m.refs.Len()
}

// Pending returns the number of queued, undispatched completions.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

func (m *Manager) enqueue(c completion) {
	m.mu.Lock()
	m.queue = append(m.queue, c)
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

func (m *Manager) drain() []completion {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return nil
	}
	queued := m.queue
	m.queue = make([]completion, 0, m.queueSize)
	return queued
}

// Poll dispatches every queued completion without blocking and returns how
// many were taken from the queue.
func (m *Manager) Poll() int {
	queued := m.drain()
	for _, c := range queued {
		m.dispatch(c)
	}
	return len(queued)
}

// Wait blocks until at least one completion was dispatched, no request is
// active, or ctx is done.
func (m *Manager) Wait(ctx context.Context) (int, error) {
	for {
		if n := m.Poll(); n > 0 {
			return n, nil
		}
		if m.Active() == 0 {
			return 0, nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-m.ready:
		}
	}
}

// Shutdown cancels every active request without callbacks and closes the
// transport. Later calls do nothing.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	cancelled := 0
	for _, req := range m.Requests() {
		if req.Cancel() {
			cancelled++
		}
	}
	err := m.transport.Close()
	m.drain()

	logger.Debug("Fetch manager shut down", logger.Fields{"cancelled": cancelled})
	if err != nil {
		return pkgerrors.Wrap(err, "failed to close transport")
	}
	return nil
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
