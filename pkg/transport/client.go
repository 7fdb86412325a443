package transport

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/glorpus-work/fetchurl/internal/logger"
	pkgerrors "github.com/glorpus-work/fetchurl/pkg/errors"
	"github.com/glorpus-work/fetchurl/pkg/location"
)

// Defaults applied by NewClient.
const (
	DefaultMaxConcurrent  = 5
	DefaultConnectTimeout = 10 * time.Second
	DefaultUserAgent      = "fetchurl/1.0"
)

// Options configure a Client and its built-in drivers.
type Options struct {
	MaxConcurrent  int
	ConnectTimeout time.Duration
	UserAgent      string
	MaxBodySize    int64
}

// Client is the Transport used in production. Each transfer runs on its own
// goroutine; at most MaxConcurrent of them talk to the network at once.
type Client struct {
	drivers map[string]Driver
	sem     *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	active map[uuid.UUID]*running
	closed bool
}

type running struct {
	transfer *Transfer
	cancel   context.CancelFunc
}

// NewClient creates a client with the http and ftp drivers installed.
func NewClient(opts Options) *Client {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		drivers: make(map[string]Driver),
		sem:     semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		ctx:     ctx,
		cancel:  cancel,
		active:  make(map[uuid.UUID]*running),
	}
	c.RegisterDriver(location.ProtocolHTTP, NewHTTPDriver(opts.ConnectTimeout, opts.UserAgent, opts.MaxBodySize))
	c.RegisterDriver(location.ProtocolFTP, NewFTPDriver(opts.ConnectTimeout, opts.MaxBodySize))
	return c
}

// RegisterDriver installs or replaces the driver for scheme.
func (c *Client) RegisterDriver(scheme string, d Driver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drivers[scheme] = d
}

// Add implements Transport.
func (c *Client) Add(t *Transfer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return pkgerrors.ErrTransportClosed
	}
	driver, ok := c.drivers[t.Protocol]
	if !ok {
		return pkgerrors.ErrUnsupportedProtocolWithScheme(t.Protocol)
	}
	if _, exists := c.active[t.ID]; exists {
		return pkgerrors.ErrTransferRegistered
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if t.Timeout > 0 {
		ctx, cancel = context.WithTimeout(c.ctx, t.Timeout)
	} else {
		ctx, cancel = context.WithCancel(c.ctx)
	}
	c.active[t.ID] = &running{transfer: t, cancel: cancel}

	c.wg.Add(1)
	go c.run(ctx, t, driver)

	logger.Debug("Transfer added", logger.Fields{"id": t.ID.String(), "url": t.URL.String(), "method": t.Method()})
	return nil
}

func (c *Client) run(ctx context.Context, t *Transfer, driver Driver) {
	defer c.wg.Done()

	if err := c.sem.Acquire(ctx, 1); err != nil {
		c.finish(t, failed(err, Meta{FileSize: -1}))
		return
	}
	result := driver.Do(ctx, t)
	c.sem.Release(1)

	if result.Err != nil {
		logger.Debug("Transfer failed", logger.Fields{"id": t.ID.String(), "error": result.Err.Error()})
	}
	c.finish(t, result)
}

func (c *Client) finish(t *Transfer, result Result) {
	c.mu.Lock()
	r, ok := c.active[t.ID]
	ok = ok && r.transfer == t
	if ok {
		delete(c.active, t.ID)
		r.cancel()
	}
	c.mu.Unlock()

	if ok {
		t.Complete(result)
	}
}

// Remove implements Transport.
func (c *Client) Remove(t *Transfer) {
	c.mu.Lock()
	r, ok := c.active[t.ID]
	ok = ok && r.transfer == t
	if ok {
		delete(c.active, t.ID)
	}
	c.mu.Unlock()

	if ok {
		r.cancel()
		logger.Debug("Transfer removed", logger.Fields{"id": t.ID.String()})
	}
	t.detach()
}

// Active returns the number of registered transfers.
func (c *Client) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

// Close implements Transport. It is safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	pending := make([]*running, 0, len(c.active))
	for id, r := range c.active {
		pending = append(pending, r)
		delete(c.active, id)
	}
	c.mu.Unlock()

	for _, r := range pending {
		r.transfer.detach()
	}
	c.cancel()
	c.wg.Wait()
	return nil
}
