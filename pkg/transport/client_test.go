package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/glorpus-work/fetchurl/pkg/errors"
	"github.com/glorpus-work/fetchurl/pkg/location"
	"github.com/glorpus-work/fetchurl/pkg/transport"
	trmocks "github.com/glorpus-work/fetchurl/pkg/transport/mocks"
)

type completion struct {
	transfer *transport.Transfer
	result   transport.Result
}

func newTransfer(t *testing.T, raw string, done chan<- completion) *transport.Transfer {
	t.Helper()
	loc, err := location.Parse(raw)
	require.NoError(t, err)
	return transport.NewTransfer(loc, func(tr *transport.Transfer, r transport.Result) {
		done <- completion{transfer: tr, result: r}
	})
}

func newClient(t *testing.T, driver transport.Driver) *transport.Client {
	t.Helper()
	c := transport.NewClient(transport.Options{MaxConcurrent: 2})
	c.RegisterDriver("http", driver)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_DeliversResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	driver := trmocks.NewMockDriver(ctrl)
	driver.EXPECT().Do(gomock.Any(), gomock.Any()).Return(transport.Result{
		Data:   []byte("hello"),
		Length: 5,
		Good:   true,
		Meta:   transport.Meta{FileSize: 5, Code: 200},
	}).Times(1)

	c := newClient(t, driver)
	done := make(chan completion, 1)
	tr := newTransfer(t, "example.org/data", done)

	require.NoError(t, c.Add(tr))

	select {
	case got := <-done:
		assert.Same(t, tr, got.transfer)
		assert.Equal(t, []byte("hello"), got.result.Data)
		assert.True(t, got.result.Good)
		assert.Equal(t, 200, got.result.Meta.Code)
	case <-time.After(2 * time.Second):
		t.Fatal("completion not delivered")
	}
	assert.Eventually(t, func() bool { return c.Active() == 0 }, time.Second, 5*time.Millisecond)
}

func TestClient_RemoveSuppressesCompletion(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	started := make(chan struct{})
	driver := trmocks.NewMockDriver(ctrl)
	driver.EXPECT().Do(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ *transport.Transfer) transport.Result {
			close(started)
			<-ctx.Done()
			return transport.Result{Err: ctx.Err(), Meta: transport.Meta{FileSize: -1}}
		},
	).Times(1)

	c := newClient(t, driver)
	done := make(chan completion, 1)
	tr := newTransfer(t, "http://example.org/slow", done)
	require.NoError(t, c.Add(tr))

	<-started
	c.Remove(tr)
	require.NoError(t, c.Close())

	select {
	case got := <-done:
		t.Fatalf("unexpected completion: %+v", got.result)
	default:
	}
	assert.False(t, tr.Complete(transport.Result{}))
}

func TestClient_Timeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	driver := trmocks.NewMockDriver(ctrl)
	driver.EXPECT().Do(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ *transport.Transfer) transport.Result {
			<-ctx.Done()
			return transport.Result{Err: ctx.Err(), Meta: transport.Meta{FileSize: -1}}
		},
	).Times(1)

	c := newClient(t, driver)
	done := make(chan completion, 1)
	tr := newTransfer(t, "http://example.org/slow", done)
	tr.Timeout = 20 * time.Millisecond
	require.NoError(t, c.Add(tr))

	select {
	case got := <-done:
		assert.False(t, got.result.Good)
		assert.ErrorIs(t, got.result.Err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout did not surface as a completion")
	}
}

func TestClient_AddRejections(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	block := make(chan struct{})
	driver := trmocks.NewMockDriver(ctrl)
	driver.EXPECT().Do(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ *transport.Transfer) transport.Result {
			select {
			case <-block:
			case <-ctx.Done():
			}
			return transport.Result{Meta: transport.Meta{FileSize: -1}}
		},
	).AnyTimes()

	c := newClient(t, driver)
	done := make(chan completion, 4)

	tr := newTransfer(t, "http://example.org/a", done)
	require.NoError(t, c.Add(tr))
	assert.ErrorIs(t, c.Add(tr), errors.ErrTransferRegistered)

	gopher := newTransfer(t, "http://example.org/b", done)
	gopher.Protocol = "gopher"
	assert.ErrorIs(t, c.Add(gopher), errors.ErrUnsupportedProtocol)

	close(block)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	late := newTransfer(t, "http://example.org/c", done)
	assert.ErrorIs(t, c.Add(late), errors.ErrTransportClosed)
}

func TestTransfer_Method(t *testing.T) {
	done := make(chan completion, 1)
	tr := newTransfer(t, "http://example.org/", done)
	assert.Equal(t, "GET", tr.Method())

	body := "a=1"
	tr.Post = &body
	assert.Equal(t, "POST", tr.Method())

	tr.Head = true
	assert.Equal(t, "HEAD", tr.Method())
}

func TestTransfer_CompleteOnce(t *testing.T) {
	done := make(chan completion, 2)
	tr := newTransfer(t, "http://example.org/", done)

	assert.True(t, tr.Complete(transport.Result{Good: true}))
	assert.False(t, tr.Complete(transport.Result{Good: false}))
	assert.Len(t, done, 1)
}
