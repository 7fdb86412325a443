package transport

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/fetchurl/pkg/errors"
	"github.com/glorpus-work/fetchurl/pkg/location"
)

var lastModified = time.Date(2024, time.March, 9, 10, 11, 12, 0, time.UTC)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Last-Modified", lastModified.Format(http.TimeFormat))
		w.Header().Set("Content-Length", "11")
		_, _ = io.WriteString(w, "hello world")
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Method", r.Method)
		w.Header().Set("X-Content-Type", r.Header.Get("Content-Type"))
		w.Header().Set("X-Agent", r.UserAgent())
		_, _ = w.Write(body)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func transferFor(t *testing.T, raw string) *Transfer {
	t.Helper()
	loc, err := location.Parse(raw)
	require.NoError(t, err)
	tr := NewTransfer(loc, nil)
	tr.RequestFileTime = true
	return tr
}

func TestHTTPDriver_Get(t *testing.T) {
	srv := newTestServer(t)
	d := NewHTTPDriver(time.Second, "", 0)

	tr := transferFor(t, srv.URL+"/data")
	res := d.Do(context.Background(), tr)

	require.NoError(t, res.Err)
	assert.True(t, res.Good)
	assert.Equal(t, "hello world", string(res.Data))
	assert.Equal(t, int64(11), res.Length)
	assert.Equal(t, int64(11), tr.Received())
	assert.Equal(t, http.StatusOK, res.Meta.Code)
	assert.Equal(t, int64(11), res.Meta.FileSize)
	assert.True(t, lastModified.Equal(res.Meta.FileTime))
}

func TestHTTPDriver_Post(t *testing.T) {
	srv := newTestServer(t)
	d := NewHTTPDriver(time.Second, "agent/2", 0)

	tr := transferFor(t, srv.URL+"/echo")
	body := "a=1"
	tr.Post = &body

	res := d.Do(context.Background(), tr)
	require.NoError(t, res.Err)
	assert.Equal(t, "a=1", string(res.Data))
	assert.True(t, res.Meta.FileTime.IsZero())
}

func TestHTTPDriver_Head(t *testing.T) {
	srv := newTestServer(t)
	d := NewHTTPDriver(time.Second, "", 0)

	tr := transferFor(t, srv.URL+"/data")
	tr.Head = true

	res := d.Do(context.Background(), tr)
	require.NoError(t, res.Err)
	assert.True(t, res.Good)
	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Data)
	assert.Equal(t, int64(11), res.Meta.FileSize)
}

func TestHTTPDriver_StatusHandling(t *testing.T) {
	srv := newTestServer(t)
	d := NewHTTPDriver(time.Second, "", 0)

	tr := transferFor(t, srv.URL+"/missing")
	res := d.Do(context.Background(), tr)
	assert.True(t, res.Good, "error bodies are delivered without fail-on-error")
	assert.Equal(t, http.StatusNotFound, res.Meta.Code)
	assert.Contains(t, string(res.Data), "gone")

	tr = transferFor(t, srv.URL+"/missing")
	tr.FailOnError = true
	res = d.Do(context.Background(), tr)
	assert.False(t, res.Good)
	assert.Nil(t, res.Data)
	assert.ErrorIs(t, res.Err, errors.ErrHTTPStatus)
	assert.Equal(t, http.StatusNotFound, res.Meta.Code)
}

func TestHTTPDriver_MaxBodySize(t *testing.T) {
	srv := newTestServer(t)
	d := NewHTTPDriver(time.Second, "", 4)

	res := d.Do(context.Background(), transferFor(t, srv.URL+"/data"))
	assert.False(t, res.Good)
	assert.Nil(t, res.Data)
	assert.ErrorIs(t, res.Err, errors.ErrBodyTooLarge)
}

func TestHTTPDriver_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	d := NewHTTPDriver(time.Second, "", 0)
	res := d.Do(context.Background(), transferFor(t, "http://"+addr+"/"))
	assert.False(t, res.Good)
	assert.Error(t, res.Err)
	assert.Equal(t, 0, res.Meta.Code)
	assert.Equal(t, int64(-1), res.Meta.FileSize)
}

func TestHTTPDriver_RequestHeaders(t *testing.T) {
	seen := make(chan *http.Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Clone(context.Background())
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewHTTPDriver(time.Second, "agent/2", 0)
	tr := transferFor(t, srv.URL+"/form")
	body := "x=y"
	tr.Post = &body

	res := d.Do(context.Background(), tr)
	require.NoError(t, res.Err)
	assert.Equal(t, http.StatusNoContent, res.Meta.Code)

	r := <-seen
	assert.Equal(t, http.MethodPost, r.Method)
	assert.Equal(t, "agent/2", r.UserAgent())
	assert.Equal(t, formContentType, r.Header.Get("Content-Type"))
}
