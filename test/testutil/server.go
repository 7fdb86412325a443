// Package testutil provides fixtures shared by package and CLI tests.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/glorpus-work/fetchurl/internal/logger"
)

// LastModified is the modification time reported by the /modified fixture.
var LastModified = time.Date(2024, time.March, 9, 10, 11, 12, 0, time.UTC)

// Fixture paths served by TestServer.
const (
	PathHello    = "/hello"
	PathEcho     = "/echo"
	PathMissing  = "/missing"
	PathSlow     = "/slow"
	PathModified = "/modified"
)

// HelloBody is returned by PathHello.
const HelloBody = "hello world"

// TestServer is an HTTP fixture server.
//
//	/hello     200 with HelloBody
//	/echo      echoes the request body, method in X-Method
//	/missing   404
//	/slow      blocks until the client goes away or the server stops
//	/modified  200 with a Last-Modified header of LastModified
type TestServer struct {
	Server *httptest.Server
	URL    string
	stop   chan struct{}
}

// NewTestServer starts a fixture server that is closed when the test ends.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	ts := &TestServer{stop: make(chan struct{})}

	mux := http.NewServeMux()
	mux.HandleFunc(PathHello, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(HelloBody)))
		_, _ = io.WriteString(w, HelloBody)
	})
	mux.HandleFunc(PathEcho, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Method", r.Method)
		_, _ = w.Write(body)
	})
	mux.HandleFunc(PathMissing, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc(PathSlow, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-ts.stop:
		}
	})
	mux.HandleFunc(PathModified, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Last-Modified", LastModified.Format(http.TimeFormat))
		_, _ = io.WriteString(w, "modified")
	})

	ts.Server = httptest.NewServer(mux)
	ts.URL = ts.Server.URL
	t.Cleanup(ts.Stop)
	logger.Debugf("Fixture server listening on %s", ts.URL)
	return ts
}

// Stop releases slow handlers and closes the server. It is safe to call twice.
func (ts *TestServer) Stop() {
	select {
	case <-ts.stop:
		return
	default:
		close(ts.stop)
	}
	ts.Server.Close()
}

// Path returns the absolute URL of a fixture path.
func (ts *TestServer) Path(p string) string {
	return ts.URL + p
}

// WriteFile writes content below a fresh temporary directory and returns its path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

// SetupTestConfig writes a config file and returns its path.
func SetupTestConfig(t *testing.T, content string) string {
	t.Helper()
	return WriteFile(t, "config.yaml", content)
}
