package testutil

import (
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glorpus-work/fetchurl/internal/logger"
)

// FTP fixture credentials. Any other password is refused with 530.
const (
	FTPUser     = "anonymous"
	FTPPassword = "anonymous@"
)

// FTPServer is a minimal passive-mode FTP fixture. It speaks enough of the
// protocol for USER, PASS, FEAT, TYPE, OPTS, SIZE, MDTM, EPSV, RETR and QUIT.
type FTPServer struct {
	Addr string

	files  map[string]string
	noMDTM bool

	listener net.Listener
	wg       sync.WaitGroup

	mu       sync.Mutex
	commands []string
}

// FTPOption configures an FTPServer.
type FTPOption func(*FTPServer)

// WithoutMDTM hides MDTM from the FEAT listing.
func WithoutMDTM() FTPOption {
	return func(s *FTPServer) { s.noMDTM = true }
}

// NewFTPServer starts an FTP fixture serving files, keyed by absolute path.
// Missing paths answer 550 and every file reports LastModified. The server
// is closed when the test ends.
func NewFTPServer(t *testing.T, files map[string]string, opts ...FTPOption) *FTPServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	s := &FTPServer{
		Addr:     ln.Addr().String(),
		files:    files,
		listener: ln,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	logger.Debugf("FTP fixture listening on %s", s.Addr)
	return s
}

// Path returns the ftp:// URL of p.
func (s *FTPServer) Path(p string) string {
	return "ftp://" + s.Addr + p
}

// Commands returns the verbs received so far, in order.
func (s *FTPServer) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Close stops accepting connections and waits for open sessions to end.
func (s *FTPServer) Close() {
	_ = s.listener.Close()
	s.wg.Wait()
}

func (s *FTPServer) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.session(conn)
		}()
	}
}

type ftpSession struct {
	server *FTPServer
	proto  *textproto.Conn
	data   net.Listener
}

func (s *FTPServer) session(conn net.Conn) {
	sess := &ftpSession{server: s, proto: textproto.NewConn(conn)}
	defer func() {
		if sess.data != nil {
			_ = sess.data.Close()
		}
		_ = sess.proto.Close()
	}()

	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))
	sess.reply(220, "fixture ready")

	for {
		line, err := sess.proto.ReadLine()
		if err != nil {
			return
		}
		verb, arg, _ := strings.Cut(line, " ")
		verb = strings.ToUpper(verb)

		s.mu.Lock()
		s.commands = append(s.commands, verb)
		s.mu.Unlock()

		if !sess.handle(verb, arg) {
			return
		}
	}
}

// handle answers one command and reports whether the session goes on.
func (sess *ftpSession) handle(verb, arg string) bool {
	s := sess.server
	switch verb {
	case "USER":
		sess.reply(331, "password required")
	case "PASS":
		if arg != FTPPassword {
			sess.reply(530, "login incorrect")
			return true
		}
		sess.reply(230, "logged in")
	case "FEAT":
		features := []string{" SIZE", " UTF8"}
		if !s.noMDTM {
			features = append(features, " MDTM")
		}
		_ = sess.proto.PrintfLine("211-Features:")
		for _, f := range features {
			_ = sess.proto.PrintfLine("%s", f)
		}
		sess.reply(211, "End")
	case "TYPE", "OPTS":
		sess.reply(200, "ok")
	case "SIZE":
		content, ok := s.files[arg]
		if !ok {
			sess.reply(550, "no such file")
			return true
		}
		sess.reply(213, fmt.Sprintf("%d", len(content)))
	case "MDTM":
		if _, ok := s.files[arg]; !ok {
			sess.reply(550, "no such file")
			return true
		}
		sess.reply(213, LastModified.UTC().Format("20060102150405"))
	case "EPSV":
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			sess.reply(425, "cannot open data connection")
			return true
		}
		sess.data = ln
		port := ln.Addr().(*net.TCPAddr).Port
		sess.reply(229, fmt.Sprintf("Entering Extended Passive Mode (|||%d|)", port))
	case "RETR":
		sess.retrieve(arg)
	case "QUIT":
		sess.reply(221, "bye")
		return false
	default:
		sess.reply(502, "not implemented")
	}
	return true
}

func (sess *ftpSession) retrieve(path string) {
	if sess.data == nil {
		sess.reply(425, "use EPSV first")
		return
	}
	ln := sess.data
	sess.data = nil
	defer func() { _ = ln.Close() }()

	dataConn, err := ln.Accept()
	if err != nil {
		sess.reply(425, "cannot open data connection")
		return
	}

	content, ok := sess.server.files[path]
	if !ok {
		_ = dataConn.Close()
		sess.reply(550, "no such file")
		return
	}

	sess.reply(150, "opening data connection")
	_, _ = dataConn.Write([]byte(content))
	_ = dataConn.Close()
	sess.reply(226, "transfer complete")
}

func (sess *ftpSession) reply(code int, msg string) {
	_ = sess.proto.PrintfLine("%d %s", code, msg)
}
