// Package location validates and decomposes the URLs accepted by fetch.
package location

import (
	"net"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/idna"

	"github.com/glorpus-work/fetchurl/pkg/errors"
)

// Supported protocols.
const (
	ProtocolHTTP = "http"
	ProtocolFTP  = "ftp"
)

const schemeSeparator = "://"

var defaultPorts = map[string]int{
	ProtocolHTTP: 80,
	ProtocolFTP:  21,
}

var hostProfile = idna.New(
	idna.MapForLookup(),
	idna.StrictDomainName(false),
	idna.Transitional(false),
)

// Location is a validated URL split into the parts the transport needs.
type Location struct {
	// Raw is the normalized input, i.e. what the caller supplied with a scheme added when missing.
	Raw      string
	Protocol string
	Host     string
	Port     int
	Path     string
	RawQuery string
	User     *url.Userinfo
}

// Normalize prefixes http:// when raw carries no scheme separator.
func Normalize(raw string) string {
	if strings.Contains(raw, schemeSeparator) {
		return raw
	}
	return ProtocolHTTP + schemeSeparator + raw
}

// Parse normalizes raw and decomposes it. Every failure is reported as errors.ErrBadURL.
func Parse(raw string) (*Location, error) {
	if raw == "" || strings.IndexFunc(raw, badRune) >= 0 {
		return nil, errors.ErrBadURL
	}

	normalized := Normalize(raw)
	u, err := url.Parse(normalized)
	if err != nil || u.Opaque != "" {
		return nil, errors.ErrBadURL
	}

	protocol := strings.ToLower(u.Scheme)
	defaultPort, ok := defaultPorts[protocol]
	if !ok {
		return nil, errors.ErrBadURL
	}

	host, err := normalizeHost(u.Hostname())
	if err != nil {
		return nil, errors.ErrBadURL
	}

	port := defaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return nil, errors.ErrBadURL
		}
	} else if strings.HasSuffix(u.Host, ":") {
		return nil, errors.ErrBadURL
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	return &Location{
		Raw:      normalized,
		Protocol: protocol,
		Host:     host,
		Port:     port,
		Path:     path,
		RawQuery: u.RawQuery,
		User:     u.User,
	}, nil
}

func badRune(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsControl(r)
}

func normalizeHost(hostname string) (string, error) {
	if hostname == "" {
		return "", errors.ErrBadURL
	}
	if ip := net.ParseIP(hostname); ip != nil {
		return strings.ToLower(hostname), nil
	}
	ascii, err := hostProfile.ToASCII(hostname)
	if err != nil || ascii == "" {
		return "", errors.ErrBadURL
	}
	return strings.ToLower(ascii), nil
}

// Address returns host:port suitable for dialing.
func (l *Location) Address() string {
	return net.JoinHostPort(l.Host, strconv.Itoa(l.Port))
}

// URL rebuilds the canonical form handed to the transport.
func (l *Location) URL() *url.URL {
	host := l.Host
	if l.Port != defaultPorts[l.Protocol] {
		host = l.Address()
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	u := &url.URL{
		Scheme:   l.Protocol,
		Host:     host,
		User:     l.User,
		RawQuery: l.RawQuery,
	}
	if unescaped, err := url.PathUnescape(l.Path); err == nil {
		u.Path = unescaped
		u.RawPath = l.Path
	} else {
		u.Path = l.Path
	}
	return u
}

// String returns the canonical URL.
func (l *Location) String() string {
	return l.URL().String()
}
