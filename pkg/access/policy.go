// Package access decides which hosts fetches may reach.
//
// Patterns are plain host names ("example.org") or suffix wildcards
// ("*.example.org", which matches sub domains but not the apex). Deny
// patterns always win. An empty allow list admits every host that is not
// denied. Decisions are cached per host.
package access

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/glorpus-work/fetchurl/internal/logger"
	"github.com/glorpus-work/fetchurl/pkg/errors"
	"github.com/glorpus-work/fetchurl/pkg/location"
)

// DefaultCacheSize is used when NewPolicy is given a non-positive size.
const DefaultCacheSize = 256

// Policy is a host allow/deny list. A nil *Policy admits everything.
type Policy struct {
	allow []pattern
	deny  []pattern
	cache *lru.Cache[string, bool]
}

type pattern struct {
	host     string
	wildcard bool
}

// NewPolicy compiles the allow and deny patterns.
func NewPolicy(allow, deny []string, cacheSize int) (*Policy, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	allowPatterns, err := compile(allow)
	if err != nil {
		return nil, err
	}
	denyPatterns, err := compile(deny)
	if err != nil {
		return nil, err
	}

	cache, err := lru.New[string, bool](cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create host decision cache")
	}

	return &Policy{
		allow: allowPatterns,
		deny:  denyPatterns,
		cache: cache,
	}, nil
}

// ValidatePatterns reports the first malformed pattern, if any.
func ValidatePatterns(patterns []string) error {
	_, err := compile(patterns)
	return err
}

func compile(raw []string) ([]pattern, error) {
	patterns := make([]pattern, 0, len(raw))
	for _, p := range raw {
		p = strings.ToLower(strings.TrimSpace(p))
		wildcard := strings.HasPrefix(p, "*.")
		host := strings.TrimPrefix(p, "*.")
		if host == "" || strings.ContainsAny(host, "*/ \t:") {
			return nil, errors.ErrInvalidHostPatternWithValue(p)
		}
		patterns = append(patterns, pattern{host: host, wildcard: wildcard})
	}
	return patterns, nil
}

func (p pattern) matches(host string) bool {
	if p.wildcard {
		return strings.HasSuffix(host, "."+p.host)
	}
	return host == p.host
}

// Allowed reports whether host may be fetched.
func (p *Policy) Allowed(host string) bool {
	if p == nil {
		return true
	}
	host = strings.ToLower(host)
	if allowed, ok := p.cache.Get(host); ok {
		return allowed
	}

	allowed := p.decide(host)
	p.cache.Add(host, allowed)
	logger.Debug("Host access decided", logger.Fields{"host": host, "allowed": allowed})
	return allowed
}

func (p *Policy) decide(host string) bool {
	for _, d := range p.deny {
		if d.matches(host) {
			return false
		}
	}
	if len(p.allow) == 0 {
		return true
	}
	for _, a := range p.allow {
		if a.matches(host) {
			return true
		}
	}
	return false
}

// Check returns errors.ErrHostNotPermitted when loc's host is rejected.
func (p *Policy) Check(loc *location.Location) error {
	if p == nil || loc == nil {
		return nil
	}
	if !p.Allowed(loc.Host) {
		return errors.ErrHostNotPermittedWithHost(loc.Host)
	}
	return nil
}

// CachedHosts returns how many decisions are cached.
func (p *Policy) CachedHosts() int {
	if p == nil {
		return 0
	}
	return p.cache.Len()
}

// Reset drops all cached decisions.
func (p *Policy) Reset() {
	if p == nil {
		return
	}
	p.cache.Purge()
}
