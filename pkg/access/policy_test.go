package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/fetchurl/pkg/errors"
	"github.com/glorpus-work/fetchurl/pkg/location"
)

func TestPolicyAllowed(t *testing.T) {
	tests := []struct {
		name  string
		allow []string
		deny  []string
		host  string
		want  bool
	}{
		{name: "empty lists allow everything", host: "example.org", want: true},
		{name: "exact allow", allow: []string{"example.org"}, host: "example.org", want: true},
		{name: "not in allow list", allow: []string{"example.org"}, host: "other.org", want: false},
		{name: "wildcard matches subdomain", allow: []string{"*.example.org"}, host: "cdn.example.org", want: true},
		{name: "wildcard skips apex", allow: []string{"*.example.org"}, host: "example.org", want: false},
		{name: "deny wins", allow: []string{"*.example.org"}, deny: []string{"bad.example.org"}, host: "bad.example.org", want: false},
		{name: "deny only", deny: []string{"blocked.net"}, host: "fine.net", want: true},
		{name: "case insensitive", allow: []string{"Example.ORG"}, host: "EXAMPLE.org", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPolicy(tt.allow, tt.deny, 4)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Allowed(tt.host))
			// second lookup is served from the cache
			assert.Equal(t, tt.want, p.Allowed(tt.host))
			assert.Equal(t, 1, p.CachedHosts())
		})
	}
}

func TestPolicyCheck(t *testing.T) {
	p, err := NewPolicy(nil, []string{"*.blocked.test"}, 0)
	require.NoError(t, err)

	loc, err := location.Parse("http://www.blocked.test/x")
	require.NoError(t, err)
	err = p.Check(loc)
	require.ErrorIs(t, err, errors.ErrHostNotPermitted)
	assert.Contains(t, err.Error(), "www.blocked.test")

	loc, err = location.Parse("ftp://open.test/x")
	require.NoError(t, err)
	assert.NoError(t, p.Check(loc))
}

func TestNilPolicy(t *testing.T) {
	var p *Policy
	loc, err := location.Parse("example.org")
	require.NoError(t, err)
	assert.NoError(t, p.Check(loc))
	assert.True(t, p.Allowed("anything"))
	assert.Equal(t, 0, p.CachedHosts())
	p.Reset()
}

func TestInvalidPatterns(t *testing.T) {
	for _, bad := range []string{"", "*.", "a b", "ex*ample.org", "host:80", "http://x"} {
		t.Run(bad, func(t *testing.T) {
			_, err := NewPolicy([]string{bad}, nil, 1)
			assert.ErrorIs(t, err, errors.ErrInvalidHostPattern)
			assert.ErrorIs(t, ValidatePatterns([]string{bad}), errors.ErrInvalidHostPattern)
		})
	}
}

func TestCacheEviction(t *testing.T) {
	p, err := NewPolicy(nil, nil, 2)
	require.NoError(t, err)
	p.Allowed("a.test")
	p.Allowed("b.test")
	p.Allowed("c.test")
	assert.Equal(t, 2, p.CachedHosts())
	p.Reset()
	assert.Equal(t, 0, p.CachedHosts())
}
