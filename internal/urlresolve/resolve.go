// Package urlresolve turns a stored media reference into a URL a client can
// fetch. Stored values were written under two historical backend setups, so a
// reference may be empty, an absolute URL pointing at the old host:port, an
// absolute URL on an external store, or a bare relative path.
package urlresolve

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Kind classifies a stored reference.
type Kind int

const (
	KindEmpty Kind = iota
	KindLegacyLocal
	KindExternal
	KindRelative
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindLegacyLocal:
		return "legacy-local"
	case KindExternal:
		return "external"
	case KindRelative:
		return "relative"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Reference is a stored media value tagged with its classification.
type Reference struct {
	Kind Kind
	Raw  string
}

// Classify tags raw. Branch order matters: the legacy marker is checked
// before the scheme so that old absolute URLs still get rewritten.
func Classify(raw, legacyHost string) Reference {
	switch {
	case raw == "":
		return Reference{Kind: KindEmpty}
	case legacyHost != "" && strings.Contains(raw, legacyHost):
		return Reference{Kind: KindLegacyLocal, Raw: raw}
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return Reference{Kind: KindExternal, Raw: raw}
	default:
		return Reference{Kind: KindRelative, Raw: raw}
	}
}

// Resolver resolves references against the current API base URL.
type Resolver struct {
	base        string
	legacyHost  string
	currentHost string
}

// NewResolver builds a Resolver. apiBase is the server origin that serves
// /uploads (e.g. http://localhost:4000); legacyHost is the host:port marker
// of the previous configuration (e.g. localhost:3000).
func NewResolver(apiBase, legacyHost string) (*Resolver, error) {
	u, err := url.Parse(apiBase)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	r := &Resolver{
		base:       strings.TrimRight(apiBase, "/"),
		legacyHost: legacyHost,
	}
	if legacyHost != "" {
		host, _, err := net.SplitHostPort(legacyHost)
		if err != nil {
			return nil, fmt.Errorf("parse legacy host %q: %w", legacyHost, err)
		}
		port := u.Port()
		if port == "" {
			port = defaultPort(u.Scheme)
		}
		r.currentHost = net.JoinHostPort(host, port)
	}
	return r, nil
}

// Resolve returns the fetchable URL for raw, or "" when raw is empty.
func (r *Resolver) Resolve(raw string) string {
	ref := Classify(raw, r.legacyHost)
	switch ref.Kind {
	case KindEmpty:
		return ""
	case KindLegacyLocal:
		return strings.Replace(ref.Raw, r.legacyHost, r.currentHost, 1)
	case KindExternal:
		return ref.Raw
	default:
		return r.base + "/" + strings.TrimPrefix(ref.Raw, "/")
	}
}

func defaultPort(scheme string) string {
	if scheme == "https" {
		return "443"
	}
	return "80"
}
