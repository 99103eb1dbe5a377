package rank

import (
	"fmt"
	"net/url"
	"strings"
)

// Matcher reports whether a search result link belongs to a tracked domain.
type Matcher func(link, domain string) bool

// Matching strategy names accepted in configuration.
const (
	MatchStrategySubstring = "substring"
	MatchStrategyHost      = "host"
)

// SubstringMatch is the historical matcher: a case-insensitive containment
// test on the whole link. Note it also matches domains embedded in longer
// hostnames ("kia.lk" matches links on "wikia.lk").
func SubstringMatch(link, domain string) bool {
	if domain == "" {
		return false
	}
	return strings.Contains(strings.ToLower(link), strings.ToLower(domain))
}

// HostMatch matches only when the link's hostname equals the domain or is a
// subdomain of it.
func HostMatch(link, domain string) bool {
	if domain == "" {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	want := strings.ToLower(strings.TrimPrefix(domain, "www."))
	host = strings.TrimPrefix(host, "www.")
	return host == want || strings.HasSuffix(host, "."+want)
}

// MatcherFor resolves a configured strategy name to its matcher.
func MatcherFor(strategy string) (Matcher, error) {
	switch strategy {
	case "", MatchStrategySubstring:
		return SubstringMatch, nil
	case MatchStrategyHost:
		return HostMatch, nil
	default:
		return nil, fmt.Errorf("unknown matching strategy %q", strategy)
	}
}
