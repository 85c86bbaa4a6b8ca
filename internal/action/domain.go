package action

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalidDomainPattern = errors.New("invalid domain pattern")

// ValidateDomainPattern enforces the scoping rules for action domains: a
// wildcard may only appear as a leading "*." and every pattern must name at
// least a domain and an ending, so "*", "*.com" and "*e.com" are rejected.
func ValidateDomainPattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("%w: empty pattern", ErrInvalidDomainPattern)
	}
	if strings.Contains(pattern[1:], "*") {
		return fmt.Errorf("%w: %q: wildcard '*' is only allowed at the beginning of the pattern", ErrInvalidDomainPattern, pattern)
	}
	if strings.HasPrefix(pattern, "*") {
		if !strings.HasPrefix(pattern, "*.") {
			return fmt.Errorf("%w: %q: a leading '*' must be followed by a dot", ErrInvalidDomainPattern, pattern)
		}
		if !strings.Contains(pattern[2:], ".") {
			return fmt.Errorf("%w: %q: the pattern must contain a domain and an ending (e.g. 'domain.ending')", ErrInvalidDomainPattern, pattern)
		}
		return nil
	}
	if !strings.Contains(pattern, ".") {
		return fmt.Errorf("%w: %q: the pattern must contain a domain and an ending (e.g. 'domain.ending')", ErrInvalidDomainPattern, pattern)
	}
	return nil
}

// MatchDomain reports whether host matches pattern, case-insensitively.
// "*.example.com" matches example.com and any subdomain of it. Exact
// patterns treat a "www." prefix as optional on both sides.
func MatchDomain(host, pattern string) (bool, error) {
	if err := ValidateDomainPattern(pattern); err != nil {
		return false, err
	}
	host = strings.ToLower(host)
	pattern = strings.ToLower(pattern)

	if suffix, ok := strings.CutPrefix(pattern, "*."); ok {
		return host == suffix || strings.HasSuffix(host, "."+suffix), nil
	}

	host = strings.TrimPrefix(host, "www.")
	pattern = strings.TrimPrefix(pattern, "www.")
	return host == pattern, nil
}

// hostOf returns the lowercase host name of a page URL.
func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	return strings.ToLower(u.Hostname()), nil
}
