// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine implements the metasearch aggregation core: quota-planned
// concurrent fan-out across source adapters, URL normalization,
// deduplication with score merge, trust-weighted ranking, per-source health
// tracking with circuit breaking, and response caching.
package engine

import (
	"net/url"
	"strings"
)

// redirectParams are the query parameter names upstreams use to carry the
// true destination inside their redirect-wrapper links. Order matters: the
// first parameter that holds an absolute http(s) URL wins.
var redirectParams = []string{"uddg", "url", "u", "q", "target"}

// domainSet is a set of lowercased parent domains for include/exclude
// filtering.
type domainSet map[string]struct{}

// newDomainSet lowercases and trims the given domains, dropping empties and
// a leading "*." wildcard.
func newDomainSet(domains []string) domainSet {
	if len(domains) == 0 {
		return nil
	}
	set := make(domainSet, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		d = strings.TrimPrefix(d, "*.")
		if d == "" {
			continue
		}
		set[d] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// matches reports whether host equals a set entry or sits under one at a
// dot boundary ("sub.example.com" matches "example.com", "notexample.com"
// does not).
func (s domainSet) matches(host string) bool {
	if len(s) == 0 {
		return false
	}
	if _, ok := s[host]; ok {
		return true
	}
	for d := range s {
		if strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// hostname extracts the lowercased hostname with any "www." prefix
// stripped, or "" when the URL does not parse.
func hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// hostIsOwn reports whether host belongs to one of the aggregator's own
// upstreams (exact or dot-boundary suffix match).
func hostIsOwn(host string, ownHosts []string) bool {
	for _, h := range ownHosts {
		h = strings.TrimPrefix(h, "www.")
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// normalizer rejects or canonicalizes candidate URLs. Pure, no I/O.
type normalizer struct {
	ownHosts []string
	include  domainSet
	exclude  domainSet
}

// normalize returns the de-redirected canonical absolute URL for a raw
// candidate URL, or ok=false when the candidate must be dropped: relative
// or non-http(s) URLs, unrecoverable redirect wrappers, results that point
// back at an upstream's own domain, and domain-filter misses. Exclude takes
// precedence over include.
func (n normalizer) normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	// Several upstreams emit scheme-relative wrapper links.
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if hostIsOwn(host, n.ownHosts) {
		// A link hosted on a search engine's own domain is either a
		// redirect wrapper (unwrap one level) or an interstitial page
		// (reject).
		target := unwrapRedirect(u)
		if target == "" {
			return "", false
		}
		raw = target
		u, err = url.Parse(raw)
		if err != nil {
			return "", false
		}
		host = strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		if hostIsOwn(host, n.ownHosts) {
			return "", false
		}
	}

	if host == "" {
		return "", false
	}
	if n.exclude.matches(host) {
		return "", false
	}
	if len(n.include) > 0 && !n.include.matches(host) {
		return "", false
	}
	return raw, true
}

// unwrapRedirect pulls the destination out of a wrapper URL's query
// parameters. Returns "" when no parameter carries an absolute http(s) URL.
func unwrapRedirect(u *url.URL) string {
	q := u.Query()
	for _, name := range redirectParams {
		v := q.Get(name)
		if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
			return v
		}
	}
	return ""
}

// dedupeKey canonicalizes a URL for duplicate comparison: lowercased host
// without "www.", query and fragment dropped, trailing slash trimmed. Two
// results sharing a key are the same result. Unparseable URLs key as
// themselves.
func dedupeKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return strings.TrimSuffix(u.Scheme+"://"+host+u.EscapedPath(), "/")
}
