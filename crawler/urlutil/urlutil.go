// Package urlutil provides URL canonicalization and validity filtering
// shared by every component that discovers or dequeues a link.
package urlutil

import (
	"net/url"
	"strings"
)

// skipExtensions lists the binary/asset suffixes a crawled path must not
// end with, checked case-insensitively.
var skipExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".pdf": {},
	".zip": {}, ".rar": {}, ".exe": {}, ".mp4": {}, ".mp3": {},
	".avi": {}, ".wmv": {}, ".svg": {}, ".css": {}, ".js": {},
	".woff": {}, ".woff2": {}, ".ico": {},
}

// disallowedSchemes are never fetched regardless of how they parse.
var disallowedSchemes = map[string]struct{}{
	"javascript": {}, "mailto": {}, "tel": {},
}

// Normalize canonicalizes rawURL into scheme://host/path[?query]: scheme
// defaults to http, host is lowercased with a leading www. stripped, any
// trailing slash on the path (including a bare root path) is removed, and
// the fragment is dropped. The query string, if any, is preserved verbatim.
func Normalize(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}
	if u.Scheme == "" {
		u.Scheme = "http"
	}
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	u.Host = host
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

// IsValid rejects the empty string, non-http(s) schemes, the explicitly
// disallowed schemes, and paths ending in a binary/asset extension.
func IsValid(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	if _, blocked := disallowedSchemes[scheme]; blocked {
		return false
	}
	if scheme != "" && scheme != "http" && scheme != "https" {
		return false
	}
	path := strings.ToLower(u.Path)
	if idx := strings.LastIndex(path, "."); idx != -1 {
		if _, skip := skipExtensions[path[idx:]]; skip {
			return false
		}
	}
	return true
}

// Domain returns the network location of rawURL, suitable for the domain
// column of a queue-store row. Returns the empty string if rawURL does not
// parse.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(u.Host, "www."))
}
