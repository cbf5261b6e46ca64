package util

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

// Default ports by scheme.
const (
	DefaultHTTPPort  = 80
	DefaultHTTPSPort = 443
)

// RequestScheme returns the lowercase scheme of r: the URL scheme when
// the request carries one, otherwise https for TLS connections and
// http for the rest.
func RequestScheme(r *http.Request) string {
	switch {
	case r.URL != nil && r.URL.Scheme != "":
		return strings.ToLower(r.URL.Scheme)
	case r.TLS != nil:
		return "https"
	default:
		return "http"
	}
}

// RequestHostPort returns the lowercase hostname and port of r for the
// given scheme. The Host header wins over the URL host.
func RequestHostPort(r *http.Request, scheme string) (string, int) {
	hostport := r.Host
	if hostport == "" && r.URL != nil {
		hostport = r.URL.Host
	}
	return SplitHostPort(hostport, scheme)
}

// SplitHostPort strips the port from a Host header value and
// lowercases the hostname, dropping IPv6 brackets and a trailing dot.
// Without an explicit port, the default port of the scheme is used.
func SplitHostPort(hostport, scheme string) (string, int) {
	host := hostport
	port := 0

	if h, p, err := net.SplitHostPort(hostport); err == nil {
		host = h
		if n, convErr := strconv.Atoi(p); convErr == nil {
			port = n
		}
	}
	host = strings.ToLower(strings.TrimSuffix(strings.Trim(host, "[]"), "."))

	if port == 0 {
		port = DefaultPort(scheme)
	}
	return host, port
}

// DefaultPort returns the port implied by scheme.
func DefaultPort(scheme string) int {
	if strings.EqualFold(scheme, "https") {
		return DefaultHTTPSPort
	}
	return DefaultHTTPPort
}
