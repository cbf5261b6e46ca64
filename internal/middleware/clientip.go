package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIPExtractor derives the client address of a request. Without
// trusted proxies only RemoteAddr is used; with them, X-Forwarded-For
// is walked right to left past trusted hops.
type ClientIPExtractor struct {
	trusted []*net.IPNet
}

// NewClientIPExtractor creates an extractor trusting the given CIDRs or
// single addresses. Entries that parse as neither are skipped.
func NewClientIPExtractor(trustedProxies []string) *ClientIPExtractor {
	cidrs := make([]*net.IPNet, 0, len(trustedProxies))
	for _, proxy := range trustedProxies {
		_, cidr, err := net.ParseCIDR(proxy)
		if err != nil {
			ip := net.ParseIP(proxy)
			if ip == nil {
				continue
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128 //nolint:mnd // IPv6 prefix length
			}
			cidr = &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}
		}
		cidrs = append(cidrs, cidr)
	}
	return &ClientIPExtractor{trusted: cidrs}
}

// Extract returns the client address of r.
func (e *ClientIPExtractor) Extract(r *http.Request) string {
	remote := stripPort(r.RemoteAddr)
	if len(e.trusted) == 0 || !e.isTrusted(remote) {
		return remote
	}

	xff := r.Header.Get(HeaderXForwardedFor)
	if xff == "" {
		return remote
	}

	hops := strings.Split(xff, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		ip := strings.TrimSpace(hops[i])
		if ip != "" && !e.isTrusted(ip) {
			return ip
		}
	}
	return remote
}

func (e *ClientIPExtractor) isTrusted(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, cidr := range e.trusted {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
