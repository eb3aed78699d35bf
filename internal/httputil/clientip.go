package httputil

import (
	"net"
	"net/http"
	"strings"
)

// UnknownClient is the shared quota bucket for requests that carry no usable
// client address.
const UnknownClient = "unknown"

// ClientKey derives the quota key for r: the first X-Forwarded-For entry, then
// X-Real-IP, then the peer address without its port.
func ClientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
			return host
		}
		return r.RemoteAddr
	}
	return UnknownClient
}
