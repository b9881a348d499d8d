package audit

import (
	"net"
	"net/http"
	"strings"
)

// ClientMeta is the request-level metadata recorded with an audit event.
type ClientMeta struct {
	IP        string
	UserAgent string
}

// forwardHeaders are checked in priority order before falling back to the raw
// connection address. Proxies earlier in the chain win.
var forwardHeaders = []string{
	"X-Forwarded-For",
	"Proxy-Client-IP",
	"WL-Proxy-Client-IP",
	"HTTP_CLIENT_IP",
	"HTTP_X_FORWARDED_FOR",
}

// ClientMetaFromRequest resolves the originating client IP and user agent of r.
// A comma-separated forwarding chain yields its first (left-most, original
// client) entry; header values of "unknown" are skipped.
func ClientMetaFromRequest(r *http.Request) ClientMeta {
	return ClientMeta{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	}
}

func clientIP(r *http.Request) string {
	for _, h := range forwardHeaders {
		v := strings.TrimSpace(r.Header.Get(h))
		if v == "" || strings.EqualFold(v, "unknown") {
			continue
		}
		if i := strings.Index(v, ","); i > 0 {
			v = strings.TrimSpace(v[:i])
		}
		return v
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
