package http

import (
	"strings"

	"golang.org/x/net/http/httpguts"
)

// CheckHost enforces the Host policy on req: exactly one Host header with a
// syntactically valid value and, when allowed is non-empty, a value equal to
// one of its entries (ASCII case-insensitive). An HTTP/1.0 request may omit
// Host unless an allow-list is configured. Failures are InvalidHost.
func CheckHost(req *Request, allowed []string) error {
	switch n := req.Headers.Count("Host"); {
	case n == 0 && req.Version == Version10 && len(allowed) == 0:
		return nil
	case n == 0:
		return newParseError(InvalidHost, "missing Host header", 0)
	case n > 1:
		return newParseError(InvalidHost, "duplicate Host header", 0)
	}

	host := trimString(req.Host())
	if host == "" || !httpguts.ValidHostHeader(host) {
		return newParseError(InvalidHost, "malformed Host value "+host, 0)
	}
	if len(allowed) == 0 {
		return nil
	}
	for _, a := range allowed {
		if strings.EqualFold(a, host) {
			return nil
		}
	}
	return newParseError(InvalidHost, host+" is not an allowed host", 0)
}
