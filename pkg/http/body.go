package http

import "strconv"

// BodyMode says how a request body is framed.
type BodyMode uint8

const (
	BodyAbsent  BodyMode = iota // no body, zero length
	BodyFixed                   // Content-Length bytes
	BodyChunked                 // Transfer-Encoding: chunked
)

func (m BodyMode) String() string {
	switch m {
	case BodyFixed:
		return "fixed"
	case BodyChunked:
		return "chunked"
	default:
		return "absent"
	}
}

// BodyLength is the resolved framing of a request body.
type BodyLength struct {
	Mode BodyMode
	Size int64 // valid for BodyFixed
}

// ResolveBodyLength decides the body framing from a complete header table.
//
// Content-Length together with Transfer-Encoding is AmbiguousBodyLength; one
// is never preferred over the other. Transfer-Encoding must be exactly
// "chunked" (case-insensitive). Content-Length must be a non-negative decimal.
// With neither header the body is absent.
func ResolveBodyLength(h *Headers) (BodyLength, error) {
	te, hasTE := h.Lookup("Transfer-Encoding")
	cl, hasCL := h.Lookup("Content-Length")

	if hasTE && hasCL {
		return BodyLength{}, newParseError(AmbiguousBodyLength, "", 0)
	}
	if hasTE {
		if !eqFold(trimString(te), "chunked") {
			return BodyLength{}, newParseError(UnsupportedTransferEncoding, te, 0)
		}
		return BodyLength{Mode: BodyChunked}, nil
	}
	if hasCL {
		n, err := parseContentLength(cl)
		if err != nil {
			return BodyLength{}, err
		}
		return BodyLength{Mode: BodyFixed, Size: n}, nil
	}
	return BodyLength{Mode: BodyAbsent}, nil
}

// parseContentLength accepts 1*DIGIT only; signs, spaces inside the number
// and lists are rejected.
func parseContentLength(v string) (int64, error) {
	s := trimString(v)
	if s == "" {
		return 0, newParseError(InvalidContentLength, "empty value", 0)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, newParseError(InvalidContentLength, strconv.Quote(v), 0)
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, wrapParseError(InvalidContentLength, err, 0)
	}
	return n, nil
}
