package http

import "strings"

// Header represents a single HTTP header key-value pair.
type Header struct {
	Key   string
	Value string
}

// Indexes of the headers whose occurrences are counted on insert.
const (
	watchTransferEncoding = iota
	watchContentLength
	watchHost
	watchCount
)

// Headers is an ordered, repeatable list of HTTP headers with case-insensitive
// lookup. Original key case is preserved.
//
// Occurrences of Transfer-Encoding, Content-Length and Host are counted as
// entries are inserted, so the request-smuggling checks never rescan the list.
// The zero value is an empty table ready to use.
type Headers struct {
	fields []Header
	counts [watchCount]int
}

// watchIndex returns the watch-set slot for key, or -1.
func watchIndex(key string) int {
	switch len(key) {
	case len("Transfer-Encoding"):
		if eqFold(key, "Transfer-Encoding") {
			return watchTransferEncoding
		}
	case len("Content-Length"):
		if eqFold(key, "Content-Length") {
			return watchContentLength
		}
	case len("Host"):
		if eqFold(key, "Host") {
			return watchHost
		}
	}
	return -1
}

// Insert appends a header. A second Transfer-Encoding fails with
// DuplicateTransferEncoding; a second Content-Length whose value differs from
// the first fails with DuplicateContentLength. Nothing is merged or dropped.
func (h *Headers) Insert(key, value string) error {
	switch watchIndex(key) {
	case watchTransferEncoding:
		if h.counts[watchTransferEncoding] > 0 {
			return newParseError(DuplicateTransferEncoding, "second Transfer-Encoding header", 0)
		}
	case watchContentLength:
		if h.counts[watchContentLength] > 0 {
			first, _ := h.Lookup("Content-Length")
			if trimString(first) != trimString(value) {
				return newParseError(DuplicateContentLength, first+" vs "+value, 0)
			}
		}
	}
	h.fields = append(h.fields, Header{Key: key, Value: value})
	if i := watchIndex(key); i >= 0 {
		h.counts[i]++
	}
	return nil
}

// Lookup returns the first value for key (case-insensitive) and whether it exists.
func (h *Headers) Lookup(key string) (string, bool) {
	for _, hdr := range h.fields {
		if strings.EqualFold(hdr.Key, key) {
			return hdr.Value, true
		}
	}
	return "", false
}

// Get returns the first header value for the given key (case-insensitive).
// Returns empty string if not found.
func (h *Headers) Get(key string) string {
	v, _ := h.Lookup(key)
	return v
}

// Contains reports whether at least one header with key exists.
func (h *Headers) Contains(key string) bool {
	return h.Count(key) > 0
}

// Count returns the number of headers named key. Watched headers are O(1).
func (h *Headers) Count(key string) int {
	if i := watchIndex(key); i >= 0 {
		return h.counts[i]
	}
	n := 0
	for _, hdr := range h.fields {
		if strings.EqualFold(hdr.Key, key) {
			n++
		}
	}
	return n
}

// Values returns all header values for the given key (case-insensitive).
func (h *Headers) Values(key string) []string {
	var vals []string
	for _, hdr := range h.fields {
		if strings.EqualFold(hdr.Key, key) {
			vals = append(vals, hdr.Value)
		}
	}
	return vals
}

// Set replaces every header with the given key by a single entry holding
// value, keeping the position of the first one, or appends if not found.
func (h *Headers) Set(key, value string) {
	for i, hdr := range h.fields {
		if strings.EqualFold(hdr.Key, key) {
			h.fields[i].Value = value
			j := i + 1
			for j < len(h.fields) {
				if strings.EqualFold(h.fields[j].Key, key) {
					h.fields = append(h.fields[:j], h.fields[j+1:]...)
				} else {
					j++
				}
			}
			h.recount()
			return
		}
	}
	h.fields = append(h.fields, Header{Key: key, Value: value})
	if i := watchIndex(key); i >= 0 {
		h.counts[i]++
	}
}

// Del removes all headers with the given key (case-insensitive).
func (h *Headers) Del(key string) {
	j := 0
	for _, hdr := range h.fields {
		if !strings.EqualFold(hdr.Key, key) {
			h.fields[j] = hdr
			j++
		}
	}
	h.fields = h.fields[:j]
	h.recount()
}

// Len returns the number of header entries.
func (h *Headers) Len() int { return len(h.fields) }

// All returns a copy of the entries in insertion order.
func (h *Headers) All() []Header {
	if len(h.fields) == 0 {
		return nil
	}
	out := make([]Header, len(h.fields))
	copy(out, h.fields)
	return out
}

// Clone returns a deep copy of the headers.
func (h *Headers) Clone() Headers {
	return Headers{fields: h.All(), counts: h.counts}
}

func (h *Headers) recount() {
	h.counts = [watchCount]int{}
	for _, hdr := range h.fields {
		if i := watchIndex(hdr.Key); i >= 0 {
			h.counts[i]++
		}
	}
}

// trimString trims leading and trailing SP and HTAB.
func trimString(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}

// eqFold is a fast ASCII case-insensitive string comparison.
func eqFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
