package http

import (
	"net/url"
	"strings"
)

// Query holds decoded query parameters. Keys keep the order in which they were
// first seen; setting an existing key overwrites its value in place.
// The zero value is an empty query.
type Query struct {
	keys   []string
	values map[string]string
}

// ParseQuery decodes a raw query string ("a=1&b=hello+world"). Pairs without
// '=' get an empty value, empty pairs are skipped, '+' decodes to a space.
func ParseQuery(raw string) (Query, error) {
	var q Query
	for raw != "" {
		var pair string
		pair, raw, _ = strings.Cut(raw, "&")
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return Query{}, err
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return Query{}, err
		}
		q.Set(key, value)
	}
	return q, nil
}

// Set stores value under key.
func (q *Query) Set(key, value string) {
	if q.values == nil {
		q.values = make(map[string]string)
	}
	if _, ok := q.values[key]; !ok {
		q.keys = append(q.keys, key)
	}
	q.values[key] = value
}

// Lookup returns the value for key and whether it exists.
func (q *Query) Lookup(key string) (string, bool) {
	v, ok := q.values[key]
	return v, ok
}

// Get returns the value for key, or "" if absent.
func (q *Query) Get(key string) string { return q.values[key] }

// Has reports whether key is present.
func (q *Query) Has(key string) bool {
	_, ok := q.values[key]
	return ok
}

// Len returns the number of distinct keys.
func (q *Query) Len() int { return len(q.keys) }

// Keys returns the keys in first-seen order.
func (q *Query) Keys() []string {
	if len(q.keys) == 0 {
		return nil
	}
	out := make([]string, len(q.keys))
	copy(out, q.keys)
	return out
}

// Encode renders the query back to "k=v&k2=v2" in key order.
func (q *Query) Encode() string {
	var sb strings.Builder
	for i, k := range q.keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(k))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(q.values[k]))
	}
	return sb.String()
}

// splitTarget validates an origin-form or asterisk-form request-target and
// splits it into path and decoded query.
func splitTarget(method Method, target string) (string, Query, error) {
	for i := 0; i < len(target); i++ {
		if c := target[i]; c < 0x21 || c >= 0x7f {
			return "", Query{}, newParseError(MalformedRequestLine, "control character in request target", 0)
		}
	}
	if target == "*" {
		if method != MethodOptions {
			return "", Query{}, newParseError(MalformedRequestLine, "asterisk-form target is only valid for OPTIONS", 0)
		}
		return target, Query{}, nil
	}
	if !strings.HasPrefix(target, "/") {
		return "", Query{}, newParseError(MalformedRequestLine, "request target must be origin-form: "+target, 0)
	}
	path, rawQuery, _ := strings.Cut(target, "?")
	q, err := ParseQuery(rawQuery)
	if err != nil {
		return "", Query{}, wrapParseError(MalformedRequestLine, err, 0)
	}
	return path, q, nil
}
