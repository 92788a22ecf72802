package http

import (
	"bytes"
	"fmt"
)

// Unmarshaler is the interface implemented by types that can unmarshal an
// HTTP wire-format representation of themselves.
type Unmarshaler interface {
	UnmarshalHTTP(data []byte) error
}

// Unmarshal parses the HTTP wire-format request in data and stores the result
// in v, which must be a *Request or implement Unmarshaler.
//
// Parsing is identical to the streaming Decoder with DefaultLimits: the same
// smuggling checks, limits and chunked decoding apply. Bytes after the first
// request are ignored.
func Unmarshal(data []byte, v interface{}) error {
	if v == nil {
		return fmt.Errorf("http: Unmarshal(nil)")
	}

	// Check for Unmarshaler interface
	if u, ok := v.(Unmarshaler); ok {
		return u.UnmarshalHTTP(data)
	}

	switch target := v.(type) {
	case *Request:
		return NewDecoder(bytes.NewReader(data)).Decode(target)
	default:
		return fmt.Errorf("http: Unmarshal unsupported type %T (expected *Request)", v)
	}
}

// UnmarshalRequest parses HTTP wire-format data as a request.
func UnmarshalRequest(data []byte) (*Request, error) {
	return NewDecoder(bytes.NewReader(data)).DecodeRequest()
}
