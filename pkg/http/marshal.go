package http

import (
	"fmt"
	"sync"
)

// bufPool pools serialization buffers.
var bufPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, 2048)
		return &b
	},
}

// Marshal returns the HTTP/1.1 wire-format encoding of v, which must be a
// *Response, a *Request or a Marshaler.
//
// Responses follow AppendResponse. For requests Content-Length is set from
// the body unless a framing header is already present; a chunked request body
// is written as one chunk.
func Marshal(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("http: Marshal(nil)")
	}
	if m, ok := v.(Marshaler); ok {
		return m.MarshalHTTP()
	}

	var appendMsg func([]byte) ([]byte, error)
	switch msg := v.(type) {
	case *Response:
		appendMsg = func(buf []byte) ([]byte, error) { return AppendResponse(buf, msg) }
	case *Request:
		appendMsg = func(buf []byte) ([]byte, error) { return appendRequest(buf, msg) }
	default:
		return nil, fmt.Errorf("http: Marshal unsupported type %T (expected *Request or *Response)", v)
	}

	bp := bufPool.Get().(*[]byte)
	defer bufPool.Put(bp)

	buf, err := appendMsg((*bp)[:0])
	*bp = buf[:0]
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, nil
}
