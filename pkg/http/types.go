// Package http provides a strict HTTP/1.1 request parser and response
// serializer for raw byte streams.
//
// The parser is built to sit directly on an accepted TCP connection. It
// rejects the header combinations used for request smuggling (duplicate
// Transfer-Encoding, conflicting Content-Length, Content-Length together with
// Transfer-Encoding), bounds the header section, every chunk and the whole
// body, and decodes chunked transfer encoding byte for byte.
//
// # Thread Safety
//
// Request, Response and Headers values are not synchronized; each belongs to
// the goroutine serving its connection. Package-level functions keep no shared
// mutable state and are safe for concurrent use.
//
// # APIs
//
//   - NewDecoder / Decoder.DecodeRequest - streaming request assembly with limits
//   - UnmarshalRequest / Dechunk / Validate - whole-buffer helpers
//   - Marshal / NewEncoder - wire serialization of responses (and requests)
//   - CheckHost - Host header policy check against an allow-list
//   - Parse / RequestToNode / Render - AST views via shape-core
package http

import "strconv"

// Method is a request method. MethodUnsupported is the fallback for any token
// outside the supported set.
type Method uint8

const (
	MethodUnsupported Method = iota
	MethodGet
	MethodPost
	MethodPut
	MethodDelete
	MethodHead
	MethodPatch
	MethodOptions
)

var methodNames = [...]string{
	MethodUnsupported: "UNSUPPORTED",
	MethodGet:         "GET",
	MethodPost:        "POST",
	MethodPut:         "PUT",
	MethodDelete:      "DELETE",
	MethodHead:        "HEAD",
	MethodPatch:       "PATCH",
	MethodOptions:     "OPTIONS",
}

// ParseMethod maps a method token to a Method. Matching is case-sensitive
// (RFC 9110 §9.1); unknown tokens yield MethodUnsupported.
func ParseMethod(s string) Method {
	switch s {
	case "GET":
		return MethodGet
	case "POST":
		return MethodPost
	case "PUT":
		return MethodPut
	case "DELETE":
		return MethodDelete
	case "HEAD":
		return MethodHead
	case "PATCH":
		return MethodPatch
	case "OPTIONS":
		return MethodOptions
	}
	return MethodUnsupported
}

func (m Method) String() string {
	if int(m) < len(methodNames) {
		return methodNames[m]
	}
	return "Method(" + strconv.Itoa(int(m)) + ")"
}

// Version is the protocol version of a request.
type Version uint8

const (
	Version11 Version = iota // HTTP/1.1, the zero value
	Version10
)

func (v Version) String() string {
	if v == Version10 {
		return "HTTP/1.0"
	}
	return "HTTP/1.1"
}

// Request represents a fully assembled HTTP/1.1 request.
// Body length is fixed once the request is returned by the Decoder.
type Request struct {
	Method  Method  // GET, POST, ...
	Target  string  // request-target as received, "/query?message=hello"
	Path    string  // target without the query, "/query"
	Query   Query   // decoded query parameters in first-seen order
	Version Version // HTTP/1.0 or HTTP/1.1
	Headers Headers // ordered headers, trailers appended after chunked bodies
	Body    []byte  // raw body (nil if none)
}

// Host returns the first Host header value.
func (r *Request) Host() string { return r.Headers.Get("Host") }

// Response represents an HTTP/1.1 response.
type Response struct {
	StatusCode int     // 100-599
	Reason     string  // "OK", "Not Found"; StatusText(StatusCode) when empty
	Headers    Headers // ordered headers
	Body       []byte  // raw body (nil if none)
}

// NewResponse returns a response with the standard reason phrase for code and
// a "Connection: close" header.
func NewResponse(code int) *Response {
	resp := &Response{StatusCode: code, Reason: StatusText(code)}
	resp.Headers.Set("Connection", "close")
	return resp
}

// OK returns a 200 response.
func OK() *Response { return NewResponse(200) }

// BadRequest returns a 400 response.
func BadRequest() *Response { return NewResponse(400) }

// NotFound returns a 404 response.
func NotFound() *Response { return NewResponse(404) }

// MethodNotAllowed returns a 405 response.
func MethodNotAllowed() *Response { return NewResponse(405) }

// InternalServerError returns a 500 response.
func InternalServerError() *Response { return NewResponse(500) }

// WithBody sets the body. Content-Length is computed at serialization time.
func (r *Response) WithBody(body []byte) *Response {
	r.Body = body
	return r
}

// WithText sets a text/plain body.
func (r *Response) WithText(s string) *Response {
	r.Headers.Set("Content-Type", "text/plain; charset=utf-8")
	r.Body = []byte(s)
	return r
}

// WithHeader sets a header, replacing any existing value.
func (r *Response) WithHeader(key, value string) *Response {
	r.Headers.Set(key, value)
	return r
}

// Marshaler is the interface implemented by types that can marshal themselves
// into valid HTTP wire format.
type Marshaler interface {
	MarshalHTTP() ([]byte, error)
}
