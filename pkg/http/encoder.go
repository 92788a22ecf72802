package http

import (
	"fmt"
	"strconv"
)

// AppendResponse appends the HTTP/1.1 wire form of resp to buf.
//
// Headers are written in insertion order. When the caller did not set
// Content-Length one is added with the exact body length, except for 1xx and
// 204 responses, which carry no body. Chunked responses are not produced, so
// a Transfer-Encoding header is an error.
func AppendResponse(buf []byte, resp *Response) ([]byte, error) {
	if resp.StatusCode < 100 || resp.StatusCode > 599 {
		return buf, fmt.Errorf("http: invalid response status code %d", resp.StatusCode)
	}
	if resp.Headers.Contains("Transfer-Encoding") {
		return buf, fmt.Errorf("http: response Transfer-Encoding is not supported")
	}
	bodyless := resp.StatusCode < 200 || resp.StatusCode == 204
	if bodyless && len(resp.Body) > 0 {
		return buf, fmt.Errorf("http: status %d does not allow a body", resp.StatusCode)
	}

	reason := resp.Reason
	if reason == "" {
		reason = StatusText(resp.StatusCode)
	}

	buf = appendStatusLine(buf, resp.StatusCode, reason)
	buf = appendHeaders(buf, &resp.Headers)

	// Auto-set Content-Length if header absent
	if !bodyless && !resp.Headers.Contains("Content-Length") {
		buf = append(buf, "Content-Length: "...)
		buf = strconv.AppendInt(buf, int64(len(resp.Body)), 10)
		buf = appendCRLF(buf)
	}

	buf = appendCRLF(buf) // empty line before body
	return append(buf, resp.Body...), nil
}

// appendRequest serializes a Request to HTTP/1.1 wire format.
// It appends "METHOD TARGET VERSION\r\n" followed by headers and body.
// A chunked request has its body re-encoded as a single chunk.
func appendRequest(buf []byte, req *Request) ([]byte, error) {
	if req.Method == MethodUnsupported || int(req.Method) >= len(methodNames) {
		return buf, fmt.Errorf("http: cannot marshal request with method %s", req.Method)
	}
	target := requestTarget(req)
	if target == "" {
		return buf, fmt.Errorf("http: request target is empty")
	}

	buf = appendRequestLine(buf, req.Method, target, req.Version)
	buf = appendHeaders(buf, &req.Headers)

	chunked := req.Headers.Contains("Transfer-Encoding")
	// Auto-set Content-Length if body present and framing headers absent
	if len(req.Body) > 0 && !chunked && !req.Headers.Contains("Content-Length") {
		buf = append(buf, "Content-Length: "...)
		buf = strconv.AppendInt(buf, int64(len(req.Body)), 10)
		buf = appendCRLF(buf)
	}

	buf = appendCRLF(buf) // empty line before body
	if chunked {
		return AppendChunked(buf, req.Body, 0), nil
	}
	return append(buf, req.Body...), nil
}

// requestTarget returns Target, or rebuilds it from Path and Query.
func requestTarget(req *Request) string {
	if req.Target != "" {
		return req.Target
	}
	if req.Query.Len() == 0 {
		return req.Path
	}
	return req.Path + "?" + req.Query.Encode()
}

// appendHeaders appends all headers in "Key: Value\r\n" format.
func appendHeaders(buf []byte, headers *Headers) []byte {
	for _, h := range headers.fields {
		buf = append(buf, h.Key...)
		buf = append(buf, ':', ' ')
		buf = append(buf, h.Value...)
		buf = appendCRLF(buf)
	}
	return buf
}

// appendCRLF appends \r\n to buf.
func appendCRLF(buf []byte) []byte {
	return append(buf, '\r', '\n')
}

// appendRequestLine appends "METHOD TARGET VERSION\r\n" to buf.
func appendRequestLine(buf []byte, method Method, target string, version Version) []byte {
	buf = append(buf, method.String()...)
	buf = append(buf, ' ')
	buf = append(buf, target...)
	buf = append(buf, ' ')
	buf = append(buf, version.String()...)
	return appendCRLF(buf)
}

// appendStatusLine appends "HTTP/1.1 STATUS REASON\r\n" to buf.
func appendStatusLine(buf []byte, statusCode int, reason string) []byte {
	buf = append(buf, "HTTP/1.1 "...)
	buf = strconv.AppendInt(buf, int64(statusCode), 10)
	buf = append(buf, ' ')
	buf = append(buf, reason...)
	return appendCRLF(buf)
}
