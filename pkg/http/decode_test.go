package http

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

func TestDecoder_Request(t *testing.T) {
	data := "GET /api HTTP/1.1\r\nHost: example.com\r\nAccept: */*\r\n\r\n"
	dec := NewDecoder(strings.NewReader(data))

	req := &Request{}
	if err := dec.Decode(req); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if req.Method != MethodGet {
		t.Errorf("Method = %s, want GET", req.Method)
	}
	if req.Path != "/api" || req.Target != "/api" {
		t.Errorf("Path, Target = %q, %q, want /api", req.Path, req.Target)
	}
	if req.Version != Version11 {
		t.Errorf("Version = %s, want HTTP/1.1", req.Version)
	}
	if req.Host() != "example.com" {
		t.Errorf("Host() = %q, want example.com", req.Host())
	}
	if req.Body != nil {
		t.Errorf("Body = %q, want nil", req.Body)
	}
}

func TestDecoder_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantPath string
		wantBody string
	}{
		{
			name:     "root",
			data:     "GET / HTTP/1.1\r\nHost: localhost\r\n\r\n",
			wantPath: "/",
		},
		{
			name:     "query",
			data:     "GET /query?message=hello HTTP/1.1\r\nHost: localhost\r\n\r\n",
			wantPath: "/query",
		},
		{
			name:     "fixed body",
			data:     "POST /echo HTTP/1.1\r\nHost: localhost\r\nContent-Length: 11\r\n\r\nHello World",
			wantPath: "/echo",
			wantBody: "Hello World",
		},
		{
			name:     "chunked body",
			data:     "POST /echo HTTP/1.1\r\nHost: localhost\r\nTransfer-Encoding: chunked\r\n\r\nb\r\nHello World\r\n0\r\n\r\n",
			wantPath: "/echo",
			wantBody: "Hello World",
		},
		{
			name:     "bare LF",
			data:     "POST /echo HTTP/1.1\nHost: localhost\nContent-Length: 2\n\nhi",
			wantPath: "/echo",
			wantBody: "hi",
		},
		{
			name:     "leading empty lines",
			data:     "\r\n\r\nGET /status HTTP/1.0\r\nHost: localhost\r\n\r\n",
			wantPath: "/status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := UnmarshalRequest([]byte(tt.data))
			if err != nil {
				t.Fatalf("UnmarshalRequest() error = %v", err)
			}
			if req.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", req.Path, tt.wantPath)
			}
			if string(req.Body) != tt.wantBody {
				t.Errorf("Body = %q, want %q", req.Body, tt.wantBody)
			}
		})
	}
}

func TestDecoder_Query(t *testing.T) {
	req, err := UnmarshalRequest([]byte("GET /query?message=hello+world&x=%21&message=again HTTP/1.1\r\nHost: a\r\n\r\n"))
	if err != nil {
		t.Fatalf("UnmarshalRequest() error = %v", err)
	}
	if got := req.Query.Get("message"); got != "again" {
		t.Errorf("Query.Get(message) = %q, want again", got)
	}
	if got := req.Query.Get("x"); got != "!" {
		t.Errorf("Query.Get(x) = %q, want !", got)
	}
	if keys := req.Query.Keys(); len(keys) != 2 || keys[0] != "message" {
		t.Errorf("Query.Keys() = %v", keys)
	}
}

func TestDecoder_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr ErrorKind
	}{
		{"smuggling TE.TE", "POST / HTTP/1.1\r\nHost: a\r\nTransfer-Encoding: chunked\r\nTransfer-Encoding: chunked\r\n\r\n0\r\n\r\n", DuplicateTransferEncoding},
		{"smuggling TE.te", "POST / HTTP/1.1\r\nHost: a\r\ntransfer-encoding: chunked\r\nTRANSFER-ENCODING: identity\r\n\r\n", DuplicateTransferEncoding},
		{"smuggling CL.TE", "POST / HTTP/1.1\r\nHost: a\r\nContent-Length: 5\r\nTransfer-Encoding: chunked\r\n\r\n0\r\n\r\n", AmbiguousBodyLength},
		{"smuggling TE.CL", "POST / HTTP/1.1\r\nHost: a\r\nTransfer-Encoding: chunked\r\nContent-Length: 5\r\n\r\n0\r\n\r\n", AmbiguousBodyLength},
		{"smuggling CL.CL", "POST / HTTP/1.1\r\nHost: a\r\nContent-Length: 5\r\nContent-Length: 6\r\n\r\nhello!", DuplicateContentLength},
		{"invalid content length", "POST / HTTP/1.1\r\nContent-Length: five\r\n\r\n", InvalidContentLength},
		{"unsupported encoding", "POST / HTTP/1.1\r\nTransfer-Encoding: gzip\r\n\r\n", UnsupportedTransferEncoding},
		{"two fields", "GET /\r\n\r\n", MalformedRequestLine},
		{"four fields", "GET / HTTP/1.1 extra\r\n\r\n", MalformedRequestLine},
		{"bad version", "GET / HTTX/1.1\r\n\r\n", MalformedRequestLine},
		{"http2 version", "GET / HTTP/2.0\r\n\r\n", UnsupportedVersion},
		{"unknown method", "BREW /pot HTTP/1.1\r\n\r\n", UnsupportedMethod},
		{"lowercase method", "get / HTTP/1.1\r\n\r\n", UnsupportedMethod},
		{"method not token", "G(T / HTTP/1.1\r\n\r\n", MalformedRequestLine},
		{"absolute form", "GET http://a/ HTTP/1.1\r\n\r\n", MalformedRequestLine},
		{"asterisk on GET", "GET * HTTP/1.1\r\n\r\n", MalformedRequestLine},
		{"bad escape", "GET /q?m=%zz HTTP/1.1\r\n\r\n", MalformedRequestLine},
		{"header without colon", "GET / HTTP/1.1\r\nHost localhost\r\n\r\n", MalformedHeader},
		{"space before colon", "GET / HTTP/1.1\r\nHost : localhost\r\n\r\n", MalformedHeader},
		{"empty header name", "GET / HTTP/1.1\r\n: value\r\n\r\n", MalformedHeader},
		{"obs fold", "GET / HTTP/1.1\r\nX-A: 1\r\n continued\r\n\r\n", MalformedHeader},
		{"control in value", "GET / HTTP/1.1\r\nX-A: a\x00b\r\n\r\n", MalformedHeader},
		{"invalid utf8", "GET / HTTP/1.1\r\nX-A: \xff\xfe\r\n\r\n", MalformedHeader},
		{"truncated headers", "GET / HTTP/1.1\r\nHost: a\r\n", IoFailure},
		{"truncated body", "POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nabc", IoFailure},
		{"empty input", "", IoFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := UnmarshalRequest([]byte(tt.data))
			if err == nil {
				t.Fatalf("UnmarshalRequest() = %+v, want error %v", req, tt.wantErr)
			}
			if req != nil {
				t.Errorf("UnmarshalRequest() returned a request on error")
			}
			if got := KindOf(err); got != tt.wantErr {
				t.Errorf("KindOf(err) = %v, want %v (err = %v)", got, tt.wantErr, err)
			}
		})
	}
}

func TestDecoder_ErrorLine(t *testing.T) {
	_, err := UnmarshalRequest([]byte("GET / HTTP/1.1\r\nHost: a\r\nBad Header\r\n\r\n"))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if pe.Line != 3 {
		t.Errorf("Line = %d, want 3", pe.Line)
	}
}

func TestDecoder_RequestLineErrorLine(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantKind ErrorKind
		wantLine int
	}{
		{"first line", "GET /\r\n\r\n", MalformedRequestLine, 1},
		{"after empty lines", "\r\n\r\nGET /\r\n\r\n", MalformedRequestLine, 3},
		{"bad target", "\r\nGET foo HTTP/1.1\r\n\r\n", MalformedRequestLine, 2},
		{"bad version", "\r\nGET / HTTP/2.0\r\n\r\n", UnsupportedVersion, 2},
		{"tab separators", "\nGET\t/\tHTTP/1.1\r\n\r\n", MalformedRequestLine, 2},
		{"leading space", " GET / HTTP/1.1\r\n\r\n", MalformedRequestLine, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalRequest([]byte(tt.raw))
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error = %v, want *ParseError", err)
			}
			if pe.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", pe.Kind, tt.wantKind)
			}
			if pe.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", pe.Line, tt.wantLine)
			}
		})
	}
}

func TestDecoder_HeadersTooLarge(t *testing.T) {
	limits := Limits{MaxHeaderBytes: 64}
	data := "GET / HTTP/1.1\r\nHost: a\r\nX-Pad: " + strings.Repeat("a", 64) + "\r\n\r\n"

	_, err := NewDecoderWithLimits(strings.NewReader(data), limits).DecodeRequest()
	if !errors.Is(err, HeadersTooLarge) {
		t.Fatalf("DecodeRequest() error = %v, want HeadersTooLarge", err)
	}
	if HeadersTooLarge.Status() != 431 {
		t.Errorf("Status() = %d, want 431", HeadersTooLarge.Status())
	}
}

func TestDecoder_HeadersTooLargeCountsManyLines(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("GET / HTTP/1.1\r\n")
	for i := 0; i < 20; i++ {
		sb.WriteString("X-A: b\r\n")
	}
	sb.WriteString("\r\n")

	_, err := NewDecoderWithLimits(strings.NewReader(sb.String()), Limits{MaxHeaderBytes: 100}).DecodeRequest()
	if !errors.Is(err, HeadersTooLarge) {
		t.Fatalf("DecodeRequest() error = %v, want HeadersTooLarge", err)
	}

	_, err = NewDecoderWithLimits(strings.NewReader(sb.String()), Limits{MaxHeaderBytes: 256}).DecodeRequest()
	if err != nil {
		t.Fatalf("DecodeRequest() within limit error = %v", err)
	}
}

func TestDecoder_HeadersTooLargeBeforeBody(t *testing.T) {
	// The body is never reached, so the short stream is not an I/O failure.
	data := "POST / HTTP/1.1\r\nContent-Length: 100\r\nX-Pad: " + strings.Repeat("a", 200) + "\r\n\r\n"
	_, err := NewDecoderWithLimits(strings.NewReader(data), Limits{MaxHeaderBytes: 128}).DecodeRequest()
	if !errors.Is(err, HeadersTooLarge) {
		t.Fatalf("DecodeRequest() error = %v, want HeadersTooLarge", err)
	}
}

func TestDecoder_BodyTooLarge(t *testing.T) {
	limits := Limits{MaxBodySize: 10}

	_, err := NewDecoderWithLimits(strings.NewReader("POST / HTTP/1.1\r\nContent-Length: 11\r\n\r\n"), limits).DecodeRequest()
	if !errors.Is(err, BodyTooLarge) {
		t.Errorf("fixed: error = %v, want BodyTooLarge", err)
	}

	chunked := "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n6\r\nhello \r\n6\r\nworld!\r\n0\r\n\r\n"
	_, err = NewDecoderWithLimits(strings.NewReader(chunked), limits).DecodeRequest()
	if !errors.Is(err, BodyTooLarge) {
		t.Errorf("chunked: error = %v, want BodyTooLarge", err)
	}
}

func TestDecoder_ChunkedTrailersMerged(t *testing.T) {
	data := "POST /echo HTTP/1.1\r\nHost: a\r\nTransfer-Encoding: chunked\r\n\r\n3\r\nabc\r\n0\r\nX-Digest: 123\r\n\r\n"
	req, err := UnmarshalRequest([]byte(data))
	if err != nil {
		t.Fatalf("UnmarshalRequest() error = %v", err)
	}
	if got := req.Headers.Get("X-Digest"); got != "123" {
		t.Errorf("trailer X-Digest = %q, want 123", got)
	}
	if string(req.Body) != "abc" {
		t.Errorf("Body = %q, want abc", req.Body)
	}
}

func TestDecoder_TrailerDuplicateTransferEncoding(t *testing.T) {
	data := "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n0\r\nTransfer-Encoding: chunked\r\n\r\n"
	_, err := UnmarshalRequest([]byte(data))
	if !errors.Is(err, DuplicateTransferEncoding) {
		t.Fatalf("error = %v, want DuplicateTransferEncoding", err)
	}
}

func TestDecoder_SequentialRequests(t *testing.T) {
	data := "POST /a HTTP/1.1\r\nContent-Length: 3\r\n\r\nabcGET /b HTTP/1.1\r\n\r\n"
	dec := NewDecoder(strings.NewReader(data))

	first, err := dec.DecodeRequest()
	if err != nil {
		t.Fatalf("first DecodeRequest() error = %v", err)
	}
	second, err := dec.DecodeRequest()
	if err != nil {
		t.Fatalf("second DecodeRequest() error = %v", err)
	}
	if first.Path != "/a" || string(first.Body) != "abc" || second.Path != "/b" {
		t.Errorf("got %s %q then %s", first.Path, first.Body, second.Path)
	}
}

func TestDecoder_DecodeLeavesRequestOnError(t *testing.T) {
	req := &Request{Path: "/keep"}
	err := NewDecoder(strings.NewReader("GET /new HTTP/1.1\r\nBad\r\n\r\n")).Decode(req)
	if err == nil {
		t.Fatal("Decode() error = nil, want error")
	}
	if req.Path != "/keep" {
		t.Errorf("Path = %q, want /keep", req.Path)
	}
}

func TestDecoder_ReusesBufioReader(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("GET / HTTP/1.1\r\n\r\nrest"))
	dec := NewDecoder(br)
	if _, err := dec.DecodeRequest(); err != nil {
		t.Fatalf("DecodeRequest() error = %v", err)
	}
	if dec.Reader() != br {
		t.Error("Reader() is not the supplied *bufio.Reader")
	}
	if dec.Buffered() != len("rest") {
		t.Errorf("Buffered() = %d, want 4", dec.Buffered())
	}
}

func TestDecoder_IdleTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		_, _ = io.WriteString(client, "GET / HTTP/1.1\r\nHost: a\r\n")
	}()

	dec := NewDecoderWithLimits(server, Limits{IdleTimeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := dec.DecodeRequest()
	if !errors.Is(err, ConnectionTimedOut) {
		t.Fatalf("DecodeRequest() error = %v, want ConnectionTimedOut", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestLimits_Defaults(t *testing.T) {
	l := Limits{}.withDefaults()
	if l.MaxHeaderBytes != DefaultMaxHeaderBytes || l.MaxChunkSize != DefaultMaxChunkSize || l.MaxBodySize != DefaultMaxBodySize {
		t.Errorf("withDefaults() = %+v", l)
	}
	if l.IdleTimeout != 0 {
		t.Errorf("IdleTimeout = %v, want 0", l.IdleTimeout)
	}
	if d := DefaultLimits(); d.IdleTimeout != DefaultIdleTimeout {
		t.Errorf("DefaultLimits().IdleTimeout = %v", d.IdleTimeout)
	}
}
