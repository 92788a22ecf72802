package http

import (
	"bufio"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/http/httpguts"

	"github.com/shapestone/rawhttp/internal/tokenizer"
)

// Default resource limits.
const (
	DefaultMaxHeaderBytes = 8 << 10
	DefaultMaxChunkSize   = 1 << 20
	DefaultMaxBodySize    = 8 << 20
	DefaultIdleTimeout    = 30 * time.Second

	// maxChunkSizeCeiling keeps hex accumulation far from int64 overflow.
	maxChunkSizeCeiling = 1 << 40
)

// Limits bounds the resources one request may consume.
type Limits struct {
	MaxHeaderBytes int           // request line + header section, terminators included
	MaxChunkSize   int64         // largest single chunk accepted
	MaxBodySize    int64         // largest body, fixed-length or cumulative chunked
	IdleTimeout    time.Duration // per-read deadline on streams that support one; 0 disables
}

// DefaultLimits returns 8 KiB of headers, 1 MiB chunks, 8 MiB bodies and a
// 30 second idle timeout.
func DefaultLimits() Limits {
	return Limits{
		MaxHeaderBytes: DefaultMaxHeaderBytes,
		MaxChunkSize:   DefaultMaxChunkSize,
		MaxBodySize:    DefaultMaxBodySize,
		IdleTimeout:    DefaultIdleTimeout,
	}
}

// withDefaults replaces non-positive sizes with the defaults.
func (l Limits) withDefaults() Limits {
	if l.MaxHeaderBytes <= 0 {
		l.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if l.MaxChunkSize <= 0 {
		l.MaxChunkSize = DefaultMaxChunkSize
	}
	if l.MaxChunkSize > maxChunkSizeCeiling {
		l.MaxChunkSize = maxChunkSizeCeiling
	}
	if l.MaxBodySize <= 0 {
		l.MaxBodySize = DefaultMaxBodySize
	}
	if l.IdleTimeout < 0 {
		l.IdleTimeout = 0
	}
	return l
}

// Decoder assembles HTTP requests from an input stream.
// A single Decoder is not safe for concurrent use; create one per connection.
type Decoder struct {
	r      *bufio.Reader
	limits Limits
	line   int
}

// NewDecoder returns a decoder that reads from r with DefaultLimits.
func NewDecoder(r io.Reader) *Decoder {
	return NewDecoderWithLimits(r, DefaultLimits())
}

// NewDecoderWithLimits returns a decoder that reads from r under limits.
// When r has a SetReadDeadline method (a net.Conn) and IdleTimeout is set,
// every read from r is given a fresh deadline of IdleTimeout.
func NewDecoderWithLimits(r io.Reader, limits Limits) *Decoder {
	limits = limits.withDefaults()
	if br, ok := r.(*bufio.Reader); ok {
		return &Decoder{r: br, limits: limits}
	}
	if d, ok := r.(deadlineSetter); ok && limits.IdleTimeout > 0 {
		r = &idleReader{r: r, d: d, timeout: limits.IdleTimeout}
	}
	return &Decoder{r: bufio.NewReader(r), limits: limits}
}

// Limits returns the effective limits.
func (dec *Decoder) Limits() Limits { return dec.limits }

// Buffered returns the number of bytes read from the stream but not consumed
// by any request.
func (dec *Decoder) Buffered() int { return dec.r.Buffered() }

// Reader exposes the buffered stream positioned after the last request.
func (dec *Decoder) Reader() *bufio.Reader { return dec.r }

// DecodeRequest reads the next HTTP request from the stream. On failure no
// request is returned and the error is a *ParseError.
func (dec *Decoder) DecodeRequest() (*Request, error) {
	req := &Request{}
	if err := dec.decodeRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

// Decode reads the next HTTP request into req. req is only written on success.
func (dec *Decoder) Decode(req *Request) error {
	var tmp Request
	if err := dec.decodeRequest(&tmp); err != nil {
		return err
	}
	*req = tmp
	return nil
}

func (dec *Decoder) decodeRequest(req *Request) error {
	dec.line = 0
	budget := dec.limits.MaxHeaderBytes

	// RFC 9112 §2.2: ignore empty lines received before the request-line.
	var line []byte
	for len(line) == 0 {
		l, n, err := dec.readHeadLine(budget)
		if err != nil {
			return err
		}
		budget -= n
		line = l
	}

	if err := parseRequestLine(string(line), req); err != nil {
		return atLine(err, dec.line)
	}

	for {
		l, n, err := dec.readHeadLine(budget)
		if err != nil {
			return err
		}
		budget -= n

		// Empty line = end of headers
		if len(l) == 0 {
			break
		}

		name, value, err := parseHeaderLine(l, dec.line)
		if err != nil {
			return err
		}
		if err := req.Headers.Insert(name, value); err != nil {
			return atLine(err, dec.line)
		}
	}

	bl, err := ResolveBodyLength(&req.Headers)
	if err != nil {
		return atLine(err, dec.line)
	}

	switch bl.Mode {
	case BodyFixed:
		if bl.Size > dec.limits.MaxBodySize {
			return newParseError(BodyTooLarge, "Content-Length exceeds limit", 0)
		}
		if bl.Size == 0 {
			return nil
		}
		body := make([]byte, bl.Size)
		if _, err := io.ReadFull(dec.r, body); err != nil {
			return readFailure(err, 0)
		}
		req.Body = body
	case BodyChunked:
		body, err := NewChunkedDecoder(dec.r, dec.limits, &req.Headers).Decode()
		if err != nil {
			return err
		}
		req.Body = body
	}
	return nil
}

// readHeadLine reads one line of the request head within budget bytes.
func (dec *Decoder) readHeadLine(budget int) ([]byte, int, error) {
	dec.line++
	line, n, err := readLine(dec.r, budget)
	if err == nil {
		return line, n, nil
	}
	if errors.Is(err, errLineTooLong) {
		return nil, n, newParseError(HeadersTooLarge, "header section exceeds limit", dec.line)
	}
	return nil, n, readFailure(err, dec.line)
}

// parseRequestLine fills method, target, path, query and version. Errors
// carry no line number; the caller knows where the request line was.
func parseRequestLine(line string, req *Request) error {
	methodTok, target, versionTok, err := tokenizer.SplitRequestLine(line)
	if err != nil {
		return wrapParseError(MalformedRequestLine, err, 0)
	}

	// The method is a token (RFC 9110 §9.1), same grammar as a field-name.
	if !httpguts.ValidHeaderFieldName(methodTok) {
		return newParseError(MalformedRequestLine, "invalid method token", 0)
	}

	version, err := parseVersion(versionTok)
	if err != nil {
		return err
	}

	method := ParseMethod(methodTok)
	if method == MethodUnsupported {
		return newParseError(UnsupportedMethod, methodTok, 0)
	}

	path, query, err := splitTarget(method, target)
	if err != nil {
		return err
	}

	req.Method = method
	req.Target = target
	req.Path = path
	req.Query = query
	req.Version = version
	return nil
}

// parseVersion accepts HTTP/1.0 and HTTP/1.1. Other HTTP/<d>.<d> versions are
// UnsupportedVersion; anything else is MalformedRequestLine.
func parseVersion(s string) (Version, error) {
	switch s {
	case "HTTP/1.1":
		return Version11, nil
	case "HTTP/1.0":
		return Version10, nil
	}
	if len(s) == len("HTTP/x.y") && strings.HasPrefix(s, "HTTP/") &&
		isDigit(s[5]) && s[6] == '.' && isDigit(s[7]) {
		return 0, newParseError(UnsupportedVersion, s, 0)
	}
	return 0, newParseError(MalformedRequestLine, "invalid protocol version: "+s, 0)
}

// parseHeaderLine splits and validates a header or trailer line.
func parseHeaderLine(line []byte, lineNo int) (string, string, error) {
	if !utf8.Valid(line) {
		return "", "", newParseError(MalformedHeader, "header line is not valid UTF-8", lineNo)
	}
	name, value, err := tokenizer.SplitHeaderLine(string(line))
	if err != nil {
		return "", "", wrapParseError(MalformedHeader, err, lineNo)
	}
	if !httpguts.ValidHeaderFieldName(name) {
		return "", "", newParseError(MalformedHeader, "invalid header name: "+name, lineNo)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return "", "", newParseError(MalformedHeader, "invalid header value for "+name, lineNo)
	}
	return name, value, nil
}

var errLineTooLong = errors.New("line too long")

// readLine reads bytes until LF, stripping CRLF or bare LF. At most limit
// bytes, terminator included, are consumed before errLineTooLong is returned.
// It returns the number of bytes consumed.
func readLine(br *bufio.Reader, limit int) ([]byte, int, error) {
	var line []byte
	n := 0
	for {
		frag, err := br.ReadSlice('\n')
		n += len(frag)
		if n > limit {
			return nil, n, errLineTooLong
		}
		line = append(line, frag...)
		if err == nil {
			break
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF && n > 0 {
			err = io.ErrUnexpectedEOF
		}
		return nil, n, err
	}

	line = line[:len(line)-1]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line, n, nil
}

// readFailure classifies a stream error as a timeout or an I/O failure.
func readFailure(err error, line int) *ParseError {
	if isTimeout(err) {
		return wrapParseError(ConnectionTimedOut, err, line)
	}
	return wrapParseError(IoFailure, err, line)
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// atLine records the line number on a *ParseError that has none.
func atLine(err error, line int) error {
	var pe *ParseError
	if errors.As(err, &pe) && pe.Line == 0 {
		pe.Line = line
	}
	return err
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

type deadlineSetter interface {
	SetReadDeadline(t time.Time) error
}

// idleReader refreshes the read deadline before every read, so the timeout
// measures idleness rather than total request time.
type idleReader struct {
	r       io.Reader
	d       deadlineSetter
	timeout time.Duration
}

func (ir *idleReader) Read(p []byte) (int, error) {
	if err := ir.d.SetReadDeadline(time.Now().Add(ir.timeout)); err != nil {
		return 0, err
	}
	return ir.r.Read(p)
}
