package http

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"io"
	"slices"
	"strconv"
)

type chunkState uint8

// maxChunkOverhead bounds the framing bytes (size lines and extensions) a
// chunked body may carry beyond what its data pays for. Each chunk credits
// 16 bytes plus twice its size, so ordinary bodies never approach it.
const maxChunkOverhead = 16 << 10

const (
	stateReadSize chunkState = iota
	stateReadData
	stateReadDataTerminator
	stateReadTrailer
	stateDone
)

// ChunkedDecoder reconstructs a body sent with chunked transfer coding
// (RFC 9112 §7.1).
//
// Format: hex-size [;ext] CRLF data CRLF ... 0 CRLF [trailers] CRLF
//
// Chunk extensions after ';' are ignored, but size lines count against a
// framing overhead budget so tiny chunks with long extensions cannot make the
// reader consume unbounded input. A chunk larger than MaxChunkSize is
// rejected while its size line is parsed, before anything is allocated.
// Trailer lines are bounded by MaxHeaderBytes and folded into the trailer
// table with the same duplicate checks as regular headers. A Content-Length
// trailer is rejected.
type ChunkedDecoder struct {
	r        *bufio.Reader
	limits   Limits
	trailers *Headers
	state    chunkState
	size     int64
	body     []byte
	budget   int   // bytes left for the trailer section
	excess   int64 // framing bytes not yet covered by chunk data
	chunks   int
}

// NewChunkedDecoder returns a decoder reading chunks from r. Trailer fields
// are inserted into trailers; a nil table discards them after validation.
func NewChunkedDecoder(r *bufio.Reader, limits Limits, trailers *Headers) *ChunkedDecoder {
	limits = limits.withDefaults()
	return &ChunkedDecoder{
		r:        r,
		limits:   limits,
		trailers: trailers,
		budget:   limits.MaxHeaderBytes,
	}
}

// Decode runs the decoder to completion and returns the whole body. Nothing
// is returned on failure.
func (d *ChunkedDecoder) Decode() ([]byte, error) {
	for d.state != stateDone {
		var err error
		switch d.state {
		case stateReadSize:
			err = d.readSize()
		case stateReadData:
			err = d.readData()
		case stateReadDataTerminator:
			err = d.readDataTerminator()
		case stateReadTrailer:
			err = d.readTrailer()
		}
		if err != nil {
			d.body = nil
			return nil, err
		}
	}
	return d.body, nil
}

func (d *ChunkedDecoder) readSize() error {
	line, n, err := readLine(d.r, d.limits.MaxHeaderBytes)
	if err != nil {
		if errors.Is(err, errLineTooLong) {
			return newParseError(MalformedChunkSize, "chunk size line too long", 0)
		}
		return readFailure(err, 0)
	}
	d.excess += int64(n)
	if d.excess > maxChunkOverhead {
		return newParseError(MalformedChunk, "chunked body carries too much framing overhead", 0)
	}

	// Strip chunk extension (everything after ';')
	if semi := bytes.IndexByte(line, ';'); semi >= 0 {
		line = line[:semi]
	}
	size, err := parseChunkSize(trimBytes(line), d.limits.MaxChunkSize)
	if err != nil {
		return err
	}

	d.chunks++
	// size 0 = last chunk
	if size == 0 {
		d.state = stateReadTrailer
		return nil
	}
	if int64(len(d.body))+size > d.limits.MaxBodySize {
		return newParseError(BodyTooLarge, "chunked body exceeds limit", 0)
	}
	d.excess = max(d.excess-16-2*size, 0)
	d.size = size
	d.state = stateReadData
	return nil
}

func (d *ChunkedDecoder) readData() error {
	start := len(d.body)
	d.body = slices.Grow(d.body, int(d.size))[:start+int(d.size)]
	if _, err := io.ReadFull(d.r, d.body[start:]); err != nil {
		return readFailure(err, 0)
	}
	d.state = stateReadDataTerminator
	return nil
}

func (d *ChunkedDecoder) readDataTerminator() error {
	var crlf [2]byte
	if _, err := io.ReadFull(d.r, crlf[:]); err != nil {
		return readFailure(err, 0)
	}
	if crlf != [2]byte{'\r', '\n'} {
		return newParseError(MalformedChunk, "expected CRLF after chunk data, got "+strconv.Quote(string(crlf[:])), 0)
	}
	d.state = stateReadSize
	return nil
}

func (d *ChunkedDecoder) readTrailer() error {
	line, n, err := readLine(d.r, d.budget)
	if err != nil {
		if errors.Is(err, errLineTooLong) {
			return newParseError(HeadersTooLarge, "trailer section exceeds limit", 0)
		}
		return readFailure(err, 0)
	}
	d.budget -= n

	// Empty line = end of trailers
	if len(line) == 0 {
		d.state = stateDone
		return nil
	}

	name, value, err := parseHeaderLine(line, 0)
	if err != nil {
		return err
	}
	// RFC 9110 §6.5.1: framing fields are not allowed in trailers.
	if watchIndex(name) == watchContentLength {
		return newParseError(AmbiguousBodyLength, "Content-Length in trailer section", 0)
	}
	if d.trailers == nil {
		return nil
	}
	return d.trailers.Insert(name, value)
}

// Chunks returns the number of chunks read so far, the last chunk included.
func (d *ChunkedDecoder) Chunks() int { return d.chunks }

// parseChunkSize parses a hex chunk size, failing as soon as the value
// exceeds max.
func parseChunkSize(s []byte, max int64) (int64, error) {
	if len(s) == 0 {
		return 0, newParseError(MalformedChunkSize, "empty chunk size", 0)
	}
	var n int64
	for _, c := range s {
		var v byte
		switch {
		case c >= '0' && c <= '9':
			v = c - '0'
		case c >= 'a' && c <= 'f':
			v = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			v = c - 'A' + 10
		default:
			return 0, wrapParseError(MalformedChunkSize, hex.InvalidByteError(c), 0)
		}
		n = n<<4 | int64(v)
		if n > max {
			return 0, newParseError(ChunkSizeTooLarge, "chunk size exceeds "+strconv.FormatInt(max, 10), 0)
		}
	}
	return n, nil
}

// trimBytes trims leading and trailing SP and HTAB.
func trimBytes(b []byte) []byte {
	return bytes.Trim(b, " \t")
}

// Dechunk decodes a complete chunked body held in memory with DefaultLimits.
// Trailers are validated and discarded.
func Dechunk(data []byte) ([]byte, error) {
	body, err := NewChunkedDecoder(bufio.NewReader(bytes.NewReader(data)), DefaultLimits(), nil).Decode()
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	return body, nil
}

// AppendChunked appends body to buf in chunked transfer coding, using chunks
// of at most chunkSize bytes, then the last chunk and an empty trailer
// section. A non-positive chunkSize writes the body as one chunk.
func AppendChunked(buf, body []byte, chunkSize int) []byte {
	if chunkSize <= 0 {
		chunkSize = len(body)
	}
	for len(body) > 0 {
		n := min(chunkSize, len(body))
		buf = strconv.AppendInt(buf, int64(n), 16)
		buf = append(buf, "\r\n"...)
		buf = append(buf, body[:n]...)
		buf = append(buf, "\r\n"...)
		body = body[n:]
	}
	return append(buf, "0\r\n\r\n"...)
}
