package http

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a request parse failure. The dispatcher maps each kind
// to a response status with Status.
//
// ErrorKind implements error so that errors.Is(err, HeadersTooLarge) matches
// any *ParseError of that kind.
type ErrorKind int

const (
	MalformedRequestLine ErrorKind = iota + 1
	MalformedHeader
	HeadersTooLarge
	DuplicateTransferEncoding
	DuplicateContentLength
	AmbiguousBodyLength
	InvalidContentLength
	UnsupportedTransferEncoding
	MalformedChunkSize
	ChunkSizeTooLarge
	BodyTooLarge
	MalformedChunk
	InvalidHost
	UnsupportedMethod
	UnsupportedVersion
	ConnectionTimedOut
	IoFailure
)

var kindNames = map[ErrorKind]string{
	MalformedRequestLine:        "malformed request line",
	MalformedHeader:             "malformed header",
	HeadersTooLarge:             "headers too large",
	DuplicateTransferEncoding:   "duplicate Transfer-Encoding",
	DuplicateContentLength:      "conflicting Content-Length",
	AmbiguousBodyLength:         "both Content-Length and Transfer-Encoding present",
	InvalidContentLength:        "invalid Content-Length",
	UnsupportedTransferEncoding: "unsupported Transfer-Encoding",
	MalformedChunkSize:          "malformed chunk size",
	ChunkSizeTooLarge:           "chunk size too large",
	BodyTooLarge:                "body too large",
	MalformedChunk:              "malformed chunk",
	InvalidHost:                 "invalid Host",
	UnsupportedMethod:           "unsupported method",
	UnsupportedVersion:          "unsupported HTTP version",
	ConnectionTimedOut:          "connection timed out",
	IoFailure:                   "I/O failure",
}

// Error implements the error interface.
func (k ErrorKind) Error() string {
	return "http: " + k.String()
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown error kind %d", int(k))
}

// Status returns the response status code for the kind, or 0 when the
// connection must be closed without a response.
func (k ErrorKind) Status() int {
	switch k {
	case HeadersTooLarge:
		return 431
	case BodyTooLarge:
		return 413
	case UnsupportedMethod, UnsupportedTransferEncoding:
		return 501
	case UnsupportedVersion:
		return 505
	case ConnectionTimedOut, IoFailure:
		return 0
	default:
		return 400
	}
}

// ParseError represents an error that occurred while reading a request.
type ParseError struct {
	Kind    ErrorKind // failure class, drives the response status
	Message string    // human-readable detail
	Line    int       // 1-indexed line number where the error occurred (0 if unknown)
	Err     error     // underlying cause, if any
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := e.Kind.String()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Line > 0 {
		msg = fmt.Sprintf("http: parse error at line %d: %s", e.Line, msg)
	} else {
		msg = "http: " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error { return e.Err }

// Is reports whether target is the kind of this error.
func (e *ParseError) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

// KindOf returns the ErrorKind carried by err, or 0 if err is not a parse error.
func KindOf(err error) ErrorKind {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	var k ErrorKind
	if errors.As(err, &k) {
		return k
	}
	return 0
}

func newParseError(kind ErrorKind, msg string, line int) *ParseError {
	return &ParseError{Kind: kind, Message: msg, Line: line}
}

func wrapParseError(kind ErrorKind, err error, line int) *ParseError {
	return &ParseError{Kind: kind, Line: line, Err: err}
}
