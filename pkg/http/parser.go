package http

import (
	"io"

	"github.com/shapestone/shape-core/pkg/ast"
)

// Parse parses an HTTP/1.1 request into an AST from a string.
//
// The request is read with the Decoder and DefaultLimits, then converted with
// RequestToNode:
//
//	{ "type": "request", "method": "GET", "target": "/api?x=1",
//	  "path": "/api", "query": [{"key": "x", "value": "1"}],
//	  "version": "HTTP/1.1",
//	  "headers": [{"key": "Host", "value": "example.com"}, ...],
//	  "body": "..." }
func Parse(input string) (ast.SchemaNode, error) {
	req, err := UnmarshalRequest([]byte(input))
	if err != nil {
		return nil, err
	}
	return RequestToNode(req), nil
}

// ParseReader reads one request from r and parses it into an AST.
func ParseReader(r io.Reader) (ast.SchemaNode, error) {
	req, err := NewDecoder(r).DecodeRequest()
	if err != nil {
		return nil, err
	}
	return RequestToNode(req), nil
}
