package http

import (
	"fmt"

	"github.com/shapestone/shape-core/pkg/ast"
)

// Render converts an AST node back to HTTP wire format bytes.
//
// The node must be an ObjectNode whose "type" is "request" or "response", as
// produced by Parse, RequestToNode or ResponseToNode. Requests are validated
// like decoded ones before they are written.
func Render(node ast.SchemaNode) ([]byte, error) {
	obj, ok := node.(*ast.ObjectNode)
	if !ok {
		return nil, fmt.Errorf("http: Render: expected ObjectNode, got %T", node)
	}

	var msg interface{}
	var err error
	switch msgType := literalString(obj.Properties()["type"]); msgType {
	case "request":
		msg, err = NodeToRequest(node)
	case "response":
		msg, err = NodeToResponse(node)
	default:
		return nil, fmt.Errorf("http: Render: unknown message type %q", msgType)
	}
	if err != nil {
		return nil, fmt.Errorf("http: Render: %w", err)
	}
	return Marshal(msg)
}
