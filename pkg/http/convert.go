package http

import (
	"fmt"
	"strconv"

	"github.com/shapestone/shape-core/pkg/ast"
)

var zeroPos = ast.Position{}

// RequestToNode converts a Request to an AST ObjectNode:
//
//	{ "type": "request", "method": "GET", "target": "/q?a=1", "path": "/q",
//	  "query": [{"key": "a", "value": "1"}], "version": "HTTP/1.1",
//	  "headers": [{"key": "Host", "value": "localhost"}], "body": "..." }
func RequestToNode(req *Request) ast.SchemaNode {
	props := map[string]ast.SchemaNode{
		"type":    ast.NewLiteralNode("request", zeroPos),
		"method":  ast.NewLiteralNode(req.Method.String(), zeroPos),
		"target":  ast.NewLiteralNode(requestTarget(req), zeroPos),
		"path":    ast.NewLiteralNode(req.Path, zeroPos),
		"query":   queryToNode(&req.Query),
		"version": ast.NewLiteralNode(req.Version.String(), zeroPos),
		"headers": headersToNode(&req.Headers),
	}
	if req.Body != nil {
		props["body"] = ast.NewLiteralNode(string(req.Body), zeroPos)
	}
	return ast.NewObjectNode(props, zeroPos)
}

// ResponseToNode converts a Response to an AST ObjectNode.
func ResponseToNode(resp *Response) ast.SchemaNode {
	reason := resp.Reason
	if reason == "" {
		reason = StatusText(resp.StatusCode)
	}
	props := map[string]ast.SchemaNode{
		"type":       ast.NewLiteralNode("response", zeroPos),
		"version":    ast.NewLiteralNode("HTTP/1.1", zeroPos),
		"statusCode": ast.NewLiteralNode(int64(resp.StatusCode), zeroPos),
		"reason":     ast.NewLiteralNode(reason, zeroPos),
		"headers":    headersToNode(&resp.Headers),
	}
	if resp.Body != nil {
		props["body"] = ast.NewLiteralNode(string(resp.Body), zeroPos)
	}
	return ast.NewObjectNode(props, zeroPos)
}

// NodeToRequest converts an AST ObjectNode back to a Request. The request
// line fields and headers go through the same validation as the Decoder.
func NodeToRequest(node ast.SchemaNode) (*Request, error) {
	props, err := objectProps(node, "request")
	if err != nil {
		return nil, err
	}

	req := &Request{}
	methodTok := literalString(props["method"])
	req.Method = ParseMethod(methodTok)
	if req.Method == MethodUnsupported {
		return nil, newParseError(UnsupportedMethod, methodTok, 0)
	}

	if v := literalString(props["version"]); v != "" {
		if req.Version, err = parseVersion(v); err != nil {
			return nil, err
		}
	}

	target := literalString(props["target"])
	if target == "" {
		target = literalString(props["path"])
	}
	path, query, err := splitTarget(req.Method, target)
	if err != nil {
		return nil, err
	}
	req.Target, req.Path, req.Query = target, path, query

	if h, ok := props["headers"]; ok {
		if err := nodeToHeaders(h, &req.Headers, true); err != nil {
			return nil, err
		}
	}
	if b, ok := props["body"]; ok {
		req.Body = []byte(literalString(b))
	}
	return req, nil
}

// NodeToResponse converts an AST ObjectNode back to a Response.
func NodeToResponse(node ast.SchemaNode) (*Response, error) {
	props, err := objectProps(node, "response")
	if err != nil {
		return nil, err
	}

	resp := &Response{
		StatusCode: nodeToStatusCode(props["statusCode"]),
		Reason:     literalString(props["reason"]),
	}
	if h, ok := props["headers"]; ok {
		if err := nodeToHeaders(h, &resp.Headers, false); err != nil {
			return nil, err
		}
	}
	if b, ok := props["body"]; ok {
		resp.Body = []byte(literalString(b))
	}
	return resp, nil
}

// NodeToInterface converts an AST node to native Go types.
func NodeToInterface(node ast.SchemaNode) interface{} {
	switch n := node.(type) {
	case *ast.LiteralNode:
		return n.Value()
	case *ast.ArrayDataNode:
		elements := n.Elements()
		arr := make([]interface{}, len(elements))
		for i, elem := range elements {
			arr[i] = NodeToInterface(elem)
		}
		return arr
	case *ast.ObjectNode:
		props := n.Properties()
		m := make(map[string]interface{}, len(props))
		for k, v := range props {
			m[k] = NodeToInterface(v)
		}
		return m
	default:
		return nil
	}
}

func headersToNode(headers *Headers) ast.SchemaNode {
	elements := make([]ast.SchemaNode, len(headers.fields))
	for i, h := range headers.fields {
		elements[i] = pairNode(h.Key, h.Value)
	}
	return ast.NewArrayDataNode(elements, zeroPos)
}

func queryToNode(q *Query) ast.SchemaNode {
	elements := make([]ast.SchemaNode, len(q.keys))
	for i, k := range q.keys {
		elements[i] = pairNode(k, q.values[k])
	}
	return ast.NewArrayDataNode(elements, zeroPos)
}

func pairNode(key, value string) ast.SchemaNode {
	return ast.NewObjectNode(map[string]ast.SchemaNode{
		"key":   ast.NewLiteralNode(key, zeroPos),
		"value": ast.NewLiteralNode(value, zeroPos),
	}, zeroPos)
}

// objectProps checks that node is an ObjectNode of the given message type.
func objectProps(node ast.SchemaNode, msgType string) (map[string]ast.SchemaNode, error) {
	obj, ok := node.(*ast.ObjectNode)
	if !ok {
		return nil, fmt.Errorf("http: expected ObjectNode, got %T", node)
	}
	props := obj.Properties()
	if got := literalString(props["type"]); got != msgType {
		return nil, fmt.Errorf("http: expected %s node, got type %q", msgType, got)
	}
	return props, nil
}

// nodeToHeaders appends the {key, value} pairs of an array node to dst. With
// strict set, pairs go through Insert and its duplicate checks.
func nodeToHeaders(node ast.SchemaNode, dst *Headers, strict bool) error {
	arr, ok := node.(*ast.ArrayDataNode)
	if !ok {
		return fmt.Errorf("http: expected ArrayDataNode for headers, got %T", node)
	}
	for _, elem := range arr.Elements() {
		obj, ok := elem.(*ast.ObjectNode)
		if !ok {
			continue
		}
		props := obj.Properties()
		key, value := literalString(props["key"]), literalString(props["value"])
		if !strict {
			dst.fields = append(dst.fields, Header{Key: key, Value: value})
			continue
		}
		if err := dst.Insert(key, value); err != nil {
			return err
		}
	}
	dst.recount()
	return nil
}

// literalString returns the string value of a literal node, or "".
func literalString(node ast.SchemaNode) string {
	lit, ok := node.(*ast.LiteralNode)
	if !ok {
		return ""
	}
	s, _ := lit.Value().(string)
	return s
}

// nodeToStatusCode extracts the status code from a literal node.
func nodeToStatusCode(node ast.SchemaNode) int {
	lit, ok := node.(*ast.LiteralNode)
	if !ok {
		return 0
	}
	switch code := lit.Value().(type) {
	case int64:
		return int(code)
	case int:
		return code
	case float64:
		return int(code)
	case string:
		n, _ := strconv.Atoi(code)
		return n
	}
	return 0
}
