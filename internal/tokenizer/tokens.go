// Package tokenizer splits HTTP/1.1 request lines and header lines into tokens
// using Shape's tokenizer framework.
package tokenizer

// Token type constants for HTTP start and field lines.
// Lines reach the tokenizer with their terminator already stripped.
const (
	// Request-line tokens
	TokenField      = "Field"      // method, request-target or version
	TokenWhitespace = "Whitespace" // run of SP / HTAB between fields

	// Header tokens
	TokenHeaderName  = "HeaderName"  // field-name before colon
	TokenHeaderColon = "HeaderColon" // :
	TokenHeaderValue = "HeaderValue" // field-value after colon, untrimmed
)
