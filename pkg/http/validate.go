package http

import (
	"io"
	"strings"
)

// Validate reports whether input holds one complete, acceptable HTTP/1.1
// request, body included. It returns nil or the *ParseError the Decoder
// would produce. Trailing bytes after the request are not an error.
func Validate(input string) error {
	return ValidateReader(strings.NewReader(input))
}

// ValidateReader reads one request from r and validates it.
// See Validate for the validation semantics.
func ValidateReader(r io.Reader) error {
	_, err := NewDecoder(r).DecodeRequest()
	return err
}
