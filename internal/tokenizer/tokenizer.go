package tokenizer

import (
	"errors"
	"strings"

	"github.com/shapestone/shape-core/pkg/tokenizer"
)

var (
	// ErrMalformedRequestLine is returned when a request line is not exactly
	// three fields separated by single spaces.
	ErrMalformedRequestLine = errors.New("malformed request line")

	// ErrMalformedHeader is returned when a header line has no colon, an empty
	// name, or whitespace between the name and the colon.
	ErrMalformedHeader = errors.New("malformed header line")
)

// NewRequestLineTokenizer creates a tokenizer for "METHOD SP TARGET SP VERSION".
// Runs of SP and HTAB separate fields; everything else is field content.
func NewRequestLineTokenizer() tokenizer.Tokenizer {
	return tokenizer.NewTokenizerWithoutWhitespace(
		WhitespaceMatcher(),
		FieldMatcher(),
	)
}

// NewHeaderLineTokenizer creates a tokenizer for "Name: value".
// Only the first colon separates; later colons belong to the value.
// The returned tokenizer carries state and must be used for one line only.
func NewHeaderLineTokenizer() tokenizer.Tokenizer {
	hl := &headerLine{}
	return tokenizer.NewTokenizerWithoutWhitespace(
		hl.nameMatcher(),
		hl.colonMatcher(),
		hl.valueMatcher(),
	)
}

// SplitRequestLine returns the three fields of a request line. Fields must be
// separated by exactly one SP with nothing before the method or after the
// version (RFC 9112 §3).
func SplitRequestLine(line string) (method, target, version string, err error) {
	tok := NewRequestLineTokenizer()
	tok.Initialize(line)

	tokens, eos := tok.Tokenize()
	if !eos || len(tokens) != 5 {
		return "", "", "", ErrMalformedRequestLine
	}
	for i, t := range tokens {
		if i%2 == 0 {
			if t.Kind() != TokenField {
				return "", "", "", ErrMalformedRequestLine
			}
			continue
		}
		if t.Kind() != TokenWhitespace || t.ValueString() != " " {
			return "", "", "", ErrMalformedRequestLine
		}
	}
	return tokens[0].ValueString(), tokens[2].ValueString(), tokens[4].ValueString(), nil
}

// SplitHeaderLine splits a header line on its first colon and trims optional
// whitespace around the value. The name is returned as written.
func SplitHeaderLine(line string) (name, value string, err error) {
	tok := NewHeaderLineTokenizer()
	tok.Initialize(line)

	tokens, eos := tok.Tokenize()
	if !eos || len(tokens) < 2 {
		return "", "", ErrMalformedHeader
	}
	if tokens[0].Kind() != TokenHeaderName || tokens[1].Kind() != TokenHeaderColon {
		return "", "", ErrMalformedHeader
	}

	name = tokens[0].ValueString()
	// RFC 9112 §5.1: no whitespace between field-name and colon.
	if strings.HasSuffix(name, " ") || strings.HasSuffix(name, "\t") {
		return "", "", ErrMalformedHeader
	}
	if len(tokens) > 2 {
		value = strings.Trim(tokens[2].ValueString(), " \t")
	}
	return name, value, nil
}

// WhitespaceMatcher matches a run of SP and HTAB.
func WhitespaceMatcher() tokenizer.Matcher {
	return func(stream tokenizer.Stream) *tokenizer.Token {
		var value []rune
		for {
			r, ok := stream.PeekChar()
			if !ok || !isWhitespace(r) {
				break
			}
			stream.NextChar()
			value = append(value, r)
		}
		if len(value) == 0 {
			return nil
		}
		return tokenizer.NewToken(TokenWhitespace, value)
	}
}

// FieldMatcher matches a run of anything but SP and HTAB.
func FieldMatcher() tokenizer.Matcher {
	return func(stream tokenizer.Stream) *tokenizer.Token {
		var value []rune
		for {
			r, ok := stream.PeekChar()
			if !ok || isWhitespace(r) {
				break
			}
			stream.NextChar()
			value = append(value, r)
		}
		if len(value) == 0 {
			return nil
		}
		return tokenizer.NewToken(TokenField, value)
	}
}

// headerLine tracks whether the separating colon has been consumed.
type headerLine struct {
	colonSeen bool
}

func (hl *headerLine) nameMatcher() tokenizer.Matcher {
	return func(stream tokenizer.Stream) *tokenizer.Token {
		if hl.colonSeen {
			return nil
		}
		var value []rune
		for {
			r, ok := stream.PeekChar()
			if !ok || r == ':' {
				break
			}
			stream.NextChar()
			value = append(value, r)
		}
		if len(value) == 0 {
			return nil
		}
		return tokenizer.NewToken(TokenHeaderName, value)
	}
}

func (hl *headerLine) colonMatcher() tokenizer.Matcher {
	return func(stream tokenizer.Stream) *tokenizer.Token {
		if hl.colonSeen {
			return nil
		}
		r, ok := stream.PeekChar()
		if !ok || r != ':' {
			return nil
		}
		stream.NextChar()
		hl.colonSeen = true
		return tokenizer.NewToken(TokenHeaderColon, []rune{':'})
	}
}

func (hl *headerLine) valueMatcher() tokenizer.Matcher {
	return func(stream tokenizer.Stream) *tokenizer.Token {
		if !hl.colonSeen {
			return nil
		}
		var value []rune
		for {
			r, ok := stream.PeekChar()
			if !ok {
				break
			}
			stream.NextChar()
			value = append(value, r)
		}
		if len(value) == 0 {
			return nil
		}
		return tokenizer.NewToken(TokenHeaderValue, value)
	}
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t'
}
