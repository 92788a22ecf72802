package tokenizer

import (
	"errors"
	"testing"

	coretok "github.com/shapestone/shape-core/pkg/tokenizer"
)

func TestTokenize_RequestLine(t *testing.T) {
	tok := NewRequestLineTokenizer()
	tok.Initialize("GET /api HTTP/1.1")

	tokens, eos := tok.Tokenize()
	if !eos {
		t.Error("expected EOS")
	}

	expected := []struct {
		kind  string
		value string
	}{
		{TokenField, "GET"},
		{TokenWhitespace, " "},
		{TokenField, "/api"},
		{TokenWhitespace, " "},
		{TokenField, "HTTP/1.1"},
	}

	if len(tokens) != len(expected) {
		t.Fatalf("token count = %d, want %d. tokens = %v", len(tokens), len(expected), formatTokens(tokens))
	}

	for i, exp := range expected {
		if tokens[i].Kind() != exp.kind {
			t.Errorf("token[%d].Kind() = %q, want %q", i, tokens[i].Kind(), exp.kind)
		}
		if tokens[i].ValueString() != exp.value {
			t.Errorf("token[%d].Value() = %q, want %q", i, tokens[i].ValueString(), exp.value)
		}
	}
}

func TestTokenize_HeaderLine(t *testing.T) {
	tok := NewHeaderLineTokenizer()
	tok.Initialize("Host: example.com:8080")

	tokens, eos := tok.Tokenize()
	if !eos {
		t.Error("expected EOS")
	}
	if len(tokens) != 3 {
		t.Fatalf("token count = %d, want 3. tokens = %v", len(tokens), formatTokens(tokens))
	}
	if tokens[0].Kind() != TokenHeaderName || tokens[0].ValueString() != "Host" {
		t.Errorf("token[0] = %v, want HeaderName('Host')", tokens[0])
	}
	if tokens[1].Kind() != TokenHeaderColon {
		t.Errorf("token[1] = %v, want HeaderColon", tokens[1])
	}
	// Later colons stay inside the value.
	if tokens[2].Kind() != TokenHeaderValue || tokens[2].ValueString() != " example.com:8080" {
		t.Errorf("token[2] = %v, want HeaderValue(' example.com:8080')", tokens[2])
	}
}

func TestSplitRequestLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		method  string
		target  string
		version string
		wantErr bool
	}{
		{"simple", "GET / HTTP/1.1", "GET", "/", "HTTP/1.1", false},
		{"query", "GET /query?message=hello HTTP/1.1", "GET", "/query?message=hello", "HTTP/1.1", false},
		{"http/1.0", "POST /echo HTTP/1.0", "POST", "/echo", "HTTP/1.0", false},
		{"leading space", " GET / HTTP/1.1", "", "", "", true},
		{"leading tab", "\tGET / HTTP/1.1", "", "", "", true},
		{"tab separators", "GET\t/\tHTTP/1.1", "", "", "", true},
		{"double space", "GET  / HTTP/1.1", "", "", "", true},
		{"trailing space", "GET / HTTP/1.1 ", "", "", "", true},
		{"two fields", "GET /", "", "", "", true},
		{"four fields", "GET / HTTP/1.1 extra", "", "", "", true},
		{"empty", "", "", "", "", true},
		{"only whitespace", "   ", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method, target, version, err := SplitRequestLine(tt.line)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedRequestLine) {
					t.Fatalf("SplitRequestLine(%q) error = %v, want ErrMalformedRequestLine", tt.line, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitRequestLine(%q) error = %v", tt.line, err)
			}
			if method != tt.method || target != tt.target || version != tt.version {
				t.Errorf("SplitRequestLine(%q) = (%q, %q, %q), want (%q, %q, %q)",
					tt.line, method, target, version, tt.method, tt.target, tt.version)
			}
		})
	}
}

func TestSplitHeaderLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		key     string
		value   string
		wantErr bool
	}{
		{"simple", "Host: localhost", "Host", "localhost", false},
		{"padded value", "FoFo:     barbar  ", "FoFo", "barbar", false},
		{"tab padding", "X-A:\tb\t", "X-A", "b", false},
		{"colon in value", "Referer: http://example.com/a:b", "Referer", "http://example.com/a:b", false},
		{"empty value", "X-Empty:", "X-Empty", "", false},
		{"whitespace value", "X-Empty:   ", "X-Empty", "", false},
		{"missing colon", "InvalidHeader", "", "", true},
		{"empty name", ": value", "", "", true},
		{"space before colon", "Host : localhost", "", "", true},
		{"tab before colon", "Host\t: localhost", "", "", true},
		{"empty line", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, value, err := SplitHeaderLine(tt.line)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedHeader) {
					t.Fatalf("SplitHeaderLine(%q) error = %v, want ErrMalformedHeader", tt.line, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitHeaderLine(%q) error = %v", tt.line, err)
			}
			if key != tt.key || value != tt.value {
				t.Errorf("SplitHeaderLine(%q) = (%q, %q), want (%q, %q)", tt.line, key, value, tt.key, tt.value)
			}
		})
	}
}

func TestWhitespaceMatcher_NonWhitespace(t *testing.T) {
	matcher := WhitespaceMatcher()
	stream := coretok.NewStream("GET")
	if tok := matcher(stream); tok != nil {
		t.Errorf("expected nil for non-whitespace char, got %v", tok)
	}
}

func TestWhitespaceMatcher_Run(t *testing.T) {
	matcher := WhitespaceMatcher()
	stream := coretok.NewStream(" \t /")
	tok := matcher(stream)
	if tok == nil {
		t.Fatal("expected token, got nil")
	}
	if tok.ValueString() != " \t " {
		t.Errorf("Value = %q, want %q", tok.ValueString(), " \t ")
	}
}

func TestFieldMatcher_EOS(t *testing.T) {
	matcher := FieldMatcher()
	stream := coretok.NewStream("")
	if tok := matcher(stream); tok != nil {
		t.Errorf("expected nil for EOS stream, got %v", tok)
	}
}

func TestFieldMatcher_StopsAtWhitespace(t *testing.T) {
	matcher := FieldMatcher()
	stream := coretok.NewStream("/a:b?c=d HTTP/1.1")
	tok := matcher(stream)
	if tok == nil {
		t.Fatal("expected token, got nil")
	}
	if tok.Kind() != TokenField {
		t.Errorf("Kind = %q, want %q", tok.Kind(), TokenField)
	}
	if tok.ValueString() != "/a:b?c=d" {
		t.Errorf("Value = %q, want /a:b?c=d", tok.ValueString())
	}
}

func formatTokens(tokens []coretok.Token) string {
	s := "["
	for i, t := range tokens {
		if i > 0 {
			s += ", "
		}
		s += t.String()
	}
	s += "]"
	return s
}
