package scanner

import (
	"errors"
	"io"
	"testing"
)

func newScanner(t *testing.T, data string, cfg Config) *Scanner {
	t.Helper()
	return New([]byte(data), cfg)
}

func nextToken(t *testing.T, s *Scanner) Token {
	t.Helper()
	tok, err := s.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return tok
}

func TestScanner_BasicTokens(t *testing.T) {
	s := newScanner(t, "%PDF-1.7\n1 0 obj\n<< /Name /Value /Nums [1 2 3] /Flag true /Null null >>\nendobj", Config{})

	tok := nextToken(t, s)
	if tok.Type != TokenNumber || !tok.IsInt || tok.Int != 1 {
		t.Fatalf("expected first token number 1, got %+v", tok)
	}
	tok = nextToken(t, s)
	if tok.Type != TokenNumber || !tok.IsInt || tok.Int != 0 {
		t.Fatalf("expected generation number 0, got %+v", tok)
	}
	if tok = nextToken(t, s); !tok.IsKeyword("obj") {
		t.Fatalf("expected obj keyword, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenDict {
		t.Fatalf("expected dict start, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenName || tok.Str != "Name" {
		t.Fatalf("expected Name key, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenName || tok.Str != "Value" {
		t.Fatalf("expected Name value, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenName || tok.Str != "Nums" {
		t.Fatalf("expected Nums key, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenArray {
		t.Fatalf("expected array start, got %+v", tok)
	}
	for i := int64(1); i <= 3; i++ {
		tok = nextToken(t, s)
		if tok.Type != TokenNumber || !tok.IsInt || tok.Int != i {
			t.Fatalf("expected array number %d, got %+v", i, tok)
		}
	}
	if tok = nextToken(t, s); !tok.IsKeyword("]") {
		t.Fatalf("expected array end, got %+v", tok)
	}
	nextToken(t, s) // /Flag
	if tok = nextToken(t, s); tok.Type != TokenBoolean || !tok.Bool {
		t.Fatalf("expected true, got %+v", tok)
	}
	nextToken(t, s) // /Null
	if tok = nextToken(t, s); tok.Type != TokenNull {
		t.Fatalf("expected null, got %+v", tok)
	}
	if tok = nextToken(t, s); !tok.IsKeyword(">>") {
		t.Fatalf("expected dict end, got %+v", tok)
	}
	if tok = nextToken(t, s); !tok.IsKeyword("endobj") {
		t.Fatalf("expected endobj, got %+v", tok)
	}
	if _, err := s.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestScanner_NameHexEscapes(t *testing.T) {
	s := newScanner(t, "/A#20B /Font#2dBold", Config{})
	if tok := nextToken(t, s); tok.Str != "A B" {
		t.Fatalf("expected decoded name, got %q", tok.Str)
	}
	if tok := nextToken(t, s); tok.Str != "Font-Bold" {
		t.Fatalf("expected decoded name, got %q", tok.Str)
	}
}

func TestScanner_LiteralStringEscapes(t *testing.T) {
	s := newScanner(t, `(a\n\(b\)\101 (nested))`, Config{})
	tok := nextToken(t, s)
	if got := string(tok.Bytes); got != "a\n(b)A (nested)" {
		t.Fatalf("unexpected literal: %q", got)
	}
	if tok.Hex {
		t.Fatalf("literal string flagged as hex")
	}
}

func TestScanner_LiteralStringLineContinuation(t *testing.T) {
	s := newScanner(t, "(abc\\\r\ndef)", Config{})
	if got := string(nextToken(t, s).Bytes); got != "abcdef" {
		t.Fatalf("unexpected literal: %q", got)
	}
}

func TestScanner_HexStringOddLength(t *testing.T) {
	s := newScanner(t, "<48 65 6C 6C 6F 7>", Config{})
	tok := nextToken(t, s)
	if got := string(tok.Bytes); got != "Hellop" {
		t.Fatalf("unexpected hex payload: %q", got)
	}
	if !tok.Hex {
		t.Fatalf("hex string not flagged")
	}
}

func TestScanner_Reals(t *testing.T) {
	s := newScanner(t, "-.5 3.25 +7 1.2.3", Config{})
	want := []float64{-0.5, 3.25, 7, 1.2}
	for _, w := range want {
		tok := nextToken(t, s)
		if tok.Type != TokenNumber || tok.Number() != w {
			t.Fatalf("expected %v, got %+v", w, tok)
		}
	}
}

func TestScanner_OperatorsAndComments(t *testing.T) {
	s := newScanner(t, "BT % comment\n/F1 12 Tf T* ET", Config{})
	var kws []string
	for {
		tok, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tok.Type == TokenKeyword {
			kws = append(kws, tok.Str)
		}
	}
	want := []string{"BT", "Tf", "T*", "ET"}
	if len(kws) != len(want) {
		t.Fatalf("keywords = %v, want %v", kws, want)
	}
	for i := range want {
		if kws[i] != want[i] {
			t.Fatalf("keywords = %v, want %v", kws, want)
		}
	}
}

func TestScanner_MaxStringLength(t *testing.T) {
	s := newScanner(t, "(abcdefgh)", Config{MaxStringLength: 4})
	if _, err := s.Next(); !errors.Is(err, ErrStringTooLong) {
		t.Fatalf("expected ErrStringTooLong, got %v", err)
	}
}

func TestScanner_UnterminatedLiteralString(t *testing.T) {
	s := newScanner(t, "(abc", Config{})
	tok, err := s.Next()
	if !errors.Is(err, ErrUnterminatedText) {
		t.Fatalf("expected ErrUnterminatedText, got %v", err)
	}
	if string(tok.Bytes) != "abc" {
		t.Fatalf("expected partial payload, got %q", tok.Bytes)
	}
}

func TestScanner_UnterminatedHexString(t *testing.T) {
	s := newScanner(t, "<4142", Config{})
	if _, err := s.Next(); !errors.Is(err, ErrUnterminatedText) {
		t.Fatalf("expected ErrUnterminatedText, got %v", err)
	}
}

func TestScanner_SeekTo(t *testing.T) {
	s := newScanner(t, "1 0 obj", Config{})
	if err := s.SeekTo(2); err != nil {
		t.Fatalf("SeekTo: %v", err)
	}
	if tok := nextToken(t, s); tok.Type != TokenNumber || tok.Number() != 0 {
		t.Fatalf("expected 0 after seeking, got %+v", tok)
	}
	if err := s.SeekTo(8); err == nil {
		t.Fatalf("seeking past the end should fail")
	}
}

func TestScanner_SkipStreamEOL(t *testing.T) {
	s := newScanner(t, "stream\r\nDATA", Config{})
	if tok := nextToken(t, s); !tok.IsKeyword("stream") {
		t.Fatalf("expected stream keyword, got %+v", tok)
	}
	s.SkipStreamEOL()
	if s.Position() != 8 {
		t.Fatalf("expected data to start at 8, got %d", s.Position())
	}
}
