package parser

import (
	"errors"
	"fmt"

	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/scanner"
)

const maxNesting = 256

var errUnexpectedEndobj = errors.New("unexpected endobj")

// TokenReader wraps a scanner with a push-back buffer so that "n g R"
// references can be recognised by looking ahead.
type TokenReader struct {
	s   *scanner.Scanner
	buf []scanner.Token
}

func NewTokenReader(s *scanner.Scanner) *TokenReader {
	return &TokenReader{s: s}
}

func (r *TokenReader) Next() (scanner.Token, error) {
	if l := len(r.buf); l > 0 {
		t := r.buf[l-1]
		r.buf = r.buf[:l-1]
		return t, nil
	}
	return r.s.Next()
}

func (r *TokenReader) Unread(tok scanner.Token) { r.buf = append(r.buf, tok) }

// ReadObject parses one direct object.
func (r *TokenReader) ReadObject() (raw.Object, error) {
	tok, err := r.Next()
	if err != nil {
		return nil, err
	}
	return r.objectFrom(tok, 0)
}

func (r *TokenReader) objectFrom(tok scanner.Token, depth int) (raw.Object, error) {
	if depth > maxNesting {
		return nil, errors.New("object nesting too deep")
	}
	switch tok.Type {
	case scanner.TokenName:
		return raw.NameObj{Val: tok.Str}, nil
	case scanner.TokenNumber:
		if !tok.IsInt {
			return raw.NumberObj{F: tok.Float}, nil
		}
		if ref, ok := r.tryRef(tok); ok {
			return ref, nil
		}
		return raw.NumberObj{I: tok.Int, IsInt: true}, nil
	case scanner.TokenBoolean:
		return raw.BoolObj{V: tok.Bool}, nil
	case scanner.TokenNull:
		return raw.NullObj{}, nil
	case scanner.TokenString:
		return raw.StringObj{Bytes: tok.Bytes, Hex: tok.Hex}, nil
	case scanner.TokenArray:
		return r.readArray(depth + 1)
	case scanner.TokenDict:
		return r.readDict(depth + 1)
	}
	if tok.IsKeyword("endobj") {
		return nil, errUnexpectedEndobj
	}
	return nil, fmt.Errorf("unexpected token %q at %d", tok.Str, tok.Pos)
}

func (r *TokenReader) tryRef(num scanner.Token) (raw.Object, bool) {
	gen, err := r.Next()
	if err != nil {
		return nil, false
	}
	if gen.Type != scanner.TokenNumber || !gen.IsInt {
		r.Unread(gen)
		return nil, false
	}
	kw, err := r.Next()
	if err != nil {
		r.Unread(gen)
		return nil, false
	}
	if !kw.IsKeyword("R") {
		r.Unread(kw)
		r.Unread(gen)
		return nil, false
	}
	return raw.RefObj{R: raw.ObjectRef{Num: int(num.Int), Gen: int(gen.Int)}}, true
}

func (r *TokenReader) readArray(depth int) (raw.Object, error) {
	arr := &raw.ArrayObj{}
	for {
		tok, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("unterminated array: %w", err)
		}
		if tok.IsKeyword("]") {
			return arr, nil
		}
		item, err := r.objectFrom(tok, depth)
		if err != nil {
			return nil, err
		}
		arr.Append(item)
	}
}

func (r *TokenReader) readDict(depth int) (raw.Object, error) {
	d := raw.Dict()
	for {
		tok, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("unterminated dictionary: %w", err)
		}
		if tok.IsKeyword(">>") {
			return d, nil
		}
		if tok.Type != scanner.TokenName {
			if tok.IsKeyword("endobj") || tok.IsKeyword("stream") {
				// missing ">>"; hand the keyword back to the caller
				r.Unread(tok)
				return d, errMissingDictEnd
			}
			return nil, fmt.Errorf("expected name in dictionary at %d", tok.Pos)
		}
		valTok, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("dictionary value: %w", err)
		}
		if valTok.IsKeyword(">>") {
			d.Set(tok.Str, raw.NullObj{})
			return d, nil
		}
		val, err := r.objectFrom(valTok, depth)
		if err != nil {
			return nil, err
		}
		d.Set(tok.Str, val)
	}
}

var errMissingDictEnd = errors.New("dictionary missing >>")

// ParseObject parses a single direct object from data.
func ParseObject(data []byte) (raw.Object, error) {
	return NewTokenReader(scanner.New(data, scanner.Config{})).ReadObject()
}
