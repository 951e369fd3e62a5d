package contentstream

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/scanner"
)

const maxOperandNesting = 64

var ErrInlineImage = errors.New("inline image not terminated by EI")

// Parse splits a content stream into operations. Malformed input stops the
// parse; the operations read up to that point are returned with the error.
// Operands left without an operator at the end of the stream are dropped.
func Parse(data []byte) ([]Operation, error) {
	s := scanner.New(data, scanner.Config{})
	var ops []Operation
	var operands []raw.Object
	for {
		tok, err := s.Next()
		if err == io.EOF {
			return ops, nil
		}
		if err != nil {
			return ops, fmt.Errorf("offset %d: %w", tok.Pos, err)
		}
		if tok.Type == scanner.TokenKeyword {
			if tok.Str == "BI" {
				img, err := readInlineImage(s)
				if err != nil {
					return ops, fmt.Errorf("offset %d: %w", tok.Pos, err)
				}
				ops = append(ops, Operation{Operator: "BI", Inline: img})
				operands = nil
				continue
			}
			ops = append(ops, Operation{Operator: tok.Str, Operands: operands})
			operands = nil
			continue
		}
		obj, err := readOperand(s, tok, 0)
		if err != nil {
			return ops, fmt.Errorf("offset %d: %w", tok.Pos, err)
		}
		operands = append(operands, obj)
	}
}

// readOperand builds a direct object. References never occur in content
// streams, so numbers are taken as they come without lookahead.
func readOperand(s *scanner.Scanner, tok scanner.Token, depth int) (raw.Object, error) {
	if depth > maxOperandNesting {
		return nil, errors.New("operand nesting too deep")
	}
	switch tok.Type {
	case scanner.TokenName:
		return raw.NameObj{Val: tok.Str}, nil
	case scanner.TokenNumber:
		return raw.NumberObj{I: tok.Int, F: tok.Float, IsInt: tok.IsInt}, nil
	case scanner.TokenBoolean:
		return raw.BoolObj{V: tok.Bool}, nil
	case scanner.TokenNull:
		return raw.NullObj{}, nil
	case scanner.TokenString:
		return raw.StringObj{Bytes: tok.Bytes, Hex: tok.Hex}, nil
	case scanner.TokenArray:
		arr := &raw.ArrayObj{}
		for {
			next, err := s.Next()
			if err != nil {
				return nil, fmt.Errorf("unterminated array: %w", err)
			}
			if next.IsKeyword("]") {
				return arr, nil
			}
			item, err := readOperand(s, next, depth+1)
			if err != nil {
				return nil, err
			}
			arr.Append(item)
		}
	case scanner.TokenDict:
		d := raw.Dict()
		for {
			key, err := s.Next()
			if err != nil {
				return nil, fmt.Errorf("unterminated dictionary: %w", err)
			}
			if key.IsKeyword(">>") {
				return d, nil
			}
			if key.Type != scanner.TokenName {
				return nil, fmt.Errorf("expected name in dictionary at %d", key.Pos)
			}
			valTok, err := s.Next()
			if err != nil {
				return nil, fmt.Errorf("dictionary value: %w", err)
			}
			val, err := readOperand(s, valTok, depth+1)
			if err != nil {
				return nil, err
			}
			d.Set(key.Str, val)
		}
	}
	return nil, fmt.Errorf("unexpected token %q", tok.Str)
}

// readInlineImage reads the key/value pairs after BI, then the raw bytes
// between ID and the EI that is surrounded by whitespace.
func readInlineImage(s *scanner.Scanner) (*InlineImage, error) {
	img := &InlineImage{Params: raw.Dict()}
	for {
		tok, err := s.Next()
		if err != nil {
			return nil, ErrInlineImage
		}
		if tok.IsKeyword("ID") {
			break
		}
		if tok.Type != scanner.TokenName {
			return nil, fmt.Errorf("inline image key at %d", tok.Pos)
		}
		valTok, err := s.Next()
		if err != nil {
			return nil, ErrInlineImage
		}
		val, err := readOperand(s, valTok, 1)
		if err != nil {
			return nil, err
		}
		img.Params.Set(tok.Str, val)
	}
	data := s.Data()
	start := s.Position()
	if start < int64(len(data)) && scanner.IsWhitespace(data[start]) {
		start++
	}
	for i := start; i+1 < int64(len(data)); i++ {
		if data[i] != 'E' || data[i+1] != 'I' {
			continue
		}
		if i > start && !scanner.IsWhitespace(data[i-1]) {
			continue
		}
		after := i + 2
		if after < int64(len(data)) && !scanner.IsWhitespace(data[after]) && !scanner.IsDelimiter(data[after]) {
			continue
		}
		end := i
		if end > start && scanner.IsWhitespace(data[end-1]) {
			end--
		}
		img.Data = bytes.Clone(data[start:end])
		if err := s.SeekTo(after); err != nil {
			return nil, err
		}
		return img, nil
	}
	return nil, ErrInlineImage
}
