package scanner

import (
	"bytes"
	"errors"
	"io"
	"strconv"
)

type TokenType int

const (
	TokenDict      TokenType = iota // '<<'
	TokenArray                      // '['
	TokenName                       // '/Name'
	TokenString                     // literal or hex string
	TokenNumber                     // numeric value
	TokenBoolean                    // true/false
	TokenNull                       // null
	TokenKeyword                    // other keywords (obj, endobj, stream, >>, ], operators)
)

// Token is a single lexical element. Only the fields matching Type are set.
type Token struct {
	Type  TokenType
	Pos   int64
	Str   string // names and keywords
	Bytes []byte // string payloads
	Hex   bool   // string was written as <...>
	Int   int64
	Float float64
	IsInt bool
	Bool  bool
}

// Number returns the numeric value of a number token.
func (t Token) Number() float64 {
	if t.IsInt {
		return float64(t.Int)
	}
	return t.Float
}

// IsKeyword reports whether t is the keyword kw.
func (t Token) IsKeyword(kw string) bool { return t.Type == TokenKeyword && t.Str == kw }

// Config bounds what a single token may consume.
type Config struct {
	MaxStringLength int64
}

var (
	ErrStringTooLong    = errors.New("string too long")
	ErrUnterminatedText = errors.New("unterminated string")
)

// Scanner tokenizes an in-memory PDF buffer. The buffer is never modified and
// returned byte slices are copies.
type Scanner struct {
	data []byte
	pos  int64
	cfg  Config
}

func New(data []byte, cfg Config) *Scanner {
	return &Scanner{data: data, cfg: cfg}
}

func (s *Scanner) Position() int64 { return s.pos }
func (s *Scanner) Len() int64      { return int64(len(s.data)) }
func (s *Scanner) Data() []byte    { return s.data }

func (s *Scanner) SeekTo(offset int64) error {
	if offset < 0 || offset > int64(len(s.data)) {
		return errors.New("seek out of range")
	}
	s.pos = offset
	return nil
}

func (s *Scanner) Next() (Token, error) {
	s.SkipWhitespace()
	if s.pos >= int64(len(s.data)) {
		return Token{}, io.EOF
	}
	start := s.pos
	c := s.data[s.pos]
	switch c {
	case '<':
		if s.peek(1) == '<' {
			s.pos += 2
			return Token{Type: TokenDict, Str: "<<", Pos: start}, nil
		}
		return s.scanHexString()
	case '>':
		if s.peek(1) == '>' {
			s.pos += 2
			return Token{Type: TokenKeyword, Str: ">>", Pos: start}, nil
		}
		s.pos++
		return Token{Type: TokenKeyword, Str: ">", Pos: start}, nil
	case '[':
		s.pos++
		return Token{Type: TokenArray, Str: "[", Pos: start}, nil
	case ']', '{', '}':
		s.pos++
		return Token{Type: TokenKeyword, Str: string(c), Pos: start}, nil
	case '(':
		return s.scanLiteralString()
	case '/':
		return s.scanName()
	case ')':
		s.pos++
		return Token{Type: TokenKeyword, Str: ")", Pos: start}, nil
	}
	if isDigitStart(c) {
		if tok, ok := s.scanNumber(); ok {
			return tok, nil
		}
	}
	return s.scanKeyword()
}

// SkipWhitespace advances past whitespace and comments.
func (s *Scanner) SkipWhitespace() {
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		if isWhitespace(c) {
			s.pos++
			continue
		}
		if c == '%' {
			for s.pos < int64(len(s.data)) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
			continue
		}
		return
	}
}

// SkipStreamEOL consumes the end-of-line marker that follows the stream keyword.
func (s *Scanner) SkipStreamEOL() {
	for s.pos < int64(len(s.data)) && (s.data[s.pos] == ' ' || s.data[s.pos] == '\t') {
		s.pos++
	}
	if s.pos < int64(len(s.data)) && s.data[s.pos] == '\r' {
		s.pos++
	}
	if s.pos < int64(len(s.data)) && s.data[s.pos] == '\n' {
		s.pos++
	}
}

func (s *Scanner) peek(n int64) byte {
	if s.pos+n >= int64(len(s.data)) {
		return 0
	}
	return s.data[s.pos+n]
}

func (s *Scanner) scanName() (Token, error) {
	start := s.pos
	s.pos++ // skip '/'
	var out bytes.Buffer
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		if isDelimiter(c) || isWhitespace(c) {
			break
		}
		if c == '#' && s.pos+2 < int64(len(s.data)) && isHex(s.data[s.pos+1]) && isHex(s.data[s.pos+2]) {
			out.WriteByte(fromHex(s.data[s.pos+1])<<4 | fromHex(s.data[s.pos+2]))
			s.pos += 3
			continue
		}
		out.WriteByte(c)
		s.pos++
	}
	return Token{Type: TokenName, Str: out.String(), Pos: start}, nil
}

func (s *Scanner) scanLiteralString() (Token, error) {
	start := s.pos
	s.pos++ // skip '('
	var buf bytes.Buffer
	depth := 1
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		if c == '\\' {
			s.pos++
			if s.pos >= int64(len(s.data)) {
				break
			}
			esc := s.data[s.pos]
			switch {
			case esc == '\r':
				s.pos++
				if s.pos < int64(len(s.data)) && s.data[s.pos] == '\n' {
					s.pos++
				}
			case esc == '\n':
				s.pos++
			case esc >= '0' && esc <= '7':
				val := int(esc - '0')
				s.pos++
				for k := 0; k < 2 && s.pos < int64(len(s.data)); k++ {
					d := s.data[s.pos]
					if d < '0' || d > '7' {
						break
					}
					val = val<<3 + int(d-'0')
					s.pos++
				}
				buf.WriteByte(byte(val))
			default:
				buf.WriteByte(translateEscape(esc))
				s.pos++
			}
			continue
		}
		if c == '(' {
			depth++
		} else if c == ')' {
			depth--
			if depth == 0 {
				s.pos++
				break
			}
		}
		buf.WriteByte(c)
		s.pos++
		if s.cfg.MaxStringLength > 0 && int64(buf.Len()) > s.cfg.MaxStringLength {
			return Token{}, ErrStringTooLong
		}
	}
	if depth != 0 {
		return Token{Type: TokenString, Bytes: buf.Bytes(), Pos: start}, ErrUnterminatedText
	}
	return Token{Type: TokenString, Bytes: buf.Bytes(), Pos: start}, nil
}

func (s *Scanner) scanHexString() (Token, error) {
	start := s.pos
	s.pos++ // skip '<'
	var nibbles []byte
	closed := false
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		s.pos++
		if c == '>' {
			closed = true
			break
		}
		if isHex(c) {
			nibbles = append(nibbles, c)
		}
	}
	if len(nibbles)%2 == 1 {
		nibbles = append(nibbles, '0')
	}
	if s.cfg.MaxStringLength > 0 && int64(len(nibbles)/2) > s.cfg.MaxStringLength {
		return Token{}, ErrStringTooLong
	}
	out := make([]byte, 0, len(nibbles)/2)
	for i := 0; i < len(nibbles); i += 2 {
		out = append(out, fromHex(nibbles[i])<<4|fromHex(nibbles[i+1]))
	}
	tok := Token{Type: TokenString, Bytes: out, Hex: true, Pos: start}
	if !closed {
		return tok, ErrUnterminatedText
	}
	return tok, nil
}

func (s *Scanner) scanNumber() (Token, bool) {
	start := s.pos
	end := s.pos
	for end < int64(len(s.data)) {
		c := s.data[end]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' {
			end++
			continue
		}
		break
	}
	lit := string(s.data[start:end])
	if end < int64(len(s.data)) && !isDelimiter(s.data[end]) && !isWhitespace(s.data[end]) {
		return Token{}, false
	}
	if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
		s.pos = end
		return Token{Type: TokenNumber, Int: i, IsInt: true, Pos: start}, true
	}
	// Tolerate malformed reals such as "--1" or "1.2.3" by parsing the longest valid prefix.
	for l := len(lit); l > 0; l-- {
		if f, err := strconv.ParseFloat(lit[:l], 64); err == nil {
			s.pos = end
			return Token{Type: TokenNumber, Float: f, Pos: start}, true
		}
	}
	if lit == "-" || lit == "+" || lit == "." || lit == "-." {
		s.pos = end
		return Token{Type: TokenNumber, Float: 0, Pos: start}, true
	}
	return Token{}, false
}

func (s *Scanner) scanKeyword() (Token, error) {
	start := s.pos
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		if isDelimiter(c) || isWhitespace(c) {
			break
		}
		s.pos++
	}
	if s.pos == start {
		// lone delimiter byte; consume it so callers always make progress
		s.pos++
	}
	kw := string(s.data[start:s.pos])
	switch kw {
	case "true":
		return Token{Type: TokenBoolean, Bool: true, Str: kw, Pos: start}, nil
	case "false":
		return Token{Type: TokenBoolean, Bool: false, Str: kw, Pos: start}, nil
	case "null":
		return Token{Type: TokenNull, Str: kw, Pos: start}, nil
	}
	return Token{Type: TokenKeyword, Str: kw, Pos: start}, nil
}

func translateEscape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'b':
		return '\b'
	case 'f':
		return '\f'
	default:
		return c
	}
}

func isDigitStart(c byte) bool { return c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') }

func isWhitespace(c byte) bool {
	return c == 0x00 || c == 0x09 || c == 0x0A || c == 0x0C || c == 0x0D || c == 0x20
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func fromHex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return 0
	}
}

// IsWhitespace reports whether c is PDF whitespace.
func IsWhitespace(c byte) bool { return isWhitespace(c) }

// IsDelimiter reports whether c is a PDF delimiter.
func IsDelimiter(c byte) bool { return isDelimiter(c) }
