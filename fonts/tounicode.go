package fonts

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/unicode"

	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/scanner"
)

// CMap maps character codes to Unicode text, as read from a /ToUnicode stream.
type CMap struct {
	codespace []codeRange
	chars     map[string]string
	ranges    []bfRange
}

type codeRange struct{ lo, hi []byte }

type bfRange struct {
	lo, hi []byte
	dst    []uint16   // first destination, last unit incremented per code
	list   [][]uint16 // array form
}

// ParseCMap reads codespace ranges, bfchar and bfrange sections. Anything
// else in the program is skipped.
func ParseCMap(data []byte) (*CMap, error) {
	cm := &CMap{chars: make(map[string]string)}
	s := scanner.New(data, scanner.Config{})
	var section string
	var operands []scanner.Token
	for {
		tok, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return cm, fmt.Errorf("cmap: %w", err)
		}
		if tok.Type == scanner.TokenKeyword {
			switch tok.Str {
			case "begincodespacerange", "beginbfchar", "beginbfrange":
				section = tok.Str
				operands = operands[:0]
				continue
			case "endcodespacerange", "endbfchar", "endbfrange":
				cm.apply(section, operands)
				section = ""
				operands = operands[:0]
				continue
			case "[", "]":
			default:
				if section == "" {
					continue
				}
			}
		}
		if section != "" {
			operands = append(operands, tok)
		}
	}
	return cm, nil
}

func (cm *CMap) apply(section string, toks []scanner.Token) {
	switch section {
	case "begincodespacerange":
		for i := 0; i+1 < len(toks); i += 2 {
			lo, hi := toks[i].Bytes, toks[i+1].Bytes
			if len(lo) == 0 || len(lo) != len(hi) {
				continue
			}
			cm.codespace = append(cm.codespace, codeRange{lo: lo, hi: hi})
		}
	case "beginbfchar":
		for i := 0; i+1 < len(toks); i += 2 {
			src, dst := toks[i], toks[i+1]
			if src.Type != scanner.TokenString {
				continue
			}
			switch dst.Type {
			case scanner.TokenString:
				cm.chars[string(src.Bytes)] = DecodeUTF16BE(dst.Bytes)
			case scanner.TokenName:
				if r, ok := glyphNameRune(dst.Str); ok {
					cm.chars[string(src.Bytes)] = string(r)
				}
			}
		}
	case "beginbfrange":
		for i := 0; i+2 < len(toks); {
			lo, hi := toks[i], toks[i+1]
			if lo.Type != scanner.TokenString || hi.Type != scanner.TokenString || len(lo.Bytes) != len(hi.Bytes) {
				i++
				continue
			}
			r := bfRange{lo: lo.Bytes, hi: hi.Bytes}
			if toks[i+2].Type == scanner.TokenString {
				r.dst = toUnits(toks[i+2].Bytes)
				i += 3
			} else if toks[i+2].Str == "[" {
				j := i + 3
				for ; j < len(toks) && !toks[j].IsKeyword("]"); j++ {
					r.list = append(r.list, toUnits(toks[j].Bytes))
				}
				i = j + 1
			} else {
				i += 3
				continue
			}
			cm.ranges = append(cm.ranges, r)
		}
	}
}

func toUnits(b []byte) []uint16 {
	u := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return u
}

// Lookup returns the text for one character code.
func (cm *CMap) Lookup(code []byte) (string, bool) {
	if cm == nil {
		return "", false
	}
	if s, ok := cm.chars[string(code)]; ok {
		return s, true
	}
	for _, r := range cm.ranges {
		if len(code) != len(r.lo) || bytes.Compare(code, r.lo) < 0 || bytes.Compare(code, r.hi) > 0 {
			continue
		}
		off := int(codeValue(code) - codeValue(r.lo))
		if r.list != nil {
			if off < len(r.list) {
				return string(utf16.Decode(r.list[off])), true
			}
			return "", false
		}
		if len(r.dst) == 0 {
			return "", false
		}
		units := append([]uint16(nil), r.dst...)
		units[len(units)-1] += uint16(off)
		return string(utf16.Decode(units)), true
	}
	return "", false
}

// CodeLength returns how many bytes the code at the start of data uses,
// according to the codespace ranges. def is used when no range matches.
func (cm *CMap) CodeLength(data []byte, def int) int {
	if cm != nil {
		for _, r := range cm.codespace {
			n := len(r.lo)
			if len(data) < n {
				continue
			}
			in := true
			for i := 0; i < n; i++ {
				if data[i] < r.lo[i] || data[i] > r.hi[i] {
					in = false
					break
				}
			}
			if in {
				return n
			}
		}
	}
	if def > len(data) {
		return len(data)
	}
	return def
}

func codeValue(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// DecodeUTF16BE decodes big-endian UTF-16, tolerating an odd trailing byte.
func DecodeUTF16BE(b []byte) string {
	if len(b)%2 == 1 {
		b = b[:len(b)-1]
	}
	out, err := utf16BE.NewDecoder().Bytes(b)
	if err != nil {
		return string(utf16.Decode(toUnits(b)))
	}
	return string(out)
}

// BuildToUnicode writes a ToUnicode CMap for two-byte codes.
func BuildToUnicode(name string, mapping map[uint16][]rune) *raw.StreamObj {
	keys := make([]int, 0, len(mapping))
	for code := range mapping {
		keys = append(keys, int(code))
	}
	sort.Ints(keys)
	cmapName := strings.ReplaceAll(name, " ", "") + "-UTF16"

	var buf bytes.Buffer
	buf.WriteString("/CIDInit /ProcSet findresource begin\n12 dict begin\nbegincmap\n")
	buf.WriteString("/CIDSystemInfo << /Registry (Adobe) /Ordering (UCS) /Supplement 0 >> def\n")
	fmt.Fprintf(&buf, "/CMapName /%s def\n/CMapType 2 def\n", cmapName)
	buf.WriteString("1 begincodespacerange\n<0000> <FFFF>\nendcodespacerange\n")
	for i := 0; i < len(keys); {
		chunk := min(len(keys)-i, 100)
		fmt.Fprintf(&buf, "%d beginbfchar\n", chunk)
		for _, code := range keys[i : i+chunk] {
			fmt.Fprintf(&buf, "<%04X> <", code)
			for _, u := range utf16.Encode(mapping[uint16(code)]) {
				fmt.Fprintf(&buf, "%04X", u)
			}
			buf.WriteString(">\n")
		}
		buf.WriteString("endbfchar\n")
		i += chunk
	}
	buf.WriteString("endcmap\nCMapName currentdict /CMap defineresource pop\nend\nend\n")
	return raw.NewStream(raw.Dict(), buf.Bytes())
}
