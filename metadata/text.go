package metadata

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
)

// pdfDocHigh lists where PDFDocEncoding departs from Latin-1.
var pdfDocHigh = map[byte]rune{
	0x80: '•', 0x81: '†', 0x82: '‡', 0x83: '…', 0x84: '—', 0x85: '–',
	0x86: 'ƒ', 0x87: '⁄', 0x88: '‹', 0x89: '›', 0x8A: '−', 0x8B: '‰',
	0x8C: '„', 0x8D: '“', 0x8E: '”', 0x8F: '‘', 0x90: '’', 0x91: '‚',
	0x92: '™', 0x93: 'ﬁ', 0x94: 'ﬂ', 0x95: 'Ł', 0x96: 'Œ', 0x97: 'Š',
	0x98: 'Ÿ', 0x99: 'Ž', 0x9A: 'ı', 0x9B: 'ł', 0x9C: 'œ', 0x9D: 'š',
	0x9E: 'ž', 0xA0: '€',
}

// DecodeText turns a PDF text string into UTF-8. Strings with a UTF-16BE or
// UTF-8 byte order mark are decoded as such; anything else is PDFDocEncoding.
func DecodeText(b []byte) string {
	switch {
	case bytes.HasPrefix(b, bomUTF16BE):
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		if out, err := dec.Bytes(b); err == nil {
			return string(out)
		}
	case bytes.HasPrefix(b, bomUTF8):
		return string(b[len(bomUTF8):])
	}
	var sb strings.Builder
	for _, c := range b {
		if r, ok := pdfDocHigh[c]; ok {
			sb.WriteRune(r)
			continue
		}
		sb.WriteRune(charmap.ISO8859_1.DecodeByte(c))
	}
	return sb.String()
}

var errNoDate = errors.New("not a PDF date")

var dateLayouts = []string{
	"D:20060102150405-0700",
	"D:20060102150405-07",
	"D:20060102150405Z0000",
	"D:20060102150405Z00",
	"D:20060102150405Z",
	"D:20060102150405",
	"D:200601021504",
	"D:2006010215",
	"D:20060102",
	"D:200601",
	"D:2006",
}

// ParseDate reads a PDF date such as D:20240131120000+01'00'. The D: prefix
// is optional.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "'", ""))
	if s == "" {
		return time.Time{}, errNoDate
	}
	if !strings.HasPrefix(s, "D:") {
		s = "D:" + s
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errNoDate
}

// FormatDate renders t in UTC as D:YYYYMMDDHHmmSSZ.
func FormatDate(t time.Time) string {
	return t.UTC().Format("D:20060102150405Z")
}
