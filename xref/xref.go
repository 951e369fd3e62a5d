package xref

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/scanner"
)

// EntryType distinguishes the three kinds of cross-reference entries.
type EntryType int

const (
	EntryFree EntryType = iota
	EntryInUse
	EntryCompressed
)

// Entry locates one object. In-use entries carry a byte offset; compressed
// entries name the object stream and the index inside it.
type Entry struct {
	Type      EntryType
	Offset    int64
	Gen       int
	StreamNum int
	Index     int
}

// Table is the merged view of every cross-reference section of a file.
type Table struct {
	Entries map[int]Entry
	Trailer *raw.DictObj
}

func NewTable() *Table {
	return &Table{Entries: make(map[int]Entry)}
}

// AddOlder merges a section that precedes the sections already added. Newer
// entries always win, including newer free entries.
func (t *Table) AddOlder(entries map[int]Entry) {
	for num, e := range entries {
		if _, ok := t.Entries[num]; !ok {
			t.Entries[num] = e
		}
	}
}

// AddOlderTrailer fills trailer keys that newer sections did not define.
func (t *Table) AddOlderTrailer(trailer *raw.DictObj) {
	if trailer == nil {
		return
	}
	if t.Trailer == nil {
		t.Trailer = raw.Dict()
	}
	for _, k := range trailer.Keys() {
		if _, ok := t.Trailer.Get(k); !ok {
			v, _ := trailer.Get(k)
			t.Trailer.Set(k, v)
		}
	}
}

var (
	ErrStartXRefNotFound = errors.New("startxref not found")
	ErrNotClassicTable   = errors.New("xref keyword not found at offset")
)

// FindStartXRef returns the offset recorded after the last startxref keyword.
func FindStartXRef(data []byte) (int64, error) {
	idx := bytes.LastIndex(data, []byte("startxref"))
	if idx < 0 {
		return 0, ErrStartXRefNotFound
	}
	s := scanner.New(data, scanner.Config{})
	if err := s.SeekTo(int64(idx + len("startxref"))); err != nil {
		return 0, err
	}
	tok, err := s.Next()
	if err != nil || tok.Type != scanner.TokenNumber || !tok.IsInt {
		return 0, fmt.Errorf("parse startxref: %w", ErrStartXRefNotFound)
	}
	if tok.Int < 0 || tok.Int >= int64(len(data)) {
		return 0, fmt.Errorf("xref offset out of range: %d", tok.Int)
	}
	return tok.Int, nil
}

// IsClassic reports whether a classic "xref" table starts at offset.
func IsClassic(data []byte, offset int64) bool {
	s := scanner.New(data, scanner.Config{})
	if s.SeekTo(offset) != nil {
		return false
	}
	tok, err := s.Next()
	return err == nil && tok.IsKeyword("xref")
}

// ParseClassic reads a classic table at offset. It returns the entries and the
// position just after the trailer keyword, where the trailer dictionary starts.
func ParseClassic(data []byte, offset int64) (map[int]Entry, int64, error) {
	s := scanner.New(data, scanner.Config{})
	if err := s.SeekTo(offset); err != nil {
		return nil, 0, err
	}
	tok, err := s.Next()
	if err != nil || !tok.IsKeyword("xref") {
		return nil, 0, ErrNotClassicTable
	}
	entries := make(map[int]Entry)
	for {
		tok, err = s.Next()
		if err != nil {
			return nil, 0, fmt.Errorf("xref subsection: %w", err)
		}
		if tok.IsKeyword("trailer") {
			return entries, s.Position(), nil
		}
		if tok.Type != scanner.TokenNumber || !tok.IsInt {
			return nil, 0, fmt.Errorf("unexpected token in xref table at %d", tok.Pos)
		}
		start := int(tok.Int)
		cnt, err := s.Next()
		if err != nil || cnt.Type != scanner.TokenNumber || !cnt.IsInt || cnt.Int < 0 {
			return nil, 0, fmt.Errorf("bad xref subsection header at %d", tok.Pos)
		}
		for i := 0; i < int(cnt.Int); i++ {
			off, err1 := s.Next()
			gen, err2 := s.Next()
			kind, err3 := s.Next()
			if err := errors.Join(err1, err2, err3); err != nil {
				return nil, 0, fmt.Errorf("xref entry: %w", err)
			}
			if off.Type != scanner.TokenNumber || gen.Type != scanner.TokenNumber || kind.Type != scanner.TokenKeyword {
				return nil, 0, fmt.Errorf("malformed xref entry at %d", off.Pos)
			}
			num := start + i
			if _, seen := entries[num]; seen {
				continue
			}
			switch kind.Str {
			case "n":
				entries[num] = Entry{Type: EntryInUse, Offset: off.Int, Gen: int(gen.Int)}
			case "f":
				entries[num] = Entry{Type: EntryFree, Gen: int(gen.Int)}
			default:
				return nil, 0, fmt.Errorf("unknown xref entry type %q", kind.Str)
			}
		}
	}
}

// DecodeStream interprets the decoded payload of a cross-reference stream.
func DecodeStream(dict *raw.DictObj, data []byte) (map[int]Entry, error) {
	widths, ok := intArray(dict, "W")
	if !ok || len(widths) != 3 {
		return nil, errors.New("xref stream: invalid /W")
	}
	rowLen := 0
	for _, w := range widths {
		if w < 0 || w > 8 {
			return nil, errors.New("xref stream: field width out of range")
		}
		rowLen += w
	}
	if rowLen == 0 {
		return nil, errors.New("xref stream: empty rows")
	}
	index, ok := intArray(dict, "Index")
	if !ok {
		size, _ := intValue(dict, "Size")
		index = []int{0, size}
	}
	if len(index)%2 != 0 {
		return nil, errors.New("xref stream: odd /Index")
	}

	entries := make(map[int]Entry)
	pos := 0
	for i := 0; i < len(index); i += 2 {
		start, count := index[i], index[i+1]
		for j := 0; j < count; j++ {
			if pos+rowLen > len(data) {
				return entries, nil
			}
			row := data[pos : pos+rowLen]
			pos += rowLen
			f1 := field(row[:widths[0]], 1)
			f2 := field(row[widths[0]:widths[0]+widths[1]], 0)
			f3 := field(row[widths[0]+widths[1]:], 0)
			num := start + j
			switch f1 {
			case 0:
				entries[num] = Entry{Type: EntryFree, Gen: int(f3)}
			case 1:
				entries[num] = Entry{Type: EntryInUse, Offset: f2, Gen: int(f3)}
			case 2:
				entries[num] = Entry{Type: EntryCompressed, StreamNum: int(f2), Index: int(f3)}
			}
		}
	}
	return entries, nil
}

// field reads a big-endian integer; an absent field takes def.
func field(b []byte, def int64) int64 {
	if len(b) == 0 {
		return def
	}
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

func intValue(dict *raw.DictObj, key string) (int, bool) {
	o, ok := dict.Get(key)
	if !ok {
		return 0, false
	}
	n, ok := o.(raw.NumberObj)
	return int(n.Int()), ok
}

func intArray(dict *raw.DictObj, key string) ([]int, bool) {
	o, ok := dict.Get(key)
	if !ok {
		return nil, false
	}
	arr, ok := o.(*raw.ArrayObj)
	if !ok {
		return nil, false
	}
	out := make([]int, 0, arr.Len())
	for _, item := range arr.Items {
		n, ok := item.(raw.NumberObj)
		if !ok {
			return nil, false
		}
		out = append(out, int(n.Int()))
	}
	return out, true
}

// Scan rebuilds entries by looking for "<num> <gen> obj" headers anywhere in
// the file. Later definitions replace earlier ones, as an incremental update
// would. It also returns the positions following each trailer keyword.
func Scan(data []byte) (map[int]Entry, []int64) {
	entries := make(map[int]Entry)
	var trailers []int64
	for i := 0; ; {
		k := bytes.Index(data[i:], []byte("trailer"))
		if k < 0 {
			break
		}
		i += k + len("trailer")
		trailers = append(trailers, int64(i))
	}
	for i := 0; ; {
		j := bytes.Index(data[i:], []byte("obj"))
		if j < 0 {
			break
		}
		at := i + j
		i = at + 3
		if at+3 < len(data) && !scanner.IsWhitespace(data[at+3]) && !scanner.IsDelimiter(data[at+3]) {
			continue
		}
		num, gen, start, ok := headerBefore(data, at)
		if !ok {
			continue
		}
		entries[num] = Entry{Type: EntryInUse, Offset: int64(start), Gen: gen}
	}
	return entries, trailers
}

// headerBefore walks backwards from the obj keyword over "<num> <gen> ".
func headerBefore(data []byte, objPos int) (num, gen, start int, ok bool) {
	p := objPos - 1
	readInt := func() (int, bool) {
		for p >= 0 && scanner.IsWhitespace(data[p]) {
			p--
		}
		end := p + 1
		for p >= 0 && data[p] >= '0' && data[p] <= '9' {
			p--
		}
		if end == p+1 || end-(p+1) > 10 {
			return 0, false
		}
		v, err := strconv.Atoi(string(data[p+1 : end]))
		return v, err == nil
	}
	if objPos == 0 || !scanner.IsWhitespace(data[objPos-1]) {
		return 0, 0, 0, false
	}
	gen, ok = readInt()
	if !ok {
		return 0, 0, 0, false
	}
	if p < 0 || !scanner.IsWhitespace(data[p]) {
		return 0, 0, 0, false
	}
	num, ok = readInt()
	if !ok || num == 0 {
		return 0, 0, 0, false
	}
	if p >= 0 && !scanner.IsWhitespace(data[p]) && !scanner.IsDelimiter(data[p]) {
		return 0, 0, 0, false
	}
	return num, gen, p + 1, true
}
