package fonts

import (
	"context"

	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/ir/semantic"
)

// DefaultWidth is used, in thousandths of an em, for codes without a width.
const DefaultWidth = 500

// Glyph is one decoded character code of a shown string.
type Glyph struct {
	Code  []byte
	Text  string
	Width float64 // horizontal displacement in text space for a font size of 1
	Space bool    // single-byte code 32, subject to word spacing
}

// FontInfo holds what layout needs from a font resource: its identifier,
// how to split and decode shown strings, and glyph widths.
type FontInfo struct {
	Resource   Resource
	ID         string
	Composite  bool
	toUnicode  *CMap
	encoding   *byteEncoding
	widths     map[uint32]float64
	defWidth   float64
	widthScale float64
}

// LoadFontInfo reads widths and encodings for the font resource under key.
// It always returns a usable value; unreadable parts fall back to defaults.
func LoadFontInfo(ctx context.Context, doc *semantic.Document, key string, obj raw.Object) *FontInfo {
	r := doc.Raw
	res := ClassifyResource(r, key, obj)
	fi := &FontInfo{
		Resource:   res,
		ID:         res.Identifier(r),
		Composite:  res.Kind == KindComposite,
		widths:     make(map[uint32]float64),
		defWidth:   DefaultWidth,
		widthScale: 0.001,
		encoding:   winAnsi,
	}
	if res.Dict == nil {
		return fi
	}
	if tu, ok := res.Dict.Get("ToUnicode"); ok {
		if data, err := doc.Decoded.Stream(ctx, tu); err == nil {
			fi.toUnicode, _ = ParseCMap(data)
		}
	}
	if fi.Composite {
		fi.loadCIDWidths(r)
		return fi
	}
	if res.Kind == KindType3 {
		if m, ok := r.Floats(entry(res.Dict, "FontMatrix")); ok && len(m) == 6 {
			fi.widthScale = m[0]
		}
	}
	fi.loadEncoding(r)
	fi.loadSimpleWidths(r)
	return fi
}

func entry(d *raw.DictObj, key string) raw.Object {
	o, _ := d.Get(key)
	return o
}

func (fi *FontInfo) loadSimpleWidths(r *raw.Document) {
	d := fi.Resource.Dict
	if desc := fi.Resource.Descriptor; desc != nil {
		if mw, ok := r.NumberEntry(desc, "MissingWidth"); ok && mw > 0 {
			fi.defWidth = mw
		}
	}
	first, _ := r.NumberEntry(d, "FirstChar")
	ws, ok := r.Floats(entry(d, "Widths"))
	if !ok {
		return
	}
	for i, w := range ws {
		fi.widths[uint32(int(first)+i)] = w
	}
}

// loadCIDWidths reads /DW and the /W array of the descendant font. /W mixes
// "c [w1 w2 ...]" and "cFirst cLast w" forms.
func (fi *FontInfo) loadCIDWidths(r *raw.Document) {
	fi.defWidth = 1000
	desc := fi.Resource.Descendant
	if desc == nil {
		return
	}
	if dw, ok := r.NumberEntry(desc, "DW"); ok {
		fi.defWidth = dw
	}
	w, ok := r.ArrayEntry(desc, "W")
	if !ok {
		return
	}
	items := w.Items
	for i := 0; i < len(items); {
		first, ok := r.Number(items[i])
		if !ok || i+1 >= len(items) {
			return
		}
		if list, ok := r.Floats(items[i+1]); ok {
			for j, v := range list {
				fi.widths[uint32(int(first)+j)] = v
			}
			i += 2
			continue
		}
		if i+2 >= len(items) {
			return
		}
		last, ok1 := r.Number(items[i+1])
		v, ok2 := r.Number(items[i+2])
		if !ok1 || !ok2 || last < first || last-first > 0xFFFF {
			return
		}
		for c := int(first); c <= int(last); c++ {
			fi.widths[uint32(c)] = v
		}
		i += 3
	}
}

func (fi *FontInfo) loadEncoding(r *raw.Document) {
	encObj, ok := fi.Resource.Dict.Get("Encoding")
	if !ok {
		if fi.Resource.Subtype == "Type1" {
			fi.encoding = standardE
		}
		return
	}
	if name, ok := r.Name(encObj); ok {
		fi.encoding = baseEncoding(name)
		return
	}
	encDict, ok := r.Dict(encObj)
	if !ok {
		return
	}
	base, _ := r.NameEntry(encDict, "BaseEncoding")
	table := *baseEncoding(base)
	if diffs, ok := r.ArrayEntry(encDict, "Differences"); ok {
		code := 0
		for _, item := range diffs.Items {
			if n, ok := r.Number(item); ok {
				code = int(n)
				continue
			}
			if name, ok := r.Name(item); ok && code >= 0 && code < 256 {
				if ru, ok := glyphNameRune(name); ok {
					table[code] = ru
				}
				code++
			}
		}
	}
	fi.encoding = &table
}

// Decode splits a shown string into character codes.
func (fi *FontInfo) Decode(data []byte) []Glyph {
	def := 1
	if fi.Composite {
		def = 2
	}
	var out []Glyph
	for len(data) > 0 {
		n := fi.toUnicode.CodeLength(data, def)
		if n <= 0 {
			n = 1
		}
		code := data[:n]
		data = data[n:]
		out = append(out, Glyph{
			Code:  code,
			Text:  fi.text(code),
			Width: fi.width(codeValue(code)) * fi.widthScale,
			Space: n == 1 && code[0] == ' ',
		})
	}
	return out
}

func (fi *FontInfo) width(code uint32) float64 {
	if w, ok := fi.widths[code]; ok {
		return w
	}
	return fi.defWidth
}

func (fi *FontInfo) text(code []byte) string {
	if s, ok := fi.toUnicode.Lookup(code); ok {
		return s
	}
	if fi.Composite {
		return DecodeUTF16BE(code)
	}
	if r := fi.encoding[code[0]]; r != 0 {
		return string(r)
	}
	return string(rune(code[0]))
}
