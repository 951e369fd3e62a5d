package fonts

import (
	"encoding/binary"
	"errors"
	"math"
	"sort"
	"strings"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/wudi/pdfedit/ir/raw"
)

// EmbeddedFont is a parsed font program written into a document as a Type0
// font with Identity-H encoding. Text is encoded as two-byte glyph IDs.
// Widths and the ToUnicode map cover the glyphs used and are written by
// Finish.
type EmbeddedFont struct {
	Font     *ParsedFont
	Ref      raw.RefObj
	BaseFont string

	doc        *raw.Document
	descendant *raw.DictObj
	toUnicode  raw.RefObj
	used       map[uint16][]rune
	buf        sfnt.Buffer
}

var errNotEmbeddable = errors.New("font is not valid for embedding")

// Embed adds the font program, its descriptor and the Type0 font dictionary
// to doc. The full program is embedded without subsetting.
func Embed(doc *raw.Document, pf *ParsedFont) (*EmbeddedFont, error) {
	if pf == nil || !pf.Valid || pf.Font == nil {
		return nil, errNotEmbeddable
	}
	e := &EmbeddedFont{
		Font:     pf,
		BaseFont: embeddedName(pf),
		doc:      doc,
		used:     make(map[uint16][]rune),
	}
	upem := sfnt.Units(pf.UnitsPerEm)
	ppem := fixed.Int26_6(pf.UnitsPerEm << 6)

	desc := e.descriptor(upem, ppem)
	program := raw.NewStream(raw.Dict(), pf.Data)
	cidSubtype := "CIDFontType2"
	if pf.CFFOutlines {
		program.Dict.Set("Subtype", raw.NameLiteral("OpenType"))
		desc.Set("FontFile3", doc.Add(program))
		cidSubtype = "CIDFontType0"
	} else {
		program.Dict.Set("Length1", raw.NumberInt(int64(len(pf.Data))))
		desc.Set("FontFile2", doc.Add(program))
	}

	sysInfo := raw.Dict()
	sysInfo.Set("Registry", raw.Str([]byte("Adobe")))
	sysInfo.Set("Ordering", raw.Str([]byte("Identity")))
	sysInfo.Set("Supplement", raw.NumberInt(0))

	e.descendant = raw.Dict()
	e.descendant.Set("Type", raw.NameLiteral("Font"))
	e.descendant.Set("Subtype", raw.NameLiteral(cidSubtype))
	e.descendant.Set("BaseFont", raw.NameLiteral(e.BaseFont))
	e.descendant.Set("CIDSystemInfo", sysInfo)
	e.descendant.Set("FontDescriptor", doc.Add(desc))
	e.descendant.Set("DW", raw.NumberInt(int64(e.advance(0, upem, ppem))))
	if cidSubtype == "CIDFontType2" {
		e.descendant.Set("CIDToGIDMap", raw.NameLiteral("Identity"))
	}

	e.toUnicode = doc.Add(BuildToUnicode(e.BaseFont, nil))

	font := raw.Dict()
	font.Set("Type", raw.NameLiteral("Font"))
	font.Set("Subtype", raw.NameLiteral("Type0"))
	font.Set("BaseFont", raw.NameLiteral(e.BaseFont))
	font.Set("Encoding", raw.NameLiteral("Identity-H"))
	font.Set("DescendantFonts", raw.NewArray(doc.Add(e.descendant)))
	font.Set("ToUnicode", e.toUnicode)
	e.Ref = doc.Add(font)
	return e, nil
}

// embeddedName keeps the identifier the font was found under so a redrawn
// run names the same font. Spaces are not allowed in the name.
func embeddedName(pf *ParsedFont) string {
	name := pf.Identifier
	if name == "" {
		name = pf.PostScriptName
	}
	if name == "" {
		name = "EmbeddedFont"
	}
	return strings.ReplaceAll(name, " ", "")
}

func (e *EmbeddedFont) descriptor(upem sfnt.Units, ppem fixed.Int26_6) *raw.DictObj {
	font := e.Font.Font
	metrics, _ := font.Metrics(&e.buf, ppem, xfont.HintingNone)
	bounds, _ := font.Bounds(&e.buf, ppem, xfont.HintingNone)
	weight, capHeight := os2Metrics(e.Font.Data)
	if capHeight == 0 {
		capHeight = int(math.Round(scaleFixed(metrics.Ascent, upem)))
	} else {
		capHeight = int(math.Round(float64(capHeight) * 1000 / float64(upem)))
	}

	angle := italicAngle(font)
	flags := int64(4)
	if angle != 0 {
		flags |= 64
	}
	d := raw.Dict()
	d.Set("Type", raw.NameLiteral("FontDescriptor"))
	d.Set("FontName", raw.NameLiteral(e.BaseFont))
	d.Set("Flags", raw.NumberInt(flags))
	d.Set("FontBBox", raw.Numbers(
		math.Round(scaleFixed(bounds.Min.X, upem)),
		math.Round(-scaleFixed(bounds.Max.Y, upem)),
		math.Round(scaleFixed(bounds.Max.X, upem)),
		math.Round(-scaleFixed(bounds.Min.Y, upem)),
	))
	d.Set("ItalicAngle", raw.NumberFloat(angle))
	d.Set("Ascent", raw.NumberInt(int64(math.Round(scaleFixed(metrics.Ascent, upem)))))
	d.Set("Descent", raw.NumberInt(int64(-math.Round(scaleFixed(metrics.Descent, upem)))))
	d.Set("CapHeight", raw.NumberInt(int64(capHeight)))
	d.Set("StemV", raw.NumberInt(stemV(weight)))
	return d
}

// os2Metrics reads usWeightClass and, for version 2 tables and later,
// sCapHeight. Zero means the value is absent.
func os2Metrics(data []byte) (weight, capHeight int) {
	tables, err := ParseOpenTypeTableDirectory(data)
	if err != nil {
		return 0, 0
	}
	t, ok := tables["OS/2"]
	if !ok {
		return 0, 0
	}
	os2, err := ExtractTable(data, t)
	if err != nil || len(os2) < 6 {
		return 0, 0
	}
	weight = int(binary.BigEndian.Uint16(os2[4:6]))
	if binary.BigEndian.Uint16(os2[0:2]) >= 2 && len(os2) >= 90 {
		capHeight = int(int16(binary.BigEndian.Uint16(os2[88:90])))
	}
	return weight, capHeight
}

func stemV(weight int) int64 {
	if weight <= 0 {
		return 80
	}
	return int64(10 + 220*(weight-50)/900)
}

func italicAngle(font *sfnt.Font) float64 {
	post := font.PostTable()
	if post == nil {
		return 0
	}
	return post.ItalicAngle
}

func scaleFixed(val fixed.Int26_6, unitsPerEm sfnt.Units) float64 {
	return float64(val) * 1000.0 / (64.0 * float64(unitsPerEm))
}

func (e *EmbeddedFont) advance(gid sfnt.GlyphIndex, upem sfnt.Units, ppem fixed.Int26_6) int {
	adv, err := e.Font.Font.GlyphAdvance(&e.buf, gid, ppem, xfont.HintingNone)
	if err != nil {
		return 0
	}
	return int(math.Round(scaleFixed(adv, upem)))
}

// Encode maps text to two-byte glyph IDs and records the glyphs for the
// width and ToUnicode tables. Missing glyphs encode as .notdef.
func (e *EmbeddedFont) Encode(text string) []byte {
	out := make([]byte, 0, 2*len(text))
	for _, r := range text {
		gid := uint16(e.Font.GlyphIndex(r))
		out = binary.BigEndian.AppendUint16(out, gid)
		if _, seen := e.used[gid]; !seen && gid != 0 {
			e.used[gid] = []rune{r}
		}
	}
	return out
}

// Finish writes the /W array and the ToUnicode map for every glyph encoded
// so far. It may be called again after further Encode calls.
func (e *EmbeddedFont) Finish() {
	upem := sfnt.Units(e.Font.UnitsPerEm)
	ppem := fixed.Int26_6(e.Font.UnitsPerEm << 6)
	widths := make(map[int]int, len(e.used))
	for gid := range e.used {
		widths[int(gid)] = e.advance(sfnt.GlyphIndex(gid), upem, ppem)
	}
	if len(widths) > 0 {
		e.descendant.Set("W", encodeCIDWidths(widths))
	}
	e.doc.Objects[e.toUnicode.R] = BuildToUnicode(e.BaseFont, e.used)
}

// encodeCIDWidths groups consecutive glyph IDs into "c [w1 w2 ...]" runs.
func encodeCIDWidths(widths map[int]int) *raw.ArrayObj {
	gids := make([]int, 0, len(widths))
	for gid := range widths {
		gids = append(gids, gid)
	}
	sort.Ints(gids)
	out := raw.NewArray()
	for i := 0; i < len(gids); {
		start := gids[i]
		run := raw.NewArray(raw.NumberInt(int64(widths[start])))
		j := i + 1
		for ; j < len(gids) && gids[j] == gids[j-1]+1; j++ {
			run.Append(raw.NumberInt(int64(widths[gids[j]])))
		}
		out.Append(raw.NumberInt(int64(start)))
		out.Append(run)
		i = j
	}
	return out
}
