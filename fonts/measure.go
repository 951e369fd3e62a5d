package fonts

import (
	"bytes"
	"errors"
	"unicode"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// TextMetrics are in the same unit as the requested font size. Descender is
// negative below the baseline.
type TextMetrics struct {
	Width     float64
	Height    float64
	Ascender  float64
	Descender float64
}

var errInvalidFont = errors.New("font is not valid")

// Face returns the shaping face, created on first use.
func (pf *ParsedFont) Face() (*gofont.Face, error) {
	if !pf.Valid {
		return nil, errInvalidFont
	}
	pf.faceOnce.Do(func() {
		pf.face, pf.faceErr = gofont.ParseTTF(bytes.NewReader(pf.Data))
	})
	return pf.face, pf.faceErr
}

// GlyphIndex maps r through the font's cmap. Zero means the glyph is missing.
func (pf *ParsedFont) GlyphIndex(r rune) sfnt.GlyphIndex {
	if !pf.Valid || pf.Font == nil {
		return 0
	}
	var buf sfnt.Buffer
	gid, err := pf.Font.GlyphIndex(&buf, r)
	if err != nil {
		return 0
	}
	return gid
}

// SupportsText reports whether every printable rune of s has a glyph other
// than .notdef.
func (pf *ParsedFont) SupportsText(s string) bool {
	if !pf.Valid {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if pf.GlyphIndex(r) == 0 {
			return false
		}
	}
	return true
}

// Measure shapes s at size and reports its advance width and vertical
// metrics. Shaping failures fall back to summing cmap advances.
func (pf *ParsedFont) Measure(s string, size float64) TextMetrics {
	if !pf.Valid || size <= 0 {
		return TextMetrics{}
	}
	var buf sfnt.Buffer
	ppem := fixed.Int26_6(size * 64)
	var m TextMetrics
	if vm, err := pf.Font.Metrics(&buf, ppem, xfont.HintingNone); err == nil {
		m.Ascender = fromFixed(vm.Ascent)
		m.Descender = -fromFixed(vm.Descent)
	}
	m.Height = m.Ascender - m.Descender
	if w, ok := pf.shapedWidth(s, ppem); ok {
		m.Width = w
		return m
	}
	for _, r := range s {
		adv, err := pf.Font.GlyphAdvance(&buf, pf.GlyphIndex(r), ppem, xfont.HintingNone)
		if err == nil {
			m.Width += fromFixed(adv)
		}
	}
	return m
}

func (pf *ParsedFont) shapedWidth(s string, ppem fixed.Int26_6) (float64, bool) {
	face, err := pf.Face()
	if err != nil || face == nil {
		return 0, false
	}
	runes := []rune(s)
	if len(runes) == 0 {
		return 0, true
	}
	script := DetectScript(runes)
	out := (&shaping.HarfbuzzShaper{}).Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: scriptDirection(script),
		Face:      face,
		Size:      ppem,
		Script:    script,
		Language:  language.DefaultLanguage(),
	})
	var w fixed.Int26_6
	for _, g := range out.Glyphs {
		w += g.XAdvance
	}
	return fromFixed(w), true
}

func fromFixed(v fixed.Int26_6) float64 { return float64(v) / 64 }

func scriptDirection(script language.Script) di.Direction {
	switch script {
	case language.Arabic, language.Hebrew, language.Syriac, language.Thaana, language.Nko:
		return di.DirectionRTL
	default:
		return di.DirectionLTR
	}
}

var scriptTables = []struct {
	table  *unicode.RangeTable
	script language.Script
}{
	{unicode.Arabic, language.Arabic},
	{unicode.Hebrew, language.Hebrew},
	{unicode.Latin, language.Latin},
	{unicode.Cyrillic, language.Cyrillic},
	{unicode.Greek, language.Greek},
	{unicode.Thai, language.Thai},
	{unicode.Devanagari, language.Devanagari},
	{unicode.Han, language.Han},
	{unicode.Hiragana, language.Hiragana},
	{unicode.Katakana, language.Katakana},
	{unicode.Hangul, language.Hangul},
}

// DetectScript returns the most frequent script in runes, Latin when none is
// recognised. Ties keep the script seen first.
func DetectScript(runes []rune) language.Script {
	counts := make(map[language.Script]int)
	best, bestCount := language.Latin, 0
	for _, r := range runes {
		for _, st := range scriptTables {
			if !unicode.Is(st.table, r) {
				continue
			}
			counts[st.script]++
			if counts[st.script] > bestCount {
				best, bestCount = st.script, counts[st.script]
			}
			break
		}
	}
	return best
}
