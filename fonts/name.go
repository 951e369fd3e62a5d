package fonts

import "strings"

// Variant names the style a font name advertises.
type Variant string

const (
	Regular    Variant = "Regular"
	Bold       Variant = "Bold"
	Italic     Variant = "Italic"
	BoldItalic Variant = "BoldItalic"
	Light      Variant = "Light"
	Medium     Variant = "Medium"
	SemiBold   Variant = "SemiBold"
	Black      Variant = "Black"
	Thin       Variant = "Thin"
	ExtraLight Variant = "ExtraLight"
	ExtraBold  Variant = "ExtraBold"
	Heavy      Variant = "Heavy"
)

// Style is derived from a font name alone.
type Style struct {
	Weight  int     `json:"weight"` // 100..900
	Italic  bool    `json:"italic"`
	Variant Variant `json:"variant"`
}

// IsBold reports a weight of 600 or more.
func (s Style) IsBold() bool { return s.Weight >= 600 }

var RegularStyle = Style{Weight: 400, Variant: Regular}

type styleKeyword struct {
	token string
	style Style
}

// styleKeywords is matched in order; compound tokens come before their parts
// so that "BoldItalic" is never read as "Bold".
var styleKeywords = []styleKeyword{
	{"BoldItalic", Style{700, true, BoldItalic}},
	{"BoldOblique", Style{700, true, BoldItalic}},
	{"ExtraBold", Style{800, false, ExtraBold}},
	{"UltraBold", Style{800, false, ExtraBold}},
	{"SemiBold", Style{600, false, SemiBold}},
	{"DemiBold", Style{600, false, SemiBold}},
	{"ExtraLight", Style{200, false, ExtraLight}},
	{"UltraLight", Style{200, false, ExtraLight}},
	{"Bold", Style{700, false, Bold}},
	{"Italic", Style{400, true, Italic}},
	{"Oblique", Style{400, true, Italic}},
	{"Black", Style{900, false, Black}},
	{"Heavy", Style{900, false, Heavy}},
	{"Medium", Style{500, false, Medium}},
	{"Light", Style{300, false, Light}},
	{"Thin", Style{100, false, Thin}},
	{"Regular", Style{400, false, Regular}},
}

// StripSubsetPrefix removes a six-uppercase-letter subset tag such as
// "ABCDEF+".
func StripSubsetPrefix(name string) string {
	if len(name) < 8 || name[6] != '+' {
		return name
	}
	for i := 0; i < 6; i++ {
		if name[i] < 'A' || name[i] > 'Z' {
			return name
		}
	}
	return name[7:]
}

// Decompose splits a font name into family and style. It never fails: an
// unrecognised name is its own family with the regular style.
func Decompose(name string) (string, Style) {
	base := StripSubsetPrefix(name)
	lower := strings.ToLower(base)
	for _, kw := range styleKeywords {
		idx := strings.LastIndex(lower, strings.ToLower(kw.token))
		if idx < 0 {
			continue
		}
		return familyBefore(base, idx, len(kw.token)), kw.style
	}
	return base, RegularStyle
}

// familyBefore removes the matched token, and one separator in front of it,
// when the token ends the name. Tokens in the middle leave the name intact.
func familyBefore(base string, idx, n int) string {
	if idx+n != len(base) {
		return base
	}
	family := base[:idx]
	if l := len(family); l > 0 && strings.ContainsRune("-_, ", rune(family[l-1])) {
		family = family[:l-1]
	}
	if family == "" {
		return base
	}
	return family
}

// FamilyHint reduces a font name to the generic class used to choose a
// standard font: "serif", "monospace" or "sans". Times and Serif are
// matched before Courier and Mono, by plain substring.
func FamilyHint(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "times"), strings.Contains(lower, "serif"):
		return "serif"
	case strings.Contains(lower, "courier"), strings.Contains(lower, "mono"):
		return "monospace"
	}
	return "sans"
}
