package fonts

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// byteEncoding maps single-byte codes to runes; zero marks an unmapped code.
type byteEncoding [256]rune

func fromCharmap(cm *charmap.Charmap) *byteEncoding {
	var e byteEncoding
	for i := 0; i < 256; i++ {
		r := cm.DecodeByte(byte(i))
		if r != utf8.RuneError {
			e[i] = r
		}
	}
	return &e
}

var (
	winAnsi   = fromCharmap(charmap.Windows1252)
	macRoman  = fromCharmap(charmap.Macintosh)
	standardE = func() *byteEncoding {
		e := *fromCharmap(charmap.ISO8859_1)
		e['\''] = '’'
		e['`'] = '‘'
		return &e
	}()
)

// baseEncoding returns the table for a named simple-font encoding. Unknown
// names fall back to WinAnsi.
func baseEncoding(name string) *byteEncoding {
	switch name {
	case "MacRomanEncoding":
		return macRoman
	case "StandardEncoding":
		return standardE
	}
	return winAnsi
}

// EncodeWinAnsi converts text to WinAnsiEncoding bytes. Runes outside the
// code page become '?'.
func EncodeWinAnsi(text string) []byte {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}

// glyphNames covers the names used by Latin text in /Differences arrays.
// Single-letter names map to themselves.
var glyphNames = map[string]rune{
	"space": ' ', "exclam": '!', "quotedbl": '"', "numbersign": '#', "dollar": '$',
	"percent": '%', "ampersand": '&', "quotesingle": '\'', "quoteright": '’',
	"parenleft": '(', "parenright": ')', "asterisk": '*', "plus": '+', "comma": ',',
	"hyphen": '-', "minus": '−', "period": '.', "slash": '/',
	"zero": '0', "one": '1', "two": '2', "three": '3', "four": '4',
	"five": '5', "six": '6', "seven": '7', "eight": '8', "nine": '9',
	"colon": ':', "semicolon": ';', "less": '<', "equal": '=', "greater": '>',
	"question": '?', "at": '@', "bracketleft": '[', "backslash": '\\', "bracketright": ']',
	"asciicircum": '^', "underscore": '_', "grave": '`', "quoteleft": '‘',
	"braceleft": '{', "bar": '|', "braceright": '}', "asciitilde": '~',
	"bullet": '•', "endash": '–', "emdash": '—', "ellipsis": '…',
	"quotedblleft": '“', "quotedblright": '”', "quotesinglbase": '‚',
	"quotedblbase": '„', "dagger": '†', "daggerdbl": '‡',
	"fi": 'ﬁ', "fl": 'ﬂ', "trademark": '™', "copyright": '©',
	"registered": '®', "degree": '°', "section": '§', "paragraph": '¶',
	"Euro": '€', "sterling": '£', "yen": '¥', "cent": '¢',
	"nbspace": ' ', "periodcentered": '·', "guillemotleft": '«',
	"guillemotright": '»', "eacute": 'é', "egrave": 'è', "ecircumflex": 'ê',
	"edieresis": 'ë', "aacute": 'á', "agrave": 'à', "acircumflex": 'â', "adieresis": 'ä',
	"atilde": 'ã', "aring": 'å', "ccedilla": 'ç', "iacute": 'í', "igrave": 'ì',
	"icircumflex": 'î', "idieresis": 'ï', "ntilde": 'ñ', "oacute": 'ó', "ograve": 'ò',
	"ocircumflex": 'ô', "odieresis": 'ö', "otilde": 'õ', "oslash": 'ø', "uacute": 'ú',
	"ugrave": 'ù', "ucircumflex": 'û', "udieresis": 'ü', "yacute": 'ý', "ydieresis": 'ÿ',
	"Eacute": 'É', "Egrave": 'È', "Ecircumflex": 'Ê', "Aacute": 'Á', "Agrave": 'À',
	"Ccedilla": 'Ç', "Odieresis": 'Ö', "Udieresis": 'Ü', "Adieresis": 'Ä',
	"germandbls": 'ß', "ae": 'æ', "AE": 'Æ', "oe": 'œ', "OE": 'Œ',
}

// glyphNameRune resolves a glyph name, including uniXXXX and uXXXX forms.
func glyphNameRune(name string) (rune, bool) {
	if r, ok := glyphNames[name]; ok {
		return r, true
	}
	if base, _, found := strings.Cut(name, "."); found && base != "" {
		name = base
	}
	if len(name) == 1 {
		return rune(name[0]), true
	}
	for _, prefix := range []string{"uni", "u"} {
		if hex, ok := strings.CutPrefix(name, prefix); ok && len(hex) >= 4 && len(hex) <= 6 {
			if v, err := strconv.ParseUint(hex[:4], 16, 32); err == nil && prefix == "uni" {
				return rune(v), true
			}
			if v, err := strconv.ParseUint(hex, 16, 32); err == nil {
				return rune(v), true
			}
		}
	}
	if r, ok := glyphNames[name]; ok {
		return r, true
	}
	return 0, false
}
