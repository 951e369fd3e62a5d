package fonts

import (
	"strings"

	"github.com/wudi/pdfedit/ir/raw"
)

type standardFamily struct {
	regular, bold, italic, boldItalic string
}

var (
	helvetica = standardFamily{"Helvetica", "Helvetica-Bold", "Helvetica-Oblique", "Helvetica-BoldOblique"}
	times     = standardFamily{"Times-Roman", "Times-Bold", "Times-Italic", "Times-BoldItalic"}
	courier   = standardFamily{"Courier", "Courier-Bold", "Courier-Oblique", "Courier-BoldOblique"}
)

// StandardFont picks one of the standard fonts every reader provides. The
// hint is matched by substring: Times or Serif selects Times, Courier or Mono
// selects Courier, anything else Helvetica. The face follows the style.
func StandardFont(hint string, style Style) string {
	lower := strings.ToLower(hint)
	fam := helvetica
	switch {
	case strings.Contains(lower, "times"), strings.Contains(lower, "serif"):
		fam = times
	case strings.Contains(lower, "courier"), strings.Contains(lower, "mono"):
		fam = courier
	}
	switch {
	case style.IsBold() && style.Italic:
		return fam.boldItalic
	case style.IsBold():
		return fam.bold
	case style.Italic:
		return fam.italic
	}
	return fam.regular
}

// StandardFontDict returns a simple font dictionary for a standard font
// using WinAnsiEncoding.
func StandardFontDict(base string) *raw.DictObj {
	d := raw.Dict()
	d.Set("Type", raw.NameLiteral("Font"))
	d.Set("Subtype", raw.NameLiteral("Type1"))
	d.Set("BaseFont", raw.NameLiteral(base))
	d.Set("Encoding", raw.NameLiteral("WinAnsiEncoding"))
	return d
}
