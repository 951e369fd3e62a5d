package extractor

import (
	"context"

	"github.com/wudi/pdfedit/fonts"
	"github.com/wudi/pdfedit/resources"
)

// font returns the decoding info for the font selected under name in the
// current resources. Fonts are cached by dictionary so a font shared by
// several pages or forms is loaded once.
func (l *layout) font(ctx context.Context, name string) *fonts.FontInfo {
	r := l.e.doc.Raw
	obj, _ := resources.Lookup(r, l.res, resources.CategoryFont, name)
	dict, ok := r.Dict(obj)
	if !ok {
		return fonts.LoadFontInfo(ctx, l.e.doc, name, obj)
	}
	if fi, ok := l.e.fonts[dict]; ok {
		return fi
	}
	fi := fonts.LoadFontInfo(ctx, l.e.doc, name, obj)
	l.e.fonts[dict] = fi
	return fi
}
