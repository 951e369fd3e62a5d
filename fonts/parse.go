package fonts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	gofont "github.com/go-text/typesetting/font"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/errgroup"

	"github.com/wudi/pdfedit/observability"
)

// ParsedFont is a decoded, validated font program. Invalid instances are kept
// so callers can report why a font was rejected.
type ParsedFont struct {
	Identifier     string
	Data           []byte
	Font           *sfnt.Font
	Valid          bool
	Err            string
	UnitsPerEm     int
	NumGlyphs      int
	PostScriptName string
	// CFFOutlines is set for OpenType programs with a CFF table.
	CFFOutlines bool

	faceOnce sync.Once
	face     *gofont.Face
	faceErr  error
}

const (
	minUnitsPerEm = 16
	maxUnitsPerEm = 16384
)

var errNotSFNT = errors.New("only TrueType and OpenType programs can be parsed")

// Parse decodes and validates one extracted font. It never panics and never
// returns an error; failures are recorded on the result.
func Parse(f *ExtractedFont) (pf *ParsedFont) {
	pf = &ParsedFont{Identifier: f.Identifier}
	if len(f.Data) == 0 || (f.Type != TrueType && f.Type != OpenType) {
		pf.Err = errNotSFNT.Error()
		if len(f.Data) == 0 {
			pf.Err = "no font data"
		}
		return pf
	}
	defer func() {
		if r := recover(); r != nil {
			pf.Valid = false
			pf.Font = nil
			pf.Err = fmt.Sprintf("parse panic: %v", r)
		}
	}()
	pf.Data = bytes.Clone(f.Data)
	if err := pf.decode(); err != nil {
		pf.Font = nil
		pf.Err = err.Error()
		return pf
	}
	pf.Valid = true
	return pf
}

func (pf *ParsedFont) decode() error {
	font, err := sfnt.Parse(pf.Data)
	if err != nil {
		return fmt.Errorf("sfnt: %w", err)
	}
	pf.Font = font
	pf.NumGlyphs = font.NumGlyphs()
	if pf.NumGlyphs <= 0 {
		return errors.New("font has no glyphs")
	}
	pf.UnitsPerEm = int(font.UnitsPerEm())
	if pf.UnitsPerEm < minUnitsPerEm || pf.UnitsPerEm > maxUnitsPerEm {
		return fmt.Errorf("unitsPerEm %d out of range", pf.UnitsPerEm)
	}
	var buf sfnt.Buffer
	ppem := fixed.Int26_6(pf.UnitsPerEm << 6)
	if _, err := font.GlyphAdvance(&buf, 0, ppem, xfont.HintingNone); err != nil {
		return fmt.Errorf("glyph advances: %w", err)
	}
	if ps, err := font.Name(&buf, sfnt.NameIDPostScript); err == nil {
		pf.PostScriptName = ps
	}
	if tables, err := ParseOpenTypeTableDirectory(pf.Data); err == nil {
		_, pf.CFFOutlines = tables["CFF "]
	}
	return nil
}

// ParseAll parses fonts concurrently, at most limit at a time (limit <= 0
// means unbounded), and waits for every one of them. Only valid fonts are
// returned, keyed by identifier. A failing font never cancels the others.
func ParseAll(ctx context.Context, fonts []*ExtractedFont, limit int, log observability.Logger) map[string]*ParsedFont {
	log = observability.OrNop(log)
	results := make([]*ParsedFont, len(fonts))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, f := range fonts {
		g.Go(func() error {
			if gctx.Err() != nil {
				results[i] = &ParsedFont{Identifier: f.Identifier, Err: gctx.Err().Error()}
				return nil
			}
			results[i] = Parse(f)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]*ParsedFont, len(fonts))
	for _, pf := range results {
		if pf.Valid {
			out[pf.Identifier] = pf
			continue
		}
		log.Debug("font not usable", observability.String("font", pf.Identifier), observability.String("reason", pf.Err))
	}
	log.Info("fonts parsed",
		observability.Int(observability.MetricFontsValid, len(out)),
		observability.Int("total", len(fonts)))
	return out
}
