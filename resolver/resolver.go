// Package resolver maps the fonts named by text runs to fonts that can be
// drawn into the saved document. Extracted programs are embedded once per
// save; everything else falls back to a standard font.
package resolver

import (
	"fmt"

	"github.com/wudi/pdfedit/fonts"
	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/observability"
)

// Summary counts how fonts were resolved during one save.
type Summary struct {
	// Extracted counts identifiers drawn with their own embedded program.
	Extracted int
	// StandardFallback counts identifiers drawn with a standard font.
	StandardFallback int
	// CoverageFallback counts runs whose edited text the embedded program
	// could not render.
	CoverageFallback int
}

// Config controls where resolved fonts are registered.
type Config struct {
	// Fonts is the /Font resource dictionary that receives the fonts. It is
	// created on demand when nil; see Resolver.FontResources.
	Fonts *raw.DictObj
	// NamePrefix starts generated resource names. Defaults to "PE".
	NamePrefix string
	Logger     observability.Logger
}

// Handle is a font ready to draw text with.
type Handle struct {
	name     string
	base     string
	embedded *fonts.EmbeddedFont
}

// ResourceName is the key of the font in the /Font resource dictionary.
func (h *Handle) ResourceName() string { return h.name }

// BaseFont is the PostScript name written into the font dictionary.
func (h *Handle) BaseFont() string { return h.base }

// Embedded reports whether the handle draws with an extracted program.
func (h *Handle) Embedded() bool { return h.embedded != nil }

// Encode converts text to the byte codes the font expects.
func (h *Handle) Encode(text string) []byte {
	if h.embedded != nil {
		return h.embedded.Encode(text)
	}
	return fonts.EncodeWinAnsi(text)
}

// Resolver caches one resolution per font identifier. It is meant for a
// single save and is not safe for concurrent use.
type Resolver struct {
	doc      *raw.Document
	parsed   map[string]*fonts.ParsedFont
	fontDict *raw.DictObj
	prefix   string
	log      observability.Logger

	byID       map[string]*Handle
	byStandard map[string]*Handle
	embedded   []*fonts.EmbeddedFont
	summary    Summary
	seq        int
}

// New creates a resolver that adds fonts to doc. parsed holds the valid
// font programs keyed by identifier.
func New(doc *raw.Document, parsed map[string]*fonts.ParsedFont, cfg Config) *Resolver {
	prefix := cfg.NamePrefix
	if prefix == "" {
		prefix = "PE"
	}
	fontDict := cfg.Fonts
	if fontDict == nil {
		fontDict = raw.Dict()
	}
	return &Resolver{
		doc:        doc,
		parsed:     parsed,
		fontDict:   fontDict,
		prefix:     prefix,
		log:        observability.OrNop(cfg.Logger),
		byID:       make(map[string]*Handle),
		byStandard: make(map[string]*Handle),
	}
}

// FontResources returns the dictionary the resolved fonts are registered in.
func (r *Resolver) FontResources() *raw.DictObj { return r.fontDict }

// Summary reports the resolutions so far.
func (r *Resolver) Summary() Summary { return r.summary }

// Resolve returns the font for identifier id. A valid extracted program is
// embedded; otherwise a standard font is chosen from familyHint and the
// style encoded in the identifier. Repeated calls for the same id return
// the cached handle and are counted once.
func (r *Resolver) Resolve(id, familyHint string) *Handle {
	if h, ok := r.byID[id]; ok {
		return h
	}
	if pf, ok := r.parsed[id]; ok && pf.Valid {
		e, err := fonts.Embed(r.doc, pf)
		if err == nil {
			h := &Handle{name: r.register(e.Ref), base: e.BaseFont, embedded: e}
			r.embedded = append(r.embedded, e)
			r.byID[id] = h
			r.summary.Extracted++
			r.log.Debug("font embedded",
				observability.String("font", id),
				observability.String("resource", h.name))
			return h
		}
		r.log.Warn("font embedding failed, using a standard font",
			observability.String("font", id),
			observability.Error("error", err))
	}
	_, style := fonts.Decompose(id)
	h := r.standard(fonts.StandardFont(familyHint, style))
	r.byID[id] = h
	r.summary.StandardFallback++
	r.log.Debug("standard font fallback",
		observability.String("font", id),
		observability.String("base", h.base))
	return h
}

// ResolveForText resolves id and checks that the result can render text.
// When the embedded program lacks glyphs, typically because it is a subset,
// the run is drawn with a standard font of the given style instead. The
// cached resolution for id is left as it was.
func (r *Resolver) ResolveForText(id, familyHint string, style fonts.Style, text string) *Handle {
	h := r.Resolve(id, familyHint)
	if !h.Embedded() || h.embedded.Font.SupportsText(text) {
		return h
	}
	r.summary.CoverageFallback++
	fallback := r.standard(fonts.StandardFont(familyHint, style))
	r.log.Info("embedded font lacks glyphs, using a standard font",
		observability.String("font", id),
		observability.String("base", fallback.base),
		observability.Int(observability.MetricFallbackFonts, r.summary.CoverageFallback))
	return fallback
}

// Finish writes glyph widths and ToUnicode maps for the embedded fonts. It
// must run after the last Encode call.
func (r *Resolver) Finish() {
	for _, e := range r.embedded {
		e.Finish()
	}
}

func (r *Resolver) standard(base string) *Handle {
	if h, ok := r.byStandard[base]; ok {
		return h
	}
	ref := r.doc.Add(fonts.StandardFontDict(base))
	h := &Handle{name: r.register(ref), base: base}
	r.byStandard[base] = h
	return h
}

// register adds ref under the next unused resource name.
func (r *Resolver) register(ref raw.RefObj) string {
	for {
		r.seq++
		name := fmt.Sprintf("%sF%d", r.prefix, r.seq)
		if _, taken := r.fontDict.Get(name); !taken {
			r.fontDict.Set(name, ref)
			return name
		}
	}
}
