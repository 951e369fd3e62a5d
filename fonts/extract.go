package fonts

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/ir/semantic"
	"github.com/wudi/pdfedit/observability"
)

// ExtractedFont is a font program recovered from the resource graph. Data is
// nil when the font carries no usable program; Err records why extraction
// failed, if it did.
type ExtractedFont struct {
	Identifier      string
	Data            []byte
	DeclaredSubtype string
	Type            ProgramType
	Kind            ResourceKind
	Source          string // descriptor key the program came from
	Err             error
}

// FontMap holds one entry per distinct font identifier.
type FontMap map[string]*ExtractedFont

// Sorted returns the entries ordered by identifier.
func (m FontMap) Sorted() []*ExtractedFont {
	out := make([]*ExtractedFont, 0, len(m))
	for _, f := range m {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out
}

// Embeddable reports whether f is a TrueType or OpenType program with data.
func Embeddable(f *ExtractedFont) bool {
	if f == nil || len(f.Data) == 0 {
		return false
	}
	return f.Type == TrueType || f.Type == OpenType
}

type Summary struct {
	Total      int
	Embeddable int
	ByType     map[ProgramType]int
}

func Summarize(m FontMap) Summary {
	s := Summary{Total: len(m), ByType: make(map[ProgramType]int)}
	for _, f := range m {
		if Embeddable(f) {
			s.Embeddable++
		}
		s.ByType[f.Type]++
	}
	return s
}

func (s Summary) String() string {
	types := make([]string, 0, len(s.ByType))
	for t, n := range s.ByType {
		types = append(types, fmt.Sprintf("%s=%d", t, n))
	}
	sort.Strings(types)
	return fmt.Sprintf("total=%d embeddable=%d types=[%s]", s.Total, s.Embeddable, strings.Join(types, " "))
}

// Extract walks every page once and recovers the font programs it uses.
// Page-local resources (including those of reachable form XObjects) are
// visited for each page; resources shared through the page tree only with the
// first page. A font that fails never aborts the walk.
func Extract(ctx context.Context, doc *semantic.Document, log observability.Logger) FontMap {
	e := &extraction{
		ctx:   ctx,
		doc:   doc,
		log:   observability.OrNop(log),
		fonts: make(FontMap),
		seen:  make(map[string]bool),
		forms: make(map[*raw.StreamObj]bool),
	}
	for i, page := range doc.Pages {
		if ctx.Err() != nil {
			break
		}
		e.visitResources(page.Resources, "page")
		if i == 0 {
			for _, shared := range doc.SharedResources {
				e.visitResources(shared, "shared")
			}
		}
	}
	e.log.Info("fonts extracted",
		observability.Int(observability.MetricFontsFound, len(e.fonts)),
		observability.Int(observability.MetricPageCount, len(doc.Pages)))
	return e.fonts
}

type extraction struct {
	ctx   context.Context
	doc   *semantic.Document
	log   observability.Logger
	fonts FontMap
	seen  map[string]bool
	forms map[*raw.StreamObj]bool
}

func (e *extraction) visitResources(res *raw.DictObj, scope string) {
	if res == nil {
		return
	}
	r := e.doc.Raw
	if fontDict, ok := r.DictEntry(res, "Font"); ok {
		for _, key := range fontDict.Keys() {
			obj, _ := fontDict.Get(key)
			e.visitFont(key, obj, scope)
		}
	}
	xobjs, ok := r.DictEntry(res, "XObject")
	if !ok {
		return
	}
	for _, key := range xobjs.Keys() {
		obj, _ := xobjs.Get(key)
		stm, ok := r.Stream(obj)
		if !ok || e.forms[stm] {
			continue
		}
		if sub, _ := r.NameEntry(stm.Dict, "Subtype"); sub != "Form" {
			continue
		}
		e.forms[stm] = true
		formRes, _ := r.DictEntry(stm.Dict, "Resources")
		e.visitResources(formRes, scope)
	}
}

func (e *extraction) visitFont(key string, obj raw.Object, scope string) {
	id := key
	defer func() {
		if rec := recover(); rec != nil {
			e.record(&ExtractedFont{Identifier: id, Type: Unknown, Err: fmt.Errorf("malformed font dictionary: %v", rec)}, scope)
		}
	}()
	res := ClassifyResource(e.doc.Raw, key, obj)
	if res.Kind == KindNotFont {
		return
	}
	id = res.Identifier(e.doc.Raw)
	if e.seen[id] {
		return
	}
	e.seen[id] = true
	e.record(e.extractOne(res, id), scope)
}

func (e *extraction) record(f *ExtractedFont, scope string) {
	e.seen[f.Identifier] = true
	e.fonts[f.Identifier] = f
	if f.Err != nil {
		e.log.Warn("font extraction failed",
			observability.String("font", f.Identifier),
			observability.String("scope", scope),
			observability.Error("error", f.Err))
		return
	}
	e.log.Debug("font found",
		observability.String("font", f.Identifier),
		observability.String("scope", scope),
		observability.String("type", string(f.Type)),
		observability.Int("bytes", len(f.Data)))
}

// extractOne tries the program sources in order: the font's own descriptor
// (FontFile2, FontFile3, FontFile), then the first descendant's descriptor.
func (e *extraction) extractOne(res Resource, id string) *ExtractedFont {
	f := &ExtractedFont{Identifier: id, Kind: res.Kind}
	var streamSubtype string
	var lastErr error
	for _, desc := range []*raw.DictObj{res.Descriptor, res.DescendantDescriptor} {
		if desc == nil || f.Data != nil {
			continue
		}
		for _, key := range fontFileKeys {
			data, sub, err := e.program(desc, key)
			if err != nil {
				lastErr = fmt.Errorf("%s: %w", key, err)
				continue
			}
			if len(data) > 0 {
				f.Data, f.Source, streamSubtype = data, key, sub
				break
			}
		}
	}
	if f.Data == nil {
		f.Err = lastErr
	}

	descendantSubtype := ""
	if res.Descendant != nil {
		descendantSubtype, _ = e.doc.Raw.NameEntry(res.Descendant, "Subtype")
	}
	candidates := []string{streamSubtype, res.Subtype, descendantSubtype}
	f.Type = Unknown
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if f.DeclaredSubtype == "" {
			f.DeclaredSubtype = c
		}
		if t := FromDeclared(c); t != Unknown {
			f.Type = t
			break
		}
	}
	if f.Type == Unknown && f.Data != nil {
		f.Type = DetectType(f.Data)
	}
	if f.Err != nil {
		f.Type = Unknown
	}
	return f
}

// program returns a decoded copy of the stream under key in desc, with the
// stream's own /Subtype.
func (e *extraction) program(desc *raw.DictObj, key string) ([]byte, string, error) {
	obj, ok := desc.Get(key)
	if !ok {
		return nil, "", nil
	}
	stm, ok := e.doc.Raw.Stream(obj)
	if !ok {
		return nil, "", fmt.Errorf("not a stream")
	}
	sub, _ := e.doc.Raw.NameEntry(stm.Dict, "Subtype")
	data, err := e.doc.Decoded.Data(e.ctx, stm)
	if err != nil {
		return nil, sub, err
	}
	return data, sub, nil
}
