// Package extractor turns page content streams into positioned text runs in
// device space.
package extractor

import (
	"context"
	"fmt"
	"strings"

	"seehuhn.de/go/geom/matrix"

	"github.com/wudi/pdfedit/contentstream"
	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/fonts"
	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/ir/semantic"
	"github.com/wudi/pdfedit/observability"
)

// TextRun is one shown string placed on the rendered page. X and Y are the
// baseline origin in device pixels, Y growing downwards.
type TextRun struct {
	ID        string              `json:"id"`
	Text      string              `json:"text"`
	X         float64             `json:"x"`
	Y         float64             `json:"y"`
	Width     float64             `json:"width"`
	Height    float64             `json:"height"`
	FontSize  float64             `json:"fontSize"`
	FontID    string              `json:"fontId"`
	Family    string              `json:"family"`
	Style     fonts.Style         `json:"style"`
	Transform [6]float64          `json:"transform"`
	Color     contentstream.Color `json:"color"`
	// Source is the device box the run occupied when extracted. Edits never
	// move it; it is what gets masked on save.
	Source coords.Rect `json:"source"`
	Edited bool        `json:"edited,omitempty"`
}

// Options configures an Extractor.
type Options struct {
	Logger observability.Logger
	Tracer observability.Tracer
	// MaxFormDepth bounds nested Form XObjects. Defaults to 16.
	MaxFormDepth int
}

// Extractor reads text layout from the pages of one document. Font data is
// cached between pages. It is not safe for concurrent use.
type Extractor struct {
	doc    *semantic.Document
	opts   Options
	log    observability.Logger
	tracer observability.Tracer
	fonts  map[*raw.DictObj]*fonts.FontInfo
}

// New creates an extractor for doc.
func New(doc *semantic.Document, opts Options) *Extractor {
	if opts.MaxFormDepth <= 0 {
		opts.MaxFormDepth = 16
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	return &Extractor{
		doc:    doc,
		opts:   opts,
		log:    observability.OrNop(opts.Logger),
		tracer: tracer,
		fonts:  make(map[*raw.DictObj]*fonts.FontInfo),
	}
}

// ExtractLayout returns the text runs of page at the given render scale.
// Whitespace-only strings produce no run but still take an index, so run IDs
// do not depend on the scale. Malformed content is logged and yields the
// runs found before the damage.
func (e *Extractor) ExtractLayout(ctx context.Context, page *semantic.Page, scale float64) ([]TextRun, error) {
	ctx, span := e.tracer.StartSpan(ctx, observability.SpanLayout)
	defer span.Finish()

	geom, err := coords.NewPageGeometry(page.MediaBox, scale)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	data, err := e.doc.ContentStream(ctx, page)
	if err != nil {
		e.log.Warn("page content partly unreadable",
			observability.Int("page", page.Number()),
			observability.Error("error", err))
	}
	l := &layout{
		e:       e,
		geom:    geom,
		page:    page.Number(),
		gs:      contentstream.NewGraphicsState(matrix.Identity),
		tm:      matrix.Identity,
		tlm:     matrix.Identity,
		res:     page.EffectiveResources(),
		visited: make(map[*raw.StreamObj]bool),
	}
	if err := l.run(ctx, data); err != nil {
		span.SetError(err)
		return nil, err
	}
	span.SetTag("runs", len(l.runs))
	e.log.Debug("layout extracted",
		observability.Int("page", page.Number()),
		observability.Int("items", l.items),
		observability.Int("runs", len(l.runs)))
	return l.runs, nil
}

// run interprets one content stream in the current resource scope.
func (l *layout) run(ctx context.Context, data []byte) error {
	ops, err := contentstream.Parse(data)
	if err != nil {
		l.e.log.Warn("content stream truncated",
			observability.Int("page", l.page),
			observability.Int("operations", len(ops)),
			observability.Error("error", err))
	}
	return l.processor().Process(ctx, ops)
}

func runID(page, index int) string { return fmt.Sprintf("text-%d-%d", page, index) }

func blank(s string) bool { return strings.TrimSpace(s) == "" }
