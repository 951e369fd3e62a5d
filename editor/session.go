// Package editor opens a PDF, exposes the text runs of one page for editing
// and writes a scrubbed copy with the edits redrawn in the original fonts.
package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/extractor"
	"github.com/wudi/pdfedit/fonts"
	"github.com/wudi/pdfedit/ir"
	"github.com/wudi/pdfedit/ir/semantic"
	"github.com/wudi/pdfedit/observability"
	"github.com/wudi/pdfedit/resolver"
)

// Edit replaces the text of one run. A non-nil Origin moves the redrawn
// text to a new device position; the masked area stays where the run was.
type Edit struct {
	RunID  string `validate:"required"`
	Text   string
	Origin *coords.Point
}

// Result is the outcome of a save.
type Result struct {
	PDF   []byte
	Fonts resolver.Summary
	Runs  int
}

// Session holds one loaded document and the runs of its active page.
type Session struct {
	cfg      Config
	log      observability.Logger
	tracer   observability.Tracer
	validate *validator.Validate

	doc       *semantic.Document
	fonts     fonts.FontMap
	parsed    map[string]*fonts.ParsedFont
	extractor *extractor.Extractor

	page  *semantic.Page
	scale float64
	runs  []extractor.TextRun
	index map[string]int
}

// Open loads data and prepares every embedded font before any page can be
// edited. A nil cfg uses NewDefaultConfig.
func Open(ctx context.Context, data []byte, cfg *Config) (*Session, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	s := &Session{
		cfg:      *cfg,
		log:      cfg.logger(),
		tracer:   cfg.tracer(),
		validate: validator.New(),
	}

	doc, err := ir.New(ir.Options{Parser: cfg.parserConfig(), Tracer: s.tracer}).Parse(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	s.doc = doc

	fctx, span := s.tracer.StartSpan(ctx, observability.SpanFontExtract)
	s.fonts = fonts.Extract(fctx, doc, s.log)
	span.SetTag(observability.MetricFontsFound, len(s.fonts))
	span.Finish()

	pctx, span := s.tracer.StartSpan(ctx, observability.SpanFontParse)
	s.parsed = fonts.ParseAll(pctx, s.fonts.Sorted(), cfg.MaxParseWorkers, s.log)
	span.SetTag(observability.MetricFontsValid, len(s.parsed))
	span.Finish()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.extractor = extractor.New(doc, extractor.Options{Logger: s.log, Tracer: s.tracer})
	s.log.Info("document opened",
		observability.Int(observability.MetricPageCount, len(doc.Pages)),
		observability.String("fonts", fonts.Summarize(s.fonts).String()),
		observability.Int(observability.MetricFontsValid, len(s.parsed)))
	return s, nil
}

func (s *Session) PageCount() int { return len(s.doc.Pages) }

// Fonts returns every font found in the document, embeddable or not.
func (s *Session) Fonts() fonts.FontMap { return s.fonts }

// ParsedFonts returns the fonts that validated and can be re-embedded.
func (s *Session) ParsedFonts() map[string]*fonts.ParsedFont { return s.parsed }

// Document returns the loaded page model.
func (s *Session) Document() *semantic.Document { return s.doc }

// Page makes page n (1-based) the active page and returns its runs at scale.
// Rendering the active page again at another scale keeps pending edits and
// rescales moved origins.
func (s *Session) Page(ctx context.Context, n int, scale float64) ([]extractor.TextRun, error) {
	page, err := s.doc.Page(n)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoPage, err)
	}
	runs, err := s.extractor.ExtractLayout(ctx, page, scale)
	if err != nil {
		if errors.Is(err, coords.ErrInvalidScale) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidScale, scale)
		}
		return nil, err
	}
	if s.page == page {
		s.carryEdits(runs, scale/s.scale)
	}
	s.page, s.scale, s.runs = page, scale, runs
	s.index = make(map[string]int, len(runs))
	for i, r := range runs {
		s.index[r.ID] = i
	}
	return s.Runs(), nil
}

func (s *Session) carryEdits(runs []extractor.TextRun, ratio float64) {
	for i := range runs {
		j, ok := s.index[runs[i].ID]
		if !ok || !s.runs[j].Edited {
			continue
		}
		old := s.runs[j]
		runs[i].Text = old.Text
		runs[i].Edited = true
		if old.X != old.Source.X || old.Y != old.Source.Y {
			runs[i].X, runs[i].Y = old.X*ratio, old.Y*ratio
		}
	}
}

// Runs returns a copy of the active page's runs.
func (s *Session) Runs() []extractor.TextRun {
	return append([]extractor.TextRun(nil), s.runs...)
}

// Apply records edits against the active page. Either every edit applies
// or none does.
func (s *Session) Apply(edits []Edit) error {
	if s.page == nil {
		return fmt.Errorf("%w: no active page", ErrNoPage)
	}
	for _, e := range edits {
		if err := s.validate.Struct(e); err != nil {
			return fmt.Errorf("invalid edit: %w", err)
		}
		if _, ok := s.index[e.RunID]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownRun, e.RunID)
		}
	}
	for _, e := range edits {
		r := &s.runs[s.index[e.RunID]]
		r.Text = e.Text
		r.Edited = true
		if e.Origin != nil {
			r.X, r.Y = e.Origin.X, e.Origin.Y
		}
	}
	return nil
}

// Save writes a new document with the active page reconstructed. The loaded
// document is left untouched, so Save may be called repeatedly.
func (s *Session) Save(ctx context.Context) (*Result, error) {
	if s.page == nil {
		return nil, fmt.Errorf("%w: no active page", ErrNoPage)
	}
	var runs []extractor.TextRun
	for _, r := range s.runs {
		if s.cfg.SaveScope == ScopeEdited && !r.Edited {
			continue
		}
		runs = append(runs, r)
	}
	rc, err := newReconstruction(s, runs)
	if err != nil {
		return nil, err
	}
	out, err := rc.run(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Info("document saved",
		observability.Int("page", s.page.Number()),
		observability.Int("runs", len(runs)),
		observability.Int("bytes", len(out)),
		observability.Int("fonts_embedded", rc.resolver.Summary().Extracted),
		observability.Int(observability.MetricFallbackFonts, rc.resolver.Summary().StandardFallback))
	return &Result{PDF: out, Fonts: rc.resolver.Summary(), Runs: len(runs)}, nil
}
