package editor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/wudi/pdfedit/contentstream"
	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/extractor"
	"github.com/wudi/pdfedit/fonts"
	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/metadata"
	"github.com/wudi/pdfedit/observability"
	"github.com/wudi/pdfedit/optimize"
	"github.com/wudi/pdfedit/resolver"
	"github.com/wudi/pdfedit/resources"
	"github.com/wudi/pdfedit/writer"
)

// Stage is a step of page reconstruction. Stages run strictly in order.
type Stage int

const (
	StageLoaded Stage = iota
	StageMetadataStripped
	StageRegionsMasked
	StageTextRedrawn
	StageSerialized
)

func (s Stage) String() string {
	switch s {
	case StageLoaded:
		return "loaded"
	case StageMetadataStripped:
		return "metadata-stripped"
	case StageRegionsMasked:
		return "regions-masked"
	case StageTextRedrawn:
		return "text-redrawn"
	case StageSerialized:
		return "serialized"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// reconstruction rebuilds one page on a private copy of the document.
type reconstruction struct {
	s        *Session
	stage    Stage
	doc      *raw.Document
	page     *raw.DictObj
	geom     coords.PageGeometry
	runs     []extractor.TextRun
	resolver *resolver.Resolver
	overlay  *contentstream.Builder
	out      []byte
}

func newReconstruction(s *Session, runs []extractor.TextRun) (*reconstruction, error) {
	geom, err := coords.NewPageGeometry(s.page.MediaBox, s.scale)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScale, s.scale)
	}
	doc := s.doc.Raw.Clone()
	page, ok := doc.Objects[s.page.Ref].(*raw.DictObj)
	if !ok {
		return nil, fmt.Errorf("%w: page %d has no dictionary", ErrNoPage, s.page.Number())
	}
	return &reconstruction{
		s:       s,
		doc:     doc,
		page:    page,
		geom:    geom,
		runs:    runs,
		overlay: contentstream.NewBuilder(),
	}, nil
}

func (rc *reconstruction) advance(next Stage) error {
	if next != rc.stage+1 {
		return fmt.Errorf("%w: %s after %s", ErrStage, next, rc.stage)
	}
	rc.stage = next
	return nil
}

func (rc *reconstruction) run(ctx context.Context) ([]byte, error) {
	steps := []struct {
		span string
		fn   func(context.Context) error
	}{
		{observability.SpanStripMetadata, rc.stripMetadata},
		{observability.SpanMaskRegions, rc.maskRegions},
		{observability.SpanRedrawText, rc.redrawText},
		{observability.SpanSerialize, rc.serialize},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sctx, span := rc.s.tracer.StartSpan(ctx, step.span)
		err := step.fn(sctx)
		if err != nil {
			span.SetError(err)
		}
		span.Finish()
		if err != nil {
			return nil, err
		}
	}
	return rc.out, nil
}

func (rc *reconstruction) stripMetadata(context.Context) error {
	if err := rc.advance(StageMetadataStripped); err != nil {
		return err
	}
	metadata.Strip(rc.doc, rc.s.cfg.now())
	return nil
}

// maskRegions paints one white rectangle over the original box of each run.
func (rc *reconstruction) maskRegions(context.Context) error {
	if err := rc.advance(StageRegionsMasked); err != nil {
		return err
	}
	if len(rc.runs) == 0 {
		return nil
	}
	rc.overlay.Save().SetFillGray(1)
	for _, r := range rc.runs {
		m := rc.geom.MaskRect(r.Source, rc.s.cfg.MaskMargin)
		rc.overlay.Rectangle(m.X, m.Y, m.Width, m.Height)
	}
	rc.overlay.Fill().Restore()
	return nil
}

// redrawText draws each run at its baseline in the font resolved for it.
// Runs edited to an empty string are masked and not redrawn.
func (rc *reconstruction) redrawText(ctx context.Context) error {
	if err := rc.advance(StageTextRedrawn); err != nil {
		return err
	}
	if len(rc.runs) == 0 {
		rc.resolver = resolver.New(rc.doc, rc.s.parsed, resolver.Config{Logger: rc.s.log})
		return nil
	}
	res := resources.Localize(rc.doc, rc.page, resources.CategoryFont)
	fontDict, _ := rc.doc.DictEntry(res, string(resources.CategoryFont))
	rc.resolver = resolver.New(rc.doc, rc.s.parsed, resolver.Config{Fonts: fontDict, Logger: rc.s.log})

	for _, r := range rc.runs {
		if blank(r.Text) {
			continue
		}
		h := rc.resolver.ResolveForText(r.FontID, fonts.FamilyHint(r.FontID), r.Style, r.Text)
		at := rc.geom.ToPDF(coords.Point{X: r.X, Y: r.Y})
		rc.overlay.Save().
			SetFill(redrawColor(r.Color)).
			BeginText().
			SetFont(h.ResourceName(), rc.geom.Length(r.FontSize)).
			SetTextMatrix(1, 0, 0, 1, at.X, at.Y).
			ShowText(h.Encode(r.Text)).
			EndText().
			Restore()
	}
	rc.resolver.Finish()
	rc.wrapContent(ctx)
	return nil
}

// wrapContent isolates the original content in q ... Q and appends the
// overlay. Unclosed saves in the original are balanced first.
func (rc *reconstruction) wrapContent(ctx context.Context) {
	data, err := rc.s.doc.ContentStream(ctx, rc.s.page)
	if err != nil {
		rc.s.log.Warn("page content partly unreadable", observability.Error("error", err))
	}
	ops, _ := contentstream.Parse(data)
	closing := strings.Repeat("Q\n", contentstream.Unbalanced(ops)+1)

	prefix := rc.doc.Add(raw.NewStream(raw.Dict(), []byte("q\n")))
	suffix := rc.doc.Add(raw.NewStream(raw.Dict(), append([]byte("\n"+closing), rc.overlay.Bytes()...)))

	contents := raw.NewArray(prefix)
	if existing, ok := rc.page.Get("Contents"); ok {
		if arr, isArr := rc.doc.Array(existing); isArr {
			contents.Items = append(contents.Items, arr.Items...)
		} else {
			contents.Append(existing)
		}
	}
	contents.Append(suffix)
	rc.page.Set("Contents", contents)
}

func (rc *reconstruction) serialize(ctx context.Context) error {
	if err := rc.advance(StageSerialized); err != nil {
		return err
	}
	opt := optimize.New(optimize.Config{
		PruneUnreachable:        true,
		CombineDuplicateStreams: rc.s.cfg.CombineDuplicateStreams,
	})
	st, err := opt.Optimize(ctx, rc.doc)
	if err != nil {
		return err
	}
	counter := &objectCounter{}
	w := writer.NewBuilder(writer.Config{
		Compression:   rc.s.cfg.Compression,
		Deterministic: rc.s.cfg.Deterministic,
		Logger:        rc.s.log,
	}).WithInterceptor(counter).Build()

	var buf bytes.Buffer
	if err := w.Write(ctx, rc.doc, &buf); err != nil {
		return fmt.Errorf("serialize: %w", err)
	}
	rc.s.log.Debug("reconstructed document written",
		observability.Int(observability.MetricObjectCount, counter.objects),
		observability.Int("pruned", st.Pruned),
		observability.Int("combined", st.Combined),
		observability.Int64("bytes", counter.bytes))
	rc.out = buf.Bytes()
	return nil
}

// objectCounter tallies what the writer emits.
type objectCounter struct {
	objects int
	bytes   int64
}

func (c *objectCounter) BeforeWrite(context.Context, raw.ObjectRef, raw.Object) error {
	c.objects++
	return nil
}

func (c *objectCounter) AfterWrite(_ context.Context, _ raw.ObjectRef, n int64) error {
	c.bytes += n
	return nil
}

// redrawColor keeps device colours and replaces anything that needs a
// colour space resource with black.
func redrawColor(c contentstream.Color) contentstream.Color {
	switch c.Space {
	case "DeviceGray", "DeviceRGB", "DeviceCMYK", "CalGray", "CalRGB":
		if n := len(c.Components); n == 1 || n == 3 || n == 4 {
			return c
		}
	}
	return contentstream.Black
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
