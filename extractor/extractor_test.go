package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdfedit/contentstream"
	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/fonts"
	"github.com/wudi/pdfedit/internal/testpdf"
	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/ir/semantic"
)

func extract(t *testing.T, doc *semantic.Document, page int, scale float64) []TextRun {
	t.Helper()
	p, err := doc.Page(page)
	require.NoError(t, err)
	runs, err := New(doc, Options{}).ExtractLayout(context.Background(), p, scale)
	require.NoError(t, err)
	return runs
}

func TestExtractLayoutPositionsRuns(t *testing.T) {
	b := testpdf.New()
	f1 := b.TrueType("ABCDEF+Helvetica-Bold", nil, 600)
	b.AddPage("BT /F1 12 Tf 1 0 0 1 72 700 Tm (Hello) Tj ( ) Tj 0 -20 Td 1 0 0 rg [(Wo) -500 (rld)] TJ ET",
		testpdf.Fonts(map[string]raw.Object{"F1": f1}))

	runs := extract(t, b.Semantic(t), 1, 1.5)
	require.Len(t, runs, 2)

	hello := runs[0]
	assert.Equal(t, "text-1-0", hello.ID)
	assert.Equal(t, "Hello", hello.Text)
	assert.InDelta(t, 108, hello.X, 1e-9)
	assert.InDelta(t, 138, hello.Y, 1e-9)
	assert.InDelta(t, 54, hello.Width, 1e-9)
	assert.InDelta(t, 18, hello.Height, 1e-9)
	assert.InDelta(t, 18, hello.FontSize, 1e-9)
	assert.Equal(t, "ABCDEF+Helvetica-Bold", hello.FontID)
	assert.Equal(t, "Helvetica", hello.Family)
	assert.Equal(t, fonts.Style{Weight: 700, Variant: fonts.Bold}, hello.Style)
	assert.Equal(t, contentstream.Black, hello.Color)
	assert.Equal(t, coords.Rect{X: hello.X, Y: hello.Y, Width: hello.Width, Height: hello.Height}, hello.Source)
	assert.False(t, hello.Edited)

	world := runs[1]
	assert.Equal(t, "text-1-2", world.ID, "whitespace-only strings still take an index")
	assert.Equal(t, "World", world.Text)
	assert.InDelta(t, 108, world.X, 1e-9)
	assert.InDelta(t, 168, world.Y, 1e-9)
	assert.InDelta(t, 63, world.Width, 1e-9)
	assert.Equal(t, contentstream.Color{Space: "DeviceRGB", Components: []float64{1, 0, 0}}, world.Color)
}

func TestRunIDsIndependentOfScale(t *testing.T) {
	b := testpdf.New()
	b.AddPage("BT /F1 10 Tf 50 50 Td (a) Tj (  ) Tj (b) Tj ET", testpdf.Fonts(map[string]raw.Object{"F1": testpdf.Type1("Times-Roman")}))
	doc := b.Semantic(t)

	var ids [][]string
	for _, scale := range []float64{0.5, 1, 2.25} {
		var got []string
		for _, r := range extract(t, doc, 1, scale) {
			got = append(got, r.ID)
		}
		ids = append(ids, got)
	}
	assert.Equal(t, []string{"text-1-0", "text-1-2"}, ids[0])
	assert.Equal(t, ids[0], ids[1])
	assert.Equal(t, ids[0], ids[2])
}

func TestExtractLayoutFormXObjects(t *testing.T) {
	b := testpdf.New()
	formRes := testpdf.Fonts(map[string]raw.Object{"F2": testpdf.Type1("Courier")})
	formDict := raw.Dict()
	formDict.Set("Type", raw.NameLiteral("XObject"))
	formDict.Set("Subtype", raw.NameLiteral("Form"))
	formDict.Set("BBox", raw.Numbers(0, 0, 200, 200))
	formDict.Set("Matrix", raw.Numbers(1, 0, 0, 1, 100, 50))
	formDict.Set("Resources", formRes)
	form := raw.NewStream(formDict, []byte("BT /F2 10 Tf 0 0 Td (Form) Tj ET /Fm0 Do"))
	formRef := b.Doc.Add(form)
	selfRef := raw.Dict()
	selfRef.Set("Fm0", formRef)
	formRes.Set("XObject", selfRef)

	pageRes := testpdf.Fonts(map[string]raw.Object{"F1": testpdf.Type1("Helvetica")})
	xobjs := raw.Dict()
	xobjs.Set("Fm0", formRef)
	pageRes.Set("XObject", xobjs)
	b.AddPage("q 2 0 0 2 0 0 cm /Fm0 Do Q BT /F1 12 Tf 10 10 Td (After) Tj ET", pageRes)

	runs := extract(t, b.Semantic(t), 1, 1)
	require.Len(t, runs, 2, "the self-referencing form is drawn once")

	inForm := runs[0]
	assert.Equal(t, "text-1-0", inForm.ID)
	assert.Equal(t, "Form", inForm.Text)
	assert.Equal(t, "Courier", inForm.FontID)
	assert.InDelta(t, 200, inForm.X, 1e-9)
	assert.InDelta(t, 692, inForm.Y, 1e-9)
	assert.InDelta(t, 20, inForm.FontSize, 1e-9)
	assert.InDelta(t, 40, inForm.Width, 1e-9)

	after := runs[1]
	assert.Equal(t, "text-1-1", after.ID)
	assert.Equal(t, "Helvetica", after.FontID, "page resources are restored after the form")
	assert.InDelta(t, 10, after.X, 1e-9)
	assert.InDelta(t, 782, after.Y, 1e-9)
}

func TestExtractLayoutRejectsScale(t *testing.T) {
	b := testpdf.New()
	b.AddPage("BT /F1 10 Tf (x) Tj ET", nil)
	doc := b.Semantic(t)
	p, err := doc.Page(1)
	require.NoError(t, err)

	for _, scale := range []float64{0, -1} {
		_, err := New(doc, Options{}).ExtractLayout(context.Background(), p, scale)
		assert.True(t, errors.Is(err, coords.ErrInvalidScale), "scale %v", scale)
	}
}

func TestExtractLayoutTruncatedContent(t *testing.T) {
	b := testpdf.New()
	b.AddPage("BT /F1 10 Tf 72 72 Td (kept) Tj ET BT (lost", testpdf.Fonts(map[string]raw.Object{"F1": testpdf.Type1("Helvetica")}))

	runs := extract(t, b.Semantic(t), 1, 1)
	require.Len(t, runs, 1)
	assert.Equal(t, "kept", runs[0].Text)
}

func TestExtractLayoutSecondPage(t *testing.T) {
	b := testpdf.New()
	b.SharedResources(testpdf.Fonts(map[string]raw.Object{"F1": testpdf.Type1("Times-Italic")}))
	b.AddPage("BT /F1 10 Tf (one) Tj ET", nil)
	b.AddPage("BT /F1 10 Tf 3 Tr (hidden) Tj ET", nil)

	runs := extract(t, b.Semantic(t), 2, 1)
	require.Len(t, runs, 1)
	assert.Equal(t, "text-2-0", runs[0].ID)
	assert.Equal(t, "hidden", runs[0].Text, "invisible text is still editable")
	assert.Equal(t, fonts.Style{Weight: 400, Italic: true, Variant: fonts.Italic}, runs[0].Style)
}
