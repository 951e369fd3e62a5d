package fonts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/wudi/pdfedit/internal/testpdf"
	"github.com/wudi/pdfedit/ir/raw"
)

// compositeFont builds a Type0 font whose program hangs off the descendant.
func compositeFont(b *testpdf.Builder, base string, program []byte) raw.RefObj {
	desc := raw.Dict()
	desc.Set("Type", raw.NameLiteral("FontDescriptor"))
	desc.Set("FontName", raw.NameLiteral(base))
	desc.Set("FontFile2", b.Doc.Add(raw.NewStream(raw.Dict(), program)))
	cid := raw.Dict()
	cid.Set("Type", raw.NameLiteral("Font"))
	cid.Set("Subtype", raw.NameLiteral("CIDFontType2"))
	cid.Set("BaseFont", raw.NameLiteral(base))
	cid.Set("FontDescriptor", b.Doc.Add(desc))
	font := raw.Dict()
	font.Set("Type", raw.NameLiteral("Font"))
	font.Set("Subtype", raw.NameLiteral("Type0"))
	font.Set("BaseFont", raw.NameLiteral(base))
	font.Set("Encoding", raw.NameLiteral("Identity-H"))
	font.Set("DescendantFonts", raw.NewArray(b.Doc.Add(cid)))
	return b.Doc.Add(font)
}

func extractionFixture(t *testing.T) *testpdf.Builder {
	t.Helper()
	b := testpdf.New()
	b.SharedResources(testpdf.Fonts(map[string]raw.Object{
		"F3": b.Doc.Add(testpdf.Type1("ABCDEF+Times-Roman")),
	}))

	formRes := testpdf.Fonts(map[string]raw.Object{"F2": compositeFont(b, "GoBold", gobold.TTF)})
	form := raw.NewStream(raw.Dict(), []byte("BT /F2 10 Tf (x) Tj ET"))
	form.Dict.Set("Subtype", raw.NameLiteral("Form"))
	form.Dict.Set("Resources", formRes)
	res := testpdf.Fonts(map[string]raw.Object{"F1": b.TrueType("GoRegular", goregular.TTF, 500)})
	xobjs := raw.Dict()
	xobjs.Set("Fm1", b.Doc.Add(form))
	res.Set("XObject", xobjs)
	b.AddPage("/Fm1 Do", res)

	broken := testpdf.Type1("Broken")
	brokenDesc := raw.Dict()
	brokenDesc.Set("FontFile2", raw.NumberInt(7))
	broken.Set("FontDescriptor", brokenDesc)
	b.AddPage("", testpdf.Fonts(map[string]raw.Object{
		"F1": b.TrueType("GoRegular", goregular.TTF, 500),
		"F4": b.Doc.Add(broken),
		"X":  raw.NumberInt(1),
	}))
	return b
}

func TestExtract(t *testing.T) {
	doc := extractionFixture(t).Semantic(t)
	got := Extract(context.Background(), doc, nil)

	require.Len(t, got, 4)
	assert.Equal(t, []string{"ABCDEF+Times-Roman", "Broken", "GoBold", "GoRegular"}, identifiers(got))

	reg := got["GoRegular"]
	assert.Equal(t, TrueType, reg.Type)
	assert.Equal(t, "TrueType", reg.DeclaredSubtype)
	assert.Equal(t, "FontFile2", reg.Source)
	assert.Equal(t, goregular.TTF, reg.Data)
	assert.NoError(t, reg.Err)

	bold := got["GoBold"]
	assert.Equal(t, KindComposite, bold.Kind)
	assert.Equal(t, TrueType, bold.Type, "sniffed from the descendant's program")
	assert.Len(t, bold.Data, len(gobold.TTF))

	times := got["ABCDEF+Times-Roman"]
	assert.Nil(t, times.Data)
	assert.Equal(t, Type1, times.Type)
	assert.NoError(t, times.Err)

	brk := got["Broken"]
	assert.Error(t, brk.Err)
	assert.Nil(t, brk.Data)
	assert.Equal(t, Unknown, brk.Type)

	s := Summarize(got)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Embeddable)
	assert.Equal(t, 2, s.ByType[TrueType])
	assert.Equal(t, "total=4 embeddable=2 types=[TrueType=2 Type1=1 Unknown=1]", s.String())
}

func TestExtractCopiesProgramBytes(t *testing.T) {
	b := testpdf.New()
	program := append([]byte(nil), goregular.TTF...)
	b.AddPage("", testpdf.Fonts(map[string]raw.Object{"F1": b.TrueType("GoRegular", program, 500)}))
	got := Extract(context.Background(), b.Semantic(t), nil)
	require.Contains(t, got, "GoRegular")
	got["GoRegular"].Data[0] = 0xFF
	assert.Equal(t, byte(0x00), program[0])
}

func TestExtractSharedOnlyOnFirstPage(t *testing.T) {
	b := testpdf.New()
	b.AddPage("", testpdf.Fonts(map[string]raw.Object{"F1": b.Doc.Add(testpdf.Type1("Helvetica"))}))
	b.AddPage("", nil)
	b.SharedResources(testpdf.Fonts(map[string]raw.Object{"F2": b.Doc.Add(testpdf.Type1("Courier"))}))
	got := Extract(context.Background(), b.Semantic(t), nil)
	assert.Equal(t, []string{"Courier", "Helvetica"}, identifiers(got))
}

func TestIdentifierFallbacks(t *testing.T) {
	doc := raw.NewDocument()
	desc := raw.Dict()
	desc.Set("FontName", raw.NameLiteral("FromDescriptor"))
	noBase := raw.Dict()
	noBase.Set("Type", raw.NameLiteral("Font"))
	noBase.Set("FontDescriptor", desc)
	bare := raw.Dict()
	bare.Set("Type", raw.NameLiteral("Font"))

	assert.Equal(t, "Helvetica", Identifier(doc, "F1", testpdf.Type1("Helvetica")))
	assert.Equal(t, "FromDescriptor", Identifier(doc, "F2", noBase))
	assert.Equal(t, "F3", Identifier(doc, "F3", bare))
	assert.Equal(t, KindNotFont, ClassifyResource(doc, "X", raw.Dict()).Kind)
}

func identifiers(m FontMap) []string {
	var out []string
	for _, f := range m.Sorted() {
		out = append(out, f.Identifier)
	}
	return out
}
