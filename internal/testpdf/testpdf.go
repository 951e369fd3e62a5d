// Package testpdf builds small documents in memory for package tests.
package testpdf

import (
	"bytes"
	"context"
	"testing"

	"github.com/wudi/pdfedit/ir/decoded"
	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/ir/semantic"
	"github.com/wudi/pdfedit/writer"
)

// Builder assembles a one-level page tree.
type Builder struct {
	Doc      *raw.Document
	pages    *raw.DictObj
	pagesRef raw.RefObj
	catalog  *raw.DictObj
}

// New starts a document whose pages default to US Letter.
func New() *Builder {
	doc := raw.NewDocument()
	pages := raw.Dict()
	pages.Set("Type", raw.NameLiteral("Pages"))
	pages.Set("Kids", raw.NewArray())
	pages.Set("Count", raw.NumberInt(0))
	pages.Set("MediaBox", raw.Numbers(0, 0, 612, 792))
	pagesRef := doc.Add(pages)
	cat := raw.Dict()
	cat.Set("Type", raw.NameLiteral("Catalog"))
	cat.Set("Pages", pagesRef)
	doc.Trailer.Set("Root", doc.Add(cat))
	return &Builder{Doc: doc, pages: pages, pagesRef: pagesRef, catalog: cat}
}

// Catalog returns the document catalog.
func (b *Builder) Catalog() *raw.DictObj { return b.catalog }

// SharedResources attaches resources to the page tree root.
func (b *Builder) SharedResources(res *raw.DictObj) { b.pages.Set("Resources", res) }

// AddPage appends a page with the given content and own resources. A nil
// resources dictionary leaves the page inheriting from the tree root.
func (b *Builder) AddPage(content string, res *raw.DictObj) *raw.DictObj {
	page := raw.Dict()
	page.Set("Type", raw.NameLiteral("Page"))
	page.Set("Parent", b.pagesRef)
	page.Set("Contents", b.Doc.Add(raw.NewStream(raw.Dict(), []byte(content))))
	if res != nil {
		page.Set("Resources", res)
	}
	kids, _ := b.Doc.ArrayEntry(b.pages, "Kids")
	kids.Append(b.Doc.Add(page))
	b.pages.Set("Count", raw.NumberInt(int64(kids.Len())))
	return page
}

// Fonts wraps font entries into a resources dictionary.
func Fonts(entries map[string]raw.Object) *raw.DictObj {
	fonts := raw.Dict()
	for k, v := range entries {
		fonts.Set(k, v)
	}
	res := raw.Dict()
	res.Set("Font", fonts)
	return res
}

// Type1 returns a simple standard font dictionary.
func Type1(base string) *raw.DictObj {
	d := raw.Dict()
	d.Set("Type", raw.NameLiteral("Font"))
	d.Set("Subtype", raw.NameLiteral("Type1"))
	d.Set("BaseFont", raw.NameLiteral(base))
	return d
}

// TrueType adds a simple TrueType font embedding program under /FontFile2.
// Widths cover codes 32..126 with a constant width.
func (b *Builder) TrueType(base string, program []byte, width float64) raw.RefObj {
	desc := raw.Dict()
	desc.Set("Type", raw.NameLiteral("FontDescriptor"))
	desc.Set("FontName", raw.NameLiteral(base))
	desc.Set("Flags", raw.NumberInt(32))
	desc.Set("FontBBox", raw.Numbers(-200, -250, 1200, 950))
	desc.Set("ItalicAngle", raw.NumberInt(0))
	desc.Set("Ascent", raw.NumberInt(900))
	desc.Set("Descent", raw.NumberInt(-200))
	desc.Set("CapHeight", raw.NumberInt(700))
	desc.Set("StemV", raw.NumberInt(80))
	if program != nil {
		file := raw.Dict()
		file.Set("Length1", raw.NumberInt(int64(len(program))))
		desc.Set("FontFile2", b.Doc.Add(raw.NewStream(file, program)))
	}
	widths := raw.NewArray()
	for c := 32; c <= 126; c++ {
		widths.Append(raw.NumberFloat(width))
	}
	font := raw.Dict()
	font.Set("Type", raw.NameLiteral("Font"))
	font.Set("Subtype", raw.NameLiteral("TrueType"))
	font.Set("BaseFont", raw.NameLiteral(base))
	font.Set("FirstChar", raw.NumberInt(32))
	font.Set("LastChar", raw.NumberInt(126))
	font.Set("Widths", widths)
	font.Set("Encoding", raw.NameLiteral("WinAnsiEncoding"))
	font.Set("FontDescriptor", b.Doc.Add(desc))
	return b.Doc.Add(font)
}

// Semantic builds the page model directly from the raw objects.
func (b *Builder) Semantic(t testing.TB) *semantic.Document {
	t.Helper()
	dec, err := decoded.NewDecoder(nil).Decode(context.Background(), b.Doc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	doc, err := semantic.NewBuilder().Build(context.Background(), dec)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return doc
}

// Bytes serializes the document.
func (b *Builder) Bytes(t testing.TB) []byte {
	t.Helper()
	var out bytes.Buffer
	if err := writer.New(writer.Config{Deterministic: true}).Write(context.Background(), b.Doc, &out); err != nil {
		t.Fatalf("write: %v", err)
	}
	return out.Bytes()
}
