package semantic

import (
	"context"
	"errors"
	"testing"

	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/ir/decoded"
	"github.com/wudi/pdfedit/ir/raw"
)

func buildTree(t *testing.T) (*raw.Document, *raw.DictObj, *raw.DictObj) {
	t.Helper()
	doc := raw.NewDocument()

	shared := raw.Dict()
	shared.Set("Font", raw.Dict())
	own := raw.Dict()

	p1 := raw.Dict()
	p1.Set("Type", raw.NameLiteral("Page"))
	p1.Set("Rotate", raw.NumberInt(-90))
	p2 := raw.Dict()
	p2.Set("Type", raw.NameLiteral("Page"))
	p2.Set("Resources", own)
	p2.Set("MediaBox", raw.Numbers(0, 0, 200, 100))
	p3 := raw.Dict() // no /Type and no /Kids: inferred leaf
	r1 := doc.Add(p1)
	r2 := doc.Add(p2)
	r3 := doc.Add(p3)

	inner := raw.Dict()
	inner.Set("Type", raw.NameLiteral("Pages"))
	inner.Set("Kids", raw.NewArray(r2, r3, r2)) // duplicate kid is visited once
	innerRef := doc.Add(inner)

	root := raw.Dict()
	root.Set("Type", raw.NameLiteral("Pages"))
	root.Set("Kids", raw.NewArray(r1, innerRef, raw.Ref(99, 0)))
	root.Set("MediaBox", raw.Numbers(0, 0, 595, 842))
	root.Set("Resources", shared)
	rootRef := doc.Add(root)

	cat := raw.Dict()
	cat.Set("Type", raw.NameLiteral("Catalog"))
	cat.Set("Pages", rootRef)
	doc.Trailer.Set("Root", doc.Add(cat))
	return doc, shared, own
}

func TestBuildPageTree(t *testing.T) {
	doc, shared, own := buildTree(t)
	dec, _ := decoded.NewDecoder(nil).Decode(context.Background(), doc)
	sem, err := NewBuilder().Build(context.Background(), dec)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(sem.Pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(sem.Pages))
	}
	p1, p2, p3 := sem.Pages[0], sem.Pages[1], sem.Pages[2]
	if p1.Rotate != 270 {
		t.Fatalf("rotation not normalised: %d", p1.Rotate)
	}
	if p1.MediaBox != (coords.Box{LLX: 0, LLY: 0, URX: 595, URY: 842}) || p1.CropBox != p1.MediaBox {
		t.Fatalf("inherited boxes wrong: %+v %+v", p1.MediaBox, p1.CropBox)
	}
	if p1.Resources != nil || p1.EffectiveResources() != shared {
		t.Fatalf("page 1 should inherit the shared resources")
	}
	if p2.Resources != own || p2.InheritedResources != shared || p2.EffectiveResources() != own {
		t.Fatalf("page 2 resources wrong")
	}
	if p2.MediaBox.Width() != 200 {
		t.Fatalf("own MediaBox ignored: %+v", p2.MediaBox)
	}
	if p3.Number() != 3 || p3.Ref.Num == 0 {
		t.Fatalf("inferred leaf page wrong: %+v", p3)
	}
	if len(sem.SharedResources) != 1 || sem.SharedResources[0] != shared {
		t.Fatalf("shared resources not collected: %v", sem.SharedResources)
	}
	if _, err := sem.Page(4); !errors.Is(err, ErrPageOutOfRange) {
		t.Fatalf("expected ErrPageOutOfRange, got %v", err)
	}
}

func TestContentStreamJoinsArrays(t *testing.T) {
	doc, _, _ := buildTree(t)
	a := doc.Add(raw.NewStream(raw.Dict(), []byte("BT")))
	b := doc.Add(raw.NewStream(raw.Dict(), []byte("ET")))
	page := raw.Dict()
	page.Set("Contents", raw.NewArray(a, b))

	dec, _ := decoded.NewDecoder(nil).Decode(context.Background(), doc)
	sem := &Document{Raw: doc, Decoded: dec}
	out, err := sem.ContentStream(context.Background(), &Page{Dict: page})
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	if string(out) != "BT\nET\n" {
		t.Fatalf("unexpected content %q", out)
	}
}
