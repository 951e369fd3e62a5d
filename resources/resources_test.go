package resources

import (
	"errors"
	"testing"

	"github.com/wudi/pdfedit/ir/raw"
)

func tree() (*raw.Document, *raw.DictObj, *raw.DictObj) {
	doc := raw.NewDocument()
	font := doc.Add(raw.Dict())
	fonts := raw.Dict()
	fonts.Set("F1", font)
	shared := raw.Dict()
	shared.Set("Font", doc.Add(fonts))

	root := raw.Dict()
	root.Set("Resources", doc.Add(shared))
	rootRef := doc.Add(root)
	mid := raw.Dict()
	mid.Set("Parent", rootRef)
	page := raw.Dict()
	page.Set("Parent", doc.Add(mid))
	doc.Add(page)
	return doc, page, shared
}

func TestResolveWithInheritance(t *testing.T) {
	doc, page, shared := tree()
	if got := Inherited(doc, page); got != shared {
		t.Fatalf("inherited resources = %v, want the root's", got)
	}
	if _, err := Resolve(doc, page, CategoryFont, "F1"); err != nil {
		t.Fatalf("resolve F1: %v", err)
	}
	if _, err := Resolve(doc, page, CategoryXObject, "F1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	own := raw.Dict()
	page.Set("Resources", own)
	if _, err := Resolve(doc, page, CategoryFont, "F1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("own resources must hide inherited ones, got %v", err)
	}
}

func TestInheritedStopsOnCycles(t *testing.T) {
	doc := raw.NewDocument()
	a := raw.Dict()
	aRef := doc.Add(a)
	b := raw.Dict()
	b.Set("Parent", aRef)
	a.Set("Parent", doc.Add(b))
	if got := Inherited(doc, a); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestLocalizeKeepsSharedResourcesIntact(t *testing.T) {
	doc, page, shared := tree()
	res := Localize(doc, page, CategoryFont)
	fonts, ok := doc.DictEntry(res, "Font")
	if !ok {
		t.Fatal("localized resources lost /Font")
	}
	fonts.Set("PEF1", raw.Ref(99, 0))

	sharedFonts, _ := doc.DictEntry(shared, "Font")
	if _, leaked := sharedFonts.Get("PEF1"); leaked {
		t.Fatal("new font leaked into shared resources")
	}
	if _, ok := fonts.Get("F1"); !ok {
		t.Fatal("inherited font missing from the copy")
	}
	if got := Inherited(doc, page); got != res {
		t.Fatal("page does not use its localized resources")
	}

	empty := raw.Dict()
	res = Localize(doc, empty, CategoryFont)
	if f, ok := doc.DictEntry(res, "Font"); !ok || f.Len() != 0 {
		t.Fatalf("expected an empty font dictionary, got %v", f)
	}
}
