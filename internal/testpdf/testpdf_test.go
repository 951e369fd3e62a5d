package testpdf

import (
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

func TestTrueTypeProgramDeclaresLength1(t *testing.T) {
	b := New()
	ref := b.TrueType("GoRegular", goregular.TTF, 600)
	font, ok := b.Doc.Dict(ref)
	if !ok {
		t.Fatalf("font dictionary missing")
	}
	desc, ok := b.Doc.DictEntry(font, "FontDescriptor")
	if !ok {
		t.Fatalf("font descriptor missing")
	}
	fileObj, ok := desc.Get("FontFile2")
	if !ok {
		t.Fatalf("FontFile2 missing")
	}
	file, ok := b.Doc.Stream(fileObj)
	if !ok {
		t.Fatalf("FontFile2 is not a stream")
	}
	n, ok := b.Doc.NumberEntry(file.Dict, "Length1")
	if !ok || int(n) != len(goregular.TTF) {
		t.Fatalf("Length1 = %v (%v), want %d", n, ok, len(goregular.TTF))
	}
}
