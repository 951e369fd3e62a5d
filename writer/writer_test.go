package writer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/parser"
)

func sampleDoc() *raw.Document {
	doc := raw.NewDocument()
	content := raw.NewStream(raw.Dict(), []byte("BT /F1 12 Tf 72 700 Td (Hi \\(there\\)) Tj ET"))
	contentRef := doc.Add(content)
	page := raw.Dict()
	page.Set("Type", raw.NameLiteral("Page"))
	page.Set("MediaBox", raw.Numbers(0, 0, 612, 792))
	page.Set("Contents", contentRef)
	pageRef := doc.Add(page)
	pages := raw.Dict()
	pages.Set("Type", raw.NameLiteral("Pages"))
	pages.Set("Kids", raw.NewArray(pageRef))
	pages.Set("Count", raw.NumberInt(1))
	pagesRef := doc.Add(pages)
	page.Set("Parent", pagesRef)
	cat := raw.Dict()
	cat.Set("Type", raw.NameLiteral("Catalog"))
	cat.Set("Pages", pagesRef)
	doc.Trailer.Set("Root", doc.Add(cat))
	return doc
}

func TestWriteRoundTrip(t *testing.T) {
	var out bytes.Buffer
	if err := New(Config{Deterministic: true}).Write(context.Background(), sampleDoc(), &out); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !bytes.HasPrefix(out.Bytes(), []byte("%PDF-1.7\n")) {
		t.Fatalf("unexpected header %q", out.Bytes()[:10])
	}
	doc, err := parser.NewDocumentParser(parser.Config{}).Parse(context.Background(), out.Bytes())
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if doc.Repaired {
		t.Fatalf("written xref needed repair")
	}
	cat, ok := doc.Catalog()
	if !ok {
		t.Fatalf("catalog missing after round trip")
	}
	pages, _ := doc.DictEntry(cat, "Pages")
	kids, _ := doc.ArrayEntry(pages, "Kids")
	page, _ := doc.Dict(kids.Items[0])
	contents, _ := page.Get("Contents")
	stm, ok := doc.Stream(contents)
	if !ok {
		t.Fatalf("contents stream missing")
	}
	if got := string(stm.Data); got != "BT /F1 12 Tf 72 700 Td (Hi \\(there\\)) Tj ET" {
		t.Fatalf("content changed: %q", got)
	}
	if arr, ok := doc.ArrayEntry(doc.Trailer, "ID"); !ok || arr.Len() != 2 {
		t.Fatalf("trailer /ID missing")
	}
}

func TestWriteDeterministic(t *testing.T) {
	var a, b bytes.Buffer
	w := New(Config{Deterministic: true})
	if err := w.Write(context.Background(), sampleDoc(), &a); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Write(context.Background(), sampleDoc(), &b); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("deterministic output differs")
	}
}

func TestWriteCompressesUnfilteredStreams(t *testing.T) {
	doc := sampleDoc()
	var out bytes.Buffer
	if err := New(Config{Compression: 9}).Write(context.Background(), doc, &out); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("/Filter /FlateDecode")) {
		t.Fatalf("expected flate filter in output")
	}
	p := parser.NewDocumentParser(parser.Config{})
	parsed, err := p.Parse(context.Background(), out.Bytes())
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	for _, ref := range parsed.Refs() {
		stm, ok := parsed.Objects[ref].(*raw.StreamObj)
		if !ok {
			continue
		}
		data, err := p.Pipeline().Decode(context.Background(), stm.Data, []string{"FlateDecode"}, nil)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !strings.HasPrefix(string(data), "BT /F1 12 Tf") {
			t.Fatalf("unexpected payload %q", data)
		}
	}
	// the source document is never mutated
	for _, o := range doc.Objects {
		if stm, ok := o.(*raw.StreamObj); ok {
			if _, has := stm.Dict.Get("Filter"); has {
				t.Fatalf("input stream dictionary was modified")
			}
		}
	}
}

func TestWriteKeepsExistingID(t *testing.T) {
	doc := sampleDoc()
	doc.Trailer.Set("ID", raw.NewArray(raw.HexStr([]byte{1, 2}), raw.HexStr([]byte{3, 4})))
	var out bytes.Buffer
	if err := New(Config{}).Write(context.Background(), doc, &out); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("/ID [<0102> <0304>]")) {
		t.Fatalf("existing /ID not preserved:\n%s", out.Bytes())
	}
}

func TestWriteFreeListForGaps(t *testing.T) {
	doc := sampleDoc()
	doc.Objects[raw.ObjectRef{Num: 9}] = raw.NumberInt(7)
	var out bytes.Buffer
	if err := New(Config{}).Write(context.Background(), doc, &out); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := out.String()
	if !strings.Contains(s, "xref\n0 10\n0000000005 65535 f \n") {
		t.Fatalf("free list head should point at object 5:\n%s", s)
	}
	if !strings.Contains(s, "0000000000 00001 f \n") {
		t.Fatalf("free list tail missing")
	}
}

func TestWriteRequiresRoot(t *testing.T) {
	doc := raw.NewDocument()
	if err := New(Config{}).Write(context.Background(), doc, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for missing /Root")
	}
}

type recordingInterceptor struct {
	before, after int
	fail          bool
}

func (r *recordingInterceptor) BeforeWrite(context.Context, raw.ObjectRef, raw.Object) error {
	r.before++
	if r.fail {
		return errors.New("stop")
	}
	return nil
}

func (r *recordingInterceptor) AfterWrite(context.Context, raw.ObjectRef, int64) error {
	r.after++
	return nil
}

func TestInterceptors(t *testing.T) {
	rec := &recordingInterceptor{}
	w := NewBuilder(Config{}).WithInterceptor(rec).Build()
	if err := w.Write(context.Background(), sampleDoc(), &bytes.Buffer{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if rec.before != 4 || rec.after != 4 {
		t.Fatalf("interceptor saw before=%d after=%d", rec.before, rec.after)
	}
	failing := &recordingInterceptor{fail: true}
	w = NewBuilder(Config{}).WithInterceptor(failing).Build()
	if err := w.Write(context.Background(), sampleDoc(), &bytes.Buffer{}); err == nil {
		t.Fatalf("expected interceptor error to abort the write")
	}
}

func TestWriteHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := New(Config{}).Write(ctx, sampleDoc(), &bytes.Buffer{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSerializeValue(t *testing.T) {
	cases := []struct {
		name string
		obj  raw.Object
		want string
	}{
		{"name escaping", raw.NameLiteral("A B#"), "/A#20B#23"},
		{"integer", raw.NumberInt(-3), "-3"},
		{"real", raw.NumberFloat(0.1 + 0.2), "0.3"},
		{"integral real", raw.NumberFloat(12), "12"},
		{"literal", raw.Str([]byte("a(b)\\\n\x01")), "(a\\(b\\)\\\\\\n\\001)"},
		{"hex", raw.HexStr([]byte{0xAB, 0x01}), "<AB01>"},
		{"ref", raw.Ref(3, 0), "3 0 R"},
		{"array", raw.NewArray(raw.Bool(true), raw.NullObj{}), "[true null]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := string(SerializeValue(tc.obj)); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	for in, want := range map[float64]string{
		0:         "0",
		-0.000001: "0",
		1.5:       "1.5",
		612:       "612",
		-3.141593: "-3.14159",
	} {
		if got := FormatNumber(in); got != want {
			t.Fatalf("FormatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}
