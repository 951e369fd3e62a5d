package contentstream

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/geom/matrix"

	"github.com/wudi/pdfedit/ir/raw"
)

func operators(ops []Operation) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.Operator
	}
	return out
}

func TestParseOperators(t *testing.T) {
	src := []byte("q 1 0 0 1 72 700 cm BT /F1 12 Tf (Hello) Tj [(W) -120 <0041>] TJ ET Q")
	ops, err := Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []string{"q", "cm", "BT", "Tf", "Tj", "TJ", "ET", "Q"}
	if diff := cmp.Diff(want, operators(ops)); diff != "" {
		t.Fatalf("operators (-want +got):\n%s", diff)
	}
	nums, ok := ops[1].Numbers()
	if !ok || !cmp.Equal(nums, []float64{1, 0, 0, 1, 72, 700}) {
		t.Fatalf("cm operands = %v", nums)
	}
	if name, _ := ops[3].Name(0); name != "F1" {
		t.Fatalf("font operand = %q", name)
	}
	if s, _ := ops[4].Bytes(0); string(s) != "Hello" {
		t.Fatalf("Tj operand = %q", s)
	}
	arr, ok := ops[5].Operands[0].(*raw.ArrayObj)
	if !ok || arr.Len() != 3 {
		t.Fatalf("TJ array = %#v", ops[5].Operands[0])
	}
	if hex := arr.Items[2].(raw.StringObj); !hex.Hex || string(hex.Bytes) != "\x00A" {
		t.Fatalf("hex item = %#v", hex)
	}
}

func TestParseInlineImage(t *testing.T) {
	src := []byte("q BI /W 2 /H 1 /BPC 8 /CS /G ID \x00EI\xff\nEI Q")
	ops, err := Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff([]string{"q", "BI", "Q"}, operators(ops)); diff != "" {
		t.Fatalf("operators (-want +got):\n%s", diff)
	}
	img := ops[1].Inline
	if img == nil {
		t.Fatalf("inline image missing")
	}
	if string(img.Data) != "\x00EI\xff" {
		t.Fatalf("inline data = %q", img.Data)
	}
	if w, _ := img.Params.Get("W"); w.(raw.NumberObj).Int() != 2 {
		t.Fatalf("width param = %v", w)
	}
}

func TestParseInlineImageUnterminated(t *testing.T) {
	ops, err := Parse([]byte("q BI /W 1 ID abc"))
	if !errors.Is(err, ErrInlineImage) {
		t.Fatalf("expected ErrInlineImage, got %v", err)
	}
	if len(ops) != 1 || ops[0].Operator != "q" {
		t.Fatalf("operations before the failure should be kept: %v", operators(ops))
	}
}

func TestParseReturnsPartialOnError(t *testing.T) {
	ops, err := Parse([]byte("BT (unterminated Tj"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(ops) != 1 || ops[0].Operator != "BT" {
		t.Fatalf("got %v", operators(ops))
	}
}

func TestProcessorDispatchesOperators(t *testing.T) {
	ops, err := Parse([]byte("(Hello) Tj 1 g (World) ' 0 0 Td"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	p := NewProcessor()
	var shown []string
	p.Handles(func(_ context.Context, op Operation) error {
		s, _ := op.Bytes(len(op.Operands) - 1)
		shown = append(shown, string(s))
		return nil
	}, "Tj", "'")
	if err := p.Process(context.Background(), ops); err != nil {
		t.Fatalf("process: %v", err)
	}
	if diff := cmp.Diff([]string{"Hello", "World"}, shown); diff != "" {
		t.Fatalf("shown (-want +got):\n%s", diff)
	}
}

func TestProcessorStop(t *testing.T) {
	ops, _ := Parse([]byte("q q q"))
	calls := 0
	p := NewProcessor()
	p.RegisterHandler("q", HandlerFunc(func(context.Context, Operation) error {
		calls++
		if calls == 2 {
			return ErrStop
		}
		return nil
	}))
	if err := p.Process(context.Background(), ops); err != nil {
		t.Fatalf("ErrStop should not surface: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestGraphicsStateSaveRestore(t *testing.T) {
	gs := NewGraphicsState(matrix.Identity)
	gs.Save()
	gs.CTM = matrix.Translate(10, 20)
	gs.Fill = Color{Space: "DeviceRGB", Components: []float64{1, 0, 0}}
	gs.Text.FontSize = 9
	if err := gs.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if gs.CTM != matrix.Identity || gs.Text.FontSize != 0 || len(gs.Fill.Components) != 1 {
		t.Fatalf("state not restored: %+v", gs)
	}
	if err := gs.Restore(); err == nil {
		t.Fatalf("expected error on empty stack")
	}
}

func TestUnbalanced(t *testing.T) {
	ops, _ := Parse([]byte("q q Q q Q Q Q q"))
	if n := Unbalanced(ops); n != 1 {
		t.Fatalf("unbalanced = %d, want 1", n)
	}
}

func TestColorRGB(t *testing.T) {
	r, g, b := Color{Components: []float64{0, 0, 0, 1}}.RGB()
	if r != 0 || g != 0 || b != 0 {
		t.Fatalf("cmyk black = %v %v %v", r, g, b)
	}
	r, g, b = Color{Components: []float64{0.5}}.RGB()
	if r != 0.5 || g != 0.5 || b != 0.5 {
		t.Fatalf("gray = %v %v %v", r, g, b)
	}
}

func TestBuilderRoundTrip(t *testing.T) {
	b := NewBuilder().
		Save().
		SetFillRGB(1, 1, 1).
		Rectangle(100, 580.5, 160, 12).
		Fill().
		Restore().
		BeginText().
		SetFont("F 1", 12).
		SetTextMatrix(1, 0, 0, 1, 72, 700).
		ShowText([]byte{0x00, 0x2A}).
		EndText()
	got := string(b.Bytes())
	want := "q\n1 1 1 rg\n100 580.5 160 12 re\nf\nQ\nBT\n/F#201 12 Tf\n1 0 0 1 72 700 Tm\n<002A> Tj\nET\n"
	if got != want {
		t.Fatalf("builder output:\n%s\nwant:\n%s", got, want)
	}
	ops, err := Parse(b.Bytes())
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if name, _ := ops[6].Name(0); name != "F 1" {
		t.Fatalf("escaped font name did not round trip: %q", name)
	}
}

func TestBuilderAppendInlineImage(t *testing.T) {
	ops, err := Parse([]byte("BI /W 1 /H 1 ID \x01 EI"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out := NewBuilder().Append(ops[0]).Bytes()
	again, err := Parse(out)
	if err != nil {
		t.Fatalf("reparse %q: %v", out, err)
	}
	if len(again) != 1 || string(again[0].Inline.Data) != "\x01" {
		t.Fatalf("inline image did not round trip: %q", out)
	}
}
