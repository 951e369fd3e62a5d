package fonts

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleCMap = `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CMapName /Sample def
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
2 beginbfchar
<0003> <0020>
<0024> <0041>
endbfchar
1 beginbfrange
<0044> <0046> <0061>
endbfrange
1 beginbfrange
<0050> <0051> [<00660066> <0066006C>]
endbfrange
1 beginbfchar
<0060> /eacute
endbfchar
endcmap
CMapName currentdict /CMap defineresource pop
end
end
`

func TestParseCMap(t *testing.T) {
	cm, err := ParseCMap([]byte(sampleCMap))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	tests := []struct {
		code []byte
		want string
		ok   bool
	}{
		{[]byte{0x00, 0x03}, " ", true},
		{[]byte{0x00, 0x24}, "A", true},
		{[]byte{0x00, 0x44}, "a", true},
		{[]byte{0x00, 0x46}, "c", true},
		{[]byte{0x00, 0x50}, "ff", true},
		{[]byte{0x00, 0x51}, "fl", true},
		{[]byte{0x00, 0x60}, "é", true},
		{[]byte{0x00, 0x47}, "", false},
		{[]byte{0x44}, "", false},
	}
	for _, tc := range tests {
		got, ok := cm.Lookup(tc.code)
		if got != tc.want || ok != tc.ok {
			t.Errorf("Lookup(% X) = %q %v, want %q %v", tc.code, got, ok, tc.want, tc.ok)
		}
	}
	if n := cm.CodeLength([]byte{0x00, 0x03, 0x00}, 1); n != 2 {
		t.Fatalf("code length %d, want 2", n)
	}
}

func TestCMapNilSafe(t *testing.T) {
	var cm *CMap
	if _, ok := cm.Lookup([]byte{1}); ok {
		t.Fatalf("nil cmap resolved a code")
	}
	if n := cm.CodeLength([]byte{1, 2, 3}, 2); n != 2 {
		t.Fatalf("default length ignored: %d", n)
	}
	if n := cm.CodeLength([]byte{1}, 2); n != 1 {
		t.Fatalf("length must not exceed data: %d", n)
	}
}

func TestBuildToUnicodeRoundTrip(t *testing.T) {
	mapping := map[uint16][]rune{
		3:   {'H'},
		7:   {'f', 'i'},
		300: {'😀'},
	}
	for i := 0; i < 150; i++ {
		mapping[uint16(1000+i)] = []rune{rune('a' + i%26)}
	}
	stm := BuildToUnicode("Go Regular", mapping)
	cm, err := ParseCMap(stm.Data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := make(map[uint16][]rune)
	for code := range mapping {
		s, ok := cm.Lookup([]byte{byte(code >> 8), byte(code)})
		if !ok {
			t.Fatalf("code %d missing", code)
		}
		got[code] = []rune(s)
	}
	if diff := cmp.Diff(mapping, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeUTF16BE(t *testing.T) {
	tests := []struct{ in, want string }{
		{"\x00H\x00i", "Hi"},
		{"\xd8\x3d\xde\x00", "😀"},
		{"\x00A\x00", "A"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := DecodeUTF16BE([]byte(tc.in)); got != tc.want {
			t.Errorf("DecodeUTF16BE(% X) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
