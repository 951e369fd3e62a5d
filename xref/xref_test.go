package xref

import (
	"testing"

	"github.com/wudi/pdfedit/ir/raw"
)

const classic = "%PDF-1.4\n" +
	"1 0 obj\n<< /Type /Catalog >>\nendobj\n" +
	"xref\n0 2\n0000000000 65535 f \n0000000009 00000 n \n" +
	"trailer\n<< /Size 2 /Root 1 0 R >>\nstartxref\n45\n%%EOF\n"

func TestFindStartXRef(t *testing.T) {
	off, err := FindStartXRef([]byte(classic))
	if err != nil {
		t.Fatalf("find startxref: %v", err)
	}
	if off != 45 {
		t.Fatalf("startxref = %d, want 45", off)
	}
	if !IsClassic([]byte(classic), off) {
		t.Fatalf("expected classic table at %d", off)
	}
}

func TestFindStartXRefMissing(t *testing.T) {
	if _, err := FindStartXRef([]byte("%PDF-1.4\n")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseClassic(t *testing.T) {
	entries, trailerPos, err := ParseClassic([]byte(classic), 45)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if e := entries[1]; e.Type != EntryInUse || e.Offset != 9 {
		t.Fatalf("unexpected entry 1: %+v", e)
	}
	if e := entries[0]; e.Type != EntryFree {
		t.Fatalf("unexpected entry 0: %+v", e)
	}
	if classic[trailerPos-7:trailerPos] != "trailer" {
		t.Fatalf("trailer position %d does not follow the keyword", trailerPos)
	}
}

func TestDecodeStream(t *testing.T) {
	dict := raw.Dict()
	dict.Set("W", raw.NewArray(raw.NumberInt(1), raw.NumberInt(2), raw.NumberInt(1)))
	dict.Set("Index", raw.NewArray(raw.NumberInt(3), raw.NumberInt(3)))
	data := []byte{
		0, 0x00, 0x00, 0xFF,
		1, 0x01, 0x10, 0,
		2, 0x00, 0x07, 4,
	}
	entries, err := DecodeStream(dict, data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e := entries[3]; e.Type != EntryFree || e.Gen != 255 {
		t.Fatalf("unexpected entry 3: %+v", e)
	}
	if e := entries[4]; e.Type != EntryInUse || e.Offset != 0x110 {
		t.Fatalf("unexpected entry 4: %+v", e)
	}
	if e := entries[5]; e.Type != EntryCompressed || e.StreamNum != 7 || e.Index != 4 {
		t.Fatalf("unexpected entry 5: %+v", e)
	}
}

func TestDecodeStreamDefaultType(t *testing.T) {
	dict := raw.Dict()
	dict.Set("W", raw.NewArray(raw.NumberInt(0), raw.NumberInt(1), raw.NumberInt(0)))
	dict.Set("Size", raw.NumberInt(1))
	entries, err := DecodeStream(dict, []byte{42})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e := entries[0]; e.Type != EntryInUse || e.Offset != 42 {
		t.Fatalf("missing type field should default to in-use: %+v", e)
	}
}

func TestTableNewerWins(t *testing.T) {
	tbl := NewTable()
	tbl.AddOlder(map[int]Entry{1: {Type: EntryInUse, Offset: 100}})
	tbl.AddOlder(map[int]Entry{1: {Type: EntryInUse, Offset: 10}, 2: {Type: EntryInUse, Offset: 20}})
	if tbl.Entries[1].Offset != 100 {
		t.Fatalf("older section overrode newer entry: %+v", tbl.Entries[1])
	}
	if tbl.Entries[2].Offset != 20 {
		t.Fatalf("older-only entry missing")
	}

	newer := raw.Dict()
	newer.Set("Size", raw.NumberInt(3))
	older := raw.Dict()
	older.Set("Size", raw.NumberInt(2))
	older.Set("Info", raw.Ref(9, 0))
	tbl.AddOlderTrailer(newer)
	tbl.AddOlderTrailer(older)
	if v, _ := tbl.Trailer.Get("Size"); v.(raw.NumberObj).Int() != 3 {
		t.Fatalf("trailer Size overwritten by older section")
	}
	if _, ok := tbl.Trailer.Get("Info"); !ok {
		t.Fatalf("older trailer key not inherited")
	}
}

func TestScan(t *testing.T) {
	data := []byte("%PDF-1.4\n1 0 obj\n<< >>\nendobj\n12 3 obj (x) endobj\n1 0 obj\n(newer)\nendobj\ntrailer << /Root 1 0 R >>")
	entries, trailers := Scan(data)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	if e := entries[12]; e.Gen != 3 || string(data[e.Offset:e.Offset+8]) != "12 3 obj" {
		t.Fatalf("unexpected entry 12: %+v", e)
	}
	if e := entries[1]; string(data[e.Offset:e.Offset+7]) != "1 0 obj" || e.Offset < 40 {
		t.Fatalf("later definition of object 1 should win: %+v", e)
	}
	if len(trailers) != 1 {
		t.Fatalf("expected one trailer, got %v", trailers)
	}
}
