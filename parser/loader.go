package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/wudi/pdfedit/filters"
	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/observability"
	"github.com/wudi/pdfedit/recovery"
	"github.com/wudi/pdfedit/scanner"
	"github.com/wudi/pdfedit/xref"
)

type loader struct {
	ctx      context.Context
	data     []byte
	pipeline *filters.Pipeline
	strategy recovery.Strategy
	log      observability.Logger
	maxDepth int

	table   *xref.Table
	doc     *raw.Document
	loading map[int]bool
	objStms map[int]map[int]raw.Object
}

func (l *loader) run() error {
	table, err := l.readXRef()
	if err == nil && !hasRoot(table.Trailer) {
		err = errors.New("trailer has no /Root")
	}
	if err != nil {
		if l.onError(err, recovery.Location{Component: "xref"}) == recovery.ActionFail {
			return fmt.Errorf("resolve xref: %w", err)
		}
		table = l.repairTable(table)
	}
	l.table = table
	l.doc.Trailer = table.Trailer

	nums := make([]int, 0, len(table.Entries))
	for num := range table.Entries {
		nums = append(nums, num)
	}
	sort.Ints(nums)
	for _, num := range nums {
		if err := l.ctx.Err(); err != nil {
			return err
		}
		if _, err := l.load(num); err != nil {
			e := table.Entries[num]
			loc := recovery.Location{ByteOffset: e.Offset, ObjectNum: num, ObjectGen: e.Gen, Component: "object"}
			if l.onError(err, loc) == recovery.ActionFail {
				return fmt.Errorf("load object %d: %w", num, err)
			}
		}
	}
	if l.doc.Repaired {
		l.expandObjectStreams()
	}
	l.dropStructuralStreams()
	return nil
}

func (l *loader) onError(err error, loc recovery.Location) recovery.Action {
	return l.strategy.OnError(l.ctx, err, loc)
}

func hasRoot(trailer *raw.DictObj) bool {
	_, ok := trailer.Get("Root")
	return ok
}

// readXRef follows the startxref pointer and the /Prev chain.
func (l *loader) readXRef() (*xref.Table, error) {
	off, err := xref.FindStartXRef(l.data)
	if err != nil {
		return nil, err
	}
	table := xref.NewTable()
	visited := make(map[int64]bool)
	for depth := 0; ; depth++ {
		if depth >= l.maxDepth {
			return nil, errors.New("xref chain too long")
		}
		if visited[off] {
			break
		}
		visited[off] = true

		entries, trailer, err := l.readSection(off)
		if err != nil {
			return nil, fmt.Errorf("xref section at %d: %w", off, err)
		}
		table.AddOlder(entries)
		table.AddOlderTrailer(trailer)

		prev, ok := trailer.Get("Prev")
		if !ok {
			break
		}
		n, ok := prev.(raw.NumberObj)
		if !ok || n.Int() < 0 || n.Int() >= int64(len(l.data)) {
			return nil, errors.New("invalid /Prev offset")
		}
		off = n.Int()
	}
	if table.Trailer == nil {
		return nil, errors.New("no trailer found")
	}
	return table, nil
}

func (l *loader) readSection(off int64) (map[int]xref.Entry, *raw.DictObj, error) {
	if xref.IsClassic(l.data, off) {
		entries, tpos, err := xref.ParseClassic(l.data, off)
		if err != nil {
			return nil, nil, err
		}
		trailer, err := l.dictAt(tpos)
		if err != nil {
			return nil, nil, fmt.Errorf("trailer: %w", err)
		}
		// hybrid files keep compressed objects in a side xref stream
		if xs, ok := trailer.Get("XRefStm"); ok {
			if n, ok := xs.(raw.NumberObj); ok {
				if streamEntries, _, err := l.streamSection(n.Int()); err == nil {
					for num, e := range streamEntries {
						if cur, ok := entries[num]; !ok || cur.Type == xref.EntryFree {
							entries[num] = e
						}
					}
				}
			}
		}
		return entries, trailer, nil
	}
	return l.streamSection(off)
}

func (l *loader) streamSection(off int64) (map[int]xref.Entry, *raw.DictObj, error) {
	_, obj, err := l.parseIndirectAt(off, -1)
	if err != nil {
		return nil, nil, err
	}
	stm, ok := obj.(*raw.StreamObj)
	if !ok {
		return nil, nil, errors.New("expected xref stream")
	}
	if t, _ := stm.Dict.Get("Type"); t != (raw.NameObj{Val: "XRef"}) {
		return nil, nil, errors.New("stream is not /Type /XRef")
	}
	decoded, err := l.decode(stm)
	if err != nil {
		return nil, nil, err
	}
	entries, err := xref.DecodeStream(stm.Dict, decoded)
	if err != nil {
		return nil, nil, err
	}
	return entries, stm.Dict, nil
}

func (l *loader) dictAt(pos int64) (*raw.DictObj, error) {
	s := scanner.New(l.data, scanner.Config{})
	if err := s.SeekTo(pos); err != nil {
		return nil, err
	}
	obj, err := NewTokenReader(s).ReadObject()
	if err != nil {
		return nil, err
	}
	d, ok := obj.(*raw.DictObj)
	if !ok {
		return nil, errors.New("expected dictionary")
	}
	return d, nil
}

// repairTable rebuilds the table by scanning for object headers. Entries from
// a partially read table are kept when the scan does not find the object.
func (l *loader) repairTable(partial *xref.Table) *xref.Table {
	l.doc.Repaired = true
	scanned, trailers := xref.Scan(l.data)
	table := xref.NewTable()
	table.AddOlder(scanned)
	if partial != nil {
		table.AddOlder(partial.Entries)
		table.AddOlderTrailer(partial.Trailer)
	}
	for i := len(trailers) - 1; i >= 0; i-- {
		if d, err := l.dictAt(trailers[i]); err == nil {
			table.AddOlderTrailer(d)
		}
	}
	if table.Trailer == nil {
		table.Trailer = raw.Dict()
	}
	if !hasRoot(table.Trailer) {
		l.table = table
		if root, ok := l.findCatalog(scanned); ok {
			table.Trailer.Set("Root", raw.RefObj{R: root})
		}
	}
	return table
}

func (l *loader) findCatalog(entries map[int]xref.Entry) (raw.ObjectRef, bool) {
	nums := make([]int, 0, len(entries))
	for n := range entries {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	for _, n := range nums {
		e := entries[n]
		_, obj, err := l.parseIndirectAt(e.Offset, n)
		if err != nil {
			continue
		}
		if d, ok := obj.(*raw.DictObj); ok {
			if t, _ := d.Get("Type"); t == (raw.NameObj{Val: "Catalog"}) {
				return raw.ObjectRef{Num: n, Gen: e.Gen}, true
			}
		}
	}
	return raw.ObjectRef{}, false
}

// load returns object num, loading it on first use.
func (l *loader) load(num int) (raw.Object, error) {
	e, ok := l.table.Entries[num]
	if !ok || e.Type == xref.EntryFree {
		return nil, nil
	}
	ref := raw.ObjectRef{Num: num, Gen: e.Gen}
	if e.Type == xref.EntryCompressed {
		ref.Gen = 0
	}
	if obj, ok := l.doc.Objects[ref]; ok {
		return obj, nil
	}
	if l.loading[num] {
		return nil, fmt.Errorf("reference cycle through object %d", num)
	}
	l.loading[num] = true
	defer delete(l.loading, num)

	var obj raw.Object
	var err error
	switch e.Type {
	case xref.EntryInUse:
		_, obj, err = l.parseIndirectAt(e.Offset, num)
		if err != nil && !l.doc.Repaired {
			// stale offsets are common after careless edits; look for the header instead
			if off, found := l.locateHeader(num, e.Gen); found && off != e.Offset {
				_, obj, err = l.parseIndirectAt(off, num)
			}
		}
	case xref.EntryCompressed:
		obj, err = l.fromObjectStream(e.StreamNum, num)
	}
	if err != nil {
		return nil, err
	}
	l.doc.Objects[ref] = obj
	return obj, nil
}

func (l *loader) locateHeader(num, gen int) (int64, bool) {
	header := []byte(fmt.Sprintf("%d %d obj", num, gen))
	idx := bytes.LastIndex(l.data, header)
	for idx > 0 && !scanner.IsWhitespace(l.data[idx-1]) {
		idx = bytes.LastIndex(l.data[:idx], header)
	}
	if idx < 0 {
		return 0, false
	}
	return int64(idx), true
}

// parseIndirectAt parses "num gen obj ... endobj" at off. want < 0 accepts any number.
func (l *loader) parseIndirectAt(off int64, want int) (raw.ObjectRef, raw.Object, error) {
	s := scanner.New(l.data, scanner.Config{})
	if err := s.SeekTo(off); err != nil {
		return raw.ObjectRef{}, nil, err
	}
	tr := NewTokenReader(s)
	numTok, err1 := tr.Next()
	genTok, err2 := tr.Next()
	objTok, err3 := tr.Next()
	if err := errors.Join(err1, err2, err3); err != nil {
		return raw.ObjectRef{}, nil, err
	}
	if numTok.Type != scanner.TokenNumber || genTok.Type != scanner.TokenNumber || !objTok.IsKeyword("obj") {
		return raw.ObjectRef{}, nil, fmt.Errorf("no object header at offset %d", off)
	}
	ref := raw.ObjectRef{Num: int(numTok.Int), Gen: int(genTok.Int)}
	if want >= 0 && ref.Num != want {
		return ref, nil, fmt.Errorf("offset %d holds object %d, expected %d", off, ref.Num, want)
	}

	obj, err := tr.ReadObject()
	if errors.Is(err, errMissingDictEnd) {
		if l.onError(err, recovery.Location{ByteOffset: off, ObjectNum: ref.Num, Component: "object"}) == recovery.ActionFail {
			return ref, nil, err
		}
		err = nil
	}
	if errors.Is(err, errUnexpectedEndobj) {
		return ref, raw.NullObj{}, nil
	}
	if err != nil {
		return ref, nil, err
	}

	dict, isDict := obj.(*raw.DictObj)
	if !isDict {
		return ref, obj, nil
	}
	tok, err := tr.Next()
	if err != nil || !tok.IsKeyword("stream") {
		return ref, obj, nil
	}
	s.SkipStreamEOL()
	data, err := l.streamPayload(s.Position(), dict)
	if err != nil {
		return ref, nil, err
	}
	return ref, raw.NewStream(dict, data), nil
}

// streamPayload trusts /Length when it lands on endstream, otherwise it
// searches for the keyword.
func (l *loader) streamPayload(start int64, dict *raw.DictObj) ([]byte, error) {
	if n, ok := l.streamLength(dict); ok && n >= 0 && start+n <= int64(len(l.data)) {
		end := start + n
		rest := bytes.TrimLeft(l.data[end:min(end+32, int64(len(l.data)))], "\r\n \t")
		if bytes.HasPrefix(rest, []byte("endstream")) {
			return append([]byte(nil), l.data[start:end]...), nil
		}
	}
	idx := bytes.Index(l.data[start:], []byte("endstream"))
	if idx < 0 {
		return nil, errors.New("endstream not found")
	}
	payload := l.data[start : start+int64(idx)]
	switch {
	case bytes.HasSuffix(payload, []byte("\r\n")):
		payload = payload[:len(payload)-2]
	case bytes.HasSuffix(payload, []byte("\n")), bytes.HasSuffix(payload, []byte("\r")):
		payload = payload[:len(payload)-1]
	}
	dict.Set("Length", raw.NumberInt(int64(len(payload))))
	return append([]byte(nil), payload...), nil
}

func (l *loader) streamLength(dict *raw.DictObj) (int64, bool) {
	o, ok := dict.Get("Length")
	if !ok {
		return 0, false
	}
	if ref, isRef := o.(raw.RefObj); isRef {
		if l.table == nil {
			return 0, false
		}
		target, err := l.load(ref.R.Num)
		if err != nil || target == nil {
			return 0, false
		}
		o = target
	}
	n, ok := o.(raw.NumberObj)
	if !ok {
		return 0, false
	}
	return n.Int(), true
}

func (l *loader) decode(stm *raw.StreamObj) ([]byte, error) {
	names, params := filters.ExtractFilters(nil, stm.Dict)
	for i, p := range params {
		if p == nil {
			continue
		}
		params[i] = l.resolveDict(p)
	}
	return l.pipeline.Decode(l.ctx, stm.Data, names, params)
}

func (l *loader) resolveDict(d *raw.DictObj) *raw.DictObj {
	out := raw.Dict()
	for _, k := range d.Keys() {
		v, _ := d.Get(k)
		if ref, ok := v.(raw.RefObj); ok && l.table != nil {
			if target, err := l.load(ref.R.Num); err == nil && target != nil {
				v = target
			}
		}
		out.Set(k, v)
	}
	return out
}

// fromObjectStream extracts object num from the object stream streamNum.
func (l *loader) fromObjectStream(streamNum, num int) (raw.Object, error) {
	objs, err := l.objectStream(streamNum)
	if err != nil {
		return nil, err
	}
	obj, ok := objs[num]
	if !ok {
		return nil, fmt.Errorf("object %d not found in object stream %d", num, streamNum)
	}
	return obj, nil
}

func (l *loader) objectStream(streamNum int) (map[int]raw.Object, error) {
	if objs, ok := l.objStms[streamNum]; ok {
		return objs, nil
	}
	obj, err := l.load(streamNum)
	if err != nil {
		return nil, err
	}
	stm, ok := obj.(*raw.StreamObj)
	if !ok {
		return nil, fmt.Errorf("object %d is not an object stream", streamNum)
	}
	objs, err := l.parseObjectStream(stm)
	if err != nil {
		return nil, fmt.Errorf("object stream %d: %w", streamNum, err)
	}
	l.objStms[streamNum] = objs
	return objs, nil
}

func (l *loader) parseObjectStream(stm *raw.StreamObj) (map[int]raw.Object, error) {
	data, err := l.decode(stm)
	if err != nil {
		return nil, err
	}
	n, _ := stm.Dict.Get("N")
	first, _ := stm.Dict.Get("First")
	count, ok1 := n.(raw.NumberObj)
	firstOff, ok2 := first.(raw.NumberObj)
	if !ok1 || !ok2 || firstOff.Int() < 0 || firstOff.Int() > int64(len(data)) || count.Int() < 0 || count.Int() > int64(len(data)) {
		return nil, errors.New("invalid /N or /First")
	}
	s := scanner.New(data, scanner.Config{})
	type slot struct {
		num int
		off int64
	}
	slots := make([]slot, 0, count.Int())
	for i := int64(0); i < count.Int(); i++ {
		a, err1 := s.Next()
		b, err2 := s.Next()
		if errors.Join(err1, err2) != nil || a.Type != scanner.TokenNumber || b.Type != scanner.TokenNumber {
			break
		}
		slots = append(slots, slot{num: int(a.Int), off: b.Int})
	}
	objs := make(map[int]raw.Object, len(slots))
	for _, sl := range slots {
		pos := firstOff.Int() + sl.off
		if err := s.SeekTo(pos); err != nil {
			continue
		}
		obj, err := NewTokenReader(s).ReadObject()
		if err != nil {
			continue
		}
		objs[sl.num] = obj
	}
	return objs, nil
}

// expandObjectStreams adds objects stored in object streams after a repair
// scan, which only sees top-level objects.
func (l *loader) expandObjectStreams() {
	for _, ref := range l.doc.Refs() {
		stm, ok := l.doc.Objects[ref].(*raw.StreamObj)
		if !ok {
			continue
		}
		if t, _ := stm.Dict.Get("Type"); t != (raw.NameObj{Val: "ObjStm"}) {
			continue
		}
		objs, err := l.parseObjectStream(stm)
		if err != nil {
			l.log.Warn("skipping unreadable object stream", observability.Int("object", ref.Num), observability.Error("error", err))
			continue
		}
		for num, obj := range objs {
			r := raw.ObjectRef{Num: num}
			if _, exists := l.doc.Objects[r]; !exists {
				l.doc.Objects[r] = obj
			}
		}
	}
}

// dropStructuralStreams removes xref and object streams; their contents now
// live in Objects and a rewrite produces fresh cross-reference data.
func (l *loader) dropStructuralStreams() {
	for ref, obj := range l.doc.Objects {
		stm, ok := obj.(*raw.StreamObj)
		if !ok {
			continue
		}
		t, _ := stm.Dict.Get("Type")
		if t == (raw.NameObj{Val: "XRef"}) || t == (raw.NameObj{Val: "ObjStm"}) {
			delete(l.doc.Objects, ref)
		}
	}
	for _, key := range []string{"Prev", "XRefStm", "Index", "W", "Filter", "DecodeParms", "Length", "Type"} {
		l.doc.Trailer.Delete(key)
	}
}
