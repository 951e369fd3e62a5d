package writer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/wudi/pdfedit/filters"
	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/observability"
)

type impl struct {
	cfg          Config
	interceptors []Interceptor
	log          observability.Logger
}

const binaryMarker = "%\xE2\xE3\xCF\xD3\n"

func (w *impl) SerializeObject(ref raw.ObjectRef, obj raw.Object) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d obj\n", ref.Num, ref.Gen)
	if s, ok := obj.(*raw.StreamObj); ok && s != nil {
		if err := w.writeStream(&buf, s); err != nil {
			return nil, fmt.Errorf("object %s: %w", ref, err)
		}
	} else {
		appendObject(&buf, obj)
		buf.WriteByte('\n')
	}
	buf.WriteString("endobj\n")
	return buf.Bytes(), nil
}

func (w *impl) writeStream(buf *bytes.Buffer, s *raw.StreamObj) error {
	dict := raw.Dict()
	if s.Dict != nil {
		dict = raw.CloneObject(s.Dict).(*raw.DictObj)
	}
	data := s.Data
	if _, filtered := dict.Get("Filter"); !filtered && w.cfg.Compression != 0 && len(data) > 0 {
		enc, err := filters.EncodeFlate(data, w.cfg.Compression)
		if err != nil {
			return err
		}
		data = enc
		dict.Set("Filter", raw.NameLiteral("FlateDecode"))
		dict.Delete("DecodeParms")
	}
	dict.Set("Length", raw.NumberInt(int64(len(data))))
	appendObject(buf, dict)
	buf.WriteString("\nstream\n")
	buf.Write(data)
	buf.WriteString("\nendstream\n")
	return nil
}

func (w *impl) Write(ctx context.Context, doc *raw.Document, out io.Writer) error {
	if doc == nil {
		return fmt.Errorf("nil document")
	}
	root, ok := doc.Trailer.Get("Root")
	if !ok {
		return fmt.Errorf("trailer has no /Root")
	}
	bw := &countingWriter{w: bufio.NewWriter(out)}
	fmt.Fprintf(bw, "%%PDF-%s\n%s", w.version(doc), binaryMarker)

	refs := liveRefs(doc)
	offsets := make(map[int]int64, len(refs))
	gens := make(map[int]int, len(refs))
	var body bytes.Buffer
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return err
		}
		obj := doc.Objects[ref]
		for _, ic := range w.interceptors {
			if err := ic.BeforeWrite(ctx, ref, obj); err != nil {
				return fmt.Errorf("interceptor before %s: %w", ref, err)
			}
		}
		data, err := w.SerializeObject(ref, obj)
		if err != nil {
			return err
		}
		offsets[ref.Num] = bw.n
		gens[ref.Num] = ref.Gen
		if _, err := bw.Write(data); err != nil {
			return err
		}
		if w.cfg.Deterministic {
			body.Write(data)
		}
		for _, ic := range w.interceptors {
			if err := ic.AfterWrite(ctx, ref, int64(len(data))); err != nil {
				return fmt.Errorf("interceptor after %s: %w", ref, err)
			}
		}
	}

	size := 1
	for num := range offsets {
		if num+1 > size {
			size = num + 1
		}
	}
	xrefAt := bw.n
	writeXRef(bw, size, offsets, gens)

	trailer := raw.Dict()
	trailer.Set("Size", raw.NumberInt(int64(size)))
	trailer.Set("Root", root)
	if info, ok := doc.Trailer.Get("Info"); ok {
		if _, live := doc.Dict(info); live {
			trailer.Set("Info", info)
		}
	}
	ids, ok := existingID(doc)
	if !ok {
		ids = fileID(body.Bytes(), w.cfg.Deterministic)
	}
	trailer.Set("ID", raw.NewArray(raw.HexStr(ids[0]), raw.HexStr(ids[1])))

	var tb bytes.Buffer
	appendObject(&tb, trailer)
	fmt.Fprintf(bw, "trailer\n%s\nstartxref\n%d\n%%%%EOF\n", tb.Bytes(), xrefAt)
	if err := bw.w.Flush(); err != nil {
		return err
	}
	w.log.Debug("document written",
		observability.Int("objects", len(refs)),
		observability.Int64("bytes", bw.n))
	return bw.err
}

func (w *impl) version(doc *raw.Document) string {
	if w.cfg.Version != "" {
		return string(w.cfg.Version)
	}
	if doc.Version != "" {
		return doc.Version
	}
	return string(PDF17)
}

// liveRefs returns the objects to write in number order, keeping only the
// highest generation of each number and skipping structural streams that a
// classic table supersedes.
func liveRefs(doc *raw.Document) []raw.ObjectRef {
	latest := make(map[int]raw.ObjectRef)
	for _, ref := range doc.Refs() {
		obj := doc.Objects[ref]
		if obj == nil || ref.Num <= 0 {
			continue
		}
		if s, ok := obj.(*raw.StreamObj); ok && s != nil {
			if t, _ := doc.NameEntry(s.Dict, "Type"); t == "XRef" || t == "ObjStm" {
				continue
			}
		}
		latest[ref.Num] = ref
	}
	out := make([]raw.ObjectRef, 0, len(latest))
	for _, ref := range doc.Refs() {
		if latest[ref.Num] == ref {
			out = append(out, ref)
		}
	}
	return out
}

// writeXRef emits a single-section classic table. Unused numbers are chained
// into the free list headed by object 0.
func writeXRef(w io.Writer, size int, offsets map[int]int64, gens map[int]int) {
	fmt.Fprintf(w, "xref\n0 %d\n", size)
	nextFree := make([]int, size)
	last := 0
	for num := size - 1; num >= 0; num-- {
		if _, used := offsets[num]; used && num != 0 {
			continue
		}
		nextFree[num] = last
		last = num
	}
	for num := 0; num < size; num++ {
		off, used := offsets[num]
		switch {
		case num == 0:
			fmt.Fprintf(w, "%010d 65535 f \n", nextFree[0])
		case used:
			fmt.Fprintf(w, "%010d %05d n \n", off, gens[num])
		default:
			fmt.Fprintf(w, "%010d 00001 f \n", nextFree[num])
		}
	}
}

func existingID(doc *raw.Document) ([2][]byte, bool) {
	arr, ok := doc.ArrayEntry(doc.Trailer, "ID")
	if !ok || arr.Len() != 2 {
		return [2][]byte{}, false
	}
	a, okA := doc.String(arr.Items[0])
	b, okB := doc.String(arr.Items[1])
	if !okA || !okB || len(a) == 0 || len(b) == 0 {
		return [2][]byte{}, false
	}
	return [2][]byte{a, b}, true
}

type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
