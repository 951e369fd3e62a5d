package writer

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math"
	"strconv"

	"github.com/wudi/pdfedit/ir/raw"
)

func fileID(body []byte, deterministic bool) [2][]byte {
	sum := sha256.Sum256(body)
	seed := sum[:16]
	if deterministic {
		return [2][]byte{seed, append([]byte(nil), seed...)}
	}
	id := make([]byte, 16)
	if _, err := rand.Read(id); err != nil {
		id = seed
	}
	return [2][]byte{id, append([]byte(nil), id...)}
}

// FormatNumber renders a real without exponent notation, rounded to five
// decimal places.
func FormatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	f = math.Round(f*1e5) / 1e5
	if f == 0 {
		return "0"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func appendObject(buf *bytes.Buffer, o raw.Object) {
	switch v := o.(type) {
	case nil:
		buf.WriteString("null")
	case raw.NameObj:
		buf.Write(escapeName(v.Val))
	case raw.NumberObj:
		if v.IsInt {
			buf.WriteString(strconv.FormatInt(v.I, 10))
		} else {
			buf.WriteString(FormatNumber(v.F))
		}
	case raw.BoolObj:
		buf.WriteString(strconv.FormatBool(v.V))
	case raw.NullObj:
		buf.WriteString("null")
	case raw.StringObj:
		if v.Hex {
			fmt.Fprintf(buf, "<%X>", v.Bytes)
		} else {
			buf.Write(escapeLiteralString(v.Bytes))
		}
	case raw.RefObj:
		fmt.Fprintf(buf, "%d %d R", v.R.Num, v.R.Gen)
	case *raw.ArrayObj:
		if v == nil {
			buf.WriteString("null")
			return
		}
		buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(' ')
			}
			appendObject(buf, item)
		}
		buf.WriteByte(']')
	case *raw.DictObj:
		if v == nil {
			buf.WriteString("null")
			return
		}
		buf.WriteString("<<")
		for i, k := range v.Keys() {
			if i > 0 {
				buf.WriteByte(' ')
			}
			buf.Write(escapeName(k))
			buf.WriteByte(' ')
			appendObject(buf, v.KV[k])
		}
		buf.WriteString(">>")
	case *raw.StreamObj:
		// Streams are only legal as indirect objects; inline occurrences
		// degrade to their dictionary.
		if v == nil {
			buf.WriteString("null")
			return
		}
		appendObject(buf, v.Dict)
	default:
		buf.WriteString("null")
	}
}

// SerializeValue renders a direct object in file syntax.
func SerializeValue(o raw.Object) []byte {
	var buf bytes.Buffer
	appendObject(&buf, o)
	return buf.Bytes()
}

func escapeName(name string) []byte {
	var b bytes.Buffer
	b.WriteByte('/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < 0x21 || c > 0x7E || c == '#' || isDelimiter(c) {
			fmt.Fprintf(&b, "#%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.Bytes()
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func escapeLiteralString(rawBytes []byte) []byte {
	var b bytes.Buffer
	b.WriteByte('(')
	for _, ch := range rawBytes {
		switch ch {
		case '\\', '(', ')':
			b.WriteByte('\\')
			b.WriteByte(ch)
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		case '\b':
			b.WriteString("\\b")
		case '\f':
			b.WriteString("\\f")
		default:
			if ch < 0x20 || ch >= 0x80 {
				fmt.Fprintf(&b, "\\%03o", ch)
			} else {
				b.WriteByte(ch)
			}
		}
	}
	b.WriteByte(')')
	return b.Bytes()
}
