package optimize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/wudi/pdfedit/ir/raw"
)

func hashObject(obj raw.Object) string {
	h := sha256.New()
	writeHash(h, obj)
	return hex.EncodeToString(h.Sum(nil))
}

func writeHash(h hash.Hash, obj raw.Object) {
	if obj == nil {
		fmt.Fprint(h, "nil")
		return
	}
	fmt.Fprint(h, obj.Type(), ":")
	switch t := obj.(type) {
	case raw.NameObj:
		fmt.Fprint(h, t.Val)
	case raw.NumberObj:
		if t.IsInteger() {
			fmt.Fprint(h, t.Int())
		} else {
			fmt.Fprint(h, t.Float())
		}
	case raw.BoolObj:
		fmt.Fprint(h, t.V)
	case raw.StringObj:
		fmt.Fprintf(h, "%d:", len(t.Bytes))
		h.Write(t.Bytes)
	case raw.RefObj:
		fmt.Fprintf(h, "%d %d R", t.R.Num, t.R.Gen)
	case *raw.ArrayObj:
		fmt.Fprint(h, "[")
		for _, v := range t.Items {
			writeHash(h, v)
			fmt.Fprint(h, ",")
		}
		fmt.Fprint(h, "]")
	case *raw.DictObj:
		fmt.Fprint(h, "<<")
		for _, k := range t.Keys() {
			fmt.Fprint(h, k, " ")
			v, _ := t.Get(k)
			writeHash(h, v)
		}
		fmt.Fprint(h, ">>")
	case *raw.StreamObj:
		writeHash(h, t.Dict)
		fmt.Fprintf(h, "%d:", len(t.Data))
		h.Write(t.Data)
	}
}
