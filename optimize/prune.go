package optimize

import "github.com/wudi/pdfedit/ir/raw"

func prune(doc *raw.Document) int {
	if doc == nil || doc.Trailer == nil {
		return 0
	}
	reachable := make(map[raw.ObjectRef]bool)
	markReachable(doc, doc.Trailer, reachable)

	n := 0
	for ref := range doc.Objects {
		if !reachable[ref] {
			delete(doc.Objects, ref)
			n++
		}
	}
	return n
}

func markReachable(doc *raw.Document, obj raw.Object, reachable map[raw.ObjectRef]bool) {
	switch t := obj.(type) {
	case raw.RefObj:
		if reachable[t.R] {
			return
		}
		reachable[t.R] = true
		if target, ok := doc.Objects[t.R]; ok {
			markReachable(doc, target, reachable)
		}
	case *raw.ArrayObj:
		for _, v := range t.Items {
			markReachable(doc, v, reachable)
		}
	case *raw.DictObj:
		for _, v := range t.KV {
			markReachable(doc, v, reachable)
		}
	case *raw.StreamObj:
		markReachable(doc, t.Dict, reachable)
	}
}
