package optimize

import (
	"github.com/wudi/pdfedit/ir/raw"
)

// combineStreams merges identical streams until no duplicates remain; merging
// can make the dictionaries of other streams identical in turn. The lowest
// object number survives.
func combineStreams(doc *raw.Document) int {
	if doc == nil {
		return 0
	}
	total := 0
	for {
		seen := make(map[string]raw.ObjectRef)
		replacements := make(map[raw.ObjectRef]raw.ObjectRef)
		for _, ref := range doc.Refs() {
			stm, ok := doc.Objects[ref].(*raw.StreamObj)
			if !ok || stm == nil {
				continue
			}
			if t, _ := doc.NameEntry(stm.Dict, "Type"); t == "XRef" || t == "ObjStm" {
				continue
			}
			h := hashObject(stm)
			if original, ok := seen[h]; ok {
				replacements[ref] = original
			} else {
				seen[h] = ref
			}
		}
		if len(replacements) == 0 {
			return total
		}
		applyReplacements(doc, replacements)
		for dup := range replacements {
			delete(doc.Objects, dup)
		}
		total += len(replacements)
	}
}

func applyReplacements(doc *raw.Document, replacements map[raw.ObjectRef]raw.ObjectRef) {
	for _, obj := range doc.Objects {
		replaceRefs(obj, replacements)
	}
	if doc.Trailer != nil {
		replaceRefs(doc.Trailer, replacements)
	}
}

func replaceRefs(obj raw.Object, replacements map[raw.ObjectRef]raw.ObjectRef) {
	switch t := obj.(type) {
	case *raw.ArrayObj:
		for i, val := range t.Items {
			if ref, ok := val.(raw.RefObj); ok {
				if newRef, found := replacements[ref.R]; found {
					t.Items[i] = raw.RefObj{R: newRef}
				}
				continue
			}
			replaceRefs(val, replacements)
		}
	case *raw.DictObj:
		for key, val := range t.KV {
			if ref, ok := val.(raw.RefObj); ok {
				if newRef, found := replacements[ref.R]; found {
					t.KV[key] = raw.RefObj{R: newRef}
				}
				continue
			}
			replaceRefs(val, replacements)
		}
	case *raw.StreamObj:
		replaceRefs(t.Dict, replacements)
	}
}
