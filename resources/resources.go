// Package resources looks up named page resources through the page tree.
package resources

import (
	"errors"
	"fmt"

	"github.com/wudi/pdfedit/ir/raw"
)

type Category string

const (
	CategoryFont    Category = "Font"
	CategoryXObject Category = "XObject"
)

// ErrNotFound is returned by Resolve when no scope defines the name.
var ErrNotFound = errors.New("resource not found")

// maxTreeDepth bounds /Parent walks through malformed page trees.
const maxTreeDepth = 64

// Inherited returns the resources in effect for node: its own /Resources or
// the nearest ancestor's.
func Inherited(doc *raw.Document, node *raw.DictObj) *raw.DictObj {
	for depth := 0; node != nil && depth < maxTreeDepth; depth++ {
		if res, ok := doc.DictEntry(node, "Resources"); ok {
			return res
		}
		node, _ = doc.DictEntry(node, "Parent")
	}
	return nil
}

// Lookup finds name in one category of res.
func Lookup(doc *raw.Document, res *raw.DictObj, category Category, name string) (raw.Object, bool) {
	if res == nil {
		return nil, false
	}
	cat, ok := doc.DictEntry(res, string(category))
	if !ok {
		return nil, false
	}
	return cat.Get(name)
}

// Resolve finds name in the resources in effect for node.
func Resolve(doc *raw.Document, node *raw.DictObj, category Category, name string) (raw.Object, error) {
	if obj, ok := Lookup(doc, Inherited(doc, node), category, name); ok {
		return obj, nil
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, category, name)
}

// Localize gives page a resources dictionary of its own, copied from the
// effective one, with a private dictionary for each listed category. Entries
// added afterwards never reach resources shared with other pages.
func Localize(doc *raw.Document, page *raw.DictObj, categories ...Category) *raw.DictObj {
	res := shallowCopy(Inherited(doc, page))
	for _, c := range categories {
		sub, _ := doc.DictEntry(res, string(c))
		res.Set(string(c), shallowCopy(sub))
	}
	page.Set("Resources", res)
	return res
}

func shallowCopy(d *raw.DictObj) *raw.DictObj {
	out := raw.Dict()
	if d == nil {
		return out
	}
	for k, v := range d.KV {
		out.KV[k] = v
	}
	return out
}
