package semantic

import (
	"context"

	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/ir/raw"
)

type inheritedPageProps struct {
	MediaBox  *coords.Box
	CropBox   *coords.Box
	Rotate    *int
	Resources *raw.DictObj
}

type pageWalker struct {
	doc     *Document
	visited map[*raw.DictObj]bool
	shared  map[*raw.DictObj]bool
}

// walk traverses the page tree depth first, appending leaves to doc.Pages.
// Broken kids are skipped so one bad node never hides the rest of the document.
func (w *pageWalker) walk(ctx context.Context, obj raw.Object, ref raw.ObjectRef, inherited inheritedPageProps) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r, ok := obj.(raw.RefObj); ok {
		ref = r.R
	}
	rd := w.doc.Raw
	dict, ok := rd.Dict(obj)
	if !ok || w.visited[dict] {
		return nil
	}
	w.visited[dict] = true

	next := inherited
	if vals, ok := rd.Floats(entry(dict, "MediaBox")); ok {
		if b, ok := coords.BoxFrom(vals); ok {
			next.MediaBox = &b
		}
	}
	if vals, ok := rd.Floats(entry(dict, "CropBox")); ok {
		if b, ok := coords.BoxFrom(vals); ok {
			next.CropBox = &b
		}
	}
	if rot, ok := rd.Int(entry(dict, "Rotate")); ok {
		next.Rotate = &rot
	}

	kids, hasKids := rd.ArrayEntry(dict, "Kids")
	typ, _ := rd.NameEntry(dict, "Type")
	isPage := typ == "Page" || (typ == "" && !hasKids)

	if isPage {
		w.doc.Pages = append(w.doc.Pages, w.page(dict, ref, next))
		return nil
	}

	if !hasKids {
		return nil
	}
	if res, ok := rd.DictEntry(dict, "Resources"); ok {
		next.Resources = res
		if !w.shared[res] {
			w.shared[res] = true
			w.doc.SharedResources = append(w.doc.SharedResources, res)
		}
	}
	for _, kid := range kids.Items {
		if err := w.walk(ctx, kid, raw.ObjectRef{}, next); err != nil {
			return err
		}
	}
	return nil
}

func (w *pageWalker) page(dict *raw.DictObj, ref raw.ObjectRef, inherited inheritedPageProps) *Page {
	page := &Page{
		Index:              len(w.doc.Pages),
		Ref:                ref,
		Dict:               dict,
		MediaBox:           coords.Letter,
		InheritedResources: inherited.Resources,
	}
	if inherited.MediaBox != nil {
		page.MediaBox = *inherited.MediaBox
	}
	page.CropBox = page.MediaBox
	if inherited.CropBox != nil {
		page.CropBox = *inherited.CropBox
	}
	if inherited.Rotate != nil {
		page.Rotate = ((*inherited.Rotate%360)+360)%360
	}
	if res, ok := w.doc.Raw.DictEntry(dict, "Resources"); ok {
		page.Resources = res
	}
	return page
}

func entry(dict *raw.DictObj, key string) raw.Object {
	o, _ := dict.Get(key)
	return o
}
