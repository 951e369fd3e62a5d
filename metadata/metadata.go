// Package metadata reads and scrubs the document information dictionary.
package metadata

import (
	"time"

	"golang.org/x/text/language"

	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/ir/semantic"
)

// Info is the reportable document metadata. Dates are zero when absent or
// unparseable.
type Info struct {
	PageCount    int       `json:"pageCount"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	Subject      string    `json:"subject"`
	Keywords     string    `json:"keywords"`
	Creator      string    `json:"creator"`
	Producer     string    `json:"producer"`
	CreationDate time.Time `json:"creationDate"`
	ModDate      time.Time `json:"modificationDate"`
	Lang         string    `json:"lang,omitempty"`
	HasXMP       bool      `json:"hasXmp"`
}

// Text fields kept, emptied, when a document is scrubbed.
var scrubbed = []string{"Title", "Author", "Subject", "Keywords", "Producer", "Creator"}

// Read collects the Info dictionary, the catalog language and the page count.
func Read(doc *semantic.Document) Info {
	info := Info{PageCount: len(doc.Pages)}
	r := doc.Raw
	if dict := infoDict(r); dict != nil {
		info.Title = textEntry(r, dict, "Title")
		info.Author = textEntry(r, dict, "Author")
		info.Subject = textEntry(r, dict, "Subject")
		info.Keywords = textEntry(r, dict, "Keywords")
		info.Creator = textEntry(r, dict, "Creator")
		info.Producer = textEntry(r, dict, "Producer")
		info.CreationDate, _ = ParseDate(textEntry(r, dict, "CreationDate"))
		info.ModDate, _ = ParseDate(textEntry(r, dict, "ModDate"))
	}
	if cat := doc.Catalog; cat != nil {
		if lang := textEntry(r, cat, "Lang"); lang != "" {
			if tag, err := language.Parse(lang); err == nil {
				info.Lang = tag.String()
			} else {
				info.Lang = lang
			}
		}
		_, info.HasXMP = cat.Get("Metadata")
	}
	return info
}

// Strip rebuilds the Info dictionary with the standard text fields empty and
// both dates stamped with now, dropping every other entry, and removes the
// catalog XMP packet. The trailer /ID is dropped so the writer
// derives a fresh one from the new content. A missing Info dictionary is
// created.
func Strip(doc *raw.Document, now time.Time) {
	dict := infoDict(doc)
	if dict == nil {
		dict = raw.Dict()
		doc.Trailer.Set("Info", doc.Add(dict))
	}
	for _, key := range dict.Keys() {
		dict.Delete(key)
	}
	for _, key := range scrubbed {
		dict.Set(key, raw.Str(nil))
	}
	stamp := raw.Str([]byte(FormatDate(now)))
	dict.Set("CreationDate", stamp)
	dict.Set("ModDate", stamp)

	if cat, ok := doc.Catalog(); ok {
		if xmp, ok := cat.Get("Metadata"); ok {
			if ref, isRef := xmp.(raw.RefObj); isRef {
				delete(doc.Objects, ref.R)
			}
			cat.Delete("Metadata")
		}
	}
	doc.Trailer.Delete("ID")
}

func infoDict(doc *raw.Document) *raw.DictObj {
	obj, ok := doc.Trailer.Get("Info")
	if !ok {
		return nil
	}
	dict, _ := doc.Dict(obj)
	return dict
}

func textEntry(doc *raw.Document, dict *raw.DictObj, key string) string {
	obj, ok := dict.Get(key)
	if !ok {
		return ""
	}
	b, ok := doc.String(obj)
	if !ok {
		return ""
	}
	return DecodeText(b)
}
