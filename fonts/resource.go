package fonts

import "github.com/wudi/pdfedit/ir/raw"

// ResourceKind classifies an entry of a /Font resource dictionary.
type ResourceKind int

const (
	KindNotFont ResourceKind = iota
	KindSimple
	KindComposite
	KindType3
)

func (k ResourceKind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindComposite:
		return "composite"
	case KindType3:
		return "type3"
	}
	return "not-font"
}

// Resource is a font resource entry, classified once.
type Resource struct {
	Kind       ResourceKind
	Key        string
	Dict       *raw.DictObj
	Subtype    string
	BaseFont   string
	Descriptor *raw.DictObj

	// Descendant and DescendantDescriptor are set for composite fonts only.
	Descendant           *raw.DictObj
	DescendantDescriptor *raw.DictObj
}

// AnyDescriptor returns the own descriptor, else the descendant's.
func (r Resource) AnyDescriptor() *raw.DictObj {
	if r.Descriptor != nil {
		return r.Descriptor
	}
	return r.DescendantDescriptor
}

var fontFileKeys = []string{"FontFile2", "FontFile3", "FontFile"}

// ClassifyResource inspects a resource entry. An entry counts as a font when
// it exposes an identifying name or a descriptor carrying a font program.
func ClassifyResource(doc *raw.Document, key string, obj raw.Object) Resource {
	res := Resource{Key: key}
	dict, ok := doc.Dict(obj)
	if !ok {
		return res
	}
	res.Dict = dict
	res.Subtype, _ = doc.NameEntry(dict, "Subtype")
	res.BaseFont, _ = doc.NameEntry(dict, "BaseFont")
	res.Descriptor, _ = doc.DictEntry(dict, "FontDescriptor")

	if res.Subtype == "Type0" {
		if kids, ok := doc.ArrayEntry(dict, "DescendantFonts"); ok && kids.Len() > 0 {
			if d, ok := doc.Dict(kids.Items[0]); ok {
				res.Descendant = d
				res.DescendantDescriptor, _ = doc.DictEntry(d, "FontDescriptor")
			}
		}
	}

	typ, _ := doc.NameEntry(dict, "Type")
	desc := res.AnyDescriptor()
	if res.BaseFont == "" && descriptorName(doc, desc) == "" && !hasProgram(desc) && typ != "Font" {
		return res
	}
	switch res.Subtype {
	case "Type0":
		res.Kind = KindComposite
	case "Type3":
		res.Kind = KindType3
	default:
		res.Kind = KindSimple
	}
	return res
}

// Identifier is the name a font is known by in every pass: /BaseFont, then
// the descriptor's /FontName, then the resource key.
func (r Resource) Identifier(doc *raw.Document) string {
	if r.BaseFont != "" {
		return r.BaseFont
	}
	if n := descriptorName(doc, r.AnyDescriptor()); n != "" {
		return n
	}
	return r.Key
}

// Identifier classifies obj and returns its identifier.
func Identifier(doc *raw.Document, key string, obj raw.Object) string {
	return ClassifyResource(doc, key, obj).Identifier(doc)
}

func descriptorName(doc *raw.Document, desc *raw.DictObj) string {
	if desc == nil {
		return ""
	}
	n, _ := doc.NameEntry(desc, "FontName")
	return n
}

func hasProgram(desc *raw.DictObj) bool {
	for _, k := range fontFileKeys {
		if _, ok := desc.Get(k); ok {
			return true
		}
	}
	return false
}
