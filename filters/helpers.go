package filters

import "github.com/wudi/pdfedit/ir/raw"

// ExtractFilters reads Filter and DecodeParms entries from a stream dictionary.
// doc resolves indirect entries and may be nil.
func ExtractFilters(doc *raw.Document, dict *raw.DictObj) ([]string, []*raw.DictObj) {
	var names []string
	var params []*raw.DictObj

	filterObj, ok := dict.Get("Filter")
	if !ok {
		return names, params
	}

	switch f := doc.Resolve(filterObj).(type) {
	case raw.NameObj:
		names = append(names, f.Val)
	case *raw.ArrayObj:
		for _, item := range f.Items {
			if n, ok := doc.Name(item); ok {
				names = append(names, n)
			}
		}
	}

	if len(names) > 0 {
		if pObj, ok := dict.Get("DecodeParms"); ok {
			switch p := doc.Resolve(pObj).(type) {
			case *raw.DictObj:
				params = append(params, p)
			case *raw.ArrayObj:
				for _, item := range p.Items {
					d, _ := doc.Dict(item)
					params = append(params, d)
				}
			}
		}
	}

	return names, params
}
