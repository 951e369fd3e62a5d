package raw

import (
	"fmt"
	"sort"
)

// ObjectRef uniquely identifies an indirect PDF object.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Object is the base interface for all raw PDF objects.
type Object interface {
	Type() string
	IsIndirect() bool
}

// maxRefDepth bounds reference chains such as "1 0 R" pointing at "2 0 R".
const maxRefDepth = 32

// Document is the root container for raw PDF objects.
type Document struct {
	Objects   map[ObjectRef]Object
	Trailer   *DictObj
	Version   string // e.g., "1.7"
	Encrypted bool
	// Repaired is set when the cross-reference data was rebuilt by scanning.
	Repaired bool
}

// NewDocument returns an empty document with an empty trailer.
func NewDocument() *Document {
	return &Document{
		Objects: make(map[ObjectRef]Object),
		Trailer: Dict(),
		Version: "1.7",
	}
}

// Resolve follows indirect references until a direct object is reached.
// Dangling references resolve to nil.
func (d *Document) Resolve(o Object) Object {
	for i := 0; i < maxRefDepth; i++ {
		ref, ok := o.(RefObj)
		if !ok {
			return o
		}
		if d == nil {
			return nil
		}
		next, found := d.Objects[ref.R]
		if !found {
			return nil
		}
		o = next
	}
	return nil
}

// Get resolves the object stored under ref.
func (d *Document) Get(ref ObjectRef) Object {
	if d == nil {
		return nil
	}
	return d.Resolve(d.Objects[ref])
}

// MaxObjectNumber returns the highest object number in use.
func (d *Document) MaxObjectNumber() int {
	max := 0
	for ref := range d.Objects {
		if ref.Num > max {
			max = ref.Num
		}
	}
	return max
}

// Add stores o under the next free object number and returns its reference.
func (d *Document) Add(o Object) RefObj {
	if d.Objects == nil {
		d.Objects = make(map[ObjectRef]Object)
	}
	ref := ObjectRef{Num: d.MaxObjectNumber() + 1}
	d.Objects[ref] = o
	return RefObj{R: ref}
}

// Refs returns the object references sorted by number.
func (d *Document) Refs() []ObjectRef {
	refs := make([]ObjectRef, 0, len(d.Objects))
	for ref := range d.Objects {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Num != refs[j].Num {
			return refs[i].Num < refs[j].Num
		}
		return refs[i].Gen < refs[j].Gen
	})
	return refs
}

// Catalog returns the document catalog referenced by the trailer.
func (d *Document) Catalog() (*DictObj, bool) {
	if d == nil || d.Trailer == nil {
		return nil, false
	}
	root, _ := d.Trailer.Get("Root")
	return d.Dict(root)
}

// Clone returns a deep copy of the document. Streams and strings never share
// backing arrays with the original.
func (d *Document) Clone() *Document {
	out := &Document{
		Objects:   make(map[ObjectRef]Object, len(d.Objects)),
		Version:   d.Version,
		Encrypted: d.Encrypted,
		Repaired:  d.Repaired,
	}
	for ref, o := range d.Objects {
		out.Objects[ref] = CloneObject(o)
	}
	if d.Trailer != nil {
		out.Trailer = CloneObject(d.Trailer).(*DictObj)
	}
	return out
}
