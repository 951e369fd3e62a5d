package semantic

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/ir/decoded"
	"github.com/wudi/pdfedit/ir/raw"
)

// Document is the page-level view of a PDF.
type Document struct {
	Raw     *raw.Document
	Decoded *decoded.DecodedDocument
	Catalog *raw.DictObj
	Pages   []*Page
	// SharedResources are resource dictionaries attached to /Pages nodes, in
	// tree order. Every page below such a node that has no /Resources of its
	// own uses them.
	SharedResources []*raw.DictObj
}

// Page is a leaf of the page tree with its inheritable attributes resolved.
type Page struct {
	Index    int // zero-based
	Ref      raw.ObjectRef
	Dict     *raw.DictObj
	MediaBox coords.Box
	CropBox  coords.Box
	Rotate   int
	// Resources is the page's own /Resources entry, nil when inherited.
	Resources *raw.DictObj
	// InheritedResources comes from the nearest ancestor that defines one.
	InheritedResources *raw.DictObj
}

// Number is the one-based page number.
func (p *Page) Number() int { return p.Index + 1 }

// EffectiveResources returns the resources that apply to the page content.
func (p *Page) EffectiveResources() *raw.DictObj {
	if p.Resources != nil {
		return p.Resources
	}
	return p.InheritedResources
}

var ErrPageOutOfRange = errors.New("page number out of range")

// Page returns the page with the one-based number n.
func (d *Document) Page(n int) (*Page, error) {
	if n < 1 || n > len(d.Pages) {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, n, len(d.Pages))
	}
	return d.Pages[n-1], nil
}

// ContentStream returns the decoded page content. Multiple content streams
// are joined with a newline so operators never fuse across boundaries.
// Streams that cannot be decoded are skipped and reported in the error.
func (d *Document) ContentStream(ctx context.Context, p *Page) ([]byte, error) {
	contents, ok := p.Dict.Get("Contents")
	if !ok {
		return nil, nil
	}
	var parts []raw.Object
	if arr, ok := d.Raw.Array(contents); ok {
		parts = arr.Items
	} else {
		parts = []raw.Object{contents}
	}
	var buf bytes.Buffer
	var errs []error
	for _, part := range parts {
		data, err := d.Decoded.Stream(ctx, part)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), errors.Join(errs...)
}

// Builder turns decoded IR into the semantic model.
type Builder interface {
	Build(ctx context.Context, dec *decoded.DecodedDocument) (*Document, error)
}

type builderImpl struct{}

func NewBuilder() Builder { return builderImpl{} }

func (builderImpl) Build(ctx context.Context, dec *decoded.DecodedDocument) (*Document, error) {
	catalog, ok := dec.Raw.Catalog()
	if !ok {
		return nil, errors.New("catalog missing")
	}
	doc := &Document{Raw: dec.Raw, Decoded: dec, Catalog: catalog}
	root, ok := catalog.Get("Pages")
	if !ok {
		return doc, nil
	}
	w := &pageWalker{doc: doc, visited: make(map[*raw.DictObj]bool), shared: make(map[*raw.DictObj]bool)}
	if err := w.walk(ctx, root, raw.ObjectRef{}, inheritedPageProps{}); err != nil {
		return nil, err
	}
	return doc, nil
}
