package extractor

import (
	"context"

	"seehuhn.de/go/geom/matrix"

	"github.com/wudi/pdfedit/contentstream"
	"github.com/wudi/pdfedit/observability"
	"github.com/wudi/pdfedit/resources"
)

// xobject runs the content of a Form XObject in place. The form's /Matrix
// is applied on top of the current CTM and its own /Resources, when
// present, replace the current ones until the form ends. Images are skipped.
func (l *layout) xobject(ctx context.Context, op contentstream.Operation) error {
	name, ok := op.Name(0)
	if !ok {
		return nil
	}
	r := l.e.doc.Raw
	obj, _ := resources.Lookup(r, l.res, resources.CategoryXObject, name)
	stm, ok := r.Stream(obj)
	if !ok {
		return nil
	}
	if sub, _ := r.NameEntry(stm.Dict, "Subtype"); sub != "Form" {
		return nil
	}
	if l.visited[stm] || l.depth >= l.e.opts.MaxFormDepth {
		l.e.log.Debug("form skipped",
			observability.String("name", name),
			observability.Int("depth", l.depth))
		return nil
	}
	data, err := l.e.doc.Decoded.Data(ctx, stm)
	if err != nil {
		l.e.log.Warn("form content unreadable",
			observability.String("name", name),
			observability.Error("error", err))
		return nil
	}

	saved := l.res
	if res, ok := r.DictEntry(stm.Dict, "Resources"); ok {
		l.res = res
	}
	base := l.gs.Depth()
	l.gs.Save()
	formMatrix, _ := stm.Dict.Get("Matrix")
	if vals, ok := r.Floats(formMatrix); ok && len(vals) == 6 {
		var m matrix.Matrix
		copy(m[:], vals)
		l.gs.CTM = m.Mul(l.gs.CTM)
	}
	l.visited[stm] = true
	l.depth++

	err = l.run(ctx, data)

	l.depth--
	delete(l.visited, stm)
	for l.gs.Depth() > base {
		_ = l.gs.Restore()
	}
	l.res = saved
	return err
}
