package extractor

import (
	"context"
	"math"
	"strings"

	"seehuhn.de/go/geom/matrix"

	"github.com/wudi/pdfedit/contentstream"
	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/fonts"
	"github.com/wudi/pdfedit/ir/raw"
)

// layout is the interpreter state for one page.
type layout struct {
	e    *Extractor
	geom coords.PageGeometry
	page int

	gs        *contentstream.GraphicsState
	tm, tlm   matrix.Matrix
	fillSpace string
	res       *raw.DictObj
	depth     int
	visited   map[*raw.StreamObj]bool
	items     int
	runs      []TextRun
}

func (l *layout) processor() *contentstream.Processor {
	p := contentstream.NewProcessor()
	p.Handles(l.state, "q", "Q", "cm")
	p.Handles(l.textObject, "BT", "ET")
	p.Handles(l.textState, "Tf", "TL", "Tc", "Tw", "Tz", "Ts", "Tr")
	p.Handles(l.position, "Tm", "Td", "TD", "T*")
	p.Handles(l.show, "Tj", "TJ", "'", "\"")
	p.Handles(l.fill, "g", "rg", "k", "cs", "sc", "scn")
	p.Handles(l.xobject, "Do")
	return p
}

func (l *layout) state(_ context.Context, op contentstream.Operation) error {
	switch op.Operator {
	case "q":
		l.gs.Save()
	case "Q":
		if err := l.gs.Restore(); err != nil {
			l.e.log.Debug("unbalanced Q ignored")
		}
	case "cm":
		if m, ok := matrixOperands(op); ok {
			l.gs.CTM = m.Mul(l.gs.CTM)
		}
	}
	return nil
}

func (l *layout) textObject(_ context.Context, op contentstream.Operation) error {
	if op.Operator == "BT" {
		l.tm, l.tlm = matrix.Identity, matrix.Identity
	}
	return nil
}

func (l *layout) textState(_ context.Context, op contentstream.Operation) error {
	ts := &l.gs.Text
	if op.Operator == "Tf" {
		name, ok1 := op.Name(0)
		size, ok2 := op.Number(1)
		if ok1 && ok2 {
			ts.Font, ts.FontSize = name, size
		}
		return nil
	}
	v, ok := op.Number(0)
	if !ok {
		return nil
	}
	switch op.Operator {
	case "TL":
		ts.Leading = v
	case "Tc":
		ts.CharSpacing = v
	case "Tw":
		ts.WordSpacing = v
	case "Tz":
		ts.HScale = v / 100
	case "Ts":
		ts.Rise = v
	case "Tr":
		ts.RenderMode = contentstream.TextRenderMode(int(v))
	}
	return nil
}

func (l *layout) position(_ context.Context, op contentstream.Operation) error {
	switch op.Operator {
	case "Tm":
		if m, ok := matrixOperands(op); ok {
			l.tm, l.tlm = m, m
		}
	case "Td", "TD":
		tx, ok1 := op.Number(0)
		ty, ok2 := op.Number(1)
		if !ok1 || !ok2 {
			return nil
		}
		if op.Operator == "TD" {
			l.gs.Text.Leading = -ty
		}
		l.moveLine(tx, ty)
	case "T*":
		l.nextLine()
	}
	return nil
}

func (l *layout) moveLine(tx, ty float64) {
	l.tlm = matrix.Translate(tx, ty).Mul(l.tlm)
	l.tm = l.tlm
}

func (l *layout) nextLine() { l.moveLine(0, -l.gs.Text.Leading) }

func (l *layout) show(ctx context.Context, op contentstream.Operation) error {
	switch op.Operator {
	case "Tj":
		if s, ok := op.Bytes(0); ok {
			l.emit(ctx, []raw.Object{raw.Str(s)})
		}
	case "TJ":
		if len(op.Operands) == 0 {
			return nil
		}
		if arr, ok := op.Operands[len(op.Operands)-1].(*raw.ArrayObj); ok {
			l.emit(ctx, arr.Items)
		}
	case "'":
		l.nextLine()
		if s, ok := op.Bytes(0); ok {
			l.emit(ctx, []raw.Object{raw.Str(s)})
		}
	case "\"":
		aw, ok1 := op.Number(0)
		ac, ok2 := op.Number(1)
		if ok1 && ok2 {
			l.gs.Text.WordSpacing, l.gs.Text.CharSpacing = aw, ac
		}
		l.nextLine()
		if s, ok := op.Bytes(2); ok {
			l.emit(ctx, []raw.Object{raw.Str(s)})
		}
	}
	return nil
}

// emit lays out one show operation. Strings advance the text matrix by
// their glyph widths; numbers in a TJ array move it back by thousandths of
// the font size.
func (l *layout) emit(ctx context.Context, parts []raw.Object) {
	ts := l.gs.Text
	fi := l.font(ctx, ts.Font)
	start := matrix.Matrix{ts.FontSize * ts.HScale, 0, 0, ts.FontSize, 0, ts.Rise}.Mul(l.tm).Mul(l.gs.CTM)
	origin := l.tm

	var text strings.Builder
	advance := 0.0
	for _, part := range parts {
		switch v := part.(type) {
		case raw.StringObj:
			for _, g := range fi.Decode(v.Bytes) {
				tx := g.Width*ts.FontSize + ts.CharSpacing
				if g.Space {
					tx += ts.WordSpacing
				}
				advance += tx * ts.HScale
				text.WriteString(g.Text)
			}
		case raw.NumberObj:
			advance -= v.Float() / 1000 * ts.FontSize * ts.HScale
		}
	}
	l.tm = matrix.Translate(advance, 0).Mul(l.tm)

	index := l.items
	l.items++
	if blank(text.String()) {
		return
	}
	user := origin.Mul(l.gs.CTM)
	scale := l.geom.Scale
	pos := l.geom.ToDevice(start[4], start[5])
	run := TextRun{
		ID:        runID(l.page, index),
		Text:      text.String(),
		X:         pos.X,
		Y:         pos.Y,
		Width:     math.Abs(advance) * math.Hypot(user[0], user[1]) * scale,
		Height:    math.Hypot(start[2], start[3]) * scale,
		FontSize:  start[0] * scale,
		FontID:    fi.ID,
		Transform: [6]float64(start),
		Color:     cloneColor(l.gs.Fill),
	}
	run.Family, run.Style = fonts.Decompose(fi.ID)
	run.Source = coords.Rect{X: run.X, Y: run.Y, Width: run.Width, Height: run.Height}
	l.runs = append(l.runs, run)
}

func (l *layout) fill(_ context.Context, op contentstream.Operation) error {
	switch op.Operator {
	case "g":
		l.setFill("DeviceGray", op, 1)
	case "rg":
		l.setFill("DeviceRGB", op, 3)
	case "k":
		l.setFill("DeviceCMYK", op, 4)
	case "cs":
		name, _ := op.Name(0)
		l.fillSpace = name
		switch name {
		case "DeviceRGB", "CalRGB":
			l.gs.Fill = contentstream.Color{Space: name, Components: []float64{0, 0, 0}}
		case "DeviceCMYK":
			l.gs.Fill = contentstream.Color{Space: name, Components: []float64{0, 0, 0, 1}}
		default:
			l.gs.Fill = contentstream.Color{Space: name, Components: []float64{0}}
		}
	case "sc", "scn":
		vals := make([]float64, 0, len(op.Operands))
		for i := range op.Operands {
			if v, ok := op.Number(i); ok {
				vals = append(vals, v)
			}
		}
		if n := len(vals); n == 1 || n == 3 || n == 4 {
			l.gs.Fill = contentstream.Color{Space: l.fillSpace, Components: vals}
		}
	}
	return nil
}

func (l *layout) setFill(space string, op contentstream.Operation, n int) {
	vals, ok := op.Numbers()
	if !ok || len(vals) != n {
		return
	}
	l.fillSpace = space
	l.gs.Fill = contentstream.Color{Space: space, Components: vals}
}

func cloneColor(c contentstream.Color) contentstream.Color {
	return contentstream.Color{Space: c.Space, Components: append([]float64(nil), c.Components...)}
}

func matrixOperands(op contentstream.Operation) (matrix.Matrix, bool) {
	vals, ok := op.Numbers()
	if !ok || len(vals) != 6 {
		return matrix.Matrix{}, false
	}
	var m matrix.Matrix
	copy(m[:], vals)
	return m, true
}
