package contentstream

import (
	"bytes"
	"fmt"

	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/writer"
)

// Builder accumulates content stream operators.
type Builder struct {
	buf bytes.Buffer
}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) op(operator string, nums ...float64) *Builder {
	for _, n := range nums {
		b.buf.WriteString(writer.FormatNumber(n))
		b.buf.WriteByte(' ')
	}
	b.buf.WriteString(operator)
	b.buf.WriteByte('\n')
	return b
}

func (b *Builder) Save() *Builder    { return b.op("q") }
func (b *Builder) Restore() *Builder { return b.op("Q") }

func (b *Builder) SetFillGray(g float64) *Builder { return b.op("g", g) }

func (b *Builder) SetFillRGB(r, g, bl float64) *Builder { return b.op("rg", r, g, bl) }

func (b *Builder) SetFillCMYK(c, m, y, k float64) *Builder { return b.op("k", c, m, y, k) }

// SetFill emits the operator matching the colour's component count.
func (b *Builder) SetFill(c Color) *Builder {
	switch len(c.Components) {
	case 1:
		return b.SetFillGray(c.Components[0])
	case 4:
		return b.SetFillCMYK(c.Components[0], c.Components[1], c.Components[2], c.Components[3])
	case 3:
		return b.SetFillRGB(c.Components[0], c.Components[1], c.Components[2])
	}
	return b.SetFillGray(0)
}

func (b *Builder) Rectangle(x, y, w, h float64) *Builder { return b.op("re", x, y, w, h) }
func (b *Builder) Fill() *Builder                        { return b.op("f") }

func (b *Builder) BeginText() *Builder { return b.op("BT") }
func (b *Builder) EndText() *Builder   { return b.op("ET") }

func (b *Builder) SetFont(resource string, size float64) *Builder {
	b.buf.Write(writer.SerializeValue(raw.NameLiteral(resource)))
	b.buf.WriteByte(' ')
	return b.op("Tf", size)
}

func (b *Builder) SetTextMatrix(a, bb, c, d, e, f float64) *Builder {
	return b.op("Tm", a, bb, c, d, e, f)
}

// ShowText writes encoded glyph bytes as a hex string.
func (b *Builder) ShowText(encoded []byte) *Builder {
	fmt.Fprintf(&b.buf, "<%X> Tj\n", encoded)
	return b
}

// Append writes an already parsed operation back in file syntax.
func (b *Builder) Append(op Operation) *Builder {
	if op.Inline != nil {
		b.buf.WriteString("BI")
		for _, k := range op.Inline.Params.Keys() {
			v, _ := op.Inline.Params.Get(k)
			b.buf.WriteByte(' ')
			b.buf.Write(writer.SerializeValue(raw.NameLiteral(k)))
			b.buf.WriteByte(' ')
			b.buf.Write(writer.SerializeValue(v))
		}
		b.buf.WriteString(" ID ")
		b.buf.Write(op.Inline.Data)
		b.buf.WriteString("\nEI\n")
		return b
	}
	for _, o := range op.Operands {
		b.buf.Write(writer.SerializeValue(o))
		b.buf.WriteByte(' ')
	}
	b.buf.WriteString(op.Operator)
	b.buf.WriteByte('\n')
	return b
}

func (b *Builder) Len() int { return b.buf.Len() }

// Bytes returns a copy of the accumulated stream.
func (b *Builder) Bytes() []byte { return bytes.Clone(b.buf.Bytes()) }
