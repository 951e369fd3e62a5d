package contentstream

import "github.com/wudi/pdfedit/ir/raw"

// Operation is one operator with the operands that preceded it.
type Operation struct {
	Operator string
	Operands []raw.Object
	// Inline is set for the BI operator; ID and EI are folded into it.
	Inline *InlineImage
}

// InlineImage holds the parameters and undecoded bytes of a BI ... EI block.
type InlineImage struct {
	Params *raw.DictObj
	Data   []byte
}

// TextRenderMode matches PDF text rendering modes set via Tr operator.
type TextRenderMode int

const (
	TextFill TextRenderMode = iota
	TextStroke
	TextFillStroke
	TextInvisible
	TextFillClip
	TextStrokeClip
	TextFillStrokeClip
	TextClip
)

// Number returns operand i as a float.
func (op Operation) Number(i int) (float64, bool) {
	if i < 0 || i >= len(op.Operands) {
		return 0, false
	}
	n, ok := op.Operands[i].(raw.NumberObj)
	return n.Float(), ok
}

// Numbers returns all operands as floats, failing if any is not numeric.
func (op Operation) Numbers() ([]float64, bool) {
	out := make([]float64, len(op.Operands))
	for i := range op.Operands {
		v, ok := op.Number(i)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// Name returns operand i as a name.
func (op Operation) Name(i int) (string, bool) {
	if i < 0 || i >= len(op.Operands) {
		return "", false
	}
	n, ok := op.Operands[i].(raw.NameObj)
	return n.Val, ok
}

// Bytes returns operand i as string bytes.
func (op Operation) Bytes(i int) ([]byte, bool) {
	if i < 0 || i >= len(op.Operands) {
		return nil, false
	}
	s, ok := op.Operands[i].(raw.StringObj)
	return s.Bytes, ok
}
