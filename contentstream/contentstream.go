package contentstream

import (
	"context"
	"errors"

	"seehuhn.de/go/geom/matrix"
)

// OperatorHandler reacts to one operator during Process.
type OperatorHandler interface {
	Handle(ctx context.Context, op Operation) error
}

// HandlerFunc adapts a function to OperatorHandler.
type HandlerFunc func(ctx context.Context, op Operation) error

func (f HandlerFunc) Handle(ctx context.Context, op Operation) error { return f(ctx, op) }

// ErrStop ends Process early without reporting a failure.
var ErrStop = errors.New("stop processing")

// Processor dispatches parsed operations to registered handlers. Operators
// without a handler are ignored.
type Processor struct {
	handlers map[string]OperatorHandler
}

func NewProcessor() *Processor {
	return &Processor{handlers: make(map[string]OperatorHandler)}
}

func (p *Processor) RegisterHandler(op string, h OperatorHandler) { p.handlers[op] = h }

// Handles registers one function for several operators.
func (p *Processor) Handles(f HandlerFunc, ops ...string) {
	for _, op := range ops {
		p.handlers[op] = f
	}
}

func (p *Processor) Process(ctx context.Context, ops []Operation) error {
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		h, ok := p.handlers[op.Operator]
		if !ok {
			continue
		}
		if err := h.Handle(ctx, op); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

// Color is a device fill or stroke colour. Components has 1, 3 or 4 entries
// for gray, RGB and CMYK.
type Color struct {
	Space      string
	Components []float64
}

// RGB converts the colour to RGB components in [0, 1].
func (c Color) RGB() (r, g, b float64) {
	switch len(c.Components) {
	case 1:
		return c.Components[0], c.Components[0], c.Components[0]
	case 3:
		return c.Components[0], c.Components[1], c.Components[2]
	case 4:
		k := c.Components[3]
		return (1 - c.Components[0]) * (1 - k), (1 - c.Components[1]) * (1 - k), (1 - c.Components[2]) * (1 - k)
	}
	return 0, 0, 0
}

// Black is the initial fill colour.
var Black = Color{Space: "DeviceGray", Components: []float64{0}}

// TextState holds the text parameters that survive BT/ET and q/Q.
type TextState struct {
	Font        string // resource name selected by Tf
	FontSize    float64
	CharSpacing float64
	WordSpacing float64
	HScale      float64 // Tz / 100
	Leading     float64
	Rise        float64
	RenderMode  TextRenderMode
}

// GraphicsState is the subset of the PDF graphics state that affects where and
// how text lands on the page.
type GraphicsState struct {
	CTM   matrix.Matrix
	Fill  Color
	Text  TextState
	stack []savedState
}

type savedState struct {
	ctm  matrix.Matrix
	fill Color
	text TextState
}

func NewGraphicsState(ctm matrix.Matrix) *GraphicsState {
	return &GraphicsState{CTM: ctm, Fill: Black, Text: TextState{HScale: 1}}
}

func (gs *GraphicsState) Save() {
	gs.stack = append(gs.stack, savedState{ctm: gs.CTM, fill: gs.Fill, text: gs.Text})
}

// Restore pops the last saved state. An unbalanced Q is reported and leaves
// the state unchanged.
func (gs *GraphicsState) Restore() error {
	n := len(gs.stack)
	if n == 0 {
		return errors.New("state stack empty")
	}
	s := gs.stack[n-1]
	gs.CTM, gs.Fill, gs.Text = s.ctm, s.fill, s.text
	gs.stack = gs.stack[:n-1]
	return nil
}

// Depth is the number of saved states.
func (gs *GraphicsState) Depth() int { return len(gs.stack) }

// Unbalanced counts q operators that are never closed by a matching Q.
func Unbalanced(ops []Operation) int {
	depth := 0
	for _, op := range ops {
		switch op.Operator {
		case "q":
			depth++
		case "Q":
			if depth > 0 {
				depth--
			}
		}
	}
	return depth
}
