// Package coords converts between the three coordinate systems an edit passes
// through: PDF user space (origin bottom-left, y up), device space (origin
// top-left, y down, multiplied by the render scale) and the page box.
package coords

import (
	"errors"
	"math"
)

type Point struct{ X, Y float64 }

// Rect is an axis-aligned rectangle anchored at (X, Y).
type Rect struct{ X, Y, Width, Height float64 }

// Box is a PDF rectangle given by its lower-left and upper-right corners.
type Box struct{ LLX, LLY, URX, URY float64 }

// Letter is used when a page declares no usable MediaBox.
var Letter = Box{0, 0, 612, 792}

func (b Box) Width() float64  { return b.URX - b.LLX }
func (b Box) Height() float64 { return b.URY - b.LLY }

// Normalize orders the corners so that LL is below and left of UR.
func (b Box) Normalize() Box {
	if b.LLX > b.URX {
		b.LLX, b.URX = b.URX, b.LLX
	}
	if b.LLY > b.URY {
		b.LLY, b.URY = b.URY, b.LLY
	}
	return b
}

// BoxFrom builds a box from a four-number array.
func BoxFrom(vals []float64) (Box, bool) {
	if len(vals) != 4 {
		return Box{}, false
	}
	b := Box{vals[0], vals[1], vals[2], vals[3]}.Normalize()
	if b.Width() <= 0 || b.Height() <= 0 {
		return Box{}, false
	}
	return b, true
}

var ErrInvalidScale = errors.New("scale must be positive and finite")

// PageGeometry fixes the render scale and page box for one page.
type PageGeometry struct {
	Scale   float64
	Height  float64 // page height in PDF units
	OriginX float64 // lower-left corner of the page box
	OriginY float64
}

func NewPageGeometry(box Box, scale float64) (PageGeometry, error) {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return PageGeometry{}, ErrInvalidScale
	}
	return PageGeometry{Scale: scale, Height: box.Height(), OriginX: box.LLX, OriginY: box.LLY}, nil
}

// ViewportHeight is the page height in device pixels.
func (g PageGeometry) ViewportHeight() float64 { return g.Height * g.Scale }

// ToDevice maps a point in PDF user space to device space.
func (g PageGeometry) ToDevice(x, y float64) Point {
	return Point{
		X: (x - g.OriginX) * g.Scale,
		Y: g.ViewportHeight() - (y-g.OriginY)*g.Scale,
	}
}

// ToPDF maps a device point back to PDF user space.
func (g PageGeometry) ToPDF(p Point) Point {
	return Point{
		X: p.X/g.Scale + g.OriginX,
		Y: g.Height - p.Y/g.Scale + g.OriginY,
	}
}

// Length converts a device length to PDF units.
func (g PageGeometry) Length(d float64) float64 { return d / g.Scale }

// MaskRect converts the device box of a text run into the PDF rectangle
// painted over it. The rectangle spans from Height below the baseline up to
// the baseline. margin is added to the width in PDF units.
func (g PageGeometry) MaskRect(r Rect, margin float64) Rect {
	return Rect{
		X:      r.X/g.Scale + g.OriginX,
		Y:      g.Height - r.Y/g.Scale - r.Height/g.Scale + g.OriginY,
		Width:  r.Width/g.Scale + margin,
		Height: r.Height / g.Scale,
	}
}
