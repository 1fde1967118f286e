package render

import (
	"image"
	"io"

	"github.com/gogpu/gg"

	"github.com/OCAP2/telestrator/pkg/core"
)

// Canvas is a software raster Surface backed by a gg drawing context.
type Canvas struct {
	dc *gg.Context
}

// NewCanvas creates a transparent canvas. Non-positive dimensions fall back
// to 1x1 until the first real resize arrives.
func NewCanvas(width, height int) *Canvas {
	if width <= 0 || height <= 0 {
		width, height = 1, 1
	}
	return &Canvas{dc: gg.NewContext(width, height)}
}

func (c *Canvas) Size() (int, int) {
	return c.dc.Width(), c.dc.Height()
}

func (c *Canvas) Resize(width, height int) error {
	return c.dc.Resize(width, height)
}

func (c *Canvas) Clear() {
	c.dc.Clear()
}

func (c *Canvas) FillSquare(center core.Point, side float64, color string) error {
	c.dc.SetHexColor(color)
	c.dc.DrawRectangle(center.X-side/2, center.Y-side/2, side, side)
	return c.dc.Fill()
}

func (c *Canvas) StrokeLine(from, to core.Point, s Stroke) error {
	c.pen(s)
	c.dc.DrawLine(from.X, from.Y, to.X, to.Y)
	return c.dc.Stroke()
}

func (c *Canvas) StrokeCircle(center core.Point, radius float64, s Stroke) error {
	c.pen(s)
	c.dc.DrawCircle(center.X, center.Y, radius)
	return c.dc.Stroke()
}

func (c *Canvas) StrokeArrowhead(tip, left, right core.Point, s Stroke) error {
	c.pen(s)
	c.dc.DrawLine(tip.X, tip.Y, left.X, left.Y)
	c.dc.DrawLine(tip.X, tip.Y, right.X, right.Y)
	return c.dc.Stroke()
}

func (c *Canvas) StrokePolyline(points []core.Point, s Stroke) error {
	if len(points) == 0 {
		return nil
	}
	c.pen(s)
	c.dc.MoveTo(points[0].X, points[0].Y)
	for _, p := range points[1:] {
		c.dc.LineTo(p.X, p.Y)
	}
	return c.dc.Stroke()
}

// Image returns a snapshot of the current pixels.
func (c *Canvas) Image() image.Image {
	return c.dc.Image()
}

// EncodePNG writes the current pixels as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	return c.dc.EncodePNG(w)
}

func (c *Canvas) pen(s Stroke) {
	c.dc.SetHexColor(s.Color)
	c.dc.SetLineWidth(s.Width)
	c.dc.SetLineCap(gg.LineCapRound)
	c.dc.SetLineJoin(gg.LineJoinRound)
}
