// Package render draws annotation shapes onto an overlay surface.
//
// All coordinates are in the surface's own pixel space. Nothing is ever
// filled except the pointer-down marker.
package render

import "github.com/OCAP2/telestrator/pkg/core"

// Stroke is the pen used for a primitive.
type Stroke struct {
	Color string
	Width float64
}

// StrokeFor returns the pen described by a style.
func StrokeFor(s core.Style) Stroke {
	return Stroke{Color: s.Color, Width: float64(s.StrokeWidth)}
}

// Surface is the drawing target behind the overlay. Implementations own
// their backing store; callers must not use a Surface from more than one
// goroutine at a time.
type Surface interface {
	// Size returns the backing-store dimensions in pixels.
	Size() (width, height int)
	// Resize replaces the backing store. Contents are discarded.
	Resize(width, height int) error
	// Clear erases the whole surface.
	Clear()

	FillSquare(center core.Point, side float64, color string) error
	StrokeLine(from, to core.Point, s Stroke) error
	StrokeCircle(center core.Point, radius float64, s Stroke) error
	StrokeArrowhead(tip, left, right core.Point, s Stroke) error
	StrokePolyline(points []core.Point, s Stroke) error
}
