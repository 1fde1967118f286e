// Package temporal decides which saved annotations are shown at the
// current play-head position.
package temporal

import (
	"math"

	"github.com/OCAP2/telestrator/internal/render"
	"github.com/OCAP2/telestrator/pkg/core"
)

// Window is the tolerance, in seconds, on either side of an annotation's
// timestamp during which it stays on screen.
const Window = 0.5

// Visible reports whether a should be shown at playback time t.
func Visible(a core.VideoAnnotation, t float64) bool {
	return math.Abs(a.Timestamp-t) <= Window
}

// Select returns the annotations visible at t, preserving list order.
func Select(list []core.VideoAnnotation, t float64) []core.VideoAnnotation {
	var out []core.VideoAnnotation
	for _, a := range list {
		if Visible(a, t) {
			out = append(out, a)
		}
	}
	return out
}

// Selector redraws a surface with the annotations visible at a time.
type Selector struct {
	surface render.Surface
}

// NewSelector creates a selector drawing onto surface.
func NewSelector(surface render.Surface) *Selector {
	return &Selector{surface: surface}
}

// Render clears the surface and draws everything visible at t. It returns
// the drawn subset.
func (s *Selector) Render(list []core.VideoAnnotation, t float64) ([]core.VideoAnnotation, error) {
	visible := Select(list, t)
	return visible, render.Redraw(s.surface, visible)
}
