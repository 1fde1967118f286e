package gesture

import "github.com/OCAP2/telestrator/pkg/core"

// State is either Idle or Drawing.
type State interface {
	isState()
}

// Idle means no pointer is down.
type Idle struct{}

// Drawing holds the transient gesture between pointer-down and pointer-up.
// Points only grows for freehand; Last tracks the latest pointer position
// for every tool.
type Drawing struct {
	Style  core.Style
	Start  core.Point
	Points []core.Point
	Last   core.Point
}

func (Idle) isState()     {}
func (*Drawing) isState() {}

// finalPoints computes the committed point list for a pointer-up at end.
func (d *Drawing) finalPoints(end core.Point) []core.Point {
	if d.Style.Tool == core.ToolFreehand {
		pts := make([]core.Point, 0, len(d.Points)+1)
		pts = append(pts, d.Points...)
		return append(pts, end)
	}
	return []core.Point{d.Start, end}
}
