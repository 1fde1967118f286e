package render

import (
	"errors"
	"fmt"
	"math"

	"github.com/OCAP2/telestrator/pkg/core"
)

const (
	// ArrowHeadLength is the length of each arrowhead barb in pixels.
	ArrowHeadLength = 15.0
	// ArrowHeadAngle is the barb angle relative to the shaft.
	ArrowHeadAngle = math.Pi / 6
	// MarkerSize is the side of the square shown on pointer-down.
	MarkerSize = 6.0
)

// ArrowHead returns the far ends of the two barbs for an arrow from
// "from" to "to". Both barbs start at "to" and point back along the shaft.
func ArrowHead(from, to core.Point) (left, right core.Point) {
	theta := math.Atan2(to.Y-from.Y, to.X-from.X)
	left = core.Point{
		X: to.X - ArrowHeadLength*math.Cos(theta-ArrowHeadAngle),
		Y: to.Y - ArrowHeadLength*math.Sin(theta-ArrowHeadAngle),
	}
	right = core.Point{
		X: to.X - ArrowHeadLength*math.Cos(theta+ArrowHeadAngle),
		Y: to.Y - ArrowHeadLength*math.Sin(theta+ArrowHeadAngle),
	}
	return left, right
}

// CircleRadius is the radius of a circle annotation: center is points[0]
// and the second point lies on the circle.
func CircleRadius(center, edge core.Point) float64 {
	return center.Distance(edge)
}

// DrawShape renders one tool shape with the given pen.
func DrawShape(s Surface, tool core.Tool, points []core.Point, pen Stroke) error {
	if !tool.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidTool, tool)
	}
	if !tool.ValidPointCount(len(points)) {
		return fmt.Errorf("%w: %s with %d points", core.ErrInvalidPoints, tool, len(points))
	}

	switch tool {
	case core.ToolLine:
		return s.StrokeLine(points[0], points[1], pen)
	case core.ToolCircle:
		return s.StrokeCircle(points[0], CircleRadius(points[0], points[1]), pen)
	case core.ToolArrow:
		if err := s.StrokeLine(points[0], points[1], pen); err != nil {
			return err
		}
		left, right := ArrowHead(points[0], points[1])
		return s.StrokeArrowhead(points[1], left, right, pen)
	default:
		return s.StrokePolyline(points, pen)
	}
}

// DrawAnnotation renders a saved annotation.
func DrawAnnotation(s Surface, a core.VideoAnnotation) error {
	return DrawShape(s, a.Tool, a.Points, StrokeFor(a.Style()))
}

// DrawMarker shows the pointer-down feedback square centered on p.
func DrawMarker(s Surface, p core.Point, color string) error {
	return s.FillSquare(p, MarkerSize, color)
}

// Redraw clears the surface and renders list in order. A failing shape
// does not stop the rest from drawing; all errors are joined.
func Redraw(s Surface, list []core.VideoAnnotation) error {
	s.Clear()
	var errs []error
	for _, a := range list {
		if err := DrawAnnotation(s, a); err != nil {
			errs = append(errs, fmt.Errorf("annotation %s: %w", a.ID, err))
		}
	}
	return errors.Join(errs...)
}
