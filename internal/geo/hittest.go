package geo

import (
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/OCAP2/telestrator/internal/render"
	"github.com/OCAP2/telestrator/pkg/core"
)

// circleSegments is the number of chords used to approximate a circle.
const circleSegments = 64

// path builds the stroked geometry through points. A path whose points all
// share one position (a zero-length line, a zero-radius circle) is a point.
func path(points ...core.Point) (geom.Geometry, error) {
	if len(points) == 0 {
		return geom.Geometry{}, fmt.Errorf("path has no points")
	}
	if !distinct(points) {
		pt, err := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: points[0].X, Y: points[0].Y}})
		if err != nil {
			return geom.Geometry{}, fmt.Errorf("failed to build point: %w", err)
		}
		return pt.AsGeometry(), nil
	}

	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.X, p.Y)
	}
	ls, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	if err != nil {
		return geom.Geometry{}, fmt.Errorf("failed to build line string: %w", err)
	}
	return ls.AsGeometry(), nil
}

func distinct(points []core.Point) bool {
	for _, p := range points[1:] {
		if p != points[0] {
			return true
		}
	}
	return false
}

// Strokes returns the stroked paths of an annotation in surface pixel space.
// Shapes with an invalid point count have no strokes.
func Strokes(a core.VideoAnnotation) ([]geom.Geometry, error) {
	if !a.Tool.ValidPointCount(len(a.Points)) {
		return nil, nil
	}

	var paths [][]core.Point
	switch a.Tool {
	case core.ToolLine:
		paths = [][]core.Point{{a.Points[0], a.Points[1]}}
	case core.ToolArrow:
		left, right := render.ArrowHead(a.Points[0], a.Points[1])
		paths = [][]core.Point{
			{a.Points[0], a.Points[1]},
			{left, a.Points[1], right},
		}
	case core.ToolCircle:
		paths = [][]core.Point{circle(a.Points[0], render.CircleRadius(a.Points[0], a.Points[1]))}
	case core.ToolFreehand:
		paths = [][]core.Point{a.Points}
	default:
		return nil, nil
	}

	strokes := make([]geom.Geometry, 0, len(paths))
	for _, pts := range paths {
		g, err := path(pts...)
		if err != nil {
			return nil, fmt.Errorf("annotation %s: %w", a.ID, err)
		}
		strokes = append(strokes, g)
	}
	return strokes, nil
}

func circle(center core.Point, radius float64) []core.Point {
	pts := make([]core.Point, 0, circleSegments+1)
	for i := 0; i <= circleSegments; i++ {
		angle := 2 * math.Pi * float64(i) / circleSegments
		pts = append(pts, core.Point{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y + radius*math.Sin(angle),
		})
	}
	return pts
}

// DistanceTo returns the distance from p to the nearest stroke of a, or
// +Inf if a has no drawable geometry.
func DistanceTo(a core.VideoAnnotation, p core.Point) (float64, error) {
	pt, err := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: p.X, Y: p.Y}})
	if err != nil {
		return 0, fmt.Errorf("invalid pointer position: %w", err)
	}
	strokes, err := Strokes(a)
	if err != nil {
		return 0, err
	}

	best := math.Inf(1)
	for _, g := range strokes {
		if d, ok := geom.Distance(pt.AsGeometry(), g); ok && d < best {
			best = d
		}
	}
	return best, nil
}

// HitTest returns the topmost annotation (last in list order) whose stroke
// passes within tolerance pixels of p, widened by half its stroke width.
// Annotations whose geometry cannot be built are never hit.
func HitTest(list []core.VideoAnnotation, p core.Point, tolerance float64) (core.VideoAnnotation, bool) {
	for i := len(list) - 1; i >= 0; i-- {
		a := list[i]
		d, err := DistanceTo(a, p)
		if err != nil {
			continue
		}
		if d <= tolerance+float64(a.StrokeWidth)/2 {
			return a, true
		}
	}
	return core.VideoAnnotation{}, false
}
