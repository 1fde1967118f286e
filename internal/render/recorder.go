package render

import (
	"fmt"
	"sync"

	"github.com/OCAP2/telestrator/pkg/core"
)

// OpKind names a recorded primitive.
type OpKind string

const (
	OpClear     OpKind = "clear"
	OpResize    OpKind = "resize"
	OpSquare    OpKind = "square"
	OpLine      OpKind = "line"
	OpCircle    OpKind = "circle"
	OpArrowhead OpKind = "arrowhead"
	OpPolyline  OpKind = "polyline"
)

// Op is one recorded primitive call.
type Op struct {
	Kind   OpKind
	Points []core.Point
	Radius float64
	Side   float64
	Stroke Stroke
	Color  string
	Width  int
	Height int
}

// Recorder is a non-visual Surface that records every primitive. It is
// used for headless sessions and for tests.
type Recorder struct {
	mu     sync.Mutex
	width  int
	height int
	ops    []Op
}

// NewRecorder creates a recorder with the given initial size.
func NewRecorder(width, height int) *Recorder {
	return &Recorder{width: width, height: height}
}

func (r *Recorder) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *Recorder) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid dimensions: width=%d, height=%d", width, height)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.width, r.height = width, height
	r.ops = append(r.ops, Op{Kind: OpResize, Width: width, Height: height})
	return nil
}

func (r *Recorder) Clear() {
	r.record(Op{Kind: OpClear})
}

func (r *Recorder) FillSquare(center core.Point, side float64, color string) error {
	r.record(Op{Kind: OpSquare, Points: []core.Point{center}, Side: side, Color: color})
	return nil
}

func (r *Recorder) StrokeLine(from, to core.Point, s Stroke) error {
	r.record(Op{Kind: OpLine, Points: []core.Point{from, to}, Stroke: s})
	return nil
}

func (r *Recorder) StrokeCircle(center core.Point, radius float64, s Stroke) error {
	r.record(Op{Kind: OpCircle, Points: []core.Point{center}, Radius: radius, Stroke: s})
	return nil
}

func (r *Recorder) StrokeArrowhead(tip, left, right core.Point, s Stroke) error {
	r.record(Op{Kind: OpArrowhead, Points: []core.Point{tip, left, right}, Stroke: s})
	return nil
}

func (r *Recorder) StrokePolyline(points []core.Point, s Stroke) error {
	r.record(Op{Kind: OpPolyline, Points: append([]core.Point(nil), points...), Stroke: s})
	return nil
}

// Ops returns a copy of every recorded primitive.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.ops...)
}

// SinceClear returns the primitives drawn after the last clear, which is
// what is visible right now.
func (r *Recorder) SinceClear() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := 0
	for i, op := range r.ops {
		if op.Kind == OpClear || op.Kind == OpResize {
			start = i + 1
		}
	}
	return append([]Op(nil), r.ops[start:]...)
}

// Reset forgets all recorded primitives.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = nil
}

func (r *Recorder) record(op Op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}
