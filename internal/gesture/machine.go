// Package gesture turns pointer input into finished annotations.
package gesture

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/OCAP2/telestrator/internal/render"
	"github.com/OCAP2/telestrator/pkg/core"
)

// Clock reports the current video playback time in seconds.
type Clock interface {
	CurrentTime() float64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() float64

func (f ClockFunc) CurrentTime() float64 { return f() }

// StyleSource reports the toolbar selection at pointer-down.
type StyleSource interface {
	Style() core.Style
}

// StyleFunc adapts a function to StyleSource.
type StyleFunc func() core.Style

func (f StyleFunc) Style() core.Style { return f() }

// Dependencies holds the collaborators of a Machine.
type Dependencies struct {
	Surface render.Surface
	Clock   Clock
	Style   StyleSource
	Logger  *slog.Logger

	// Optional, for tests
	NewID func() string
	Now   func() time.Time
}

// Machine is the pointer-gesture state machine: Idle -> Drawing -> Idle.
// It is not safe for concurrent use.
type Machine struct {
	surface render.Surface
	clock   Clock
	style   StyleSource
	logger  *slog.Logger
	newID   func() string
	now     func() time.Time

	state State
}

// New creates a Machine in the Idle state.
func New(deps Dependencies) *Machine {
	m := &Machine{
		surface: deps.Surface,
		clock:   deps.Clock,
		style:   deps.Style,
		logger:  deps.Logger,
		newID:   deps.NewID,
		now:     deps.Now,
		state:   Idle{},
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.style == nil {
		m.style = StyleFunc(func() core.Style { return core.DefaultStyle })
	}
	if m.clock == nil {
		m.clock = ClockFunc(func() float64 { return 0 })
	}
	return m
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Drawing reports whether a gesture is in progress.
func (m *Machine) Drawing() bool {
	_, ok := m.state.(*Drawing)
	return ok
}

// PointerDown starts a gesture at p and shows the start marker. A second
// pointer-down while drawing is ignored.
func (m *Machine) PointerDown(p core.Point) {
	if m.Drawing() {
		return
	}

	style := m.style.Style()
	style.StrokeWidth = core.ClampStrokeWidth(style.StrokeWidth)
	m.state = &Drawing{
		Style:  style,
		Start:  p,
		Points: []core.Point{p},
		Last:   p,
	}

	if err := render.DrawMarker(m.surface, p, style.Color); err != nil {
		m.logger.Warn("Failed to draw start marker", "error", err)
	}
}

// PointerMove records p. Only freehand keeps the point and strokes the new
// segment immediately; moves while Idle are ignored.
func (m *Machine) PointerMove(p core.Point) {
	d, ok := m.state.(*Drawing)
	if !ok {
		return
	}
	d.Last = p

	if d.Style.Tool != core.ToolFreehand {
		return
	}
	prev := d.Points[len(d.Points)-1]
	d.Points = append(d.Points, p)

	if err := m.surface.StrokeLine(prev, p, render.StrokeFor(d.Style)); err != nil {
		m.logger.Warn("Failed to draw freehand segment", "error", err)
	}
}

// PointerUp finishes the gesture at p, draws the final shape and returns
// the new annotation. ok is false when no gesture was in progress.
func (m *Machine) PointerUp(p core.Point) (a core.VideoAnnotation, ok bool) {
	d, drawing := m.state.(*Drawing)
	if !drawing {
		return core.VideoAnnotation{}, false
	}
	m.state = Idle{}

	points := d.finalPoints(p)
	if err := render.DrawShape(m.surface, d.Style.Tool, points, render.StrokeFor(d.Style)); err != nil {
		m.logger.Warn("Failed to draw shape", "tool", d.Style.Tool, "error", err)
	}

	a = core.VideoAnnotation{
		ID:          m.newID(),
		Timestamp:   m.clock.CurrentTime(),
		Tool:        d.Style.Tool,
		Points:      points,
		Color:       d.Style.Color,
		StrokeWidth: d.Style.StrokeWidth,
		CreatedAt:   m.now(),
	}
	m.logger.Debug("Gesture complete", "annotationId", a.ID, "tool", a.Tool, "points", len(a.Points), "timestamp", a.Timestamp)
	return a, true
}

// PointerLeave ends the gesture as if the pointer were released at the
// last known position.
func (m *Machine) PointerLeave() (core.VideoAnnotation, bool) {
	d, ok := m.state.(*Drawing)
	if !ok {
		return core.VideoAnnotation{}, false
	}
	return m.PointerUp(d.Last)
}

// Abort discards any gesture in progress without emitting an annotation.
// It reports whether something was discarded.
func (m *Machine) Abort() bool {
	if !m.Drawing() {
		return false
	}
	m.state = Idle{}
	m.logger.Debug("Gesture aborted")
	return true
}

// DrawProgress re-renders the feedback of the gesture in progress: the
// start marker and, for freehand, the path so far. Used after the surface
// was cleared mid-gesture.
func (m *Machine) DrawProgress() error {
	d, ok := m.state.(*Drawing)
	if !ok {
		return nil
	}
	if err := render.DrawMarker(m.surface, d.Start, d.Style.Color); err != nil {
		return err
	}
	if d.Style.Tool == core.ToolFreehand && len(d.Points) >= 2 {
		return m.surface.StrokePolyline(d.Points, render.StrokeFor(d.Style))
	}
	return nil
}
