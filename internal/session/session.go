// Package session wires the annotation engine for one open video: surface
// sizing, gesture capture, temporal redraw and the annotation store.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/OCAP2/telestrator/internal/dispatcher"
	"github.com/OCAP2/telestrator/internal/geo"
	"github.com/OCAP2/telestrator/internal/gesture"
	"github.com/OCAP2/telestrator/internal/logging"
	"github.com/OCAP2/telestrator/internal/parser"
	"github.com/OCAP2/telestrator/internal/render"
	"github.com/OCAP2/telestrator/internal/shortcut"
	"github.com/OCAP2/telestrator/internal/store"
	"github.com/OCAP2/telestrator/internal/surface"
	"github.com/OCAP2/telestrator/internal/temporal"
	"github.com/OCAP2/telestrator/pkg/core"
)

// DefaultHitTolerance is the delete-at-point reach in pixels beyond the
// stroke itself.
const DefaultHitTolerance = 6.0

// ErrNothingHit is returned by DeleteAt when no visible annotation is near.
var ErrNothingHit = errors.New("no annotation at point")

// Dependencies holds the collaborators of a Session.
type Dependencies struct {
	VideoID   string
	Surface   render.Surface
	Persister store.Persister // nil keeps annotations in memory only
	Logger    *slog.Logger
	Journal   *logging.Journal

	Style        core.Style
	Keymap       shortcut.Keymap
	HitTolerance float64
	// PersistBuffer is the queue size of the persist handler.
	PersistBuffer int

	// OnError receives persistence failures after the store rolled back.
	OnError func(error)

	// Meter receives the annotation counters; nil uses the global provider.
	Meter metric.Meter

	// Optional, for tests
	NewID func() string
	Now   func() time.Time
}

// Session is the annotation engine of one open video. Input methods are
// safe to call from any goroutine; they are serialized internally.
type Session struct {
	videoID  string
	surface  render.Surface
	logger   *slog.Logger
	journal  *logging.Journal
	keymap   shortcut.Keymap
	parser   *parser.Parser
	onError  func(error)
	hitReach float64
	buffer   int

	manager  *surface.Manager
	machine  *gesture.Machine
	selector *temporal.Selector
	store    *store.Store

	// set by RegisterHandlers; nil persists synchronously
	dispatcher *dispatcher.Dispatcher

	// enabled and currentTime are written under mu and may be read
	// without it, so log context providers never contend for the lock.
	mu          sync.Mutex
	enabled     atomic.Bool
	currentTime atomic.Uint64 // math.Float64bits
	style       core.Style
	visible     []core.VideoAnnotation
}

// New creates a session with annotation mode off.
func New(deps Dependencies) (*Session, error) {
	if deps.Surface == nil {
		return nil, errors.New("session: surface is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Journal == nil {
		deps.Journal = logging.NewJournal(nil)
	}
	if deps.Keymap == nil {
		deps.Keymap = shortcut.Default()
	}
	if deps.HitTolerance <= 0 {
		deps.HitTolerance = DefaultHitTolerance
	}
	if deps.PersistBuffer <= 0 {
		deps.PersistBuffer = DefaultPersistBuffer
	}
	if deps.Style == (core.Style{}) {
		deps.Style = core.DefaultStyle
	}
	deps.Style.StrokeWidth = core.ClampStrokeWidth(deps.Style.StrokeWidth)
	if err := deps.Style.Validate(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	logger := deps.Logger.With("videoId", deps.VideoID)

	st, err := store.New(deps.VideoID, deps.Persister, deps.Logger, store.WithMeter(deps.Meter))
	if err != nil {
		return nil, err
	}

	s := &Session{
		videoID:  deps.VideoID,
		surface:  deps.Surface,
		logger:   logger,
		journal:  deps.Journal,
		keymap:   deps.Keymap,
		parser:   parser.NewParser(logger),
		onError:  deps.OnError,
		hitReach: deps.HitTolerance,
		buffer:   deps.PersistBuffer,
		selector: temporal.NewSelector(deps.Surface),
		store:    st,
		style:    deps.Style,
	}

	s.machine = gesture.New(gesture.Dependencies{
		Surface: deps.Surface,
		// both are read under s.mu, which every machine call holds
		Clock:  gesture.ClockFunc(s.CurrentTime),
		Style:  gesture.StyleFunc(func() core.Style { return s.style }),
		Logger: logger,
		NewID:  deps.NewID,
		Now:    deps.Now,
	})

	s.manager = surface.NewManager(surface.Dependencies{
		Surface:  deps.Surface,
		Logger:   logger,
		Guard:    &s.mu,
		OnResize: s.onResize,
	})

	st.Subscribe(s.onStoreChange)
	return s, nil
}

// VideoID returns the open video.
func (s *Session) VideoID() string {
	return s.videoID
}

// Open loads the saved annotations of the video when the backend can
// read them back.
func (s *Session) Open(ctx context.Context, loader store.Loader) error {
	if loader == nil {
		return nil
	}
	return s.store.Load(ctx, loader)
}

// Activate starts tracking the video element size through n.
// Must not be called while holding any session lock.
func (s *Session) Activate(n surface.SizeNotifier) error {
	return s.manager.Activate(n)
}

// Deactivate stops tracking the video element size.
func (s *Session) Deactivate() error {
	return s.manager.Deactivate()
}

// Close stops size tracking and waits for queued persistence.
func (s *Session) Close() error {
	err := s.Deactivate()
	s.Flush()
	return err
}

// Enable turns annotation mode on.
func (s *Session) Enable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled.Load() {
		return
	}
	s.enabled.Store(true)
	s.logger.Info("Annotation mode enabled")
}

// Disable turns annotation mode off, discarding any gesture in progress.
func (s *Session) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disableLocked()
}

func (s *Session) disableLocked() {
	if !s.enabled.Load() {
		return
	}
	s.enabled.Store(false)
	if s.machine.Abort() {
		s.redrawLocked()
	}
	s.logger.Info("Annotation mode disabled")
}

// Enabled reports whether annotation mode is on.
func (s *Session) Enabled() bool {
	return s.enabled.Load()
}

// Style returns the toolbar selection used by the next gesture.
func (s *Session) Style() core.Style {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.style
}

// SetTool selects the tool for the next gesture.
func (s *Session) SetTool(t core.Tool) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidTool, t)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.style.Tool = t
	return nil
}

// SetColor selects the color for the next gesture.
func (s *Session) SetColor(c string) error {
	if !core.ValidColor(c) {
		return fmt.Errorf("%w: %q", core.ErrInvalidColor, c)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.style.Color = c
	return nil
}

// SetStrokeWidth selects the width for the next gesture, clamped to the
// allowed range.
func (s *Session) SetStrokeWidth(w int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.style.StrokeWidth = core.ClampStrokeWidth(w)
}

// CurrentTime returns the last reported playback time.
func (s *Session) CurrentTime() float64 {
	return math.Float64frombits(s.currentTime.Load())
}

// Visible returns the annotations drawn by the last redraw.
func (s *Session) Visible() []core.VideoAnnotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.CloneAll(s.visible)
}

// Annotations returns every annotation of the video in list order.
func (s *Session) Annotations() []core.VideoAnnotation {
	return s.store.List()
}

// Drawing reports whether a gesture is in progress.
func (s *Session) Drawing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Drawing()
}

// PointerDown starts a gesture. Ignored while annotation mode is off.
func (s *Session) PointerDown(p core.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled.Load() {
		return
	}
	s.machine.PointerDown(p)
}

// PointerMove feeds a pointer position to the gesture in progress.
func (s *Session) PointerMove(p core.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled.Load() {
		return
	}
	s.machine.PointerMove(p)
}

// PointerUp finishes the gesture and queues the new annotation for
// persistence. It returns the annotation, if one was produced.
func (s *Session) PointerUp(p core.Point) (core.VideoAnnotation, bool) {
	s.mu.Lock()
	if !s.enabled.Load() {
		s.mu.Unlock()
		return core.VideoAnnotation{}, false
	}
	a, ok := s.machine.PointerUp(p)
	s.mu.Unlock()

	if ok {
		s.submit(persistOp{kind: opAdd, annotation: a})
	}
	return a, ok
}

// PointerLeave ends the gesture at the last known pointer position.
func (s *Session) PointerLeave() (core.VideoAnnotation, bool) {
	s.mu.Lock()
	if !s.enabled.Load() {
		s.mu.Unlock()
		return core.VideoAnnotation{}, false
	}
	a, ok := s.machine.PointerLeave()
	s.mu.Unlock()

	if ok {
		s.submit(persistOp{kind: opAdd, annotation: a})
	}
	return a, ok
}

// Key handles a key press in annotation mode. Tool keys select a tool;
// Escape aborts the gesture in progress, or leaves annotation mode when idle.
func (s *Session) Key(key string) shortcut.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled.Load() {
		return shortcut.ActionNone
	}

	action, tool := s.keymap.Resolve(key)
	switch action {
	case shortcut.ActionSelectTool:
		s.style.Tool = tool
		s.logger.Debug("Tool selected", "tool", tool)
	case shortcut.ActionEscape:
		if s.machine.Abort() {
			s.redrawLocked()
		} else {
			s.disableLocked()
		}
	}
	return action
}

// TimeUpdate records the playback time and redraws the visible set.
func (s *Session) TimeUpdate(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentTime.Store(math.Float64bits(t))
	s.redrawLocked()
}

// Resize applies a measured element size directly, for hosts that push
// sizes instead of running a notifier. It reports whether the surface changed.
func (s *Session) Resize(width, height int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.Apply(surface.Size{Width: width, Height: height})
}

// DeleteAt deletes the topmost visible annotation under p. Queued adds are
// committed first so the hit test sees every finished shape. The removal is
// queued like any other change; the id is returned immediately.
func (s *Session) DeleteAt(p core.Point) (string, error) {
	s.Flush()

	s.mu.Lock()
	hit, ok := geo.HitTest(s.visible, p, s.hitReach)
	s.mu.Unlock()

	if !ok {
		return "", ErrNothingHit
	}
	s.submit(persistOp{kind: opRemove, id: hit.ID})
	return hit.ID, nil
}

// Delete queues removal of the annotation with the given id.
func (s *Session) Delete(id string) error {
	s.Flush()
	if _, ok := s.store.Get(id); !ok {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	s.submit(persistOp{kind: opRemove, id: id})
	return nil
}

// Clear queues removal of every annotation of the video.
func (s *Session) Clear() {
	s.submit(persistOp{kind: opClear})
}

// WithSurface runs fn while no other drawing can happen, for reading the
// overlay back (snapshots).
func (s *Session) WithSurface(fn func(render.Surface) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.surface)
}

// Redraw clears the surface and draws the visible set again.
func (s *Session) Redraw() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redrawLocked()
}

// onResize runs with s.mu held, from the surface manager.
func (s *Session) onResize(size surface.Size) {
	if s.machine.Abort() {
		s.logger.Info("Gesture aborted by resize", "width", size.Width, "height", size.Height)
	}
	s.redrawLocked()
}

func (s *Session) onStoreChange() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redrawLocked()
}

// redrawLocked renders the annotations visible at the current time and
// restores the feedback of a gesture in progress. Caller holds s.mu.
func (s *Session) redrawLocked() {
	visible, err := s.selector.Render(s.store.List(), s.CurrentTime())
	s.visible = visible
	if err != nil {
		s.logger.Warn("Redraw incomplete", "error", err)
	}
	if err := s.machine.DrawProgress(); err != nil {
		s.logger.Warn("Failed to restore gesture feedback", "error", err)
	}
}
