package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/telestrator/internal/dispatcher"
	"github.com/OCAP2/telestrator/internal/logging"
	"github.com/OCAP2/telestrator/internal/render"
	"github.com/OCAP2/telestrator/internal/shortcut"
	"github.com/OCAP2/telestrator/internal/store"
	"github.com/OCAP2/telestrator/internal/surface"
	"github.com/OCAP2/telestrator/pkg/core"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakePersister struct {
	mu      sync.Mutex
	docs    []core.AnnotationDocument
	failErr error
	saved   []core.VideoAnnotation
}

func (f *fakePersister) Update(_ context.Context, videoID string, doc core.AnnotationDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.docs = append(f.docs, doc)
	return nil
}

func (f *fakePersister) Load(_ context.Context, videoID string) ([]core.VideoAnnotation, error) {
	return f.saved, nil
}

func (f *fakePersister) lastDoc() (core.AnnotationDocument, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.docs) == 0 {
		return core.AnnotationDocument{}, 0
	}
	return f.docs[len(f.docs)-1], len(f.docs)
}

func (f *fakePersister) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failErr = err
}

type fixture struct {
	session   *Session
	surface   *render.Recorder
	persister *fakePersister
	errs      []error
	errMu     sync.Mutex
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		surface:   render.NewRecorder(640, 360),
		persister: &fakePersister{},
	}
	n := 0
	s, err := New(Dependencies{
		VideoID:   "video-1",
		Surface:   f.surface,
		Persister: f.persister,
		Journal:   logging.NewJournal(nil),
		OnError: func(err error) {
			f.errMu.Lock()
			defer f.errMu.Unlock()
			f.errs = append(f.errs, err)
		},
		NewID: func() string {
			n++
			return fmt.Sprintf("a%d", n)
		},
		Now: func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	f.session = s
	return f
}

func (f *fixture) errors() []error {
	f.errMu.Lock()
	defer f.errMu.Unlock()
	return append([]error(nil), f.errs...)
}

// drawLine runs a complete line gesture from a to b.
func (f *fixture) drawLine(a, b core.Point) (core.VideoAnnotation, bool) {
	f.session.PointerDown(a)
	f.session.PointerMove(b)
	return f.session.PointerUp(b)
}

func TestNew_RequiresSurface(t *testing.T) {
	_, err := New(Dependencies{VideoID: "v"})
	assert.Error(t, err)
}

func TestNew_RejectsInvalidStyle(t *testing.T) {
	_, err := New(Dependencies{
		VideoID: "v",
		Surface: render.NewRecorder(10, 10),
		Style:   core.Style{Tool: "spray", Color: "#fff", StrokeWidth: 2},
	})
	assert.ErrorIs(t, err, core.ErrInvalidTool)
}

func TestNew_DefaultsToDisabledWithDefaultStyle(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.session.Enabled())
	assert.Equal(t, core.DefaultStyle, f.session.Style())
	assert.Equal(t, "video-1", f.session.VideoID())
}

func TestSession_PointerIgnoredWhileDisabled(t *testing.T) {
	f := newFixture(t)

	_, ok := f.drawLine(core.Point{X: 1, Y: 1}, core.Point{X: 50, Y: 50})
	assert.False(t, ok)
	assert.Empty(t, f.surface.Ops())
	assert.Empty(t, f.session.Annotations())
}

func TestSession_LineGesturePersists(t *testing.T) {
	f := newFixture(t)
	f.session.Enable()
	f.session.TimeUpdate(12.5)

	a, ok := f.drawLine(core.Point{X: 10, Y: 20}, core.Point{X: 110, Y: 20})
	require.True(t, ok)

	assert.Equal(t, "a1", a.ID)
	assert.Equal(t, 12.5, a.Timestamp)
	assert.Equal(t, core.ToolLine, a.Tool)
	assert.Equal(t, []core.Point{{X: 10, Y: 20}, {X: 110, Y: 20}}, a.Points)
	assert.Equal(t, fixedNow, a.CreatedAt)

	doc, writes := f.persister.lastDoc()
	assert.Equal(t, 1, writes)
	require.Len(t, doc.Annotations, 1)
	assert.Equal(t, "a1", doc.Annotations[0].ID)

	// redraw after the store change shows the new line
	visible := f.session.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "a1", visible[0].ID)
}

func TestSession_FreehandCollectsMoves(t *testing.T) {
	f := newFixture(t)
	f.session.Enable()
	require.NoError(t, f.session.SetTool(core.ToolFreehand))

	f.session.PointerDown(core.Point{X: 0, Y: 0})
	f.session.PointerMove(core.Point{X: 5, Y: 5})
	f.session.PointerMove(core.Point{X: 10, Y: 0})
	a, ok := f.session.PointerUp(core.Point{X: 12, Y: 3})
	require.True(t, ok)

	assert.Equal(t, core.ToolFreehand, a.Tool)
	assert.Len(t, a.Points, 4)
}

func TestSession_StyleSetters(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.session.SetTool("spray"), core.ErrInvalidTool)
	assert.ErrorIs(t, f.session.SetColor("red"), core.ErrInvalidColor)

	require.NoError(t, f.session.SetTool(core.ToolCircle))
	require.NoError(t, f.session.SetColor("#00ff00"))
	f.session.SetStrokeWidth(42)

	assert.Equal(t, core.Style{Tool: core.ToolCircle, Color: "#00ff00", StrokeWidth: core.MaxStrokeWidth}, f.session.Style())
}

func TestSession_PersistFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.session.Enable()
	f.persister.setFail(errors.New("disk full"))

	_, ok := f.drawLine(core.Point{X: 10, Y: 10}, core.Point{X: 90, Y: 90})
	require.True(t, ok)

	assert.Empty(t, f.session.Annotations())
	assert.Empty(t, f.session.Visible())

	errs := f.errors()
	require.Len(t, errs, 1)
	var pe *store.PersistError
	assert.ErrorAs(t, errs[0], &pe)

	// the rolled-back line is gone from the overlay
	for _, op := range f.surface.SinceClear() {
		assert.NotEqual(t, render.OpLine, op.Kind)
	}
}

func TestSession_KeySelectsTool(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, shortcut.ActionNone, f.session.Key("c"), "keys are ignored while disabled")

	f.session.Enable()
	assert.Equal(t, shortcut.ActionSelectTool, f.session.Key("C"))
	assert.Equal(t, core.ToolCircle, f.session.Style().Tool)

	assert.Equal(t, shortcut.ActionNone, f.session.Key("x"))
	assert.Equal(t, core.ToolCircle, f.session.Style().Tool)
}

func TestSession_EscapeAbortsGestureThenDisables(t *testing.T) {
	f := newFixture(t)
	f.session.Enable()

	f.session.PointerDown(core.Point{X: 10, Y: 10})
	require.True(t, f.session.Drawing())

	assert.Equal(t, shortcut.ActionEscape, f.session.Key("Escape"))
	assert.False(t, f.session.Drawing())
	assert.True(t, f.session.Enabled())

	_, ok := f.session.PointerUp(core.Point{X: 20, Y: 20})
	assert.False(t, ok, "aborted gesture must not commit")

	f.session.Key("Escape")
	assert.False(t, f.session.Enabled())
	assert.Empty(t, f.session.Annotations())
}

func TestSession_DisableDiscardsGesture(t *testing.T) {
	f := newFixture(t)
	f.session.Enable()
	f.session.PointerDown(core.Point{X: 10, Y: 10})

	f.session.Disable()
	assert.False(t, f.session.Drawing())

	f.session.Enable()
	_, ok := f.session.PointerUp(core.Point{X: 20, Y: 20})
	assert.False(t, ok)
}

func TestSession_TimeUpdateSelectsWindow(t *testing.T) {
	f := newFixture(t)
	f.session.Enable()

	f.session.TimeUpdate(10)
	_, ok := f.drawLine(core.Point{X: 0, Y: 0}, core.Point{X: 10, Y: 10})
	require.True(t, ok)

	f.session.TimeUpdate(10.4)
	assert.Len(t, f.session.Visible(), 1)

	f.session.TimeUpdate(11)
	assert.Empty(t, f.session.Visible())
	assert.Len(t, f.session.Annotations(), 1, "hidden annotations stay stored")
	assert.Equal(t, 11.0, f.session.CurrentTime())
}

func TestSession_RedrawKeepsGestureFeedback(t *testing.T) {
	f := newFixture(t)
	f.session.Enable()
	f.session.PointerDown(core.Point{X: 30, Y: 30})

	f.session.TimeUpdate(1)

	ops := f.surface.SinceClear()
	require.NotEmpty(t, ops)
	assert.Equal(t, render.OpSquare, ops[0].Kind)
	assert.True(t, f.session.Drawing())
}

func TestSession_DeleteAt(t *testing.T) {
	f := newFixture(t)
	f.session.Enable()
	_, ok := f.drawLine(core.Point{X: 0, Y: 100}, core.Point{X: 200, Y: 100})
	require.True(t, ok)

	_, err := f.session.DeleteAt(core.Point{X: 100, Y: 300})
	assert.ErrorIs(t, err, ErrNothingHit)

	id, err := f.session.DeleteAt(core.Point{X: 100, Y: 102})
	require.NoError(t, err)
	assert.Equal(t, "a1", id)
	assert.Empty(t, f.session.Annotations())
	assert.Empty(t, f.session.Visible())
}

func TestSession_DeleteAtOnlyHitsVisible(t *testing.T) {
	f := newFixture(t)
	f.session.Enable()
	_, ok := f.drawLine(core.Point{X: 0, Y: 100}, core.Point{X: 200, Y: 100})
	require.True(t, ok)

	f.session.TimeUpdate(30)
	_, err := f.session.DeleteAt(core.Point{X: 100, Y: 100})
	assert.ErrorIs(t, err, ErrNothingHit)
	assert.Len(t, f.session.Annotations(), 1)
}

func TestSession_DeleteByID(t *testing.T) {
	f := newFixture(t)
	f.session.Enable()
	f.drawLine(core.Point{X: 0, Y: 0}, core.Point{X: 5, Y: 5})
	f.drawLine(core.Point{X: 0, Y: 0}, core.Point{X: 9, Y: 9})

	assert.ErrorIs(t, f.session.Delete("nope"), store.ErrNotFound)
	require.NoError(t, f.session.Delete("a1"))

	list := f.session.Annotations()
	require.Len(t, list, 1)
	assert.Equal(t, "a2", list[0].ID)
}

func TestSession_Clear(t *testing.T) {
	f := newFixture(t)
	f.session.Enable()
	f.drawLine(core.Point{X: 0, Y: 0}, core.Point{X: 5, Y: 5})
	f.drawLine(core.Point{X: 0, Y: 0}, core.Point{X: 9, Y: 9})

	f.session.Clear()

	assert.Empty(t, f.session.Annotations())
	doc, _ := f.persister.lastDoc()
	assert.NotNil(t, doc.Annotations)
	assert.Empty(t, doc.Annotations)
}

func TestSession_ResizeAbortsGestureAndRedraws(t *testing.T) {
	f := newFixture(t)
	n := &surface.ManualNotifier{}
	require.NoError(t, f.session.Activate(n))
	defer f.session.Close()

	f.session.Enable()
	from, to := core.Point{X: 100, Y: 50}, core.Point{X: 300, Y: 200}
	_, ok := f.drawLine(from, to)
	require.True(t, ok)
	f.session.PointerDown(core.Point{X: 30, Y: 30})
	f.surface.Reset()

	require.True(t, n.Notify(surface.Size{Width: 1280, Height: 720}))

	assert.False(t, f.session.Drawing())
	w, h := f.surface.Size()
	assert.Equal(t, 1280, w)
	assert.Equal(t, 720, h)

	ops := f.surface.Ops()
	require.NotEmpty(t, ops)
	assert.Equal(t, render.OpResize, ops[0].Kind)
	assert.Equal(t, 1280, ops[0].Width)
	assert.Equal(t, 720, ops[0].Height)

	// saved points are drawn as stored, with no marker left over
	visible := f.surface.SinceClear()
	require.Len(t, visible, 1)
	assert.Equal(t, render.OpLine, visible[0].Kind)
	assert.Equal(t, []core.Point{from, to}, visible[0].Points)
	assert.Equal(t, []core.Point{from, to}, f.session.Annotations()[0].Points)

	// same size again is a no-op
	assert.False(t, f.session.Resize(1280, 720))
	assert.False(t, f.session.Resize(0, 0))
	assert.True(t, f.session.Resize(640, 360))
}

func TestSession_DeleteAtZeroSizeShape(t *testing.T) {
	f := newFixture(t)
	f.session.Enable()
	require.NoError(t, f.session.SetTool(core.ToolCircle))
	p := core.Point{X: 120, Y: 80}
	f.session.PointerDown(p)
	_, ok := f.session.PointerUp(p)
	require.True(t, ok)

	id, err := f.session.DeleteAt(core.Point{X: 122, Y: 81})
	require.NoError(t, err)
	assert.Equal(t, "a1", id)
	assert.Empty(t, f.session.Annotations())
}

func TestSession_Open(t *testing.T) {
	f := newFixture(t)
	f.persister.saved = []core.VideoAnnotation{{
		ID: "saved", Timestamp: 0, Tool: core.ToolLine,
		Points:      []core.Point{{X: 0, Y: 0}, {X: 10, Y: 10}},
		Color:       "#ff0000",
		StrokeWidth: 3,
	}}

	require.NoError(t, f.session.Open(context.Background(), f.persister))
	assert.Len(t, f.session.Annotations(), 1)
	assert.Len(t, f.session.Visible(), 1)

	assert.NoError(t, f.session.Open(context.Background(), nil))
}

func TestSession_DispatcherQueuesPersistence(t *testing.T) {
	f := newFixture(t)
	d, err := dispatcher.New(logging.NewDispatcherLogger(nil))
	require.NoError(t, err)
	defer d.Close()
	f.session.RegisterHandlers(d)

	dispatch := func(cmd string, args ...string) (any, error) {
		return d.Dispatch(dispatcher.Event{Command: cmd, Args: args, Timestamp: time.Now()})
	}

	_, err = dispatch(CmdModeEnable)
	require.NoError(t, err)
	_, err = dispatch(CmdStyleTool, "arrow")
	require.NoError(t, err)
	_, err = dispatch(CmdStyleColor, "#00F")
	require.NoError(t, err)
	_, err = dispatch(CmdStyleWidth, "5")
	require.NoError(t, err)
	_, err = dispatch(CmdTime, "4.25")
	require.NoError(t, err)

	_, err = dispatch(CmdPointerDown, "10", "10")
	require.NoError(t, err)
	_, err = dispatch(CmdPointerMove, "60", "10")
	require.NoError(t, err)
	res, err := dispatch(CmdPointerUp, "100", "10")
	require.NoError(t, err)
	a, ok := res.(core.VideoAnnotation)
	require.True(t, ok)
	assert.Equal(t, core.ToolArrow, a.Tool)
	assert.Equal(t, "#00f", a.Color)
	assert.Equal(t, 5, a.StrokeWidth)
	assert.Equal(t, 4.25, a.Timestamp)

	f.session.Flush()
	require.Len(t, f.session.Annotations(), 1)
	_, writes := f.persister.lastDoc()
	assert.Equal(t, 1, writes)

	res, err = dispatch(CmdDeleteAt, "50", "11")
	require.NoError(t, err)
	assert.Equal(t, a.ID, res)
	f.session.Flush()
	assert.Empty(t, f.session.Annotations())

	_, err = dispatch(CmdPointerDown, "nope")
	assert.Error(t, err)
}

func TestSession_DispatcherKeyAndResize(t *testing.T) {
	f := newFixture(t)
	d, err := dispatcher.New(logging.NewDispatcherLogger(nil))
	require.NoError(t, err)
	defer d.Close()
	f.session.RegisterHandlers(d)

	_, err = d.Dispatch(dispatcher.Event{Command: CmdModeEnable})
	require.NoError(t, err)

	res, err := d.Dispatch(dispatcher.Event{Command: CmdKey, Args: []string{"f"}})
	require.NoError(t, err)
	assert.Equal(t, shortcut.ActionSelectTool, res)
	assert.Equal(t, core.ToolFreehand, f.session.Style().Tool)

	res, err = d.Dispatch(dispatcher.Event{Command: CmdResize, Args: []string{"320", "180"}})
	require.NoError(t, err)
	assert.Equal(t, true, res)

	_, err = d.Dispatch(dispatcher.Event{Command: CmdModeDisable})
	require.NoError(t, err)
	assert.False(t, f.session.Enabled())
}

func TestSession_ConcurrentGesturesAndTime(t *testing.T) {
	f := newFixture(t)
	d, err := dispatcher.New(logging.NewDispatcherLogger(nil))
	require.NoError(t, err)
	defer d.Close()
	f.session.RegisterHandlers(d)
	f.session.Enable()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			f.drawLine(core.Point{X: 0, Y: float64(i)}, core.Point{X: 50, Y: float64(i)})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			f.session.TimeUpdate(0.01 * float64(i))
		}
	}()
	wg.Wait()
	f.session.Flush()

	assert.Len(t, f.session.Annotations(), 20)
	assert.Empty(t, f.errors())
}

func TestSession_LogContextReadsStateUnderLock(t *testing.T) {
	var buf syncBuffer
	h := logging.NewContextHandler(slog.NewTextHandler(&buf, nil), nil)
	s, err := New(Dependencies{
		VideoID:   "video-1",
		Surface:   render.NewRecorder(640, 360),
		Persister: &fakePersister{},
		Logger:    slog.New(h),
	})
	require.NoError(t, err)
	h.SetProvider(logging.SessionAttrs(s))

	n := &surface.ManualNotifier{}
	require.NoError(t, s.Activate(n))
	defer s.Close()

	s.Enable()
	s.TimeUpdate(2.5)
	s.PointerDown(core.Point{X: 10, Y: 10})

	done := make(chan struct{})
	go func() {
		defer close(done)
		n.Notify(surface.Size{Width: 1280, Height: 720})
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("resize blocked while logging")
	}

	assert.Contains(t, buf.String(), `msg="Gesture aborted by resize"`)
	assert.Contains(t, buf.String(), "video=video-1 annotating=true videoTime=2.5")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
