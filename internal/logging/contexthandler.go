package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// ContextProvider returns attributes added to every record at log time.
type ContextProvider func() []slog.Attr

// SessionState is the live state of an annotation session that log records
// are tagged with. session.Session satisfies it.
type SessionState interface {
	VideoID() string
	Enabled() bool
	CurrentTime() float64
}

// SessionAttrs reports the open video, whether annotation mode is on and
// the playback position.
func SessionAttrs(s SessionState) ContextProvider {
	return func() []slog.Attr {
		return []slog.Attr{
			slog.String("video", s.VideoID()),
			slog.Bool("annotating", s.Enabled()),
			slog.Float64("videoTime", s.CurrentTime()),
		}
	}
}

// Providers concatenates the attributes of ps in order. Nil entries are
// skipped.
func Providers(ps ...ContextProvider) ContextProvider {
	return func() []slog.Attr {
		var attrs []slog.Attr
		for _, p := range ps {
			if p != nil {
				attrs = append(attrs, p()...)
			}
		}
		return attrs
	}
}

type ctxAttrsKey struct{}

// WithLogAttrs returns a context whose records (logged through the
// *Context slog methods) carry attrs, after any attrs already on ctx.
func WithLogAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	prev, _ := ctx.Value(ctxAttrsKey{}).([]slog.Attr)
	merged := make([]slog.Attr, 0, len(prev)+len(attrs))
	merged = append(append(merged, prev...), attrs...)
	return context.WithValue(ctx, ctxAttrsKey{}, merged)
}

func logAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	attrs, _ := ctx.Value(ctxAttrsKey{}).([]slog.Attr)
	return attrs
}

// ContextHandler wraps another handler and adds the provider's attributes
// and those stored on the record's context. The provider can be swapped
// while loggers built on the handler are in use.
type ContextHandler struct {
	inner    slog.Handler
	provider *atomic.Pointer[ContextProvider]
}

// NewContextHandler creates a handler that tags each record with p.
func NewContextHandler(inner slog.Handler, p ContextProvider) *ContextHandler {
	h := &ContextHandler{inner: inner, provider: &atomic.Pointer[ContextProvider]{}}
	h.SetProvider(p)
	return h
}

// SetProvider replaces the provider for this handler and every handler
// derived from it.
func (h *ContextHandler) SetProvider(p ContextProvider) {
	if p == nil {
		h.provider.Store(nil)
		return
	}
	h.provider.Store(&p)
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if p := h.provider.Load(); p != nil {
		r.AddAttrs((*p)()...)
	}
	r.AddAttrs(logAttrs(ctx)...)
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs), provider: h.provider}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{inner: h.inner.WithGroup(name), provider: h.provider}
}
