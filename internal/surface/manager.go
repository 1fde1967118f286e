// Package surface keeps the overlay drawing surface the same size as the
// displayed video element.
package surface

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/OCAP2/telestrator/internal/render"
)

// Dependencies holds the collaborators of a Manager.
type Dependencies struct {
	Surface render.Surface
	Logger  *slog.Logger

	// Guard, if set, is held while the surface is resized and OnResize runs.
	// Sessions pass their own lock so resizes never interleave with drawing.
	Guard sync.Locker
	// OnResize runs after every successful resize.
	OnResize func(Size)
}

// Manager owns the resize lifecycle of one overlay surface.
type Manager struct {
	surface  render.Surface
	logger   *slog.Logger
	guard    sync.Locker
	onResize func(Size)

	mu       sync.Mutex
	notifier SizeNotifier
}

type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}

// NewManager creates an inactive manager.
func NewManager(deps Dependencies) *Manager {
	m := &Manager{
		surface:  deps.Surface,
		logger:   deps.Logger,
		guard:    deps.Guard,
		onResize: deps.OnResize,
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.guard == nil {
		m.guard = noLock{}
	}
	return m
}

// Activate starts observing the video element through n.
func (m *Manager) Activate(n SizeNotifier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notifier != nil {
		return fmt.Errorf("surface manager already active")
	}
	if err := n.Start(m.observe); err != nil {
		return fmt.Errorf("start size notifier: %w", err)
	}
	m.notifier = n
	return nil
}

// Deactivate stops observation. It is safe to call when inactive.
func (m *Manager) Deactivate() error {
	m.mu.Lock()
	n := m.notifier
	m.notifier = nil
	m.mu.Unlock()

	if n == nil {
		return nil
	}
	if err := n.Stop(); err != nil {
		return fmt.Errorf("stop size notifier: %w", err)
	}
	return nil
}

// Active reports whether a notifier is attached.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifier != nil
}

func (m *Manager) observe(s Size) {
	m.guard.Lock()
	defer m.guard.Unlock()
	m.Apply(s)
}

// Apply resizes the backing store to s. Zero sizes (element not laid out or
// hidden) are skipped, as are sizes equal to the current one. Callers must
// hold the guard. It reports whether the surface changed.
func (m *Manager) Apply(s Size) bool {
	if !s.Valid() {
		m.logger.Debug("Skipping resize for unlaid element", "width", s.Width, "height", s.Height)
		return false
	}
	w, h := m.surface.Size()
	if w == s.Width && h == s.Height {
		return false
	}
	if err := m.surface.Resize(s.Width, s.Height); err != nil {
		m.logger.Warn("Surface resize failed", "width", s.Width, "height", s.Height, "error", err)
		return false
	}
	m.logger.Debug("Surface resized", "width", s.Width, "height", s.Height)
	if m.onResize != nil {
		m.onResize(s)
	}
	return true
}
