package surface

import (
	"errors"
	"math"
	"sync"
	"time"
)

// Size is an on-screen bounding box in whole pixels.
type Size struct {
	Width  int
	Height int
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// SizeNotifier observes the displayed size of the video element. Start
// begins delivering size changes to fn; Stop ends delivery and must be
// called on every exit path once Start succeeded.
type SizeNotifier interface {
	Start(fn func(Size)) error
	Stop() error
}

var ErrAlreadyStarted = errors.New("notifier already started")

// Probe reads the current bounding box of the video element.
type Probe func() Size

// PollingNotifier samples a Probe on a fixed interval and reports changes.
// It stands in for a native resize observer.
type PollingNotifier struct {
	probe    Probe
	interval time.Duration

	mu       sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// NewPollingNotifier creates a notifier polling probe every interval.
func NewPollingNotifier(probe Probe, interval time.Duration) *PollingNotifier {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &PollingNotifier{probe: probe, interval: interval}
}

// Start reports the current size immediately and then every change.
func (p *PollingNotifier) Start(fn func(Size)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopChan != nil {
		return ErrAlreadyStarted
	}
	p.stopChan = make(chan struct{})
	p.done = make(chan struct{})

	last := p.probe()
	fn(last)

	go p.pollLoop(fn, last, p.stopChan, p.done)
	return nil
}

// Stop ends polling and waits for the loop to exit. Stopping an idle
// notifier is a no-op.
func (p *PollingNotifier) Stop() error {
	p.mu.Lock()
	stop, done := p.stopChan, p.done
	p.stopChan, p.done = nil, nil
	p.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	return nil
}

func (p *PollingNotifier) pollLoop(fn func(Size), last Size, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			cur := p.probe()
			if cur != last {
				last = cur
				fn(cur)
			}
		}
	}
}

// ManualNotifier forwards sizes pushed by the host, for example from a
// window system event or a replay script.
type ManualNotifier struct {
	mu sync.Mutex
	fn func(Size)
}

func (m *ManualNotifier) Start(fn func(Size)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fn != nil {
		return ErrAlreadyStarted
	}
	m.fn = fn
	return nil
}

func (m *ManualNotifier) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = nil
	return nil
}

// Notify delivers s if the notifier is started. It reports whether s was
// delivered.
func (m *ManualNotifier) Notify(s Size) bool {
	m.mu.Lock()
	fn := m.fn
	m.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(s)
	return true
}

// FromBoundingBox converts a fractional layout box to whole pixels.
func FromBoundingBox(width, height float64) Size {
	return Size{Width: int(math.Round(width)), Height: int(math.Round(height))}
}
